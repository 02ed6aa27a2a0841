package scsi

import "testing"

func TestParseSense(t *testing.T) {
	var tests = []struct {
		desc string
		buf  []byte
		ok   bool
		want Sense
	}{
		{
			desc: "fixed format illegal request",
			buf:  FixedSense(SenseIllegalRequest, AscInvalidFieldInCdb),
			ok:   true,
			want: Sense{ResponseCode: 0x70, Key: SenseIllegalRequest, ASC: 0x24},
		},
		{
			desc: "descriptor format unit attention",
			buf:  []byte{0x72, 0x06, 0x29, 0x00, 0, 0, 0, 0},
			ok:   true,
			want: Sense{ResponseCode: 0x72, Key: SenseUnitAttention, ASC: 0x29, Descriptor: true},
		},
		{
			desc: "deferred fixed",
			buf:  []byte{0xf1, 0, 0x02, 0, 0, 0, 0, 0xa, 0, 0, 0, 0, 0x04, 0x03},
			ok:   true,
			want: Sense{ResponseCode: 0x71, Key: SenseNotReady, ASC: 0x04, ASCQ: 0x03, Deferred: true},
		},
		{
			desc: "empty",
			buf:  nil,
			ok:   false,
		},
		{
			desc: "bad response code",
			buf:  []byte{0x12, 0, 5},
			ok:   false,
		},
	}

	for i, tt := range tests {
		got, ok := ParseSense(tt.buf)
		if ok != tt.ok {
			t.Fatalf("[%02d] test %q, unexpected ok: %v", i, tt.desc, ok)
		}
		if !ok {
			continue
		}
		if want := tt.want; want != got {
			t.Fatalf("[%02d] test %q, unexpected sense:\n- want: %+v\n-  got: %+v",
				i, tt.desc, want, got)
		}
	}
}

func TestSenseString(t *testing.T) {
	s, _ := ParseSense(FixedSense(SenseIllegalRequest, AscInvalidFieldInParameterList))
	want := "Illegal Request, asc=0x26 ascq=0x00 (Invalid field in parameter list)"
	if got := s.String(); got != want {
		t.Fatalf("unexpected string:\n- want: %v\n-  got: %v", want, got)
	}
}
