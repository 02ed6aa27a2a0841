package ses

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	tp := newTestPages()
	cfg := tp.config(t)

	assert.Equal(t, uint32(testGeneration), cfg.Generation)
	require.Len(t, cfg.SubEnclosures, 1)
	se := cfg.SubEnclosures[0]
	assert.True(t, se.Identity)
	assert.Equal(t, byte(1), se.RelESProcID)
	assert.Equal(t, byte(1), se.NumESProcs)
	assert.Equal(t, "ACME", se.Vendor)
	assert.Equal(t, "JBOD-2", se.Product)
	assert.Equal(t, "0100", se.Revision)
	assert.Equal(t, [8]byte{0x50, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0}, se.LogicalID)

	require.Len(t, cfg.TypeHeaders, 3)
	assert.Equal(t, TypeHeader{ElementType: ETArrayDevice, NumElements: 2, TextLen: 8, Text: "ArrayDev"}, cfg.TypeHeaders[0])
	assert.Equal(t, byte(ETTemperature), cfg.TypeHeaders[2].ElementType)
	assert.Equal(t, 4, cfg.NumElements())
	assert.Equal(t, 7, cfg.NumDescriptors())
	assert.Equal(t, &cfg.SubEnclosures[0], cfg.Primary())

	ti, ok := cfg.TypeHeaderIndex(ETTemperature, 0)
	assert.True(t, ok)
	assert.Equal(t, 2, ti)
	_, ok = cfg.TypeHeaderIndex(ETTemperature, 1)
	assert.False(t, ok)
}

func TestConfigRoundTrip(t *testing.T) {
	tp := newTestPages()
	secondary := encDescriptor(1, 1, "ACME", "JBOD-2 exp", "0100")
	secondary = append(secondary, 0xde, 0xad)
	secondary[3] += 2
	tests := []struct {
		desc string
		b    []byte
	}{
		{desc: "single subenclosure", b: tp.cfg},
		{
			desc: "secondary subenclosure with vendor specific bytes",
			b: page(PageConfiguration, 1, 7,
				encDescriptor(0, 1, "ACME", "JBOD", "1"),
				secondary,
				[]byte{ETCooling, 4, 0, 3},
				[]byte{ETSASExpander, 1, 1, 0},
				[]byte("fan")),
		},
	}

	for i, tt := range tests {
		cfg, err := ParseConfig(tt.b, testLogger())
		require.NoError(t, err, "[%02d] test %q", i, tt.desc)
		out, err := cfg.MarshalBinary()
		require.NoError(t, err, "[%02d] test %q", i, tt.desc)
		assert.Equal(t, tt.b, out, "[%02d] test %q", i, tt.desc)
	}
}

func TestConfigBuiltFromFields(t *testing.T) {
	cfg := &ConfigPage{
		Generation: 3,
		SubEnclosures: []SubEnclosure{{
			NumESProcs: 1, NumTypeHeaders: 1, Identity: true,
			Vendor: "ACME", Product: "Box", Revision: "1",
		}},
		TypeHeaders: []TypeHeader{{ElementType: ETDevice, NumElements: 12, Text: "disks"}},
	}
	b, err := cfg.MarshalBinary()
	require.NoError(t, err)

	back, err := ParseConfig(b, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "ACME", back.SubEnclosures[0].Vendor)
	assert.Equal(t, "Box", back.SubEnclosures[0].Product)
	assert.Equal(t, "disks", back.TypeHeaders[0].Text)
	assert.Equal(t, byte(5), back.TypeHeaders[0].TextLen)
	assert.Equal(t, 12, back.NumElements())
}

func TestParseConfigErrors(t *testing.T) {
	tp := newTestPages()
	short := encDescriptor(0, 1, "", "", "")[:4+20]
	short[3] = 20

	tests := []struct {
		desc string
		b    []byte
		err  error
	}{
		{desc: "header only", b: tp.cfg[:6], err: ErrTruncated},
		{desc: "not a configuration page", b: tp.es, err: ErrInconsistent},
		{desc: "type headers cut off", b: tp.cfg[:50], err: ErrTruncated},
		{desc: "text cut off", b: tp.cfg[:len(tp.cfg)-2], err: ErrTruncated},
		{
			desc: "enclosure descriptor runs past page",
			b:    page(PageConfiguration, 0, 0, []byte{0x11, 0, 1, 200}),
			err:  ErrTruncated,
		},
		{
			desc: "short enclosure descriptor skips identity",
			b:    page(PageConfiguration, 0, 0, short, []byte{ETDevice, 2, 0, 0}),
		},
	}

	for i, tt := range tests {
		cfg, err := ParseConfig(tt.b, testLogger())
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Fatalf("[%02d] test %q, unexpected error: %v != %v", i, tt.desc, tt.err, err)
			}
			continue
		}
		require.NoError(t, err, "[%02d] test %q", i, tt.desc)
		assert.False(t, cfg.SubEnclosures[0].Identity)
		assert.Equal(t, 2, cfg.NumElements())
	}
}
