package ses

import (
	"encoding/binary"
	"testing"

	"github.com/coreos/go-ses/scsi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnclosureHandleCommand(t *testing.T) {
	tp := newTestPages()

	stale := page(PageEnclosureStatus, 0, testGeneration+1, make([]byte, 28))
	short := append([]byte(nil), tp.es...)
	binary.BigEndian.PutUint16(short[2:4], uint16(len(short)))

	var tests = []struct {
		desc   string
		cdb    []byte
		data   []byte
		status byte
		asc    uint16
	}{
		{
			desc:   "inquiry",
			cdb:    []byte{scsi.Inquiry, 0, 0, 0, 36, 0},
			data:   make([]byte, 36),
			status: scsi.SamStatGood,
		},
		{
			desc:   "inquiry for a vital product data page",
			cdb:    []byte{scsi.Inquiry, 1, 0x80, 0, 36, 0},
			data:   make([]byte, 36),
			status: scsi.SamStatCheckCondition,
			asc:    scsi.AscInvalidFieldInCdb,
		},
		{
			desc:   "test unit ready",
			cdb:    []byte{scsi.TestUnitReady, 0, 0, 0, 0, 0},
			status: scsi.SamStatGood,
		},
		{
			desc:   "receive diagnostic results without PCV",
			cdb:    []byte{scsi.ReceiveDiagnostic, 0, PageConfiguration, 0, 64, 0},
			data:   make([]byte, 64),
			status: scsi.SamStatCheckCondition,
			asc:    scsi.AscInvalidFieldInCdb,
		},
		{
			desc:   "receive diagnostic results for a missing page",
			cdb:    receiveDiagCDB(PageString, 64),
			data:   make([]byte, 64),
			status: scsi.SamStatCheckCondition,
			asc:    scsi.AscInvalidFieldInCdb,
		},
		{
			desc:   "send diagnostic without PF",
			cdb:    []byte{scsi.SendDiagnostic, 0, 0, 0, byte(len(tp.es)), 0},
			data:   tp.es,
			status: scsi.SamStatCheckCondition,
			asc:    scsi.AscInvalidFieldInCdb,
		},
		{
			desc:   "send diagnostic without a parameter list",
			cdb:    sendDiagCDB(0),
			status: scsi.SamStatGood,
		},
		{
			desc:   "send diagnostic with a stale generation code",
			cdb:    sendDiagCDB(len(stale)),
			data:   stale,
			status: scsi.SamStatCheckCondition,
			asc:    scsi.AscInvalidFieldInParameterList,
		},
		{
			desc:   "send diagnostic with a page length that disagrees",
			cdb:    sendDiagCDB(len(short)),
			data:   short,
			status: scsi.SamStatCheckCondition,
			asc:    scsi.AscParameterListLengthError,
		},
		{
			desc:   "send diagnostic for a status only page",
			cdb:    sendDiagCDB(len(tp.cfg)),
			data:   tp.cfg,
			status: scsi.SamStatCheckCondition,
			asc:    scsi.AscInvalidFieldInParameterList,
		},
		{
			desc:   "unknown opcode",
			cdb:    []byte{scsi.ReportLuns, 0, 0, 0, 0, 0, 0, 0, 0, 16, 0, 0},
			data:   make([]byte, 16),
			status: scsi.SamStatCheckCondition,
			asc:    scsi.AscInvalidCommandOpcode,
		},
	}

	for i, tt := range tests {
		enc := NewEnclosure(tp.all()...)
		resp, err := enc.HandleCommand(NewSCSICmd(tt.cdb, tt.data))
		require.NoError(t, err, "[%02d] test %q", i, tt.desc)
		if want, got := tt.status, resp.Status(); want != got {
			t.Fatalf("[%02d] test %q, unexpected status:\n- want: 0x%x\n-  got: 0x%x", i, tt.desc, want, got)
		}
		if tt.status != scsi.SamStatCheckCondition {
			continue
		}
		s, ok := scsi.ParseSense(resp.Sense())
		require.True(t, ok, "[%02d] test %q", i, tt.desc)
		assert.Equal(t, byte(scsi.SenseIllegalRequest), s.Key, "[%02d] test %q", i, tt.desc)
		assert.Equal(t, byte(tt.asc>>8), s.ASC, "[%02d] test %q", i, tt.desc)
		assert.Empty(t, enc.Sent(), "[%02d] test %q", i, tt.desc)
	}
}

func TestEnclosureInquiry(t *testing.T) {
	enc := NewEnclosure()
	data := make([]byte, 36)
	resp, err := enc.HandleCommand(NewSCSICmd([]byte{scsi.Inquiry, 0, 0, 0, 36, 0}, data))
	require.NoError(t, err)
	require.Equal(t, byte(scsi.SamStatGood), resp.Status())
	assert.Equal(t, byte(scsi.PeripheralEnclosure), data[0])
	assert.Equal(t, byte(0x40), data[6])
	assert.Equal(t, "go-ses  ", string(data[8:16]))

	// allocation length shorter than the inquiry data
	data = make([]byte, 8)
	cmd := NewSCSICmd([]byte{scsi.Inquiry, 0, 0, 0, 8, 0}, data)
	_, err = enc.HandleCommand(cmd)
	require.NoError(t, err)
	assert.Equal(t, 8, cmd.Transferred())
}

func TestEnclosurePages(t *testing.T) {
	tp := newTestPages()
	enc := NewEnclosure(tp.cfg, tp.es)

	// receive diagnostic results stops at the allocation length
	buf := make([]byte, 64)
	cmd := NewSCSICmd(receiveDiagCDB(PageEnclosureStatus, 10), buf)
	resp, err := enc.HandleCommand(cmd)
	require.NoError(t, err)
	require.Equal(t, byte(scsi.SamStatGood), resp.Status())
	assert.Equal(t, 10, cmd.Transferred())
	assert.Equal(t, tp.es[:10], buf[:10])

	buf = make([]byte, 64)
	cmd = NewSCSICmd(receiveDiagCDB(PageSupported, len(buf)), buf)
	_, err = enc.HandleCommand(cmd)
	require.NoError(t, err)
	assert.Equal(t, []byte{PageSupported, 0, 0, 3, 0x00, 0x01, 0x02}, buf[:cmd.Transferred()])

	assert.Equal(t, uint32(testGeneration), enc.Generation())
	enc.BumpGeneration()
	assert.Equal(t, uint32(testGeneration+1), enc.Generation())
	assert.Equal(t, uint32(testGeneration+1), binary.BigEndian.Uint32(enc.Page(PageEnclosureStatus)[4:8]))

	// the stored page is not shared with callers
	p := enc.Page(PageConfiguration)
	p[0] = 0xff
	assert.Equal(t, byte(PageConfiguration), enc.Page(PageConfiguration)[0])
	assert.Nil(t, enc.Page(PageThreshold))
}

func TestEnclosureNickname(t *testing.T) {
	tp := newTestPages()
	enc := NewEnclosure(tp.all()...)

	ctl := make([]byte, pageHeaderLen+32)
	ctl[0] = PageSubencNickname
	binary.BigEndian.PutUint16(ctl[2:4], uint16(len(ctl)-4))
	binary.BigEndian.PutUint32(ctl[4:8], testGeneration)
	copy(ctl[8:], "back")

	resp, err := enc.HandleCommand(NewSCSICmd(sendDiagCDB(len(ctl)), ctl))
	require.NoError(t, err)
	require.Equal(t, byte(scsi.SamStatGood), resp.Status())
	require.Len(t, enc.Sent(), 1)
	assert.Equal(t, "back", trimASCII(enc.Page(PageSubencNickname)[16:48]))
}
