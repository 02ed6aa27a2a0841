package ses

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinRows(t *testing.T) {
	tp := newTestPages()
	j := tp.join(t)

	cfg := tp.config(t)
	require.Len(t, j.Rows, cfg.NumDescriptors())
	assert.False(t, j.Truncated)

	var (
		ti, indiv, eoe, aess, es, aes, dsn []int
	)
	for i := range j.Rows {
		r := &j.Rows[i]
		ti = append(ti, r.TypeIndex)
		indiv = append(indiv, r.Indiv)
		eoe = append(eoe, r.EIEOE)
		aess = append(aess, r.EIAESS)
		es = append(es, r.ESOffset)
		aes = append(aes, r.AESOffset)
		dsn = append(dsn, r.DevSlotNum)
	}
	assert.Equal(t, []int{0, 0, 0, 1, 1, 2, 2}, ti)
	assert.Equal(t, []int{-1, 0, 1, -1, 0, -1, 0}, indiv)
	assert.Equal(t, []int{-1, 0, 1, -1, 2, -1, 3}, eoe)
	assert.Equal(t, []int{-1, 0, 1, -1, -1, -1, -1}, aess)
	assert.Equal(t, []int{8, 12, 16, 20, 24, 28, 32}, es)
	assert.Equal(t, []int{-1, 8, 44, -1, -1, -1, -1}, aes)
	assert.Equal(t, []int{-1, 0, 1, -1, -1, -1, -1}, dsn)

	assert.True(t, j.Rows[1].HasSASAddr)
	assert.Equal(t, [8]byte{0x50, 0x00, 0xc5, 0, 0, 0, 0, 0x01}, j.Rows[1].SASAddr)
	assert.Equal(t, 2, j.AESDescriptors)
	assert.Equal(t, 2, j.EIPCount)
	assert.Equal(t, 0, j.EIIOECount)
	assert.False(t, j.BrokenEI)

	assert.Equal(t, "Slot 01", j.Descriptor(&j.Rows[2]))
	assert.Equal(t, "", j.Descriptor(&j.Rows[0]))
	assert.Equal(t, []byte{0x01, 0x00, 0x3c, 0x00}, j.Status(&j.Rows[6]))
	assert.Equal(t, []byte{0x55, 0x50, 0x0a, 0x05}, j.Threshold(&j.Rows[6]))
	assert.Len(t, j.AESDescriptor(&j.Rows[1]), 36)
	assert.Nil(t, j.AESDescriptor(&j.Rows[4]))
}

func TestJoinWithoutOptionalPages(t *testing.T) {
	tp := newTestPages()
	j, err := BuildJoin(tp.config(t), JoinPages{ES: tp.es}, nil)
	require.NoError(t, err)
	require.Len(t, j.Rows, 7)
	for i, r := range j.Rows {
		assert.Equal(t, -1, r.EDOffset, "row %d", i)
		assert.Equal(t, -1, r.THOffset, "row %d", i)
		assert.Equal(t, -1, r.AESOffset, "row %d", i)
		assert.Nil(t, j.Threshold(&j.Rows[i]))
	}
}

// aesJoin joins the test pages with a replacement Additional Element
// Status page.
func aesJoin(t *testing.T, cfg, es []byte, opts *Options, descs ...[]byte) *Join {
	c, err := ParseConfig(cfg, testLogger())
	require.NoError(t, err)
	if opts == nil {
		o := defaultOptions()
		opts = &o
	}
	aes := page(PageAdditionalStatus, 0, c.Generation, descs...)
	j, err := BuildJoin(c, JoinPages{ES: es, AES: aes}, opts)
	require.NoError(t, err)
	return j
}

func aesOffsets(j *Join) []int {
	var out []int
	for _, r := range j.Rows {
		out = append(out, r.AESOffset)
	}
	return out
}

func TestJoinElementIndexing(t *testing.T) {
	tp := newTestPages()

	// power supply first, so individual indexes of the slots are 1 and 2
	// but their AES-only indexes are 0 and 1
	psFirst := page(PageConfiguration, 0, testGeneration,
		encDescriptor(0, 2, "ACME", "JBOD-2", "0100"),
		[]byte{ETPowerSupply, 1, 0, 0},
		[]byte{ETArrayDevice, 2, 0, 0})
	psFirstES := page(PageEnclosureStatus, 0, testGeneration, make([]byte, 5*4))

	invalid := sasSlotDescriptor(0, 1, 7, 0x5000c50000000009)
	invalid[0] |= 0x80

	areca := func(ei byte) []byte {
		d := sasSlotDescriptor(0, ei, 0, 0)
		d[5] = 0x40
		return d
	}

	noHeuristics := defaultOptions()
	noHeuristics.Heuristics = JoinHeuristics{}
	auto := defaultOptions()
	auto.EIIOE = EIIOEAuto
	force := defaultOptions()
	force.EIIOE = EIIOEForce

	var tests = []struct {
		desc     string
		cfg, es  []byte
		opts     *Options
		descs    [][]byte
		want     []int
		brokenEI bool
	}{
		{
			desc: "EIIOE=1 counts overall elements",
			cfg:  tp.cfg, es: tp.es,
			descs: [][]byte{sasSlotDescriptor(1, 1, 0, 1), sasSlotDescriptor(1, 2, 1, 2)},
			want:  []int{-1, 8, 44, -1, -1, -1, -1},
		},
		{
			desc: "EIIOE=0 without promotion",
			cfg:  tp.cfg, es: tp.es,
			descs: [][]byte{sasSlotDescriptor(0, 1, 0, 1), sasSlotDescriptor(0, 2, 1, 2)},
			want:  []int{-1, -1, 8, -1, -1, -1, -1},
		},
		{
			desc: "auto promotion when the first index is 1",
			cfg:  tp.cfg, es: tp.es, opts: &auto,
			descs: [][]byte{sasSlotDescriptor(0, 1, 0, 1), sasSlotDescriptor(0, 2, 1, 2)},
			want:  []int{-1, 8, 44, -1, -1, -1, -1},
		},
		{
			desc: "auto leaves a first index of 0 alone",
			cfg:  tp.cfg, es: tp.es, opts: &auto,
			descs: [][]byte{sasSlotDescriptor(0, 0, 0, 1), sasSlotDescriptor(0, 1, 1, 2)},
			want:  []int{-1, 8, 44, -1, -1, -1, -1},
		},
		{
			desc: "forced promotion",
			cfg:  tp.cfg, es: tp.es, opts: &force,
			descs: [][]byte{sasSlotDescriptor(0, 2, 1, 2)},
			want:  []int{-1, -1, 8, -1, -1, -1, -1},
		},
		{
			desc: "EIP=0 descriptors bind in order",
			cfg:  tp.cfg, es: tp.es,
			descs: [][]byte{{ProtoSAS, 4, 0, 0, 0, 3}, {ProtoSAS, 4, 0, 0, 0, 4}},
			want:  []int{-1, 8, 14, -1, -1, -1, -1},
		},
		{
			desc: "duplicate binding keeps the first",
			cfg:  tp.cfg, es: tp.es,
			descs: [][]byte{sasSlotDescriptor(0, 0, 0, 1), sasSlotDescriptor(0, 0, 1, 2)},
			want:  []int{-1, 8, -1, -1, -1, -1, -1},
		},
		{
			desc: "index past the last element",
			cfg:  tp.cfg, es: tp.es,
			descs: [][]byte{sasSlotDescriptor(1, 40, 0, 1)},
			want:  []int{-1, -1, -1, -1, -1, -1, -1},
		},
		{
			desc: "index of an overall element",
			cfg:  tp.cfg, es: tp.es,
			descs: [][]byte{sasSlotDescriptor(1, 0, 0, 1)},
			want:  []int{-1, -1, -1, -1, -1, -1, -1},
		},
		{
			desc: "invalid descriptor still binds",
			cfg:  tp.cfg, es: tp.es,
			descs: [][]byte{invalid},
			want:  []int{-1, -1, 8, -1, -1, -1, -1},
		},
		{
			desc: "broken element indexes fall back to AES-only indexing",
			cfg:  psFirst, es: psFirstES,
			descs:    [][]byte{sasSlotDescriptor(0, 0, 0, 1), sasSlotDescriptor(0, 1, 1, 2)},
			want:     []int{-1, -1, -1, 8, 44},
			brokenEI: true,
		},
		{
			desc: "broken element indexes without the heuristic",
			cfg:  psFirst, es: psFirstES, opts: &noHeuristics,
			descs: [][]byte{sasSlotDescriptor(0, 0, 0, 1), sasSlotDescriptor(0, 1, 1, 2)},
			want:  []int{-1, -1, -1, 44, -1},
		},
		{
			desc: "areca descriptors numbered by position",
			cfg:  tp.cfg, es: tp.es,
			descs: [][]byte{areca(0), areca(0)},
			want:  []int{-1, 8, 44, -1, -1, -1, -1},
		},
		{
			desc: "areca descriptors without the heuristic",
			cfg:  tp.cfg, es: tp.es, opts: &noHeuristics,
			descs: [][]byte{areca(0), areca(0)},
			want:  []int{-1, 8, -1, -1, -1, -1, -1},
		},
	}

	for i, tt := range tests {
		j := aesJoin(t, tt.cfg, tt.es, tt.opts, tt.descs...)
		if got := aesOffsets(j); !assert.Equal(t, tt.want, got) {
			t.Fatalf("[%02d] test %q, unexpected AES offsets", i, tt.desc)
		}
		if j.BrokenEI != tt.brokenEI {
			t.Fatalf("[%02d] test %q, unexpected broken EI flag: %v", i, tt.desc, j.BrokenEI)
		}
	}
}

func TestJoinIncludingOverall(t *testing.T) {
	tp := newTestPages()

	// SCSI parallel, EIP=1, EIIOE=1, element index 2
	j := aesJoin(t, tp.cfg, tp.es, nil, []byte{0x11, 2, 0x01, 0x02})
	assert.Equal(t, []int{-1, -1, 8, -1, -1, -1, -1}, aesOffsets(j))
	assert.Equal(t, 0, j.Rows[2].TypeIndex)
	assert.Equal(t, 1, j.Rows[2].Indiv)
	assert.Equal(t, -1, j.Rows[2].DevSlotNum)
}

func TestJoinDeviceSlots(t *testing.T) {
	tp := newTestPages()
	invalid := sasSlotDescriptor(0, 0, 7, 0x5000c50000000009)
	invalid[0] |= 0x80
	j := aesJoin(t, tp.cfg, tp.es, nil, invalid, sasSlotDescriptorNoEIP(0x5000c500000000aa))

	// the EIP=0 descriptor takes the next unbound slot
	assert.Equal(t, -1, j.Rows[1].DevSlotNum)
	assert.False(t, j.Rows[1].HasSASAddr)
	assert.Equal(t, -1, j.Rows[2].DevSlotNum)
	require.True(t, j.Rows[2].HasSASAddr)

	sel, err := ParseSASAddrSelector("5000c500000000aa")
	require.NoError(t, err)
	rows, err := j.Select(sel)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].TypeIndex)
	assert.Equal(t, 1, rows[0].Indiv)
}

func TestJoinTruncated(t *testing.T) {
	cfg := page(PageConfiguration, 0, 1,
		encDescriptor(0, 3, "ACME", "BIG", "1"),
		[]byte{ETDevice, 255, 0, 0},
		[]byte{ETDevice, 255, 0, 0},
		[]byte{ETDevice, 255, 0, 0})
	es := page(PageEnclosureStatus, 0, 1, make([]byte, 768*4))
	c, err := ParseConfig(cfg, testLogger())
	require.NoError(t, err)

	j, err := BuildJoin(c, JoinPages{ES: es}, nil)
	require.NoError(t, err)
	assert.True(t, j.Truncated)
	assert.Len(t, j.Rows, MaxJoinRows)

	sel, err := ParseIndex("2,100")
	require.NoError(t, err)
	_, err = j.Select(sel)
	assert.True(t, errors.Is(err, ErrJoinBounds))
}

func TestJoinErrors(t *testing.T) {
	tp := newTestPages()
	cfg := tp.config(t)

	stale := append([]byte(nil), tp.aes...)
	binary.BigEndian.PutUint32(stale[4:8], 0)

	var tests = []struct {
		desc  string
		pages JoinPages
		err   error
	}{
		{desc: "stale additional element status", pages: JoinPages{ES: tp.es, AES: stale}, err: ErrStateChanged},
		{desc: "short enclosure status", pages: JoinPages{ES: tp.es[:20]}, err: ErrTruncated},
		{desc: "short threshold", pages: JoinPages{ES: tp.es, TH: tp.th[:16]}, err: ErrTruncated},
		{desc: "no enclosure status", pages: JoinPages{}, err: ErrTruncated},
	}

	for i, tt := range tests {
		_, err := BuildJoin(cfg, tt.pages, nil)
		if !errors.Is(err, tt.err) {
			t.Fatalf("[%02d] test %q, unexpected error: %v != %v", i, tt.desc, tt.err, err)
		}
	}
}

func TestJoinDumpAndRender(t *testing.T) {
	tp := newTestPages()
	j := tp.join(t)

	var buf bytes.Buffer
	require.NoError(t, j.Dump(&buf))
	assert.Contains(t, buf.String(), "  1: th=0 indiv=0 etype=0x17 se_id=0 ei_eoe=0 ei_aess=0 es_off=12")
	assert.Contains(t, buf.String(), "sas_addr=0x5000c50000000001")
	assert.Contains(t, buf.String(), "rows=7 ")

	var rows []*JoinRow
	for i := range j.Rows {
		rows = append(rows, &j.Rows[i])
	}
	buf.Reset()
	require.NoError(t, j.Render(&buf, rows, &Options{}))
	out := buf.String()
	assert.Contains(t, out, "<empty> [0,-1]  Element type: Array device slot")
	assert.Contains(t, out, "Slot 01 [0,1]  Element type: Array device slot")
	assert.Contains(t, out, "Temp 0 [2,0]  Element type: Temperature sensor")
	assert.Contains(t, out, "high critical=65 C")
	assert.Contains(t, out, "SAS address: 0x5000c50000000001")

	buf.Reset()
	require.NoError(t, j.Render(&buf, rows, &Options{Filter: 2}))
	assert.NotContains(t, buf.String(), "Slot 01")
	assert.Contains(t, buf.String(), "Slot 00")
}
