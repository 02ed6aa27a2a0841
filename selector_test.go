package ses

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndex(t *testing.T) {
	var tests = []struct {
		desc string
		s    string
		want Selector
		err  error
	}{
		{
			desc: "type header index and element",
			s:    "0,1",
			want: Selector{Kind: SelectIndex, TypeIndex: 0, Lo: 1, Hi: 1, text: "0,1"},
		},
		{
			desc: "overall element",
			s:    "2,-1",
			want: Selector{Kind: SelectIndex, TypeIndex: 2, Lo: -1, Hi: -1, text: "2,-1"},
		},
		{
			desc: "range",
			s:    "0,0-1",
			want: Selector{Kind: SelectIndex, TypeIndex: 0, Lo: 0, Hi: 1, text: "0,0-1"},
		},
		{
			desc: "abbreviation with instance",
			s:    "ps1,0",
			want: Selector{Kind: SelectIndex, TypeIndex: -1, ByType: true, ElementType: ETPowerSupply, Instance: 1, Lo: 0, Hi: 0, text: "ps1,0"},
		},
		{
			desc: "lone abbreviation",
			s:    "arr",
			want: Selector{Kind: SelectIndex, TypeIndex: -1, ByType: true, ElementType: ETArrayDevice, Lo: 0, Hi: maxIndiv - 1, text: "arr"},
		},
		{
			desc: "lone element index",
			s:    "3",
			want: Selector{Kind: SelectIndividual, TypeIndex: -1, Lo: 3, Hi: 3, text: "3"},
		},
		{desc: "descending range", s: "0,5-2", err: ErrConstraint},
		{desc: "missing element index", s: "0,", err: ErrConstraint},
		{desc: "type header index too big", s: "256,0", err: ErrConstraint},
		{desc: "element index too big", s: "0,256", err: ErrConstraint},
		{desc: "unknown abbreviation", s: "zz,0", err: ErrLookupMiss},
		{desc: "lone overall element", s: "-1", err: ErrConstraint},
	}

	for i, tt := range tests {
		sel, err := ParseIndex(tt.s)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Fatalf("[%02d] test %q, unexpected error: %v != %v", i, tt.desc, tt.err, err)
			}
			continue
		}
		require.NoError(t, err, "[%02d] test %q", i, tt.desc)
		assert.Equal(t, tt.want, sel, "[%02d] test %q", i, tt.desc)
	}
}

func TestParseSASAddrSelector(t *testing.T) {
	sel, err := ParseSASAddrSelector("0x5000c50000000001")
	require.NoError(t, err)
	assert.Equal(t, [8]byte{0x50, 0, 0xc5, 0, 0, 0, 0, 1}, sel.SASAddr)

	sel, err = ParseSASAddrSelector("1fh")
	require.NoError(t, err)
	assert.Equal(t, [8]byte{0, 0, 0, 0, 0, 0, 0, 0x1f}, sel.SASAddr)

	for _, s := range []string{"0", "0x5000c5000000000100", "xyz"} {
		_, err := ParseSASAddrSelector(s)
		assert.True(t, errors.Is(err, ErrConstraint), s)
	}
}

func TestSelect(t *testing.T) {
	tp := newTestPages()
	j := tp.join(t)

	index := func(s string) Selector {
		sel, err := ParseIndex(s)
		require.NoError(t, err, s)
		return sel
	}
	dsn := func(n int) Selector {
		sel, err := DevSlotSelector(n)
		require.NoError(t, err)
		return sel
	}
	sas := func(s string) Selector {
		sel, err := ParseSASAddrSelector(s)
		require.NoError(t, err)
		return sel
	}

	var tests = []struct {
		desc string
		sel  Selector
		want []int
		err  error
	}{
		{desc: "element of a type header", sel: index("0,1"), want: []int{2}},
		{desc: "overall element", sel: index("ts,-1"), want: []int{5}},
		{desc: "range", sel: index("0,0-1"), want: []int{1, 2}},
		{desc: "range clipped to the elements present", sel: index("0,1-9"), want: []int{2}},
		{desc: "every element of a type", sel: index("arr"), want: []int{1, 2}},
		{desc: "individual element over all types", sel: index("2"), want: []int{4}},
		{desc: "descriptor text", sel: DescriptorSelector("PSU A"), want: []int{4}},
		{desc: "device slot", sel: dsn(1), want: []int{2}},
		{desc: "SAS address", sel: sas("5000c50000000001"), want: []int{1}},
		{desc: "no such type header", sel: index("7,0"), err: ErrLookupMiss},
		{desc: "no second power supply type", sel: index("ps1,0"), err: ErrLookupMiss},
		{desc: "no such element", sel: index("1,3"), err: ErrLookupMiss},
		{desc: "no such descriptor", sel: DescriptorSelector("Slot 99"), err: ErrLookupMiss},
		{desc: "no such device slot", sel: dsn(42), err: ErrLookupMiss},
	}

	for i, tt := range tests {
		rows, err := j.Select(tt.sel)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Fatalf("[%02d] test %q, unexpected error: %v != %v", i, tt.desc, tt.err, err)
			}
			continue
		}
		require.NoError(t, err, "[%02d] test %q", i, tt.desc)
		var got []int
		for _, r := range rows {
			for k := range j.Rows {
				if r == &j.Rows[k] {
					got = append(got, k)
				}
			}
		}
		assert.Equal(t, tt.want, got, "[%02d] test %q", i, tt.desc)
	}

	_, err := DevSlotSelector(256)
	assert.True(t, errors.Is(err, ErrConstraint))
}
