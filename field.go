package ses

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	maxFieldByte = 127
	maxFieldBits = 64
)

// Field is a parsed field expression: either an acronym or an explicit
// start byte, start bit and bit count, with an optional value.
type Field struct {
	// Acronym is empty for the numeric form.
	Acronym   string
	StartByte int
	StartBit  int
	NumBits   int

	HasValue bool
	Value    uint64
	// AllOnes is set when the value was given as -1.
	AllOnes bool
}

// ParseField parses "acronym[=value]" or "byte:bit[:nbits][=value]".
// Acronyms are resolved later, against the page and element type they
// are applied to.
func ParseField(s string) (Field, error) {
	var f Field
	expr := s
	if i := strings.IndexByte(s, '='); i >= 0 {
		expr = s[:i]
		if err := f.parseValue(s[i+1:]); err != nil {
			return f, errors.Wrapf(err, "field %q", s)
		}
	}
	if expr == "" {
		return f, errors.Wrapf(ErrConstraint, "empty field in %q", s)
	}
	c := expr[0]
	if c < '0' || c > '9' {
		f.Acronym = expr
		return f, nil
	}

	parts := strings.Split(expr, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return f, errors.Wrapf(ErrConstraint, "expected byte:bit[:nbits], got %q", expr)
	}
	var err error
	if f.StartByte, err = strconv.Atoi(parts[0]); err != nil || f.StartByte < 0 || f.StartByte > maxFieldByte {
		return f, errors.Wrapf(ErrConstraint, "start byte %q not in 0..%d", parts[0], maxFieldByte)
	}
	if f.StartBit, err = strconv.Atoi(parts[1]); err != nil || f.StartBit < 0 || f.StartBit > 7 {
		return f, errors.Wrapf(ErrConstraint, "start bit %q not in 0..7", parts[1])
	}
	f.NumBits = 1
	if len(parts) == 3 {
		if f.NumBits, err = strconv.Atoi(parts[2]); err != nil || f.NumBits < 1 || f.NumBits > maxFieldBits {
			return f, errors.Wrapf(ErrConstraint, "number of bits %q not in 1..%d", parts[2], maxFieldBits)
		}
	}
	return f, nil
}

func (f *Field) parseValue(s string) error {
	f.HasValue = true
	if s == "-1" {
		f.AllOnes = true
		return nil
	}
	var (
		v   uint64
		err error
	)
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 64)
	case strings.HasSuffix(s, "h") || strings.HasSuffix(s, "H"):
		v, err = strconv.ParseUint(s[:len(s)-1], 16, 64)
	default:
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return errors.Wrapf(ErrConstraint, "bad value %q", s)
	}
	f.Value = v
	return nil
}

// Resolve fills in the bit range of an acronym field from the acronym
// table of page, preferring an entry for etype over a wildcard entry.
// A numeric field is returned unchanged.
func (f *Field) Resolve(page byte, etype byte) error {
	if f.Acronym == "" {
		return nil
	}
	a, err := FindAcronym(f.Acronym, page, etype)
	if err != nil {
		return err
	}
	f.StartByte, f.StartBit, f.NumBits = a.StartByte, a.StartBit, a.NumBits
	return nil
}

// Bits returns the value to deposit, truncated to the field width.
func (f Field) Bits() uint64 {
	if f.AllOnes {
		return widthMask(f.NumBits)
	}
	return f.Value & widthMask(f.NumBits)
}

func (f Field) String() string {
	if f.Acronym != "" {
		return f.Acronym
	}
	return strconv.Itoa(f.StartByte) + ":" + strconv.Itoa(f.StartBit) + ":" + strconv.Itoa(f.NumBits)
}

// FindAcronym looks an acronym up in the table serving page. An entry for
// etype wins over a wildcard entry. If the name is only known to another
// page's table the error wraps ErrInconsistent, otherwise ErrLookupMiss.
func FindAcronym(name string, page byte, etype byte) (Acronym, error) {
	var wild *Acronym
	tbl := acronymTable(page)
	for i := range tbl {
		a := &tbl[i]
		if a.Name != name {
			continue
		}
		if a.ElementType == int(etype) {
			return *a, nil
		}
		if a.ElementType == AllElementTypes && wild == nil {
			wild = a
		}
	}
	if wild != nil {
		return *wild, nil
	}
	if owner, ok := AcronymPage(name); ok && owner != page {
		return Acronym{}, errors.Wrapf(ErrInconsistent, "acronym %q belongs to the %s page, not %s",
			name, PageName(owner), PageName(page))
	}
	return Acronym{}, errors.Wrapf(ErrLookupMiss, "acronym %q for %s elements", name, ElementTypeName(etype))
}

// AcronymPage returns the page whose acronym table holds name.
func AcronymPage(name string) (byte, bool) {
	for _, page := range []byte{PageEnclosureStatus, PageThreshold, PageAdditionalStatus} {
		for _, a := range acronymTable(page) {
			if a.Name == name {
				return page, true
			}
		}
	}
	return 0, false
}

func widthMask(nbits int) uint64 {
	if nbits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(nbits)) - 1
}

func checkBitRange(b []byte, sbyte, sbit, nbits int) error {
	if sbyte < 0 || sbit < 0 || sbit > 7 || nbits < 1 || nbits > maxFieldBits {
		return errors.Wrapf(ErrConstraint, "bad bit range %d:%d:%d", sbyte, sbit, nbits)
	}
	last := sbyte*8 + (7 - sbit) + nbits - 1
	if last/8 >= len(b) {
		return errors.Wrapf(ErrConstraint, "bit range %d:%d:%d runs past %d byte descriptor",
			sbyte, sbit, nbits, len(b))
	}
	return nil
}

// GetBits reads nbits bits MSB first, starting at bit sbit of byte sbyte;
// bit 7 is the leftmost bit of a byte.
func GetBits(b []byte, sbyte, sbit, nbits int) (uint64, error) {
	if err := checkBitRange(b, sbyte, sbit, nbits); err != nil {
		return 0, err
	}
	var v uint64
	pos := sbyte*8 + (7 - sbit)
	for i := 0; i < nbits; i++ {
		p := pos + i
		v = v<<1 | uint64(b[p/8]>>uint(7-p%8)&1)
	}
	return v, nil
}

// SetBits deposits the low nbits bits of v at the position GetBits reads.
func SetBits(b []byte, sbyte, sbit, nbits int, v uint64) error {
	if err := checkBitRange(b, sbyte, sbit, nbits); err != nil {
		return err
	}
	pos := sbyte*8 + (7 - sbit)
	for i := 0; i < nbits; i++ {
		p := pos + i
		mask := byte(1) << uint(7-p%8)
		if v>>uint(nbits-1-i)&1 != 0 {
			b[p/8] |= mask
		} else {
			b[p/8] &^= mask
		}
	}
	return nil
}
