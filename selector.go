package ses

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SelectorKind says how a Selector picks elements.
type SelectorKind int

const (
	// SelectIndex picks by type header index and element index.
	SelectIndex SelectorKind = iota
	// SelectIndividual picks by index over all individual elements.
	SelectIndividual
	// SelectDescriptor picks by element descriptor text.
	SelectDescriptor
	// SelectDevSlot picks by device slot number.
	SelectDevSlot
	// SelectSASAddr picks by SAS address.
	SelectSASAddr
)

// maxIndiv is one more than the largest element index a type can have.
const maxIndiv = 256

// Selector picks join rows.
type Selector struct {
	Kind SelectorKind

	// TypeIndex is the type header index; -1 until resolved from
	// ElementType and Instance.
	TypeIndex   int
	ByType      bool
	ElementType byte
	Instance    int
	// Lo and Hi bound the element index, inclusive. Lo == -1 selects the
	// overall element.
	Lo, Hi int

	Descriptor string
	DevSlot    int
	SASAddr    [8]byte

	text string
}

func (s Selector) String() string {
	return s.text
}

// ParseIndex parses "TIA,II" or "II". TIA is a type header index or an
// element type abbreviation with an optional instance number ("ps1" is
// the second power supply type header). II is an element index, "-1" for
// the overall element, or an ascending range "lo-hi". A lone abbreviation
// selects every individual element of that type; a lone II counts
// individual elements over all types.
func ParseIndex(s string) (Selector, error) {
	sel := Selector{Kind: SelectIndex, TypeIndex: -1, text: s}
	tia, ii := s, ""
	if i := strings.IndexByte(s, ','); i >= 0 {
		tia, ii = s[:i], s[i+1:]
		if ii == "" {
			return sel, errors.Wrapf(ErrConstraint, "index %q: missing element index", s)
		}
	} else if isIndexNumber(s) {
		sel.Kind = SelectIndividual
		tia, ii = "", s
	}

	if tia != "" {
		if err := sel.parseTIA(tia); err != nil {
			return sel, errors.Wrapf(err, "index %q", s)
		}
	}
	if ii == "" {
		sel.Lo, sel.Hi = 0, maxIndiv-1
		return sel, nil
	}
	if err := sel.parseII(ii); err != nil {
		return sel, errors.Wrapf(err, "index %q", s)
	}
	if sel.Kind == SelectIndividual && sel.Lo < 0 {
		return sel, errors.Wrapf(ErrConstraint, "index %q: overall element needs a type", s)
	}
	return sel, nil
}

func isIndexNumber(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == '-' || (s[0] >= '0' && s[0] <= '9')
}

func (sel *Selector) parseTIA(tia string) error {
	if n, err := strconv.Atoi(tia); err == nil {
		if n < 0 || n > 255 {
			return errors.Wrapf(ErrConstraint, "type header index %d not in 0..255", n)
		}
		sel.TypeIndex = n
		return nil
	}
	i := len(tia)
	for i > 0 && tia[i-1] >= '0' && tia[i-1] <= '9' {
		i--
	}
	et, ok := ElementTypeByAbbrev(tia[:i])
	if !ok {
		return errors.Wrapf(ErrLookupMiss, "element type %q", tia[:i])
	}
	sel.ByType = true
	sel.ElementType = et
	if i < len(tia) {
		sel.Instance, _ = strconv.Atoi(tia[i:])
	}
	return nil
}

func (sel *Selector) parseII(ii string) error {
	if ii == "-1" {
		sel.Lo, sel.Hi = -1, -1
		return nil
	}
	lo, hi := ii, ii
	if i := strings.IndexByte(ii, '-'); i > 0 {
		lo, hi = ii[:i], ii[i+1:]
	}
	var err error
	if sel.Lo, err = strconv.Atoi(lo); err != nil || sel.Lo < 0 || sel.Lo >= maxIndiv {
		return errors.Wrapf(ErrConstraint, "element index %q", lo)
	}
	if sel.Hi, err = strconv.Atoi(hi); err != nil || sel.Hi < 0 || sel.Hi >= maxIndiv {
		return errors.Wrapf(ErrConstraint, "element index %q", hi)
	}
	if sel.Hi < sel.Lo {
		return errors.Wrapf(ErrConstraint, "element index range %q is descending", ii)
	}
	return nil
}

// DescriptorSelector picks the element whose descriptor text is name.
func DescriptorSelector(name string) Selector {
	return Selector{Kind: SelectDescriptor, Descriptor: name, TypeIndex: -1, text: "descriptor " + strconv.Quote(name)}
}

// DevSlotSelector picks elements by device slot number.
func DevSlotSelector(dsn int) (Selector, error) {
	sel := Selector{Kind: SelectDevSlot, DevSlot: dsn, TypeIndex: -1, text: fmt.Sprintf("device slot %d", dsn)}
	if dsn < 0 || dsn > 255 {
		return sel, errors.Wrapf(ErrConstraint, "device slot number %d not in 0..255", dsn)
	}
	return sel, nil
}

// ParseSASAddrSelector picks elements by SAS address given in hex, with
// or without a 0x prefix or trailing 'h'.
func ParseSASAddrSelector(s string) (Selector, error) {
	sel := Selector{Kind: SelectSASAddr, TypeIndex: -1, text: "SAS address " + s}
	h := strings.TrimSuffix(strings.TrimPrefix(strings.ToLower(s), "0x"), "h")
	if len(h) > 16 {
		return sel, errors.Wrapf(ErrConstraint, "SAS address %q longer than 8 bytes", s)
	}
	h = strings.Repeat("0", 16-len(h)) + h
	b, err := hex.DecodeString(h)
	if err != nil {
		return sel, errors.Wrapf(ErrConstraint, "SAS address %q", s)
	}
	copy(sel.SASAddr[:], b)
	if allZero(sel.SASAddr[:]) {
		return sel, errors.Wrapf(ErrConstraint, "SAS address %q is zero", s)
	}
	return sel, nil
}

func (sel *Selector) resolve(cfg *ConfigPage) error {
	if sel.Kind != SelectIndex {
		return nil
	}
	if sel.ByType {
		ti, ok := cfg.TypeHeaderIndex(sel.ElementType, sel.Instance)
		if !ok {
			return errors.Wrapf(ErrLookupMiss, "no type header %d of %s elements", sel.Instance,
				ElementTypeName(sel.ElementType))
		}
		sel.TypeIndex = ti
	}
	if sel.TypeIndex >= len(cfg.TypeHeaders) {
		return errors.Wrapf(ErrLookupMiss, "type header index %d, only %d", sel.TypeIndex, len(cfg.TypeHeaders))
	}
	return nil
}

func (sel *Selector) match(j *Join, r *JoinRow) bool {
	switch sel.Kind {
	case SelectIndex:
		if r.TypeIndex != sel.TypeIndex {
			return false
		}
		if sel.Lo < 0 {
			return r.Overall()
		}
		return !r.Overall() && r.Indiv >= sel.Lo && r.Indiv <= sel.Hi
	case SelectIndividual:
		return !r.Overall() && r.EIEOE >= sel.Lo && r.EIEOE <= sel.Hi
	case SelectDescriptor:
		return r.EDOffset >= 0 && j.Descriptor(r) == sel.Descriptor
	case SelectDevSlot:
		return r.DevSlotNum == sel.DevSlot
	case SelectSASAddr:
		return r.HasSASAddr && r.SASAddr == sel.SASAddr
	}
	return false
}

// Select returns the rows sel picks, in row order.
func (j *Join) Select(sel Selector) ([]*JoinRow, error) {
	if err := sel.resolve(j.Config); err != nil {
		return nil, err
	}
	var rows []*JoinRow
	for i := range j.Rows {
		if sel.match(j, &j.Rows[i]) {
			rows = append(rows, &j.Rows[i])
		}
	}
	if len(rows) == 0 && j.Truncated {
		return nil, errors.Wrapf(ErrJoinBounds, "no element matches %s within the first %d", sel, MaxJoinRows)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(ErrLookupMiss, "no element matches %s", sel)
	}
	return rows, nil
}
