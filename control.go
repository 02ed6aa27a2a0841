package ses

import (
	"encoding/binary"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// MaxControlOps is the largest batch Control accepts.
const MaxControlOps = 8

// OpKind is the action of a control operation.
type OpKind int

const (
	OpGet OpKind = iota
	OpClear
	OpSet
)

func (k OpKind) String() string {
	switch k {
	case OpClear:
		return "clear"
	case OpSet:
		return "set"
	}
	return "get"
}

// ControlOp reads or writes one field of each selected element.
type ControlOp struct {
	Kind  OpKind
	Field Field
}

// ParseControlOp parses a field expression for kind. A set without a
// value sets the field to 1; clear always writes 0.
func ParseControlOp(kind OpKind, s string) (ControlOp, error) {
	f, err := ParseField(s)
	if err != nil {
		return ControlOp{}, err
	}
	switch kind {
	case OpSet:
		if !f.HasValue {
			f.HasValue, f.Value = true, 1
		}
	case OpClear:
		f.HasValue, f.Value, f.AllOnes = true, 0, false
	}
	return ControlOp{Kind: kind, Field: f}, nil
}

// Result is the value a get read from one element.
type Result struct {
	Row   *JoinRow
	Op    ControlOp
	Value uint64
}

// controlPage returns whether page takes clear and set, and the error
// when it does not hold fields at all.
func controlPage(page byte) (bool, error) {
	switch page {
	case PageEnclosureStatus, PageThreshold:
		return true, nil
	case PageAdditionalStatus:
		return false, nil
	}
	return false, errors.Wrapf(ErrConstraint, "%s page has no fields", PageName(page))
}

// Control applies a batch of operations to the elements sel picks on page
// (Enclosure Status, Threshold In or Additional Element Status). Every
// operation is checked against every element first; if anything is wrong
// nothing is sent. Gets read the fetched status. Clears and sets modify
// the fetched status page, which is then sent once as the control page.
func (e *Engine) Control(page byte, sel *Selector, ops []ControlOp) ([]Result, error) {
	writable, err := controlPage(page)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 || len(ops) > MaxControlOps {
		return nil, errors.Wrapf(ErrConstraint, "%d operations, want 1..%d", len(ops), MaxControlOps)
	}
	if sel == nil {
		return nil, errors.Wrap(ErrConstraint, "control needs an element selector")
	}
	var merr *multierror.Error
	writes := false
	for _, op := range ops {
		if op.Kind == OpGet {
			continue
		}
		writes = true
		if !writable {
			merr = multierror.Append(merr, errors.Wrapf(ErrConstraint, "%s %s: %s page is read only",
				op.Kind, op.Field, PageName(page)))
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	j, err := e.Join(page == PageThreshold)
	if err != nil {
		return nil, err
	}
	var pageBuf []byte
	switch page {
	case PageEnclosureStatus:
		pageBuf = j.Pages.ES
	case PageThreshold:
		if j.Pages.TH == nil {
			return nil, errors.Wrap(ErrLookupMiss, "enclosure has no threshold page")
		}
		pageBuf = j.Pages.TH
	case PageAdditionalStatus:
		if j.Pages.AES == nil {
			return nil, errors.Wrap(ErrLookupMiss, "enclosure has no additional element status page")
		}
		pageBuf = j.Pages.AES
	}
	rows, err := j.Select(*sel)
	if err != nil {
		return nil, err
	}

	// resolve every field against every element before touching anything
	type step struct {
		row  *JoinRow
		desc []byte
		op   ControlOp
	}
	var steps []step
	for _, r := range rows {
		desc := e.descriptorFor(j, page, r)
		for _, op := range ops {
			if desc == nil {
				merr = multierror.Append(merr, errors.Wrapf(ErrLookupMiss, "element [%d,%d] has no %s descriptor",
					r.TypeIndex, r.Indiv, PageName(page)))
				break
			}
			f := op.Field
			if err := f.Resolve(page, r.ElementType); err != nil {
				merr = multierror.Append(merr, err)
				continue
			}
			if err := checkBitRange(desc, f.StartByte, f.StartBit, f.NumBits); err != nil {
				merr = multierror.Append(merr, errors.Wrapf(err, "%s", f))
				continue
			}
			if err := e.checkReserved(page, r, op.Kind, f); err != nil {
				merr = multierror.Append(merr, err)
				continue
			}
			steps = append(steps, step{row: r, desc: desc, op: ControlOp{Kind: op.Kind, Field: f}})
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	// gets read the status as fetched, whatever the batch writes
	var results []Result
	for _, s := range steps {
		if f := s.op.Field; s.op.Kind == OpGet {
			v, _ := GetBits(s.desc, f.StartByte, f.StartBit, f.NumBits)
			results = append(results, Result{Row: s.row, Op: s.op, Value: v})
		}
	}
	masked := make(map[*JoinRow]bool)
	for _, s := range steps {
		f := s.op.Field
		if s.op.Kind == OpGet {
			continue
		}
		if page == PageEnclosureStatus && !masked[s.row] {
			if !e.opts.MaskIgnore {
				m := ControlMask(s.row.ElementType)
				for i := range m {
					s.desc[i] &= m[i]
				}
			}
			masked[s.row] = true
		}
		SetBits(s.desc, f.StartByte, f.StartBit, f.NumBits, f.Bits())
		if page == PageEnclosureStatus {
			s.desc[0] |= 0x80
		}
	}
	if !writes {
		return results, nil
	}

	pageBuf[1] = e.opts.Byte1
	binary.BigEndian.PutUint16(pageBuf[2:4], uint16(len(pageBuf)-4))
	e.opts.Logger.Debugf("send diagnostic: page 0x%x, %d bytes", page, len(pageBuf))
	if err := e.t.SendDiag(pageBuf); err != nil {
		return results, err
	}
	// the status page buffer now holds control data
	e.join = nil
	return results, nil
}

func (e *Engine) descriptorFor(j *Join, page byte, r *JoinRow) []byte {
	switch page {
	case PageEnclosureStatus:
		return j.Status(r)
	case PageThreshold:
		return j.Threshold(r)
	case PageAdditionalStatus:
		return j.AESDescriptor(r)
	}
	return nil
}

// checkReserved refuses, with Warn set, to write 0 into a temperature
// threshold, where it is a reserved value.
func (e *Engine) checkReserved(page byte, r *JoinRow, kind OpKind, f Field) error {
	if !e.opts.Warn || kind == OpGet || page != PageThreshold || r.ElementType != ETTemperature {
		return nil
	}
	if f.NumBits == 8 && f.StartBit == 7 && f.Bits() == 0 {
		return errors.Wrapf(ErrConstraint, "%s=0 is a reserved temperature threshold", f)
	}
	return nil
}

// Get reads one field of every element sel picks.
func (e *Engine) Get(page byte, sel *Selector, field string) ([]Result, error) {
	op, err := ParseControlOp(OpGet, field)
	if err != nil {
		return nil, err
	}
	return e.Control(page, sel, []ControlOp{op})
}

// SetNickname sets the nickname of subenclosure id. The nickname is at
// most 32 bytes.
func (e *Engine) SetNickname(id byte, nickname string) error {
	if len(nickname) > 32 {
		return errors.Wrapf(ErrConstraint, "nickname of %d bytes, at most 32", len(nickname))
	}
	cfg, err := e.config()
	if err != nil {
		return err
	}
	found := false
	for _, se := range cfg.SubEnclosures {
		if se.ID == id {
			found = true
		}
	}
	if !found {
		return errors.Wrapf(ErrLookupMiss, "subenclosure %d", id)
	}
	st, err := e.Fetch(PageSubencNickname)
	if err != nil {
		return err
	}
	if len(st) < pageHeaderLen {
		return errors.Wrap(ErrTruncated, "subenclosure nickname page")
	}
	b := make([]byte, pageHeaderLen+32)
	b[0] = PageSubencNickname
	b[1] = id
	binary.BigEndian.PutUint16(b[2:4], uint16(len(b)-4))
	copy(b[4:8], st[4:8])
	copy(b[8:], nickname)
	e.opts.Logger.Debugf("send diagnostic: nickname %q for subenclosure %d", nickname, id)
	return e.t.SendDiag(b)
}
