package ses

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MaxJoinRows bounds the number of rows in a join.
const MaxJoinRows = 520

// JoinRow relates one element across the Enclosure Status, Element
// Descriptor, Threshold In and Additional Element Status pages. Offsets
// index the page windows held by the Join; -1 means the page has no entry
// for the element.
type JoinRow struct {
	// TypeIndex is the position of the element's type header.
	TypeIndex int
	// Indiv is the element's index within its type, -1 for the overall element.
	Indiv          int
	ElementType    byte
	SubEnclosureID byte

	// EIEOE is the element index over individual elements only.
	EIEOE int
	// EIAESS is the element index over individual elements of types that
	// have Additional Element Status descriptors.
	EIAESS int

	ESOffset  int
	EDOffset  int
	THOffset  int
	AESOffset int

	DevSlotNum int
	SASAddr    [8]byte
	HasSASAddr bool
}

// Overall reports whether the row is a type's overall element.
func (r *JoinRow) Overall() bool {
	return r.Indiv < 0
}

// JoinPages are the page windows a join is built from. ES is required.
type JoinPages struct {
	ES  []byte
	ED  []byte
	TH  []byte
	AES []byte
}

// Join is the per element view of an enclosure. Rows are in Enclosure
// Status order, so a row's position is its index over all elements
// (overall elements included). A Join refers into the page buffers it was
// built from and must not outlive their contents.
type Join struct {
	Config *ConfigPage
	Pages  JoinPages
	Rows   []JoinRow

	// Truncated is set when the configuration describes more than
	// MaxJoinRows elements.
	Truncated bool

	// AESDescriptors counts the descriptors walked, EIPCount those with
	// EIP set and EIIOECount those with a non-zero EIIOE field.
	AESDescriptors int
	EIPCount       int
	EIIOECount     int
	// BrokenEI is set once element indexes were re-matched against the
	// AES-only index space.
	BrokenEI bool
}

// BuildJoin relates the pages to the type headers of cfg.
func BuildJoin(cfg *ConfigPage, pages JoinPages, opts *Options) (*Join, error) {
	if opts == nil {
		o := defaultOptions()
		opts = &o
	}
	if cfg == nil {
		return nil, errors.Wrap(ErrConstraint, "join needs the configuration page")
	}
	j := &Join{Config: cfg}
	var err error
	if j.Pages.ES, err = elementPage(pages.ES, cfg); err != nil {
		return nil, errors.Wrap(err, "join: enclosure status")
	}
	if pages.ED != nil {
		if j.Pages.ED, err = elementPage(pages.ED, cfg); err != nil {
			return nil, errors.Wrap(err, "join: element descriptor")
		}
	}
	if pages.TH != nil {
		if j.Pages.TH, err = elementPage(pages.TH, cfg); err != nil {
			return nil, errors.Wrap(err, "join: threshold")
		}
	}
	if pages.AES != nil {
		if j.Pages.AES, err = elementPage(pages.AES, cfg); err != nil {
			return nil, errors.Wrap(err, "join: additional element status")
		}
	}
	if err := j.skeleton(opts); err != nil {
		return nil, err
	}
	if j.Pages.AES != nil {
		j.attachAES(opts)
	}
	return j, nil
}

// skeleton emits an overall row and then the individual rows for each
// type header, advancing a cursor into each page.
func (j *Join) skeleton(opts *Options) error {
	esOff, edOff, thOff := pageHeaderLen, pageHeaderLen, pageHeaderLen
	eoe, aess := 0, 0
	for ti, th := range j.Config.TypeHeaders {
		aesType := IsElementTypeUsedByAES(th.ElementType)
		for indiv := -1; indiv < int(th.NumElements); indiv++ {
			if len(j.Rows) == MaxJoinRows {
				opts.Logger.Warnf("join: more than %d elements, ignoring the rest", MaxJoinRows)
				j.Truncated = true
				return nil
			}
			r := JoinRow{
				TypeIndex:      ti,
				Indiv:          indiv,
				ElementType:    th.ElementType,
				SubEnclosureID: th.SubEnclosureID,
				EIEOE:          -1,
				EIAESS:         -1,
				EDOffset:       -1,
				THOffset:       -1,
				AESOffset:      -1,
				DevSlotNum:     -1,
			}
			if esOff+4 > len(j.Pages.ES) {
				return errors.Wrapf(ErrTruncated, "join: enclosure status page ends at element %d", len(j.Rows))
			}
			r.ESOffset = esOff
			esOff += 4
			if j.Pages.ED != nil {
				_, next, err := elementDescriptorText(j.Pages.ED, edOff)
				if err != nil {
					return errors.Wrap(err, "join: element descriptor")
				}
				r.EDOffset = edOff
				edOff = next
			}
			if j.Pages.TH != nil {
				if thOff+4 > len(j.Pages.TH) {
					return errors.Wrapf(ErrTruncated, "join: threshold page ends at element %d", len(j.Rows))
				}
				r.THOffset = thOff
				thOff += 4
			}
			if indiv >= 0 {
				r.EIEOE = eoe
				eoe++
				if aesType {
					r.EIAESS = aess
					aess++
				}
			}
			j.Rows = append(j.Rows, r)
		}
	}
	return nil
}

func (j *Join) findRow(match func(r *JoinRow) bool) int {
	for i := range j.Rows {
		if match(&j.Rows[i]) {
			return i
		}
	}
	return -1
}

func (j *Join) rowByEOE(ei int) int {
	return j.findRow(func(r *JoinRow) bool { return r.EIEOE == ei })
}

func (j *Join) rowByAESS(ei int) int {
	return j.findRow(func(r *JoinRow) bool { return r.EIAESS == ei })
}

func (j *Join) aesValid(i int) bool {
	return i >= 0 && !j.Rows[i].Overall() && IsElementTypeUsedByAES(j.Rows[i].ElementType)
}

// attachAES binds each Additional Element Status descriptor to a row.
func (j *Join) attachAES(opts *Options) {
	logger := opts.Logger
	descs := walkAES(j.Pages.AES, logger)
	j.AESDescriptors = len(descs)
	force := opts.EIIOE == EIIOEForce
	cursor := 0
	for k, d := range descs {
		idx := -1
		if !d.eip {
			for ; cursor < len(j.Rows); cursor++ {
				if j.aesValid(cursor) && j.Rows[cursor].AESOffset < 0 {
					idx = cursor
					cursor++
					break
				}
			}
		} else {
			j.EIPCount++
			eiioe, ei := d.eiioe, d.ei
			if eiioe != 0 {
				j.EIIOECount++
			}
			if eiioe == 0 && opts.EIIOE == EIIOEAuto && k == 0 && ei == 1 {
				logger.Debugf("join: first AES descriptor has EIIOE=0 and index 1, treating EIIOE as 1")
				force = true
			}
			if eiioe == 0 && force {
				eiioe = 1
			}
			if opts.Heuristics.Areca && d.proto == ProtoSAS && eiioe == 0 && ei == 0 &&
				len(d.b) > 5 && d.b[5]>>6 == 1 {
				ei = k
			}
			switch eiioe {
			case 1, 3:
				if ei < len(j.Rows) {
					idx = ei
				}
			case 0:
				if j.BrokenEI {
					idx = j.rowByAESS(ei)
					break
				}
				idx = j.rowByEOE(ei)
				if opts.Heuristics.BrokenEI && !j.aesValid(idx) {
					if alt := j.rowByAESS(ei); alt >= 0 {
						logger.Warnf("join: AES element index %d lands on a %s element, "+
							"indexing AES elements only from here on", ei, elementTypeAt(j, idx))
						j.BrokenEI = true
						idx = alt
					}
				}
			case 2:
				idx = j.rowByEOE(ei)
			}
		}
		if idx < 0 {
			logger.Warnf("join: no element for AES descriptor %d (EIP=%v, index %d)", k, d.eip, d.ei)
			continue
		}
		if !j.aesValid(idx) {
			logger.Warnf("join: AES descriptor %d points at %s element [%d,%d], ignored",
				k, ElementTypeName(j.Rows[idx].ElementType), j.Rows[idx].TypeIndex, j.Rows[idx].Indiv)
			continue
		}
		r := &j.Rows[idx]
		if r.AESOffset >= 0 {
			logger.Warnf("join: element [%d,%d] already has an AES descriptor, ignoring descriptor %d",
				r.TypeIndex, r.Indiv, k)
			continue
		}
		r.AESOffset = d.off
		if d.invalid {
			continue
		}
		dsn, sas := d.slotAndSASAddr()
		r.DevSlotNum = dsn
		if sas != nil && !allZero(sas) {
			copy(r.SASAddr[:], sas)
			r.HasSASAddr = true
		}
	}
}

func elementTypeAt(j *Join, i int) string {
	if i < 0 {
		return "missing"
	}
	if j.Rows[i].Overall() {
		return "overall"
	}
	return ElementTypeName(j.Rows[i].ElementType)
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// Status returns the row's 4 byte Enclosure Status descriptor.
func (j *Join) Status(r *JoinRow) []byte {
	return j.Pages.ES[r.ESOffset : r.ESOffset+4]
}

// Threshold returns the row's Threshold In descriptor, or nil.
func (j *Join) Threshold(r *JoinRow) []byte {
	if r.THOffset < 0 {
		return nil
	}
	return j.Pages.TH[r.THOffset : r.THOffset+4]
}

// AESDescriptor returns the row's Additional Element Status descriptor, or nil.
func (j *Join) AESDescriptor(r *JoinRow) []byte {
	if r.AESOffset < 0 {
		return nil
	}
	n := int(j.Pages.AES[r.AESOffset+1]) + 2
	return j.Pages.AES[r.AESOffset : r.AESOffset+n]
}

// Descriptor returns the row's element descriptor text with trailing NULs
// removed, or "" when there is none.
func (j *Join) Descriptor(r *JoinRow) string {
	if r.EDOffset < 0 {
		return ""
	}
	s, _, _ := elementDescriptorText(j.Pages.ED, r.EDOffset)
	return s
}

// Dump writes one line per row with its cross page offsets, then a
// summary line.
func (j *Join) Dump(w io.Writer) error {
	var buf bytes.Buffer
	for i := range j.Rows {
		r := &j.Rows[i]
		fmt.Fprintf(&buf, "%3d: th=%d indiv=%d etype=0x%x se_id=%d ei_eoe=%d ei_aess=%d "+
			"es_off=%d ed_off=%d th_off=%d aes_off=%d dsn=%d",
			i, r.TypeIndex, r.Indiv, r.ElementType, r.SubEnclosureID, r.EIEOE, r.EIAESS,
			r.ESOffset, r.EDOffset, r.THOffset, r.AESOffset, r.DevSlotNum)
		if r.HasSASAddr {
			fmt.Fprintf(&buf, " sas_addr=0x%x", r.SASAddr[:])
		}
		buf.WriteByte('\n')
	}
	fmt.Fprintf(&buf, "rows=%d es_len=%d ed_len=%d th_len=%d aes_len=%d aes_descs=%d eip=%d eiioe=%d broken_ei=%v truncated=%v\n",
		len(j.Rows), len(j.Pages.ES), len(j.Pages.ED), len(j.Pages.TH), len(j.Pages.AES),
		j.AESDescriptors, j.EIPCount, j.EIIOECount, j.BrokenEI, j.Truncated)
	_, err := buf.WriteTo(w)
	return err
}

// Render writes the rows to w, each with its descriptor name, status,
// threshold and AES descriptor.
func (j *Join) Render(w io.Writer, rows []*JoinRow, opts *Options) error {
	var buf bytes.Buffer
	for _, r := range rows {
		st := j.Status(r)
		if opts.Filter > 1 && !r.Overall() {
			if code := st[0] & 0xf; code == 0 || code == 5 {
				continue
			}
		}
		name := j.Descriptor(r)
		if name == "" {
			name = "<empty>"
		}
		fmt.Fprintf(&buf, "%s [%d,%s]  Element type: %s\n", name, r.TypeIndex, indivString(r.Indiv),
			ElementTypeName(r.ElementType))
		buf.WriteString("  Enclosure Status:\n")
		writeElementStatus(&buf, r.ElementType, st, "    ", opts)
		if th := j.Threshold(r); th != nil {
			buf.WriteString("  Threshold In:\n")
			writeThreshold(&buf, r.ElementType, th, "    ", opts)
		}
		if ab := j.AESDescriptor(r); ab != nil {
			d := parseAESDescriptor(ab, r.AESOffset)
			buf.WriteString("  Additional Element Status:\n")
			writeAESDescriptor(&buf, d, "    ", opts)
		}
	}
	_, err := buf.WriteTo(w)
	return err
}

func indivString(indiv int) string {
	if indiv < 0 {
		return "-1"
	}
	return fmt.Sprintf("%d", indiv)
}
