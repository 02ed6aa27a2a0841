package ses

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/coreos/go-ses/scsi"
	"github.com/prometheus/common/log"
)

// SCSICmdHandler is a simple request/response handler for SCSI commands.
// A SCSI error is reported as an SCSIResponse with CHECK CONDITION, while returning a Go error is for flagrant, process-ending errors.
type SCSICmdHandler interface {
	HandleCommand(cmd *SCSICmd) (SCSIResponse, error)
}

// InquiryInfo holds the general vendor information for the emulated enclosure. Fields used from this will be padded or truncated to fit.
type InquiryInfo struct {
	VendorID   string
	ProductID  string
	ProductRev string
}

var defaultInquiry = InquiryInfo{
	VendorID:   "go-ses",
	ProductID:  "SES Enclosure",
	ProductRev: "0001",
}

// Enclosure emulates an enclosure services target holding a set of
// status pages. It answers INQUIRY, TEST UNIT READY, RECEIVE DIAGNOSTIC
// RESULTS and SEND DIAGNOSTIC.
type Enclosure struct {
	Inq *InquiryInfo

	pages map[byte][]byte
	sent  [][]byte
}

// NewEnclosure returns an enclosure serving pages, keyed by their page
// code. A Supported Diagnostic Pages page is made up when none is given.
func NewEnclosure(pages ...[]byte) *Enclosure {
	e := &Enclosure{pages: make(map[byte][]byte)}
	for _, p := range pages {
		e.SetPage(p)
	}
	return e
}

// SetPage stores a copy of a status page.
func (e *Enclosure) SetPage(p []byte) {
	if len(p) == 0 {
		return
	}
	e.pages[p[0]] = append([]byte(nil), p...)
}

// Page returns a copy of the stored status page, or nil.
func (e *Enclosure) Page(code byte) []byte {
	p, ok := e.pages[code]
	if !ok {
		return nil
	}
	return append([]byte(nil), p...)
}

// Sent returns the control pages accepted so far, oldest first.
func (e *Enclosure) Sent() [][]byte {
	return e.sent
}

func (e *Enclosure) supportedPage() []byte {
	codes := []int{PageSupported}
	for c := range e.pages {
		if c != PageSupported {
			codes = append(codes, int(c))
		}
	}
	sort.Ints(codes)
	b := make([]byte, 4, 4+len(codes))
	for _, c := range codes {
		b = append(b, byte(c))
	}
	binary.BigEndian.PutUint16(b[2:4], uint16(len(codes)))
	return b
}

func hasGeneration(code byte) bool {
	switch code {
	case PageConfiguration, PageEnclosureStatus, PageThreshold, PageArrayStatus,
		PageElementDescriptor, PageAdditionalStatus, PageSubencHelpText,
		PageSubencString, PageDownloadMicrocode, PageSubencNickname:
		return true
	}
	return false
}

// Generation returns the enclosure's generation code.
func (e *Enclosure) Generation() uint32 {
	if p, ok := e.pages[PageConfiguration]; ok && len(p) >= 8 {
		return binary.BigEndian.Uint32(p[4:8])
	}
	return 0
}

// BumpGeneration advances the generation code of every stored page, as
// an enclosure does when its configuration changes.
func (e *Enclosure) BumpGeneration() {
	for code, p := range e.pages {
		if hasGeneration(code) && len(p) >= 8 {
			binary.BigEndian.PutUint32(p[4:8], binary.BigEndian.Uint32(p[4:8])+1)
		}
	}
}

func (e *Enclosure) HandleCommand(cmd *SCSICmd) (SCSIResponse, error) {
	switch cmd.Command() {
	case scsi.Inquiry:
		if e.Inq == nil {
			e.Inq = &defaultInquiry
		}
		return EmulateInquiry(cmd, e.Inq)
	case scsi.TestUnitReady:
		return cmd.Ok(), nil
	case scsi.ReceiveDiagnostic:
		return e.receiveDiagnostic(cmd)
	case scsi.SendDiagnostic:
		return e.sendDiagnostic(cmd)
	default:
		log.Debugf("Ignore unknown SCSI command 0x%x\n", cmd.Command())
	}
	return cmd.NotHandled(), nil
}

func EmulateInquiry(cmd *SCSICmd, inq *InquiryInfo) (SCSIResponse, error) {
	if (cmd.GetCDB(1)&0x01) != 0 || cmd.GetCDB(2) != 0x00 {
		return cmd.IllegalRequest(), nil
	}
	buf := make([]byte, 36)
	buf[0] = scsi.PeripheralEnclosure
	buf[2] = 0x06 // SPC-4
	buf[3] = 0x02 // response data format
	buf[6] = 0x40 // EncServ
	copy(buf[8:16], FixedString(inq.VendorID, 8))
	copy(buf[16:32], FixedString(inq.ProductID, 16))
	copy(buf[32:36], FixedString(inq.ProductRev, 4))
	buf[4] = 31 // Set additional length to 31

	if n := int(cmd.XferLen()); n < len(buf) {
		buf = buf[:n]
	}
	if _, err := cmd.Write(buf); err != nil {
		return SCSIResponse{}, err
	}
	return cmd.Ok(), nil
}

func FixedString(s string, length int) []byte {
	p := []byte(s)
	l := len(p)
	if l >= length {
		return p[:length]
	}
	sp := bytes.Repeat([]byte{' '}, length-l)
	return append(p, sp...)
}

func (e *Enclosure) receiveDiagnostic(cmd *SCSICmd) (SCSIResponse, error) {
	if cmd.GetCDB(1)&scsi.ReceiveDiagPCV == 0 {
		return cmd.IllegalRequest(), nil
	}
	code := cmd.GetCDB(2)
	var p []byte
	if code == PageSupported {
		p = e.supportedPage()
	} else if p = e.pages[code]; p == nil {
		log.Debugf("receive diagnostic: no page 0x%x", code)
		return cmd.IllegalRequest(), nil
	}
	if n := int(cmd.XferLen()); n < len(p) {
		p = p[:n]
	}
	if _, err := cmd.Write(p); err != nil {
		return SCSIResponse{}, err
	}
	return cmd.Ok(), nil
}

func (e *Enclosure) sendDiagnostic(cmd *SCSICmd) (SCSIResponse, error) {
	if cmd.GetCDB(1)&scsi.SendDiagPF == 0 {
		return cmd.IllegalRequest(), nil
	}
	plen := int(cmd.XferLen())
	if plen == 0 {
		return cmd.Ok(), nil
	}
	if plen < 4 {
		return cmd.CheckCondition(scsi.SenseIllegalRequest, scsi.AscParameterListLengthError), nil
	}
	buf := make([]byte, plen)
	if n, _ := cmd.Read(buf); n < plen {
		return cmd.CheckCondition(scsi.SenseIllegalRequest, scsi.AscParameterListLengthError), nil
	}
	if int(binary.BigEndian.Uint16(buf[2:4]))+4 != plen {
		return cmd.CheckCondition(scsi.SenseIllegalRequest, scsi.AscParameterListLengthError), nil
	}
	code := buf[0]
	switch code {
	case PageEnclosureStatus, PageThreshold, PageSubencNickname, PageString, PageSubencString:
	default:
		log.Debugf("send diagnostic: page 0x%x not settable", code)
		return cmd.CheckCondition(scsi.SenseIllegalRequest, scsi.AscInvalidFieldInParameterList), nil
	}
	if hasGeneration(code) {
		if plen < 8 {
			return cmd.CheckCondition(scsi.SenseIllegalRequest, scsi.AscParameterListLengthError), nil
		}
		if gen := binary.BigEndian.Uint32(buf[4:8]); gen != e.Generation() {
			log.Debugf("send diagnostic: page 0x%x generation 0x%x, expected 0x%x", code, gen, e.Generation())
			return cmd.CheckCondition(scsi.SenseIllegalRequest, scsi.AscInvalidFieldInParameterList), nil
		}
	}
	e.sent = append(e.sent, buf)
	switch code {
	case PageEnclosureStatus:
		e.applyEnclosureControl(buf)
	case PageThreshold:
		e.applyThresholdOut(buf)
	case PageSubencNickname:
		e.applyNickname(buf)
	}
	return cmd.Ok(), nil
}

// applyEnclosureControl copies the controllable bits of every selected
// element into the stored status page.
func (e *Enclosure) applyEnclosureControl(ctl []byte) {
	st := e.pages[PageEnclosureStatus]
	cfg, err := ParseConfig(e.pages[PageConfiguration], nil)
	if st == nil || err != nil {
		return
	}
	off := pageHeaderLen
	for _, th := range cfg.TypeHeaders {
		m := ControlMask(th.ElementType)
		for k := 0; k <= int(th.NumElements); k++ {
			if off+4 > len(ctl) || off+4 > len(st) {
				return
			}
			if ctl[off]&0x80 != 0 {
				for i := 0; i < 4; i++ {
					st[off+i] = st[off+i]&^m[i] | ctl[off+i]&m[i]
				}
			}
			off += 4
		}
	}
}

func (e *Enclosure) applyThresholdOut(ctl []byte) {
	st := e.pages[PageThreshold]
	if st == nil {
		return
	}
	copy(st[pageHeaderLen:], ctl[pageHeaderLen:])
}

func (e *Enclosure) applyNickname(ctl []byte) {
	st := e.pages[PageSubencNickname]
	if st == nil || len(ctl) < pageHeaderLen+32 {
		return
	}
	for off := pageHeaderLen; off+nicknameDescLen <= len(st); off += nicknameDescLen {
		if st[off] == ctl[1] {
			copy(st[off+8:off+40], make([]byte, 32))
			copy(st[off+8:off+40], ctl[8:40])
		}
	}
}
