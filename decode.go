package ses

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/common/log"
)

// A pageDecoder renders page b into buf. It must fail before writing
// anything the caller would keep: DecodePage discards buf on error.
type pageDecoder func(buf *bytes.Buffer, b []byte, cfg *ConfigPage, opts *Options) error

var pageDecoders map[byte]pageDecoder

func init() {
	pageDecoders = map[byte]pageDecoder{
		PageSupported:         decodeSupported,
		PageConfiguration:     decodeConfig,
		PageEnclosureStatus:   decodeEnclosureStatus,
		PageHelpText:          decodeHelpText,
		PageString:            decodeStringIn,
		PageThreshold:         decodeThreshold,
		PageArrayStatus:       decodeEnclosureStatus,
		PageElementDescriptor: decodeElementDescriptor,
		PageShortStatus:       decodeShortStatus,
		PageEnclosureBusy:     decodeEnclosureBusy,
		PageAdditionalStatus:  decodeAdditionalStatus,
		PageSubencHelpText:    decodeSubencText,
		PageSubencString:      decodeSubencText,
		PageSupportedSES:      decodeSupported,
		PageDownloadMicrocode: decodeDownloadMicrocode,
		PageSubencNickname:    decodeSubencNickname,
	}
}

// DecodePage renders the diagnostic page b to w. The Enclosure Status,
// Array Status, Threshold In, Element Descriptor and Additional Element
// Status pages need the Configuration page; the others accept a nil cfg.
// Nothing is written when the page cannot be decoded in full.
func DecodePage(w io.Writer, b []byte, cfg *ConfigPage, opts *Options) error {
	if opts == nil {
		o := defaultOptions()
		opts = &o
	}
	if len(b) < 4 {
		return errors.Wrapf(ErrTruncated, "page of %d bytes", len(b))
	}
	var buf bytes.Buffer
	dec, ok := pageDecoders[b[0]]
	if !ok {
		dec = decodeRawPage
	}
	if err := dec(&buf, b, cfg, opts); err != nil {
		return errors.Wrapf(err, "decode %s", PageName(b[0]))
	}
	_, err := buf.WriteTo(w)
	return err
}

// WriteRaw writes b as space separated hex, 16 bytes per line, in a form
// ParseHex reads back.
func WriteRaw(w io.Writer, b []byte) error {
	var buf bytes.Buffer
	for i := 0; i < len(b); i += 16 {
		end := i + 16
		if end > len(b) {
			end = len(b)
		}
		for j := i; j < end; j++ {
			if j > i {
				buf.WriteByte(' ')
			}
			fmt.Fprintf(&buf, "%02x", b[j])
		}
		buf.WriteByte('\n')
	}
	_, err := buf.WriteTo(w)
	return err
}

func writeIndentedDump(buf *bytes.Buffer, b []byte, indent string) {
	for _, l := range strings.SplitAfter(hex.Dump(b), "\n") {
		if l != "" {
			buf.WriteString(indent + l)
		}
	}
}

func decodeRawPage(buf *bytes.Buffer, b []byte, _ *ConfigPage, _ *Options) error {
	b, err := pageWindow(b, 4)
	if err != nil {
		return err
	}
	fmt.Fprintf(buf, "%s diagnostic page, in hex:\n", PageName(b[0]))
	writeIndentedDump(buf, b, "  ")
	return nil
}

func checkGeneration(b []byte, cfg *ConfigPage) error {
	if gen := binary.BigEndian.Uint32(b[4:8]); gen != cfg.Generation {
		return errors.Wrapf(ErrStateChanged, "page 0x%x generation code 0x%x, configuration has 0x%x",
			b[0], gen, cfg.Generation)
	}
	return nil
}

// elementPage clips a page that carries a generation code and one entry
// per element, and checks it against the configuration.
func elementPage(b []byte, cfg *ConfigPage) ([]byte, error) {
	if cfg == nil {
		return nil, errors.Wrap(ErrConstraint, "configuration page needed")
	}
	b, err := pageWindow(b, pageHeaderLen)
	if err != nil {
		return nil, err
	}
	return b, checkGeneration(b, cfg)
}

// SupportedPages returns the page codes listed by a Supported Diagnostic
// Pages page. The list ends at the first code not above its predecessor.
func SupportedPages(b []byte) ([]byte, error) {
	b, err := pageWindow(b, 4)
	if err != nil {
		return nil, err
	}
	var codes []byte
	prev := -1
	for _, c := range b[4:] {
		if int(c) <= prev {
			break
		}
		codes = append(codes, c)
		prev = int(c)
	}
	return codes, nil
}

func decodeSupported(buf *bytes.Buffer, b []byte, _ *ConfigPage, _ *Options) error {
	codes, err := SupportedPages(b)
	if err != nil {
		return err
	}
	if b[0] == PageSupportedSES {
		buf.WriteString("Supported SES diagnostic pages:\n")
	} else {
		buf.WriteString("Supported diagnostic pages:\n")
	}
	for _, c := range codes {
		fmt.Fprintf(buf, "  %s [0x%x]\n", PageName(c), c)
	}
	return nil
}

func decodeConfig(buf *bytes.Buffer, b []byte, _ *ConfigPage, opts *Options) error {
	cfg, err := ParseConfig(b, opts.Logger)
	if err != nil {
		return err
	}
	buf.WriteString("Configuration diagnostic page:\n")
	fmt.Fprintf(buf, "  number of secondary subenclosures: %d\n", len(cfg.SubEnclosures)-1)
	fmt.Fprintf(buf, "  generation code: 0x%x\n", cfg.Generation)
	buf.WriteString("  enclosure descriptor list\n")
	for _, se := range cfg.SubEnclosures {
		fmt.Fprintf(buf, "    Subenclosure identifier: %d", se.ID)
		if se.ID == 0 {
			buf.WriteString(" [primary]")
		}
		buf.WriteByte('\n')
		fmt.Fprintf(buf, "      relative ES process id: %d, number of ES processes: %d\n",
			se.RelESProcID, se.NumESProcs)
		fmt.Fprintf(buf, "      number of type descriptor headers: %d\n", se.NumTypeHeaders)
		if !se.Identity {
			continue
		}
		fmt.Fprintf(buf, "      enclosure logical identifier (hex): %x\n", se.LogicalID[:])
		fmt.Fprintf(buf, "      enclosure vendor: %-8s  product: %-16s  rev: %s\n",
			se.Vendor, se.Product, se.Revision)
		if len(se.VendorSpecific) > 0 {
			buf.WriteString("      vendor-specific data:\n")
			writeIndentedDump(buf, se.VendorSpecific, "        ")
		}
	}
	buf.WriteString("  type descriptor header and text list\n")
	for i, th := range cfg.TypeHeaders {
		fmt.Fprintf(buf, "    Element type: %s, subenclosure id: %d [ti=%d]\n",
			ElementTypeName(th.ElementType), th.SubEnclosureID, i)
		fmt.Fprintf(buf, "      number of possible elements: %d\n", th.NumElements)
		if th.TextLen > 0 {
			fmt.Fprintf(buf, "      text: %s\n", th.Text)
		}
	}
	return nil
}

func decodeEnclosureStatus(buf *bytes.Buffer, b []byte, cfg *ConfigPage, opts *Options) error {
	b, err := elementPage(b, cfg)
	if err != nil {
		return err
	}
	if need := pageHeaderLen + 4*cfg.NumDescriptors(); len(b) < need {
		return errors.Wrapf(ErrTruncated, "%d bytes, %d status descriptors need %d", len(b), cfg.NumDescriptors(), need)
	}
	if b[0] == PageArrayStatus {
		buf.WriteString("Array status diagnostic page:\n")
	} else {
		buf.WriteString("Enclosure Status diagnostic page:\n")
	}
	fmt.Fprintf(buf, "  INVOP=%d, INFO=%d, NON-CRIT=%d, CRIT=%d, UNRECOV=%d\n",
		bit(b[1], 4), bit(b[1], 3), bit(b[1], 2), bit(b[1], 1), bit(b[1], 0))
	fmt.Fprintf(buf, "  generation code: 0x%x\n", cfg.Generation)
	buf.WriteString("  status descriptor list\n")
	off := pageHeaderLen
	for i, th := range cfg.TypeHeaders {
		fmt.Fprintf(buf, "    Element type: %s, subenclosure id: %d [ti=%d]\n",
			ElementTypeName(th.ElementType), th.SubEnclosureID, i)
		buf.WriteString("      Overall descriptor:\n")
		writeElementStatus(buf, th.ElementType, b[off:off+4], "        ", opts)
		off += 4
		for j := 0; j < int(th.NumElements); j++ {
			fmt.Fprintf(buf, "      Element %d descriptor:\n", j)
			writeElementStatus(buf, th.ElementType, b[off:off+4], "        ", opts)
			off += 4
		}
	}
	return nil
}

func decodeThreshold(buf *bytes.Buffer, b []byte, cfg *ConfigPage, opts *Options) error {
	b, err := elementPage(b, cfg)
	if err != nil {
		return err
	}
	if need := pageHeaderLen + 4*cfg.NumDescriptors(); len(b) < need {
		return errors.Wrapf(ErrTruncated, "%d bytes, %d threshold descriptors need %d", len(b), cfg.NumDescriptors(), need)
	}
	buf.WriteString("Threshold In diagnostic page:\n")
	fmt.Fprintf(buf, "  INVOP=%d\n", bit(b[1], 4))
	fmt.Fprintf(buf, "  generation code: 0x%x\n", cfg.Generation)
	buf.WriteString("  threshold status descriptor list\n")
	off := pageHeaderLen
	for i, th := range cfg.TypeHeaders {
		fmt.Fprintf(buf, "    Element type: %s, subenclosure id: %d [ti=%d]\n",
			ElementTypeName(th.ElementType), th.SubEnclosureID, i)
		buf.WriteString("      Overall descriptor:\n")
		writeThreshold(buf, th.ElementType, b[off:off+4], "        ", opts)
		off += 4
		for j := 0; j < int(th.NumElements); j++ {
			fmt.Fprintf(buf, "      Element %d descriptor:\n", j)
			writeThreshold(buf, th.ElementType, b[off:off+4], "        ", opts)
			off += 4
		}
	}
	return nil
}

// elementDescriptorText returns the text of the element descriptor at off
// and the offset of the next one.
func elementDescriptorText(b []byte, off int) (string, int, error) {
	if off+4 > len(b) {
		return "", 0, errors.Wrapf(ErrTruncated, "element descriptor at offset %d", off)
	}
	n := int(binary.BigEndian.Uint16(b[off+2 : off+4]))
	if off+4+n > len(b) {
		return "", 0, errors.Wrapf(ErrTruncated, "element descriptor at offset %d needs %d bytes", off, n)
	}
	return strings.TrimRight(string(b[off+4:off+4+n]), "\x00"), off + 4 + n, nil
}

func decodeElementDescriptor(buf *bytes.Buffer, b []byte, cfg *ConfigPage, _ *Options) error {
	b, err := elementPage(b, cfg)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	out.WriteString("Element Descriptor In diagnostic page:\n")
	fmt.Fprintf(&out, "  generation code: 0x%x\n", cfg.Generation)
	out.WriteString("  element descriptor list (grouped by type):\n")
	off := pageHeaderLen
	var text string
	for i, th := range cfg.TypeHeaders {
		fmt.Fprintf(&out, "    Element type: %s, subenclosure id: %d [ti=%d]\n",
			ElementTypeName(th.ElementType), th.SubEnclosureID, i)
		if text, off, err = elementDescriptorText(b, off); err != nil {
			return err
		}
		fmt.Fprintf(&out, "      Overall descriptor: %s\n", text)
		for j := 0; j < int(th.NumElements); j++ {
			if text, off, err = elementDescriptorText(b, off); err != nil {
				return err
			}
			fmt.Fprintf(&out, "      Element %d descriptor: %s\n", j, text)
		}
	}
	_, err = out.WriteTo(buf)
	return err
}

// aesDescriptor is one Additional Element Status descriptor.
type aesDescriptor struct {
	// offset of the descriptor within the page
	off     int
	b       []byte
	invalid bool
	eip     bool
	proto   byte
	eiioe   byte
	ei      int
}

// protoSpecific returns the protocol specific part of the descriptor,
// which starts at byte 4 when EIP is set and at byte 2 otherwise.
func (d aesDescriptor) protoSpecific() []byte {
	if d.eip {
		return d.b[4:]
	}
	return d.b[2:]
}

// sasPhyStart is the offset of the first SAS phy descriptor within the
// protocol specific part. Without EIP there is no device slot number.
func (d aesDescriptor) sasPhyStart() int {
	if d.eip {
		return 4
	}
	return 2
}

// slotAndSASAddr returns the device slot number (-1 if none) and, for SAS
// device slot descriptors with at least one phy, the first phy's SAS address.
func (d aesDescriptor) slotAndSASAddr() (int, []byte) {
	ps := d.protoSpecific()
	if len(ps) < 2 {
		return -1, nil
	}
	dsn := -1
	if d.eip && len(ps) >= 4 {
		dsn = int(ps[3])
	}
	switch d.proto {
	case ProtoFCP, ProtoPCIe:
		return dsn, nil
	case ProtoSAS:
		if ps[1]&0xc0 != 0 {
			return -1, nil
		}
		if start := d.sasPhyStart(); ps[0] > 0 && len(ps) >= start+20 {
			return dsn, ps[start+12 : start+20]
		}
		return dsn, nil
	}
	return -1, nil
}

// parseAESDescriptor decodes the header of the descriptor b found at off.
// With EIP set b must hold at least 4 bytes.
func parseAESDescriptor(b []byte, off int) aesDescriptor {
	d := aesDescriptor{
		off:     off,
		b:       b,
		invalid: b[0]&0x80 != 0,
		eip:     b[0]&0x10 != 0,
		proto:   b[0] & 0xf,
		ei:      -1,
	}
	if d.eip {
		d.eiioe = b[2] & 0x3
		d.ei = int(b[3])
	}
	return d
}

// walkAES splits an Additional Element Status page into descriptors.
// Descriptors that cannot be parsed are logged and end the walk.
func walkAES(b []byte, logger log.Logger) []aesDescriptor {
	var descs []aesDescriptor
	off := pageHeaderLen
	for off+2 <= len(b) {
		n := int(b[off+1]) + 2
		if off+n > len(b) {
			logger.Warnf("additional element status descriptor at offset %d runs past page end", off)
			break
		}
		if b[off]&0x10 != 0 && n < 4 {
			logger.Warnf("additional element status descriptor at offset %d too short for EIP", off)
			off += n
			continue
		}
		descs = append(descs, parseAESDescriptor(b[off:off+n], off))
		off += n
	}
	return descs
}

var protocolNames = map[byte]string{
	0x0: "Fibre Channel",
	0x1: "SCSI parallel",
	0x2: "SSA",
	0x3: "IEEE 1394",
	0x4: "SCSI RDMA",
	0x5: "iSCSI",
	0x6: "SAS",
	0x7: "ADT",
	0x8: "ATA/ATAPI",
	0x9: "UAS",
	0xa: "SOP",
	0xb: "PCIe",
}

func protocolName(p byte) string {
	if s, ok := protocolNames[p]; ok {
		return s
	}
	return fmt.Sprintf("reserved [0x%x]", p)
}

func writeAESDescriptor(buf *bytes.Buffer, d aesDescriptor, indent string, opts *Options) {
	fw := &fieldWriter{buf: buf, indent: indent, filter: opts.Filter}
	fw.text("Transport protocol: %s", protocolName(d.proto))
	fw.flag("invalid", boolByte(d.invalid))
	fw.flag("EIP", boolByte(d.eip))
	if d.eip {
		fw.flag("EIIOE", d.eiioe)
		fw.text("element index: %d", d.ei)
	}
	fw.line()
	ps := d.protoSpecific()
	in := indent + "  "
	switch d.proto {
	case ProtoFCP:
		writeAESFCP(buf, ps, d.eip, in)
	case ProtoSAS:
		writeAESSAS(buf, d, in, opts)
	case ProtoPCIe:
		writeAESPCIe(buf, ps, in)
	default:
		writeIndentedDump(buf, ps, in)
	}
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func writeAESFCP(buf *bytes.Buffer, ps []byte, eip bool, indent string) {
	if len(ps) < 12 {
		writeIndentedDump(buf, ps, indent)
		return
	}
	if eip {
		fmt.Fprintf(buf, "%snumber of ports: %d, device slot number: %d\n", indent, ps[0], ps[3])
	} else {
		fmt.Fprintf(buf, "%snumber of ports: %d\n", indent, ps[0])
	}
	fmt.Fprintf(buf, "%snode name: 0x%x\n", indent, ps[4:12])
	for k, p := 0, ps[12:]; k < int(ps[0]) && len(p) >= 16; k, p = k+1, p[16:] {
		fmt.Fprintf(buf, "%s  port index: %d, port loop position: %d, bypass reason: 0x%x\n",
			indent, k, p[0], p[1])
		fmt.Fprintf(buf, "%s    requested hard address: %d, n_port identifier: %02x%02x%02x\n",
			indent, p[3], p[5], p[6], p[7])
		fmt.Fprintf(buf, "%s    n_port name: 0x%x\n", indent, p[8:16])
	}
}

func writeAESSAS(buf *bytes.Buffer, d aesDescriptor, indent string, opts *Options) {
	ps := d.protoSpecific()
	if len(ps) < 4 {
		writeIndentedDump(buf, ps, indent)
		return
	}
	nphys := int(ps[0])
	switch dtype := ps[1] >> 6; dtype {
	case 0:
		if d.eip {
			fmt.Fprintf(buf, "%snumber of phys: %d, not all phys: %d, device slot number: %d\n",
				indent, nphys, ps[1]&1, ps[3])
		} else {
			fmt.Fprintf(buf, "%snumber of phys: %d, not all phys: %d\n", indent, nphys, ps[1]&1)
		}
		for k, p := 0, ps[d.sasPhyStart():]; k < nphys && len(p) >= 28; k, p = k+1, p[28:] {
			fmt.Fprintf(buf, "%sphy index: %d\n", indent, k)
			fmt.Fprintf(buf, "%s  SAS device type: %s\n", indent, sasDeviceTypes[(p[0]>>4)&0x7])
			fw := &fieldWriter{buf: buf, indent: indent + "  ", filter: opts.Filter}
			fw.flag("initiator port for: SSP", bit(p[2], 3))
			fw.flag("STP", bit(p[2], 2))
			fw.flag("SMP", bit(p[2], 1))
			fw.line()
			fw.flag("target port for: SATA port selector", bit(p[3], 7))
			fw.flag("SSP", bit(p[3], 3))
			fw.flag("STP", bit(p[3], 2))
			fw.flag("SMP", bit(p[3], 1))
			fw.flag("SATA device", bit(p[3], 0))
			fw.line()
			fmt.Fprintf(buf, "%s  attached SAS address: 0x%x\n", indent, p[4:12])
			fmt.Fprintf(buf, "%s  SAS address: 0x%x\n", indent, p[12:20])
			fmt.Fprintf(buf, "%s  phy identifier: 0x%x\n", indent, p[20])
		}
	case 1:
		if len(ps) < 12 {
			writeIndentedDump(buf, ps, indent)
			return
		}
		fmt.Fprintf(buf, "%snumber of phys: %d\n", indent, nphys)
		fmt.Fprintf(buf, "%sSAS address: 0x%x\n", indent, ps[4:12])
		for k, p := 0, ps[12:]; k < nphys && len(p) >= 2; k, p = k+1, p[2:] {
			fmt.Fprintf(buf, "%s  [%d] connector element index: %s, other element index: %s\n",
				indent, k, elementIndexString(p[0]), elementIndexString(p[1]))
		}
	case 2, 3:
		fmt.Fprintf(buf, "%snumber of phys: %d\n", indent, nphys)
		for k, p := 0, ps[4:]; k < nphys && len(p) >= 12; k, p = k+1, p[12:] {
			fmt.Fprintf(buf, "%s  phy identifier: 0x%x, connector element index: %s, other element index: %s\n",
				indent, p[0], elementIndexString(p[2]), elementIndexString(p[3]))
			fmt.Fprintf(buf, "%s    SAS address: 0x%x\n", indent, p[4:12])
		}
	}
}

func elementIndexString(ei byte) string {
	if ei == 0xff {
		return "none"
	}
	return fmt.Sprintf("%d", ei)
}

func writeAESPCIe(buf *bytes.Buffer, ps []byte, indent string) {
	if len(ps) < 66 {
		writeIndentedDump(buf, ps, indent)
		return
	}
	fmt.Fprintf(buf, "%snumber of ports: %d, not all ports: %d, device slot number: %d\n",
		indent, ps[0], ps[1]&1, ps[3])
	fmt.Fprintf(buf, "%sPCIe vendor id: 0x%x\n", indent, binary.BigEndian.Uint16(ps[4:6]))
	fmt.Fprintf(buf, "%sserial number: %s\n", indent, trimASCII(ps[6:26]))
	fmt.Fprintf(buf, "%smodel number: %s\n", indent, trimASCII(ps[26:66]))
}

func decodeAdditionalStatus(buf *bytes.Buffer, b []byte, cfg *ConfigPage, opts *Options) error {
	b, err := elementPage(b, cfg)
	if err != nil {
		return err
	}
	buf.WriteString("Additional element status diagnostic page:\n")
	fmt.Fprintf(buf, "  generation code: 0x%x\n", cfg.Generation)
	buf.WriteString("  additional element status descriptor list\n")
	for k, d := range walkAES(b, opts.Logger) {
		fmt.Fprintf(buf, "    descriptor %d (offset %d):\n", k, d.off)
		writeAESDescriptor(buf, d, "      ", opts)
	}
	return nil
}

func decodeHelpText(buf *bytes.Buffer, b []byte, _ *ConfigPage, _ *Options) error {
	b, err := pageWindow(b, 4)
	if err != nil {
		return err
	}
	buf.WriteString("Help text diagnostic page (for primary subenclosure):\n")
	fmt.Fprintf(buf, "  %s\n", strings.TrimRight(string(b[4:]), "\x00"))
	return nil
}

func decodeStringIn(buf *bytes.Buffer, b []byte, _ *ConfigPage, _ *Options) error {
	b, err := pageWindow(b, 4)
	if err != nil {
		return err
	}
	buf.WriteString("String In diagnostic page (for primary subenclosure):\n")
	if len(b) > 4 {
		writeIndentedDump(buf, b[4:], "  ")
	}
	return nil
}

func decodeShortStatus(buf *bytes.Buffer, b []byte, _ *ConfigPage, _ *Options) error {
	fmt.Fprintf(buf, "Short enclosure status diagnostic page, status=0x%x\n", b[1])
	return nil
}

func decodeEnclosureBusy(buf *bytes.Buffer, b []byte, _ *ConfigPage, _ *Options) error {
	fmt.Fprintf(buf, "Enclosure Busy diagnostic page, BUSY=%d [vendor specific=0x%x]\n", b[1]&1, b[1]>>1)
	return nil
}

func decodeSubencText(buf *bytes.Buffer, b []byte, _ *ConfigPage, _ *Options) error {
	b, err := pageWindow(b, pageHeaderLen)
	if err != nil {
		return err
	}
	help := b[0] == PageSubencHelpText
	if help {
		buf.WriteString("Subenclosure help text diagnostic page:\n")
	} else {
		buf.WriteString("Subenclosure string in diagnostic page:\n")
	}
	num := int(b[1]) + 1
	fmt.Fprintf(buf, "  number of secondary subenclosures: %d\n", num-1)
	fmt.Fprintf(buf, "  generation code: 0x%x\n", binary.BigEndian.Uint32(b[4:8]))
	off := pageHeaderLen
	for k := 0; k < num; k++ {
		if off+4 > len(b) {
			return errors.Wrapf(ErrTruncated, "subenclosure descriptor %d", k)
		}
		n := int(binary.BigEndian.Uint16(b[off+2 : off+4]))
		if off+4+n > len(b) {
			return errors.Wrapf(ErrTruncated, "subenclosure descriptor %d needs %d bytes", k, n)
		}
		fmt.Fprintf(buf, "   subenclosure identifier: %d\n", b[off+1])
		text := b[off+4 : off+4+n]
		switch {
		case n == 0:
			buf.WriteString("    <empty>\n")
		case help:
			fmt.Fprintf(buf, "    %s\n", strings.TrimRight(string(text), "\x00"))
		default:
			writeIndentedDump(buf, text, "    ")
		}
		off += 4 + n
	}
	return nil
}

var microcodeStatus = map[byte]string{
	0x0:  "No download microcode operation in progress",
	0x1:  "Download in progress, awaiting more",
	0x2:  "Download complete, updating storage",
	0x3:  "Updating storage with deferred microcode",
	0x10: "Complete, no error, starting now",
	0x11: "Complete, no error, start after hard reset or power cycle",
	0x12: "Complete, no error, start after power cycle",
	0x13: "Complete, no error, start after activate_mc, hard reset or power cycle",
	0x80: "Error, discarded, see additional status",
	0x81: "Error, discarded, image error",
	0x82: "Timeout, discarded",
	0x83: "Internal error, need new microcode before reset",
	0x84: "Internal error, need new microcode, reset safe",
	0x85: "Unexpected activate_mc received",
}

// MicrocodeStatusName names a download microcode status code.
func MicrocodeStatusName(code byte) string {
	if s, ok := microcodeStatus[code]; ok {
		return s
	}
	if code >= 0x70 && code <= 0x7f || code >= 0xf0 {
		return fmt.Sprintf("vendor specific [0x%x]", code)
	}
	return fmt.Sprintf("reserved [0x%x]", code)
}

func decodeDownloadMicrocode(buf *bytes.Buffer, b []byte, _ *ConfigPage, _ *Options) error {
	b, err := pageWindow(b, pageHeaderLen)
	if err != nil {
		return err
	}
	num := int(b[1]) + 1
	if need := pageHeaderLen + 16*num; len(b) < need {
		return errors.Wrapf(ErrTruncated, "%d bytes, %d descriptors need %d", len(b), num, need)
	}
	buf.WriteString("Download microcode status diagnostic page:\n")
	fmt.Fprintf(buf, "  number of secondary subenclosures: %d\n", num-1)
	fmt.Fprintf(buf, "  generation code: 0x%x\n", binary.BigEndian.Uint32(b[4:8]))
	for k, p := 0, b[pageHeaderLen:]; k < num; k, p = k+1, p[16:] {
		fmt.Fprintf(buf, "   subenclosure identifier: %d\n", p[1])
		fmt.Fprintf(buf, "     download microcode status: %s [0x%x]\n", MicrocodeStatusName(p[2]), p[2])
		fmt.Fprintf(buf, "     download microcode additional status: 0x%x\n", p[3])
		fmt.Fprintf(buf, "     download microcode maximum size: %d bytes\n", binary.BigEndian.Uint32(p[4:8]))
		fmt.Fprintf(buf, "     download microcode expected buffer id: 0x%x\n", p[11])
		fmt.Fprintf(buf, "     download microcode expected buffer id offset: %d\n", binary.BigEndian.Uint32(p[12:16]))
	}
	return nil
}

const nicknameDescLen = 40

func decodeSubencNickname(buf *bytes.Buffer, b []byte, _ *ConfigPage, _ *Options) error {
	b, err := pageWindow(b, pageHeaderLen)
	if err != nil {
		return err
	}
	num := int(b[1]) + 1
	if need := pageHeaderLen + nicknameDescLen*num; len(b) < need {
		return errors.Wrapf(ErrTruncated, "%d bytes, %d descriptors need %d", len(b), num, need)
	}
	buf.WriteString("Subenclosure nickname status diagnostic page:\n")
	fmt.Fprintf(buf, "  number of secondary subenclosures: %d\n", num-1)
	fmt.Fprintf(buf, "  generation code: 0x%x\n", binary.BigEndian.Uint32(b[4:8]))
	for k, p := 0, b[pageHeaderLen:]; k < num; k, p = k+1, p[nicknameDescLen:] {
		fmt.Fprintf(buf, "   subenclosure identifier: %d\n", p[0])
		fmt.Fprintf(buf, "   nickname status: 0x%x\n", p[1])
		fmt.Fprintf(buf, "   nickname additional status: 0x%x\n", p[2])
		fmt.Fprintf(buf, "   nickname language code: %s\n", trimASCII(p[6:8]))
		fmt.Fprintf(buf, "   nickname: %s\n", trimASCII(p[8:40]))
	}
	return nil
}
