package ses

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/common/log"
)

const (
	pageHeaderLen = 8
	// bytes after the 4 byte enclosure descriptor prefix needed to hold
	// the logical id, vendor, product and revision
	encDescIdentityLen = 36
)

// TypeHeader is a type descriptor header from the Configuration page.
// Their order defines the element index space of every other page.
type TypeHeader struct {
	ElementType    byte
	NumElements    byte
	SubEnclosureID byte
	TextLen        byte
	Text           string
}

// SubEnclosure is an enclosure descriptor from the Configuration page.
type SubEnclosure struct {
	RelESProcID    byte
	NumESProcs     byte
	ID             byte
	NumTypeHeaders byte
	// Identity is false when the descriptor is too short to hold the
	// fields below.
	Identity       bool
	LogicalID      [8]byte
	Vendor         string
	Product        string
	Revision       string
	VendorSpecific []byte

	raw []byte
}

// ConfigPage is a decoded Configuration page.
type ConfigPage struct {
	Generation    uint32
	SubEnclosures []SubEnclosure
	TypeHeaders   []TypeHeader

	trailer []byte
}

func trimASCII(b []byte) string {
	return strings.TrimRight(string(b), " \x00")
}

// pageWindow clips b to the length its header reports. A short read leaves
// b as it is.
func pageWindow(b []byte, min int) ([]byte, error) {
	if len(b) < 4 {
		return nil, errors.Wrapf(ErrTruncated, "page of %d bytes", len(b))
	}
	n := int(binary.BigEndian.Uint16(b[2:4])) + 4
	if n < len(b) {
		b = b[:n]
	}
	if len(b) < min {
		return nil, errors.Wrapf(ErrTruncated, "page 0x%x: %d bytes, need %d", b[0], len(b), min)
	}
	return b, nil
}

// ParseConfig decodes a Configuration page.
func ParseConfig(b []byte, logger log.Logger) (*ConfigPage, error) {
	if logger == nil {
		logger = log.Base()
	}
	b, err := pageWindow(b, pageHeaderLen)
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	if b[0] != PageConfiguration {
		return nil, errors.Wrapf(ErrInconsistent, "expected configuration page, got 0x%x", b[0])
	}
	cfg := &ConfigPage{Generation: binary.BigEndian.Uint32(b[4:8])}
	numSubs := int(b[1]) + 1
	off := pageHeaderLen
	totalTH := 0
	for k := 0; k < numSubs; k++ {
		if off+4 > len(b) {
			return nil, errors.Wrapf(ErrTruncated, "truncated config: enclosure descriptor %d", k)
		}
		p := b[off:]
		end := off + 4 + int(p[3])
		if end > len(b) {
			return nil, errors.Wrapf(ErrTruncated, "truncated config: enclosure descriptor %d needs %d bytes", k, end)
		}
		se := SubEnclosure{
			RelESProcID:    (p[0] >> 4) & 0x7,
			NumESProcs:     p[0] & 0x7,
			ID:             p[1],
			NumTypeHeaders: p[2],
			raw:            b[off:end],
		}
		if int(p[3]) < encDescIdentityLen {
			logger.Warnf("enclosure descriptor %d length %d too short, identity skipped", k, p[3])
		} else {
			se.Identity = true
			copy(se.LogicalID[:], p[4:12])
			se.Vendor = trimASCII(p[12:20])
			se.Product = trimASCII(p[20:36])
			se.Revision = trimASCII(p[36:40])
			se.VendorSpecific = p[40 : end-off]
		}
		totalTH += int(se.NumTypeHeaders)
		cfg.SubEnclosures = append(cfg.SubEnclosures, se)
		off = end
	}

	if off+4*totalTH > len(b) {
		return nil, errors.Wrapf(ErrTruncated, "truncated config: %d type descriptor headers", totalTH)
	}
	textOff := off + 4*totalTH
	for k := 0; k < totalTH; k++ {
		p := b[off+4*k:]
		th := TypeHeader{
			ElementType:    p[0],
			NumElements:    p[1],
			SubEnclosureID: p[2],
			TextLen:        p[3],
		}
		if textOff+int(th.TextLen) > len(b) {
			return nil, errors.Wrapf(ErrTruncated, "truncated config: text of type header %d", k)
		}
		th.Text = string(b[textOff : textOff+int(th.TextLen)])
		textOff += int(th.TextLen)
		cfg.TypeHeaders = append(cfg.TypeHeaders, th)
	}
	cfg.trailer = b[textOff:]
	return cfg, nil
}

// MarshalBinary serializes the page. For a parsed page this reproduces the
// original bytes.
func (c *ConfigPage) MarshalBinary() ([]byte, error) {
	if len(c.SubEnclosures) == 0 || len(c.SubEnclosures) > 256 {
		return nil, errors.Wrapf(ErrConstraint, "%d subenclosures", len(c.SubEnclosures))
	}
	var buf bytes.Buffer
	hdr := make([]byte, pageHeaderLen)
	hdr[0] = PageConfiguration
	hdr[1] = byte(len(c.SubEnclosures) - 1)
	binary.BigEndian.PutUint32(hdr[4:8], c.Generation)
	buf.Write(hdr)
	for _, se := range c.SubEnclosures {
		buf.Write(se.bytes())
	}
	for _, th := range c.TypeHeaders {
		buf.Write([]byte{th.ElementType, th.NumElements, th.SubEnclosureID, byte(len(th.Text))})
	}
	for _, th := range c.TypeHeaders {
		buf.WriteString(th.Text)
	}
	buf.Write(c.trailer)
	out := buf.Bytes()
	if len(out)-4 > 0xffff {
		return nil, errors.Wrapf(ErrConstraint, "config page of %d bytes", len(out))
	}
	binary.BigEndian.PutUint16(out[2:4], uint16(len(out)-4))
	return out, nil
}

func (se SubEnclosure) bytes() []byte {
	if se.raw != nil {
		return se.raw
	}
	p := make([]byte, 4+encDescIdentityLen, 4+encDescIdentityLen+len(se.VendorSpecific))
	p[0] = (se.RelESProcID&0x7)<<4 | se.NumESProcs&0x7
	p[1] = se.ID
	p[2] = se.NumTypeHeaders
	copy(p[4:12], se.LogicalID[:])
	copy(p[12:20], FixedString(se.Vendor, 8))
	copy(p[20:36], FixedString(se.Product, 16))
	copy(p[36:40], FixedString(se.Revision, 4))
	p = append(p, se.VendorSpecific...)
	p[3] = byte(len(p) - 4)
	return p
}

// NumElements returns the number of individual elements over all types.
func (c *ConfigPage) NumElements() int {
	n := 0
	for _, th := range c.TypeHeaders {
		n += int(th.NumElements)
	}
	return n
}

// NumDescriptors returns the number of status descriptors, overall
// elements included.
func (c *ConfigPage) NumDescriptors() int {
	return len(c.TypeHeaders) + c.NumElements()
}

// Primary returns the primary subenclosure.
func (c *ConfigPage) Primary() *SubEnclosure {
	for i := range c.SubEnclosures {
		if c.SubEnclosures[i].ID == 0 {
			return &c.SubEnclosures[i]
		}
	}
	if len(c.SubEnclosures) > 0 {
		return &c.SubEnclosures[0]
	}
	return nil
}

// TypeHeaderIndex returns the index of the instance'th type header of
// element type etype.
func (c *ConfigPage) TypeHeaderIndex(etype byte, instance int) (int, bool) {
	for i, th := range c.TypeHeaders {
		if th.ElementType != etype {
			continue
		}
		if instance == 0 {
			return i, true
		}
		instance--
	}
	return 0, false
}
