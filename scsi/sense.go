package scsi

import "fmt"

// Sense is the part of a sense buffer the diagnostic commands care about.
type Sense struct {
	ResponseCode byte
	Key          byte
	ASC          byte
	ASCQ         byte
	// Descriptor is true for descriptor format (0x72/0x73) sense data.
	Descriptor bool
	// Deferred is true for deferred errors (0x71/0x73).
	Deferred bool
}

// ParseSense decodes fixed (0x70/0x71) and descriptor (0x72/0x73) format
// sense data. ok is false when b does not hold recognisable sense.
func ParseSense(b []byte) (s Sense, ok bool) {
	if len(b) < 1 {
		return s, false
	}
	s.ResponseCode = b[0] & 0x7f
	switch s.ResponseCode {
	case 0x70, 0x71:
		s.Deferred = s.ResponseCode == 0x71
		if len(b) < 3 {
			return s, false
		}
		s.Key = b[2] & 0xf
		if len(b) > 12 {
			s.ASC = b[12]
		}
		if len(b) > 13 {
			s.ASCQ = b[13]
		}
	case 0x72, 0x73:
		s.Descriptor = true
		s.Deferred = s.ResponseCode == 0x73
		if len(b) < 2 {
			return s, false
		}
		s.Key = b[1] & 0xf
		if len(b) > 2 {
			s.ASC = b[2]
		}
		if len(b) > 3 {
			s.ASCQ = b[3]
		}
	default:
		return s, false
	}
	return s, true
}

// FixedSense builds an 18 byte, current, fixed format sense buffer.
func FixedSense(key byte, asc uint16) []byte {
	buf := make([]byte, 18)
	buf[0] = 0x70 /* fixed, current */
	buf[2] = key
	buf[7] = 0xa
	buf[12] = byte(asc >> 8)
	buf[13] = byte(asc)
	return buf
}

func (s Sense) String() string {
	str := fmt.Sprintf("%s, asc=0x%02x ascq=0x%02x", SenseKeyName(s.Key), s.ASC, s.ASCQ)
	if n := AscName(s.ASC, s.ASCQ); n != "" {
		str += " (" + n + ")"
	}
	if s.Deferred {
		str = "deferred: " + str
	}
	return str
}
