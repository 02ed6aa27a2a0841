package ses

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/coreos/go-ses/scsi"
	"github.com/prometheus/common/log"
)

// SCSICmd represents a single SCSI command handed to an emulated target.
type SCSICmd struct {
	cdb       []byte
	vecs      [][]byte
	offset    int
	vecoffset int
	xfered    int
}

// NewSCSICmd wraps a CDB and its data buffer. For data-in commands the
// handler writes into data; for data-out commands it reads from it.
func NewSCSICmd(cdb []byte, data []byte) *SCSICmd {
	return &SCSICmd{
		cdb:  cdb,
		vecs: [][]byte{data},
	}
}

// Command returns the SCSI command byte for the command. Useful when used as a comparison to the constants in the scsi package:
// c.Command() == scsi.ReceiveDiagnostic
func (c *SCSICmd) Command() byte {
	return c.cdb[0]
}

// CdbLen returns the length of the command, in bytes.
func (c *SCSICmd) CdbLen() int {
	opcode := c.cdb[0]
	// See spc-4 4.2.5.1 operation code
	//
	if opcode <= 0x1f {
		return 6
	} else if opcode <= 0x5f {
		return 10
	} else if opcode == 0x7f {
		return int(c.cdb[7]) + 8
	} else if opcode >= 0x80 && opcode <= 0x9f {
		return 16
	} else if opcode >= 0xa0 && opcode <= 0xbf {
		return 12
	}
	panic(fmt.Sprintf("what opcode is %x", opcode))
}

// XferLen returns the allocation or parameter list length carried by the command.
func (c *SCSICmd) XferLen() uint32 {
	order := binary.BigEndian
	switch c.Command() {
	case scsi.ReceiveDiagnostic, scsi.SendDiagnostic, scsi.Inquiry:
		// 16 bit length at bytes 3 and 4, unlike other 6 byte commands
		return uint32(order.Uint16(c.cdb[3:5]))
	}
	switch c.CdbLen() {
	case 6:
		return uint32(c.cdb[4])
	case 10:
		return uint32(order.Uint16(c.cdb[7:9]))
	case 12:
		return uint32(order.Uint32(c.cdb[6:10]))
	case 16:
		return uint32(order.Uint32(c.cdb[10:14]))
	default:
		log.Errorf("What XferLen has this length: %d", c.CdbLen())
		panic("unusal scsi command length")
	}
}

// Write, for a SCSICmd, is a io.Writer to the data buffer attached to this SCSI command.
// It's writing *to* the buffer, which happens when responding to data-in commands such as RECEIVE DIAGNOSTIC RESULTS.
func (c *SCSICmd) Write(b []byte) (n int, err error) {
	toWrite := len(b)
	boff := 0
	for toWrite != 0 {
		if c.vecoffset == len(c.vecs) {
			return boff, errors.New("out of buffer scsi cmd buffer space")
		}
		wrote := copy(c.vecs[c.vecoffset][c.offset:], b[boff:])
		boff += wrote
		toWrite -= wrote
		c.offset += wrote
		c.xfered += wrote
		if c.offset == len(c.vecs[c.vecoffset]) {
			c.vecoffset++
			c.offset = 0
		}
	}
	return boff, nil
}

// Read, for a SCSICmd, is a io.Reader from the data buffer attached to this SCSI command.
// Data-out commands such as SEND DIAGNOSTIC carry their parameter list this way.
func (c *SCSICmd) Read(b []byte) (n int, err error) {
	toRead := len(b)
	boff := 0
	for toRead != 0 {
		if c.vecoffset == len(c.vecs) {
			return boff, io.EOF
		}
		read := copy(b[boff:], c.vecs[c.vecoffset][c.offset:])
		boff += read
		toRead -= read
		c.offset += read
		c.xfered += read
		if c.offset == len(c.vecs[c.vecoffset]) {
			c.vecoffset++
			c.offset = 0
		}
	}
	return boff, nil
}

// Transferred returns the number of data bytes moved so far.
func (c *SCSICmd) Transferred() int {
	return c.xfered
}

// GetCDB returns the byte at `index` inside the command.
func (c *SCSICmd) GetCDB(index int) byte {
	return c.cdb[index]
}

// Ok creates a SCSIResponse to this command with SAM_STAT_GOOD, the common case for commands that succeed.
func (c *SCSICmd) Ok() SCSIResponse {
	return SCSIResponse{status: scsi.SamStatGood}
}

// RespondStatus returns a SCSIResponse with the given status byte set. Ok() is equivalent to RespondStatus(scsi.SamStatGood).
func (c *SCSICmd) RespondStatus(status byte) SCSIResponse {
	return SCSIResponse{status: status}
}

// RespondSenseData returns a SCSIResponse with the given status byte set and takes a byte array representing the SCSI sense data to be written.
func (c *SCSICmd) RespondSenseData(status byte, sense []byte) SCSIResponse {
	return SCSIResponse{
		status:      status,
		senseBuffer: sense,
	}
}

// NotHandled creates a response and sense data that tells the initiator this target does not emulate this command.
func (c *SCSICmd) NotHandled() SCSIResponse {
	return c.CheckCondition(scsi.SenseIllegalRequest, scsi.AscInvalidCommandOpcode)
}

// CheckCondition returns a response providing extra sense data. Takes a Sense Key and an Additional Sense Code.
func (c *SCSICmd) CheckCondition(key byte, asc uint16) SCSIResponse {
	return SCSIResponse{
		status:      scsi.SamStatCheckCondition,
		senseBuffer: scsi.FixedSense(key, asc),
	}
}

// MediumError is a preset response for a read error condition from the device
func (c *SCSICmd) MediumError() SCSIResponse {
	return c.CheckCondition(scsi.SenseMediumError, scsi.AscReadError)
}

// IllegalRequest is a preset response for a request that is malformed or unexpected.
func (c *SCSICmd) IllegalRequest() SCSIResponse {
	return c.CheckCondition(scsi.SenseIllegalRequest, scsi.AscInvalidFieldInCdb)
}

// TargetFailure is a preset response for returning a hardware error.
func (c *SCSICmd) TargetFailure() SCSIResponse {
	return c.CheckCondition(scsi.SenseHardwareError, scsi.AscInternalTargetFailure)
}

// A SCSIResponse is generated from methods on SCSICmd.
type SCSIResponse struct {
	status      byte
	senseBuffer []byte
}

// Status returns the SAM status byte.
func (r SCSIResponse) Status() byte {
	return r.status
}

// Sense returns the sense data, if any.
func (r SCSIResponse) Sense() []byte {
	return r.senseBuffer
}
