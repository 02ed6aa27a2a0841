package ses

import (
	"fmt"

	"github.com/coreos/go-ses/scsi"
	"github.com/pkg/errors"
)

// Transport carries diagnostic pages to and from an enclosure.
type Transport interface {
	// ReceiveDiag fetches page into buf and returns the number of bytes
	// received, which may be short of len(buf).
	ReceiveDiag(page byte, buf []byte) (int, error)
	// SendDiag writes a control page.
	SendDiag(buf []byte) error
}

// TransportErrorKind classifies a failed diagnostic command.
type TransportErrorKind int

const (
	TransportOther TransportErrorKind = iota
	TransportIllegalRequest
	TransportUnitAttention
	TransportNotReady
	TransportMedium
	TransportAborted
	TransportReservationConflict
)

var transportErrorKindNames = map[TransportErrorKind]string{
	TransportOther:               "transport error",
	TransportIllegalRequest:      "illegal request",
	TransportUnitAttention:       "unit attention",
	TransportNotReady:            "not ready",
	TransportMedium:              "medium or hardware error",
	TransportAborted:             "aborted command",
	TransportReservationConflict: "reservation conflict",
}

func (k TransportErrorKind) String() string {
	return transportErrorKindNames[k]
}

// TransportError is a failed SEND DIAGNOSTIC or RECEIVE DIAGNOSTIC RESULTS.
type TransportError struct {
	Kind TransportErrorKind
	// Op is the CDB opcode.
	Op   byte
	Page byte
	// Status is the SAM status byte, when one was returned.
	Status   byte
	Sense    scsi.Sense
	HasSense bool
	// Err is the underlying error for host or driver failures.
	Err error
}

func (e *TransportError) Error() string {
	op := "receive diagnostic results"
	switch e.Op {
	case scsi.SendDiagnostic:
		op = "send diagnostic"
	case scsi.Inquiry:
		op = "inquiry"
	}
	msg := fmt.Sprintf("%s, page 0x%x: %s", op, e.Page, e.Kind)
	if e.HasSense {
		msg += ": " + e.Sense.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnsupportedPage reports an ILLEGAL REQUEST against the CDB, which is how
// an enclosure rejects a page code it does not implement.
func (e *TransportError) UnsupportedPage() bool {
	return e.Kind == TransportIllegalRequest && e.Sense.ASC == 0x24
}

// BadField reports an ILLEGAL REQUEST against the parameter list.
func (e *TransportError) BadField() bool {
	return e.Kind == TransportIllegalRequest && e.Sense.ASC == 0x26
}

// checkStatus turns a SAM status and its sense data into a *TransportError.
// Recovered errors and "no sense" check conditions count as success.
func checkStatus(op, page, status byte, sense []byte) error {
	switch status {
	case scsi.SamStatGood, scsi.SamStatConditionMet:
		return nil
	case scsi.SamStatReservationConflict:
		return &TransportError{Kind: TransportReservationConflict, Op: op, Page: page, Status: status}
	case scsi.SamStatCheckCondition, scsi.SamStatCommandTerminated:
	default:
		return &TransportError{Kind: TransportOther, Op: op, Page: page, Status: status,
			Err: errors.Errorf("status 0x%x", status)}
	}
	e := &TransportError{Kind: TransportOther, Op: op, Page: page, Status: status}
	s, ok := scsi.ParseSense(sense)
	if !ok {
		e.Err = errors.New("check condition without sense data")
		return e
	}
	e.Sense, e.HasSense = s, true
	switch s.Key {
	case scsi.SenseNoSense, scsi.SenseRecoveredError:
		return nil
	case scsi.SenseIllegalRequest:
		e.Kind = TransportIllegalRequest
	case scsi.SenseUnitAttention:
		e.Kind = TransportUnitAttention
	case scsi.SenseNotReady:
		e.Kind = TransportNotReady
	case scsi.SenseMediumError, scsi.SenseHardwareError:
		e.Kind = TransportMedium
	case scsi.SenseAbortedCommand:
		e.Kind = TransportAborted
	}
	return e
}

func receiveDiagCDB(page byte, allocLen int) []byte {
	if allocLen > 0xffff {
		allocLen = 0xffff
	}
	return []byte{scsi.ReceiveDiagnostic, scsi.ReceiveDiagPCV, page, byte(allocLen >> 8), byte(allocLen), 0}
}

func sendDiagCDB(paramLen int) []byte {
	return []byte{scsi.SendDiagnostic, scsi.SendDiagPF, 0, byte(paramLen >> 8), byte(paramLen), 0}
}

// CommandTransport runs diagnostic commands against a SCSICmdHandler, such
// as an emulated Enclosure.
type CommandTransport struct {
	Handler SCSICmdHandler
}

func (t CommandTransport) ReceiveDiag(page byte, buf []byte) (int, error) {
	if len(buf) > 0xffff {
		buf = buf[:0xffff]
	}
	cmd := NewSCSICmd(receiveDiagCDB(page, len(buf)), buf)
	resp, err := t.Handler.HandleCommand(cmd)
	if err != nil {
		return 0, &TransportError{Kind: TransportOther, Op: scsi.ReceiveDiagnostic, Page: page, Err: err}
	}
	if err := checkStatus(scsi.ReceiveDiagnostic, page, resp.Status(), resp.Sense()); err != nil {
		return 0, err
	}
	return cmd.Transferred(), nil
}

func (t CommandTransport) SendDiag(buf []byte) error {
	var page byte
	if len(buf) > 0 {
		page = buf[0]
	}
	if len(buf) > 0xffff {
		return &TransportError{Kind: TransportOther, Op: scsi.SendDiagnostic, Page: page,
			Err: errors.Errorf("parameter list of %d bytes too long", len(buf))}
	}
	cmd := NewSCSICmd(sendDiagCDB(len(buf)), buf)
	resp, err := t.Handler.HandleCommand(cmd)
	if err != nil {
		return &TransportError{Kind: TransportOther, Op: scsi.SendDiagnostic, Page: page, Err: err}
	}
	return checkStatus(scsi.SendDiagnostic, page, resp.Status(), resp.Sense())
}
