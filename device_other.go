//go:build !linux
// +build !linux

package ses

import (
	"time"

	"github.com/pkg/errors"
)

var errNoSG = errors.New("SCSI generic pass-through needs Linux")

// Device is unavailable on this platform; use an Enclosure and hex input.
type Device struct{}

func OpenDevice(path string) (*Device, error) {
	return nil, errors.Wrap(errNoSG, path)
}

func (d *Device) SetTimeout(t time.Duration) {}

func (d *Device) Path() string { return "" }

func (d *Device) Close() error { return nil }

func (d *Device) Inquiry() (byte, InquiryInfo, error) {
	return 0, InquiryInfo{}, errNoSG
}

func (d *Device) ReceiveDiag(page byte, buf []byte) (int, error) {
	return 0, errNoSG
}

func (d *Device) SendDiag(buf []byte) error {
	return errNoSG
}

func FindEnclosures() ([]string, error) {
	return nil, errNoSG
}
