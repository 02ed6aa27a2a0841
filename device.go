//go:build linux
// +build linux

package ses

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-ses/scsi"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	// sg drivers older than 3.0 have no SG_IO.
	minSGVersion = 30000

	defaultTimeout = 60 * time.Second
	senseBufLen    = 64
)

// Device is an enclosure services device opened through the Linux SCSI
// generic driver. It implements Transport.
type Device struct {
	path    string
	fd      int
	timeout time.Duration
}

// OpenDevice opens an sg or bsg node, or a block device whose driver
// passes SG_IO through. Only sg nodes have their driver version checked.
// The returned Device must be closed.
func OpenDevice(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err == unix.EROFS || err == unix.EACCES {
		logrus.Debugf("Opening %s read/write failed (%v), retrying read only", path, err)
		fd, err = unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	d := &Device{path: path, fd: fd, timeout: defaultTimeout}
	if !isSGNode(path) {
		logrus.Debugf("Opened %s", path)
		return d, nil
	}
	v, err := sgVersion(fd)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "%s is not a SCSI generic device", path)
	}
	if v < minSGVersion {
		unix.Close(fd)
		return nil, errors.Errorf("%s: sg driver version %d, need at least %d", path, v, minSGVersion)
	}
	logrus.Debugf("Opened %s, sg driver version %d", path, v)
	return d, nil
}

// isSGNode reports whether path names an sg character device, /dev/sgN.
func isSGNode(path string) bool {
	dir, base := filepath.Split(filepath.Clean(path))
	if filepath.Clean(dir) != "/dev" || !strings.HasPrefix(base, "sg") {
		return false
	}
	_, err := strconv.Atoi(strings.TrimPrefix(base, "sg"))
	return err == nil
}

// SetTimeout changes the per command timeout.
func (d *Device) SetTimeout(t time.Duration) {
	d.timeout = t
}

func (d *Device) Path() string {
	return d.path
}

func (d *Device) Close() error {
	if d.fd == -1 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

// Inquiry runs a standard INQUIRY and returns the peripheral device type
// and the vendor, product and revision strings.
func (d *Device) Inquiry() (byte, InquiryInfo, error) {
	buf := make([]byte, 36)
	cdb := []byte{scsi.Inquiry, 0, 0, 0, byte(len(buf)), 0}
	res, err := d.execute(cdb, buf, dirFromDevice)
	if err != nil {
		return 0, InquiryInfo{}, err
	}
	if err := checkStatus(scsi.Inquiry, 0, res.status, res.sense); err != nil {
		return 0, InquiryInfo{}, err
	}
	if res.n < 36 {
		return 0, InquiryInfo{}, errors.Wrapf(ErrTruncated, "inquiry data of %d bytes", res.n)
	}
	return buf[0] & 0x1f, InquiryInfo{
		VendorID:   strings.TrimSpace(string(buf[8:16])),
		ProductID:  strings.TrimSpace(string(buf[16:32])),
		ProductRev: strings.TrimSpace(string(buf[32:36])),
	}, nil
}

func (d *Device) ReceiveDiag(page byte, buf []byte) (int, error) {
	if len(buf) > 0xffff {
		buf = buf[:0xffff]
	}
	res, err := d.execute(receiveDiagCDB(page, len(buf)), buf, dirFromDevice)
	if err != nil {
		return 0, &TransportError{Kind: TransportOther, Op: scsi.ReceiveDiagnostic, Page: page, Err: err}
	}
	if err := checkStatus(scsi.ReceiveDiagnostic, page, res.status, res.sense); err != nil {
		return 0, err
	}
	return res.n, nil
}

func (d *Device) SendDiag(buf []byte) error {
	var page byte
	if len(buf) > 0 {
		page = buf[0]
	}
	if len(buf) > 0xffff {
		return &TransportError{Kind: TransportOther, Op: scsi.SendDiagnostic, Page: page,
			Err: errors.Errorf("parameter list of %d bytes too long", len(buf))}
	}
	res, err := d.execute(sendDiagCDB(len(buf)), buf, dirToDevice)
	if err != nil {
		return &TransportError{Kind: TransportOther, Op: scsi.SendDiagnostic, Page: page, Err: err}
	}
	return checkStatus(scsi.SendDiagnostic, page, res.status, res.sense)
}

// FindEnclosures lists the sg nodes whose SCSI device reports the
// enclosure services peripheral type.
func FindEnclosures() ([]string, error) {
	matches, err := filepath.Glob("/sys/class/scsi_generic/sg*/device/type")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			logrus.Debugf("Skipping %s: %v", m, err)
			continue
		}
		if strings.TrimSpace(string(b)) != fmt.Sprint(scsi.PeripheralEnclosure) {
			continue
		}
		sg := filepath.Base(filepath.Dir(filepath.Dir(m)))
		out = append(out, filepath.Join("/dev", sg))
	}
	return out, nil
}
