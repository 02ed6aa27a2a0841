//go:build linux
// +build linux

package ses

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	sgGetVersionNum = 0x2282
	sgIO            = 0x2285

	sgInfoOKMask = 0x1
	sgInfoOK     = 0x0

	// driver_status carries DRIVER_SENSE alongside a check condition.
	driverSense = 0x08
)

type sgDirection int32

const (
	dirNone       sgDirection = -1
	dirToDevice   sgDirection = -2
	dirFromDevice sgDirection = -3
)

/*
typedef struct sg_io_hdr {
  int interface_id;
  int dxfer_direction;
  unsigned char cmd_len;
  unsigned char mx_sb_len;
  unsigned short iovec_count;
  unsigned int dxfer_len;
  void __user *dxferp;
  unsigned char __user *cmdp;
  void __user *sbp;
  unsigned int timeout;
  unsigned int flags;
  int pack_id;
  void __user *usr_ptr;
  unsigned char status;
  unsigned char masked_status;
  unsigned char msg_status;
  unsigned char sb_len_wr;
  unsigned short host_status;
  unsigned short driver_status;
  int resid;
  unsigned int duration;
  unsigned int info;
} sg_io_hdr_t;
*/
type sgIOHdr struct {
	interfaceID    int32
	dxferDirection sgDirection
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         *byte
	cmdp           *byte
	sbp            *byte
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         uintptr
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

type sgResult struct {
	status byte
	sense  []byte
	// n is the number of data bytes moved.
	n int
}

func sgVersion(fd int) (int, error) {
	var v int32
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), sgGetVersionNum, uintptr(unsafe.Pointer(&v))); errno != 0 {
		return 0, errno
	}
	return int(v), nil
}

// execute runs one command through SG_IO. Only host and driver failures
// are returned as errors; the SCSI status is left to the caller.
func (d *Device) execute(cdb, data []byte, dir sgDirection) (sgResult, error) {
	sense := make([]byte, senseBufLen)
	hdr := sgIOHdr{
		interfaceID:    'S',
		dxferDirection: dir,
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        uint8(len(sense)),
		dxferLen:       uint32(len(data)),
		cmdp:           &cdb[0],
		sbp:            &sense[0],
		timeout:        uint32(d.timeout.Milliseconds()),
	}
	if len(data) == 0 {
		hdr.dxferDirection = dirNone
	} else {
		hdr.dxferp = &data[0]
	}
	logrus.Debugf("%s: cdb % x, %d data bytes", d.path, cdb, len(data))
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), sgIO, uintptr(unsafe.Pointer(&hdr))); errno != 0 {
		return sgResult{}, errors.Errorf("SG_IO: %v", errno)
	}
	if hdr.hostStatus != 0 {
		return sgResult{}, errors.Errorf("host status 0x%x", hdr.hostStatus)
	}
	if hdr.driverStatus&^driverSense != 0 {
		return sgResult{}, errors.Errorf("driver status 0x%x", hdr.driverStatus)
	}
	res := sgResult{status: hdr.status, n: len(data) - int(hdr.resid)}
	if hdr.info&sgInfoOKMask != sgInfoOK && hdr.sbLenWr > 0 {
		res.sense = sense[:hdr.sbLenWr]
	}
	if res.n < 0 {
		res.n = 0
	}
	return res, nil
}
