package scsi

/*
 * Values needed to talk to an SES device. Find codes in the various
 * SCSI specs; sense codes are at www.t10.org/lists/asc-num.txt
 */

/*
 * SCSI Opcodes
 */
const (
	TestUnitReady     = 0x00
	RequestSense      = 0x03
	Inquiry           = 0x12
	ReceiveDiagnostic = 0x1c
	SendDiagnostic    = 0x1d
	ReportLuns        = 0xa0
)

// CDB field bits for the diagnostic commands.
const (
	// RECEIVE DIAGNOSTIC RESULTS byte 1: page code valid
	ReceiveDiagPCV = 0x01
	// SEND DIAGNOSTIC byte 1: page format
	SendDiagPF = 0x10
	// SEND DIAGNOSTIC byte 1: self test
	SendDiagSelfTest = 0x04
)

// Peripheral device type of an enclosure services device (INQUIRY byte 0).
const PeripheralEnclosure = 0x0d

/*
 *  SCSI Architecture Model (Sam) Status codes. Taken from Sam-3 draft
 *  T10/1561-D Revision 4 Draft dated 7th November 2002.
 */
const (
	SamStatGood                = 0x00
	SamStatCheckCondition      = 0x02
	SamStatConditionMet        = 0x04
	SamStatBusy                = 0x08
	SamStatReservationConflict = 0x18
	SamStatCommandTerminated   = 0x22 /* obsolete in Sam-3 */
	SamStatTaskSetFull         = 0x28
	SamStatAcaActive           = 0x30
	SamStatTaskAborted         = 0x40
)

/*
 * Sense codes, ASC in the high byte and ASCQ in the low byte.
 */
const (
	AscNoAdditionalSense           = 0x0000
	AscLunNotReady                 = 0x0400
	AscLunNotReadyManualInterv     = 0x0403
	AscReadError                   = 0x1100
	AscParameterListLengthError    = 0x1a00
	AscInvalidCommandOpcode        = 0x2000
	AscInvalidFieldInCdb           = 0x2400
	AscInvalidFieldInParameterList = 0x2600
	AscPowerOnReset                = 0x2900
	AscParametersChanged           = 0x2a00
	AscEnclosureFailure            = 0x3500
	AscEnclosureServicesFailure    = 0x3501
	AscEnclosureServicesUnavail    = 0x3502
	AscEnclosureTransferFailure    = 0x3503
	AscEnclosureTransferRefused    = 0x3504
	AscEnclosureChecksumError      = 0x3505
	AscInternalTargetFailure       = 0x4400
)

/*
 * Sense Keys
 */
const (
	SenseNoSense        = 0x00
	SenseRecoveredError = 0x01
	SenseNotReady       = 0x02
	SenseMediumError    = 0x03
	SenseHardwareError  = 0x04
	SenseIllegalRequest = 0x05
	SenseUnitAttention  = 0x06
	SenseDataProtect    = 0x07
	SenseBlankCheck     = 0x08
	SenseCopyAborted    = 0x0a
	SenseAbortedCommand = 0x0b
	SenseVolumeOverflow = 0x0d
	SenseMiscompare     = 0x0e
)

var senseKeyNames = [16]string{
	"No Sense", "Recovered Error", "Not Ready", "Medium Error",
	"Hardware Error", "Illegal Request", "Unit Attention", "Data Protect",
	"Blank Check", "Vendor Specific", "Copy Aborted", "Aborted Command",
	"Equal", "Volume Overflow", "Miscompare", "Completed",
}

// SenseKeyName returns the T10 name of a sense key.
func SenseKeyName(key byte) string {
	return senseKeyNames[key&0xf]
}

var ascNames = map[uint16]string{
	AscNoAdditionalSense:           "No additional sense information",
	AscLunNotReady:                 "Logical unit not ready, cause not reportable",
	AscLunNotReadyManualInterv:     "Logical unit not ready, manual intervention required",
	AscReadError:                   "Unrecovered read error",
	AscParameterListLengthError:    "Parameter list length error",
	AscInvalidCommandOpcode:        "Invalid command operation code",
	AscInvalidFieldInCdb:           "Invalid field in cdb",
	AscInvalidFieldInParameterList: "Invalid field in parameter list",
	AscPowerOnReset:                "Power on, reset, or bus device reset occurred",
	AscParametersChanged:           "Parameters changed",
	AscEnclosureFailure:            "Unspecified enclosure services failure",
	AscEnclosureServicesFailure:    "Unsupported enclosure function",
	AscEnclosureServicesUnavail:    "Enclosure services unavailable",
	AscEnclosureTransferFailure:    "Enclosure services transfer failure",
	AscEnclosureTransferRefused:    "Enclosure services transfer refused",
	AscEnclosureChecksumError:      "Enclosure services checksum error",
	AscInternalTargetFailure:       "Internal target failure",
}

// AscName returns a description of an ASC/ASCQ pair, or "" when unknown.
func AscName(asc, ascq byte) string {
	return ascNames[uint16(asc)<<8|uint16(ascq)]
}
