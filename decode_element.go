package ses

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// fieldWriter lays out "name=value" fields on indented lines.
type fieldWriter struct {
	buf    *bytes.Buffer
	indent string
	filter int
	n      int
}

func (fw *fieldWriter) sep() {
	if fw.n == 0 {
		fw.buf.WriteString(fw.indent)
	} else {
		fw.buf.WriteString(", ")
	}
	fw.n++
}

// flag writes a one bit (or small) field. Zero values are dropped when
// filtering.
func (fw *fieldWriter) flag(name string, v byte) {
	if fw.filter > 0 && v == 0 {
		return
	}
	fw.sep()
	fmt.Fprintf(fw.buf, "%s=%d", name, v)
}

func (fw *fieldWriter) text(format string, args ...interface{}) {
	fw.sep()
	fmt.Fprintf(fw.buf, format, args...)
}

func (fw *fieldWriter) line() {
	if fw.n > 0 {
		fw.buf.WriteByte('\n')
	}
	fw.n = 0
}

func bit(b byte, n uint) byte {
	return (b >> n) & 1
}

// FanSpeed returns the actual fan speed in rpm of a cooling element.
func FanSpeed(b []byte) int {
	afs := int(b[1]&0x7)<<8 | int(b[2])
	switch (b[1] >> 3) & 0x3 {
	case 1:
		return afs*10 + 20480
	case 2:
		return afs * 100
	}
	return afs * 10
}

// Temperature returns the temperature of a sensor status or threshold
// byte in degrees Celsius. ok is false for the reserved value 0.
func Temperature(v byte) (int, bool) {
	if v == 0 {
		return 0, false
	}
	return int(v) - 20, true
}

var fanSpeedCodes = [8]string{
	"stopped", "at lowest speed", "at second lowest speed",
	"at third lowest speed", "at intermediate speed",
	"at third highest speed", "at second highest speed", "at highest speed",
}

var nvCacheMultipliers = [4]string{"Bytes", "KiB", "MiB", "GiB"}

var invopTypes = [4]string{"SEND DIAGNOSTIC page code error", "SEND DIAGNOSTIC page format error", "Reserved", "Vendor specific error"}

var sasDeviceTypes = [8]string{
	"no SAS device attached", "end device", "expander device",
	"expander device (fanout, SAS-1.1)", "reserved [4]", "reserved [5]",
	"reserved [6]", "reserved [7]",
}

func centi(v int16) string {
	s := ""
	if v < 0 {
		s = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", s, v/100, v%100)
}

// writeElementStatus renders one 4 byte status descriptor of type etype.
func writeElementStatus(buf *bytes.Buffer, etype byte, b []byte, indent string, opts *Options) {
	fw := &fieldWriter{buf: buf, indent: indent, filter: opts.Filter}
	fw.flag("Predicted failure", bit(b[0], 6))
	fw.flag("Disabled", bit(b[0], 5))
	fw.flag("Swap", bit(b[0], 4))
	fw.text("status: %s", ElementStatusName(b[0]))
	if opts.Hex {
		fw.text("[%02x %02x %02x %02x]", b[0], b[1], b[2], b[3])
	}
	fw.line()

	switch etype {
	case ETDevice, ETArrayDevice:
		if etype == ETArrayDevice {
			fw.flag("OK", bit(b[1], 7))
			fw.flag("Reserved device", bit(b[1], 6))
			fw.flag("Hot spare", bit(b[1], 5))
			fw.flag("Cons check", bit(b[1], 4))
			fw.flag("In crit array", bit(b[1], 3))
			fw.flag("In failed array", bit(b[1], 2))
			fw.flag("Rebuild/remap", bit(b[1], 1))
			fw.flag("R/R abort", bit(b[1], 0))
			fw.line()
		} else {
			fw.text("Slot address: %d", b[1])
			fw.line()
		}
		fw.flag("App client bypassed A", bit(b[2], 7))
		fw.flag("Do not remove", bit(b[2], 6))
		fw.flag("Enc bypassed A", bit(b[2], 5))
		fw.flag("Enc bypassed B", bit(b[2], 4))
		fw.line()
		fw.flag("Ready to insert", bit(b[2], 3))
		fw.flag("RMV", bit(b[2], 2))
		fw.flag("Ident", bit(b[2], 1))
		fw.flag("Report", bit(b[2], 0))
		fw.line()
		fw.flag("App client bypassed B", bit(b[3], 7))
		fw.flag("Fault sensed", bit(b[3], 6))
		fw.flag("Fault reqstd", bit(b[3], 5))
		fw.flag("Device off", bit(b[3], 4))
		fw.line()
		fw.flag("Bypassed A", bit(b[3], 3))
		fw.flag("Bypassed B", bit(b[3], 2))
		fw.flag("Dev bypassed A", bit(b[3], 1))
		fw.flag("Dev bypassed B", bit(b[3], 0))
	case ETPowerSupply:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Do not remove", bit(b[1], 6))
		fw.flag("DC overvoltage", bit(b[2], 3))
		fw.flag("DC undervoltage", bit(b[2], 2))
		fw.flag("DC overcurrent", bit(b[2], 1))
		fw.line()
		fw.flag("Hot swap", bit(b[3], 7))
		fw.flag("Fail", bit(b[3], 6))
		fw.flag("Requested on", bit(b[3], 5))
		fw.flag("Off", bit(b[3], 4))
		fw.flag("Overtmp fail", bit(b[3], 3))
		fw.line()
		fw.flag("Temperature warn", bit(b[3], 2))
		fw.flag("AC fail", bit(b[3], 1))
		fw.flag("DC fail", bit(b[3], 0))
	case ETCooling:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Do not remove", bit(b[1], 6))
		fw.flag("Hot swap", bit(b[3], 7))
		fw.flag("Fail", bit(b[3], 6))
		fw.flag("Requested on", bit(b[3], 5))
		fw.line()
		fw.flag("Off", bit(b[3], 4))
		fw.text("Actual speed=%d rpm, Fan %s", FanSpeed(b), fanSpeedCodes[b[3]&0x7])
	case ETTemperature:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.flag("OT failure", bit(b[3], 3))
		fw.flag("OT warning", bit(b[3], 2))
		fw.flag("UT failure", bit(b[3], 1))
		fw.flag("UT warning", bit(b[3], 0))
		fw.line()
		if t, ok := Temperature(b[2]); ok {
			fw.text("Temperature=%d C", t)
		} else {
			fw.text("Temperature: <reserved>")
		}
	case ETDoor:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.flag("Open", bit(b[3], 1))
		fw.flag("Unlock", bit(b[3], 0))
	case ETAudibleAlarm:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.flag("Request mute", bit(b[3], 7))
		fw.flag("Mute", bit(b[3], 6))
		fw.flag("Remind", bit(b[3], 4))
		fw.line()
		fw.flag("Tone indicator: Info", bit(b[3], 3))
		fw.flag("Non-crit", bit(b[3], 2))
		fw.flag("Crit", bit(b[3], 1))
		fw.flag("Unrecov", bit(b[3], 0))
	case ETESCElectronics:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.flag("Report", bit(b[2], 0))
		fw.flag("Hot swap", bit(b[3], 7))
	case ETSCCElectronics:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.flag("Report", bit(b[2], 0))
	case ETNVCache:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.text("Size=%d %s", binary.BigEndian.Uint16(b[2:4]), nvCacheMultipliers[b[1]&0x3])
	case ETInvalidOpReason:
		fw.text("invop_type=%d (%s)", b[1]>>6, invopTypes[b[1]>>6])
		switch b[1] >> 6 {
		case 0:
			fw.flag("bit number", b[1]&0x7)
			fw.text("byte number=%d", binary.BigEndian.Uint16(b[2:4]))
		case 1:
			fw.text("byte offset=%d", binary.BigEndian.Uint16(b[2:4]))
		default:
			fw.text("last 3 bytes (hex): %02x %02x %02x", b[1], b[2], b[3])
		}
	case ETUPS:
		if b[1] == 0 {
			fw.text("Battery status: discharged or unknown")
		} else if b[1] == 0xff {
			fw.text("Battery status: 255 or more minutes remaining")
		} else {
			fw.text("Battery status: %d minutes remaining", b[1])
		}
		fw.line()
		fw.flag("AC low", bit(b[2], 7))
		fw.flag("AC high", bit(b[2], 6))
		fw.flag("AC qual", bit(b[2], 5))
		fw.flag("AC fail", bit(b[2], 4))
		fw.flag("DC fail", bit(b[2], 3))
		fw.line()
		fw.flag("UPS fail", bit(b[2], 2))
		fw.flag("Warn", bit(b[2], 1))
		fw.flag("Intf fail", bit(b[2], 0))
		fw.flag("Ident", bit(b[3], 7))
		fw.flag("Fail", bit(b[3], 6))
		fw.line()
		fw.flag("Do not remove", bit(b[3], 5))
		fw.flag("Batt fail", bit(b[3], 1))
		fw.flag("BPF", bit(b[3], 0))
	case ETDisplay:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.flag("Display mode status", b[1]&0x3)
		fw.text("Display character status=0x%x", binary.BigEndian.Uint16(b[2:4]))
	case ETKeyPad:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
	case ETEnclosure:
		fw.flag("Ident", bit(b[1], 7))
		fw.text("Time until power cycle=%d", b[2]>>2)
		fw.flag("Failure indication", bit(b[2], 1))
		fw.flag("Warning indication", bit(b[2], 0))
		fw.line()
		switch d := b[3] >> 2; d {
		case 0:
			fw.text("Requested power off duration: none")
		case 0x3f:
			fw.text("Requested power off duration: until manually restored")
		default:
			fw.text("Requested power off duration=%d minutes", d)
		}
		fw.flag("Failure requested", bit(b[3], 1))
		fw.flag("Warning requested", bit(b[3], 0))
	case ETSCSIPortXcvr:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.flag("Report", bit(b[2], 0))
		fw.flag("Disabled", bit(b[3], 4))
		fw.flag("Loss of link", bit(b[3], 1))
		fw.flag("Xmit fail", bit(b[3], 0))
	case ETLanguage:
		fw.flag("Ident", bit(b[1], 7))
		if b[2] == 0 && b[3] == 0 {
			fw.text("Language code: English (default)")
		} else {
			fw.text("Language code: %c%c", b[2], b[3])
		}
	case ETCommPort:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.flag("Disabled", bit(b[3], 0))
	case ETVoltageSensor:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.flag("Warn Over", bit(b[1], 3))
		fw.flag("Warn Under", bit(b[1], 2))
		fw.flag("Crit Over", bit(b[1], 1))
		fw.flag("Crit Under", bit(b[1], 0))
		fw.line()
		fw.text("Voltage: %s Volts", centi(int16(binary.BigEndian.Uint16(b[2:4]))))
	case ETCurrentSensor:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.flag("Warn Over", bit(b[1], 3))
		fw.flag("Crit Over", bit(b[1], 1))
		fw.line()
		fw.text("Current: %s Amps", centi(int16(binary.BigEndian.Uint16(b[2:4]))))
	case ETSCSITargetPort, ETSCSIInitPort:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.flag("Report", bit(b[2], 0))
		fw.flag("Enabled", bit(b[3], 0))
	case ETSimpleSubenc:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
		fw.text("Short enclosure status: 0x%x", b[3])
	case ETSASExpander:
		fw.flag("Ident", bit(b[1], 7))
		fw.flag("Fail", bit(b[1], 6))
	case ETSASConnector:
		fw.flag("Ident", bit(b[1], 7))
		fw.text("%s", connectorTypeName(b[1]&0x7f))
		fw.line()
		fw.text("Connector physical link=0x%x", b[2])
		fw.flag("Mated", bit(b[3], 7))
		fw.flag("Fail", bit(b[3], 6))
		fw.flag("Overcurrent", bit(b[3], 5))
	default:
		fw.text("status in hex: %02x %02x %02x %02x", b[0], b[1], b[2], b[3])
	}
	fw.line()
}

var connectorTypes = map[byte]string{
	0x0:  "No information",
	0x1:  "SAS 4x receptacle (SFF-8470) [max 4 phys]",
	0x2:  "Mini SAS 4x receptacle (SFF-8088) [max 4 phys]",
	0x3:  "QSFP+ receptacle (SFF-8436) [max 4 phys]",
	0x4:  "Mini SAS 4x active receptacle (SFF-8088) [max 4 phys]",
	0x5:  "Mini SAS HD 4x receptacle (SFF-8644) [max 4 phys]",
	0x6:  "Mini SAS HD 8x receptacle (SFF-8644) [max 8 phys]",
	0x7:  "Mini SAS HD 16x receptacle (SFF-8644) [max 16 phys]",
	0xf:  "Vendor specific external connector",
	0x10: "SAS 4i plug (SFF-8484) [max 4 phys]",
	0x11: "Mini SAS 4i receptacle (SFF-8087) [max 4 phys]",
	0x12: "Mini SAS HD 4i receptacle (SFF-8643) [max 4 phys]",
	0x13: "Mini SAS HD 8i receptacle (SFF-8643) [max 8 phys]",
	0x14: "Mini SAS HD 16i receptacle (SFF-8643) [max 16 phys]",
	0x15: "SlimSAS 4i (SFF-8654) [max 4 phys]",
	0x16: "SlimSAS 8i (SFF-8654) [max 8 phys]",
	0x17: "SAS MiniLink 4i (SFF-8612) [max 4 phys]",
	0x18: "SAS MiniLink 8i (SFF-8612) [max 8 phys]",
	0x20: "SAS Drive backplane receptacle (SFF-8482) [max 2 phys]",
	0x21: "SATA host plug [max 1 phy]",
	0x22: "SAS Drive plug (SFF-8482) [max 2 phys]",
	0x23: "SATA device plug [max 1 phy]",
	0x24: "Micro SAS receptacle [max 2 phys]",
	0x25: "Micro SATA device plug [max 1 phy]",
	0x26: "Micro SAS plug (SFF-8486) [max 2 phys]",
	0x27: "Micro SAS/SATA plug (SFF-8486) [max 2 phys]",
	0x28: "12 Gb/s SAS Drive backplane receptacle (SFF-8680) [max 2 phys]",
	0x29: "12 Gb/s SAS Drive plug (SFF-8680) [max 2 phys]",
	0x2a: "Multifunction 12 Gb/s 6x Unshielded receptacle (SFF-8639)",
	0x2b: "Multifunction 12 Gb/s 6x Unshielded plug (SFF-8639)",
	0x2f: "SAS virtual connector [max 1 phy]",
	0x3f: "Vendor specific internal connector",
}

func connectorTypeName(ct byte) string {
	if s, ok := connectorTypes[ct]; ok {
		return "Connector type: " + s
	}
	switch {
	case ct < 0x10:
		return fmt.Sprintf("Connector type: external [0x%x]", ct)
	case ct < 0x20:
		return fmt.Sprintf("Connector type: internal wide [0x%x]", ct)
	case ct < 0x30:
		return fmt.Sprintf("Connector type: internal connector to end device [0x%x]", ct)
	case ct < 0x70:
		return fmt.Sprintf("Connector type: reserved [0x%x]", ct)
	}
	return fmt.Sprintf("Connector type: vendor specific [0x%x]", ct)
}

// writeThreshold renders one 4 byte threshold descriptor of type etype.
func writeThreshold(buf *bytes.Buffer, etype byte, b []byte, indent string, opts *Options) {
	names := [4]string{"high critical", "high warning", "low warning", "low critical"}
	fw := &fieldWriter{buf: buf, indent: indent}
	for i, name := range names {
		v := b[i]
		switch etype {
		case ETTemperature:
			if t, ok := Temperature(v); ok {
				fw.text("%s=%d C", name, t)
			} else {
				fw.text("%s=<reserved>", name)
			}
		case ETUPS:
			if v == 0 {
				fw.text("%s=<vendor>", name)
			} else {
				fw.text("%s=%d minutes", name, v)
			}
		case ETVoltageSensor, ETCurrentSensor:
			fw.text("%s=%d.%d %%", name, v/2, 5*(v%2))
		default:
			fw.text("%s=%d", name, v)
		}
		if i == 1 {
			fw.line()
		}
	}
	if opts.Hex {
		fw.text("[%02x %02x %02x %02x]", b[0], b[1], b[2], b[3])
	}
	fw.line()
}
