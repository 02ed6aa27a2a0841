package ses

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Diagnostic page codes used by SES.
const (
	PageSupported         = 0x00
	PageConfiguration     = 0x01
	PageEnclosureStatus   = 0x02 // Enclosure Control on SEND
	PageHelpText          = 0x03
	PageString            = 0x04
	PageThreshold         = 0x05 // Threshold Out on SEND
	PageArrayStatus       = 0x06 // obsolete
	PageElementDescriptor = 0x07
	PageShortStatus       = 0x08
	PageEnclosureBusy     = 0x09
	PageAdditionalStatus  = 0x0a
	PageSubencHelpText    = 0x0b
	PageSubencString      = 0x0c
	PageSupportedSES      = 0x0d
	PageDownloadMicrocode = 0x0e
	PageSubencNickname    = 0x0f

	// PageAll is outside the page code space; "all" asks for every
	// supported page. 0xff stays a vendor specific page.
	PageAll = -1
)

// Element type codes.
const (
	ETUnspecified      = 0x00
	ETDevice           = 0x01
	ETPowerSupply      = 0x02
	ETCooling          = 0x03
	ETTemperature      = 0x04
	ETDoor             = 0x05
	ETAudibleAlarm     = 0x06
	ETESCElectronics   = 0x07
	ETSCCElectronics   = 0x08
	ETNVCache          = 0x09
	ETInvalidOpReason  = 0x0a
	ETUPS              = 0x0b
	ETDisplay          = 0x0c
	ETKeyPad           = 0x0d
	ETEnclosure        = 0x0e
	ETSCSIPortXcvr     = 0x0f
	ETLanguage         = 0x10
	ETCommPort         = 0x11
	ETVoltageSensor    = 0x12
	ETCurrentSensor    = 0x13
	ETSCSITargetPort   = 0x14
	ETSCSIInitPort     = 0x15
	ETSimpleSubenc     = 0x16
	ETArrayDevice      = 0x17
	ETSASExpander      = 0x18
	ETSASConnector     = 0x19
	numElementTypes    = 0x1a
	etVendorSpecificLo = 0x80
)

// Transport protocol identifiers found in AES descriptors.
const (
	ProtoFCP  = 0x0
	ProtoSAS  = 0x6
	ProtoPCIe = 0xb
)

// AllElementTypes marks an acronym that applies to every element type.
const AllElementTypes = -1

type pageInfo struct {
	code   int
	abbrev string
	name   string
}

var pageCatalog = []pageInfo{
	{PageSupported, "sdp", "Supported Diagnostic Pages"},
	{PageConfiguration, "cf", "Configuration (SES)"},
	{PageEnclosureStatus, "es", "Enclosure Status/Control (SES)"},
	{PageHelpText, "ht", "Help Text (SES)"},
	{PageString, "str", "String In/Out (SES)"},
	{PageThreshold, "th", "Threshold In/Out (SES)"},
	{PageArrayStatus, "as", "Array Status/Control (SES, obsolete)"},
	{PageElementDescriptor, "ed", "Element Descriptor (SES)"},
	{PageShortStatus, "ses", "Short Enclosure Status (SES)"},
	{PageEnclosureBusy, "eb", "Enclosure Busy (SES-2)"},
	{PageAdditionalStatus, "aes", "Additional Element Status (SES-2)"},
	{PageSubencHelpText, "sht", "Subenclosure Help Text (SES-2)"},
	{PageSubencString, "sstr", "Subenclosure String In/Out (SES-2)"},
	{PageSupportedSES, "ssp", "Supported SES Diagnostic Pages (SES-2)"},
	{PageDownloadMicrocode, "dm", "Download Microcode (SES-2)"},
	{PageSubencNickname, "snic", "Subenclosure Nickname (SES-2)"},
	{0x3f, "", "Protocol Specific (SAS transport)"},
	{0x40, "", "Translate Address (SBC)"},
	{0x41, "", "Device Status (SBC)"},
	{0x42, "", "Rebuild Assist (SBC)"},
	{PageAll, "all", "All SES pages"},
}

// aliases for the control names of pages
var pageAbbrevAliases = map[string]int{
	"ec":   PageEnclosureStatus,
	"ac":   PageArrayStatus,
	"dc":   PageDownloadMicrocode,
	"nick": PageSubencNickname,
}

// PageName returns a printable name for a diagnostic page code.
func PageName(code byte) string {
	for _, p := range pageCatalog {
		if p.code == int(code) {
			return p.name
		}
	}
	switch {
	case code >= 0x10 && code <= 0x1f:
		return fmt.Sprintf("<vendor specific (SES) [0x%x]>", code)
	case code >= 0x80:
		return fmt.Sprintf("<vendor specific [0x%x]>", code)
	}
	return fmt.Sprintf("<unknown [0x%x]>", code)
}

// PageByAbbrev resolves a page abbreviation such as "es" or "aes".
func PageByAbbrev(abbrev string) (byte, bool) {
	abbrev = strings.ToLower(abbrev)
	if c, ok := pageAbbrevAliases[abbrev]; ok {
		return byte(c), true
	}
	for _, p := range pageCatalog {
		if p.code >= 0 && p.abbrev != "" && p.abbrev == abbrev {
			return byte(p.code), true
		}
	}
	return 0, false
}

type elementTypeInfo struct {
	code   int
	abbrev string
	name   string
}

var elementTypeCatalog = []elementTypeInfo{
	{ETUnspecified, "un", "Unspecified"},
	{ETDevice, "dev", "Device slot"},
	{ETPowerSupply, "ps", "Power supply"},
	{ETCooling, "coo", "Cooling"},
	{ETTemperature, "ts", "Temperature sensor"},
	{ETDoor, "do", "Door"},
	{ETAudibleAlarm, "aa", "Audible alarm"},
	{ETESCElectronics, "esc", "Enclosure services controller electronics"},
	{ETSCCElectronics, "sce", "SCC controller electronics"},
	{ETNVCache, "nc", "Nonvolatile cache"},
	{ETInvalidOpReason, "ior", "Invalid operation reason"},
	{ETUPS, "ups", "Uninterruptible power supply"},
	{ETDisplay, "dis", "Display"},
	{ETKeyPad, "kpe", "Key pad entry"},
	{ETEnclosure, "enc", "Enclosure"},
	{ETSCSIPortXcvr, "sp", "SCSI port/transceiver"},
	{ETLanguage, "lan", "Language"},
	{ETCommPort, "cp", "Communication port"},
	{ETVoltageSensor, "vs", "Voltage sensor"},
	{ETCurrentSensor, "cs", "Current sensor"},
	{ETSCSITargetPort, "stp", "SCSI target port"},
	{ETSCSIInitPort, "sip", "SCSI initiator port"},
	{ETSimpleSubenc, "ss", "Simple subenclosure"},
	{ETArrayDevice, "arr", "Array device slot"},
	{ETSASExpander, "sse", "SAS expander"},
	{ETSASConnector, "ssc", "SAS connector"},
}

// ElementTypeName returns the name of an element type code.
func ElementTypeName(etype byte) string {
	if int(etype) < len(elementTypeCatalog) {
		return elementTypeCatalog[etype].name
	}
	if etype >= etVendorSpecificLo {
		return fmt.Sprintf("vendor specific [0x%x]", etype)
	}
	return fmt.Sprintf("reserved [0x%x]", etype)
}

// ElementTypeByAbbrev resolves an element type abbreviation such as "dev".
func ElementTypeByAbbrev(abbrev string) (byte, bool) {
	abbrev = strings.ToLower(abbrev)
	for _, et := range elementTypeCatalog {
		if et.abbrev == abbrev {
			return byte(et.code), true
		}
	}
	return 0, false
}

// IsElementTypeUsedByAES reports whether elements of etype may have an
// Additional Element Status descriptor.
func IsElementTypeUsedByAES(etype byte) bool {
	switch etype {
	case ETDevice, ETArrayDevice, ETSASExpander, ETSCSIInitPort,
		ETSCSITargetPort, ETESCElectronics:
		return true
	}
	return false
}

// Acronym names a bit field within a descriptor of one diagnostic page.
type Acronym struct {
	Name string
	// ElementType is the element type the field belongs to, or AllElementTypes.
	ElementType int
	StartByte   int
	StartBit    int
	NumBits     int
	Info        string
}

// Acronyms for the Enclosure Status/Control page element descriptors.
var enclosureControlAcronyms = []Acronym{
	{"ac_fail", ETUPS, 2, 4, 1, ""},
	{"ac_fail", ETPowerSupply, 3, 1, 1, ""},
	{"ac_hi", ETUPS, 2, 6, 1, ""},
	{"ac_lo", ETUPS, 2, 7, 1, ""},
	{"ac_qual", ETUPS, 2, 5, 1, ""},
	{"active", ETDevice, 2, 7, 1, ""},
	{"active", ETArrayDevice, 2, 7, 1, ""},
	{"batt_fail", ETUPS, 3, 1, 1, ""},
	{"bpf", ETUPS, 3, 0, 1, ""},
	{"bypa", ETDevice, 3, 3, 1, "bypass port A"},
	{"bypa", ETArrayDevice, 3, 3, 1, "bypass port A"},
	{"bypb", ETDevice, 3, 2, 1, "bypass port B"},
	{"bypb", ETArrayDevice, 3, 2, 1, "bypass port B"},
	{"conscheck", ETArrayDevice, 1, 4, 1, "consistency check"},
	{"ctr_link", ETSASConnector, 2, 7, 8, "connector physical link"},
	{"ctr_type", ETSASConnector, 1, 6, 7, "connector type"},
	{"current", ETCurrentSensor, 2, 7, 16, "current in centiamps"},
	{"dc_fail", ETUPS, 2, 3, 1, ""},
	{"dc_fail", ETPowerSupply, 3, 0, 1, ""},
	{"dc_over", ETPowerSupply, 2, 3, 1, ""},
	{"dc_overcurrent", ETPowerSupply, 2, 1, 1, ""},
	{"dc_under", ETPowerSupply, 2, 2, 1, ""},
	{"devoff", ETDevice, 3, 4, 1, "device off"},
	{"devoff", ETArrayDevice, 3, 4, 1, "device off"},
	{"dev_off", ETDevice, 3, 4, 1, "device off"},
	{"dev_off", ETArrayDevice, 3, 4, 1, "device off"},
	{"disable", AllElementTypes, 0, 5, 1, ""},
	{"disable_elm", ETSCSIPortXcvr, 3, 4, 1, "disable port/transceiver"},
	{"disable_elm", ETCommPort, 3, 0, 1, "disable communication port"},
	{"dnr", ETArrayDevice, 2, 6, 1, "do not remove"},
	{"dnr", ETDevice, 2, 6, 1, "do not remove"},
	{"dnr", ETPowerSupply, 1, 6, 1, "do not remove"},
	{"dnr", ETCooling, 1, 6, 1, "do not remove"},
	{"dnr", ETUPS, 3, 5, 1, "do not remove"},
	{"do_not_remove", ETDevice, 2, 6, 1, ""},
	{"do_not_remove", ETArrayDevice, 2, 6, 1, ""},
	{"enable", ETSCSIInitPort, 3, 0, 1, ""},
	{"enable", ETSCSITargetPort, 3, 0, 1, ""},
	{"enc_bypa", ETDevice, 2, 5, 1, "enclosure bypassed port A"},
	{"enc_bypa", ETArrayDevice, 2, 5, 1, "enclosure bypassed port A"},
	{"enc_bypb", ETDevice, 2, 4, 1, "enclosure bypassed port B"},
	{"enc_bypb", ETArrayDevice, 2, 4, 1, "enclosure bypassed port B"},
	{"fail", ETUPS, 3, 6, 1, ""},
	{"fail", ETPowerSupply, 3, 6, 1, ""},
	{"fail", ETCooling, 3, 6, 1, ""},
	{"fail", AllElementTypes, 1, 6, 1, ""},
	{"fail_ind", ETEnclosure, 2, 1, 1, "failure indication"},
	{"fail_rqst", ETEnclosure, 3, 1, 1, "failure requested"},
	{"fault", ETDevice, 3, 5, 1, "fault requested"},
	{"fault", ETArrayDevice, 3, 5, 1, "fault requested"},
	{"fault_sensed", ETDevice, 3, 6, 1, ""},
	{"fault_sensed", ETArrayDevice, 3, 6, 1, ""},
	{"hotspare", ETArrayDevice, 1, 5, 1, ""},
	{"hotswap", ETCooling, 3, 7, 1, ""},
	{"hotswap", ETPowerSupply, 3, 7, 1, ""},
	{"hotswap", ETESCElectronics, 3, 7, 1, ""},
	{"ident", ETDevice, 2, 1, 1, "flash LED"},
	{"ident", ETArrayDevice, 2, 1, 1, "flash LED"},
	{"ident", ETUPS, 3, 7, 1, "flash LED"},
	{"ident", AllElementTypes, 1, 7, 1, "flash LED"},
	{"incritarray", ETArrayDevice, 1, 3, 1, ""},
	{"infailedarray", ETArrayDevice, 1, 2, 1, ""},
	{"info", ETAudibleAlarm, 3, 3, 1, "emits warning tone when set"},
	{"insert", ETDevice, 2, 3, 1, ""},
	{"insert", ETArrayDevice, 2, 3, 1, ""},
	{"intf_fail", ETUPS, 2, 0, 1, ""},
	{"language", ETLanguage, 2, 7, 16, "language code"},
	{"locate", ETDevice, 2, 1, 1, "flash LED"},
	{"locate", ETArrayDevice, 2, 1, 1, "flash LED"},
	{"locate", ETUPS, 3, 7, 1, "flash LED"},
	{"locate", AllElementTypes, 1, 7, 1, "flash LED"},
	{"lol", ETSCSIPortXcvr, 3, 1, 1, "loss of link"},
	{"mated", ETSASConnector, 3, 7, 1, ""},
	{"missing", ETDevice, 2, 4, 1, ""},
	{"missing", ETArrayDevice, 2, 4, 1, ""},
	{"mute", ETAudibleAlarm, 3, 6, 1, "control only: mute the alarm"},
	{"muted", ETAudibleAlarm, 3, 6, 1, "status only: alarm is muted"},
	{"non_crit", ETAudibleAlarm, 3, 2, 1, ""},
	{"crit", ETAudibleAlarm, 3, 1, 1, ""},
	{"off", ETPowerSupply, 3, 4, 1, "not providing power"},
	{"off", ETCooling, 3, 4, 1, "not providing cooling"},
	{"offset_temp", ETTemperature, 1, 5, 6, "offset for reference temperature"},
	{"ok", ETArrayDevice, 1, 7, 1, ""},
	{"on", ETCooling, 3, 5, 1, ""},
	{"on", ETPowerSupply, 3, 5, 1, "0: turn (remain) off; 1: turn on"},
	{"open", ETDoor, 3, 1, 1, ""},
	{"overcurrent", ETCurrentSensor, 1, 1, 1, "overcurrent"},
	{"overcurrent", ETSASConnector, 3, 5, 1, ""},
	{"overcurrent_warn", ETCurrentSensor, 1, 3, 1, "overcurrent warning"},
	{"overtemp_fail", ETTemperature, 3, 3, 1, "overtemperature failure"},
	{"overtemp_fail", ETPowerSupply, 3, 3, 1, "overtemperature failure"},
	{"overtemp_warn", ETTemperature, 3, 2, 1, "overtemperature warning"},
	{"overvoltage", ETVoltageSensor, 1, 1, 1, "overvoltage"},
	{"overvoltage_warn", ETVoltageSensor, 1, 3, 1, "overvoltage warning"},
	{"pow_cycle", ETEnclosure, 2, 7, 2,
		"0: no; 1: start in pow_c_delay minutes; 2: cancel"},
	{"pow_c_delay", ETEnclosure, 2, 5, 6,
		"delay in minutes before power cycle (max 60)"},
	{"pow_c_duration", ETEnclosure, 3, 7, 6,
		"0: power off, restore within 1 minute; <=60: restore within that " +
			"many minutes; 63: power off, wait for manual power on"},
	{"pow_c_time", ETEnclosure, 2, 7, 6,
		"time in minutes remaining until starting power cycle; 0: not " +
			"scheduled; <=60: scheduled in that many minutes; 63: in zero minutes"},
	{"prdfail", AllElementTypes, 0, 6, 1, "predict failure"},
	{"rebuildremap", ETArrayDevice, 1, 1, 1, ""},
	{"remind", ETAudibleAlarm, 3, 4, 1, ""},
	{"remove", ETDevice, 2, 2, 1, ""},
	{"remove", ETArrayDevice, 2, 2, 1, ""},
	{"report", ETESCElectronics, 2, 0, 1, ""},
	{"report", ETSCCElectronics, 2, 0, 1, ""},
	{"report", ETSCSIInitPort, 2, 0, 1, ""},
	{"report", ETSCSITargetPort, 2, 0, 1, ""},
	{"report", ETSCSIPortXcvr, 2, 0, 1, ""},
	{"rqst_mute", ETAudibleAlarm, 3, 7, 1,
		"status only: alarm was manually silenced"},
	{"rqst_override", ETTemperature, 3, 7, 1, "request(ed) override"},
	{"rrabort", ETArrayDevice, 1, 0, 1, "rebuild/remap abort"},
	{"rsvddevice", ETArrayDevice, 1, 6, 1, "reserved device"},
	{"select_element", ETESCElectronics, 2, 0, 1, ""},
	{"short_stat", ETSimpleSubenc, 3, 7, 8, "short enclosure status"},
	{"size", ETNVCache, 2, 7, 16, ""},
	{"size_mult", ETNVCache, 1, 1, 2, ""},
	{"speed_act", ETCooling, 1, 2, 11, "actual speed (rpm / 10)"},
	{"speed_code", ETCooling, 3, 2, 3,
		"0: leave; 1: lowest... 7: highest"},
	{"swap", AllElementTypes, 0, 4, 1, ""},
	{"temp", ETTemperature, 2, 7, 8, "(requested) temperature"},
	{"temp_warn", ETPowerSupply, 3, 2, 1, ""},
	{"ups_fail", ETUPS, 2, 2, 1, ""},
	{"undertemp_fail", ETTemperature, 3, 1, 1, "undertemperature failure"},
	{"undertemp_warn", ETTemperature, 3, 0, 1, "undertemperature warning"},
	{"undervoltage", ETVoltageSensor, 1, 0, 1, "undervoltage"},
	{"undervoltage_warn", ETVoltageSensor, 1, 2, 1, "undervoltage warning"},
	{"unlock", ETDoor, 3, 0, 1, ""},
	{"unrecov", ETAudibleAlarm, 3, 0, 1, ""},
	{"urgency", ETAudibleAlarm, 3, 3, 4, "tone urgency control bits"},
	{"voltage", ETVoltageSensor, 2, 7, 16, "voltage in centivolts"},
	{"warn_ind", ETEnclosure, 2, 0, 1, "warning indication"},
	{"warn_rqst", ETEnclosure, 3, 0, 1, "warning requested"},
	{"warning", ETUPS, 2, 1, 1, ""},
	{"warning_ind", ETEnclosure, 3, 0, 1, ""},
	{"xmit_fail", ETSCSIPortXcvr, 3, 0, 1, "transmitter failure"},
}

// Acronyms for the Threshold In/Out page descriptors.
var thresholdAcronyms = []Acronym{
	{"high_crit", AllElementTypes, 0, 7, 8, ""},
	{"high_warn", AllElementTypes, 1, 7, 8, ""},
	{"low_crit", AllElementTypes, 3, 7, 8, ""},
	{"low_warn", AllElementTypes, 2, 7, 8, ""},
}

// Acronyms for SAS Additional Element Status descriptors with EIP set.
// These are read-only.
var aesSASAcronyms = []Acronym{
	{"at_sas_addr", AllElementTypes, 12, 7, 64, "attached SAS address"},
	{"dev_type", AllElementTypes, 8, 6, 3, "1: SAS/SATA dev, 2: expander"},
	{"dsn", AllElementTypes, 7, 7, 8, "device slot number (255: none)"},
	{"num_phys", AllElementTypes, 4, 7, 8, "number of phys"},
	{"phy_id", AllElementTypes, 28, 7, 8, ""},
	{"sas_addr", AllElementTypes, 20, 7, 64, "in hex"},
	{"exp_sas_addr", AllElementTypes, 8, 7, 64, "expander SAS address"},
	{"sata_dev", AllElementTypes, 11, 0, 1, ""},
	{"sata_port_sel", AllElementTypes, 11, 7, 1, ""},
	{"smp_init", AllElementTypes, 10, 1, 1, ""},
	{"smp_targ", AllElementTypes, 11, 1, 1, ""},
	{"ssp_init", AllElementTypes, 10, 3, 1, ""},
	{"ssp_targ", AllElementTypes, 11, 3, 1, ""},
	{"stp_init", AllElementTypes, 10, 2, 1, ""},
	{"stp_targ", AllElementTypes, 11, 2, 1, ""},
}

// acronymTable returns the acronym table that serves a page.
func acronymTable(page byte) []Acronym {
	switch page {
	case PageEnclosureStatus, PageArrayStatus:
		return enclosureControlAcronyms
	case PageThreshold:
		return thresholdAcronyms
	case PageAdditionalStatus:
		return aesSASAcronyms
	}
	return nil
}

// Masks applied to an element status descriptor before it is sent back as
// control; indexed by element type. Byte 0 keeps only PRDFAIL.
var elementControlMasks = [numElementTypes][4]byte{
	{0x40, 0xff, 0xff, 0xff}, // unspecified
	{0x40, 0, 0x4e, 0x3c},    // device slot
	{0x40, 0x80, 0, 0x60},    // power supply
	{0x40, 0x80, 0, 0x60},    // cooling
	{0x40, 0xc0, 0, 0},       // temperature
	{0x40, 0xc0, 0, 0x1},     // door
	{0x40, 0xc0, 0, 0x5f},    // audible alarm
	{0x40, 0xc0, 0x1, 0},     // ESC electronics
	{0x40, 0xc0, 0, 0},       // SCC electronics
	{0x40, 0xc0, 0, 0},       // nonvolatile cache
	{0x40, 0, 0, 0},          // invalid operation reason
	{0x40, 0, 0, 0xc0},       // UPS
	{0x40, 0xc0, 0xff, 0xff}, // display
	{0x40, 0xc3, 0, 0},       // key pad
	{0x40, 0x80, 0, 0xff},    // enclosure
	{0x40, 0xc0, 0, 0x10},    // SCSI port/transceiver
	{0x40, 0x80, 0xff, 0xff}, // language
	{0x40, 0xc0, 0, 0x1},     // communication port
	{0x40, 0xc0, 0, 0},       // voltage sensor
	{0x40, 0xc0, 0, 0},       // current sensor
	{0x40, 0xc0, 0, 0x1},     // SCSI target port
	{0x40, 0xc0, 0, 0x1},     // SCSI initiator port
	{0x40, 0xc0, 0, 0},       // simple subenclosure
	{0x40, 0xff, 0x4e, 0x3c}, // array device slot
	{0x40, 0xc0, 0, 0},       // SAS expander
	{0x40, 0x80, 0, 0x40},    // SAS connector
}

// ControlMask returns the status-to-control mask for an element type.
func ControlMask(etype byte) [4]byte {
	if int(etype) < numElementTypes {
		return elementControlMasks[etype]
	}
	return [4]byte{0x40, 0xff, 0xff, 0xff}
}

var elementStatusCodes = [16]string{
	"Unsupported", "OK", "Critical", "Noncritical",
	"Unrecoverable", "Not installed", "Unknown", "Not available",
	"No access allowed", "reserved [9]", "reserved [10]", "reserved [11]",
	"reserved [12]", "reserved [13]", "reserved [14]", "reserved [15]",
}

// ElementStatusName names the status code in byte 0 of a status element.
func ElementStatusName(code byte) string {
	return elementStatusCodes[code&0xf]
}

// ListAcronyms writes the three acronym tables to w.
func ListAcronyms(w io.Writer) {
	for _, t := range []struct {
		title string
		tbl   []Acronym
	}{
		{"Enclosure Status/Control", enclosureControlAcronyms},
		{"Threshold In/Out", thresholdAcronyms},
		{"Additional Element Status (SAS, read only)", aesSASAcronyms},
	} {
		fmt.Fprintf(w, "%s page acronyms:\n", t.title)
		for _, a := range t.tbl {
			et := "*"
			if a.ElementType >= 0 {
				et = elementTypeCatalog[a.ElementType].abbrev
			}
			fmt.Fprintf(w, "  %-18s [%s] %d:%d:%d", a.Name, et, a.StartByte, a.StartBit, a.NumBits)
			if a.Info != "" {
				fmt.Fprintf(w, "  %s", a.Info)
			}
			fmt.Fprintln(w)
		}
	}
}

// ListPages writes the diagnostic page catalogue to w.
func ListPages(w io.Writer) {
	fmt.Fprintln(w, "Diagnostic pages, followed by abbreviation(s):")
	for _, p := range pageCatalog {
		names := []string{}
		if p.abbrev != "" {
			names = append(names, p.abbrev)
		}
		var aliases []string
		for a, c := range pageAbbrevAliases {
			if c == p.code {
				aliases = append(aliases, a)
			}
		}
		sort.Strings(aliases)
		abbrev := strings.Join(append(names, aliases...), ", ")
		if p.code < 0 {
			fmt.Fprintf(w, "  %4s  %-44s %s\n", "", p.name, abbrev)
			continue
		}
		fmt.Fprintf(w, "  0x%02x  %-44s %s\n", p.code, p.name, abbrev)
	}
}

// ListElementTypes writes the element type catalogue to w.
func ListElementTypes(w io.Writer) {
	fmt.Fprintln(w, "Element types, followed by abbreviation:")
	for _, et := range elementTypeCatalog {
		fmt.Fprintf(w, "  0x%02x  %-44s %s\n", et.code, et.name, et.abbrev)
	}
}
