package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	plog "github.com/prometheus/common/log"
	"github.com/sirupsen/logrus"

	ses "github.com/coreos/go-ses"
	"github.com/coreos/go-ses/scsi"
)

// exit codes
const (
	exitOK                  = 0
	exitSyntax              = 1
	exitNotReady            = 2
	exitMedium              = 3
	exitIllegalRequest      = 5
	exitUnitAttention       = 6
	exitAborted             = 11
	exitFile                = 15
	exitReservationConflict = 24
	exitLookupMiss          = 36
	exitStateChanged        = 40
	exitMalformed           = 41
	exitInconsistent        = 42
	exitOther               = 99
)

type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(s string) error {
	*l = append(*l, s)
	return nil
}

type cmdline struct {
	defaults string
	device   string
	data     string
	rawIn    bool

	page       string
	raw        bool
	join       bool
	thresholds bool
	enumerate  bool

	index      string
	descriptor string
	dsn        int
	sasAddr    string

	get, set, clear stringList
	nickname        string
	nickID          int

	filter      int
	hex         bool
	byte1       int
	maskIgnore  bool
	warn        bool
	eiioe       string
	maxLen      int
	verbose     bool
	veryVerbose bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	var c cmdline
	fs := flag.NewFlagSet("sesdiag", flag.ContinueOnError)
	fs.StringVar(&c.defaults, "defaults", "", "YAML defaults file (default ~/"+defaultsName+" when present)")
	fs.StringVar(&c.device, "device", "", "SCSI generic device of the enclosure, e.g. /dev/sg3")
	fs.StringVar(&c.data, "data", "", "read pages from a hex file instead of a device ('-' is stdin)")
	fs.BoolVar(&c.rawIn, "raw-in", false, "-data holds binary rather than hex")
	fs.StringVar(&c.page, "page", "", "page to decode, by abbreviation or number (default sdp, or es for field operations)")
	fs.BoolVar(&c.raw, "raw", false, "print the page in hex instead of decoding it")
	fs.BoolVar(&c.join, "join", false, "print the element join of the status pages")
	fs.BoolVar(&c.thresholds, "thresholds", false, "include Threshold In in the join")
	fs.BoolVar(&c.enumerate, "enumerate", false, "list page abbreviations, element types and field acronyms")
	fs.StringVar(&c.index, "index", "", "select elements by TIA,II or an element type abbreviation")
	fs.StringVar(&c.descriptor, "descriptor", "", "select the element with this descriptor text")
	fs.IntVar(&c.dsn, "dsn", -1, "select the element with this device slot number")
	fs.StringVar(&c.sasAddr, "sas_addr", "", "select the element with this SAS address")
	fs.Var(&c.get, "get", "read a field, by acronym or byte:bit[:nbits] (repeatable)")
	fs.Var(&c.set, "set", "set a field, acronym[=value] or byte:bit[:nbits][=value] (repeatable)")
	fs.Var(&c.clear, "clear", "clear a field (repeatable)")
	fs.StringVar(&c.nickname, "nickname", "", "set the subenclosure nickname")
	fs.IntVar(&c.nickID, "nickid", 0, "subenclosure id for -nickname")
	fs.IntVar(&c.filter, "filter", 0, "0 prints everything, 1 drops zero flags, 2 also drops absent elements")
	fs.BoolVar(&c.hex, "hex", false, "print status bytes and field values in hex")
	fs.IntVar(&c.byte1, "byte1", 0, "value of byte 1 in control pages")
	fs.BoolVar(&c.maskIgnore, "mask-ignore", false, "do not mask status bits before a set or clear")
	fs.BoolVar(&c.warn, "warn", false, "extra checks, such as refusing reserved threshold values")
	fs.StringVar(&c.eiioe, "eiioe", "off", "EIIOE promotion: off, auto or force")
	fs.IntVar(&c.maxLen, "maxlen", ses.DefaultMaxPageLen, "page buffer size")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
	fs.BoolVar(&c.veryVerbose, "vv", false, "debug logging, including the page engine")
	if err := fs.Parse(args); err != nil {
		return exitSyntax
	}

	d, err := loadDefaults(c.defaults)
	if err != nil {
		logrus.Error(err)
		return exitCode(err)
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	c.merge(d, set)
	if fs.NArg() > 1 {
		logrus.Errorf("unexpected arguments %q", fs.Args()[1:])
		return exitSyntax
	}
	if fs.NArg() == 1 {
		c.device = fs.Arg(0)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if c.verbose || c.veryVerbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if c.veryVerbose {
		plog.Base().SetLevel("debug")
	}

	if c.enumerate {
		ses.ListPages(stdout)
		fmt.Fprintln(stdout)
		ses.ListElementTypes(stdout)
		fmt.Fprintln(stdout)
		ses.ListAcronyms(stdout)
		return exitOK
	}

	if err := c.execute(stdout); err != nil {
		logrus.Error(err)
		return exitCode(err)
	}
	return exitOK
}

// merge takes values from the defaults file for every flag not given.
func (c *cmdline) merge(d *Defaults, set map[string]bool) {
	if !set["device"] {
		c.device = d.Device
	}
	if !set["filter"] {
		c.filter = d.Filter
	}
	if !set["hex"] {
		c.hex = d.Hex
	}
	if !set["eiioe"] {
		c.eiioe = d.EIIOE
	}
	if !set["byte1"] {
		c.byte1 = d.Byte1
	}
	if !set["mask-ignore"] {
		c.maskIgnore = d.MaskIgnore
	}
	if !set["warn"] {
		c.warn = d.Warn
	}
	if !set["maxlen"] {
		c.maxLen = d.MaxPageLen
	}
	if !set["v"] && !set["vv"] {
		c.verbose = d.Verbose > 0
		c.veryVerbose = d.Verbose > 1
	}
}

func (c *cmdline) options() ([]ses.Option, error) {
	mode, ok := ses.ParseEIIOEMode(c.eiioe)
	if !ok {
		return nil, errors.Wrapf(ses.ErrConstraint, "-eiioe %q, want off, auto or force", c.eiioe)
	}
	if c.filter < 0 || c.filter > 2 {
		return nil, errors.Wrapf(ses.ErrConstraint, "-filter %d not in 0..2", c.filter)
	}
	if c.byte1 < 0 || c.byte1 > 0xff {
		return nil, errors.Wrapf(ses.ErrConstraint, "-byte1 %d not in 0..255", c.byte1)
	}
	if c.maxLen < 8 || c.maxLen > ses.DefaultMaxPageLen {
		return nil, errors.Wrapf(ses.ErrConstraint, "-maxlen %d not in 8..%d", c.maxLen, ses.DefaultMaxPageLen)
	}
	return []ses.Option{
		ses.WithFilter(c.filter),
		ses.WithHex(c.hex),
		ses.WithByte1(byte(c.byte1)),
		ses.WithMaskIgnore(c.maskIgnore),
		ses.WithWarn(c.warn),
		ses.WithEIIOE(mode),
		ses.WithMaxPageLen(c.maxLen),
		ses.WithLogger(plog.Base()),
	}, nil
}

// selector returns the element selector given on the command line, or
// nil.
func (c *cmdline) selector() (*ses.Selector, error) {
	var (
		sel ses.Selector
		err error
		n   int
	)
	if c.index != "" {
		sel, err = ses.ParseIndex(c.index)
		n++
	}
	if c.descriptor != "" {
		sel = ses.DescriptorSelector(c.descriptor)
		n++
	}
	if c.dsn >= 0 {
		sel, err = ses.DevSlotSelector(c.dsn)
		n++
	}
	if c.sasAddr != "" {
		sel, err = ses.ParseSASAddrSelector(c.sasAddr)
		n++
	}
	switch {
	case n > 1:
		return nil, errors.Wrap(ses.ErrConstraint, "-index, -descriptor, -dsn and -sas_addr are mutually exclusive")
	case err != nil:
		return nil, err
	case n == 0:
		return nil, nil
	}
	return &sel, nil
}

func (c *cmdline) allPages() bool {
	return strings.EqualFold(c.page, "all")
}

func parsePage(s string) (byte, error) {
	if p, ok := ses.PageByAbbrev(s); ok {
		return p, nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, errors.Wrapf(ses.ErrConstraint, "page %q is neither an abbreviation nor a number", s)
	}
	return byte(n), nil
}

// transport opens the device, or loads the -data file into an emulated
// enclosure.
func (c *cmdline) transport() (ses.Transport, func(), error) {
	if c.data != "" {
		b, err := ses.LoadPages(c.data, c.rawIn)
		if err != nil {
			return nil, nil, err
		}
		pages, err := ses.SplitPages(b)
		if err != nil {
			return nil, nil, err
		}
		logrus.Debugf("loaded %d pages from %s", len(pages), c.data)
		return ses.CommandTransport{Handler: ses.NewEnclosure(pages...)}, func() {}, nil
	}
	if c.device == "" {
		return nil, nil, errors.Wrap(ses.ErrConstraint, "need a device or -data")
	}
	dev, err := ses.OpenDevice(c.device)
	if err != nil {
		return nil, nil, err
	}
	pdt, inq, err := dev.Inquiry()
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	logrus.Debugf("%s: %s %s %s", c.device, inq.VendorID, inq.ProductID, inq.ProductRev)
	if pdt != scsi.PeripheralEnclosure {
		logrus.Warnf("%s: peripheral device type 0x%x is not an enclosure, trying anyway", c.device, pdt)
	}
	return dev, func() { dev.Close() }, nil
}

func (c *cmdline) execute(w io.Writer) error {
	opts, err := c.options()
	if err != nil {
		return err
	}
	sel, err := c.selector()
	if err != nil {
		return err
	}
	fields := len(c.get) + len(c.set) + len(c.clear)
	if fields > 0 && sel == nil {
		return errors.Wrap(ses.ErrConstraint, "-get, -set and -clear need an element selector")
	}
	page := byte(ses.PageSupported)
	if c.page != "" && !c.allPages() {
		if page, err = parsePage(c.page); err != nil {
			return err
		}
	} else if fields > 0 {
		page = c.fieldPage()
	}

	if c.device == "" && c.data == "" && fields == 0 && c.nickname == "" {
		return listEnclosures(w)
	}
	t, closeFn, err := c.transport()
	if err != nil {
		return err
	}
	defer closeFn()
	e := ses.NewEngine(t, opts...)

	switch {
	case fields > 0:
		return c.control(w, e, page, sel)
	case c.nickname != "":
		if c.nickID < 0 || c.nickID > 0xff {
			return errors.Wrapf(ses.ErrConstraint, "-nickid %d not in 0..255", c.nickID)
		}
		return e.SetNickname(byte(c.nickID), c.nickname)
	case c.join || sel != nil:
		return e.Show(w, sel, c.thresholds)
	case c.allPages() && c.raw:
		return errors.Wrap(ses.ErrConstraint, "-raw needs a single page")
	case c.allPages():
		return e.DecodeAll(w)
	case c.raw:
		return e.Raw(w, page)
	}
	return e.DecodePage(w, page)
}

// fieldPage picks the page from the first acronym when -page is absent.
func (c *cmdline) fieldPage() byte {
	for _, l := range []stringList{c.get, c.set, c.clear} {
		for _, s := range l {
			f, err := ses.ParseField(s)
			if err != nil || f.Acronym == "" {
				continue
			}
			if p, ok := ses.AcronymPage(f.Acronym); ok {
				return p
			}
		}
	}
	return ses.PageEnclosureStatus
}

func (c *cmdline) control(w io.Writer, e *ses.Engine, page byte, sel *ses.Selector) error {
	var ops []ses.ControlOp
	for _, l := range []struct {
		kind   ses.OpKind
		fields stringList
	}{{ses.OpClear, c.clear}, {ses.OpSet, c.set}, {ses.OpGet, c.get}} {
		for _, s := range l.fields {
			op, err := ses.ParseControlOp(l.kind, s)
			if err != nil {
				return err
			}
			ops = append(ops, op)
		}
	}
	res, err := e.Control(page, sel, ops)
	if err != nil {
		return err
	}
	for _, r := range res {
		v := strconv.FormatUint(r.Value, 10)
		if c.hex {
			v = "0x" + strconv.FormatUint(r.Value, 16)
		}
		if len(res) == 1 {
			fmt.Fprintln(w, v)
			continue
		}
		fmt.Fprintf(w, "[%d,%d] %s=%s\n", r.Row.TypeIndex, r.Row.Indiv, r.Op.Field, v)
	}
	return nil
}

func listEnclosures(w io.Writer) error {
	devs, err := ses.FindEnclosures()
	if err != nil {
		return err
	}
	if len(devs) == 0 {
		return errors.Wrap(ses.ErrLookupMiss, "no enclosure found, give a device or -data")
	}
	for _, d := range devs {
		fmt.Fprintln(w, d)
	}
	return nil
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var te *ses.TransportError
	if errors.As(err, &te) {
		switch te.Kind {
		case ses.TransportIllegalRequest:
			return exitIllegalRequest
		case ses.TransportUnitAttention:
			return exitUnitAttention
		case ses.TransportNotReady:
			return exitNotReady
		case ses.TransportMedium:
			return exitMedium
		case ses.TransportAborted:
			return exitAborted
		case ses.TransportReservationConflict:
			return exitReservationConflict
		}
		return exitOther
	}
	var pe *os.PathError
	switch {
	case errors.Is(err, ses.ErrStateChanged):
		return exitStateChanged
	case errors.Is(err, ses.ErrInconsistent):
		return exitInconsistent
	case errors.Is(err, ses.ErrTruncated):
		return exitMalformed
	case errors.Is(err, ses.ErrLookupMiss), errors.Is(err, ses.ErrJoinBounds):
		return exitLookupMiss
	case errors.Is(err, ses.ErrConstraint):
		return exitSyntax
	case errors.As(err, &pe):
		return exitFile
	}
	return exitOther
}
