// Package ses decodes and controls SCSI Enclosure Services diagnostic
// pages. It parses the Configuration page into an element directory,
// renders status pages, relates the Enclosure Status, Element Descriptor,
// Threshold In and Additional Element Status pages into a per element
// join, and reads or writes control fields by acronym or bit position.
package ses

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Engine owns the page buffers and the join for one enclosure. It is not
// safe for concurrent use.
type Engine struct {
	t    Transport
	opts Options

	cfgBuf  []byte
	esBuf   []byte
	edBuf   []byte
	thBuf   []byte
	aesBuf  []byte
	scratch []byte

	cfg  *ConfigPage
	join *Join
}

// NewEngine returns an engine talking to the enclosure through t.
func NewEngine(t Transport, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	n := o.MaxPageLen
	return &Engine{
		t:       t,
		opts:    o,
		cfgBuf:  make([]byte, n),
		esBuf:   make([]byte, n),
		edBuf:   make([]byte, n),
		thBuf:   make([]byte, n),
		aesBuf:  make([]byte, n),
		scratch: make([]byte, n),
	}
}

// Options returns the engine's options.
func (e *Engine) Options() *Options {
	return &e.opts
}

func (e *Engine) bufferFor(page byte) []byte {
	switch page {
	case PageConfiguration:
		return e.cfgBuf
	case PageEnclosureStatus:
		return e.esBuf
	case PageElementDescriptor:
		return e.edBuf
	case PageThreshold:
		return e.thBuf
	case PageAdditionalStatus:
		return e.aesBuf
	}
	return e.scratch
}

// Fetch reads a page into its buffer and returns the received bytes,
// clipped to the page length. Refetching a page invalidates the join.
func (e *Engine) Fetch(page byte) ([]byte, error) {
	buf := e.bufferFor(page)
	for i := range buf {
		buf[i] = 0
	}
	if page != PageConfiguration {
		e.join = nil
	}
	n, err := e.t.ReceiveDiag(page, buf)
	if err != nil {
		return nil, err
	}
	e.opts.Logger.Debugf("receive diagnostic results: page 0x%x, %d bytes", page, n)
	b, err := pageWindow(buf[:n], 4)
	if err != nil {
		return nil, errors.Wrapf(err, "page 0x%x", page)
	}
	if b[0] != page {
		return nil, errors.Wrapf(ErrInconsistent, "asked for page 0x%x, got 0x%x", page, b[0])
	}
	return b, nil
}

// Configuration fetches and parses the Configuration page.
func (e *Engine) Configuration() (*ConfigPage, error) {
	b, err := e.Fetch(PageConfiguration)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(b, e.opts.Logger)
	if err != nil {
		return nil, err
	}
	e.cfg = cfg
	e.join = nil
	return cfg, nil
}

func (e *Engine) config() (*ConfigPage, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	return e.Configuration()
}

func needsConfig(page byte) bool {
	switch page {
	case PageEnclosureStatus, PageArrayStatus, PageThreshold, PageElementDescriptor, PageAdditionalStatus:
		return true
	}
	return false
}

// SupportedPages returns the page codes the enclosure lists in its
// Supported Diagnostic Pages page.
func (e *Engine) SupportedPages() ([]byte, error) {
	b, err := e.Fetch(PageSupported)
	if err != nil {
		return nil, err
	}
	codes, err := SupportedPages(b)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), codes...), nil
}

// DecodePage fetches page and renders it to w.
func (e *Engine) DecodePage(w io.Writer, page byte) error {
	var cfg *ConfigPage
	if needsConfig(page) {
		var err error
		if cfg, err = e.Configuration(); err != nil {
			return err
		}
	}
	b, err := e.Fetch(page)
	if err != nil {
		return err
	}
	return DecodePage(w, b, cfg, &e.opts)
}

// DecodeAll renders every page the enclosure supports.
func (e *Engine) DecodeAll(w io.Writer) error {
	codes, err := e.SupportedPages()
	if err != nil {
		return err
	}
	for _, c := range codes {
		if c == PageSupported {
			continue
		}
		if err := e.DecodePage(w, c); err != nil {
			var te *TransportError
			if errors.As(err, &te) && te.UnsupportedPage() {
				e.opts.Logger.Warnf("page 0x%x listed as supported but rejected", c)
				continue
			}
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

// Raw fetches page and writes it to w as hex.
func (e *Engine) Raw(w io.Writer, page byte) error {
	b, err := e.Fetch(page)
	if err != nil {
		return err
	}
	return WriteRaw(w, b)
}

// fetchOptional fetches a page the enclosure may not implement. A nil
// slice without error means the page is not supported.
func (e *Engine) fetchOptional(page byte) ([]byte, error) {
	b, err := e.Fetch(page)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.UnsupportedPage() {
			e.opts.Logger.Debugf("page 0x%x not supported, joining without it", page)
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// Join fetches the pages and relates them. Threshold In is included when
// thresholds is set. Every page must carry the Configuration page's
// generation code.
func (e *Engine) Join(thresholds bool) (*Join, error) {
	cfg, err := e.Configuration()
	if err != nil {
		return nil, err
	}
	var pages JoinPages
	if pages.ES, err = e.Fetch(PageEnclosureStatus); err != nil {
		return nil, err
	}
	if pages.ED, err = e.fetchOptional(PageElementDescriptor); err != nil {
		return nil, err
	}
	if pages.AES, err = e.fetchOptional(PageAdditionalStatus); err != nil {
		return nil, err
	}
	if thresholds {
		if pages.TH, err = e.fetchOptional(PageThreshold); err != nil {
			return nil, err
		}
	}
	j, err := BuildJoin(cfg, pages, &e.opts)
	if err != nil {
		return nil, err
	}
	e.join = j
	return j, nil
}

// Show joins the pages and renders the rows sel picks, or every row when
// sel is nil.
func (e *Engine) Show(w io.Writer, sel *Selector, thresholds bool) error {
	j, err := e.Join(thresholds)
	if err != nil {
		return err
	}
	var rows []*JoinRow
	if sel != nil {
		if rows, err = j.Select(*sel); err != nil {
			return err
		}
	} else {
		for i := range j.Rows {
			rows = append(rows, &j.Rows[i])
		}
	}
	return j.Render(w, rows, &e.opts)
}
