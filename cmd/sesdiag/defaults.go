package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	ses "github.com/coreos/go-ses"
)

const defaultsName = ".sesdiag.yaml"

// Defaults are option values read from a YAML file. Command line flags
// take precedence.
type Defaults struct {
	Device     string `yaml:"device"`
	Filter     int    `yaml:"filter"`
	Hex        bool   `yaml:"hex"`
	EIIOE      string `yaml:"eiioe"`
	Byte1      int    `yaml:"byte1"`
	MaskIgnore bool   `yaml:"mask_ignore"`
	Warn       bool   `yaml:"warn"`
	MaxPageLen int    `yaml:"max_page_len"`
	Verbose    int    `yaml:"verbose"`
}

// defaultsPath returns the file named by -defaults, or ~/.sesdiag.yaml
// when that exists. "" means no defaults file.
func defaultsPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, defaultsName)
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// LoadDefaults reads a defaults file. Unknown keys are an error.
func LoadDefaults(path string) (*Defaults, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "defaults")
	}
	defer f.Close()

	var d Defaults
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && err != io.EOF {
		return nil, errors.Wrapf(ses.ErrConstraint, "defaults %s: %v", path, err)
	}
	return &d, nil
}

// Validate checks every value and reports all problems at once. It does
// not modify d.
func (d *Defaults) Validate() error {
	var merr *multierror.Error
	if d.Filter < 0 || d.Filter > 2 {
		merr = multierror.Append(merr, errors.Errorf("filter %d not in 0..2", d.Filter))
	}
	if _, ok := ses.ParseEIIOEMode(strings.ToLower(d.EIIOE)); !ok {
		merr = multierror.Append(merr, errors.Errorf("eiioe %q, want off, auto or force", d.EIIOE))
	}
	if d.Byte1 < 0 || d.Byte1 > 0xff {
		merr = multierror.Append(merr, errors.Errorf("byte1 %d not in 0..255", d.Byte1))
	}
	if d.MaxPageLen != 0 && (d.MaxPageLen < 8 || d.MaxPageLen > ses.DefaultMaxPageLen) {
		merr = multierror.Append(merr, errors.Errorf("max_page_len %d not in 8..%d", d.MaxPageLen, ses.DefaultMaxPageLen))
	}
	if d.Verbose < 0 {
		merr = multierror.Append(merr, errors.Errorf("verbose %d is negative", d.Verbose))
	}
	if err := merr.ErrorOrNil(); err != nil {
		return errors.Wrapf(ses.ErrConstraint, "defaults: %v", err)
	}
	return nil
}

// Normalize fills in unset values. Call it after Validate.
func (d *Defaults) Normalize() {
	d.EIIOE = strings.ToLower(d.EIIOE)
	if d.EIIOE == "" {
		d.EIIOE = "off"
	}
	if d.MaxPageLen == 0 {
		d.MaxPageLen = ses.DefaultMaxPageLen
	}
}

func loadDefaults(flagValue string) (*Defaults, error) {
	d := &Defaults{}
	if p := defaultsPath(flagValue); p != "" {
		var err error
		if d, err = LoadDefaults(p); err != nil {
			return nil, err
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	d.Normalize()
	return d, nil
}
