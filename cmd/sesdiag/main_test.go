package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ses "github.com/coreos/go-ses"
)

// writePages writes a Configuration page with one array device slot and
// its Enclosure Status page to a hex file.
func writePages(t *testing.T) string {
	cfg := make([]byte, 8+40+4)
	cfg[0] = ses.PageConfiguration
	binary.BigEndian.PutUint16(cfg[2:4], uint16(len(cfg)-4))
	binary.BigEndian.PutUint32(cfg[4:8], 7)
	copy(cfg[8:12], []byte{0x11, 0, 1, 36})
	copy(cfg[20:28], "ACME    ")
	copy(cfg[28:44], "JBOD            ")
	copy(cfg[44:48], "0100")
	copy(cfg[48:52], []byte{ses.ETArrayDevice, 1, 0, 0})

	es := make([]byte, 8+8)
	es[0] = ses.PageEnclosureStatus
	binary.BigEndian.PutUint16(es[2:4], uint16(len(es)-4))
	binary.BigEndian.PutUint32(es[4:8], 7)
	es[12] = 0x01

	var buf bytes.Buffer
	require.NoError(t, ses.WriteRaw(&buf, cfg))
	require.NoError(t, ses.WriteRaw(&buf, es))
	name := filepath.Join(t.TempDir(), "pages.hex")
	require.NoError(t, os.WriteFile(name, buf.Bytes(), 0644))
	return name
}

func writeDefaults(t *testing.T, text string) string {
	name := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(name, []byte(text), 0644))
	return name
}

func TestRun(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	data := writePages(t)

	var tests = []struct {
		desc string
		args []string
		code int
		out  string
	}{
		{desc: "enumerate", args: []string{"-enumerate"}, out: "Array device slot"},
		{desc: "decode configuration", args: []string{"-data", data, "-page", "cf"}, out: "Configuration diagnostic page:"},
		{desc: "decode by number", args: []string{"-data", data, "-page", "0x2"}, out: "Enclosure Status diagnostic page:"},
		{desc: "join", args: []string{"-data", data, "-join"}, out: "[0,0]  Element type: Array device slot"},
		{desc: "get", args: []string{"-data", data, "-index", "0,0", "-get", "ident"}, out: "0\n"},
		{desc: "get in hex", args: []string{"-data", data, "-index", "arr", "-get", "0:3:4", "-hex"}, out: "0x1\n"},
		{desc: "set", args: []string{"-data", data, "-index", "0,0", "-set", "ident"}},
		{desc: "page the enclosure lacks", args: []string{"-data", data, "-page", "th"}, code: exitIllegalRequest},
		{desc: "all pages", args: []string{"-data", data, "-page", "all"}, out: "Enclosure Status diagnostic page:"},
		{desc: "vendor page 0xff is a page", args: []string{"-data", data, "-page", "0xff"}, code: exitIllegalRequest},
		{desc: "no such element", args: []string{"-data", data, "-index", "0,5", "-get", "ident"}, code: exitLookupMiss},
		{desc: "unknown acronym", args: []string{"-data", data, "-index", "0,0", "-set", "sparkle"}, code: exitLookupMiss},
		{desc: "field without selector", args: []string{"-data", data, "-get", "ident"}, code: exitSyntax},
		{desc: "two selectors", args: []string{"-data", data, "-index", "0,0", "-dsn", "1"}, code: exitSyntax},
		{desc: "unknown flag", args: []string{"-sparkle"}, code: exitSyntax},
		{desc: "bad eiioe", args: []string{"-data", data, "-eiioe", "sometimes"}, code: exitSyntax},
		{desc: "missing data file", args: []string{"-data", filepath.Join(t.TempDir(), "nope")}, code: exitFile},
	}

	for i, tt := range tests {
		var out bytes.Buffer
		code := run(tt.args, &out)
		if code != tt.code {
			t.Fatalf("[%02d] test %q, unexpected exit code:\n- want: %d\n-  got: %d\n%s", i, tt.desc, tt.code, code, out.String())
		}
		if tt.out != "" {
			assert.Contains(t, out.String(), tt.out, "[%02d] test %q", i, tt.desc)
		}
	}
}

func TestRunDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	data := writePages(t)

	var out bytes.Buffer
	code := run([]string{"-defaults", writeDefaults(t, "hex: true\neiioe: AUTO\n"), "-data", data, "-index", "0,0", "-get", "0:3:4"}, &out)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "0x1\n", out.String())

	// flags win over the file
	out.Reset()
	code = run([]string{"-defaults", writeDefaults(t, "hex: true\n"), "-hex=false", "-data", data, "-index", "0,0", "-get", "0:3:4"}, &out)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "1\n", out.String())

	// the home directory file is picked up without -defaults
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, defaultsName), []byte("device: "+data+"\nfilter: 7\n"), 0644))
	assert.Equal(t, exitSyntax, run([]string{"-data", data}, &bytes.Buffer{}))
}

func TestDefaults(t *testing.T) {
	d, err := LoadDefaults(writeDefaults(t, "filter: 2\nbyte1: 0x10\nmax_page_len: 4096\nverbose: 1\n"))
	require.NoError(t, err)
	require.NoError(t, d.Validate())
	d.Normalize()
	assert.Equal(t, Defaults{Filter: 2, Byte1: 0x10, MaxPageLen: 4096, Verbose: 1, EIIOE: "off"}, *d)

	d, err = LoadDefaults(writeDefaults(t, ""))
	require.NoError(t, err)
	d.Normalize()
	assert.Equal(t, ses.DefaultMaxPageLen, d.MaxPageLen)

	_, err = LoadDefaults(writeDefaults(t, "colour: blue\n"))
	assert.True(t, errors.Is(err, ses.ErrConstraint), "%v", err)

	d, err = LoadDefaults(writeDefaults(t, "filter: 3\neiioe: sometimes\nbyte1: 300\nmax_page_len: 4\n"))
	require.NoError(t, err)
	err = d.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ses.ErrConstraint))
	for _, want := range []string{"filter 3", "eiioe \"sometimes\"", "byte1 300", "max_page_len 4"} {
		assert.Contains(t, err.Error(), want)
	}

	_, err = LoadDefaults(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, exitFile, exitCode(err))
}

func TestExitCode(t *testing.T) {
	var tests = []struct {
		desc string
		err  error
		code int
	}{
		{desc: "success", code: exitOK},
		{desc: "state changed", err: errors.Wrap(ses.ErrStateChanged, "es"), code: exitStateChanged},
		{desc: "truncated", err: errors.Wrap(ses.ErrTruncated, "config"), code: exitMalformed},
		{desc: "inconsistent", err: ses.ErrInconsistent, code: exitInconsistent},
		{desc: "lookup miss", err: errors.Wrap(ses.ErrLookupMiss, "acronym"), code: exitLookupMiss},
		{desc: "constraint", err: ses.ErrConstraint, code: exitSyntax},
		{desc: "illegal request", err: &ses.TransportError{Kind: ses.TransportIllegalRequest}, code: exitIllegalRequest},
		{desc: "not ready", err: &ses.TransportError{Kind: ses.TransportNotReady}, code: exitNotReady},
		{desc: "unit attention", err: &ses.TransportError{Kind: ses.TransportUnitAttention}, code: exitUnitAttention},
		{desc: "medium", err: &ses.TransportError{Kind: ses.TransportMedium}, code: exitMedium},
		{desc: "aborted", err: &ses.TransportError{Kind: ses.TransportAborted}, code: exitAborted},
		{desc: "reservation conflict", err: &ses.TransportError{Kind: ses.TransportReservationConflict}, code: exitReservationConflict},
		{desc: "host error", err: errors.Wrap(&ses.TransportError{Kind: ses.TransportOther}, "sg"), code: exitOther},
		{desc: "file", err: errors.Wrap(&os.PathError{Op: "open", Path: "x", Err: os.ErrNotExist}, "data"), code: exitFile},
		{desc: "anything else", err: errors.New("boom"), code: exitOther},
	}

	for i, tt := range tests {
		if got := exitCode(tt.err); got != tt.code {
			t.Fatalf("[%02d] test %q, unexpected exit code:\n- want: %d\n-  got: %d", i, tt.desc, tt.code, got)
		}
	}
}
