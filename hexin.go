package ses

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ParseHex reads ASCII hex from r. Bytes are separated by commas, blanks or
// newlines and '#' starts a comment. A token of one or two digits is one
// byte; longer tokens are split into pairs. A digit left over at the end
// of a line, either an odd trailing digit of a run or a lone digit, is
// carried over so a pair may straddle the line break. A carried lone digit
// joins only an odd length token; otherwise it is a byte of its own.
func ParseHex(r io.Reader) ([]byte, error) {
	var (
		out   []byte
		carry string
		lone  bool
		line  int
	)
	emit := func(tok string) error {
		b, err := hex.DecodeString(tok)
		if err != nil {
			return errors.Wrapf(ErrConstraint, "line %d: bad hex %q", line, tok)
		}
		out = append(out, b...)
		return nil
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		toks := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\r'
		})
		for k, tok := range toks {
			if carry != "" {
				if lone && len(tok)%2 == 0 {
					if err := emit("0" + carry); err != nil {
						return nil, err
					}
				} else {
					tok = carry + tok
				}
				carry, lone = "", false
			}
			switch {
			case len(tok) == 1 && k == len(toks)-1:
				carry, lone = tok, true
				continue
			case len(tok) == 1:
				tok = "0" + tok
			case len(tok)%2 == 1:
				carry = tok[len(tok)-1:]
				tok = tok[:len(tok)-1]
			}
			if err := emit(tok); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading hex")
	}
	if carry != "" {
		if !lone {
			return nil, errors.Wrapf(ErrConstraint, "dangling hex digit %q at end of input", carry)
		}
		if err := emit("0" + carry); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoadPages reads page bytes from name. "-" is stdin and a leading '@'
// is stripped. With raw set the input is binary, otherwise hex text.
func LoadPages(name string, raw bool) ([]byte, error) {
	var r io.Reader
	name = strings.TrimPrefix(name, "@")
	if name == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", name)
		}
		defer f.Close()
		r = f
	}
	if raw {
		return io.ReadAll(r)
	}
	return ParseHex(r)
}

// ParseHexString parses a command line hex string such as "00,00,00,04".
func ParseHexString(s string) ([]byte, error) {
	return ParseHex(strings.NewReader(s))
}

// SplitPages walks concatenated diagnostic pages by their length field.
// Trailing zero bytes are treated as padding.
func SplitPages(b []byte) ([][]byte, error) {
	var pages [][]byte
	for len(b) > 0 {
		if len(bytes.TrimRight(b, "\x00")) == 0 {
			break
		}
		if len(b) < 4 {
			return pages, errors.Wrapf(ErrTruncated, "%d trailing bytes after %d pages", len(b), len(pages))
		}
		n := int(binary.BigEndian.Uint16(b[2:4])) + 4
		if n > len(b) {
			return pages, errors.Wrapf(ErrTruncated, "page 0x%x claims %d bytes, %d remain", b[0], n, len(b))
		}
		pages = append(pages, b[:n:n])
		b = b[n:]
	}
	return pages, nil
}
