package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical renders d in the RFC 8785 canonical form used for
// fingerprints and golden snapshots:
//   - object keys ordered by UTF-16 code units
//   - no whitespace between tokens
//   - strings NFC normalized, only quote, backslash and control characters escaped
//   - integral numbers written without exponent or fraction
func MarshalCanonical(d Document) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(d.base()))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}

	var w canonWriter
	if err := w.value(tree); err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}
	return w.buf.Bytes(), nil
}

// canonWriter appends one decoded JSON tree to buf.
type canonWriter struct {
	buf bytes.Buffer
}

func (w *canonWriter) value(v any) error {
	switch x := v.(type) {
	case nil:
		w.buf.WriteString("null")
	case bool:
		w.buf.WriteString(strconv.FormatBool(x))
	case string:
		w.str(x)
	case json.Number:
		return w.number(x)
	case []any:
		w.buf.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			if err := w.value(elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		w.buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeysRFC8785)

		w.buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.str(k)
			w.buf.WriteByte(':')
			if err := w.value(x[k]); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		w.buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported value %T", v)
	}
	return nil
}

func (w *canonWriter) number(n json.Number) error {
	if i, err := n.Int64(); err == nil {
		w.buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("number %s: %w", n, err)
	}
	format := byte('g')
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		format = 'f'
	}
	w.buf.WriteString(strconv.FormatFloat(f, format, -1, 64))
	return nil
}

const hexDigits = "0123456789abcdef"

func (w *canonWriter) str(s string) {
	w.buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch {
		case r == '"' || r == '\\':
			w.buf.WriteByte('\\')
			w.buf.WriteRune(r)
		case r == '\b':
			w.buf.WriteString(`\b`)
		case r == '\f':
			w.buf.WriteString(`\f`)
		case r == '\n':
			w.buf.WriteString(`\n`)
		case r == '\r':
			w.buf.WriteString(`\r`)
		case r == '\t':
			w.buf.WriteString(`\t`)
		case r < 0x20:
			w.buf.WriteString(`\u00`)
			w.buf.WriteByte(hexDigits[r>>4])
			w.buf.WriteByte(hexDigits[r&0xf])
		default:
			w.buf.WriteRune(r)
		}
	}
	w.buf.WriteByte('"')
}

// compareKeysRFC8785 orders keys by UTF-16 code units, which differs from Go's
// byte order for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
