// Package hexdump renders ciphertext for terminals: the space separated byte
// form the console front-end prints and reads back, and a classic offset dump.
package hexdump

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidHex is returned by Parse for tokens that are not a byte in hex.
var ErrInvalidHex = errors.New("invalid hex input")

// Format renders data as lowercase two-digit hex bytes separated by spaces,
// e.g. "01 2a 3b".
func Format(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

// Parse reads whitespace separated hex bytes as produced by Format. Each token
// must be one or two hex digits.
func Parse(s string) ([]byte, error) {
	fields := strings.Fields(s)
	out := make([]byte, 0, len(fields))
	for i, f := range fields {
		if len(f) > 2 {
			return nil, fmt.Errorf("%w: token %d %q is longer than one byte", ErrInvalidHex, i, f)
		}
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d %q", ErrInvalidHex, i, f)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// FHexDump writes a formatted hex dump of data to the provided writer.
// displayAddr is the starting address offset to display in the output.
func FHexDump(displayAddr uint, data []byte, w io.Writer) error {
	const bytesPerLine = 16
	for i := 0; i < len(data); i += bytesPerLine {
		line := data[i:min(i+bytesPerLine, len(data))]

		var sb strings.Builder
		fmt.Fprintf(&sb, "%08x  ", displayAddr+uint(i))
		for j := 0; j < bytesPerLine; j++ {
			if j < len(line) {
				fmt.Fprintf(&sb, "%02x ", line[j])
			} else {
				sb.WriteString("   ")
			}
			if j == 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(" |")
		for _, b := range line {
			if b < unicode.MaxASCII && unicode.IsPrint(rune(b)) {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")

		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}
