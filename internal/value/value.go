// Package value decodes user-supplied constants into 4-byte little-endian patterns.
package value

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Width is the size of a decoded value in bytes.
const Width = 4

// ratioSeparators separate width and height in a ratio such as 16:9 or 21x9.
const ratioSeparators = ":xX"

// ErrInvalidValue is returned when the input matches none of the notations.
var ErrInvalidValue = errors.New("无效的数值")

// Parse decodes s, trying in order:
//
//	hex quad     "39 8E E3 3F"  four hex bytes, taken verbatim
//	ratio        "16:9", "21x9" float32(w/h), w and h both positive
//	float        "1.7777778"    float32
//
// Ratios and floats are encoded as little-endian IEEE-754 float32.
func Parse(s string) ([]byte, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: 输入为空", ErrInvalidValue)
	}

	if b, ok := parseHexQuad(s); ok {
		return b, nil
	}
	if f, ok := parseRatio(s); ok {
		return FromFloat(f), nil
	}
	if f, ok := parseFloat(s); ok {
		return FromFloat(f), nil
	}

	return nil, fmt.Errorf("%w: '%s' (应为十六进制、比例或浮点数)", ErrInvalidValue, s)
}

// FromFloat encodes f as little-endian IEEE-754 bytes.
func FromFloat(f float32) []byte {
	b := make([]byte, Width)
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
	return b
}

// Describe formats b as hex bytes, followed by its float32 reading when b is
// exactly Width bytes, e.g. "39 8E E3 3F (1.7777778)".
func Describe(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	hex := strings.Join(parts, " ")

	if len(b) != Width {
		return hex
	}
	f := math.Float32frombits(binary.LittleEndian.Uint32(b))
	return fmt.Sprintf("%s (%g)", hex, f)
}

// parseHexQuad accepts leading but not trailing whitespace.
func parseHexQuad(s string) ([]byte, bool) {
	if strings.TrimRightFunc(s, unicode.IsSpace) != s {
		return nil, false
	}
	fields := strings.Fields(s)
	if len(fields) != Width {
		return nil, false
	}

	b := make([]byte, Width)
	for i, f := range fields {
		f = strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, false
		}
		b[i] = byte(v)
	}
	return b, true
}

func parseRatio(s string) (float32, bool) {
	i := strings.IndexAny(s, ratioSeparators)
	if i <= 0 {
		return 0, false
	}

	w, ok := parseFloat(s[:i])
	if !ok {
		return 0, false
	}
	h, ok := parseFloat(s[i+1:])
	if !ok {
		return 0, false
	}
	if !(w > 0) || !(h > 0) {
		return 0, false
	}

	return w / h, true
}

// parseFloat accepts leading but not trailing whitespace.
func parseFloat(s string) (float32, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, false
	}
	return float32(f), true
}
