package pe

import (
	"errors"
	"fmt"
)

// ErrPatternWidth is returned for target/replacement values of unequal or zero width.
var ErrPatternWidth = errors.New("目标值与替换值宽度无效")

// Pattern is a fixed-width target and its replacement.
type Pattern struct {
	target      []byte
	replacement []byte
}

// NewPattern creates a pattern. Both values must be non-empty and the same width.
func NewPattern(target, replacement []byte) (Pattern, error) {
	if len(target) == 0 || len(target) != len(replacement) {
		return Pattern{}, fmt.Errorf("%w: 目标 %d 字节, 替换 %d 字节", ErrPatternWidth, len(target), len(replacement))
	}

	return Pattern{
		target:      append([]byte(nil), target...),
		replacement: append([]byte(nil), replacement...),
	}, nil
}

// Width returns the pattern width in bytes.
func (p Pattern) Width() int {
	return len(p.target)
}

// Target returns a copy of the target bytes.
func (p Pattern) Target() []byte {
	return append([]byte(nil), p.target...)
}

// Replacement returns a copy of the replacement bytes.
func (p Pattern) Replacement() []byte {
	return append([]byte(nil), p.replacement...)
}

// SectionMatches is the number of matches found in one section.
type SectionMatches struct {
	Index int
	Name  string
	Count int
}

// Result is the outcome of a single patch or count run.
type Result struct {
	// Recognized is true when the buffer parsed as a PE image and only
	// patchable data sections were scanned. False means the whole buffer
	// was scanned unaligned.
	Recognized bool
	// Total is the number of matched positions.
	Total int
	// Sections lists every section with at least one match, in table order.
	Sections []SectionMatches
	// Offsets lists every matched file offset in scan order.
	Offsets []int
}

// Patch replaces every occurrence of the pattern target with its replacement,
// in place. In a recognized PE image only patchable data sections are
// scanned, at offsets aligned to the pattern width; any other buffer is
// scanned at every byte offset.
//
// Patch performs no I/O. Persisting data is the caller's responsibility.
func Patch(data []byte, p Pattern) (Result, error) {
	return run(data, p, true)
}

// Count is Patch without the write: it reports what Patch would replace.
func Count(data []byte, p Pattern) (Result, error) {
	return run(data, p, false)
}

func run(data []byte, p Pattern, write bool) (Result, error) {
	if p.Width() == 0 || len(p.replacement) != p.Width() {
		return Result{}, ErrPatternWidth
	}

	s := newScanner(data, p, write)
	res := Result{}

	res.Recognized = Walk(data, func(sec Section) bool {
		if !sec.IsPatchableData() {
			return true
		}

		start, end := sec.Range(len(data))
		if n := s.aligned(start, end); n > 0 {
			res.Sections = append(res.Sections, SectionMatches{
				Index: sec.Index,
				Name:  sec.Name,
				Count: n,
			})
			res.Total += n
		}
		return true
	})

	if !res.Recognized {
		res.Total = s.unaligned(0, len(data))
	}

	res.Offsets = s.offsets
	return res, nil
}
