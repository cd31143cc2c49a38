package pe

import "bytes"

// scanner performs fixed-width find/replace over a buffer and accumulates
// the matches of a single run.
type scanner struct {
	data    []byte
	pattern Pattern
	write   bool

	offsets []int
	seen    map[int]struct{}
}

func newScanner(data []byte, p Pattern, write bool) *scanner {
	return &scanner{data: data, pattern: p, write: write}
}

// hit records a match at off. Positions already matched earlier in the run
// (overlapping section ranges) are not counted twice.
func (s *scanner) hit(off int) bool {
	if s.seen == nil {
		s.seen = make(map[int]struct{})
	}
	if _, dup := s.seen[off]; dup {
		return false
	}
	s.seen[off] = struct{}{}
	s.offsets = append(s.offsets, off)

	if s.write {
		copy(s.data[off:off+s.pattern.Width()], s.pattern.replacement)
	}
	return true
}

// aligned walks [start, end) in strides of the pattern width, starting at
// the first multiple of the width at or after start. Values in data sections
// are assumed to be naturally aligned; unaligned occurrences are not matched.
func (s *scanner) aligned(start, end int) int {
	w := s.pattern.Width()
	count := 0
	for off := alignUp(start, w); off+w <= end; off += w {
		if bytes.Equal(s.data[off:off+w], s.pattern.target) && s.hit(off) {
			count++
		}
	}
	return count
}

// unaligned scans [start, end) at every byte offset. After a match the scan
// resumes past it, so replacements never overlap.
func (s *scanner) unaligned(start, end int) int {
	w := s.pattern.Width()
	count := 0
	for off := start; off+w <= end; {
		i := bytes.Index(s.data[off:end], s.pattern.target)
		if i < 0 {
			break
		}
		off += i
		if s.hit(off) {
			count++
		}
		off += w
	}
	return count
}

// alignUp aligns a value up to the nearest multiple of alignment.
func alignUp(value, alignment int) int {
	if alignment <= 1 {
		return value
	}
	return ((value + alignment - 1) / alignment) * alignment
}
