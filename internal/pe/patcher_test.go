package pe

import (
	"bytes"
	"debug/pe"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPatternWidth(t *testing.T) {
	tests := []struct {
		name        string
		target      []byte
		replacement []byte
		wantErr     bool
	}{
		{name: "Float32 width", target: ratio16x9, replacement: ratio21x9},
		{name: "Float64 width", target: make([]byte, 8), replacement: make([]byte, 8)},
		{name: "Unequal widths", target: ratio16x9, replacement: ratio21x9[:3], wantErr: true},
		{name: "Empty target", target: nil, replacement: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPattern(tt.target, tt.replacement)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPattern() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrPatternWidth) {
					t.Errorf("NewPattern() error = %v, want ErrPatternWidth", err)
				}
				return
			}
			if p.Width() != len(tt.target) {
				t.Errorf("Width() = %d, want %d", p.Width(), len(tt.target))
			}
		})
	}
}

func TestPatternCopiesInput(t *testing.T) {
	target := append([]byte(nil), ratio16x9...)
	p := mustPattern(t, target, ratio21x9)

	target[0] = 0xFF
	assert.Equal(t, ratio16x9, p.Target())
	assert.Equal(t, ratio21x9, p.Replacement())
}

func TestPatchRejectsZeroPattern(t *testing.T) {
	data := bytes.Repeat([]byte{0}, 64)

	_, err := Patch(data, Pattern{})
	assert.ErrorIs(t, err, ErrPatternWidth)
}

// One data section at 512..576 with two aligned targets inside and one
// target 8 bytes before the section start.
func TestPatchSectionScoped(t *testing.T) {
	data := buildPE(t, 1024, testSection{".rdata", 512, 64, rdata})
	put(data, 504, ratio16x9)
	put(data, 520, ratio16x9)
	put(data, 560, ratio16x9)

	res, err := Patch(data, mustPattern(t, ratio16x9, ratio21x9))
	require.NoError(t, err)

	assert.True(t, res.Recognized)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []int{520, 560}, res.Offsets)
	assert.Equal(t, []SectionMatches{{Index: 0, Name: ".rdata", Count: 2}}, res.Sections)

	assert.Equal(t, ratio21x9, data[520:524])
	assert.Equal(t, ratio21x9, data[560:564])
	assert.Equal(t, ratio16x9, data[504:508], "occurrence outside the section must be untouched")
}

// A buffer that is not a PE image gets an unaligned whole-file scan.
func TestPatchFallbackWholeFile(t *testing.T) {
	data := make([]byte, 1024)
	put(data, 3, ratio16x9)
	put(data, 101, ratio16x9)
	put(data, 1019, ratio16x9)

	res, err := Patch(data, mustPattern(t, ratio16x9, ratio21x9))
	require.NoError(t, err)

	assert.False(t, res.Recognized)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []int{3, 101, 1019}, res.Offsets)
	assert.Empty(t, res.Sections)
	for _, off := range res.Offsets {
		assert.Equal(t, ratio21x9, data[off:off+4], "offset %d", off)
	}
}

func TestPatchFallbackDoesNotOverlap(t *testing.T) {
	// Two occurrences of AA AA AA AA that share bytes: only the first counts.
	target := []byte{0xAA, 0xAA, 0xAA, 0xAA}
	data := make([]byte, 64)
	put(data, 10, target)
	put(data, 12, target) // data[10:16] is six 0xAA bytes.
	put(data, 30, target)

	res, err := Patch(data, mustPattern(t, target, []byte{1, 2, 3, 4}))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []int{10, 30}, res.Offsets)
	assert.Equal(t, []byte{1, 2, 3, 4, 0xAA, 0xAA}, data[10:16])
	assertNoOverlap(t, res.Offsets, 4)
}

func TestPatchFallbackOnMissingSignature(t *testing.T) {
	data := buildPE(t, 1024, testSection{".rdata", 512, 64, rdata})
	data[1] = 0 // Break "MZ".
	put(data, 301, ratio16x9)

	res, err := Patch(data, mustPattern(t, ratio16x9, ratio21x9))
	require.NoError(t, err)

	assert.False(t, res.Recognized)
	assert.Equal(t, []int{301}, res.Offsets)
}

func TestPatchZeroSizeSection(t *testing.T) {
	data := buildPE(t, 1024, testSection{".rdata", 512, 0, rdata})
	put(data, 512, ratio16x9)

	res, err := Patch(data, mustPattern(t, ratio16x9, ratio21x9))
	require.NoError(t, err)

	assert.True(t, res.Recognized)
	assert.Zero(t, res.Total)
	assert.Equal(t, ratio16x9, data[512:516])
}

func TestPatchSectionSmallerThanWidth(t *testing.T) {
	data := buildPE(t, 1024, testSection{".rdata", 512, 3, rdata})
	put(data, 512, ratio16x9)

	res, err := Patch(data, mustPattern(t, ratio16x9, ratio21x9))
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestPatchRecognizedImageWithoutSectionsDoesNotFallBack(t *testing.T) {
	data := buildPE(t, 1024)
	put(data, 800, ratio16x9)

	res, err := Patch(data, mustPattern(t, ratio16x9, ratio21x9))
	require.NoError(t, err)

	assert.True(t, res.Recognized)
	assert.Zero(t, res.Total)
	assert.Equal(t, ratio16x9, data[800:804])
}

func TestPatchSkipsNonDataSections(t *testing.T) {
	data := buildPE(t, 2048,
		// Named like data but carries code characteristics.
		testSection{".rdata", 0x400, 0x100, text},
		// Discardable.
		testSection{".reloc", 0x500, 0x100, rdata | pe.IMAGE_SCN_MEM_DISCARDABLE},
		// Named like code but is plain data.
		testSection{".text", 0x600, 0x100, rdata},
	)
	put(data, 0x410, ratio16x9)
	put(data, 0x510, ratio16x9)
	put(data, 0x610, ratio16x9)

	res, err := Patch(data, mustPattern(t, ratio16x9, ratio21x9))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Total)
	assert.Equal(t, []SectionMatches{{Index: 2, Name: ".text", Count: 1}}, res.Sections)
	assert.Equal(t, ratio16x9, data[0x410:0x414])
	assert.Equal(t, ratio16x9, data[0x510:0x514])
	assert.Equal(t, ratio21x9, data[0x610:0x614])
}

func TestPatchAlignedScanInsideSections(t *testing.T) {
	// Section starts at an unaligned offset; the scan begins at 516.
	data := buildPE(t, 1024, testSection{".rdata", 514, 64, rdata})
	put(data, 514, ratio16x9) // Before the first aligned slot.
	put(data, 522, ratio16x9) // Unaligned, never matched.
	put(data, 532, ratio16x9) // Aligned.

	res, err := Patch(data, mustPattern(t, ratio16x9, ratio21x9))
	require.NoError(t, err)

	assert.Equal(t, []int{532}, res.Offsets)
	assert.Equal(t, ratio16x9, data[514:518])
	assert.Equal(t, ratio16x9, data[522:526])
}

func TestPatchClampsTruncatedSection(t *testing.T) {
	data := buildPE(t, 1024, testSection{".rdata", 960, 0x10000, rdata})
	put(data, 1020, ratio16x9)

	var res Result
	require.NotPanics(t, func() {
		var err error
		res, err = Patch(data, mustPattern(t, ratio16x9, ratio21x9))
		require.NoError(t, err)
	})

	assert.Equal(t, []int{1020}, res.Offsets)
	assert.Equal(t, ratio21x9, data[1020:1024])
}

func TestPatchOverlappingSectionsCountOnce(t *testing.T) {
	data := buildPE(t, 1024,
		testSection{".a", 512, 64, rdata},
		testSection{".b", 512, 64, rdata},
	)
	put(data, 528, ratio16x9)

	p := mustPattern(t, ratio16x9, ratio16x9)
	res, err := Patch(data, p)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Total)
	assert.Equal(t, []SectionMatches{{Index: 0, Name: ".a", Count: 1}}, res.Sections)
}

func TestPatchSelfReplacementIsIdempotent(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
		want int
	}{
		{
			name: "Structured",
			data: func(t *testing.T) []byte {
				d := buildPE(t, 1024, testSection{".rdata", 512, 64, rdata})
				put(d, 504, ratio16x9)
				put(d, 512, ratio16x9)
				put(d, 572, ratio16x9)
				return d
			},
			want: 2,
		},
		{
			name: "Fallback",
			data: func(t *testing.T) []byte {
				d := make([]byte, 256)
				put(d, 7, ratio16x9)
				put(d, 200, ratio16x9)
				return d
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data(t)
			before := append([]byte(nil), data...)

			res, err := Patch(data, mustPattern(t, ratio16x9, ratio16x9))
			require.NoError(t, err)

			assert.Equal(t, tt.want, res.Total)
			assert.Equal(t, before, data)
		})
	}
}

func TestCountDoesNotWrite(t *testing.T) {
	data := buildPE(t, 1024, testSection{".rdata", 512, 64, rdata})
	put(data, 540, ratio16x9)
	before := append([]byte(nil), data...)

	res, err := Count(data, mustPattern(t, ratio16x9, ratio21x9))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Total)
	assert.Equal(t, before, data)
}

func TestPatchWiderPattern(t *testing.T) {
	target := []byte{0, 0, 0, 0, 0, 0, 0xF0, 0x3F} // float64 1.0
	repl := []byte{0, 0, 0, 0, 0, 0, 0, 0x40}      // float64 2.0

	data := buildPE(t, 1024, testSection{".rdata", 512, 128, rdata})
	put(data, 516, target) // Not 8-aligned.
	put(data, 528, target)

	res, err := Patch(data, mustPattern(t, target, repl))
	require.NoError(t, err)

	assert.Equal(t, []int{528}, res.Offsets)
	assert.Equal(t, repl, data[528:536])
	assertNoOverlap(t, res.Offsets, 8)
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		value, alignment, want int
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{514, 4, 516},
		{7, 3, 9},
		{7, 1, 7},
	}

	for _, tt := range tests {
		if got := alignUp(tt.value, tt.alignment); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.value, tt.alignment, got, tt.want)
		}
	}
}

func assertNoOverlap(t *testing.T, offsets []int, width int) {
	t.Helper()
	for i := 1; i < len(offsets); i++ {
		if d := offsets[i] - offsets[i-1]; d < width && d > -width {
			t.Errorf("matches at %d and %d overlap (width %d)", offsets[i-1], offsets[i], width)
		}
	}
}
