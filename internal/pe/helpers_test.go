package pe

import (
	"debug/pe"
	"encoding/binary"
	"testing"
)

const (
	testNTOffset       = 0x80
	testOptHeaderSize  = 0xE0
	testChecksumOffset = testNTOffset + ntSignatureSize + fileHeaderSize + checksumFieldOffset

	rdata = pe.IMAGE_SCN_CNT_INITIALIZED_DATA | pe.IMAGE_SCN_MEM_READ
	text  = pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_MEM_EXECUTE
)

// float32(16/9) and float32(21/9), little-endian.
var (
	ratio16x9 = []byte{0x39, 0x8E, 0xE3, 0x3F}
	ratio21x9 = []byte{0x55, 0x55, 0x15, 0x40}
)

type testSection struct {
	name            string
	offset          uint32
	size            uint32
	characteristics uint32
}

// buildPE returns a zero-filled buffer of the given size carrying a minimal
// PE32 header and one section header per entry.
func buildPE(t *testing.T, size int, sections ...testSection) []byte {
	t.Helper()
	return buildPEAt(t, testNTOffset, size, sections...)
}

// buildPEAt is buildPE with the NT headers placed at ntOffset (e_lfanew).
func buildPEAt(t *testing.T, ntOffset, size int, sections ...testSection) []byte {
	t.Helper()

	table := ntOffset + ntSignatureSize + fileHeaderSize + testOptHeaderSize
	end := table + len(sections)*sectionHeaderSize
	if size < end {
		t.Fatalf("buildPE: size %d too small for %d sections (need %d)", size, len(sections), end)
	}

	data := make([]byte, size)
	binary.LittleEndian.PutUint16(data[0:], dosSignature)
	binary.LittleEndian.PutUint32(data[lfanewOffset:], uint32(ntOffset))
	binary.LittleEndian.PutUint32(data[ntOffset:], ntSignature)

	coff := ntOffset + ntSignatureSize
	binary.LittleEndian.PutUint16(data[coff:], pe.IMAGE_FILE_MACHINE_I386)
	binary.LittleEndian.PutUint16(data[coff+2:], uint16(len(sections)))
	binary.LittleEndian.PutUint16(data[coff+16:], testOptHeaderSize)

	opt := coff + fileHeaderSize
	binary.LittleEndian.PutUint16(data[opt:], 0x10B) // PE32 magic.

	for i, s := range sections {
		off := table + i*sectionHeaderSize
		copy(data[off:off+sectionNameSize], s.name)
		binary.LittleEndian.PutUint32(data[off+16:], s.size)
		binary.LittleEndian.PutUint32(data[off+20:], s.offset)
		binary.LittleEndian.PutUint32(data[off+36:], s.characteristics)
	}

	return data
}

// put copies b into data at off.
func put(data []byte, off int, b []byte) {
	copy(data[off:off+len(b)], b)
}

func mustPattern(t *testing.T, target, replacement []byte) Pattern {
	t.Helper()
	p, err := NewPattern(target, replacement)
	if err != nil {
		t.Fatalf("NewPattern() error = %v", err)
	}
	return p
}
