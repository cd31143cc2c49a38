package pe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Header layout constants (PE/COFF specification).
const (
	dosHeaderSize     = 64
	lfanewOffset      = 0x3C
	ntSignatureSize   = 4
	fileHeaderSize    = 20
	sectionHeaderSize = 40
	sectionNameSize   = 8

	dosSignature = 0x5A4D     // "MZ"
	ntSignature  = 0x00004550 // "PE\0\0"
)

// ErrNotPE is returned by Probe when the buffer is not a recognized PE image.
var ErrNotPE = errors.New("不是有效的PE文件")

// Section describes one entry of the section table.
type Section struct {
	Index           int    // Position in the section table.
	Name            string // Up to 8 bytes, NUL padding stripped.
	VirtualAddress  uint32
	VirtualSize     uint32
	RawOffset       uint32 // PointerToRawData.
	RawSize         uint32 // SizeOfRawData.
	Characteristics uint32
}

// Range returns the section's raw byte range clamped to a buffer of the given size.
// A declared size that overruns the buffer is truncated, never trusted.
func (s Section) Range(size int) (start, end int) {
	limit := uint64(size)
	lo := uint64(s.RawOffset)
	hi := lo + uint64(s.RawSize)
	if lo > limit {
		lo = limit
	}
	if hi > limit {
		hi = limit
	}
	return int(lo), int(hi)
}

// Truncated reports whether the declared raw range extends past size.
func (s Section) Truncated(size int) bool {
	return uint64(s.RawOffset)+uint64(s.RawSize) > uint64(size)
}

// IsPatchableData reports whether the section is classified as patchable data.
func (s Section) IsPatchableData() bool {
	return IsPatchableData(s.Characteristics)
}

// fileHeader is the COFF file header that follows the PE signature.
type fileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// sectionHeader is IMAGE_SECTION_HEADER.
type sectionHeader struct {
	Name                 [sectionNameSize]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// headers holds the validated offsets needed to reach the section table.
type headers struct {
	ntOffset     int
	file         fileHeader
	optOffset    int
	sectionTable int
}

// parseHeaders validates the DOS, PE and COFF headers. Every offset derived
// from the file is checked against len(data) before it is read.
func parseHeaders(data []byte) (*headers, error) {
	size := uint64(len(data))

	if size < dosHeaderSize {
		return nil, fmt.Errorf("%w: 文件过小 (%d 字节)", ErrNotPE, size)
	}
	if binary.LittleEndian.Uint16(data[0:2]) != dosSignature {
		return nil, fmt.Errorf("%w: 缺少MZ签名", ErrNotPE)
	}

	ntOffset := uint64(binary.LittleEndian.Uint32(data[lfanewOffset : lfanewOffset+4]))
	if ntOffset+ntSignatureSize+fileHeaderSize > size {
		return nil, fmt.Errorf("%w: PE头偏移 0x%X 超出文件范围", ErrNotPE, ntOffset)
	}
	if binary.LittleEndian.Uint32(data[ntOffset:ntOffset+ntSignatureSize]) != ntSignature {
		return nil, fmt.Errorf("%w: 缺少PE签名 (偏移 0x%X)", ErrNotPE, ntOffset)
	}

	h := &headers{ntOffset: int(ntOffset)}
	coff := data[ntOffset+ntSignatureSize : ntOffset+ntSignatureSize+fileHeaderSize]
	if err := binary.Read(bytes.NewReader(coff), binary.LittleEndian, &h.file); err != nil {
		return nil, fmt.Errorf("%w: 读取COFF头失败: %v", ErrNotPE, err)
	}

	optOffset := ntOffset + ntSignatureSize + fileHeaderSize
	sectionTable := optOffset + uint64(h.file.SizeOfOptionalHeader)
	tableEnd := sectionTable + uint64(h.file.NumberOfSections)*sectionHeaderSize
	if tableEnd > size {
		return nil, fmt.Errorf("%w: 节区表 (%d 个节区) 超出文件范围", ErrNotPE, h.file.NumberOfSections)
	}

	h.optOffset = int(optOffset)
	h.sectionTable = int(sectionTable)
	return h, nil
}

// section decodes the i-th section header. The table bounds were validated
// by parseHeaders.
func (h *headers) section(data []byte, i int) Section {
	off := h.sectionTable + i*sectionHeaderSize
	var raw sectionHeader
	// Cannot fail: the slice is exactly sectionHeaderSize bytes.
	_ = binary.Read(bytes.NewReader(data[off:off+sectionHeaderSize]), binary.LittleEndian, &raw)

	name := raw.Name[:]
	if n := bytes.IndexByte(name, 0); n >= 0 {
		name = name[:n]
	}

	return Section{
		Index:           i,
		Name:            string(name),
		VirtualAddress:  raw.VirtualAddress,
		VirtualSize:     raw.VirtualSize,
		RawOffset:       raw.PointerToRawData,
		RawSize:         raw.SizeOfRawData,
		Characteristics: raw.Characteristics,
	}
}

// Probe checks whether data is a recognized PE image. The returned error
// wraps ErrNotPE and names the failed check.
func Probe(data []byte) error {
	_, err := parseHeaders(data)
	return err
}

// Walk calls visit once per section header in table order. Iteration stops
// early when visit returns false. Walk returns false, without calling visit,
// if data is not a recognized PE image; an early stop still returns true.
func Walk(data []byte, visit func(Section) bool) bool {
	h, err := parseHeaders(data)
	if err != nil {
		return false
	}

	for i := 0; i < int(h.file.NumberOfSections); i++ {
		if !visit(h.section(data, i)) {
			break
		}
	}
	return true
}

// Sections returns all section descriptors in table order.
func Sections(data []byte) ([]Section, bool) {
	var sections []Section
	ok := Walk(data, func(s Section) bool {
		sections = append(sections, s)
		return true
	})
	return sections, ok
}
