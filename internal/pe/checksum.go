package pe

import (
	"encoding/binary"
	"fmt"
)

// CheckSum sits 64 bytes into the optional header for both PE32 and PE32+.
const (
	checksumFieldOffset = 64
	checksumFieldSize   = 4
)

// ChecksumInfo contains PE checksum verification results.
type ChecksumInfo struct {
	Offset   int // File offset of the CheckSum field.
	Stored   uint32
	Computed uint32
	Valid    bool
}

// checksumOffset locates the CheckSum field of a recognized image.
func checksumOffset(data []byte) (int, error) {
	h, err := parseHeaders(data)
	if err != nil {
		return 0, err
	}
	if int(h.file.SizeOfOptionalHeader) < checksumFieldOffset+checksumFieldSize {
		return 0, fmt.Errorf("可选头过小 (%d 字节)，不包含校验和字段", h.file.SizeOfOptionalHeader)
	}
	return h.optOffset + checksumFieldOffset, nil
}

// VerifyChecksum reads the stored checksum and recomputes it.
// A stored value of zero means the image is not checksummed and is reported valid.
func VerifyChecksum(data []byte) (*ChecksumInfo, error) {
	off, err := checksumOffset(data)
	if err != nil {
		return nil, err
	}

	info := &ChecksumInfo{
		Offset:   off,
		Stored:   binary.LittleEndian.Uint32(data[off : off+checksumFieldSize]),
		Computed: CalculatePEChecksum(data, off),
	}
	info.Valid = info.Stored == 0 || info.Stored == info.Computed
	return info, nil
}

// UpdateChecksum rewrites a non-zero stored checksum with the recomputed value.
// Images that carry no checksum are left untouched.
func UpdateChecksum(data []byte) (*ChecksumInfo, error) {
	info, err := VerifyChecksum(data)
	if err != nil {
		return nil, err
	}
	if info.Stored == 0 || info.Stored == info.Computed {
		return info, nil
	}

	binary.LittleEndian.PutUint32(data[info.Offset:info.Offset+checksumFieldSize], info.Computed)
	return info, nil
}

// CalculatePEChecksum computes the image checksum: a 16-bit one's-complement
// style sum of all words, with the 4-byte field at checksumOffset read as
// zero, plus the file length. Pass a negative checksumOffset to skip nothing.
// The field may start at an odd offset and straddle word boundaries.
func CalculatePEChecksum(data []byte, checksumOffset int) uint32 {
	var sum uint32

	inField := func(off int) bool {
		return checksumOffset >= 0 && off >= checksumOffset && off < checksumOffset+checksumFieldSize
	}

	for off := 0; off < len(data); off += 2 {
		var word uint32
		if !inField(off) {
			word = uint32(data[off])
		}
		if off+1 < len(data) && !inField(off+1) {
			word |= uint32(data[off+1]) << 8
		}

		sum += word
		sum = (sum & 0xFFFF) + (sum >> 16)
	}

	sum = (sum & 0xFFFF) + (sum >> 16)
	return sum + uint32(len(data))
}
