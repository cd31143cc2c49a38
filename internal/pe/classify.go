package pe

import "debug/pe"

const (
	// Any of these bits disqualifies a section.
	excludedCharacteristics = pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_EXECUTE | pe.IMAGE_SCN_MEM_DISCARDABLE
	// All of these bits are required.
	requiredCharacteristics = pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_CNT_INITIALIZED_DATA
)

// IsPatchableData reports whether a section with the given characteristics
// holds readable initialized data that is safe to patch.
//
// Protectors such as VMProtect rename or repurpose sections, so only the
// characteristics the loader honors are consulted, never the section name.
func IsPatchableData(characteristics uint32) bool {
	if characteristics&excludedCharacteristics != 0 {
		return false
	}
	return characteristics&requiredCharacteristics == requiredCharacteristics
}

// getSectionPermissions renders the memory permissions as an "RWX" string.
func getSectionPermissions(c uint32) string {
	perms := [3]byte{'-', '-', '-'}

	if c&pe.IMAGE_SCN_MEM_READ != 0 {
		perms[0] = 'R'
	}
	if c&pe.IMAGE_SCN_MEM_WRITE != 0 {
		perms[1] = 'W'
	}
	if c&pe.IMAGE_SCN_MEM_EXECUTE != 0 {
		perms[2] = 'X'
	}

	return string(perms[:])
}
