package pe

// Info contains analyzed image information.
type Info struct {
	FileSize   int64
	Recognized bool
	// NotPE explains why the buffer was not recognized. Nil when Recognized.
	NotPE    error
	Checksum *ChecksumInfo
	Sections []SectionInfo
}

// SectionInfo contains information about a section and how a patch run treats it.
type SectionInfo struct {
	Section
	Start       int // Clamped raw range start.
	End         int // Clamped raw range end.
	Truncated   bool
	Permissions string
	Entropy     float64
	Patchable   bool
}

// Analyze describes data the way Patch sees it. The result holds no
// references into data.
func Analyze(data []byte) *Info {
	info := &Info{FileSize: int64(len(data))}

	if err := Probe(data); err != nil {
		info.NotPE = err
		return info
	}
	info.Recognized = true

	Walk(data, func(s Section) bool {
		start, end := s.Range(len(data))
		info.Sections = append(info.Sections, SectionInfo{
			Section:     s,
			Start:       start,
			End:         end,
			Truncated:   s.Truncated(len(data)),
			Permissions: getSectionPermissions(s.Characteristics),
			Entropy:     SectionEntropy(data, s),
			Patchable:   s.IsPatchableData(),
		})
		return true
	})

	// Images whose optional header is too short simply carry no checksum.
	if checksum, err := VerifyChecksum(data); err == nil {
		info.Checksum = checksum
	}

	return info
}

// PatchableBytes returns the number of bytes a structured patch run scans.
func (i *Info) PatchableBytes() int {
	total := 0
	for _, s := range i.Sections {
		if s.Patchable {
			total += s.End - s.Start
		}
	}
	return total
}
