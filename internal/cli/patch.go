package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/ZacharyZcR/aspectpatch/internal/pe"
	"github.com/ZacharyZcR/aspectpatch/internal/value"
	"github.com/sirupsen/logrus"
)

// PatchOptions controls a single PatchFile run.
type PatchOptions struct {
	Target      string // Value notation, see value.Parse.
	Replacement string
	DryRun      bool // Count matches without writing.

	Backup         bool
	BackupSuffix   string
	UpdateChecksum bool
}

// PatchOutcome describes what PatchFile did.
type PatchOutcome struct {
	FilePath    string
	Target      []byte
	Replacement []byte
	DryRun      bool
	BackupPath  string // Empty when no backup was written.
	Result      pe.Result
	// NotPE is why the file was scanned unaligned. Nil for a structured scan.
	NotPE error
	// Checksum is set when the stored PE checksum was examined after patching.
	Checksum        *pe.ChecksumInfo
	ChecksumUpdated bool
}

// PatchFile decodes both values, maps path and replaces every target
// occurrence. With DryRun the file is mapped read-only and left untouched.
func PatchFile(path string, opts PatchOptions, log logrus.FieldLogger) (*PatchOutcome, error) {
	target, err := value.Parse(opts.Target)
	if err != nil {
		return nil, fmt.Errorf("目标值: %w", err)
	}
	replacement, err := value.Parse(opts.Replacement)
	if err != nil {
		return nil, fmt.Errorf("替换值: %w", err)
	}
	pattern, err := pe.NewPattern(target, replacement)
	if err != nil {
		return nil, err
	}

	out := &PatchOutcome{
		FilePath:    path,
		Target:      target,
		Replacement: replacement,
		DryRun:      opts.DryRun,
	}
	log = log.WithField("file", path)

	if !opts.DryRun && opts.Backup {
		out.BackupPath = path + opts.BackupSuffix
		if err := copyFile(path, out.BackupPath); err != nil {
			return nil, fmt.Errorf("创建备份失败: %w", err)
		}
		log.WithField("backup", out.BackupPath).Info("已创建备份")
	}

	reader, err := pe.Open(path, !opts.DryRun)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	data := reader.Bytes()
	if err := pe.Probe(data); err != nil {
		out.NotPE = err
		log.WithError(err).Debug("未识别为PE文件")
		log.Warn("未识别为PE文件，回退到全文件非对齐扫描")
	} else {
		log.Info("已识别PE文件，仅扫描数据节区")
	}

	if opts.DryRun {
		out.Result, err = pe.Count(data, pattern)
	} else {
		out.Result, err = pe.Patch(data, pattern)
	}
	if err != nil {
		return nil, err
	}

	for _, s := range out.Result.Sections {
		log.WithFields(logrus.Fields{
			"section": s.Name,
			"index":   s.Index,
			"matches": s.Count,
		}).Debug("节区匹配")
	}

	if !opts.DryRun && opts.UpdateChecksum && out.Result.Recognized && out.Result.Total > 0 {
		if err := refreshChecksum(data, out, log); err != nil {
			return nil, err
		}
	}

	if err := reader.Close(); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"matches": out.Result.Total,
		"dry_run": opts.DryRun,
	}).Info("扫描完成")
	return out, nil
}

func refreshChecksum(data []byte, out *PatchOutcome, log logrus.FieldLogger) error {
	info, err := pe.UpdateChecksum(data)
	if err != nil {
		// An optional header too short to hold a checksum is not worth failing the patch.
		log.WithError(err).Debug("跳过校验和更新")
		return nil
	}

	out.Checksum = info
	out.ChecksumUpdated = info.Stored != 0 && info.Stored != info.Computed
	if out.ChecksumUpdated {
		log.WithFields(logrus.Fields{
			"old": fmt.Sprintf("0x%08X", info.Stored),
			"new": fmt.Sprintf("0x%08X", info.Computed),
		}).Info("已更新PE校验和")
	}
	return nil
}

// InspectFile maps path read-only and analyzes its section table.
func InspectFile(path string) (*pe.Info, error) {
	reader, err := pe.Open(path, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	return pe.Analyze(reader.Bytes()), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
