// Package cli provides command-line interface utilities.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZacharyZcR/aspectpatch/internal/pe"
	"github.com/ZacharyZcR/aspectpatch/internal/value"
	"github.com/fatih/color"
)

// maxOffsets limits how many match offsets a patch report lists.
const maxOffsets = 20

// Reporter formats and prints patch and inspection results.
type Reporter struct {
	out     io.Writer
	verbose bool
}

// NewReporter creates a reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// SetVerbose enables verbose mode (list every match offset).
func (r *Reporter) SetVerbose(verbose bool) {
	r.verbose = verbose
}

// PrintPatch outputs the result of a patch or dry run.
func (r *Reporter) PrintPatch(o *PatchOutcome) {
	r.printHeader("AspectPatch 修改报告")

	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintln(r.out, "\n【基本信息】")
	fmt.Fprintf(r.out, "  %-20s: %s\n", "文件路径", o.FilePath)
	fmt.Fprintf(r.out, "  %-20s: %s\n", "目标值", value.Describe(o.Target))
	fmt.Fprintf(r.out, "  %-20s: %s\n", "替换值", value.Describe(o.Replacement))
	fmt.Fprintf(r.out, "  %-20s: ", "扫描模式")
	if o.Result.Recognized {
		_, _ = color.New(color.FgGreen).Fprint(r.out, "结构化 (仅数据节区, 对齐扫描)")
	} else {
		_, _ = color.New(color.FgYellow).Fprint(r.out, "全文件 (非对齐扫描)")
		if o.NotPE != nil {
			_, _ = color.New(color.FgHiBlack).Fprintf(r.out, " - %v", o.NotPE)
		}
	}
	fmt.Fprintln(r.out)
	if o.BackupPath != "" {
		fmt.Fprintf(r.out, "  %-20s: %s\n", "备份文件", o.BackupPath)
	}

	if o.Result.Recognized {
		r.printSectionMatches(o.Result.Sections)
	}
	r.printOffsets(o.Result.Offsets)

	if o.ChecksumUpdated {
		_, _ = color.New(color.FgCyan).Fprintf(r.out, "\n✓ 已更新PE校验和: 0x%08X -> 0x%08X\n",
			o.Checksum.Stored, o.Checksum.Computed)
	}

	fmt.Fprintln(r.out)
	green := color.New(color.FgGreen, color.Bold)
	switch {
	case o.Result.Total == 0:
		_, _ = color.New(color.FgHiBlack).Fprintln(r.out, "未找到目标值")
	case o.DryRun:
		_, _ = green.Fprintf(r.out, "✓ 共找到 %d 处 (试运行，未写入)\n", o.Result.Total)
	default:
		_, _ = green.Fprintf(r.out, "✓ 共替换 %d 处\n", o.Result.Total)
	}
	fmt.Fprintln(r.out)
}

// PrintInfo outputs the section analysis of an image.
func (r *Reporter) PrintInfo(path string, info *pe.Info) {
	r.printHeader("AspectPatch 分析报告")

	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintln(r.out, "\n【基本信息】")
	fmt.Fprintf(r.out, "  %-20s: %s\n", "文件路径", path)
	fmt.Fprintf(r.out, "  %-20s: %s\n", "文件大小", formatSize(info.FileSize))

	fmt.Fprintf(r.out, "  %-20s: ", "PE识别")
	if info.Recognized {
		_, _ = color.New(color.FgGreen).Fprint(r.out, "✓ 是")
	} else {
		_, _ = color.New(color.FgRed, color.Bold).Fprintf(r.out, "✗ 否 (%v)", info.NotPE)
	}
	fmt.Fprintln(r.out)

	// Print checksum verification
	if info.Checksum != nil {
		fmt.Fprintf(r.out, "  %-20s: ", "校验和")
		if info.Checksum.Stored == 0 {
			_, _ = color.New(color.FgHiBlack).Fprint(r.out, "未设置")
		} else if info.Checksum.Valid {
			_, _ = color.New(color.FgGreen).Fprintf(r.out, "✓ 有效 (0x%08X)", info.Checksum.Stored)
		} else {
			_, _ = color.New(color.FgRed, color.Bold).Fprintf(r.out, "✗ 无效 (存储: 0x%08X, 计算: 0x%08X)",
				info.Checksum.Stored, info.Checksum.Computed)
		}
		fmt.Fprintln(r.out)
	}

	if info.Recognized {
		r.printSections(info)
	}
	fmt.Fprintln(r.out)
}

func (r *Reporter) printHeader(title string) {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Fprintln(r.out, "\n╔════════════════════════════════════════╗")
	_, _ = cyan.Fprintf(r.out, "║  %-36s  ║\n", title)
	_, _ = cyan.Fprintln(r.out, "╚════════════════════════════════════════╝")
}

func (r *Reporter) printSections(info *pe.Info) {
	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintf(r.out, "\n【节区信息】(共 %d 个, 可修改 %s)\n",
		len(info.Sections), formatSize(int64(info.PatchableBytes())))

	if len(info.Sections) == 0 {
		fmt.Fprintln(r.out, "  未发现节区")
		return
	}

	// Header
	fmt.Fprintln(r.out, strings.Repeat("-", 100))
	fmt.Fprintf(r.out, "  %-10s %-12s %-24s %-8s %-12s %-8s %s\n",
		"名称", "虚拟地址", "文件范围", "权限", "特征", "熵", "可修改")
	fmt.Fprintln(r.out, strings.Repeat("-", 100))

	// Rows
	for _, section := range info.Sections {
		// Highlight dangerous permissions (RWX)
		permColor := color.New(color.FgWhite)
		if section.Permissions == "RWX" {
			permColor = color.New(color.FgRed, color.Bold)
		} else if strings.Contains(section.Permissions, "X") {
			permColor = color.New(color.FgYellow)
		}

		span := fmt.Sprintf("0x%X-0x%X", section.Start, section.End)
		if section.Truncated {
			span += "*"
		}
		fmt.Fprintf(r.out, "  %-10s 0x%08X   %-24s ", section.Name, section.VirtualAddress, span)
		_, _ = permColor.Fprintf(r.out, "%-8s", section.Permissions)
		fmt.Fprintf(r.out, " 0x%08X   %-8.2f ", section.Characteristics, section.Entropy)
		if section.Patchable {
			_, _ = color.New(color.FgGreen).Fprintln(r.out, "是")
		} else {
			_, _ = color.New(color.FgHiBlack).Fprintln(r.out, "否")
		}
	}
	fmt.Fprintln(r.out, strings.Repeat("-", 100))
	for _, section := range info.Sections {
		if section.Truncated {
			_, _ = color.New(color.FgHiBlack).Fprintln(r.out, "  * 声明的原始数据超出文件末尾，已截断")
			break
		}
	}
}

func (r *Reporter) printSectionMatches(sections []pe.SectionMatches) {
	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintf(r.out, "\n【节区匹配】(共 %d 个节区)\n", len(sections))

	if len(sections) == 0 {
		fmt.Fprintln(r.out, "  无匹配")
		return
	}

	for _, s := range sections {
		green := color.New(color.FgGreen)
		_, _ = green.Fprintf(r.out, "  %3d. %-10s %d 处\n", s.Index, s.Name, s.Count)
	}
}

func (r *Reporter) printOffsets(offsets []int) {
	if len(offsets) == 0 {
		return
	}

	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Fprintf(r.out, "\n【匹配偏移】(共 %d 处)\n", len(offsets))

	maxDisplay := maxOffsets
	if r.verbose {
		maxDisplay = len(offsets) // Show all in verbose mode
	}

	displayCount := len(offsets)
	if displayCount > maxDisplay {
		displayCount = maxDisplay
	}

	for i := 0; i < displayCount; i++ {
		fmt.Fprintf(r.out, "       - 0x%08X\n", offsets[i])
	}

	if len(offsets) > maxDisplay {
		gray := color.New(color.FgHiBlack)
		_, _ = gray.Fprintf(r.out, "       ... (还有 %d 处)\n", len(offsets)-maxDisplay)
	}
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
