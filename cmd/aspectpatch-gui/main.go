// Package main provides the aspectpatch GUI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ZacharyZcR/aspectpatch/internal/cli"
	"github.com/ZacharyZcR/aspectpatch/internal/config"
)

func main() {
	cfg, err := config.Load(viper.New(), "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
	log, closer, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	// Reports are rendered into a text widget.
	color.NoColor = true

	myApp := app.New()
	myWindow := myApp.NewWindow("AspectPatch - PE常量替换工具")
	myWindow.Resize(fyne.NewSize(900, 700))

	// File path
	filePathEntry := widget.NewEntry()
	filePathEntry.SetPlaceHolder("选择PE文件...")

	// Values
	targetEntry := widget.NewEntry()
	targetEntry.SetPlaceHolder("16:9")
	replaceEntry := widget.NewEntry()
	replaceEntry.SetPlaceHolder("21:9")

	backupCheck := widget.NewCheck("修改前创建备份", nil)
	backupCheck.SetChecked(cfg.Backup)
	checksumCheck := widget.NewCheck("更新校验和", nil)
	checksumCheck.SetChecked(cfg.UpdateChecksum)

	// Report output
	reportOutput := widget.NewMultiLineEntry()
	reportOutput.SetPlaceHolder("结果将显示在这里...")
	reportOutput.TextStyle = fyne.TextStyle{Monospace: true}
	reportOutput.Disable()

	// Status label
	statusLabel := widget.NewLabel("就绪")

	// File picker button
	fileButton := widget.NewButton("选择文件", func() {
		dialog.ShowFileOpen(func(file fyne.URIReadCloser, err error) {
			if err != nil || file == nil {
				return
			}
			defer func() { _ = file.Close() }()
			filePathEntry.SetText(file.URI().Path())
		}, myWindow)
	})

	// run executes job off the UI goroutine and shows its report.
	run := func(busy, done string, job func(path string) (string, error)) {
		path := filePathEntry.Text
		if path == "" {
			dialog.ShowError(errors.New("请先选择PE文件"), myWindow)
			return
		}

		statusLabel.SetText(busy)
		go func() {
			report, err := job(path)
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(err, myWindow)
					statusLabel.SetText("失败")
					return
				}
				reportOutput.SetText(report)
				statusLabel.SetText(done)
			})
		}()
	}

	patchOptions := func(dryRun bool) cli.PatchOptions {
		return cli.PatchOptions{
			Target:         strings.TrimSpace(targetEntry.Text),
			Replacement:    strings.TrimSpace(replaceEntry.Text),
			DryRun:         dryRun,
			Backup:         backupCheck.Checked,
			BackupSuffix:   cfg.BackupSuffix,
			UpdateChecksum: checksumCheck.Checked,
		}
	}

	inspectButton := widget.NewButton("分析", func() {
		run("正在分析...", "分析完成", inspectReport)
	})

	dryRunButton := widget.NewButton("试运行", func() {
		opts := patchOptions(true)
		run("正在扫描...", "扫描完成", func(path string) (string, error) {
			return patchReport(path, opts, log)
		})
	})

	patchButton := widget.NewButton("修改", func() {
		opts := patchOptions(false)
		dialog.ShowConfirm("确认修改", fmt.Sprintf("将原地修改文件:\n%s", filePathEntry.Text), func(ok bool) {
			if !ok {
				return
			}
			run("正在修改...", "修改完成", func(path string) (string, error) {
				return patchReport(path, opts, log)
			})
		}, myWindow)
	})
	patchButton.Importance = widget.HighImportance

	// Layout
	fileBox := container.NewBorder(nil, nil, nil, container.NewHBox(fileButton, inspectButton), filePathEntry)

	patchBox := container.NewVBox(
		widget.NewLabel("数值 (十六进制 \"39 8E E3 3F\"、比例 16:9 或浮点数 1.7777778):"),
		container.NewGridWithColumns(2,
			widget.NewLabel("目标值:"),
			widget.NewLabel("替换值:"),
		),
		container.NewGridWithColumns(2,
			targetEntry,
			replaceEntry,
		),
		container.NewHBox(backupCheck, checksumCheck),
		container.NewGridWithColumns(2,
			dryRunButton,
			patchButton,
		),
	)

	mainContent := container.NewBorder(
		container.NewVBox(
			widget.NewLabel("PE文件路径:"),
			fileBox,
			widget.NewSeparator(),
			patchBox,
			widget.NewSeparator(),
		),
		container.NewVBox(
			widget.NewSeparator(),
			statusLabel,
		),
		nil,
		nil,
		container.NewVScroll(reportOutput),
	)

	myWindow.SetContent(mainContent)
	myWindow.ShowAndRun()
}

func patchReport(path string, opts cli.PatchOptions, log logrus.FieldLogger) (string, error) {
	out, err := cli.PatchFile(path, opts, log)
	if err != nil {
		return "", err
	}

	var report strings.Builder
	cli.NewReporter(&report).PrintPatch(out)
	return report.String(), nil
}

func inspectReport(path string) (string, error) {
	info, err := cli.InspectFile(path)
	if err != nil {
		return "", err
	}

	var report strings.Builder
	cli.NewReporter(&report).PrintInfo(path, info)
	return report.String(), nil
}
