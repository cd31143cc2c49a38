package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/ZacharyZcR/aspectpatch/internal/cli"
	"github.com/ZacharyZcR/aspectpatch/internal/config"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what the commands share once configuration is loaded.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	log        *logrus.Logger
	logCloser  io.Closer
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	log, closer, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}

	a.cfg, a.log, a.logCloser = cfg, log, closer
	if cfg.NoColor {
		color.NoColor = true
	}
	return nil
}

func (a *app) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// execute runs the command line args, writing reports to stdout.
func execute(args []string, stdout, stderr io.Writer) error {
	a := &app{v: viper.New()}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	var (
		target      string
		replacement string
		dryRun      bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "aspectpatch -t <目标值> -r <替换值> <文件>",
		Short: "替换PE文件数据节区中的定宽常量",
		Long: `aspectpatch 在PE文件的只读/已初始化数据节区中查找4字节常量并原地替换，
典型用途是修改游戏中硬编码的宽高比。

数值格式:
  十六进制   "39 8E E3 3F"   (4个字节，按原样使用)
  比例       16:9, 21x9       (float32 宽/高)
  浮点数     1.7777778

未识别为PE的文件将回退到全文件非对齐扫描。

示例:
  aspectpatch -t 16:9 -r 21:9 game.exe
  aspectpatch -t 16:9 -r 21:9 --dry-run game.exe
  aspectpatch inspect game.exe`,
		Args:              exactFile,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" || replacement == "" {
				return errors.New("必须同时指定 -t/--target 与 -r/--replace")
			}

			out, err := cli.PatchFile(args[0], cli.PatchOptions{
				Target:         target,
				Replacement:    replacement,
				DryRun:         dryRun,
				Backup:         a.cfg.Backup,
				BackupSuffix:   a.cfg.BackupSuffix,
				UpdateChecksum: a.cfg.UpdateChecksum,
			}, a.log)
			if err != nil {
				return err
			}

			reporter := cli.NewReporter(cmd.OutOrStdout())
			reporter.SetVerbose(verbose)
			reporter.PrintPatch(out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&target, "target", "t", "", "要查找的值 (十六进制、比例或浮点数)")
	flags.StringVarP(&replacement, "replace", "r", "", "替换后的值 (十六进制、比例或浮点数)")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "仅统计匹配，不修改文件")
	flags.BoolVarP(&verbose, "verbose", "v", false, "详细模式：列出所有匹配偏移")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&a.configFile, "config", "", "配置文件路径 (默认: ./aspectpatch.yaml 或 ~/.config/aspectpatch/aspectpatch.yaml)")
	persistent.String("log-level", "info", "日志级别 (debug, info, warn, error)")
	persistent.String("log-file", "", "日志文件路径 (默认: 标准错误)")
	persistent.Bool("no-color", false, "禁用彩色输出")
	persistent.Bool("backup", true, "修改前创建备份文件")
	persistent.String("backup-suffix", ".bak", "备份文件后缀")
	persistent.Bool("update-checksum", true, "修改后更新校验和")

	for key, flag := range map[string]string{
		config.KeyLogLevel:       "log-level",
		config.KeyLogFilePath:    "log-file",
		config.KeyNoColor:        "no-color",
		config.KeyBackup:         "backup",
		config.KeyBackupSuffix:   "backup-suffix",
		config.KeyUpdateChecksum: "update-checksum",
	} {
		// Lookup cannot return nil: every flag was registered above.
		_ = a.v.BindPFlag(key, persistent.Lookup(flag))
	}

	cmd.AddCommand(newInspectCmd())
	return cmd
}

func exactFile(cmd *cobra.Command, args []string) error {
	switch {
	case len(args) == 0:
		return fmt.Errorf("缺少文件参数\n用法: %s", cmd.UseLine())
	case len(args) > 1:
		return fmt.Errorf("只能指定一个文件，收到 %d 个", len(args))
	}
	return nil
}
