// Package config loads aspectpatch settings and builds the logger.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName   = "aspectpatch"
	envVarPrefix = "ASPECTPATCH"
)

// Keys understood by Load. Command-line flags are bound onto the same names.
const (
	KeyBackup         = "backup"
	KeyBackupSuffix   = "backup_suffix"
	KeyUpdateChecksum = "update_checksum"
	KeyLogLevel       = "log_level"
	KeyLogFilePath    = "log_file_path"
	KeyNoColor        = "no_color"
)

// Config contains every option of the patcher front-ends.
type Config struct {
	// Copy the file to <file><backup_suffix> before writing to it.
	Backup       bool   `mapstructure:"backup"`
	BackupSuffix string `mapstructure:"backup_suffix"`
	// Rewrite a non-zero PE checksum after a structured patch.
	UpdateChecksum bool `mapstructure:"update_checksum"`
	// Minimum level of a log required to be written. Options: debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`
	// Full path to file to which logs will be written. Blank will write to stderr.
	LogFilePath string `mapstructure:"log_file_path"`
	// Disable colored output.
	NoColor bool `mapstructure:"no_color"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackup, true)
	v.SetDefault(KeyBackupSuffix, ".bak")
	v.SetDefault(KeyUpdateChecksum, true)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFilePath, "")
	v.SetDefault(KeyNoColor, false)
}

// Load reads configuration into v and decodes it. configFile names an explicit
// file; when empty, aspectpatch.yaml is looked up in the working directory and
// $HOME/.config/aspectpatch, and a missing file is not an error.
// Values resolve flag > env (ASPECTPATCH_<KEY>) > file > default.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	v.SetEnvPrefix(envVarPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if cfg.Backup && cfg.BackupSuffix == "" {
		return nil, errors.New("backup_suffix 不能为空")
	}
	return cfg, nil
}
