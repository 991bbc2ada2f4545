package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pfs/internal/auth"
	"github.com/mesh-intelligence/pfs/internal/paths"
	"github.com/mesh-intelligence/pfs/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend    = "backend"
	cfgKeyDataDir    = "data_dir"
	cfgKeyLogLevel   = "log_level"
	cfgKeyBackupDir  = "backup_dir"
	cfgKeyBcryptCost = "bcrypt_cost"

	envPrefix       = "PFS"
	defaultLogLevel = "warn"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Backend    string `yaml:"backend"`
	DataDir    string `yaml:"data_dir,omitempty"`
	BackupDir  string `yaml:"backup_dir,omitempty"`
	LogLevel   string `yaml:"log_level"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

func defaultConfigFile() configFile {
	return configFile{
		Backend:    types.BackendSQLite,
		LogLevel:   defaultLogLevel,
		BcryptCost: auth.DefaultCost,
	}
}

// setup resolves the config directory, loads config.yaml and builds the
// logger. A default config.yaml is written on first run.
func (a *app) setup(cmd *cobra.Command, initMode bool) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolving config dir: %w", err)
	}
	a.configDir = configDir

	seed := defaultConfigFile()
	if initMode {
		seed.DataDir = a.flags.dataDir
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if _, err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), seed); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	if err := v.BindPFlag(cfgKeyLogLevel, cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
		return fmt.Errorf("binding log level flag: %w", err)
	}
	a.v = v

	log, err := newLogger(v.GetString(cfgKeyLogLevel), a.stderr)
	if err != nil {
		return usageError{err}
	}
	a.log = log
	a.log.WithFields(logrus.Fields{"config": configDir, "backend": v.GetString(cfgKeyBackend)}).Debug("config loaded")
	return nil
}

// loadConfig reads config.yaml from configDir using Viper. A missing file is
// not an error. Keys other than data_dir can be overridden by PFS_<KEY>
// environment variables; data_dir follows the paths precedence instead.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyBcryptCost, auth.DefaultCost)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{cfgKeyBackend, cfgKeyLogLevel, cfgKeyBackupDir, cfgKeyBcryptCost} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates path from cfg unless the file exists. It
// reports whether a file was written.
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
