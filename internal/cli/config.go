package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/shelter/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "SHELTER"

	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyReferenceDir = "reference_dir"
	cfgKeyBusyTimeout  = "busy_timeout"
	cfgKeyLogLevel     = "log_level"
	cfgKeyHash         = "hash"
)

// configFile holds the structure written to config.yaml on first run.
type configFile struct {
	Backend      string           `yaml:"backend"`
	DataDir      string           `yaml:"data_dir,omitempty"`
	ReferenceDir string           `yaml:"reference_dir,omitempty"`
	BusyTimeout  string           `yaml:"busy_timeout"`
	LogLevel     string           `yaml:"log_level"`
	Hash         types.HashParams `yaml:"hash"`
}

// loadConfig reads config.yaml from configDir. The directory and a default
// config.yaml are created when missing. SHELTER_* environment variables
// override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), "", ""); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyBusyTimeout, types.DefaultBusyTimeout)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// buildConfig assembles the backend configuration. dataDir is already
// resolved against flags and environment.
func buildConfig(v *viper.Viper, dataDir string) (types.Config, error) {
	cfg := types.Config{
		Backend:      v.GetString(cfgKeyBackend),
		DataDir:      dataDir,
		ReferenceDir: v.GetString(cfgKeyReferenceDir),
		BusyTimeout:  v.GetDuration(cfgKeyBusyTimeout),
	}
	if err := v.UnmarshalKey(cfgKeyHash, &cfg.Hash); err != nil {
		return types.Config{}, fmt.Errorf("read %s: %w", cfgKeyHash, err)
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. An existing file is left alone.
func writeConfigIfMissing(path, dataDir, referenceDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := configFile{
		Backend:      types.BackendSQLite,
		DataDir:      dataDir,
		ReferenceDir: referenceDir,
		BusyTimeout:  types.DefaultBusyTimeout.String(),
		LogLevel:     "warn",
		Hash:         types.DefaultHashParams,
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# Shelter configuration\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
