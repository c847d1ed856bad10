package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Report sources; empty means the published default.
	CovidConfirmedURL string `mapstructure:"covid_confirmed_url" yaml:"covid_confirmed_url"`
	CovidDeathsURL    string `mapstructure:"covid_deaths_url" yaml:"covid_deaths_url"`
	NYPDURL           string `mapstructure:"nypd_url" yaml:"nypd_url"`

	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`
	WriteXLSX     bool   `mapstructure:"write_xlsx" yaml:"write_xlsx"`
	TopN          int    `mapstructure:"top_n" yaml:"top_n"`
	RollingWindow int    `mapstructure:"rolling_window" yaml:"rolling_window"`

	// HTTP/decoding
	HTTPTimeoutSec int      `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	NullMarkers    []string `mapstructure:"null_markers" yaml:"null_markers"`
}

// Dir returns ~/.tidyreport.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tidyreport"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tidyreport/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (TIDYREPORT_*) > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TIDYREPORT")
	v.AutomaticEnv()

	v.SetDefault("covid_confirmed_url", "")
	v.SetDefault("covid_deaths_url", "")
	v.SetDefault("nypd_url", "")
	v.SetDefault("output_dir", "")
	v.SetDefault("write_xlsx", false)
	v.SetDefault("top_n", 10)
	v.SetDefault("rolling_window", 7)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("null_markers", []string{"", "NA", "NaN", "(null)", "<nil>"})

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a named file that exists but does not parse is an error
	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve output_dir default: ~/.tidyreport/reports
	if c.OutputDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.OutputDir = filepath.Join(dir, "reports")
	}
	return &c, nil
}
