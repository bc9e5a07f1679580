// Package config loads bnote settings from defaults, a bnote.yaml file,
// BNOTE_ environment variables and command line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// FileName is the config file searched for upward from the working directory.
	FileName  = "bnote.yaml"
	envPrefix = "BNOTE_"

	// maxUpwardSearchLevels limits how far up the directory tree to search.
	maxUpwardSearchLevels = 10
)

// Config is the merged configuration.
type Config struct {
	DB      string        `koanf:"db"`
	Output  string        `koanf:"output" validate:"oneof=text json"`
	Log     LogConfig     `koanf:"log"`
	Compute ComputeConfig `koanf:"compute"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	File  string `koanf:"file"`
	JSON  bool   `koanf:"json"`
}

type ComputeConfig struct {
	Mode     string `koanf:"mode" validate:"oneof=append overwrite"`
	Revision string `koanf:"revision"`
	Building string `koanf:"building"`
}

// JSON reports whether command output should be JSON.
func (c *Config) JSON() bool { return c.Output == "json" }

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"log-file":  "log.file",
	"mode":      "compute.mode",
	"revision":  "compute.revision",
	"building":  "compute.building",
}

// findConfigFile searches upward from dir for FileName.
func findConfigFile(dir string) string {
	for i := 0; i < maxUpwardSearchLevels; i++ {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load merges configuration. Precedence (highest to lowest): explicitly set
// flags > env vars > config file > defaults. An empty cfgFile searches
// upward from the working directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"output":       "text",
		"log.level":    "warn",
		"compute.mode": "append",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if cfgFile == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfgFile = findConfigFile(cwd)
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	}

	// BNOTE_LOG_LEVEL -> log.level
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			if f.Name == "json" {
				if v, _ := flags.GetBool("json"); v {
					return "output", "json"
				}
				return "output", "text"
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = f.Name
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = cfgFile
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Compute.Mode = strings.ToLower(cfg.Compute.Mode)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
