package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/rupor-github/gencfg"
	yaml "gopkg.in/yaml.v3"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// CSSConfig controls rule extraction from style blocks
	CSSConfig struct {
		// Tokenizer extracts rules with the CSS tokenizer instead of patterns
		Tokenizer bool `yaml:"tokenizer"`
		// StripComments removes /* ... */ before rules are extracted
		StripComments bool `yaml:"strip_comments"`
	}

	// Config holds configuration options for the inlining process
	Config struct {
		Version int           `yaml:"version" validate:"eq=1"`
		CSS     CSSConfig     `yaml:"css"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Version: 1,
		CSS: CSSConfig{
			Tokenizer:     false,
			StripComments: true,
		},
		Logging: LoggingConfig{
			ConsoleLogger: ConsoleLoggerConfig{Level: "normal", Format: "console"},
			FileLogger:    FileLoggerConfig{Level: "none", MaxSize: 10, MaxBackups: 3, MaxAge: 28},
		},
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// only fields defined above are accepted
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of the embedded defaults and validates the
// result. An empty path returns the defaults.
func LoadConfiguration(path string) (*Config, error) {
	haveFile := len(path) > 0

	data, err := Prepare()
	if err != nil {
		return nil, err
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	data, err := gencfg.Process(ConfigTmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	return data, nil
}

// Dump renders cfg as YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
