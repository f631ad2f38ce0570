package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"caseport/internal/archive"
	"caseport/internal/rename"
)

const FileName = "caseport.yml"

// Config models caseport.yml.
type Config struct {
	Output struct {
		Format      string `yaml:"format" validate:"oneof=json yaml"`
		Filename    string `yaml:"filename" validate:"required,excludesall=/\\"`
		Compression string `yaml:"compression" validate:"oneof=zstd none"`
		KeepLegacy  bool   `yaml:"keep-legacy"`
	} `yaml:"output"`
	Rename struct {
		Enabled         bool   `yaml:"enabled"`
		AnswerExtension string `yaml:"answer-extension" validate:"oneof=out ans"`
		MissingDigits   string `yaml:"missing-digits" validate:"oneof=keep reject"`
	} `yaml:"rename"`
	Discovery struct {
		Documents []string `yaml:"documents" validate:"required,min=1,dive,required"`
	} `yaml:"discovery"`
	Staging struct {
		Root string `yaml:"root"`
	} `yaml:"staging"`
	Journal struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"journal"`
	Log struct {
		Level string `yaml:"level" validate:"oneof=debug info warn error"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
}

var validate = validator.New()

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with caseport config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures every enumerated setting holds a known value.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	name := settingName(fe.StructNamespace())
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("config.%s must be one of [%s], got %q", name, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "required", "min":
		return fmt.Errorf("config.%s is required", name)
	default:
		return fmt.Errorf("config.%s is invalid", name)
	}
}

// settingName maps "Config.Rename.AnswerExtension" to "rename.answer-extension".
func settingName(ns string) string {
	parts := strings.Split(ns, ".")[1:]
	for i, p := range parts {
		var b strings.Builder
		for j, r := range p {
			if r >= 'A' && r <= 'Z' {
				if j > 0 && p[j-1] >= 'a' && p[j-1] <= 'z' {
					b.WriteByte('-')
				}
				r += 'a' - 'A'
			}
			b.WriteRune(r)
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, ".")
}

// RenameOptions returns the filename normalizer policies.
func (c *Config) RenameOptions() rename.Options {
	return rename.Options{
		AnswerExtension: c.Rename.AnswerExtension,
		MissingDigits:   c.Rename.MissingDigits,
	}
}

// OutputName is the file name of the canonical document written next to a
// converted legacy document.
func (c *Config) OutputName() string {
	return c.Output.Filename + "." + c.Output.Format
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	cfg, err := FromFile(Path(workspace))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	cfg.Output.Format = "json"
	cfg.Output.Filename = "config"
	cfg.Output.Compression = archive.CompressionZstd
	cfg.Rename.Enabled = true
	cfg.Rename.AnswerExtension = rename.AnswerAsOut
	cfg.Rename.MissingDigits = rename.MissingKeep
	cfg.Discovery.Documents = append([]string(nil), archive.DefaultDocumentPatterns...)
	cfg.Journal.Enabled = true
	cfg.Log.Level = "info"
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Settings absent
// from data keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `output:
  # json or yaml
  format: json
  # canonical document name, the extension follows the format
  filename: config
  # zstd or none
  compression: zstd
  # keep the legacy documents next to the converted ones
  keep-legacy: false

rename:
  enabled: true
  # out folds .ans answers into .out, ans keeps them
  answer-extension: out
  # keep leaves names without a case number alone, reject aborts
  missing-digits: keep

discovery:
  documents:
    - "**/*.yaml"
    - "**/*.yml"

staging:
  # empty means the system temp directory
  root: ""

journal:
  enabled: true

log:
  level: info
  json: false
`
