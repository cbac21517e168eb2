// Package config loads hybrid highlighting settings from YAML or HCL files
// and GOTMPLS_* environment variables.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/walteh/gotmpls-hybrid/pkg/directive"
	"github.com/walteh/gotmpls-hybrid/pkg/grammar"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

const DefaultMaxFileSize int64 = 1 << 20

const envPrefix = "GOTMPLS_"

// Config is the effective configuration.
type Config struct {
	DirectiveEnabled bool
	// MaxFileSize is the byte ceiling above which only template tokens are produced.
	MaxFileSize    int64
	Overrides      []directive.Override
	Languages      []grammar.Language
	ExtraBuiltins  []string
	GrammarDir     string
	GrammarArchive string
	LogLevel       string

	// Path is the file the configuration was loaded from, empty for defaults.
	Path string
}

// fileConfig is what a config file may set. Nil fields keep their defaults.
type fileConfig struct {
	DirectiveEnabled *bool                `yaml:"directive_enabled,omitempty" hcl:"directive_enabled,optional"`
	MaxFileSize      *int64               `yaml:"max_file_size,omitempty" hcl:"max_file_size,optional"`
	Overrides        []directive.Override `yaml:"overrides,omitempty" hcl:"override,block"`
	Languages        []grammar.Language   `yaml:"languages,omitempty" hcl:"language,block"`
	ExtraBuiltins    []string             `yaml:"extra_builtins,omitempty" hcl:"extra_builtins,optional"`
	GrammarDir       *string              `yaml:"grammar_dir,omitempty" hcl:"grammar_dir,optional"`
	GrammarArchive   *string              `yaml:"grammar_archive,omitempty" hcl:"grammar_archive,optional"`
	LogLevel         *string              `yaml:"log_level,omitempty" hcl:"log_level,optional"`
}

func Default() *Config {
	return &Config{
		DirectiveEnabled: true,
		MaxFileSize:      DefaultMaxFileSize,
		Languages:        grammar.DefaultLanguages(),
		LogLevel:         zerolog.InfoLevel.String(),
	}
}

// Load reads path on top of the defaults. Files ending in .yaml or .yml are
// YAML, anything else is HCL with the process environment available as env.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}
	cfg, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// Resolve produces the effective configuration: path (or the defaults when
// path is empty), then the environment, then validation.
func Resolve(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data as if it had been read from path.
func Parse(path string, data []byte) (*Config, error) {
	var fc fileConfig

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
	default:
		parser := hclparse.NewParser()
		hclFile, diags := parser.ParseHCL(data, path)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}

		ctx := &hcl.EvalContext{
			Variables: map[string]cty.Value{
				"env": environment(),
			},
		}

		diags = gohcl.DecodeBody(hclFile.Body, ctx, &fc)
		if diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}
	}

	cfg := Default()
	cfg.merge(&fc)
	return cfg, nil
}

func environment() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}

func (c *Config) merge(fc *fileConfig) {
	if fc.DirectiveEnabled != nil {
		c.DirectiveEnabled = *fc.DirectiveEnabled
	}
	if fc.MaxFileSize != nil {
		c.MaxFileSize = *fc.MaxFileSize
	}
	c.Overrides = append(c.Overrides, fc.Overrides...)
	// configured languages extend and replace the built-in table
	c.Languages = append(c.Languages, fc.Languages...)
	c.ExtraBuiltins = append(c.ExtraBuiltins, fc.ExtraBuiltins...)
	if fc.GrammarDir != nil {
		c.GrammarDir = *fc.GrammarDir
	}
	if fc.GrammarArchive != nil {
		c.GrammarArchive = *fc.GrammarArchive
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
}

// ApplyEnv overlays GOTMPLS_* variables found by lookup, os.LookupEnv when nil.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var result *multierror.Error

	if v, ok := lookup(envPrefix + "DIRECTIVE_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			result = multierror.Append(result, errors.Errorf("%sDIRECTIVE_ENABLED: %w", envPrefix, err))
		} else {
			c.DirectiveEnabled = b
		}
	}
	if v, ok := lookup(envPrefix + "MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			result = multierror.Append(result, errors.Errorf("%sMAX_FILE_SIZE: %w", envPrefix, err))
		} else {
			c.MaxFileSize = n
		}
	}
	if v, ok := lookup(envPrefix + "GRAMMAR_DIR"); ok {
		c.GrammarDir = v
	}
	if v, ok := lookup(envPrefix + "GRAMMAR_ARCHIVE"); ok {
		c.GrammarArchive = v
	}
	if v, ok := lookup(envPrefix + "LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(envPrefix + "EXTRA_BUILTINS"); ok {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.ExtraBuiltins = append(c.ExtraBuiltins, name)
			}
		}
	}

	return result.ErrorOrNil()
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.MaxFileSize <= 0 {
		result = multierror.Append(result, errors.Errorf("max_file_size must be positive, got %d", c.MaxFileSize))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, errors.Errorf("log_level: %w", err))
	}
	for _, o := range c.Overrides {
		if err := o.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for i, l := range c.Languages {
		if l.ID == "" {
			result = multierror.Append(result, errors.Errorf("language %d: id is required", i))
		}
		if l.Scope == "" {
			result = multierror.Append(result, errors.Errorf("language %q: scope is required", l.ID))
		}
	}
	for _, name := range c.ExtraBuiltins {
		if !isIdentifier(name) {
			result = multierror.Append(result, errors.Errorf("extra builtin %q is not an identifier", name))
		}
	}

	return result.ErrorOrNil()
}

func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) DirectiveOptions() directive.Options {
	return directive.Options{Enabled: c.DirectiveEnabled, Overrides: c.Overrides}
}

func (c *Config) GrammarSource() grammar.Source {
	return grammar.Source{Dir: c.GrammarDir, Archive: c.GrammarArchive}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
