// Package config loads the .beguile.yaml project file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name Find looks for.
const FileName = ".beguile.yaml"

// ErrNotFound is returned by Find when no config file exists between the
// start directory and the filesystem root.
var ErrNotFound = errors.New("config: file not found")

// Config is the decoded project configuration.
type Config struct {
	Backend Backend `yaml:"backend"`
	Format  Format  `yaml:"format"`
	Index   Index   `yaml:"index"`
	Log     Log     `yaml:"log"`

	// Path is the file the config was loaded from, empty for defaults.
	Path string `yaml:"-"`
}

// Backend describes the Guile process.
type Backend struct {
	Command  string        `yaml:"command"`
	Args     []string      `yaml:"args"`
	Dir      string        `yaml:"dir"`
	Timeout  time.Duration `yaml:"timeout"`
	Disabled bool          `yaml:"disabled"`
}

// Format holds formatter settings.
type Format struct {
	MaxWidth    int      `yaml:"max_width"`
	BodyForms   []string `yaml:"body_forms"`
	AlignForms  []string `yaml:"align_forms"`
	RulesScript string   `yaml:"rules_script"`
}

// Index holds symbol index settings.
type Index struct {
	DBPath   string `yaml:"db_path"`
	Parallel bool   `yaml:"parallel"`
}

// Log holds logger settings.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Backend: Backend{
			Command: "guile",
			Args:    []string{"--no-auto-compile", "guile/server.scm"},
			Timeout: 2 * time.Second,
		},
		Format: Format{
			MaxWidth:  100,
			BodyForms: []string{"when", "unless", "match", "syntax-rules"},
		},
		Index: Index{
			DBPath:   filepath.Join(".beguile", "index.db"),
			Parallel: true,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
// Lists in data replace the default lists rather than extending them.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find walks from startDir towards the root looking for FileName.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	for {
		p := filepath.Join(dir, FileName)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// LoadFrom finds and loads the config for startDir, falling back to the
// defaults when there is none.
func LoadFrom(startDir string) (*Config, error) {
	p, err := Find(startDir)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Load(p)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if !c.Backend.Disabled && c.Backend.Command == "" {
		errs = append(errs, errors.New("backend.command is empty"))
	}
	if c.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout %s is negative", c.Backend.Timeout))
	}
	if c.Format.MaxWidth < 0 {
		errs = append(errs, fmt.Errorf("format.max_width %d is negative", c.Format.MaxWidth))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

// Resolve makes relative paths absolute against the directory holding the
// config file, or against root for defaults.
func (c *Config) Resolve(root string) {
	base := root
	if c.Path != "" {
		base = filepath.Dir(c.Path)
	}
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Index.DBPath = abs(c.Index.DBPath)
	c.Format.RulesScript = abs(c.Format.RulesScript)
	if c.Backend.Dir == "" {
		c.Backend.Dir = base
	} else {
		c.Backend.Dir = abs(c.Backend.Dir)
	}
}

// ParseLevel maps a level name to a slog level. An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", name, err)
	}
	return l, nil
}

// NewLogger builds the root logger writing to w. BEGUILE_DEBUG=1 forces the
// debug level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if v := os.Getenv("BEGUILE_DEBUG"); v != "" && v != "0" && !strings.EqualFold(v, "false") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
