// Package config loads run settings from an optional YAML or JSON file layered
// over built-in defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"artifactsync/internal/target"
)

// Paths is the working-directory layout.
type Paths struct {
	CurrentLogs  string `yaml:"current_logs" json:"current_logs"`
	PreviousLogs string `yaml:"previous_logs" json:"previous_logs"`
	Summaries    string `yaml:"summaries" json:"summaries"`
	Staging      string `yaml:"staging" json:"staging"`
}

// GitHub holds artifact-host settings. The token never comes from the file.
type GitHub struct {
	APIURL       string   `yaml:"api_url" json:"api_url"`
	CIRepo       string   `yaml:"ci_repo" json:"ci_repo"`
	SourceRepo   string   `yaml:"source_repo" json:"source_repo"`
	APIVersion   string   `yaml:"api_version" json:"api_version"`
	Timeout      Duration `yaml:"timeout" json:"timeout"`
	HistoryDepth int      `yaml:"history_depth" json:"history_depth"`
}

// Comparator selects the log comparator. An empty command uses the built-in
// result counter.
type Comparator struct {
	Command []string `yaml:"command" json:"command"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Config is the full run configuration.
type Config struct {
	Paths      Paths         `yaml:"paths" json:"paths"`
	GitHub     GitHub        `yaml:"github" json:"github"`
	Matrix     target.Matrix `yaml:"matrix" json:"matrix"`
	Comparator Comparator    `yaml:"comparator" json:"comparator"`
	Parallel   int           `yaml:"parallel" json:"parallel"`
	Log        Log           `yaml:"log" json:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Paths: Paths{
			CurrentLogs:  "./current_logs",
			PreviousLogs: "./previous_logs",
			Summaries:    "./summaries",
			Staging:      "./temp",
		},
		GitHub: GitHub{
			APIURL:       "https://api.github.com",
			CIRepo:       "rivosinc/riscv-gnu-toolchain-gcc-ci",
			SourceRepo:   "gcc-mirror/gcc",
			APIVersion:   "2022-11-28",
			Timeout:      Duration(5 * time.Minute),
			HistoryDepth: 30,
		},
		Matrix:   target.DefaultMatrix(),
		Parallel: 1,
		Log:      Log{Level: "info", Format: "text"},
	}
}

// LoadFromPath reads a config file (YAML or JSON) over Default.
func LoadFromPath(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses data over Default. ext is the file extension (e.g. ".json",
// ".yaml") used as a format hint; empty means detect from content. Sections
// absent from data keep their defaults; a matrix section replaces the
// default matrix as a whole.
func Load(data []byte, ext string) (Config, error) {
	cfg := Default()
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" {
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			ext = ".json"
		} else {
			ext = ".yaml"
		}
	}

	var hasMatrix bool
	switch ext {
	case ".json":
		var peek struct {
			Matrix json.RawMessage `json:"matrix"`
		}
		if err := json.Unmarshal(data, &peek); err != nil {
			return Config{}, fmt.Errorf("parse config json: %w", err)
		}
		hasMatrix = len(peek.Matrix) > 0
		if hasMatrix {
			cfg.Matrix = target.Matrix{}
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config json: %w", err)
		}
	case ".yaml":
		var peek struct {
			Matrix *yaml.Node `yaml:"matrix"`
		}
		if err := yaml.Unmarshal(data, &peek); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
		hasMatrix = peek.Matrix != nil
		if hasMatrix {
			cfg.Matrix = target.Matrix{}
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("config: unsupported extension %q", ext)
	}
	return cfg, nil
}

// Validate reports every problem in c.
func (c Config) Validate() error {
	var errs []error
	for name, p := range map[string]string{
		"paths.current_logs":  c.Paths.CurrentLogs,
		"paths.previous_logs": c.Paths.PreviousLogs,
		"paths.summaries":     c.Paths.Summaries,
		"paths.staging":       c.Paths.Staging,
	} {
		if p == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	if !strings.Contains(c.GitHub.CIRepo, "/") {
		errs = append(errs, fmt.Errorf("github.ci_repo %q: want owner/name", c.GitHub.CIRepo))
	}
	if !strings.Contains(c.GitHub.SourceRepo, "/") {
		errs = append(errs, fmt.Errorf("github.source_repo %q: want owner/name", c.GitHub.SourceRepo))
	}
	if c.GitHub.Timeout <= 0 {
		errs = append(errs, errors.New("github.timeout must be positive"))
	}
	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel %d: must be at least 1", c.Parallel))
	}
	if err := c.Matrix.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Duration is a time.Duration that reads "90s"-style strings from YAML/JSON.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration: want string, got %s", b)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}
