// Package config resolves repolens settings from defaults, a JSON file,
// .env and the environment, and command-line flags, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sprite-ai/repolens/internal/model"
)

// Config is the effective repolens configuration.
type Config struct {
	Model          string   `json:"model"`
	Mode           string   `json:"mode"`
	Host           string   `json:"host"`
	TopFiles       int      `json:"topFiles"`
	LargeFileLines int      `json:"largeFileLines"`
	MaxFileBytes   int64    `json:"maxFileBytes"`
	Exclude        []string `json:"exclude,omitempty"`
	TimeoutSeconds int      `json:"timeoutSeconds"`
	Temperature    *float64 `json:"temperature,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Model:          "llama3.1",
		Mode:           model.ModeInformative.String(),
		Host:           "http://localhost:11434",
		TopFiles:       10,
		LargeFileLines: 500,
		MaxFileBytes:   1 << 20,
		TimeoutSeconds: 300,
	}
}

// ReviewMode returns the parsed Mode. Call Validate first.
func (c Config) ReviewMode() model.ReviewMode {
	m, err := model.ParseReviewMode(c.Mode)
	if err != nil {
		return model.ModeInformative
	}
	return m
}

// Validate reports settings that would make a run meaningless.
func (c Config) Validate() error {
	var errs []error
	if _, err := model.ParseReviewMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model must not be empty"))
	}
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if c.TopFiles <= 0 {
		errs = append(errs, fmt.Errorf("topFiles must be positive, got %d", c.TopFiles))
	}
	if c.LargeFileLines <= 0 {
		errs = append(errs, fmt.Errorf("largeFileLines must be positive, got %d", c.LargeFileLines))
	}
	if c.MaxFileBytes <= 0 {
		errs = append(errs, fmt.Errorf("maxFileBytes must be positive, got %d", c.MaxFileBytes))
	}
	if c.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("timeoutSeconds must be positive, got %d", c.TimeoutSeconds))
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %g", *c.Temperature))
	}
	return errors.Join(errs...)
}

// Dir returns the platform-appropriate config directory for repolens.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "repolens"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "repolens"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "repolens"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "repolens"), nil
	default:
		return filepath.Join(home, ".config", "repolens"), nil
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile reads a config file. A missing file yields a zero Config and no
// error.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load builds the effective config: defaults <- file <- .env/env <- overrides.
// An empty path means the default config file. Overrides come from CLI
// flags; only keys the user actually set should be present.
func Load(path string, overrides map[string]string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := Path()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	fileCfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)

	// .env never overrides variables already present in the environment.
	_ = godotenv.Load()
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Mode != "" {
		dst.Mode = src.Mode
	}
	if src.Host != "" {
		dst.Host = src.Host
	}
	if src.TopFiles > 0 {
		dst.TopFiles = src.TopFiles
	}
	if src.LargeFileLines > 0 {
		dst.LargeFileLines = src.LargeFileLines
	}
	if src.MaxFileBytes > 0 {
		dst.MaxFileBytes = src.MaxFileBytes
	}
	if len(src.Exclude) > 0 {
		dst.Exclude = src.Exclude
	}
	if src.TimeoutSeconds > 0 {
		dst.TimeoutSeconds = src.TimeoutSeconds
	}
	if src.Temperature != nil {
		t := *src.Temperature
		dst.Temperature = &t
	}
}

func mergeEnv(cfg *Config) error {
	if v := os.Getenv("REPOLENS_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("REPOLENS_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Host = normalizeHost(v)
	}
	for _, e := range []struct {
		key string
		dst *int
	}{
		{"REPOLENS_TOP_FILES", &cfg.TopFiles},
		{"REPOLENS_LARGE_FILE_LINES", &cfg.LargeFileLines},
		{"REPOLENS_TIMEOUT", &cfg.TimeoutSeconds},
	} {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", e.key, err)
		}
		*e.dst = n
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := SetField(cfg, key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetField sets a single config field by key name.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "model":
		cfg.Model = value
	case "mode":
		cfg.Mode = value
	case "host":
		cfg.Host = normalizeHost(value)
	case "topFiles", "largeFileLines", "timeoutSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		switch key {
		case "topFiles":
			cfg.TopFiles = n
		case "largeFileLines":
			cfg.LargeFileLines = n
		default:
			cfg.TimeoutSeconds = n
		}
	case "maxFileBytes":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("maxFileBytes must be an integer: %w", err)
		}
		cfg.MaxFileBytes = n
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("temperature must be a number: %w", err)
		}
		cfg.Temperature = &f
	case "exclude":
		cfg.Exclude = nil
		for _, g := range strings.Split(value, ",") {
			if g = strings.TrimSpace(g); g != "" {
				cfg.Exclude = append(cfg.Exclude, g)
			}
		}
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// normalizeHost accepts OLLAMA_HOST in its bare host:port form.
func normalizeHost(h string) string {
	h = strings.TrimRight(strings.TrimSpace(h), "/")
	if h != "" && !strings.Contains(h, "://") {
		h = "http://" + h
	}
	return h
}
