// Package config loads the per-project analysis settings and the environment
// defaults for the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up in the analyzed root.
const FileName = ".contextweaver.yaml"

// Settings controls which files are analyzed and which report sections are
// rendered.
type Settings struct {
	IncludedExtensions []string `yaml:"included_extensions"`
	ExcludePatterns    []string `yaml:"exclude_patterns"`
	WrapperDirectories []string `yaml:"wrapper_directories"`
	// EnabledSections lists optional section names. Empty enables all.
	EnabledSections []string `yaml:"enabled_sections,omitempty"`
}

// Default returns a fresh copy of the built-in settings.
func Default() Settings {
	return Settings{
		IncludedExtensions: []string{
			".go", ".py", ".rb",
			".md", ".json", ".yaml", ".yml", ".toml", ".mod",
			".sh", ".sql", ".proto",
		},
		ExcludePatterns: []string{
			"bin/", "obj/", "build/", "dist/",
			"node_modules/", "vendor/", "testdata/",
			"*.min.js", "*.pb.go",
		},
		WrapperDirectories: []string{"src", "internal", "pkg"},
	}
}

// Empty reports whether s carries neither extensions nor exclude patterns.
func (s Settings) Empty() bool {
	return len(s.IncludedExtensions) == 0 && len(s.ExcludePatterns) == 0
}

// Load reads FileName from root. It never fails: a missing file yields the
// defaults, which are echoed to disk; an unreadable, malformed or empty file
// yields the defaults with a warning.
func Load(root string, log *slog.Logger) Settings {
	path := filepath.Join(root, FileName)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		defaults := Default()
		log.Info("no settings file found, writing defaults", "path", path)
		if err := Save(root, defaults); err != nil {
			log.Warn("could not write default settings", "path", path, "err", err)
		}
		return defaults
	}
	if err != nil {
		log.Warn("could not read settings, using defaults", "path", path, "err", err)
		return Default()
	}

	s, err := Parse(data)
	if err != nil {
		log.Warn("malformed settings, using defaults", "path", path, "err", err)
		return Default()
	}
	if s.Empty() {
		log.Info("settings file is empty or incomplete, using defaults", "path", path)
		return Default()
	}
	if len(s.WrapperDirectories) == 0 {
		s.WrapperDirectories = Default().WrapperDirectories
	}
	log.Debug("loaded settings", "path", path)
	return s
}

// Parse decodes settings YAML and normalizes extensions to lowercase with a
// leading dot.
func Parse(data []byte) (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	for i, ext := range s.IncludedExtensions {
		s.IncludedExtensions[i] = NormalizeExtension(ext)
	}
	return s, nil
}

// Save writes s to FileName under root.
func Save(root string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	path := filepath.Join(root, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// NormalizeExtension lowercases ext and ensures a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Environment variables consulted by LoadEnv.
const (
	EnvLogLevel  = "CONTEXTWEAVER_LOG_LEVEL"
	EnvLogFormat = "CONTEXTWEAVER_LOG_FORMAT"
	EnvWorkers   = "CONTEXTWEAVER_WORKERS"
)

// Env holds defaults for command-line flags taken from the environment.
type Env struct {
	LogLevel  string
	LogFormat string
	Workers   int
}

// LoadEnv loads a .env file from the working directory when present, then
// reads the CONTEXTWEAVER_* variables. Unset or invalid values keep the
// built-in defaults.
func LoadEnv() Env {
	_ = godotenv.Load()

	env := Env{LogLevel: "warn", LogFormat: "text"}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		env.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		env.LogFormat = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkers)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			env.Workers = n
		}
	}
	return env
}
