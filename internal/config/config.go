// Package config loads the migration tool's configuration: defaults,
// then an optional c2o.toml, then a .env file, then environment variable
// overrides. Later sources win.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/logger"
)

// FileName is the optional TOML config file looked up in the base path.
const FileName = "c2o.toml"

// Config is the full runtime configuration.
type Config struct {
	API         APIConfig      `toml:"api"`
	Directories DirConfig      `toml:"directories"`
	Security    SecurityConfig `toml:"security"`
}

// APIConfig carries the remote connection settings. Token and URL usually
// come from the environment rather than the TOML file, so credentials stay
// out of checked-in configuration.
type APIConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// DirConfig holds the pipeline's working directories, relative to the
// base path unless absolute.
type DirConfig struct {
	Zips   string `toml:"zips"`
	Input  string `toml:"input"`
	Output string `toml:"output"`
}

// SecurityConfig bounds archive extraction and filters attachment types.
type SecurityConfig struct {
	MaxFileSize  int64 `toml:"max_file_size"`
	MaxTotalSize int64 `toml:"max_total_size"`
	MaxFiles     int   `toml:"max_files"`

	// AllowedExtensions is the attachment extension allow-list, all
	// lowercase with leading dots.
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Directories: DirConfig{
			Zips:   "zips",
			Input:  "input",
			Output: "output",
		},
		Security: SecurityConfig{
			MaxFileSize:  100 * 1024 * 1024,
			MaxTotalSize: 1024 * 1024 * 1024,
			MaxFiles:     10000,
			AllowedExtensions: []string{
				".html", ".md", ".txt", ".png", ".jpg", ".jpeg", ".gif",
				".pdf", ".docx", ".doc", ".xlsx", ".xls", ".pptx", ".ppt",
			},
		},
	}
}

// Load assembles the configuration for basePath.
func Load(basePath string) (Config, error) {
	cfg := Default()

	if err := cfg.mergeFile(filepath.Join(basePath, FileName)); err != nil {
		return cfg, err
	}

	// .env is a convenience for local runs; a missing file is fine.
	if err := godotenv.Load(filepath.Join(basePath, ".env")); err == nil {
		logger.Debug("loaded environment from %s", filepath.Join(basePath, ".env"))
	}

	cfg.mergeEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	logger.Debug("loaded configuration from %s", path)
	return nil
}

func (c *Config) mergeEnv() {
	if v := os.Getenv("OUTLINE_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("OUTLINE_API_TOKEN"); v != "" {
		c.API.Token = v
	} else if v := os.Getenv("OUTLINE_API_KEY"); v != "" {
		c.API.Token = v
	}

	// OVERRIDE_EXTENSIONS replaces the allow-list, INCLUDE_EXTENSIONS
	// extends it.
	if v := os.Getenv("OVERRIDE_EXTENSIONS"); v != "" {
		if exts := parseExtensions(v); len(exts) > 0 {
			c.Security.AllowedExtensions = exts
		}
	}
	if v := os.Getenv("INCLUDE_EXTENSIONS"); v != "" {
		for _, ext := range parseExtensions(v) {
			if !c.Security.IsAllowedFile("x"+ext) {
				c.Security.AllowedExtensions = append(c.Security.AllowedExtensions, ext)
			}
		}
	}
}

func parseExtensions(list string) []string {
	var exts []string
	for _, part := range strings.Split(list, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		exts = append(exts, part)
	}
	return exts
}

// ValidateAPI checks that the remote credentials are present. Only
// commands that talk to the API call this.
func (c Config) ValidateAPI() error {
	if c.API.URL == "" || c.API.Token == "" {
		return fmt.Errorf("OUTLINE_API_URL and OUTLINE_API_TOKEN must be set: %w", domain.ErrMissingCredentials)
	}
	return nil
}

// IsAllowedFile reports whether the filename's extension is on the
// attachment allow-list.
func (s SecurityConfig) IsAllowedFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range s.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ZipsDir, InputDir and OutputDir resolve the configured directories
// against basePath.

func (c Config) ZipsDir(basePath string) string   { return resolve(basePath, c.Directories.Zips) }
func (c Config) InputDir(basePath string) string  { return resolve(basePath, c.Directories.Input) }
func (c Config) OutputDir(basePath string) string { return resolve(basePath, c.Directories.Output) }

func resolve(base, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}
