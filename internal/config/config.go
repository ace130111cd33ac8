// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"passport-crosscheck/internal/crosscheck"
	"passport-crosscheck/internal/paths"
)

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults Defaults `yaml:"defaults"`

	// Cross-check engine settings
	CrossCheck struct {
		VLMModel          string   `yaml:"vlm_model"`
		VLMBaseURL        string   `yaml:"vlm_base_url"`
		MRZTimeoutSeconds float64  `yaml:"mrz_timeout_seconds"`
		VLMTimeoutSeconds float64  `yaml:"vlm_timeout_seconds"`
		VLMMaxRetries     int      `yaml:"vlm_max_retries"`
		OCRLanguages      []string `yaml:"ocr_languages"`
		MaxImageMB        int64    `yaml:"max_image_mb"`
		MaxMegapixels     int64    `yaml:"max_megapixels"`
		MaxConcurrentOCR  int64    `yaml:"max_concurrent_ocr"`
	} `yaml:"crosscheck"`

	// Confidence scoring values
	Confidence crosscheck.ConfidenceConfig `yaml:"confidence"`

	// Web server settings
	Web struct {
		Port        int   `yaml:"port"`
		MaxUploadMB int64 `yaml:"max_upload_mb"`
	} `yaml:"web"`

	// Named overrides of the defaults
	Profiles map[string]Profile `yaml:"profiles"`

	// HFToken is never read from the file; it comes from the environment.
	HFToken string `yaml:"-"`
}

// Defaults holds output settings shared by the CLI and profiles.
type Defaults struct {
	Format  string `yaml:"format"`
	Verbose bool   `yaml:"verbose"`
	Debug   bool   `yaml:"debug"`
	NoColor bool   `yaml:"no_color"`
}

// Profile represents a named set of output and timeout overrides
type Profile struct {
	Description       string  `yaml:"description"`
	Format            string  `yaml:"format"`
	Verbose           *bool   `yaml:"verbose"`
	Debug             *bool   `yaml:"debug"`
	NoColor           *bool   `yaml:"no_color"`
	VLMModel          string  `yaml:"vlm_model"`
	MRZTimeoutSeconds float64 `yaml:"mrz_timeout_seconds"`
	VLMTimeoutSeconds float64 `yaml:"vlm_timeout_seconds"`
}

// Supported config file names in the working directory, in lookup order.
var localConfigFiles = []string{"crosscheck.yaml", "crosscheck.yml", ".crosscheck.yaml", ".crosscheck.yml"}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{Profiles: make(map[string]Profile)}
	cfg.Defaults.Format = "text"
	cfg.CrossCheck.VLMModel = crosscheck.DefaultVLMModel
	cfg.CrossCheck.MRZTimeoutSeconds = crosscheck.DefaultMRZTimeout.Seconds()
	cfg.CrossCheck.VLMTimeoutSeconds = crosscheck.DefaultVLMTimeout.Seconds()
	cfg.CrossCheck.VLMMaxRetries = 2
	cfg.CrossCheck.OCRLanguages = []string{"eng"}
	cfg.CrossCheck.MaxImageMB = 50
	cfg.CrossCheck.MaxMegapixels = 80
	cfg.CrossCheck.MaxConcurrentOCR = 4
	cfg.Confidence = crosscheck.DefaultConfidenceConfig()
	cfg.Web.Port = 8080
	cfg.Web.MaxUploadMB = 20

	yes := true
	cfg.Profiles["ci"] = Profile{
		Description: "Machine readable output for pipelines",
		Format:      "json",
		NoColor:     &yes,
	}
	return cfg
}

// LoadConfig loads configuration from the specified file path. An empty path
// returns the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Unmarshal over the defaults so absent keys keep their values.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches
// standard locations when configFile is empty). If loading fails, it returns
// the defaults together with the error so callers can warn.
func LoadConfigOrDefault(configFile string) (*Config, error) {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return Default(), err
	}
	return cfg, nil
}

// FindConfigFile looks for a configuration file in the working directory and
// then in the user config directory. It returns "" when none exists.
func FindConfigFile() string {
	for _, name := range localConfigFiles {
		if fileExists(name) {
			return name
		}
	}
	if standard := paths.GetConfigFile(); fileExists(standard) {
		return standard
	}
	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ValidateConfig checks values a user can get wrong in the file.
func ValidateConfig(cfg *Config) error {
	var problems []string
	if cfg.CrossCheck.MRZTimeoutSeconds <= 0 {
		problems = append(problems, "crosscheck.mrz_timeout_seconds must be positive")
	}
	if cfg.CrossCheck.VLMTimeoutSeconds <= 0 {
		problems = append(problems, "crosscheck.vlm_timeout_seconds must be positive")
	}
	if cfg.CrossCheck.VLMMaxRetries < 0 {
		problems = append(problems, "crosscheck.vlm_max_retries must not be negative")
	}
	if cfg.CrossCheck.MaxImageMB < 0 || cfg.CrossCheck.MaxMegapixels < 0 {
		problems = append(problems, "crosscheck image limits must not be negative")
	}
	if cfg.CrossCheck.MaxConcurrentOCR < 0 {
		problems = append(problems, "crosscheck.max_concurrent_ocr must not be negative")
	}
	if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
		problems = append(problems, fmt.Sprintf("web.port %d is out of range", cfg.Web.Port))
	}
	if cfg.Web.MaxUploadMB <= 0 {
		problems = append(problems, "web.max_upload_mb must be positive")
	}
	for name, v := range map[string]float64{
		"agreement_confidence":         cfg.Confidence.AgreementConfidence,
		"disagreement_base_confidence": cfg.Confidence.DisagreementBaseConfidence,
		"single_source_mrz_confidence": cfg.Confidence.SingleSourceMRZConfidence,
		"single_source_vlm_confidence": cfg.Confidence.SingleSourceVLMConfidence,
	} {
		if v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("confidence.%s must be between 0 and 1", name))
		}
	}
	if cfg.Confidence.CriticalFieldWeight < 0 || cfg.Confidence.StandardFieldWeight < 0 {
		problems = append(problems, "confidence weights must not be negative")
	}
	for name, p := range cfg.Profiles {
		if p.MRZTimeoutSeconds < 0 || p.VLMTimeoutSeconds < 0 {
			problems = append(problems, fmt.Sprintf("profile %q has a negative timeout", name))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errors.New(strings.Join(problems, "; "))
}

// ListProfiles returns the available profile names, sorted
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile overlays a named profile onto the defaults.
func (c *Config) ApplyProfile(name string) error {
	p := c.GetProfile(name)
	if p == nil {
		return fmt.Errorf("profile %q not found (available: %s)", name, strings.Join(c.ListProfiles(), ", "))
	}
	if p.Format != "" {
		c.Defaults.Format = p.Format
	}
	if p.Verbose != nil {
		c.Defaults.Verbose = *p.Verbose
	}
	if p.Debug != nil {
		c.Defaults.Debug = *p.Debug
	}
	if p.NoColor != nil {
		c.Defaults.NoColor = *p.NoColor
	}
	if p.VLMModel != "" {
		c.CrossCheck.VLMModel = p.VLMModel
	}
	if p.MRZTimeoutSeconds > 0 {
		c.CrossCheck.MRZTimeoutSeconds = p.MRZTimeoutSeconds
	}
	if p.VLMTimeoutSeconds > 0 {
		c.CrossCheck.VLMTimeoutSeconds = p.VLMTimeoutSeconds
	}
	return nil
}

// LoadEnv reads .env from dir into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables. Unparseable numbers are reported
// and leave the previous value in place.
func (c *Config) ApplyEnv() error {
	c.HFToken = strings.TrimSpace(os.Getenv("HF_TOKEN"))
	if v := os.Getenv("CROSSCHECK_VLM_MODEL"); v != "" {
		c.CrossCheck.VLMModel = v
	}
	if v := os.Getenv("CROSSCHECK_VLM_BASE_URL"); v != "" {
		c.CrossCheck.VLMBaseURL = v
	}

	var errs []error
	for env, dst := range map[string]*float64{
		"CROSSCHECK_MRZ_TIMEOUT": &c.CrossCheck.MRZTimeoutSeconds,
		"CROSSCHECK_VLM_TIMEOUT": &c.CrossCheck.VLMTimeoutSeconds,
	} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", env, err))
			continue
		}
		*dst = f
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PORT: %w", err))
		} else {
			c.Web.Port = port
		}
	}
	return errors.Join(errs...)
}

// MRZTimeout returns the configured MRZ timeout.
func (c *Config) MRZTimeout() time.Duration {
	return seconds(c.CrossCheck.MRZTimeoutSeconds)
}

// VLMTimeout returns the configured VLM timeout.
func (c *Config) VLMTimeout() time.Duration {
	return seconds(c.CrossCheck.VLMTimeoutSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// CrossCheckConfig builds the validated engine configuration.
func (c *Config) CrossCheckConfig() (*crosscheck.Config, error) {
	return crosscheck.NewConfig(c.HFToken,
		crosscheck.WithVLMModel(c.CrossCheck.VLMModel),
		crosscheck.WithTimeouts(c.MRZTimeout(), c.VLMTimeout()),
		crosscheck.WithConfidence(c.Confidence),
	)
}
