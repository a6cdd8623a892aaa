package core

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/jo-hoe/gogallery/internal/backend/database"
	"github.com/jo-hoe/gogallery/internal/backend/imageprocessing"
	"github.com/jo-hoe/gogallery/internal/backend/submission"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort             = 8080
	DefaultBodyLimit        = "25M"
	DefaultDatabaseType     = database.TypeSQLite
	DefaultConnectionString = "gallery.db"
)

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

// ImageConfig controls how uploaded images are normalized.
type ImageConfig struct {
	TargetHeight   int   `yaml:"targetHeight"`
	Quality        int   `yaml:"quality"`
	AllowUpscale   *bool `yaml:"allowUpscale"`
	MaxPixels      int   `yaml:"maxPixels"`
	MaxUploadBytes int   `yaml:"maxUploadBytes"`
}

// SubmissionConfig toggles the required conditions of the submission form.
// Unset require flags default to true. The artwork can not be made optional since every
// stored record carries a normalized artwork image.
type SubmissionConfig struct {
	CaptchaEnabled bool  `yaml:"captchaEnabled"`
	RequireName    *bool `yaml:"requireName"`
	RequireCountry *bool `yaml:"requireCountry"`
	RequireWebsite *bool `yaml:"requireWebsite"`
	RequireArtwork *bool `yaml:"requireArtwork"`
}

type ListingConfig struct {
	CountryMatch   string   `yaml:"countryMatch"`
	SkipHonorifics *bool    `yaml:"skipHonorifics"`
	Honorifics     []string `yaml:"honorifics"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
}

type ServiceConfig struct {
	Port       int              `yaml:"port"`
	LogLevel   string           `yaml:"logLevel"`
	BodyLimit  string           `yaml:"bodyLimit"`
	Database   Database         `yaml:"database"`
	Image      ImageConfig      `yaml:"image"`
	Submission SubmissionConfig `yaml:"submission"`
	Listing    ListingConfig    `yaml:"listing"`
	CORS       CORSConfig       `yaml:"cors"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{}
	config.applyDefaults()
	return config
}

// LoadConfig loads configuration from the specified YAML file, falls back to defaults when
// the file does not exist and applies environment overrides.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	var config ServiceConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("config file not found, using defaults", "path", configPath)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := config.applyEnvironment(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func (c *ServiceConfig) applyEnvironment(lookup func(string) (string, bool)) error {
	if value, ok := lookup("PORT"); ok && value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("PORT %q is not a number: %w", value, err)
		}
		c.Port = port
	}
	if value, ok := lookup("LOG_LEVEL"); ok && value != "" {
		c.LogLevel = value
	}
	if value, ok := lookup("DATABASE_TYPE"); ok && value != "" {
		c.Database.Type = value
	}
	if value, ok := lookup("DATABASE_CONNECTION_STRING"); ok && value != "" {
		c.Database.ConnectionString = value
	}
	if value, ok := lookup("CAPTCHA_ENABLED"); ok && value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("CAPTCHA_ENABLED %q is not a boolean: %w", value, err)
		}
		c.Submission.CaptchaEnabled = enabled
	}
	return nil
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.BodyLimit == "" {
		c.BodyLimit = DefaultBodyLimit
	}
	if c.Database.Type == "" {
		c.Database.Type = DefaultDatabaseType
	}
	if c.Database.ConnectionString == "" && c.Database.Type == database.TypeSQLite {
		c.Database.ConnectionString = DefaultConnectionString
	}
	if c.Image.TargetHeight == 0 {
		c.Image.TargetHeight = imageprocessing.DefaultTargetHeight
	}
	if c.Image.Quality == 0 {
		c.Image.Quality = imageprocessing.DefaultJpegQuality
	}
	if c.Image.MaxPixels == 0 {
		c.Image.MaxPixels = imageprocessing.DefaultMaxPixels
	}
	if c.Image.MaxUploadBytes == 0 {
		c.Image.MaxUploadBytes = imageprocessing.DefaultMaxUploadBytes
	}
	if c.Listing.CountryMatch == "" {
		c.Listing.CountryMatch = string(database.MatchSubstring)
	}
}

// Validate rejects settings the service cannot start with.
func (c *ServiceConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if !slices.Contains(database.SupportedTypes, c.Database.Type) {
		return fmt.Errorf("unsupported database type %q, expected one of %s",
			c.Database.Type, strings.Join(database.SupportedTypes, ", "))
	}
	if c.Database.ConnectionString == "" {
		return fmt.Errorf("database connectionString is required for type %s", c.Database.Type)
	}
	if c.Image.TargetHeight <= 0 {
		return fmt.Errorf("image targetHeight must be positive, got %d", c.Image.TargetHeight)
	}
	if c.Image.Quality < 1 || c.Image.Quality > 100 {
		return fmt.Errorf("image quality must be between 1 and 100, got %d", c.Image.Quality)
	}
	if c.Image.MaxPixels < 0 || c.Image.MaxUploadBytes < 0 {
		return errors.New("image limits must not be negative")
	}
	if !boolOrDefault(c.Submission.RequireArtwork, true) {
		return errors.New("submission requireArtwork can not be disabled")
	}
	if _, err := database.ParseCountryMatch(c.Listing.CountryMatch); err != nil {
		return err
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level. Invalid values were rejected by Validate.
func (c *ServiceConfig) SlogLevel() slog.Level {
	level, _ := parseLogLevel(c.LogLevel)
	return level
}

func parseLogLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid logLevel %q: %w", value, err)
	}
	return level, nil
}

// NormalizerConfig maps the image section onto the normalizer settings.
func (c *ServiceConfig) NormalizerConfig() imageprocessing.Config {
	config := imageprocessing.DefaultConfig()
	config.TargetHeight = c.Image.TargetHeight
	config.Quality = c.Image.Quality
	config.AllowUpscale = boolOrDefault(c.Image.AllowUpscale, true)
	config.MaxPixels = c.Image.MaxPixels
	config.MaxUploadBytes = c.Image.MaxUploadBytes
	return config
}

// ValidationRules maps the submission section onto validator rules.
func (c *ServiceConfig) ValidationRules() submission.Rules {
	return submission.Rules{
		RequireName:    boolOrDefault(c.Submission.RequireName, true),
		RequireCountry: boolOrDefault(c.Submission.RequireCountry, true),
		RequireWebsite: boolOrDefault(c.Submission.RequireWebsite, true),
		RequireArtwork: boolOrDefault(c.Submission.RequireArtwork, true),
		RequireCaptcha: c.Submission.CaptchaEnabled,
	}
}

// StoreOptions returns the options shared by every record store.
func (c *ServiceConfig) StoreOptions() database.Options {
	if !boolOrDefault(c.Listing.SkipHonorifics, true) {
		return database.Options{}
	}
	honorifics := c.Listing.Honorifics
	if len(honorifics) == 0 {
		honorifics = database.DefaultHonorifics
	}
	return database.Options{Honorifics: honorifics}
}

// CountryMatch returns the configured policy. Invalid values were rejected by Validate.
func (c *ServiceConfig) CountryMatch() database.CountryMatch {
	match, err := database.ParseCountryMatch(c.Listing.CountryMatch)
	if err != nil {
		return database.MatchSubstring
	}
	return match
}

func boolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
