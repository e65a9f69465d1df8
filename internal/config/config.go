package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"labsignal/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig `validate:"required"`
	Server   ServerConfig   `validate:"required"`
	Paths    PathConfig
	LogLevel string `validate:"omitempty,oneof=ERROR WARN INFO DEBUG TRACE"`
}

// AnalysisConfig holds the defaults applied when a request does not set them
type AnalysisConfig struct {
	UnitSystem          string  `validate:"required,oneof=eu us"`
	WindowDays          int     `validate:"min=21,max=90"`
	Language            string  `validate:"required,oneof=en nl"`
	SuggestedDoseOffset float64 `validate:"lt=0"`
	Workers             int     `validate:"min=1,max=64"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required,numeric"`
	GinMode string `validate:"oneof=debug release test"`
}

// PathConfig holds file system paths
type PathConfig struct {
	PriorsFile string
	Dataset    string
}

var validate = validator.New()

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Analysis: *loadAnalysisConfig(),
		Server:   *loadServerConfig(),
		Paths:    *loadPathConfig(),
		LogLevel: strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO")),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Default returns the configuration Load yields with an empty environment
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			UnitSystem:          "eu",
			WindowDays:          45,
			Language:            "en",
			SuggestedDoseOffset: -20,
			Workers:             4,
		},
		Server:   ServerConfig{Port: "8080", GinMode: "debug"},
		LogLevel: "INFO",
	}
}

func loadAnalysisConfig() *AnalysisConfig {
	d := Default().Analysis
	return &AnalysisConfig{
		UnitSystem:          strings.ToLower(getEnvOrDefault("UNIT_SYSTEM", d.UnitSystem)),
		WindowDays:          getEnvIntOrDefault("WINDOW_DAYS", d.WindowDays),
		Language:            strings.ToLower(getEnvOrDefault("LANGUAGE", d.Language)),
		SuggestedDoseOffset: getEnvFloatOrDefault("SUGGESTED_DOSE_OFFSET", d.SuggestedDoseOffset),
		Workers:             getEnvIntOrDefault("ANALYSIS_WORKERS", d.Workers),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		PriorsFile: getEnvOrDefault("PRIORS_FILE", ""),
		Dataset:    getEnvOrDefault("DATASET_FILE", ""),
	}
}

// Validate checks a configuration that was changed after Load
func (c *Config) Validate() error {
	return validateConfig(c)
}

func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return errors.ConfigInvalid(fe.Namespace() + " failed " + fe.Tag() + " check (got " + strconv.Quote(toString(fe.Value())) + ")")
		}
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
