// Package config loads the service configuration from defaults, command-line
// flags, a .env file and environment variables, in that order of precedence
// (environment wins), and validates the result.
package config

import (
	"flag"
	"log"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the runtime configuration of the service.
type Config struct {
	RunAddr         string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	ShortURLBase    string        `env:"BASE_URL" validate:"url"`
	LogLevel        string        `env:"LOG_LEVEL" validate:"loglevel"`
	TokenSigningKey string        `env:"TOKEN_SIGNING_KEY" validate:"required,base64url"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" validate:"gt=0"`
	ShortCodeLength int           `env:"SHORT_CODE_LENGTH" validate:"gte=3"`
	SeedDemoData    bool          `env:"SEED_DEMO_DATA"`
}

var defaultConfig = Config{
	RunAddr:      ":8080",
	ShortURLBase: "http://localhost:8080",
	LogLevel:     "info",
	// Development-only key; override TOKEN_SIGNING_KEY in any real deployment.
	TokenSigningKey: "bG9jYWwtZGV2LXRva2VuLXNpZ25pbmcta2V5LTAwMDE=",
	TokenTTL:        30 * time.Minute,
	ShortCodeLength: 8,
	SeedDemoData:    false,
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	return validate.Struct(c)
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

// InitOption customizes config loading.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips command-line flag parsing; tests use this
// because the flag set can only be parsed once per process.
func WithDisableFlagsParsing(disable bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disable
	}
}

// New loads and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flag.StringVar(&values.ShortURLBase, "b", values.ShortURLBase, "base address of the resulting shortened URL")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.IntVar(&values.ShortCodeLength, "c", values.ShortCodeLength, "length of generated short codes")
		flag.BoolVar(&values.SeedDemoData, "seed", values.SeedDemoData, "seed demo users and links on start")
		flag.Parse()
	}

	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}

	if valuesFromEnv.RunAddr != "" {
		values.RunAddr = valuesFromEnv.RunAddr
	}
	if valuesFromEnv.ShortURLBase != "" {
		values.ShortURLBase = valuesFromEnv.ShortURLBase
	}
	if valuesFromEnv.LogLevel != "" {
		values.LogLevel = valuesFromEnv.LogLevel
	}
	if valuesFromEnv.TokenSigningKey != "" {
		values.TokenSigningKey = valuesFromEnv.TokenSigningKey
	}
	if valuesFromEnv.TokenTTL != 0 {
		values.TokenTTL = valuesFromEnv.TokenTTL
	}
	if valuesFromEnv.ShortCodeLength != 0 {
		values.ShortCodeLength = valuesFromEnv.ShortCodeLength
	}
	if valuesFromEnv.SeedDemoData {
		values.SeedDemoData = true
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
