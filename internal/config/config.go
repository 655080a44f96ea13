package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults used when neither the environment nor the config file set a value
const (
	DefaultConfigPath           = "config.json"
	DefaultEnvFile              = ".env"
	DefaultBackendURL           = "http://localhost:3000"
	DefaultUIURL                = "http://localhost:5173"
	DefaultBattlefieldChannelID = "1367986446232719484"
	DefaultAdminRoleID          = "1173049392371085392"
	DefaultEnvironment          = "development"
	DefaultLogLevel             = "info"
)

// setting maps a config file key to the environment variable that overrides it
type setting struct {
	key      string
	env      string
	fallback string
}

var settings = []setting{
	{key: "discord_token", env: "DISCORD_TOKEN"},
	{key: "app_id", env: "APP_ID"},
	{key: "guild_id", env: "GUILD_ID"},
	{key: "environment", env: "ENVIRONMENT", fallback: DefaultEnvironment},
	{key: "log_level", env: "LOG_LEVEL", fallback: DefaultLogLevel},
	{key: "duel_backend_base_url", env: "DUEL_BACKEND_URL", fallback: DefaultBackendURL},
	{key: "duel_ui_url", env: "DUEL_UI_URL", fallback: DefaultUIURL},
	{key: "battlefield_channel_id", env: "BATTLEFIELD_CHANNEL_ID", fallback: DefaultBattlefieldChannelID},
	{key: "admin_role_id", env: "ADMIN_ROLE_ID", fallback: DefaultAdminRoleID},
}

// Config holds all configuration for the application. It is built once at
// startup and never re-read.
type Config struct {
	// Discord configuration
	Token   string `validate:"required"`
	AppID   string `validate:"required"`
	GuildID string

	// Duel services, trailing slashes stripped
	BackendURL string `validate:"required,url"`
	UIURL      string `validate:"required,url"`

	// Practice command gate
	BattlefieldChannelID string `validate:"required,numeric"`
	AdminRoleID          string `validate:"required,numeric"`

	// Environment
	Environment string `validate:"oneof=development production"` // "development" or "production"
	LogLevel    string `validate:"oneof=debug info warn error"`
}

type loadOptions struct {
	configPath string
	envFile    string
}

// Option customizes Load
type Option func(*loadOptions)

// WithConfigFile sets the JSON config file consulted after the environment
func WithConfigFile(path string) Option {
	return func(o *loadOptions) {
		o.configPath = path
	}
}

// WithEnvFile sets the dotenv file loaded before reading the environment
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// Load resolves every setting from the environment, then the JSON config
// file, then the built-in default.
func Load(opts ...Option) (*Config, error) {
	o := &loadOptions{
		configPath: DefaultConfigPath,
		envFile:    DefaultEnvFile,
	}
	for _, opt := range opts {
		opt(o)
	}

	// Load .env file if it exists
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			// Only return error if file exists but couldn't be loaded
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("error loading %s: %w", o.envFile, err)
			}
		}
	}

	v := viper.New()
	for _, s := range settings {
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", s.env, err)
		}
	}

	if err := readConfigFile(v, o.configPath); err != nil {
		return nil, err
	}

	cfg := &Config{
		Token:                pick(v, "discord_token"),
		AppID:                pick(v, "app_id"),
		GuildID:              pick(v, "guild_id"),
		Environment:          strings.ToLower(pick(v, "environment")),
		LogLevel:             strings.ToLower(pick(v, "log_level")),
		BackendURL:           trimURL(pick(v, "duel_backend_base_url")),
		UIURL:                trimURL(pick(v, "duel_ui_url")),
		BattlefieldChannelID: pick(v, "battlefield_channel_id"),
		AdminRoleID:          pick(v, "admin_role_id"),
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readConfigFile merges the JSON config file into v. A missing file is not an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// pick returns the first non-empty value for key, falling back to the
// setting's default. Empty config file values count as unset.
func pick(v *viper.Viper, key string) string {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		return value
	}
	for _, s := range settings {
		if s.key == key {
			return s.fallback
		}
	}
	return ""
}

func trimURL(raw string) string {
	return strings.TrimRight(raw, "/")
}

// validate checks if all required configuration is present
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			msgs := make([]string, 0, len(validationErrs))
			for _, fe := range validationErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
