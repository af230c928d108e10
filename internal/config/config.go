package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	LLM           LLMConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address            string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

type DatabaseConfig struct {
	Driver         string
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	DSN            string
	ConnectTimeout time.Duration
}

type LLMConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

// LoadFromEnv reads an optional .env file from the working directory into the
// process environment, then loads the configuration from it.
func LoadFromEnv(serviceName string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("QUERYLENS_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid QUERYLENS_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	steps := []func() error{
		func() error { return applyString(lookup, "QUERYLENS_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "QUERYLENS_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "QUERYLENS_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "QUERYLENS_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "QUERYLENS_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyList(lookup, "QUERYLENS_CORS_ALLOWED_ORIGINS", &cfg.HTTP.CORSAllowedOrigins) },
		func() error { return applyFloat(lookup, "QUERYLENS_RATE_LIMIT_RPS", &cfg.HTTP.RateLimitRPS) },
		func() error { return applyInt(lookup, "QUERYLENS_RATE_LIMIT_BURST", &cfg.HTTP.RateLimitBurst) },
		func() error { return applyString(lookup, "DB_DRIVER", &cfg.Database.Driver) },
		func() error { return applyString(lookup, "DB_HOST", &cfg.Database.Host) },
		func() error { return applyInt(lookup, "DB_PORT", &cfg.Database.Port) },
		func() error { return applyString(lookup, "DB_USER", &cfg.Database.User) },
		func() error { return applyRaw(lookup, "DB_PASSWORD", &cfg.Database.Password) },
		func() error { return applyString(lookup, "DB_NAME", &cfg.Database.Name) },
		func() error { return applyString(lookup, "DB_DSN", &cfg.Database.DSN) },
		func() error { return applyDuration(lookup, "DB_CONNECT_TIMEOUT", &cfg.Database.ConnectTimeout) },
		func() error { return applyString(lookup, "QUERYLENS_LLM_PROVIDER", &cfg.LLM.Provider) },
		func() error { return applyString(lookup, "QUERYLENS_LLM_BASE_URL", &cfg.LLM.BaseURL) },
		func() error { return applyString(lookup, "QUERYLENS_LLM_MODEL", &cfg.LLM.Model) },
		func() error { return applyFloat(lookup, "QUERYLENS_LLM_TEMPERATURE", &cfg.LLM.Temperature) },
		func() error { return applyDuration(lookup, "QUERYLENS_LLM_TIMEOUT", &cfg.LLM.Timeout) },
		func() error { return applyBool(lookup, "QUERYLENS_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "QUERYLENS_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	switch cfg.LLM.Provider {
	case ProviderGemini:
		if err := applyString(lookup, "GEMINI_API_KEY", &cfg.LLM.APIKey); err != nil {
			return Config{}, err
		}
	case ProviderOpenAI:
		if cfg.LLM.BaseURL == "" || cfg.LLM.BaseURL == defaultGeminiBaseURL {
			cfg.LLM.BaseURL = defaultOpenAIBaseURL
		}
		if cfg.LLM.Model == "" || cfg.LLM.Model == defaultGeminiModel {
			cfg.LLM.Model = defaultOpenAIModel
		}
		if err := applyString(lookup, "OPENAI_API_KEY", &cfg.LLM.APIKey); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("invalid QUERYLENS_LLM_PROVIDER: %q", cfg.LLM.Provider)
	}

	if _, ok := lookup("QUERYLENS_HTTP_WRITE_TIMEOUT"); !ok {
		cfg.HTTP.WriteTimeout = QueryWriteBudget(cfg)
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Database.Driver == "" {
		return Config{}, fmt.Errorf("database driver is required")
	}
	if cfg.HTTP.RateLimitRPS > 0 && cfg.HTTP.RateLimitBurst <= 0 {
		return Config{}, fmt.Errorf("QUERYLENS_RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	return cfg, nil
}

// APIKeyEnvVar names the environment variable that carries the credential for
// the configured provider.
func (c LLMConfig) APIKeyEnvVar() string {
	if c.Provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.5-flash-preview-05-20"
	defaultOpenAIBaseURL = "https://api.openai.com"
	defaultOpenAIModel   = "gpt-4o-mini"
)

const writeTimeoutSlack = 10 * time.Second

// QueryWriteBudget is the default server write timeout: two LLM calls, two
// database round trips budgeted at the connect timeout, and some slack.
func QueryWriteBudget(cfg Config) time.Duration {
	return 2*cfg.LLM.Timeout + 2*cfg.Database.ConnectTimeout + writeTimeoutSlack
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "querylens-api"},
		HTTP: HTTPConfig{
			Address:            ":5000",
			ReadTimeout:        5 * time.Second,
			IdleTimeout:        60 * time.Second,
			CORSAllowedOrigins: []string{"*"},
			RateLimitRPS:       0,
			RateLimitBurst:     20,
		},
		Database: DatabaseConfig{
			Driver:         "mysql",
			Host:           "localhost",
			ConnectTimeout: 5 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    ProviderGemini,
			BaseURL:     defaultGeminiBaseURL,
			Model:       defaultGeminiModel,
			Temperature: 0.2,
			Timeout:     60 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":15000"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

// applyRaw keeps the value untouched; passwords may carry meaningful whitespace.
func applyRaw(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = raw
	return nil
}

func applyList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	values := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	*dst = values
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
