package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and optionally a
// config file. Environment variables take the BRIEF_ prefix with underscores
// for nesting (e.g. BRIEF_DATABASE_URL, BRIEF_WORKER_BATCH_SIZE) and take
// precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("BRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound explicitly so AutomaticEnv can
	// surface them during Unmarshal.
	for _, key := range []string{
		"database.url",
		"admin.token",
		"llm.api_key",
		"redis.addr",
		"redis.password",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	// Optional config file: ./config.yaml, only if present.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("redis.db", 0)

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.prompt_version", "v1")
	v.SetDefault("llm.request_timeout_seconds", 60)
	v.SetDefault("llm.temperature", 0.3)

	v.SetDefault("worker.interval_seconds", 30)
	v.SetDefault("worker.batch_size", 5)

	v.SetDefault("sweeper.interval_seconds", 60)
	v.SetDefault("sweeper.stuck_after_minutes", 10)
}
