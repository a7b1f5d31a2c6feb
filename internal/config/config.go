package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Admin    AdminConfig    `mapstructure:"admin" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig contains the optional redis connection used by the
// distributed lock. An empty Addr disables redis entirely.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// AdminConfig contains the admin surface settings.
type AdminConfig struct {
	Token string `mapstructure:"token" validate:"required,min=32"`
}

// LLMConfig contains all generative-text API settings.
type LLMConfig struct {
	APIKey                string  `mapstructure:"api_key" validate:"required"`
	BaseURL               string  `mapstructure:"base_url" validate:"required,url"`
	Model                 string  `mapstructure:"model" validate:"required"`
	PromptVersion         string  `mapstructure:"prompt_version" validate:"required"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds" validate:"required,gt=0"`
	Temperature           float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// WorkerConfig contains the worker loop settings.
type WorkerConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds" validate:"required,gt=0"`
	BatchSize       int `mapstructure:"batch_size" validate:"required,gt=0"`
}

// SweeperConfig contains the sweeper settings.
type SweeperConfig struct {
	IntervalSeconds   int `mapstructure:"interval_seconds" validate:"required,gt=0"`
	StuckAfterMinutes int `mapstructure:"stuck_after_minutes" validate:"required,gt=0"`
}
