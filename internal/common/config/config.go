// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Security SecurityConfig `mapstructure:"security"`
	Database DatabaseConfig `mapstructure:"database"`
	Profile  ProfileConfig  `mapstructure:"profile"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	MetricsAddress  string `mapstructure:"metrics_address"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// LLMConfig holds settings for the LLM provider API.
type LLMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`

	ChatModel   string `mapstructure:"chat_model"`
	RouterModel string `mapstructure:"router_model"`

	Router       CallConfig `mapstructure:"router"`
	General      CallConfig `mapstructure:"general"`
	Personalized CallConfig `mapstructure:"personalized"`
	Plan         CallConfig `mapstructure:"plan"`
}

// CallConfig holds the per-call budget applied to one class of LLM invocation.
type CallConfig struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	Temperature float64 `mapstructure:"temperature"`
	MaxRetries  int     `mapstructure:"max_retries"`
}

// SecurityConfig holds the sanitizer size limits.
type SecurityConfig struct {
	MaxInputLength  int `mapstructure:"max_input_length"`
	MaxOutputLength int `mapstructure:"max_output_length"`
	MaxJSONSize     int `mapstructure:"max_json_size"`
	MaxArrayLength  int `mapstructure:"max_array_length"`
	MaxStringLength int `mapstructure:"max_string_length"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProfileConfig holds settings for the profile store.
type ProfileConfig struct {
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       int    `mapstructure:"ttl"` // seconds, 0 = no expiry
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
