// internal/chat/router/config.go
package router

import "finplan-assistant/internal/common/config"

type Config struct {
	Model string
	Call  config.CallConfig
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Model: cfg.LLM.RouterModel,
		Call:  cfg.LLM.Router,
	}
}
