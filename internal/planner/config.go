// internal/planner/config.go
package planner

import "finplan-assistant/internal/common/config"

type Config struct {
	Model string
	Call  config.CallConfig
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Model: cfg.LLM.ChatModel,
		Call:  cfg.LLM.Plan,
	}
}
