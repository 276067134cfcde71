package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/go-playground/validator/v10"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Log    LogConfig
	Chat   ChatConfig
	AI     AIConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	addr, err := normalizeAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值范围。
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Addr string `validate:"required"`
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format string `env:"LOG_FORMAT" envDefault:"console" validate:"oneof=console json"`
}

// ChatConfig 描述会话与回复节奏。
type ChatConfig struct {
	ReplyDelayMin time.Duration `env:"REPLY_DELAY_MIN" envDefault:"1s" validate:"gte=0s"`
	ReplyDelayMax time.Duration `env:"REPLY_DELAY_MAX" envDefault:"2s" validate:"gtefield=ReplyDelayMin"`
	IdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m" validate:"gt=0s"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m" validate:"gt=0s"`
	CatalogPath   string        `env:"CATALOG_PATH"`
}

// AIConfig 描述可选的大模型回复源。
type AIConfig struct {
	APIKey       string  `env:"ARK_API_KEY"`
	AccessKey    string  `env:"ARK_ACCESS_KEY"`
	SecretKey    string  `env:"ARK_SECRET_KEY"`
	Model        string  `env:"ARK_MODEL"`
	BaseURL      string  `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region       string  `env:"ARK_REGION" envDefault:"cn-beijing"`
	Temperature  float64 `env:"ARK_TEMPERATURE" validate:"gte=0,lte=2"`
	MaxTokens    int     `env:"ARK_MAX_TOKENS" validate:"gte=0"`
	SystemPrompt string  `env:"ARK_SYSTEM_PROMPT"`
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_MODEL and ARK_API_KEY or an AK/SK pair")
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
	}
	if c.Temperature > 0 {
		val := float32(c.Temperature)
		cfg.Temperature = &val
	}
	if c.MaxTokens > 0 {
		val := c.MaxTokens
		cfg.MaxTokens = &val
	}

	return ark.NewChatModel(ctx, cfg)
}

// normalizeAddr 解析服务器监听地址。
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	return ":" + port, nil
}
