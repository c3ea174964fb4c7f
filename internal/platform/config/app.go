package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"bankrm/internal/domain/rag"
)

// AppConfig 全局配置。启动时统一加载，再按模块提取使用。
type AppConfig struct {
	LogLevel  string       `json:"log_level"`
	LogFormat string       `json:"log_format"`
	Server    ServerConfig `json:"server"`
	Redis     RedisConfig  `json:"redis"`
	Auth      AuthConfig   `json:"auth"`
	OpenAI    OpenAIConfig `json:"openai"`
	Tools     ToolsConfig  `json:"tools"`
	RAG       rag.Config   `json:"rag"`
}

type ServerConfig struct {
	Host                string `json:"host"`
	Port                int    `json:"port"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

type RedisConfig struct {
	URL string `json:"url"` // 为空时禁用检索缓存
}

type AuthConfig struct {
	// AdminToken 管理接口共享密钥。为空时管理接口不注册。
	AdminToken string `json:"admin_token"`
}

type OpenAIConfig struct {
	APIKey    string `json:"api_key"`
	BaseURL   string `json:"base_url"`
	ChatModel string `json:"chat_model"`
}

type ToolsConfig struct {
	FXBase         string `json:"fx_base"`
	FXTarget       string `json:"fx_target"`
	FXBaseURL      string `json:"fx_base_url"`
	FinnhubAPIKey  string `json:"finnhub_api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Default 返回默认配置。
func Default() *AppConfig {
	ragCfg := rag.DefaultConfig()
	return &AppConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 120,
		},
		OpenAI: OpenAIConfig{
			BaseURL:   "https://api.openai.com/v1",
			ChatModel: "gpt-4o-mini",
		},
		Tools: ToolsConfig{
			FXBase:         "USD",
			FXTarget:       "INR",
			TimeoutSeconds: 10,
		},
		RAG: *ragCfg,
	}
}

// Load 加载全局配置：默认值 -> 配置文件 -> 环境变量。
// 配置文件路径通过 APP_CONFIG_FILE 指定（JSON）。
// OPENAI_API_KEY 缺失不是启动错误，首次用到时才报凭证错误。
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		// .env 非必需，忽略错误
	}

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read APP_CONFIG_FILE %q failed: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse APP_CONFIG_FILE %q failed: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	applyString("LOG_LEVEL", &c.LogLevel)
	applyString("LOG_FORMAT", &c.LogFormat)

	applyString("HOST", &c.Server.Host)
	applyInt("PORT", &c.Server.Port)
	applyInt("SERVER_READ_TIMEOUT", &c.Server.ReadTimeoutSeconds)
	applyInt("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeoutSeconds)

	applyString("REDIS_URL", &c.Redis.URL)

	applyString("ADMIN_TOKEN", &c.Auth.AdminToken)

	applyString("OPENAI_API_KEY", &c.OpenAI.APIKey)
	applyString("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	applyString("OPENAI_CHAT_MODEL", &c.OpenAI.ChatModel)

	applyString("FX_BASE", &c.Tools.FXBase)
	applyString("FX_TARGET", &c.Tools.FXTarget)
	applyString("FX_BASE_URL", &c.Tools.FXBaseURL)
	applyString("FINNHUB_API_KEY", &c.Tools.FinnhubAPIKey)
	applyInt("TOOL_TIMEOUT", &c.Tools.TimeoutSeconds)

	// RAG 环境变量
	applyString("CORPUS_DIR", &c.RAG.CorpusDir)
	applyString("INDEX_PATH", &c.RAG.IndexPath)
	applyInt("RAG_DEFAULT_TOP_K", &c.RAG.DefaultTopK)
	applyString("RAG_EMBEDDING_MODEL", &c.RAG.EmbeddingModel)
	applyInt("RAG_EMBEDDING_DIMS", &c.RAG.EmbeddingDims)
	applyInt("RAG_EMBEDDING_BATCH_SIZE", &c.RAG.EmbeddingBatchSize)
	applyInt("RAG_CHUNK_SIZE", &c.RAG.ChunkSize)
	applyInt("RAG_CHUNK_OVERLAP", &c.RAG.ChunkOverlap)
	applyInt("RAG_CACHE_TTL", &c.RAG.CacheTTL)
	if v := os.Getenv("INDEX_BUILD_ON_START"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RAG.BuildOnStart = b
		}
	}
}

func (c *AppConfig) normalize() {
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.Tools.FXBase == "" {
		c.Tools.FXBase = "USD"
	}
	if c.Tools.FXTarget == "" {
		c.Tools.FXTarget = "INR"
	}
}

// HasRedis 是否配置了 Redis
func (c *AppConfig) HasRedis() bool {
	return strings.TrimSpace(c.Redis.URL) != ""
}

// HasAdminToken 是否配置了管理密钥
func (c *AppConfig) HasAdminToken() bool {
	return strings.TrimSpace(c.Auth.AdminToken) != ""
}

func applyString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}
