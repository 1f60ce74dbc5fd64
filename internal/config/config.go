package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Auth     AuthConfig     `toml:"auth"`
	LLM      LLMConfig      `toml:"llm"`
	Corpus   CorpusConfig   `toml:"corpus"`
	GitHub   GitHubConfig   `toml:"github"`
	Audit    AuditConfig    `toml:"audit"`
	Feed     FeedConfig     `toml:"feed"`
	MySQL    MySQLConfig    `toml:"mysql"`
	Redis    RedisConfig    `toml:"redis"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
}

type AppConfig struct {
	Name             string   `toml:"name"`
	Env              string   `toml:"env"`
	Host             string   `toml:"host"`
	Port             int      `toml:"port"`
	GinMode          string   `toml:"gin_mode"`
	LogMode          string   `toml:"log_mode"`
	CORSAllowOrigins []string `toml:"cors_allow_origins"`
}

type AuthConfig struct {
	JWTSecret         string `toml:"jwt_secret"`
	JWTExpireMinute   int    `toml:"jwt_expire_minute"`
	AdminUsername     string `toml:"admin_username"`
	AdminPasswordHash string `toml:"admin_password_hash"` // bcrypt; empty disables admin routes
}

type LLMConfig struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	EmbeddingModel string  `toml:"embedding_model"`
	Temperature    float64 `toml:"temperature"`
	TopK           int     `toml:"top_k"`
	// Subject names whose work history the agent answers questions about.
	Subject string `toml:"subject"`
}

type CorpusConfig struct {
	Path string `toml:"path"`
	// Watch reloads the corpus when the file on disk changes.
	Watch bool `toml:"watch"`
}

type GitHubConfig struct {
	APIURL string `toml:"api_url"`
	Token  string `toml:"token"`
	Repo   string `toml:"repo"` // owner/name
	Branch string `toml:"branch"`
}

type AuditConfig struct {
	Backend           string `toml:"backend"` // github | mysql
	Dir               string `toml:"dir"`
	Days              int    `toml:"days"`
	MaxAppendAttempts int    `toml:"max_append_attempts"`
}

type FeedConfig struct {
	AgentURL    string   `toml:"agent_url"`
	Suggestions []string `toml:"suggestions"`
}

type MySQLConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DB       string `toml:"db"`
	Params   string `toml:"params"`
}

type RedisConfig struct {
	Addr                string `toml:"addr"` // empty disables the feed cache
	Password            string `toml:"password"`
	DB                  int    `toml:"db"`
	FeedTTLSeconds      int    `toml:"feed_ttl_seconds"`
	FeedDirtyTTLSeconds int    `toml:"feed_dirty_ttl_seconds"`
}

type RabbitMQConfig struct {
	URL        string `toml:"url"` // empty appends audit entries synchronously
	AuditQueue string `toml:"audit_queue"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.MySQL.User,
		c.MySQL.Password,
		c.MySQL.Host,
		c.MySQL.Port,
		c.MySQL.DB,
		c.MySQL.Params,
	)
}

// UsesMySQL reports whether audit entries are kept in MySQL instead of GitHub.
func (c *Config) UsesMySQL() bool {
	return strings.EqualFold(c.Audit.Backend, "mysql")
}

// GitHubConfigured reports whether the GitHub log store has credentials.
func (c *Config) GitHubConfigured() bool {
	return c.GitHub.Token != "" && c.GitHub.Repo != ""
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "portfolio-agent",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8080,
			GinMode: "debug",
			LogMode: "development",
			CORSAllowOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			},
		},
		Auth: AuthConfig{
			JWTSecret:       "change-me-in-production",
			JWTExpireMinute: 120,
			AdminUsername:   "admin",
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.2,
			TopK:           6,
			Subject:        "the portfolio owner",
		},
		Corpus: CorpusConfig{
			Path: "data/embeddings.json",
		},
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com",
			Branch: "main",
		},
		Audit: AuditConfig{
			Backend:           "github",
			Dir:               "data/audit",
			Days:              14,
			MaxAppendAttempts: 3,
		},
		Feed: FeedConfig{
			AgentURL: "/agent",
			Suggestions: []string{
				"What is the design process like?",
				"How is success measured on a feature?",
				"How does the partnership with engineering work?",
				"Which projects are the best to look at first?",
				"How are discovery and research approached?",
				"What is the philosophy on design systems?",
				"How are ideas de-risked before shipping?",
			},
		},
		MySQL: MySQLConfig{
			Host:   "127.0.0.1",
			Port:   3306,
			User:   "root",
			DB:     "portfolio_agent",
			Params: "parseTime=true&loc=UTC&charset=utf8mb4",
		},
		Redis: RedisConfig{
			FeedTTLSeconds:      60,
			FeedDirtyTTLSeconds: 5,
		},
		RabbitMQ: RabbitMQConfig{
			AuditQueue: "audit.append",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.LogMode = getEnv("LOG_MODE", cfg.App.LogMode)
	cfg.App.CORSAllowOrigins = getEnvAsList("CORS_ALLOW_ORIGINS", cfg.App.CORSAllowOrigins)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTExpireMinute = getEnvAsInt("JWT_EXPIRE_MINUTE", cfg.Auth.JWTExpireMinute)
	cfg.Auth.AdminUsername = getEnv("ADMIN_USERNAME", cfg.Auth.AdminUsername)
	cfg.Auth.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", cfg.Auth.AdminPasswordHash)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", cfg.LLM.APIKey))
	cfg.LLM.Model = getEnv("OPENAI_MODEL", cfg.LLM.Model)
	cfg.LLM.EmbeddingModel = getEnv("OPENAI_EMBEDDING_MODEL", cfg.LLM.EmbeddingModel)
	cfg.LLM.Temperature = getEnvAsFloat("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.TopK = getEnvAsInt("LLM_TOP_K", cfg.LLM.TopK)
	cfg.LLM.Subject = getEnv("AGENT_SUBJECT", cfg.LLM.Subject)

	cfg.Corpus.Path = getEnv("CORPUS_PATH", cfg.Corpus.Path)
	cfg.Corpus.Watch = getEnvAsBool("CORPUS_WATCH", cfg.Corpus.Watch)

	cfg.GitHub.APIURL = getEnv("GH_API_URL", cfg.GitHub.APIURL)
	cfg.GitHub.Token = getEnv("GH_TOKEN", getEnv("GITHUB_TOKEN", cfg.GitHub.Token))
	cfg.GitHub.Repo = getEnv("GH_REPO", cfg.GitHub.Repo)
	cfg.GitHub.Branch = getEnv("GH_BRANCH", cfg.GitHub.Branch)

	cfg.Audit.Backend = getEnv("AUDIT_BACKEND", cfg.Audit.Backend)
	cfg.Audit.Dir = getEnv("AUDIT_DIR", cfg.Audit.Dir)
	cfg.Audit.Days = getEnvAsInt("AUDIT_DAYS", cfg.Audit.Days)
	cfg.Audit.MaxAppendAttempts = getEnvAsInt("AUDIT_MAX_APPEND_ATTEMPTS", cfg.Audit.MaxAppendAttempts)

	cfg.Feed.AgentURL = getEnv("FEED_AGENT_URL", cfg.Feed.AgentURL)

	cfg.MySQL.Host = getEnv("MYSQL_HOST", cfg.MySQL.Host)
	cfg.MySQL.Port = getEnvAsInt("MYSQL_PORT", cfg.MySQL.Port)
	cfg.MySQL.User = getEnv("MYSQL_USER", cfg.MySQL.User)
	cfg.MySQL.Password = getEnv("MYSQL_PASSWORD", cfg.MySQL.Password)
	cfg.MySQL.DB = getEnv("MYSQL_DB", cfg.MySQL.DB)
	cfg.MySQL.Params = getEnv("MYSQL_PARAMS", cfg.MySQL.Params)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.FeedTTLSeconds = getEnvAsInt("REDIS_FEED_TTL_SECONDS", cfg.Redis.FeedTTLSeconds)
	cfg.Redis.FeedDirtyTTLSeconds = getEnvAsInt("REDIS_FEED_DIRTY_TTL_SECONDS", cfg.Redis.FeedDirtyTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.AuditQueue = getEnv("RABBITMQ_AUDIT_QUEUE", cfg.RabbitMQ.AuditQueue)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
