package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Corpus.Path == "" || cfg.Audit.Dir != "data/audit" {
		t.Fatalf("unexpected defaults: %+v %+v", cfg.Corpus, cfg.Audit)
	}
	if cfg.LLM.TopK != 6 || cfg.LLM.Temperature != 0.2 {
		t.Fatalf("llm defaults = %+v", cfg.LLM)
	}
	if cfg.RabbitMQ.AuditQueue != "audit.append" {
		t.Fatalf("audit queue = %q", cfg.RabbitMQ.AuditQueue)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[app]
port = 9090
cors_allow_origins = ["https://portfolio.example"]

[llm]
model = "gpt-4.1-mini"
top_k = 4

[github]
repo = "someone/portfolio"

[audit]
backend = "MySQL"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("GH_TOKEN", "ghp_test")
	t.Setenv("LLM_TOP_K", "8")
	t.Setenv("CORPUS_WATCH", "true")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 9090 {
		t.Fatalf("port = %d", cfg.App.Port)
	}
	if cfg.LLM.TopK != 8 {
		t.Fatalf("env must override file: top_k = %d", cfg.LLM.TopK)
	}
	if cfg.LLM.Model != "gpt-4.1-mini" {
		t.Fatalf("model = %q", cfg.LLM.Model)
	}
	if !cfg.Corpus.Watch {
		t.Fatal("CORPUS_WATCH not applied")
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.App.CORSAllowOrigins, want) {
		t.Fatalf("origins = %v", cfg.App.CORSAllowOrigins)
	}
	if !cfg.GitHubConfigured() {
		t.Fatal("expected GitHub store to be configured")
	}
	if !cfg.UsesMySQL() {
		t.Fatal("backend match must be case-insensitive")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[app\nport = "), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestEnvHelpersIgnoreInvalidValues(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_FLOAT", "")
	t.Setenv("X_BOOL", "maybe")
	if got := getEnvAsInt("X_INT", 3); got != 3 {
		t.Fatalf("int = %d", got)
	}
	if got := getEnvAsFloat("X_FLOAT", 0.5); got != 0.5 {
		t.Fatalf("float = %v", got)
	}
	if got := getEnvAsBool("X_BOOL", true); !got {
		t.Fatal("bool fallback lost")
	}
}

func TestDSNAndAddr(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.Password = "pw"
	if got := cfg.MySQLDSN(); got != "root:pw@tcp(127.0.0.1:3306)/portfolio_agent?parseTime=true&loc=UTC&charset=utf8mb4" {
		t.Fatalf("dsn = %q", got)
	}
	if got := cfg.HTTPAddr(); got != "0.0.0.0:8080" {
		t.Fatalf("addr = %q", got)
	}
}
