package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"portfolio-agent/internal/ai"
	"portfolio-agent/internal/app"
	"portfolio-agent/internal/auditlog"
	"portfolio-agent/internal/cache"
	"portfolio-agent/internal/config"
	"portfolio-agent/internal/corpus"
	"portfolio-agent/internal/platform/github"
	"portfolio-agent/internal/platform/logger"
	mysqlClient "portfolio-agent/internal/platform/mysql"
	rabbitmqClient "portfolio-agent/internal/platform/rabbitmq"
	redisClient "portfolio-agent/internal/platform/redis"
	"portfolio-agent/internal/repository"
	"portfolio-agent/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *logger.Logger

	Corpus        *corpus.Holder
	CorpusWatcher *corpus.Watcher

	MySQL       *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	AuditWorker *worker.AuditAppendWorker
	AuditStore  app.AuditStore

	Agent     *app.AgentService
	Audit     *app.AuditService
	AdminAuth *app.AdminAuthService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(cfg.App.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}
	return NewWithConfig(ctx, cfg, log)
}

// NewWithConfig wires every component. MySQL is required only for the mysql
// audit backend; Redis and RabbitMQ are optional and skipped when unreachable.
func NewWithConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}

	initial, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("load corpus failed: %w", err)
	}
	a.Corpus = corpus.NewHolder(cfg.Corpus.Path, initial)
	log.Info("corpus loaded", "path", cfg.Corpus.Path, "chunks", initial.Len(), "sources", len(initial.Sources()))

	if cfg.Corpus.Watch {
		w, err := corpus.NewWatcher(a.Corpus, log)
		if err != nil {
			return nil, err
		}
		if err := w.Start(ctx); err != nil {
			_ = w.Close()
			return nil, err
		}
		a.CorpusWatcher = w
	}

	llm := ai.NewOpenAICompatibleClient()
	a.Agent = app.NewAgentService(llm, a.Corpus, app.AgentOptions{
		Chat: ai.ChatConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		},
		Embedding: ai.EmbeddingConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.EmbeddingModel,
		},
		TopK:    cfg.LLM.TopK,
		Subject: cfg.LLM.Subject,
	}, log)

	store, err := a.openAuditStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.AuditStore = store

	var feedCache app.FeedCache
	if cfg.Redis.Addr != "" {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, audit feed cache disabled", "error", err)
		} else {
			a.Redis = redisCli
			feedCache = cache.NewFeedCache(
				redisCli,
				time.Duration(cfg.Redis.FeedTTLSeconds)*time.Second,
				time.Duration(cfg.Redis.FeedDirtyTTLSeconds)*time.Second,
			)
		}
	}

	var publisher app.AuditPublisher
	if cfg.RabbitMQ.URL != "" {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.AuditQueue)
		if err != nil {
			log.Warn("rabbitmq unavailable, audit entries are appended synchronously", "error", err)
		} else {
			a.MQConn = mqConn
			publisher = rabbitmqClient.NewAuditPublisher(mqConn, cfg.RabbitMQ.AuditQueue)
		}
	}

	a.Audit = app.NewAuditService(store, publisher, feedCache, cfg.Audit.Days, log)
	if !a.Audit.Configured() {
		log.Warn("audit log store is not configured, exchanges will not be recorded", "backend", cfg.Audit.Backend)
	}

	if a.MQConn != nil {
		a.AuditWorker = worker.NewAuditAppendWorker(a.MQConn, a.Audit, cfg.RabbitMQ.AuditQueue, log)
		if err := a.AuditWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start audit worker failed: %w", err)
		}
	}

	a.AdminAuth = app.NewAdminAuthService(
		cfg.Auth.AdminUsername,
		cfg.Auth.AdminPasswordHash,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	return a, nil
}

func (a *App) openAuditStore(ctx context.Context) (app.AuditStore, error) {
	cfg := a.Config
	switch {
	case cfg.UsesMySQL():
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		if err := mysqlClient.Migrate(db); err != nil {
			return nil, err
		}
		a.MySQL = db
		return repository.NewAuditRepository(db, a.Logger), nil
	case cfg.Audit.Backend == "" || strings.EqualFold(cfg.Audit.Backend, "github"):
		opts := auditlog.Options{
			Dir:         cfg.Audit.Dir,
			Days:        cfg.Audit.Days,
			MaxAttempts: cfg.Audit.MaxAppendAttempts,
		}
		if !cfg.GitHubConfigured() {
			return auditlog.NewStore(nil, opts, a.Logger), nil
		}
		client := github.NewClient(cfg.GitHub.APIURL, cfg.GitHub.Token, cfg.GitHub.Repo, cfg.GitHub.Branch)
		a.Logger.Info("audit log stored in github", "repo", client.Repo(), "branch", client.Branch(), "dir", opts.Dir)
		return auditlog.NewStore(client, opts, a.Logger), nil
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.CorpusWatcher != nil {
		if err := a.CorpusWatcher.Close(); err != nil {
			closeErr = err
		}
	}
	if a.AuditWorker != nil {
		a.AuditWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		a.Logger.Sync()
	}
	return closeErr
}
