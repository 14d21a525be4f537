package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/ai"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/app"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/cache"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/config"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/credential"
	mysqlClient "github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/platform/mysql"
	rabbitmqClient "github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/platform/rabbitmq"
	redisClient "github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/platform/redis"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/rag"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/repository"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/worker"
)

// Store is the knowledge store plus the reachability check health reports.
type Store interface {
	app.KnowledgeStore
	Ping(ctx context.Context) error
}

type App struct {
	Config *config.Config
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Credentials   *credential.Resolver
	Store         Store
	KnowledgeBase *rag.KnowledgeBase
	Library       *app.LibraryService
	Jobs          *app.IngestJobs
	Tutor         *app.TutorService

	IngestWorker *worker.IngestWorker
	LocalQueue   *worker.LocalQueue

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	a := &App{Config: cfg, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	creds, err := credential.NewResolver(cfg.App.DataDir)
	if err != nil {
		return err
	}
	a.Credentials = creds

	switch cfg.Storage.Driver {
	case config.StorageMySQL:
		mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return err
		}
		a.MySQL = mysqlDB
		store := repository.NewGormKnowledgeStore(mysqlDB)
		if err := store.AutoMigrate(); err != nil {
			return err
		}
		a.Store = store
	default:
		a.Store = repository.NewFileKnowledgeStore(cfg.App.DataDir)
	}

	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		a.Redis = redisCli
	}

	client := ai.NewClient(cfg.LLMTimeout())
	embeddingProvider := ai.NewEmbeddingProvider(client, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.EmbeddingModel,
	})

	var queryProvider rag.Provider = embeddingProvider
	var history app.HistoryStore = cache.NewMemoryHistory()
	if a.MySQL != nil {
		messages := repository.NewTutorMessageRepository(a.MySQL)
		if err := messages.AutoMigrate(); err != nil {
			return err
		}
		history = messages
	}
	if a.Redis != nil {
		embeddingTTL := time.Duration(cfg.Redis.EmbeddingTTLSeconds) * time.Second
		queryProvider = cache.NewCachingProvider(embeddingProvider, cache.NewEmbeddingCache(a.Redis, embeddingTTL), embeddingProvider.Model())
		history = cache.NewHistoryCache(a.Redis, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second)
	}

	a.KnowledgeBase = rag.NewKnowledgeBase()
	retriever := rag.NewRetriever(queryProvider, creds)
	a.Library = app.NewLibraryService(
		a.Store,
		a.KnowledgeBase,
		rag.NewEmbedder(embeddingProvider, creds, cfg.EmbedDelay()),
		retriever,
		creds,
		app.LibraryOptions{
			ChunkSize:    cfg.RAG.ChunkSize,
			ChunkOverlap: cfg.RAG.ChunkOverlap,
			TopK:         cfg.RAG.TopK,
		},
	)
	loaded, err := a.Library.LoadKnowledgeBase(ctx)
	if err != nil {
		return fmt.Errorf("load knowledge base failed: %w", err)
	}
	log.Printf("knowledge base loaded: %d chunks", loaded)

	orchestrator := rag.NewOrchestrator(retriever, a.KnowledgeBase, cfg.RAG.TopK, cfg.RAG.MinMessageLength)
	a.Tutor = app.NewTutorService(
		history,
		orchestrator,
		client,
		ai.ChatConfig{BaseURL: cfg.LLM.BaseURL, Model: cfg.LLM.Model, Temperature: cfg.LLM.Temperature},
		creds,
		cfg.LLM.MaxContextMessage,
	)

	a.Jobs = app.NewIngestJobs(a.Library, app.NewJobTracker(time.Hour))
	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.IngestQueue)
		if err != nil {
			return err
		}
		a.MQConn = mqConn
		a.Jobs.SetQueue(rabbitmqClient.NewIngestPublisher(mqConn, cfg.RabbitMQ.IngestQueue))

		a.IngestWorker = worker.NewIngestWorker(mqConn, a.Jobs, cfg.RabbitMQ.IngestQueue)
		if err := a.IngestWorker.Start(ctx); err != nil {
			return fmt.Errorf("start ingest worker failed: %w", err)
		}
		return nil
	}

	a.LocalQueue = worker.NewLocalQueue(a.Jobs, 0)
	a.Jobs.SetQueue(a.LocalQueue)
	return a.LocalQueue.Start(ctx)
}

func (a *App) Close() error {
	var closeErr error
	if a.LocalQueue != nil {
		a.LocalQueue.Close()
	}
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
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
	return closeErr
}
