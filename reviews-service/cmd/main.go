package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"productreviews/pkg/logger"
	"productreviews/reviews-service/internal/app/reviews/config"
	"productreviews/reviews-service/internal/app/reviews/handler"
	"productreviews/reviews-service/internal/app/reviews/infrastructure"
	"productreviews/reviews-service/internal/app/reviews/infrastructure/messaging"
	"productreviews/reviews-service/internal/app/reviews/processor"
	"productreviews/reviews-service/internal/app/reviews/repository"
	"productreviews/reviews-service/internal/app/reviews/service"
)

const serviceName = "reviews-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(serviceName, cfg.Log.Level)

	if cfg.Log.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.Log.LogstashAddr, serviceName, cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
		} else {
			logger.Info().Str("logstash_addr", cfg.Log.LogstashAddr).Msg("Connected to Logstash")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reviewRepo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open review store")
	}
	defer closeStore()
	logger.Info().Str("driver", cfg.Store.Driver).Msg("Review store ready")

	var publisher infrastructure.MessagePublisher
	if cfg.Kafka.Enabled {
		kafkaProducer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, messaging.DefaultBreakerConfig())
		defer kafkaProducer.Close()
		publisher = kafkaProducer
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("Initialized Kafka producer")
	} else {
		logger.Info().Msg("Kafka disabled, review events are not published")
	}

	probe := processor.NewStoreProbe(reviewRepo, cfg.Store.Driver, cfg.Probe.Timeout)
	if err := probe.Start(ctx, cfg.Probe.Schedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start store probe")
	}
	defer probe.Stop()

	reviewService := service.NewReviewService(reviewRepo, publisher)
	reviewHandler := handler.NewReviewHandler(reviewService)
	router := handler.SetupRoutes(reviewHandler, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("Starting Reviews Service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down Reviews Service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Reviews Service stopped with error")
		return
	}

	logger.Info().Msg("Reviews Service stopped gracefully")
}

// openStore подключается к хранилищу, выбранному STORE_DRIVER
// Возвращает функцию закрытия соединения
func openStore(ctx context.Context, cfg *config.Config) (repository.ReviewRepository, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := connectPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.Migrate(db); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repository.NewReviewRepository(db), closeFn, nil

	case config.DriverMongoDB:
		client, err := connectMongoDB(ctx, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		db := client.Database(cfg.MongoDB.Database)
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Error().Err(err).Msg("Error disconnecting from MongoDB")
			}
		}
		return repository.NewMongoReviewRepository(db), closeFn, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return repository.NewRedisReviewRepository(client), func() { _ = client.Close() }, nil

	case config.DriverMemory:
		return repository.NewMemoryReviewRepository(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// connectPostgres открывает database/sql пул через pgx и оборачивает его в GORM
func connectPostgres(ctx context.Context, cfg config.PostgresConfig) (*gorm.DB, error) {
	pgxConfig, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pgxConfig)
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	for i := 0; i < 10; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = sqlDB.PingContext(pingCtx)
		cancel()
		if err == nil {
			break
		}

		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to database, retrying...")

		select {
		case <-ctx.Done():
			_ = sqlDB.Close()
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL")

	return db, nil
}

func connectMongoDB(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)

	var client *mongo.Client
	var err error

	for i := 0; i < 10; i++ {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err = mongo.Connect(connectCtx, clientOptions)
		cancel()
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			err = client.Ping(pingCtx, nil)
			pingCancel()
			if err == nil {
				logger.Info().Str("database", cfg.Database).Msg("Connected to MongoDB")
				return client, nil
			}
			_ = client.Disconnect(context.Background())
		}

		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to MongoDB, retrying...")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}

	return nil, err
}
