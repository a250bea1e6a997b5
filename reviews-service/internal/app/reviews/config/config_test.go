package config

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8083", cfg.Server.Address())
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "review_events", cfg.Kafka.Topic)
	assert.Equal(t, "@every 30s", cfg.Probe.Schedule)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("STORE_PROBE_TIMEOUT", "2s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com,https://admin.example.com")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Probe.Timeout)
	assert.Len(t, cfg.Server.CORSOrigins, 2)
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	_, err := Load()

	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db",
		Port:     5433,
		User:     "reviews",
		Password: "secret",
		Database: "reviews_service",
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://reviews:secret@db:5433/reviews_service?sslmode=disable", cfg.DSN())
}

func TestPostgresDSN_ReservedCharactersInCredentials(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db",
		Port:     5432,
		User:     "review@svc",
		Password: "p/ss#1?x:y@z",
		Database: "reviews_service",
		SSLMode:  "disable",
	}

	pgxConfig, err := pgx.ParseConfig(cfg.DSN())

	require.NoError(t, err)
	assert.Equal(t, "db", pgxConfig.Host)
	assert.Equal(t, uint16(5432), pgxConfig.Port)
	assert.Equal(t, "review@svc", pgxConfig.User)
	assert.Equal(t, "p/ss#1?x:y@z", pgxConfig.Password)
	assert.Equal(t, "reviews_service", pgxConfig.Database)
}
