package processor

import (
	"context"
	"time"

	"productreviews/pkg/logger"
	"productreviews/pkg/metrics"

	"github.com/robfig/cron/v3"
)

const serviceName = "reviews-service"

// Pinger - хранилище, доступность которого проверяется
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreProbe периодически проверяет доступность хранилища и выставляет gauge store_up
// HealthCheck хранилище не опрашивает, состояние хранилища видно только в метриках
type StoreProbe struct {
	cron    *cron.Cron
	store   Pinger
	driver  string
	timeout time.Duration
}

func NewStoreProbe(store Pinger, driver string, timeout time.Duration) *StoreProbe {
	c := cron.New(cron.WithLogger(cronLogger{}))

	return &StoreProbe{
		cron:    c,
		store:   store,
		driver:  driver,
		timeout: timeout,
	}
}

// Start регистрирует проверку по расписанию и сразу выполняет первую
func (p *StoreProbe) Start(ctx context.Context, schedule string) error {
	logger.Info().Str("schedule", schedule).Str("driver", p.driver).Msg("Starting store probe")

	_, err := p.cron.AddFunc(schedule, func() {
		p.Probe(ctx)
	})
	if err != nil {
		return err
	}

	p.cron.Start()

	p.Probe(ctx)
	return nil
}

// Probe выполняет одну проверку и возвращает ее результат
func (p *StoreProbe) Probe(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.store.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Str("driver", p.driver).Msg("Store probe failed")
		metrics.SetStoreUp(serviceName, p.driver, false)
		return false
	}

	logger.Debug().Str("driver", p.driver).Msg("Store probe succeeded")
	metrics.SetStoreUp(serviceName, p.driver, true)
	return true
}

func (p *StoreProbe) Stop() {
	logger.Info().Msg("Stopping store probe...")
	ctx := p.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Store probe stopped")
}

func (p *StoreProbe) GetEntries() []cron.Entry {
	return p.cron.Entries()
}

// cronLogger пишет сообщения cron в общий zerolog логгер
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
