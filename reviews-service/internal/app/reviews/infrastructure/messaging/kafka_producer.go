package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"productreviews/pkg/logger"
	"productreviews/pkg/metrics"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

const serviceName = "reviews-service"

// ErrBreakerOpen - брокер недоступен, сообщение не отправлялось
var ErrBreakerOpen = gobreaker.ErrOpenState

// messageWriter - часть *kafka.Writer, которая нужна продюсеру
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BreakerConfig - параметры circuit breaker вокруг записи в Kafka
type BreakerConfig struct {
	MaxRequests  uint32        // запросов в half-open
	Interval     time.Duration // период сброса счетчиков в closed
	Timeout      time.Duration // сколько breaker остается open
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig - значения по умолчанию
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// KafkaProducer отправляет события REVIEW_* в топик
// Запись идет через circuit breaker: пока брокер недоступен, запросы не ждут таймаута
type KafkaProducer struct {
	writer  messageWriter
	topic   string
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewKafkaProducer создает продюсер для списка брокеров "host:port"
func NewKafkaProducer(brokers []string, topic string, cfg BreakerConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{}, // ключ = review_id, события одного отзыва в одной партиции
		// Событие отправляется сразу после записи в хранилище
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return newKafkaProducer(writer, topic, cfg)
}

func newKafkaProducer(writer messageWriter, topic string, cfg BreakerConfig) *KafkaProducer {
	name := "kafka-" + topic

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		IsSuccessful: isBrokerHealthy,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(serviceName, name).Set(stateToFloat(to))
		},
	}

	metrics.CircuitBreakerState.WithLabelValues(serviceName, name).Set(0)

	return &KafkaProducer{
		writer:  writer,
		topic:   topic,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// isBrokerHealthy - отмена или таймаут вызывающего не считаются отказом брокера
func isBrokerHealthy(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// PublishMessage отправляет одно сообщение
// key - используется для партиционирования (review_id)
func (p *KafkaProducer) PublishMessage(ctx context.Context, key string, value []byte) error {
	timer := metrics.NewKafkaProduceTimer(serviceName, p.topic)

	message := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, message)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			timer.Error("breaker_open")
			return fmt.Errorf("kafka topic %s unavailable: %w", p.topic, err)
		}
		timer.Error("produce")
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	timer.Success()
	return nil
}

// State возвращает текущее состояние circuit breaker
func (p *KafkaProducer) State() gobreaker.State {
	return p.breaker.State()
}

// Close закрывает Kafka writer и дожидается отправки буфера
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
