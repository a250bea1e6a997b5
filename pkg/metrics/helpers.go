package metrics

import (
	"time"
)

type RedisOperation string

const (
	RedisOpGet   RedisOperation = "get"
	RedisOpMGet  RedisOperation = "mget"
	RedisOpIncr  RedisOperation = "incr"
	RedisOpMulti RedisOperation = "multi"
	RedisOpWatch RedisOperation = "watch"
	RedisOpRange RedisOperation = "zrange"
	RedisOpPing  RedisOperation = "ping"
)

type RedisTimer struct {
	service   string
	operation RedisOperation
	start     time.Time
}

func NewRedisTimer(service string, op RedisOperation) *RedisTimer {
	return &RedisTimer{
		service:   service,
		operation: op,
		start:     time.Now(),
	}
}

func (rt *RedisTimer) ObserveDuration() {
	duration := time.Since(rt.start).Seconds()
	RedisOperationDuration.WithLabelValues(rt.service, string(rt.operation)).Observe(duration)
}

func RecordRedisError(service string, op RedisOperation) {
	RedisErrors.WithLabelValues(service, string(op)).Inc()
}

func RecordRedisConflict(service string, op RedisOperation) {
	RedisTxConflicts.WithLabelValues(service, string(op)).Inc()
}

type KafkaProduceTimer struct {
	service string
	topic   string
	start   time.Time
}

func NewKafkaProduceTimer(service, topic string) *KafkaProduceTimer {
	return &KafkaProduceTimer{
		service: service,
		topic:   topic,
		start:   time.Now(),
	}
}

func (kt *KafkaProduceTimer) Success() {
	KafkaMessagesProduced.WithLabelValues(kt.service, kt.topic).Inc()
	KafkaProduceDuration.WithLabelValues(kt.service, kt.topic).Observe(time.Since(kt.start).Seconds())
}

func (kt *KafkaProduceTimer) Error(operation string) {
	KafkaErrors.WithLabelValues(kt.service, kt.topic, operation).Inc()
}

type DbOperation string

const (
	DbOpSelect DbOperation = "select"
	DbOpInsert DbOperation = "insert"
	DbOpUpdate DbOperation = "update"
	DbOpDelete DbOperation = "delete"
)

type DbTimer struct {
	service   string
	operation DbOperation
	table     string
	start     time.Time
}

func NewDbTimer(service string, op DbOperation, table string) *DbTimer {
	return &DbTimer{
		service:   service,
		operation: op,
		table:     table,
		start:     time.Now(),
	}
}

func (dt *DbTimer) ObserveDuration() {
	duration := time.Since(dt.start).Seconds()
	DbQueryDuration.WithLabelValues(dt.service, string(dt.operation), dt.table).Observe(duration)
}

// Done фиксирует длительность и, если операция завершилась ошибкой, счётчик ошибок
func (dt *DbTimer) Done(err error) {
	dt.ObserveDuration()
	if err != nil {
		RecordDbError(dt.service, dt.operation)
	}
}

func RecordDbError(service string, op DbOperation) {
	DbErrors.WithLabelValues(service, string(op)).Inc()
}

// SetStoreUp выставляет gauge доступности хранилища
func SetStoreUp(service, driver string, up bool) {
	value := 0.0
	if up {
		value = 1
	}
	StoreUp.WithLabelValues(service, driver).Set(value)
}
