package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"productreviews/pkg/metrics"
	"productreviews/reviews-service/internal/app/reviews/entity"

	"github.com/redis/go-redis/v9"
)

const (
	redisSequenceKey = "reviews:seq"
	// Количество попыток при конфликте WATCH
	redisMaxTxRetries = 10
)

func redisItemKey(id int64) string {
	return "reviews:item:" + strconv.FormatInt(id, 10)
}

func redisProductKey(productID int64) string {
	return "reviews:product:" + strconv.FormatInt(productID, 10)
}

func redisUserKey(userID int64) string {
	return "reviews:user:" + strconv.FormatInt(userID, 10)
}

// redisReviewRepository хранит отзыв как JSON по ключу reviews:item:<id>,
// индексы по товару и пользователю - sorted set с score = review_id
type redisReviewRepository struct {
	client *redis.Client
}

// NewRedisReviewRepository создает репозиторий отзывов в Redis
func NewRedisReviewRepository(client *redis.Client) ReviewRepository {
	return &redisReviewRepository{client: client}
}

// Create выдает review_id через INCR и записывает отзыв вместе с индексами в MULTI/EXEC
func (r *redisReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	incrTimer := metrics.NewRedisTimer(serviceName, metrics.RedisOpIncr)
	id, err := r.client.Incr(ctx, redisSequenceKey).Result()
	incrTimer.ObserveDuration()
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpIncr)
		return fmt.Errorf("failed to allocate review id: %w", err)
	}

	now := time.Now().UTC()
	review.ID = id
	review.CreatedAt = now
	review.UpdatedAt = now

	data, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("failed to marshal review: %w", err)
	}

	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpMulti)
	defer timer.ObserveDuration()

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisItemKey(id), data, 0)
		pipe.ZAdd(ctx, redisProductKey(review.ProductID), redis.Z{Score: float64(id), Member: id})
		pipe.ZAdd(ctx, redisUserKey(review.UserID), redis.Z{Score: float64(id), Member: id})
		return nil
	})
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpMulti)
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

func (r *redisReviewRepository) GetByID(ctx context.Context, id int64) (*entity.Review, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpGet)
	defer timer.ObserveDuration()

	review, err := getRedisReview(ctx, r.client, id)
	if err != nil && !errors.Is(err, ErrReviewNotFound) {
		metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
	}
	return review, err
}

func (r *redisReviewRepository) GetByProductID(ctx context.Context, productID int64) ([]entity.Review, error) {
	return r.listIndex(ctx, redisProductKey(productID))
}

func (r *redisReviewRepository) GetByUserID(ctx context.Context, userID int64) ([]entity.Review, error) {
	return r.listIndex(ctx, redisUserKey(userID))
}

func (r *redisReviewRepository) listIndex(ctx context.Context, indexKey string) ([]entity.Review, error) {
	rangeTimer := metrics.NewRedisTimer(serviceName, metrics.RedisOpRange)
	members, err := r.client.ZRange(ctx, indexKey, 0, -1).Result()
	rangeTimer.ObserveDuration()
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpRange)
		return nil, fmt.Errorf("failed to read review index %s: %w", indexKey, err)
	}

	reviews := make([]entity.Review, 0, len(members))
	if len(members) == 0 {
		return reviews, nil
	}

	keys := make([]string, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid review id %q in index %s: %w", member, indexKey, err)
		}
		keys = append(keys, redisItemKey(id))
	}

	mgetTimer := metrics.NewRedisTimer(serviceName, metrics.RedisOpMGet)
	values, err := r.client.MGet(ctx, keys...).Result()
	mgetTimer.ObserveDuration()
	if err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpMGet)
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}

	for _, value := range values {
		// Запись и индекс удаляются в одной транзакции, nil здесь не ожидается,
		// но пропускаем его, чтобы не вернуть удаленный отзыв
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var review entity.Review
		if err := json.Unmarshal([]byte(raw), &review); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review: %w", err)
		}
		reviews = append(reviews, review)
	}

	return reviews, nil
}

// Update читает отзыв под WATCH и записывает его в MULTI/EXEC
// Если ключ изменился между чтением и записью, транзакция повторяется целиком
func (r *redisReviewRepository) Update(ctx context.Context, id int64, update entity.ReviewUpdate) (*entity.Review, error) {
	key := redisItemKey(id)

	var updated *entity.Review
	txf := func(tx *redis.Tx) error {
		review, err := getRedisReview(ctx, tx, id)
		if err != nil {
			return err
		}

		if update.IsEmpty() {
			updated = review
			return nil
		}

		update.Apply(review)
		review.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(review)
		if err != nil {
			return fmt.Errorf("failed to marshal review: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}

		updated = review
		return nil
	}

	if err := r.watch(ctx, txf, key); err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	return updated, nil
}

// Delete удаляет отзыв и его записи в индексах одной транзакцией
func (r *redisReviewRepository) Delete(ctx context.Context, id int64) error {
	key := redisItemKey(id)

	txf := func(tx *redis.Tx) error {
		review, err := getRedisReview(ctx, tx, id)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, redisProductKey(review.ProductID), id)
			pipe.ZRem(ctx, redisUserKey(review.UserID), id)
			return nil
		})
		return err
	}

	if err := r.watch(ctx, txf, key); err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return nil
}

func (r *redisReviewRepository) Ping(ctx context.Context) error {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpPing)
	defer timer.ObserveDuration()

	return r.client.Ping(ctx).Err()
}

// watch выполняет оптимистичную транзакцию с повтором при конфликте
func (r *redisReviewRepository) watch(ctx context.Context, txf func(tx *redis.Tx) error, key string) error {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpWatch)
	defer timer.ObserveDuration()

	for attempt := 0; attempt < redisMaxTxRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			metrics.RecordRedisConflict(serviceName, metrics.RedisOpWatch)
			continue
		}
		if !errors.Is(err, ErrReviewNotFound) {
			metrics.RecordRedisError(serviceName, metrics.RedisOpWatch)
		}
		return err
	}

	return fmt.Errorf("too many concurrent modifications of %s: %w", key, redis.TxFailedErr)
}

// redisGetter - общий метод *redis.Client и *redis.Tx
type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRedisReview(ctx context.Context, client redisGetter, id int64) (*entity.Review, error) {
	data, err := client.Get(ctx, redisItemKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	var review entity.Review
	if err := json.Unmarshal(data, &review); err != nil {
		return nil, fmt.Errorf("failed to unmarshal review: %w", err)
	}

	return &review, nil
}
