package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"productreviews/reviews-service/internal/app/reviews/entity"
)

// memoryRepository - in-memory хранилище для тестов и локального запуска
// Все операции выполняются под одним мьютексом, поэтому каждая видна целиком
type memoryRepository struct {
	mu        sync.RWMutex
	nextID    int64
	reviews   map[int64]entity.Review
	byProduct map[int64]map[int64]struct{}
	byUser    map[int64]map[int64]struct{}
	now       func() time.Time
}

// NewMemoryReviewRepository создает пустое in-memory хранилище
func NewMemoryReviewRepository() ReviewRepository {
	return &memoryRepository{
		reviews:   make(map[int64]entity.Review),
		byProduct: make(map[int64]map[int64]struct{}),
		byUser:    make(map[int64]map[int64]struct{}),
		now:       time.Now,
	}
}

func (r *memoryRepository) Create(_ context.Context, review *entity.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := r.now().UTC()

	review.ID = r.nextID
	review.CreatedAt = now
	review.UpdatedAt = now

	r.reviews[review.ID] = review.Clone()
	addToIndex(r.byProduct, review.ProductID, review.ID)
	addToIndex(r.byUser, review.UserID, review.ID)

	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id int64) (*entity.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	review, ok := r.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}

	clone := review.Clone()
	return &clone, nil
}

func (r *memoryRepository) GetByProductID(_ context.Context, productID int64) ([]entity.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(r.byProduct[productID]), nil
}

func (r *memoryRepository) GetByUserID(_ context.Context, userID int64) ([]entity.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(r.byUser[userID]), nil
}

func (r *memoryRepository) Update(_ context.Context, id int64, update entity.ReviewUpdate) (*entity.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	review, ok := r.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}

	if !update.IsEmpty() {
		update.Apply(&review)
		review.UpdatedAt = r.now().UTC()
		r.reviews[id] = review.Clone()
	}

	clone := review.Clone()
	return &clone, nil
}

func (r *memoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	review, ok := r.reviews[id]
	if !ok {
		return ErrReviewNotFound
	}

	delete(r.reviews, id)
	removeFromIndex(r.byProduct, review.ProductID, id)
	removeFromIndex(r.byUser, review.UserID, id)

	return nil
}

func (r *memoryRepository) Ping(context.Context) error {
	return nil
}

// collect возвращает отзывы из индекса, отсортированные по review_id
func (r *memoryRepository) collect(ids map[int64]struct{}) []entity.Review {
	reviews := make([]entity.Review, 0, len(ids))
	for id := range ids {
		reviews = append(reviews, r.reviews[id].Clone())
	}

	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].ID < reviews[j].ID
	})

	return reviews
}

func addToIndex(index map[int64]map[int64]struct{}, key, id int64) {
	ids, ok := index[key]
	if !ok {
		ids = make(map[int64]struct{})
		index[key] = ids
	}
	ids[id] = struct{}{}
}

func removeFromIndex(index map[int64]map[int64]struct{}, key, id int64) {
	ids, ok := index[key]
	if !ok {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(index, key)
	}
}
