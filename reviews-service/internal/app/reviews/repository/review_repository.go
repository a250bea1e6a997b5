package repository

import (
	"context"
	"errors"
	"fmt"

	"productreviews/pkg/metrics"
	"productreviews/reviews-service/internal/app/reviews/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reviewRepository реализует ReviewRepository поверх PostgreSQL через GORM
type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository создает новый репозиторий отзывов в PostgreSQL
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Migrate создает таблицу reviews и индексы по product_id и user_id
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entity.Review{}); err != nil {
		return fmt.Errorf("failed to migrate reviews table: %w", err)
	}
	return nil
}

// Create вставляет отзыв; review_id выдает последовательность БД
// GORM выполняет INSERT в транзакции, при ошибке запись не остается
func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) (err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, reviewTable)
	defer func() { timer.Done(storeFailure(err)) }()

	review.ID = 0
	if result := r.db.WithContext(ctx).Create(review); result.Error != nil {
		return fmt.Errorf("failed to create review: %w", result.Error)
	}

	return nil
}

// GetByID получает отзыв по ID
func (r *reviewRepository) GetByID(ctx context.Context, id int64) (_ *entity.Review, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, reviewTable)
	defer func() { timer.Done(storeFailure(err)) }()

	var review entity.Review
	result := r.db.WithContext(ctx).Where("review_id = ?", id).Take(&review)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", result.Error)
	}

	return &review, nil
}

// GetByProductID получает все отзывы о товаре (индекс idx_reviews_product_id)
func (r *reviewRepository) GetByProductID(ctx context.Context, productID int64) ([]entity.Review, error) {
	return r.findBy(ctx, "product_id", productID)
}

// GetByUserID получает все отзывы пользователя (индекс idx_reviews_user_id)
func (r *reviewRepository) GetByUserID(ctx context.Context, userID int64) ([]entity.Review, error) {
	return r.findBy(ctx, "user_id", userID)
}

func (r *reviewRepository) findBy(ctx context.Context, column string, value int64) (_ []entity.Review, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, reviewTable)
	defer func() { timer.Done(storeFailure(err)) }()

	reviews := make([]entity.Review, 0)
	result := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).
		Order("review_id").
		Find(&reviews)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find reviews by %s: %w", column, result.Error)
	}

	return reviews, nil
}

// Update блокирует строку (SELECT ... FOR UPDATE) и обновляет только переданные поля
// Параллельные обновления одного отзыва выполняются последовательно,
// при ошибке транзакция откатывается целиком
func (r *reviewRepository) Update(ctx context.Context, id int64, update entity.ReviewUpdate) (_ *entity.Review, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, reviewTable)
	defer func() { timer.Done(storeFailure(err)) }()

	var review entity.Review
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("review_id = ?", id).
			Take(&review)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrReviewNotFound
			}
			return fmt.Errorf("failed to lock review: %w", result.Error)
		}

		if update.IsEmpty() {
			return nil
		}

		changes := map[string]interface{}{}
		if update.Rating != nil {
			changes["rating"] = *update.Rating
		}
		if update.Comment.Set {
			changes["comment"] = update.Comment.Ptr()
		}

		result = tx.Model(&review).Updates(changes)
		if result.Error != nil {
			return fmt.Errorf("failed to update review: %w", result.Error)
		}

		update.Apply(&review)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &review, nil
}

// Delete удаляет отзыв
func (r *reviewRepository) Delete(ctx context.Context, id int64) (err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, reviewTable)
	defer func() { timer.Done(storeFailure(err)) }()

	result := r.db.WithContext(ctx).Where("review_id = ?", id).Delete(&entity.Review{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete review: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// Ping проверяет соединение с PostgreSQL
func (r *reviewRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
