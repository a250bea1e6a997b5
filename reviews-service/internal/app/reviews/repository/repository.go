package repository

import (
	"context"
	"errors"

	"productreviews/reviews-service/internal/app/reviews/entity"
)

const (
	serviceName = "reviews-service"
	reviewTable = "reviews"
)

var (
	// Стандартные ошибки репозитория для обработки в service layer
	// Любая другая ошибка означает сбой хранилища
	ErrReviewNotFound = errors.New("review not found")
)

// ReviewRepository определяет методы для работы с отзывами
// Реализации: PostgreSQL (gorm), MongoDB, Redis и in-memory
type ReviewRepository interface {
	// Create присваивает отзыву новый review_id
	Create(ctx context.Context, review *entity.Review) error
	GetByID(ctx context.Context, id int64) (*entity.Review, error)
	// GetByProductID и GetByUserID возвращают пустой срез, а не ошибку, если отзывов нет
	GetByProductID(ctx context.Context, productID int64) ([]entity.Review, error)
	GetByUserID(ctx context.Context, userID int64) ([]entity.Review, error)
	// Update атомарно применяет только переданные поля и возвращает обновленный отзыв
	Update(ctx context.Context, id int64, update entity.ReviewUpdate) (*entity.Review, error)
	Delete(ctx context.Context, id int64) error
	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error
}

// storeFailure отбрасывает ErrReviewNotFound: отсутствие отзыва не является сбоем хранилища
func storeFailure(err error) error {
	if errors.Is(err, ErrReviewNotFound) {
		return nil
	}
	return err
}
