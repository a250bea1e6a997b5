package service

import (
	"context"

	"productreviews/reviews-service/internal/app/reviews/entity"
)

// ReviewServiceInterface - операции над отзывами, доступные транспортному слою
type ReviewServiceInterface interface {
	CreateReview(ctx context.Context, req *entity.CreateReviewRequest) (*entity.Review, error)
	GetReview(ctx context.Context, reviewID int64) (*entity.Review, error)
	GetReviewsByProduct(ctx context.Context, productID int64) ([]entity.Review, error)
	GetUserReviews(ctx context.Context, userID int64) ([]entity.Review, error)
	UpdateReview(ctx context.Context, reviewID int64, req *entity.UpdateReviewRequest) (*entity.Review, error)
	DeleteReview(ctx context.Context, reviewID int64) error
	HealthCheck() entity.HealthStatus
}

var _ ReviewServiceInterface = (*ReviewService)(nil)
