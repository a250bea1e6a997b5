package service

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"productreviews/pkg/logger"
	"productreviews/pkg/metrics"
	"productreviews/reviews-service/internal/app/reviews/entity"
	"productreviews/reviews-service/internal/app/reviews/infrastructure"
	"productreviews/reviews-service/internal/app/reviews/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// publishTimeout - ограничение на отправку одного события
const publishTimeout = 10 * time.Second

// ReviewService обрабатывает бизнес-логику отзывов
// Координирует работу хранилища и Kafka
type ReviewService struct {
	reviewRepo    repository.ReviewRepository
	kafkaProducer infrastructure.MessagePublisher
	validator     *validator.Validate
	now           func() time.Time
}

// NewReviewService создает новый сервис отзывов с внедрением зависимостей
// kafkaProducer может быть nil, тогда события не отправляются
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	kafkaProducer infrastructure.MessagePublisher,
) *ReviewService {
	return &ReviewService{
		reviewRepo:    reviewRepo,
		kafkaProducer: kafkaProducer,
		validator:     newValidator(),
		now:           time.Now,
	}
}

// newValidator возвращает валидатор, который называет поля по json тегам
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateReview создает новый отзыв
// 1. Проверяет наличие product_id, user_id и rating
// 2. Сохраняет отзыв в хранилище
// 3. Отправляет событие REVIEW_CREATED в Kafka
func (s *ReviewService) CreateReview(ctx context.Context, req *entity.CreateReviewRequest) (*entity.Review, error) {
	if err := s.validateCreate(req); err != nil {
		metrics.ReviewsRejected.WithLabelValues("create").Inc()
		return nil, err
	}

	review := &entity.Review{
		ProductID: *req.ProductID,
		UserID:    *req.UserID,
		Rating:    *req.Rating,
		Comment:   req.Comment,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		logger.Error().Err(err).
			Int64("product_id", review.ProductID).
			Int64("user_id", review.UserID).
			Msg("Failed to create review")
		return nil, newPersistenceError("create review", err)
	}

	metrics.ReviewsCreated.Inc()
	metrics.ReviewsRating.Observe(float64(review.Rating))

	logger.Info().
		Int64("review_id", review.ID).
		Int64("product_id", review.ProductID).
		Int64("user_id", review.UserID).
		Msg("Review created")

	s.publishReviewEvent(ctx, entity.EventReviewCreated, review)

	return review, nil
}

func (s *ReviewService) validateCreate(req *entity.CreateReviewRequest) error {
	if req == nil {
		return newValidationError("product_id", "user_id", "rating")
	}

	err := s.validator.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return newValidationError()
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		fields = append(fields, fieldError.Field())
	}
	return newValidationError(fields...)
}

// GetReview получает отзыв по ID
func (s *ReviewService) GetReview(ctx context.Context, reviewID int64) (*entity.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, s.mapStoreError("get review", err)
	}

	return review, nil
}

// GetReviewsByProduct получает все отзывы по ID товара
// Пустой результат возвращается как ErrReviewNotFound
func (s *ReviewService) GetReviewsByProduct(ctx context.Context, productID int64) ([]entity.Review, error) {
	reviews, err := s.reviewRepo.GetByProductID(ctx, productID)
	if err != nil {
		return nil, s.mapStoreError("get product reviews", err)
	}

	if len(reviews) == 0 {
		return nil, ErrReviewNotFound
	}

	return reviews, nil
}

// GetUserReviews получает все отзывы пользователя
// Пустой результат возвращается как ErrReviewNotFound
func (s *ReviewService) GetUserReviews(ctx context.Context, userID int64) ([]entity.Review, error) {
	reviews, err := s.reviewRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, s.mapStoreError("get user reviews", err)
	}

	if len(reviews) == 0 {
		return nil, ErrReviewNotFound
	}

	return reviews, nil
}

// UpdateReview обновляет только переданные rating и comment
// comment: null очищает комментарий, rating: null - ошибка валидации
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID int64, req *entity.UpdateReviewRequest) (*entity.Review, error) {
	var update entity.ReviewUpdate
	if req != nil {
		if req.Rating.Set {
			if req.Rating.Null {
				// Отсутствующий отзыв важнее ошибки в теле запроса
				if _, err := s.reviewRepo.GetByID(ctx, reviewID); err != nil {
					return nil, s.mapStoreError("update review", err)
				}
				metrics.ReviewsRejected.WithLabelValues("update").Inc()
				return nil, newValidationError("rating")
			}
			rating := req.Rating.Value
			update.Rating = &rating
		}
		update.Comment = req.Comment
	}

	review, err := s.reviewRepo.Update(ctx, reviewID, update)
	if err != nil {
		return nil, s.mapStoreError("update review", err)
	}

	if !update.IsEmpty() {
		metrics.ReviewsUpdated.Inc()
		logger.Info().
			Int64("review_id", review.ID).
			Bool("rating_changed", update.Rating != nil).
			Bool("comment_changed", update.Comment.Set).
			Msg("Review updated")

		s.publishReviewEvent(ctx, entity.EventReviewUpdated, review)
	}

	return review, nil
}

// DeleteReview удаляет отзыв
// Повторное удаление возвращает ErrReviewNotFound
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID int64) error {
	// Читаем отзыв до удаления, чтобы заполнить событие
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return s.mapStoreError("delete review", err)
	}

	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		return s.mapStoreError("delete review", err)
	}

	metrics.ReviewsDeleted.Inc()
	logger.Info().Int64("review_id", reviewID).Msg("Review deleted")

	s.publishReviewEvent(ctx, entity.EventReviewDeleted, review)

	return nil
}

// HealthCheck - проверка живости процесса, хранилище не опрашивается
func (s *ReviewService) HealthCheck() entity.HealthStatus {
	return entity.HealthStatus{Status: "healthy"}
}

// mapStoreError переводит ошибку хранилища в ошибку сервиса
func (s *ReviewService) mapStoreError(op string, err error) error {
	if errors.Is(err, repository.ErrReviewNotFound) {
		return ErrReviewNotFound
	}

	logger.Error().Err(err).Str("operation", op).Msg("Store operation failed")
	return newPersistenceError(op, err)
}

// publishReviewEvent отправляет событие об отзыве в Kafka
// Отзыв уже сохранен, поэтому ошибка отправки только логируется
func (s *ReviewService) publishReviewEvent(ctx context.Context, eventType string, review *entity.Review) {
	if s.kafkaProducer == nil {
		return
	}

	event := entity.ReviewEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Timestamp: s.now().UTC(),
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Msg("Failed to marshal review event")
		return
	}

	// Ключ = ReviewID, события одного отзыва попадают в одну партицию
	key := strconv.FormatInt(review.ID, 10)

	// Отзыв уже записан: отмена HTTP запроса не должна обрывать отправку события
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.kafkaProducer.PublishMessage(publishCtx, key, eventData); err != nil {
		logger.Warn().Err(err).
			Str("event_type", eventType).
			Int64("review_id", review.ID).
			Msg("Failed to publish review event")
	}
}
