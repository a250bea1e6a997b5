package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"productreviews/pkg/logger"
	"productreviews/reviews-service/internal/app/reviews/entity"
	"productreviews/reviews-service/internal/app/reviews/service"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviewService service.ReviewServiceInterface
}

func NewReviewHandler(reviewService service.ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
	}
}

// HealthCheck - liveness, хранилище не проверяется
func (h *ReviewHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, h.reviewService.HealthCheck())
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
	var req entity.CreateReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.reviewService.CreateReview(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) GetReview(c *gin.Context) {
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}

	review, err := h.reviewService.GetReview(c.Request.Context(), reviewID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) GetReviewsByProduct(c *gin.Context) {
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}

	reviews, err := h.reviewService.GetReviewsByProduct(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.ReviewListResponse{Reviews: reviews})
}

func (h *ReviewHandler) GetUserReviews(c *gin.Context) {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	reviews, err := h.reviewService.GetUserReviews(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.ReviewListResponse{Reviews: reviews})
}

// UpdateReview обслуживает и PUT, и PATCH: в обоих случаях меняются только переданные поля
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}

	var req entity.UpdateReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.reviewService.UpdateReview(c.Request.Context(), reviewID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(c.Request.Context(), reviewID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message: "Review deleted successfully",
	})
}

// respondError переводит ошибку сервиса в HTTP ответ
func (h *ReviewHandler) respondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var persistenceErr *service.PersistenceError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Error:   "Validation failed",
			Message: validationErr.Error(),
		})
	case errors.Is(err, service.ErrReviewNotFound):
		c.JSON(http.StatusNotFound, entity.ErrorResponse{
			Error:   "Review not found",
			Message: err.Error(),
		})
	case errors.As(err, &persistenceErr):
		log := logger.FromGin(c)
		log.Error().Err(persistenceErr.Err).Str("operation", persistenceErr.Op).Msg("Request failed on store")
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
			Error:   "Storage failure",
			Message: persistenceErr.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
	}
}

// bindJSON разбирает тело запроса; пустое тело считается пустым объектом
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return false
	}
	return true
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{
			Error:   "Invalid " + param,
			Message: param + " must be an integer",
		})
		return 0, false
	}
	return id, true
}
