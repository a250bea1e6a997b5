package entity

// CreateReviewRequest - запрос на создание отзыва
// Указатели позволяют отличить отсутствующее поле от нулевого значения
type CreateReviewRequest struct {
	ProductID *int64  `json:"product_id" validate:"required"`
	UserID    *int64  `json:"user_id" validate:"required"`
	Rating    *int    `json:"rating" validate:"required"`
	Comment   *string `json:"comment"`
}

// UpdateReviewRequest - запрос на обновление отзыва
// Учитываются только rating и comment, остальные ключи игнорируются
type UpdateReviewRequest struct {
	Rating  OptionalInt    `json:"rating"`
	Comment OptionalString `json:"comment"`
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse - стандартный ответ об успехе
type SuccessResponse struct {
	Message string `json:"message"`
}

// ReviewListResponse - ответ со списком отзывов
type ReviewListResponse struct {
	Reviews []Review `json:"reviews"`
}
