package entity

import (
	"time"
)

// Review - отзыв о товаре
// Один и тот же тип используется всеми хранилищами (gorm / bson / json)
type Review struct {
	ID        int64     `json:"review_id" gorm:"column:review_id;primaryKey;autoIncrement" bson:"_id"`
	ProductID int64     `json:"product_id" gorm:"column:product_id;not null;index:idx_reviews_product_id" bson:"product_id"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;not null;index:idx_reviews_user_id" bson:"user_id"`
	Rating    int       `json:"rating" gorm:"column:rating;not null" bson:"rating"`
	Comment   *string   `json:"comment" gorm:"column:comment;type:text" bson:"comment"` // nil - комментария нет
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at" bson:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}

// Clone возвращает копию отзыва, не разделяющую указатель на комментарий
func (r Review) Clone() Review {
	if r.Comment != nil {
		comment := *r.Comment
		r.Comment = &comment
	}
	return r
}

// ReviewUpdate - набор изменяемых полей отзыва
// Rating == nil - оценка не меняется; Comment.Set == false - комментарий не меняется
type ReviewUpdate struct {
	Rating  *int
	Comment OptionalString
}

// IsEmpty - в обновлении нет ни одного поля
func (u ReviewUpdate) IsEmpty() bool {
	return u.Rating == nil && !u.Comment.Set
}

// Apply применяет обновление к отзыву
func (u ReviewUpdate) Apply(review *Review) {
	if u.Rating != nil {
		review.Rating = *u.Rating
	}
	if u.Comment.Set {
		review.Comment = u.Comment.Ptr()
	}
}

const (
	EventReviewCreated = "REVIEW_CREATED"
	EventReviewUpdated = "REVIEW_UPDATED"
	EventReviewDeleted = "REVIEW_DELETED"
)

type ReviewEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"` // REVIEW_CREATED / REVIEW_UPDATED / REVIEW_DELETED
	ReviewID  int64     `json:"review_id"`
	ProductID int64     `json:"product_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthStatus - ответ liveness проверки
type HealthStatus struct {
	Status string `json:"status"`
}
