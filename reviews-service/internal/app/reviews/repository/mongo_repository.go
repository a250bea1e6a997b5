package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"productreviews/pkg/metrics"
	"productreviews/reviews-service/internal/app/reviews/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	countersCollection = "counters"
	reviewSequenceID   = "review_id"
)

type mongoReviewRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

// NewMongoReviewRepository создает репозиторий отзывов в MongoDB
// Индексы создаются отдельно через EnsureMongoIndexes
func NewMongoReviewRepository(db *mongo.Database) ReviewRepository {
	return &mongoReviewRepository{
		collection: db.Collection(reviewTable),
		counters:   db.Collection(countersCollection),
	}
}

// EnsureMongoIndexes создает индексы по product_id и user_id для быстрой выборки
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(reviewTable).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "product_id", Value: 1}},
			Options: options.Index().SetName("product_id_idx"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create review indexes: %w", err)
	}
	return nil
}

// Create получает следующий review_id атомарным $inc в коллекции counters
// и вставляет документ одной операцией
// ID, выданный под неудачную вставку, больше не используется
func (r *mongoReviewRepository) Create(ctx context.Context, review *entity.Review) (err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, reviewTable)
	defer func() { timer.Done(storeFailure(err)) }()

	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	review.ID = id
	review.CreatedAt = now
	review.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, review); err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

func (r *mongoReviewRepository) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": reviewSequenceID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate review id: %w", err)
	}

	return counter.Seq, nil
}

func (r *mongoReviewRepository) GetByID(ctx context.Context, id int64) (_ *entity.Review, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, reviewTable)
	defer func() { timer.Done(storeFailure(err)) }()

	var review entity.Review
	err = r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return &review, nil
}

// GetByProductID использует индекс product_id_idx
func (r *mongoReviewRepository) GetByProductID(ctx context.Context, productID int64) ([]entity.Review, error) {
	return r.find(ctx, bson.M{"product_id": productID})
}

// GetByUserID использует индекс user_id_idx
func (r *mongoReviewRepository) GetByUserID(ctx context.Context, userID int64) ([]entity.Review, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *mongoReviewRepository) find(ctx context.Context, filter bson.M) (_ []entity.Review, err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, reviewTable)
	defer func() { timer.Done(storeFailure(err)) }()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reviews: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := make([]entity.Review, 0)
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}

	return reviews, nil
}

// Update применяет $set одной операцией findOneAndUpdate, изменение документа атомарно
func (r *mongoReviewRepository) Update(ctx context.Context, id int64, update entity.ReviewUpdate) (_ *entity.Review, err error) {
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, reviewTable)
	defer func() { timer.Done(storeFailure(err)) }()

	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	if update.Rating != nil {
		set["rating"] = *update.Rating
	}
	if update.Comment.Set {
		set["comment"] = update.Comment.Ptr()
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var review entity.Review
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	return &review, nil
}

func (r *mongoReviewRepository) Delete(ctx context.Context, id int64) (err error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpDelete, reviewTable)
	defer func() { timer.Done(storeFailure(err)) }()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrReviewNotFound
	}

	return nil
}

func (r *mongoReviewRepository) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, readpref.Primary())
}
