package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"productreviews/reviews-service/internal/app/reviews/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var reviewColumns = []string{"review_id", "product_id", "user_id", "rating", "comment", "created_at", "updated_at"}

// ReviewRepositoryTestSuite тестовый suite для PostgreSQL repository
type ReviewRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	mock  sqlmock.Sqlmock
	repo  ReviewRepository
	sqlDB *sql.DB
}

func TestReviewRepositorySuite(t *testing.T) {
	suite.Run(t, new(ReviewRepositoryTestSuite))
}

func (s *ReviewRepositoryTestSuite) SetupTest() {
	var err error
	s.sqlDB, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	dialector := postgres.New(postgres.Config{
		Conn:       s.sqlDB,
		DriverName: "postgres",
	})

	s.db, err = gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(s.T(), err)

	s.repo = NewReviewRepository(s.db)
}

func (s *ReviewRepositoryTestSuite) TearDownTest() {
	s.sqlDB.Close()
}

// ===================== Create Tests =====================

func (s *ReviewRepositoryTestSuite) TestCreate_Success() {
	ctx := context.Background()
	comment := "Great product!"
	review := &entity.Review{ProductID: 1, UserID: 1, Rating: 5, Comment: &comment}

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "reviews"`)).
		WillReturnRows(sqlmock.NewRows([]string{"review_id"}).AddRow(1))
	s.mock.ExpectCommit()

	// Act
	err := s.repo.Create(ctx, review)

	// Assert
	s.NoError(err)
	s.Equal(int64(1), review.ID)
	s.False(review.CreatedAt.IsZero())
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestCreate_IgnoresCallerID() {
	ctx := context.Background()
	review := &entity.Review{ID: 99, ProductID: 1, UserID: 1, Rating: 5}

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "reviews"`)).
		WillReturnRows(sqlmock.NewRows([]string{"review_id"}).AddRow(3))
	s.mock.ExpectCommit()

	// Act
	err := s.repo.Create(ctx, review)

	// Assert
	s.NoError(err)
	s.Equal(int64(3), review.ID)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestCreate_DBError() {
	ctx := context.Background()
	review := &entity.Review{ProductID: 1, UserID: 1, Rating: 5}

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "reviews"`)).
		WillReturnError(sql.ErrConnDone)
	s.mock.ExpectRollback()

	// Act
	err := s.repo.Create(ctx, review)

	// Assert
	s.Error(err)
	s.Contains(err.Error(), "failed to create review")
	s.False(errors.Is(err, ErrReviewNotFound))
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== GetByID Tests =====================

func (s *ReviewRepositoryTestSuite) TestGetByID_Success() {
	ctx := context.Background()
	createdAt := time.Now().UTC()

	rows := sqlmock.NewRows(reviewColumns).
		AddRow(int64(2), int64(1), int64(2), 4, "Good value.", createdAt, createdAt)

	// LIMIT передается параметром, поэтому аргументы не проверяем
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE review_id = $1`)).
		WillReturnRows(rows)

	// Act
	review, err := s.repo.GetByID(ctx, 2)

	// Assert
	s.NoError(err)
	s.NotNil(review)
	s.Equal(int64(2), review.ID)
	s.Equal(int64(1), review.ProductID)
	s.Equal(int64(2), review.UserID)
	s.Equal(4, review.Rating)
	s.Require().NotNil(review.Comment)
	s.Equal("Good value.", *review.Comment)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestGetByID_NullComment() {
	ctx := context.Background()
	createdAt := time.Now().UTC()

	rows := sqlmock.NewRows(reviewColumns).
		AddRow(int64(5), int64(1), int64(2), 3, nil, createdAt, createdAt)

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE review_id = $1`)).
		WillReturnRows(rows)

	// Act
	review, err := s.repo.GetByID(ctx, 5)

	// Assert
	s.NoError(err)
	s.Nil(review.Comment)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestGetByID_NotFound() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE review_id = $1`)).
		WillReturnRows(sqlmock.NewRows(reviewColumns))

	// Act
	review, err := s.repo.GetByID(ctx, 404)

	// Assert
	s.ErrorIs(err, ErrReviewNotFound)
	s.Nil(review)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestGetByID_DBError() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE review_id = $1`)).
		WillReturnError(sql.ErrConnDone)

	// Act
	review, err := s.repo.GetByID(ctx, 1)

	// Assert
	s.Error(err)
	s.Nil(review)
	s.Contains(err.Error(), "failed to get review")
	s.False(errors.Is(err, ErrReviewNotFound))
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== List Tests =====================

func (s *ReviewRepositoryTestSuite) TestGetByProductID_Success() {
	ctx := context.Background()
	createdAt := time.Now().UTC()

	rows := sqlmock.NewRows(reviewColumns).
		AddRow(int64(1), int64(1), int64(1), 5, "Great product!", createdAt, createdAt).
		AddRow(int64(2), int64(1), int64(2), 4, "Good value.", createdAt, createdAt)

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE "product_id" = $1 ORDER BY review_id`)).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	// Act
	reviews, err := s.repo.GetByProductID(ctx, 1)

	// Assert
	s.NoError(err)
	s.Len(reviews, 2)
	s.Equal(int64(1), reviews[0].ID)
	s.Equal(int64(2), reviews[1].ID)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestGetByProductID_Empty() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE "product_id" = $1`)).
		WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows(reviewColumns))

	// Act
	reviews, err := s.repo.GetByProductID(ctx, 77)

	// Assert
	s.NoError(err)
	s.NotNil(reviews)
	s.Empty(reviews)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestGetByUserID_Success() {
	ctx := context.Background()
	createdAt := time.Now().UTC()

	rows := sqlmock.NewRows(reviewColumns).
		AddRow(int64(3), int64(2), int64(3), 3, nil, createdAt, createdAt)

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE "user_id" = $1 ORDER BY review_id`)).
		WithArgs(int64(3)).
		WillReturnRows(rows)

	// Act
	reviews, err := s.repo.GetByUserID(ctx, 3)

	// Assert
	s.NoError(err)
	s.Len(reviews, 1)
	s.Equal(int64(3), reviews[0].UserID)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestGetByUserID_DBError() {
	ctx := context.Background()

	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE "user_id" = $1`)).
		WillReturnError(sql.ErrConnDone)

	// Act
	reviews, err := s.repo.GetByUserID(ctx, 3)

	// Assert
	s.Error(err)
	s.Nil(reviews)
	s.Contains(err.Error(), "failed to find reviews by user_id")
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== Update Tests =====================

func (s *ReviewRepositoryTestSuite) TestUpdate_Success() {
	ctx := context.Background()
	createdAt := time.Now().UTC()
	rating := 1

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE review_id = $1`) + `.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(reviewColumns).
			AddRow(int64(3), int64(2), int64(3), 2, "Not satisfied.", createdAt, createdAt))
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "reviews" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	review, err := s.repo.Update(ctx, 3, entity.ReviewUpdate{
		Rating:  &rating,
		Comment: entity.SetString("Very disappointed."),
	})

	// Assert
	s.NoError(err)
	s.Equal(int64(3), review.ID)
	s.Equal(1, review.Rating)
	s.Equal("Very disappointed.", *review.Comment)
	s.Equal(int64(2), review.ProductID)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestUpdate_ClearComment() {
	ctx := context.Background()
	createdAt := time.Now().UTC()

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE review_id = $1`) + `.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(reviewColumns).
			AddRow(int64(4), int64(2), int64(3), 2, "to be removed", createdAt, createdAt))
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "reviews" SET "comment"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	review, err := s.repo.Update(ctx, 4, entity.ReviewUpdate{Comment: entity.NullString()})

	// Assert
	s.NoError(err)
	s.Nil(review.Comment)
	s.Equal(2, review.Rating)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestUpdate_EmptyUpdateSkipsWrite() {
	ctx := context.Background()
	createdAt := time.Now().UTC()

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE review_id = $1`)).
		WillReturnRows(sqlmock.NewRows(reviewColumns).
			AddRow(int64(4), int64(2), int64(3), 2, nil, createdAt, createdAt))
	s.mock.ExpectCommit()

	// Act
	review, err := s.repo.Update(ctx, 4, entity.ReviewUpdate{})

	// Assert
	s.NoError(err)
	s.Equal(2, review.Rating)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestUpdate_NotFound() {
	ctx := context.Background()
	rating := 3

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE review_id = $1`)).
		WillReturnRows(sqlmock.NewRows(reviewColumns))
	s.mock.ExpectRollback()

	// Act
	review, err := s.repo.Update(ctx, 404, entity.ReviewUpdate{Rating: &rating})

	// Assert
	s.ErrorIs(err, ErrReviewNotFound)
	s.Nil(review)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestUpdate_WriteErrorRollsBack() {
	ctx := context.Background()
	createdAt := time.Now().UTC()
	rating := 3

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reviews" WHERE review_id = $1`)).
		WillReturnRows(sqlmock.NewRows(reviewColumns).
			AddRow(int64(4), int64(2), int64(3), 2, nil, createdAt, createdAt))
	s.mock.ExpectExec(regexp.QuoteMeta(`UPDATE "reviews" SET`)).
		WillReturnError(sql.ErrConnDone)
	s.mock.ExpectRollback()

	// Act
	review, err := s.repo.Update(ctx, 4, entity.ReviewUpdate{Rating: &rating})

	// Assert
	s.Error(err)
	s.Nil(review)
	s.Contains(err.Error(), "failed to update review")
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== Delete Tests =====================

func (s *ReviewRepositoryTestSuite) TestDelete_Success() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reviews" WHERE review_id = $1`)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	// Act
	err := s.repo.Delete(ctx, 3)

	// Assert
	s.NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestDelete_NotFound() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reviews" WHERE review_id = $1`)).
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	// Act
	err := s.repo.Delete(ctx, 404)

	// Assert
	s.ErrorIs(err, ErrReviewNotFound)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *ReviewRepositoryTestSuite) TestDelete_DBError() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reviews"`)).
		WillReturnError(sql.ErrConnDone)
	s.mock.ExpectRollback()

	// Act
	err := s.repo.Delete(ctx, 3)

	// Assert
	s.Error(err)
	s.Contains(err.Error(), "failed to delete review")
	s.NoError(s.mock.ExpectationsWereMet())
}

// ===================== Ping Tests =====================

func (s *ReviewRepositoryTestSuite) TestPing_Success() {
	s.NoError(s.repo.Ping(context.Background()))
}
