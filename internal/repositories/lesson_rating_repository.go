package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/academyhq/backend/internal/models"
	"go.uber.org/zap"
)

type lessonRatingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLessonRatingsRepository creates a new instance of the LessonRatingRepository interface
func NewLessonRatingsRepository(db *sql.DB, logger *zap.Logger) *lessonRatingsRepository {
	return &lessonRatingsRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or replaces a user's rating of a lesson
func (r *lessonRatingsRepository) Upsert(ctx context.Context, rating *models.LessonRating) error {
	query := `
		INSERT INTO lesson_ratings (user_id, lesson_id, rating, created_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE rating = VALUES(rating)
	`

	if _, err := r.db.ExecContext(ctx, query,
		rating.UserID,
		rating.LessonID,
		rating.Rating,
		rating.CreatedAt,
	); err != nil {
		r.logger.Error("failed to upsert rating", zap.Error(err),
			zap.Int("user_id", rating.UserID), zap.Int("lesson_id", rating.LessonID))
		return fmt.Errorf("failed to upsert rating: %w", err)
	}

	return nil
}

// FindByUserAndLesson retrieves a user's rating, (nil, nil) when absent
func (r *lessonRatingsRepository) FindByUserAndLesson(ctx context.Context, userID, lessonID int) (*models.LessonRating, error) {
	query := `
		SELECT user_id, lesson_id, rating, created_at
		FROM lesson_ratings
		WHERE user_id = ? AND lesson_id = ?
	`

	var rating models.LessonRating
	err := r.db.QueryRowContext(ctx, query, userID, lessonID).Scan(
		&rating.UserID,
		&rating.LessonID,
		&rating.Rating,
		&rating.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("failed to query rating", zap.Error(err),
			zap.Int("user_id", userID), zap.Int("lesson_id", lessonID))
		return nil, fmt.Errorf("failed to query rating: %w", err)
	}

	return &rating, nil
}

// GetSummary retrieves the aggregate rating of a lesson, (nil, nil) when the
// lesson has no ratings
func (r *lessonRatingsRepository) GetSummary(ctx context.Context, lessonID int) (*models.LessonRatingSummary, error) {
	query := `
		SELECT lesson_id, AVG(rating), COUNT(*)
		FROM lesson_ratings
		WHERE lesson_id = ?
		GROUP BY lesson_id
	`

	var summary models.LessonRatingSummary
	err := r.db.QueryRowContext(ctx, query, lessonID).Scan(
		&summary.LessonID,
		&summary.Average,
		&summary.Count,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("failed to query rating summary", zap.Error(err), zap.Int("lesson_id", lessonID))
		return nil, fmt.Errorf("failed to query rating summary: %w", err)
	}

	return &summary, nil
}

// Delete removes a user's rating of a lesson
func (r *lessonRatingsRepository) Delete(ctx context.Context, userID, lessonID int) error {
	query := `DELETE FROM lesson_ratings WHERE user_id = ? AND lesson_id = ?`

	if _, err := r.db.ExecContext(ctx, query, userID, lessonID); err != nil {
		r.logger.Error("failed to delete rating", zap.Error(err),
			zap.Int("user_id", userID), zap.Int("lesson_id", lessonID))
		return fmt.Errorf("failed to delete rating: %w", err)
	}

	return nil
}
