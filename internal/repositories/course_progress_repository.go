package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/academyhq/backend/internal/models"
	"go.uber.org/zap"
)

type courseProgressRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCourseProgressRepository creates a new instance of the CourseProgressRepository interface
func NewCourseProgressRepository(db *sql.DB, logger *zap.Logger) *courseProgressRepository {
	return &courseProgressRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUserAndCourse retrieves a user's progress record for a course.
// Completed lesson IDs are stored as a JSON array column.
// Returns (nil, nil) when no record exists yet.
func (r *courseProgressRepository) GetByUserAndCourse(ctx context.Context, userID, courseID int) (*models.CourseProgress, error) {
	query := `
		SELECT user_id, course_id, completed_lesson_ids, percentage, last_lesson_id
		FROM course_progress
		WHERE user_id = ? AND course_id = ?
	`

	var progress models.CourseProgress
	var completedJSON []byte
	var lastLessonID sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(
		&progress.UserID,
		&progress.CourseID,
		&completedJSON,
		&progress.Percentage,
		&lastLessonID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("failed to query course progress", zap.Error(err),
			zap.Int("user_id", userID), zap.Int("course_id", courseID))
		return nil, fmt.Errorf("failed to query course progress: %w", err)
	}

	if len(completedJSON) > 0 {
		if err := json.Unmarshal(completedJSON, &progress.CompletedLessonIDs); err != nil {
			r.logger.Error("failed to decode completed lesson ids", zap.Error(err),
				zap.Int("user_id", userID), zap.Int("course_id", courseID))
			return nil, fmt.Errorf("failed to decode completed lesson ids: %w", err)
		}
	}
	if progress.CompletedLessonIDs == nil {
		progress.CompletedLessonIDs = []int{}
	}
	if lastLessonID.Valid {
		id := int(lastLessonID.Int64)
		progress.LastLessonID = &id
	}

	return &progress, nil
}

// Upsert inserts or replaces a user's progress record for a course
func (r *courseProgressRepository) Upsert(ctx context.Context, progress *models.CourseProgress) error {
	completedJSON, err := json.Marshal(progress.CompletedLessonIDs)
	if err != nil {
		return fmt.Errorf("failed to encode completed lesson ids: %w", err)
	}

	query := `
		INSERT INTO course_progress (user_id, course_id, completed_lesson_ids, percentage, last_lesson_id)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			completed_lesson_ids = VALUES(completed_lesson_ids),
			percentage = VALUES(percentage),
			last_lesson_id = VALUES(last_lesson_id)
	`

	var lastLessonID sql.NullInt64
	if progress.LastLessonID != nil {
		lastLessonID = sql.NullInt64{Int64: int64(*progress.LastLessonID), Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query,
		progress.UserID,
		progress.CourseID,
		completedJSON,
		progress.Percentage,
		lastLessonID,
	); err != nil {
		r.logger.Error("failed to upsert course progress", zap.Error(err),
			zap.Int("user_id", progress.UserID), zap.Int("course_id", progress.CourseID))
		return fmt.Errorf("failed to upsert course progress: %w", err)
	}

	return nil
}
