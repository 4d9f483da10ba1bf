package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/academyhq/backend/internal/models"
	"go.uber.org/zap"
)

type lessonProgressRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLessonProgressRepository creates a new instance of the LessonProgressRepository interface
func NewLessonProgressRepository(db *sql.DB, logger *zap.Logger) *lessonProgressRepository {
	return &lessonProgressRepository{
		db:     db,
		logger: logger,
	}
}

// RecordTick appends a raw tick row and merges it into the per-lesson
// aggregate. Position and percentage are monotonic: GREATEST keeps the
// stored value when the incoming tick rewinds.
func (r *lessonProgressRepository) RecordTick(ctx context.Context, tick *models.LessonProgressTick) (*models.LessonProgressAggregate, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tickQuery := `
		INSERT INTO lesson_progress_ticks (user_id, lesson_id, position_ms, duration_ms, percentage, emitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, tickQuery,
		tick.UserID,
		tick.LessonID,
		tick.PositionMs,
		tick.DurationMs,
		tick.Percentage,
		tick.EmittedAt,
	); err != nil {
		r.logger.Error("failed to insert progress tick", zap.Error(err),
			zap.Int("user_id", tick.UserID), zap.Int("lesson_id", tick.LessonID))
		return nil, fmt.Errorf("failed to insert progress tick: %w", err)
	}

	aggregateQuery := `
		INSERT INTO lesson_progress (user_id, lesson_id, position_ms, percentage)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			position_ms = GREATEST(position_ms, VALUES(position_ms)),
			percentage = GREATEST(percentage, VALUES(percentage))
	`
	if _, err := tx.ExecContext(ctx, aggregateQuery,
		tick.UserID,
		tick.LessonID,
		tick.PositionMs,
		tick.Percentage,
	); err != nil {
		r.logger.Error("failed to upsert progress aggregate", zap.Error(err),
			zap.Int("user_id", tick.UserID), zap.Int("lesson_id", tick.LessonID))
		return nil, fmt.Errorf("failed to upsert progress aggregate: %w", err)
	}

	var aggregate models.LessonProgressAggregate
	readQuery := `
		SELECT user_id, lesson_id, position_ms, percentage
		FROM lesson_progress
		WHERE user_id = ? AND lesson_id = ?
	`
	if err := tx.QueryRowContext(ctx, readQuery, tick.UserID, tick.LessonID).Scan(
		&aggregate.UserID,
		&aggregate.LessonID,
		&aggregate.PositionMs,
		&aggregate.Percentage,
	); err != nil {
		r.logger.Error("failed to read merged aggregate", zap.Error(err),
			zap.Int("user_id", tick.UserID), zap.Int("lesson_id", tick.LessonID))
		return nil, fmt.Errorf("failed to read merged aggregate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &aggregate, nil
}

// GetAggregate retrieves the persisted playback aggregate of a lesson.
// Returns (nil, nil) when no tick was ever recorded.
func (r *lessonProgressRepository) GetAggregate(ctx context.Context, userID, lessonID int) (*models.LessonProgressAggregate, error) {
	query := `
		SELECT user_id, lesson_id, position_ms, percentage
		FROM lesson_progress
		WHERE user_id = ? AND lesson_id = ?
	`

	var aggregate models.LessonProgressAggregate
	err := r.db.QueryRowContext(ctx, query, userID, lessonID).Scan(
		&aggregate.UserID,
		&aggregate.LessonID,
		&aggregate.PositionMs,
		&aggregate.Percentage,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("failed to query progress aggregate", zap.Error(err),
			zap.Int("user_id", userID), zap.Int("lesson_id", lessonID))
		return nil, fmt.Errorf("failed to query progress aggregate: %w", err)
	}

	return &aggregate, nil
}
