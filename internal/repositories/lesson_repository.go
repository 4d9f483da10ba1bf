package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/academyhq/backend/internal/models"
	"go.uber.org/zap"
)

type lessonsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLessonsRepository creates a new instance of the LessonRepository interface
func NewLessonsRepository(db *sql.DB, logger *zap.Logger) *lessonsRepository {
	return &lessonsRepository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves a lesson joined with its course ID and the course's
// commenting settings. Returns (nil, nil) when the lesson does not exist.
func (r *lessonsRepository) FindByID(ctx context.Context, lessonID int) (*models.LessonWithCourse, error) {
	query := `
		SELECT l.id, l.module_id, l.slug, l.title, l.sort_order, l.is_preview, l.release_at,
		       l.duration_minutes, l.video_url,
		       c.id AS course_id, c.is_commenting_enabled, c.is_commenting_moderated
		FROM lessons l
		JOIN course_modules m ON m.id = l.module_id
		JOIN courses c ON c.id = m.course_id
		WHERE l.id = ?
	`

	var lesson models.LessonWithCourse
	var slug, videoURL sql.NullString
	var releaseAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, lessonID).Scan(
		&lesson.ID,
		&lesson.ModuleID,
		&slug,
		&lesson.Title,
		&lesson.Order,
		&lesson.IsPreview,
		&releaseAt,
		&lesson.DurationMinutes,
		&videoURL,
		&lesson.CourseID,
		&lesson.IsCommentingEnabled,
		&lesson.IsCommentingModerated,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("failed to query lesson", zap.Error(err), zap.Int("lesson_id", lessonID))
		return nil, fmt.Errorf("failed to query lesson: %w", err)
	}
	lesson.Slug = slug.String
	lesson.VideoURL = videoURL.String
	if releaseAt.Valid {
		lesson.ReleaseAt = &releaseAt.Time
	}

	return &lesson, nil
}
