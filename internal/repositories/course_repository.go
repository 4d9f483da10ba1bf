package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/academyhq/backend/internal/models"
	"go.uber.org/zap"
)

type coursesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCoursesRepository creates a new instance of the CourseRepository interface
func NewCoursesRepository(db *sql.DB, logger *zap.Logger) *coursesRepository {
	return &coursesRepository{
		db:     db,
		logger: logger,
	}
}

// FindTreeByID retrieves a course with its full module/lesson tree.
// Modules and lessons come back in declared order; drip columns are nullable.
func (r *coursesRepository) FindTreeByID(ctx context.Context, courseID int) (*models.Course, error) {
	courseQuery := `
		SELECT id, slug, title, short_summary, release_at
		FROM courses
		WHERE id = ?
	`

	var course models.Course
	var shortSummary sql.NullString
	var releaseAt sql.NullTime
	err := r.db.QueryRowContext(ctx, courseQuery, courseID).Scan(
		&course.ID,
		&course.Slug,
		&course.Title,
		&shortSummary,
		&releaseAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("failed to query course", zap.Error(err), zap.Int("course_id", courseID))
		return nil, fmt.Errorf("failed to query course: %w", err)
	}
	course.ShortSummary = shortSummary.String
	if releaseAt.Valid {
		course.ReleaseAt = &releaseAt.Time
	}

	modules, err := r.loadModules(ctx, courseID)
	if err != nil {
		return nil, err
	}

	lessonsByModule, err := r.loadLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}

	for i := range modules {
		lessons := lessonsByModule[modules[i].ID]
		if lessons == nil {
			lessons = []models.Lesson{}
		}
		modules[i].Lessons = lessons
	}
	course.Modules = modules

	return &course, nil
}

// loadModules retrieves all modules of a course ordered by sort order
func (r *coursesRepository) loadModules(ctx context.Context, courseID int) ([]models.CourseModule, error) {
	query := `
		SELECT id, course_id, title, sort_order, drip_release_at, drip_days_after, drip_after_module_id
		FROM course_modules
		WHERE course_id = ?
		ORDER BY sort_order, id
	`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		r.logger.Error("failed to query course modules", zap.Error(err), zap.Int("course_id", courseID))
		return nil, fmt.Errorf("failed to query course modules: %w", err)
	}
	defer rows.Close()

	var modules []models.CourseModule
	for rows.Next() {
		var module models.CourseModule
		var dripReleaseAt sql.NullTime
		var dripDaysAfter, dripAfterModuleID sql.NullInt64
		if err := rows.Scan(
			&module.ID,
			&module.CourseID,
			&module.Title,
			&module.Order,
			&dripReleaseAt,
			&dripDaysAfter,
			&dripAfterModuleID,
		); err != nil {
			r.logger.Error("failed to scan course module", zap.Error(err))
			return nil, fmt.Errorf("failed to scan course module: %w", err)
		}
		if dripReleaseAt.Valid {
			module.DripReleaseAt = &dripReleaseAt.Time
		}
		if dripDaysAfter.Valid {
			days := int(dripDaysAfter.Int64)
			module.DripDaysAfter = &days
		}
		if dripAfterModuleID.Valid {
			dep := int(dripAfterModuleID.Int64)
			module.DripAfterModuleID = &dep
		}
		modules = append(modules, module)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return modules, nil
}

// loadLessons retrieves every lesson of a course grouped by module ID
func (r *coursesRepository) loadLessons(ctx context.Context, courseID int) (map[int][]models.Lesson, error) {
	query := `
		SELECT l.id, l.module_id, l.slug, l.title, l.sort_order, l.is_preview, l.release_at, l.duration_minutes, l.video_url
		FROM lessons l
		JOIN course_modules m ON m.id = l.module_id
		WHERE m.course_id = ?
		ORDER BY l.sort_order, l.id
	`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		r.logger.Error("failed to query lessons", zap.Error(err), zap.Int("course_id", courseID))
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	lessons := make(map[int][]models.Lesson)
	for rows.Next() {
		var lesson models.Lesson
		var slug, videoURL sql.NullString
		var releaseAt sql.NullTime
		if err := rows.Scan(
			&lesson.ID,
			&lesson.ModuleID,
			&slug,
			&lesson.Title,
			&lesson.Order,
			&lesson.IsPreview,
			&releaseAt,
			&lesson.DurationMinutes,
			&videoURL,
		); err != nil {
			r.logger.Error("failed to scan lesson", zap.Error(err))
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lesson.Slug = slug.String
		lesson.VideoURL = videoURL.String
		if releaseAt.Valid {
			lesson.ReleaseAt = &releaseAt.Time
		}
		lessons[lesson.ModuleID] = append(lessons[lesson.ModuleID], lesson)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return lessons, nil
}
