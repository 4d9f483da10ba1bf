package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/academyhq/backend/internal/models"
	"go.uber.org/zap"
)

type lessonCommentsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLessonCommentsRepository creates a new instance of the LessonCommentRepository interface
func NewLessonCommentsRepository(db *sql.DB, logger *zap.Logger) *lessonCommentsRepository {
	return &lessonCommentsRepository{
		db:     db,
		logger: logger,
	}
}

const commentColumns = `id, lesson_id, user_id, body, pending_moderation, moderation_status, moderated_by_id, moderated_at, created_at`

// Create inserts a comment and fills in its generated ID
func (r *lessonCommentsRepository) Create(ctx context.Context, comment *models.LessonComment) error {
	query := `
		INSERT INTO lesson_comments (lesson_id, user_id, body, pending_moderation, moderation_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		comment.LessonID,
		comment.UserID,
		comment.Body,
		comment.PendingModeration,
		comment.ModerationStatus,
		comment.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert comment", zap.Error(err), zap.Int("lesson_id", comment.LessonID))
		return fmt.Errorf("failed to insert comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted comment id: %w", err)
	}
	comment.ID = int(id)

	return nil
}

// ListByLesson retrieves all comments of a lesson, oldest first
func (r *lessonCommentsRepository) ListByLesson(ctx context.Context, lessonID int) ([]models.LessonComment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lesson_comments
		WHERE lesson_id = ?
		ORDER BY created_at, id
	`, commentColumns)

	rows, err := r.db.QueryContext(ctx, query, lessonID)
	if err != nil {
		r.logger.Error("failed to query comments", zap.Error(err), zap.Int("lesson_id", lessonID))
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	return scanComments(rows)
}

// ListPending retrieves one page of comments in the given moderation state,
// oldest first
func (r *lessonCommentsRepository) ListPending(ctx context.Context, status models.ModerationStatus, page, pageSize int) ([]models.LessonComment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lesson_comments
		WHERE moderation_status = ?
		ORDER BY created_at, id
		LIMIT ? OFFSET ?
	`, commentColumns)

	rows, err := r.db.QueryContext(ctx, query, status, pageSize, (page-1)*pageSize)
	if err != nil {
		r.logger.Error("failed to query comments by status", zap.Error(err), zap.String("status", string(status)))
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	return scanComments(rows)
}

// FindByID retrieves a comment by ID, (nil, nil) when absent
func (r *lessonCommentsRepository) FindByID(ctx context.Context, commentID int) (*models.LessonComment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lesson_comments
		WHERE id = ?
	`, commentColumns)

	var comment models.LessonComment
	var moderatedByID sql.NullInt64
	var moderatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, commentID).Scan(
		&comment.ID,
		&comment.LessonID,
		&comment.UserID,
		&comment.Body,
		&comment.PendingModeration,
		&comment.ModerationStatus,
		&moderatedByID,
		&moderatedAt,
		&comment.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("failed to query comment", zap.Error(err), zap.Int("comment_id", commentID))
		return nil, fmt.Errorf("failed to query comment: %w", err)
	}
	applyCommentModeration(&comment, moderatedByID, moderatedAt)

	return &comment, nil
}

// UpdateModeration sets the moderation state of a comment
func (r *lessonCommentsRepository) UpdateModeration(ctx context.Context, commentID int, status models.ModerationStatus, pending bool, moderatorID int, moderatedAt time.Time) error {
	query := `
		UPDATE lesson_comments
		SET moderation_status = ?, pending_moderation = ?, moderated_by_id = ?, moderated_at = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, status, pending, moderatorID, moderatedAt, commentID); err != nil {
		r.logger.Error("failed to update comment moderation", zap.Error(err), zap.Int("comment_id", commentID))
		return fmt.Errorf("failed to update comment moderation: %w", err)
	}

	return nil
}

// scanComments reads comment rows in commentColumns order
func scanComments(rows *sql.Rows) ([]models.LessonComment, error) {
	var comments []models.LessonComment
	for rows.Next() {
		var comment models.LessonComment
		var moderatedByID sql.NullInt64
		var moderatedAt sql.NullTime
		if err := rows.Scan(
			&comment.ID,
			&comment.LessonID,
			&comment.UserID,
			&comment.Body,
			&comment.PendingModeration,
			&comment.ModerationStatus,
			&moderatedByID,
			&moderatedAt,
			&comment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		applyCommentModeration(&comment, moderatedByID, moderatedAt)
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return comments, nil
}

func applyCommentModeration(comment *models.LessonComment, moderatedByID sql.NullInt64, moderatedAt sql.NullTime) {
	if moderatedByID.Valid {
		id := int(moderatedByID.Int64)
		comment.ModeratedByID = &id
	}
	if moderatedAt.Valid {
		comment.ModeratedAt = &moderatedAt.Time
	}
}
