package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/academyhq/backend/internal/models"
	"go.uber.org/zap"
)

type lessonCommentRepliesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLessonCommentRepliesRepository creates a new instance of the LessonCommentReplyRepository interface
func NewLessonCommentRepliesRepository(db *sql.DB, logger *zap.Logger) *lessonCommentRepliesRepository {
	return &lessonCommentRepliesRepository{
		db:     db,
		logger: logger,
	}
}

const replyColumns = `id, comment_id, parent_reply_id, user_id, body, pending_moderation, moderation_status, moderated_by_id, moderated_at, created_at`

// Create inserts a reply and fills in its generated ID
func (r *lessonCommentRepliesRepository) Create(ctx context.Context, reply *models.LessonCommentReply) error {
	query := `
		INSERT INTO lesson_comment_replies (comment_id, parent_reply_id, user_id, body, pending_moderation, moderation_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var parentReplyID sql.NullInt64
	if reply.ParentReplyID != nil {
		parentReplyID = sql.NullInt64{Int64: int64(*reply.ParentReplyID), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		reply.CommentID,
		parentReplyID,
		reply.UserID,
		reply.Body,
		reply.PendingModeration,
		reply.ModerationStatus,
		reply.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert reply", zap.Error(err), zap.Int("comment_id", reply.CommentID))
		return fmt.Errorf("failed to insert reply: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted reply id: %w", err)
	}
	reply.ID = int(id)

	return nil
}

// ListByComments retrieves the flat reply lists of the given comments, oldest
// first. The IN clause is built from placeholders, one per comment ID.
func (r *lessonCommentRepliesRepository) ListByComments(ctx context.Context, commentIDs []int) ([]models.LessonCommentReply, error) {
	if len(commentIDs) == 0 {
		return []models.LessonCommentReply{}, nil
	}

	placeholders := make([]string, len(commentIDs))
	args := make([]interface{}, len(commentIDs))
	for i, id := range commentIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM lesson_comment_replies
		WHERE comment_id IN (%s)
		ORDER BY created_at, id
	`, replyColumns, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query replies", zap.Error(err))
		return nil, fmt.Errorf("failed to query replies: %w", err)
	}
	defer rows.Close()

	return scanReplies(rows)
}

// FindByID retrieves a reply by ID, (nil, nil) when absent
func (r *lessonCommentRepliesRepository) FindByID(ctx context.Context, replyID int) (*models.LessonCommentReply, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lesson_comment_replies
		WHERE id = ?
	`, replyColumns)

	var reply models.LessonCommentReply
	var parentReplyID, moderatedByID sql.NullInt64
	var moderatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, replyID).Scan(
		&reply.ID,
		&reply.CommentID,
		&parentReplyID,
		&reply.UserID,
		&reply.Body,
		&reply.PendingModeration,
		&reply.ModerationStatus,
		&moderatedByID,
		&moderatedAt,
		&reply.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("failed to query reply", zap.Error(err), zap.Int("reply_id", replyID))
		return nil, fmt.Errorf("failed to query reply: %w", err)
	}
	applyReplyNullables(&reply, parentReplyID, moderatedByID, moderatedAt)

	return &reply, nil
}

// UpdateModeration sets the moderation state of a reply
func (r *lessonCommentRepliesRepository) UpdateModeration(ctx context.Context, replyID int, status models.ModerationStatus, pending bool, moderatorID int, moderatedAt time.Time) error {
	query := `
		UPDATE lesson_comment_replies
		SET moderation_status = ?, pending_moderation = ?, moderated_by_id = ?, moderated_at = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, status, pending, moderatorID, moderatedAt, replyID); err != nil {
		r.logger.Error("failed to update reply moderation", zap.Error(err), zap.Int("reply_id", replyID))
		return fmt.Errorf("failed to update reply moderation: %w", err)
	}

	return nil
}

// ListByStatus retrieves one page of replies in the given moderation state,
// oldest first
func (r *lessonCommentRepliesRepository) ListByStatus(ctx context.Context, status models.ModerationStatus, page, pageSize int) ([]models.LessonCommentReply, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lesson_comment_replies
		WHERE moderation_status = ?
		ORDER BY created_at, id
		LIMIT ? OFFSET ?
	`, replyColumns)

	rows, err := r.db.QueryContext(ctx, query, status, pageSize, (page-1)*pageSize)
	if err != nil {
		r.logger.Error("failed to query replies by status", zap.Error(err), zap.String("status", string(status)))
		return nil, fmt.Errorf("failed to query replies: %w", err)
	}
	defer rows.Close()

	return scanReplies(rows)
}

// scanReplies reads reply rows in replyColumns order
func scanReplies(rows *sql.Rows) ([]models.LessonCommentReply, error) {
	var replies []models.LessonCommentReply
	for rows.Next() {
		var reply models.LessonCommentReply
		var parentReplyID, moderatedByID sql.NullInt64
		var moderatedAt sql.NullTime
		if err := rows.Scan(
			&reply.ID,
			&reply.CommentID,
			&parentReplyID,
			&reply.UserID,
			&reply.Body,
			&reply.PendingModeration,
			&reply.ModerationStatus,
			&moderatedByID,
			&moderatedAt,
			&reply.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		applyReplyNullables(&reply, parentReplyID, moderatedByID, moderatedAt)
		replies = append(replies, reply)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return replies, nil
}

func applyReplyNullables(reply *models.LessonCommentReply, parentReplyID, moderatedByID sql.NullInt64, moderatedAt sql.NullTime) {
	if parentReplyID.Valid {
		id := int(parentReplyID.Int64)
		reply.ParentReplyID = &id
	}
	if moderatedByID.Valid {
		id := int(moderatedByID.Int64)
		reply.ModeratedByID = &id
	}
	if moderatedAt.Valid {
		reply.ModeratedAt = &moderatedAt.Time
	}
}
