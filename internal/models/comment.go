package models

import "time"

// ModerationStatus represents the moderation state of a comment or reply
type ModerationStatus string

const (
	ModerationStatusPending  ModerationStatus = "pending"
	ModerationStatusApproved ModerationStatus = "approved"
	ModerationStatusRejected ModerationStatus = "rejected"
)

// MaxReplyDepth is the maximum nesting depth of a reply under a comment,
// counting the top-level reply as depth 1.
const MaxReplyDepth = 3

// LessonComment represents a user comment on a lesson.
// Invariant: PendingModeration is true iff ModerationStatus is pending.
type LessonComment struct {
	ID                int                  `json:"id"`
	LessonID          int                  `json:"lessonId"`
	UserID            int                  `json:"userId"`
	Body              string               `json:"body"`
	BodyHTML          string               `json:"bodyHtml,omitempty"`
	PendingModeration bool                 `json:"pendingModeration"`
	ModerationStatus  ModerationStatus     `json:"moderationStatus"`
	ModeratedByID     *int                 `json:"moderatedById,omitempty"`
	ModeratedAt       *time.Time           `json:"moderatedAt,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	Replies           []LessonCommentReply `json:"replies"`
}

// LessonCommentReply represents a reply in the tree rooted at a comment.
// A nil ParentReplyID means the reply is a direct child of the comment.
type LessonCommentReply struct {
	ID                int                  `json:"id"`
	CommentID         int                  `json:"commentId"`
	ParentReplyID     *int                 `json:"parentReplyId,omitempty"`
	UserID            int                  `json:"userId"`
	Body              string               `json:"body"`
	BodyHTML          string               `json:"bodyHtml,omitempty"`
	PendingModeration bool                 `json:"pendingModeration"`
	ModerationStatus  ModerationStatus     `json:"moderationStatus"`
	ModeratedByID     *int                 `json:"moderatedById,omitempty"`
	ModeratedAt       *time.Time           `json:"moderatedAt,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	Replies           []LessonCommentReply `json:"replies"`
}

// AddCommentRequest represents a request to post a comment on a lesson
type AddCommentRequest struct {
	Body string `json:"body"`
}

// AddReplyRequest represents a request to post a reply under a comment
type AddReplyRequest struct {
	Body          string `json:"body"`
	ParentReplyID *int   `json:"parentReplyId,omitempty"`
}
