package models

import "time"

// ModerationItemType distinguishes comments from replies in the queue
type ModerationItemType string

const (
	ModerationItemTypeComment ModerationItemType = "comment"
	ModerationItemTypeReply   ModerationItemType = "reply"
)

// ModerationQueueItem represents one flattened entry of the moderation feed,
// enriched with lesson/course/user metadata
type ModerationQueueItem struct {
	Type              ModerationItemType `json:"type"`
	ID                int                `json:"id"`
	CommentID         int                `json:"commentId,omitempty"`
	Depth             int                `json:"depth"`
	Body              string             `json:"body"`
	ModerationStatus  ModerationStatus   `json:"moderationStatus"`
	PendingModeration bool               `json:"pendingModeration"`
	CreatedAt         time.Time          `json:"createdAt"`
	UserID            int                `json:"userId"`
	UserDisplayName   string             `json:"userDisplayName,omitempty"`
	LessonID          int                `json:"lessonId"`
	LessonTitle       string             `json:"lessonTitle,omitempty"`
	CourseID          int                `json:"courseId"`
	CourseTitle       string             `json:"courseTitle,omitempty"`
}
