package models

import "time"

// MaxLessonDurationMs is the safety ceiling for any reported or declared
// lesson duration (6 hours).
const MaxLessonDurationMs = 21_600_000

// CourseProgress represents a user's completion state for one course.
// Percentage is derived from the currently accessible lesson set on every
// write; it is never incremented in place.
type CourseProgress struct {
	UserID             int   `json:"userId"`
	CourseID           int   `json:"courseId"`
	CompletedLessonIDs []int `json:"completedLessonIds"`
	Percentage         int   `json:"percentage"`
	LastLessonID       *int  `json:"lastLessonId,omitempty"`
}

// LessonProgressTick represents one playback progress report for a lesson
type LessonProgressTick struct {
	UserID     int       `json:"userId"`
	LessonID   int       `json:"lessonId"`
	PositionMs int       `json:"positionMs"`
	DurationMs int       `json:"durationMs"`
	Percentage int       `json:"percentage"`
	EmittedAt  time.Time `json:"emittedAt"`
}

// LessonProgressAggregate represents the persisted per-lesson playback
// aggregate. Position and percentage are monotonic: the store keeps the max
// of the previous and incoming values.
type LessonProgressAggregate struct {
	UserID     int `json:"userId"`
	LessonID   int `json:"lessonId"`
	PositionMs int `json:"positionMs"`
	Percentage int `json:"percentage"`
}

// LessonProgressSnapshot represents the merged playback state returned to
// callers after a tick or on read
type LessonProgressSnapshot struct {
	LessonID   int  `json:"lessonId"`
	PositionMs int  `json:"positionMs"`
	Percentage int  `json:"percentage"`
	Completed  bool `json:"completed"`
}

// SaveCourseProgressRequest represents a bulk progress save request
type SaveCourseProgressRequest struct {
	CompletedLessonIDs []int `json:"completedLessonIds"`
	LastLessonID       *int  `json:"lastLessonId,omitempty"`
}

// RecordTickRequest represents a playback tick report
type RecordTickRequest struct {
	CourseID   int        `json:"courseId"`
	PositionMs int        `json:"positionMs"`
	DurationMs *int       `json:"durationMs,omitempty"`
	Completed  *bool      `json:"completed,omitempty"`
	EmittedAt  *time.Time `json:"emittedAt,omitempty"`
}
