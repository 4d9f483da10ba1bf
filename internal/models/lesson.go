package models

import "time"

// Lesson represents a lesson in a course module
type Lesson struct {
	ID              int        `json:"id"`
	ModuleID        int        `json:"moduleId"`
	Slug            string     `json:"slug,omitempty"`
	Title           string     `json:"title"`
	Order           int        `json:"order"`
	IsPreview       bool       `json:"isPreview"`
	ReleaseAt       *time.Time `json:"releaseAt,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	VideoURL        string     `json:"videoUrl,omitempty"`
}

// LessonWithCourse represents a lesson joined with the settings needed to
// re-derive its course and commenting context
type LessonWithCourse struct {
	Lesson
	CourseID              int  `json:"courseId"`
	IsCommentingEnabled   bool `json:"isCommentingEnabled"`
	IsCommentingModerated bool `json:"isCommentingModerated"`
}
