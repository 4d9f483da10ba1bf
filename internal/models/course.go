package models

import "time"

// Course represents a course with its full module/lesson tree
type Course struct {
	ID           int            `json:"id"`
	Slug         string         `json:"slug"`
	Title        string         `json:"title"`
	ShortSummary string         `json:"shortSummary,omitempty"`
	ReleaseAt    *time.Time     `json:"releaseAt,omitempty"`
	Modules      []CourseModule `json:"modules"`
}

// CourseModule represents an ordered group of lessons inside a course.
//
// Drip fields gate when the module unlocks: DripReleaseAt is an absolute
// instant, DripDaysAfter is an offset in days from a reference instant, and
// DripAfterModuleID requires every lesson of the referenced module to be
// completed first. All set rules must pass independently.
type CourseModule struct {
	ID                int        `json:"id"`
	CourseID          int        `json:"courseId"`
	Title             string     `json:"title"`
	Order             int        `json:"order"`
	DripReleaseAt     *time.Time `json:"dripReleaseAt,omitempty"`
	DripDaysAfter     *int       `json:"dripDaysAfter,omitempty"`
	DripAfterModuleID *int       `json:"dripAfterModuleId,omitempty"`
	Lessons           []Lesson   `json:"lessons"`
}

// CourseOutline represents a course tree annotated with per-lesson access
// and completion state for one user
type CourseOutline struct {
	Course     CourseOutlineCourse `json:"course"`
	Modules    []OutlineModule     `json:"modules"`
	Percentage int                 `json:"percentage"`
}

// CourseOutlineCourse represents course metadata in an outline response
type CourseOutlineCourse struct {
	ID    int    `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// OutlineModule represents a module in an outline response
type OutlineModule struct {
	ID         int             `json:"id"`
	Title      string          `json:"title"`
	Order      int             `json:"order"`
	Accessible bool            `json:"accessible"`
	Lessons    []OutlineLesson `json:"lessons"`
}

// OutlineLesson represents a lesson in an outline response
type OutlineLesson struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Order      int    `json:"order"`
	IsPreview  bool   `json:"isPreview"`
	Accessible bool   `json:"accessible"`
	Completed  bool   `json:"completed"`
}
