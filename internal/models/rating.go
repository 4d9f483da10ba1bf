package models

import "time"

// LessonRating represents one user's rating of a lesson
type LessonRating struct {
	UserID    int       `json:"userId"`
	LessonID  int       `json:"lessonId"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// LessonRatingSummary represents the aggregate rating of a lesson
type LessonRatingSummary struct {
	LessonID int     `json:"lessonId"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}

// RateLessonRequest represents a request to rate a lesson
type RateLessonRequest struct {
	Rating int `json:"rating"`
}
