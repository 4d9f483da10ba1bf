package services

import (
	"context"
	"fmt"
	"time"

	"github.com/academyhq/backend/internal/access"
	"github.com/academyhq/backend/internal/apperrors"
	"github.com/academyhq/backend/internal/models"
)

// LessonRatingRepository defines methods for lesson rating data access
type LessonRatingRepository interface {
	// Upsert inserts or replaces a user's rating of a lesson.
	Upsert(ctx context.Context, rating *models.LessonRating) error
	// FindByUserAndLesson retrieves a user's rating, (nil, nil) when absent.
	FindByUserAndLesson(ctx context.Context, userID, lessonID int) (*models.LessonRating, error)
	// GetSummary retrieves the aggregate rating of a lesson.
	GetSummary(ctx context.Context, lessonID int) (*models.LessonRatingSummary, error)
	// Delete removes a user's rating of a lesson.
	Delete(ctx context.Context, userID, lessonID int) error
}

type ratingService struct {
	courseRepo   CourseRepository
	lessonRepo   LessonRepository
	progressRepo CourseProgressRepository
	ratingRepo   LessonRatingRepository
	now          func() time.Time
}

// NewRatingService creates a new lesson rating service
func NewRatingService(
	courseRepo CourseRepository,
	lessonRepo LessonRepository,
	progressRepo CourseProgressRepository,
	ratingRepo LessonRatingRepository,
	now func() time.Time,
) *ratingService {
	return &ratingService{
		courseRepo:   courseRepo,
		lessonRepo:   lessonRepo,
		progressRepo: progressRepo,
		ratingRepo:   ratingRepo,
		now:          now,
	}
}

// requireAccessibleLesson asserts the lesson exists and is unlocked for the
// user right now. Rating is access-gated exactly like commenting.
func (s *ratingService) requireAccessibleLesson(ctx context.Context, userID, lessonID int) error {
	lesson, err := s.lessonRepo.FindByID(ctx, lessonID)
	if err != nil {
		return fmt.Errorf("failed to get lesson: %w", err)
	}
	if lesson == nil {
		return apperrors.ErrLessonNotFound
	}

	course, err := s.courseRepo.FindTreeByID(ctx, lesson.CourseID)
	if err != nil {
		return fmt.Errorf("failed to get course tree: %w", err)
	}
	if course == nil {
		return apperrors.ErrCourseNotFound
	}

	progress, err := s.progressRepo.GetByUserAndCourse(ctx, userID, lesson.CourseID)
	if err != nil {
		return fmt.Errorf("failed to get course progress: %w", err)
	}
	completed := map[int]bool{}
	if progress != nil {
		completed = access.CompletedSet(progress.CompletedLessonIDs)
	}

	treeLesson, module := access.FindLesson(course, lessonID)
	if treeLesson == nil {
		return apperrors.ErrLessonNotFound
	}
	if !access.IsLessonAccessible(treeLesson, module, course, s.now(), completed) {
		return apperrors.ErrLessonLocked
	}

	return nil
}

// RateLesson records or replaces a user's rating of a lesson
func (s *ratingService) RateLesson(ctx context.Context, userID, lessonID, rating int) (*models.LessonRating, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.ErrRatingInvalid
	}
	if err := s.requireAccessibleLesson(ctx, userID, lessonID); err != nil {
		return nil, err
	}

	record := &models.LessonRating{
		UserID:    userID,
		LessonID:  lessonID,
		Rating:    rating,
		CreatedAt: s.now(),
	}
	if err := s.ratingRepo.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}

	return record, nil
}

// GetRating returns a user's rating of a lesson, nil when none exists
func (s *ratingService) GetRating(ctx context.Context, userID, lessonID int) (*models.LessonRating, error) {
	rating, err := s.ratingRepo.FindByUserAndLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return rating, nil
}

// GetRatingSummary returns the aggregate rating of a lesson
func (s *ratingService) GetRatingSummary(ctx context.Context, lessonID int) (*models.LessonRatingSummary, error) {
	summary, err := s.ratingRepo.GetSummary(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rating summary: %w", err)
	}
	if summary == nil {
		summary = &models.LessonRatingSummary{LessonID: lessonID}
	}
	return summary, nil
}

// DeleteRating removes a user's rating of a lesson
func (s *ratingService) DeleteRating(ctx context.Context, userID, lessonID int) error {
	if err := s.requireAccessibleLesson(ctx, userID, lessonID); err != nil {
		return err
	}
	if err := s.ratingRepo.Delete(ctx, userID, lessonID); err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	return nil
}
