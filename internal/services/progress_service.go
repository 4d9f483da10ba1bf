package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/academyhq/backend/internal/access"
	"github.com/academyhq/backend/internal/apperrors"
	"github.com/academyhq/backend/internal/models"
	"go.uber.org/zap"
)

// CourseRepository defines methods for course tree data access
type CourseRepository interface {
	// FindTreeByID retrieves a course with its full module/lesson tree.
	//
	// Returns (nil, nil) when no course with the given ID exists.
	FindTreeByID(ctx context.Context, courseID int) (*models.Course, error)
}

// LessonRepository defines methods for lesson data access
type LessonRepository interface {
	// FindByID retrieves a lesson joined with its course ID and commenting
	// settings.
	//
	// Returns (nil, nil) when no lesson with the given ID exists.
	FindByID(ctx context.Context, lessonID int) (*models.LessonWithCourse, error)
}

// CourseProgressRepository defines methods for per-course progress data access
type CourseProgressRepository interface {
	// GetByUserAndCourse retrieves a user's progress record for a course.
	//
	// Returns (nil, nil) when the user has no progress record yet.
	GetByUserAndCourse(ctx context.Context, userID, courseID int) (*models.CourseProgress, error)
	// Upsert inserts or replaces a user's progress record for a course.
	Upsert(ctx context.Context, progress *models.CourseProgress) error
}

// LessonProgressRepository defines methods for playback tick data access
type LessonProgressRepository interface {
	// RecordTick appends a tick event and upserts the per-lesson aggregate,
	// keeping max(previous, new) for both position and percentage.
	//
	// Returns the merged aggregate.
	RecordTick(ctx context.Context, tick *models.LessonProgressTick) (*models.LessonProgressAggregate, error)
	// GetAggregate retrieves the playback aggregate for a user and lesson.
	//
	// Returns (nil, nil) when no tick was ever recorded.
	GetAggregate(ctx context.Context, userID, lessonID int) (*models.LessonProgressAggregate, error)
}

// completedSnapshotThreshold is the percentage at which a lesson counts as
// watched even without an explicit completion.
const completedSnapshotThreshold = 95

type progressService struct {
	courseRepo   CourseRepository
	lessonRepo   LessonRepository
	progressRepo CourseProgressRepository
	tickRepo     LessonProgressRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewProgressService creates a new progress service. The now function is the
// sole time source for every accessibility and percentage computation.
func NewProgressService(
	courseRepo CourseRepository,
	lessonRepo LessonRepository,
	progressRepo CourseProgressRepository,
	tickRepo LessonProgressRepository,
	logger *zap.Logger,
	now func() time.Time,
) *progressService {
	return &progressService{
		courseRepo:   courseRepo,
		lessonRepo:   lessonRepo,
		progressRepo: progressRepo,
		tickRepo:     tickRepo,
		logger:       logger,
		now:          now,
	}
}

// UpdateProgress marks a lesson completed for a user and recomputes the full
// course progress record. The completed set is filtered down to lessons that
// are accessible right now and re-sorted by accessible order, so the
// percentage can move in either direction when drip rules change.
func (s *progressService) UpdateProgress(ctx context.Context, userID, courseID, lessonID int) (*models.CourseProgress, error) {
	course, err := s.courseRepo.FindTreeByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course tree: %w", err)
	}
	if course == nil {
		return nil, apperrors.ErrCourseNotFound
	}

	lesson, module := access.FindLesson(course, lessonID)
	if lesson == nil {
		// Distinguish a lesson that exists elsewhere from one that does not
		// exist at all.
		other, err := s.lessonRepo.FindByID(ctx, lessonID)
		if err != nil {
			return nil, fmt.Errorf("failed to get lesson: %w", err)
		}
		if other == nil {
			return nil, apperrors.ErrLessonNotFound
		}
		return nil, apperrors.ErrLessonCourseMismatch
	}

	progress, err := s.progressRepo.GetByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course progress: %w", err)
	}
	if progress == nil {
		progress = &models.CourseProgress{UserID: userID, CourseID: courseID}
	}

	now := s.now()
	completed := access.CompletedSet(progress.CompletedLessonIDs)
	if !access.IsLessonAccessible(lesson, module, course, now, completed) {
		return nil, apperrors.ErrLessonLocked
	}

	completed[lessonID] = true
	order := access.CollectAccessibleLessonOrder(course, now, completed)

	ids := make([]int, 0, len(completed))
	for id := range completed {
		if _, ok := order[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return order[ids[i]] < order[ids[j]] })

	progress.CompletedLessonIDs = ids
	progress.Percentage = completionPercentage(len(ids), len(order))
	progress.LastLessonID = &lesson.ID

	if err := s.progressRepo.Upsert(ctx, progress); err != nil {
		s.logger.Error("failed to save course progress",
			zap.Int("user_id", userID),
			zap.Int("course_id", courseID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save course progress: %w", err)
	}

	return progress, nil
}

// SaveCourseProgress replaces a user's completed set wholesale. Requested IDs
// are first narrowed to lessons that exist in the course, then to lessons
// accessible under the caller's own claimed completed set. Evaluating
// accessibility against the request rather than the persisted record lets a
// caller replay completions made while a dependency module was still
// unlocked.
func (s *progressService) SaveCourseProgress(ctx context.Context, userID, courseID int, completedIDs []int, lastLessonID *int) (*models.CourseProgress, error) {
	course, err := s.courseRepo.FindTreeByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course tree: %w", err)
	}
	if course == nil {
		return nil, apperrors.ErrCourseNotFound
	}

	known := make([]int, 0, len(completedIDs))
	seen := make(map[int]bool, len(completedIDs))
	for _, id := range completedIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if lesson, _ := access.FindLesson(course, id); lesson != nil {
			known = append(known, id)
		}
	}

	now := s.now()
	order := access.CollectAccessibleLessonOrder(course, now, access.CompletedSet(known))

	ids := make([]int, 0, len(known))
	for _, id := range known {
		if _, ok := order[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return order[ids[i]] < order[ids[j]] })

	progress := &models.CourseProgress{
		UserID:             userID,
		CourseID:           courseID,
		CompletedLessonIDs: ids,
		Percentage:         completionPercentage(len(ids), len(order)),
	}

	if lastLessonID != nil && containsInt(ids, *lastLessonID) {
		progress.LastLessonID = lastLessonID
	} else if len(ids) > 0 {
		last := ids[len(ids)-1]
		progress.LastLessonID = &last
	}

	if err := s.progressRepo.Upsert(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to save course progress: %w", err)
	}

	return progress, nil
}

// RecordLessonProgressTick validates and clamps one playback report, then
// delegates the append and monotonic aggregate upsert to the tick store.
func (s *progressService) RecordLessonProgressTick(ctx context.Context, userID, lessonID int, req *models.RecordTickRequest) (*models.LessonProgressSnapshot, error) {
	lesson, err := s.lessonRepo.FindByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	if lesson == nil {
		return nil, apperrors.ErrLessonNotFound
	}
	if lesson.CourseID != req.CourseID {
		return nil, apperrors.ErrLessonCourseMismatch
	}

	course, err := s.courseRepo.FindTreeByID(ctx, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course tree: %w", err)
	}
	if course == nil {
		return nil, apperrors.ErrCourseNotFound
	}

	progress, err := s.progressRepo.GetByUserAndCourse(ctx, userID, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course progress: %w", err)
	}
	var completedIDs []int
	if progress != nil {
		completedIDs = progress.CompletedLessonIDs
	}

	now := s.now()
	completed := access.CompletedSet(completedIDs)
	treeLesson, module := access.FindLesson(course, lessonID)
	if treeLesson == nil {
		return nil, apperrors.ErrLessonCourseMismatch
	}
	if !access.IsLessonAccessible(treeLesson, module, course, now, completed) {
		return nil, apperrors.ErrLessonLocked
	}

	duration := lesson.DurationMinutes * 60_000
	duration = clampInt(duration, 0, models.MaxLessonDurationMs)
	if req.DurationMs != nil {
		caller := clampInt(*req.DurationMs, 0, models.MaxLessonDurationMs)
		if caller > duration {
			duration = caller
		}
	}

	position := req.PositionMs
	if duration > 0 {
		position = clampInt(position, 0, duration)
	} else {
		position = clampInt(position, 0, models.MaxLessonDurationMs)
	}

	percentage := 0
	if duration > 0 {
		percentage = clampInt(int(math.Round(float64(position)/float64(duration)*100)), 0, 100)
	}
	if req.Completed != nil && *req.Completed {
		percentage = 100
	}

	emittedAt := now
	if req.EmittedAt != nil {
		emittedAt = *req.EmittedAt
	}

	aggregate, err := s.tickRepo.RecordTick(ctx, &models.LessonProgressTick{
		UserID:     userID,
		LessonID:   lessonID,
		PositionMs: position,
		DurationMs: duration,
		Percentage: percentage,
		EmittedAt:  emittedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record progress tick: %w", err)
	}

	return &models.LessonProgressSnapshot{
		LessonID:   lessonID,
		PositionMs: aggregate.PositionMs,
		Percentage: aggregate.Percentage,
		Completed: (req.Completed != nil && *req.Completed) ||
			completed[lessonID] ||
			aggregate.Percentage >= completedSnapshotThreshold,
	}, nil
}

// GetLessonProgressSnapshot returns the playback state of one lesson. A user
// who never sent a tick gets a zero-valued snapshot, not an error.
func (s *progressService) GetLessonProgressSnapshot(ctx context.Context, userID, lessonID int) (*models.LessonProgressSnapshot, error) {
	lesson, err := s.lessonRepo.FindByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	if lesson == nil {
		return nil, apperrors.ErrLessonNotFound
	}

	aggregate, err := s.tickRepo.GetAggregate(ctx, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress aggregate: %w", err)
	}
	if aggregate == nil {
		aggregate = &models.LessonProgressAggregate{UserID: userID, LessonID: lessonID}
	}

	progress, err := s.progressRepo.GetByUserAndCourse(ctx, userID, lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course progress: %w", err)
	}
	completedSet := map[int]bool{}
	if progress != nil {
		completedSet = access.CompletedSet(progress.CompletedLessonIDs)
	}

	return &models.LessonProgressSnapshot{
		LessonID:   lessonID,
		PositionMs: aggregate.PositionMs,
		Percentage: aggregate.Percentage,
		Completed:  completedSet[lessonID] || aggregate.Percentage >= completedSnapshotThreshold,
	}, nil
}

// GetCourseProgress returns a user's course progress, zero-valued when no
// record exists yet
func (s *progressService) GetCourseProgress(ctx context.Context, userID, courseID int) (*models.CourseProgress, error) {
	course, err := s.courseRepo.FindTreeByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course tree: %w", err)
	}
	if course == nil {
		return nil, apperrors.ErrCourseNotFound
	}

	progress, err := s.progressRepo.GetByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course progress: %w", err)
	}
	if progress == nil {
		progress = &models.CourseProgress{UserID: userID, CourseID: courseID, CompletedLessonIDs: []int{}}
	}

	return progress, nil
}

// GetCourseOutline returns the course tree annotated with per-lesson access
// and completion flags for one user
func (s *progressService) GetCourseOutline(ctx context.Context, userID, courseID int) (*models.CourseOutline, error) {
	course, err := s.courseRepo.FindTreeByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course tree: %w", err)
	}
	if course == nil {
		return nil, apperrors.ErrCourseNotFound
	}

	progress, err := s.progressRepo.GetByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course progress: %w", err)
	}

	now := s.now()
	completed := map[int]bool{}
	percentage := 0
	if progress != nil {
		completed = access.CompletedSet(progress.CompletedLessonIDs)
		percentage = progress.Percentage
	}

	outline := &models.CourseOutline{
		Course: models.CourseOutlineCourse{
			ID:    course.ID,
			Slug:  course.Slug,
			Title: course.Title,
		},
		Percentage: percentage,
	}

	for i := range course.Modules {
		module := &course.Modules[i]
		outModule := models.OutlineModule{
			ID:         module.ID,
			Title:      module.Title,
			Order:      module.Order,
			Accessible: access.IsModuleAccessible(module, course, now, completed),
		}
		for j := range module.Lessons {
			lesson := &module.Lessons[j]
			outModule.Lessons = append(outModule.Lessons, models.OutlineLesson{
				ID:         lesson.ID,
				Title:      lesson.Title,
				Order:      lesson.Order,
				IsPreview:  lesson.IsPreview,
				Accessible: access.IsLessonAccessible(lesson, module, course, now, completed),
				Completed:  completed[lesson.ID],
			})
		}
		outline.Modules = append(outline.Modules, outModule)
	}

	return outline, nil
}

// completionPercentage computes round(min(100, completed/total*100)).
// An empty accessible set yields 0.
func completionPercentage(completedCount, totalAccessible int) int {
	if totalAccessible == 0 {
		return 0
	}
	pct := int(math.Round(float64(completedCount) / float64(totalAccessible) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func containsInt(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
