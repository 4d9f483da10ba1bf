package services

import (
	"context"
	"sync"
	"time"

	"github.com/academyhq/backend/internal/models"
)

// fixedNow is the pinned clock used by all service tests
var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return fixedNow }

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(i int) *int              { return &i }
func boolPtr(b bool) *bool           { return &b }

// mockCourseRepository is a mock implementation of CourseRepository
type mockCourseRepository struct {
	course *models.Course
	err    error
}

func (m *mockCourseRepository) FindTreeByID(ctx context.Context, courseID int) (*models.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.course != nil && m.course.ID == courseID {
		return m.course, nil
	}
	return nil, nil
}

// mockLessonRepository is a mock implementation of LessonRepository
type mockLessonRepository struct {
	lessons map[int]*models.LessonWithCourse
	err     error
}

func (m *mockLessonRepository) FindByID(ctx context.Context, lessonID int) (*models.LessonWithCourse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.lessons[lessonID], nil
}

// mockCourseProgressRepository is a mock implementation of CourseProgressRepository
type mockCourseProgressRepository struct {
	progress  *models.CourseProgress
	getErr    error
	upsertErr error
	upserted  *models.CourseProgress
}

func (m *mockCourseProgressRepository) GetByUserAndCourse(ctx context.Context, userID, courseID int) (*models.CourseProgress, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.progress, nil
}

func (m *mockCourseProgressRepository) Upsert(ctx context.Context, progress *models.CourseProgress) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = progress
	return nil
}

// mockLessonProgressRepository is a mock implementation of LessonProgressRepository
type mockLessonProgressRepository struct {
	aggregate *models.LessonProgressAggregate
	recordErr error
	getErr    error
	lastTick  *models.LessonProgressTick
}

func (m *mockLessonProgressRepository) RecordTick(ctx context.Context, tick *models.LessonProgressTick) (*models.LessonProgressAggregate, error) {
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	m.lastTick = tick

	merged := &models.LessonProgressAggregate{
		UserID:     tick.UserID,
		LessonID:   tick.LessonID,
		PositionMs: tick.PositionMs,
		Percentage: tick.Percentage,
	}
	if m.aggregate != nil {
		if m.aggregate.PositionMs > merged.PositionMs {
			merged.PositionMs = m.aggregate.PositionMs
		}
		if m.aggregate.Percentage > merged.Percentage {
			merged.Percentage = m.aggregate.Percentage
		}
	}
	m.aggregate = merged
	return merged, nil
}

func (m *mockLessonProgressRepository) GetAggregate(ctx context.Context, userID, lessonID int) (*models.LessonProgressAggregate, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.aggregate, nil
}

// moderationUpdate records one UpdateModeration call
type moderationUpdate struct {
	id          int
	status      models.ModerationStatus
	pending     bool
	moderatorID int
}

// mockCommentRepository is a mock implementation of LessonCommentRepository
type mockCommentRepository struct {
	comments    map[int]*models.LessonComment
	byLesson    []models.LessonComment
	pendingPage []models.LessonComment
	createErr   error
	findErr     error
	listErr     error
	updateErr   error
	created     *models.LessonComment
	updates     []moderationUpdate
}

func (m *mockCommentRepository) Create(ctx context.Context, comment *models.LessonComment) error {
	if m.createErr != nil {
		return m.createErr
	}
	comment.ID = 1000
	m.created = comment
	return nil
}

func (m *mockCommentRepository) ListByLesson(ctx context.Context, lessonID int) ([]models.LessonComment, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.byLesson, nil
}

func (m *mockCommentRepository) ListPending(ctx context.Context, status models.ModerationStatus, page, pageSize int) ([]models.LessonComment, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.pendingPage, nil
}

func (m *mockCommentRepository) FindByID(ctx context.Context, commentID int) (*models.LessonComment, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.comments[commentID], nil
}

func (m *mockCommentRepository) UpdateModeration(ctx context.Context, commentID int, status models.ModerationStatus, pending bool, moderatorID int, moderatedAt time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, moderationUpdate{id: commentID, status: status, pending: pending, moderatorID: moderatorID})
	return nil
}

// mockReplyRepository is a mock implementation of LessonCommentReplyRepository.
// Cascade updates run concurrently, so recorded calls are guarded by a mutex.
type mockReplyRepository struct {
	mu         sync.Mutex
	replies    []models.LessonCommentReply
	statusPage []models.LessonCommentReply
	createErr  error
	findErr    error
	listErr    error
	updateErr  error
	created    *models.LessonCommentReply
	updates    []moderationUpdate
}

func (m *mockReplyRepository) Create(ctx context.Context, reply *models.LessonCommentReply) error {
	if m.createErr != nil {
		return m.createErr
	}
	reply.ID = 2000
	m.created = reply
	return nil
}

func (m *mockReplyRepository) ListByComments(ctx context.Context, commentIDs []int) ([]models.LessonCommentReply, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	wanted := make(map[int]bool, len(commentIDs))
	for _, id := range commentIDs {
		wanted[id] = true
	}
	var out []models.LessonCommentReply
	for _, reply := range m.replies {
		if wanted[reply.CommentID] {
			out = append(out, reply)
		}
	}
	return out, nil
}

func (m *mockReplyRepository) FindByID(ctx context.Context, replyID int) (*models.LessonCommentReply, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for i := range m.replies {
		if m.replies[i].ID == replyID {
			return &m.replies[i], nil
		}
	}
	return nil, nil
}

func (m *mockReplyRepository) UpdateModeration(ctx context.Context, replyID int, status models.ModerationStatus, pending bool, moderatorID int, moderatedAt time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, moderationUpdate{id: replyID, status: status, pending: pending, moderatorID: moderatorID})
	return nil
}

func (m *mockReplyRepository) ListByStatus(ctx context.Context, status models.ModerationStatus, page, pageSize int) ([]models.LessonCommentReply, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.statusPage, nil
}

// updatedReplies returns the statuses applied by cascades, keyed by reply ID
func (m *mockReplyRepository) updatedReplies() map[int]models.ModerationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]models.ModerationStatus, len(m.updates))
	for _, u := range m.updates {
		out[u.id] = u.status
	}
	return out
}

// mockUserRepository is a mock implementation of UserRepository
type mockUserRepository struct {
	users map[int]*models.User
	err   error
}

func (m *mockUserRepository) FindByID(ctx context.Context, userID int) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[userID], nil
}

// mockRatingRepository is a mock implementation of LessonRatingRepository
type mockRatingRepository struct {
	rating    *models.LessonRating
	summary   *models.LessonRatingSummary
	upsertErr error
	findErr   error
	deleteErr error
	upserted  *models.LessonRating
	deleted   bool
}

func (m *mockRatingRepository) Upsert(ctx context.Context, rating *models.LessonRating) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = rating
	return nil
}

func (m *mockRatingRepository) FindByUserAndLesson(ctx context.Context, userID, lessonID int) (*models.LessonRating, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.rating, nil
}

func (m *mockRatingRepository) GetSummary(ctx context.Context, lessonID int) (*models.LessonRatingSummary, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.summary, nil
}

func (m *mockRatingRepository) Delete(ctx context.Context, userID, lessonID int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = true
	return nil
}

// testCourse builds the canonical two-module test course: M1 (id 1, lessons
// 11, 12) with no drip rules and M2 (id 2, lessons 21, 22) gated on
// completing M1.
func testCourse() *models.Course {
	return &models.Course{
		ID:    1,
		Slug:  "intro",
		Title: "Intro Course",
		Modules: []models.CourseModule{
			{
				ID: 1, CourseID: 1, Title: "Module One", Order: 1,
				Lessons: []models.Lesson{
					{ID: 11, ModuleID: 1, Title: "Lesson 1.1", Order: 1, DurationMinutes: 10},
					{ID: 12, ModuleID: 1, Title: "Lesson 1.2", Order: 2, DurationMinutes: 15},
				},
			},
			{
				ID: 2, CourseID: 1, Title: "Module Two", Order: 2,
				DripAfterModuleID: intPtr(1),
				Lessons: []models.Lesson{
					{ID: 21, ModuleID: 2, Title: "Lesson 2.1", Order: 1, DurationMinutes: 20},
					{ID: 22, ModuleID: 2, Title: "Lesson 2.2", Order: 2, DurationMinutes: 25},
				},
			},
		},
	}
}

// testLessonRows builds the LessonWithCourse rows matching testCourse
func testLessonRows() map[int]*models.LessonWithCourse {
	lessons := make(map[int]*models.LessonWithCourse)
	for _, m := range testCourse().Modules {
		for _, l := range m.Lessons {
			lessons[l.ID] = &models.LessonWithCourse{
				Lesson:                l,
				CourseID:              1,
				IsCommentingEnabled:   true,
				IsCommentingModerated: false,
			}
		}
	}
	return lessons
}
