package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/academyhq/backend/internal/models"
	"go.uber.org/zap"
)

// UserRepository defines methods for user data access
type UserRepository interface {
	// FindByID retrieves a user for display-name enrichment, (nil, nil)
	// when absent.
	FindByID(ctx context.Context, userID int) (*models.User, error)
}

type moderationService struct {
	commentRepo LessonCommentRepository
	replyRepo   LessonCommentReplyRepository
	lessonRepo  LessonRepository
	courseRepo  CourseRepository
	userRepo    UserRepository
	logger      *zap.Logger
}

// NewModerationService creates a new moderation queue service
func NewModerationService(
	commentRepo LessonCommentRepository,
	replyRepo LessonCommentReplyRepository,
	lessonRepo LessonRepository,
	courseRepo CourseRepository,
	userRepo UserRepository,
	logger *zap.Logger,
) *moderationService {
	return &moderationService{
		commentRepo: commentRepo,
		replyRepo:   replyRepo,
		lessonRepo:  lessonRepo,
		courseRepo:  courseRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

// queueLookups caches metadata lookups for the duration of one queue read
type queueLookups struct {
	lessons  map[int]*models.LessonWithCourse
	courses  map[int]*models.Course
	users    map[int]*models.User
	comments map[int]*models.LessonComment
	replies  map[int][]models.LessonCommentReply
}

// ListPendingModerationItems returns one page of the flattened moderation
// feed: a page of comments and a page of replies matching the status, each
// enriched with lesson/course/user metadata and sorted by creation time.
//
// Pagination is applied per sub-query, not globally, so a page can hold up to
// 2*pageSize items. Replies whose owning comment is missing are skipped with
// a warning instead of failing the whole read.
func (s *moderationService) ListPendingModerationItems(ctx context.Context, status models.ModerationStatus, page, pageSize int) ([]models.ModerationQueueItem, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	comments, err := s.commentRepo.ListPending(ctx, status, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for moderation: %w", err)
	}

	replies, err := s.replyRepo.ListByStatus(ctx, status, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies for moderation: %w", err)
	}

	lookups := &queueLookups{
		lessons:  make(map[int]*models.LessonWithCourse),
		courses:  make(map[int]*models.Course),
		users:    make(map[int]*models.User),
		comments: make(map[int]*models.LessonComment),
		replies:  make(map[int][]models.LessonCommentReply),
	}

	items := make([]models.ModerationQueueItem, 0, len(comments)+len(replies))

	for i := range comments {
		comment := &comments[i]
		item := models.ModerationQueueItem{
			Type:              models.ModerationItemTypeComment,
			ID:                comment.ID,
			Depth:             0,
			Body:              comment.Body,
			ModerationStatus:  comment.ModerationStatus,
			PendingModeration: comment.PendingModeration,
			CreatedAt:         comment.CreatedAt,
			UserID:            comment.UserID,
			LessonID:          comment.LessonID,
		}
		s.enrich(ctx, &item, lookups)
		items = append(items, item)
	}

	for i := range replies {
		reply := &replies[i]

		comment, err := s.lookupComment(ctx, reply.CommentID, lookups)
		if err != nil {
			return nil, err
		}
		if comment == nil {
			s.logger.Warn("skipping orphan reply in moderation queue",
				zap.Int("reply_id", reply.ID),
				zap.Int("comment_id", reply.CommentID))
			continue
		}

		depth, err := s.lookupReplyDepth(ctx, reply, lookups)
		if err != nil {
			return nil, err
		}

		item := models.ModerationQueueItem{
			Type:              models.ModerationItemTypeReply,
			ID:                reply.ID,
			CommentID:         reply.CommentID,
			Depth:             depth,
			Body:              reply.Body,
			ModerationStatus:  reply.ModerationStatus,
			PendingModeration: reply.PendingModeration,
			CreatedAt:         reply.CreatedAt,
			UserID:            reply.UserID,
			LessonID:          comment.LessonID,
		}
		s.enrich(ctx, &item, lookups)
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	return items, nil
}

// enrich fills lesson, course and user metadata on one queue item, tolerating
// missing rows: enrichment is best-effort and never fails a queue read.
func (s *moderationService) enrich(ctx context.Context, item *models.ModerationQueueItem, lookups *queueLookups) {
	lesson, ok := lookups.lessons[item.LessonID]
	if !ok {
		var err error
		lesson, err = s.lessonRepo.FindByID(ctx, item.LessonID)
		if err != nil {
			s.logger.Warn("failed to resolve lesson for moderation item",
				zap.Int("lesson_id", item.LessonID), zap.Error(err))
		}
		lookups.lessons[item.LessonID] = lesson
	}
	if lesson != nil {
		item.LessonTitle = lesson.Title
		item.CourseID = lesson.CourseID

		course, ok := lookups.courses[lesson.CourseID]
		if !ok {
			var err error
			course, err = s.courseRepo.FindTreeByID(ctx, lesson.CourseID)
			if err != nil {
				s.logger.Warn("failed to resolve course for moderation item",
					zap.Int("course_id", lesson.CourseID), zap.Error(err))
			}
			lookups.courses[lesson.CourseID] = course
		}
		if course != nil {
			item.CourseTitle = course.Title
		}
	}

	user, ok := lookups.users[item.UserID]
	if !ok {
		var err error
		user, err = s.userRepo.FindByID(ctx, item.UserID)
		if err != nil {
			s.logger.Warn("failed to resolve user for moderation item",
				zap.Int("user_id", item.UserID), zap.Error(err))
		}
		lookups.users[item.UserID] = user
	}
	if user != nil {
		item.UserDisplayName = user.DisplayName
	}
}

// lookupComment resolves a comment once per queue read
func (s *moderationService) lookupComment(ctx context.Context, commentID int, lookups *queueLookups) (*models.LessonComment, error) {
	if comment, ok := lookups.comments[commentID]; ok {
		return comment, nil
	}
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	lookups.comments[commentID] = comment
	return comment, nil
}

// lookupReplyDepth computes a reply's nesting depth from the owning comment's
// full flat reply list, fetched once per comment per queue read
func (s *moderationService) lookupReplyDepth(ctx context.Context, reply *models.LessonCommentReply, lookups *queueLookups) (int, error) {
	siblings, ok := lookups.replies[reply.CommentID]
	if !ok {
		var err error
		siblings, err = s.replyRepo.ListByComments(ctx, []int{reply.CommentID})
		if err != nil {
			return 0, fmt.Errorf("failed to list replies: %w", err)
		}
		lookups.replies[reply.CommentID] = siblings
	}

	byID := make(map[int]*models.LessonCommentReply, len(siblings))
	for i := range siblings {
		byID[siblings[i].ID] = &siblings[i]
	}
	return replyDepth(reply, byID), nil
}
