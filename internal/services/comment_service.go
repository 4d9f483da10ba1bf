package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/academyhq/backend/internal/access"
	"github.com/academyhq/backend/internal/apperrors"
	"github.com/academyhq/backend/internal/markdown"
	"github.com/academyhq/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LessonCommentRepository defines methods for lesson comment data access
type LessonCommentRepository interface {
	// Create inserts a comment and fills in its ID and CreatedAt.
	Create(ctx context.Context, comment *models.LessonComment) error
	// ListByLesson retrieves all comments of a lesson, oldest first.
	ListByLesson(ctx context.Context, lessonID int) ([]models.LessonComment, error)
	// ListPending retrieves one page of comments in the given moderation
	// state, oldest first.
	ListPending(ctx context.Context, status models.ModerationStatus, page, pageSize int) ([]models.LessonComment, error)
	// FindByID retrieves a comment by ID, (nil, nil) when absent.
	FindByID(ctx context.Context, commentID int) (*models.LessonComment, error)
	// UpdateModeration sets the moderation state of a comment.
	UpdateModeration(ctx context.Context, commentID int, status models.ModerationStatus, pending bool, moderatorID int, moderatedAt time.Time) error
}

// LessonCommentReplyRepository defines methods for comment reply data access
type LessonCommentReplyRepository interface {
	// Create inserts a reply and fills in its ID and CreatedAt.
	Create(ctx context.Context, reply *models.LessonCommentReply) error
	// ListByComments retrieves the flat reply lists of the given comments,
	// oldest first.
	ListByComments(ctx context.Context, commentIDs []int) ([]models.LessonCommentReply, error)
	// FindByID retrieves a reply by ID, (nil, nil) when absent.
	FindByID(ctx context.Context, replyID int) (*models.LessonCommentReply, error)
	// UpdateModeration sets the moderation state of a reply.
	UpdateModeration(ctx context.Context, replyID int, status models.ModerationStatus, pending bool, moderatorID int, moderatedAt time.Time) error
	// ListByStatus retrieves one page of replies in the given moderation
	// state, oldest first.
	ListByStatus(ctx context.Context, status models.ModerationStatus, page, pageSize int) ([]models.LessonCommentReply, error)
}

type commentService struct {
	courseRepo   CourseRepository
	lessonRepo   LessonRepository
	progressRepo CourseProgressRepository
	commentRepo  LessonCommentRepository
	replyRepo    LessonCommentReplyRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewCommentService creates a new comment moderation service
func NewCommentService(
	courseRepo CourseRepository,
	lessonRepo LessonRepository,
	progressRepo CourseProgressRepository,
	commentRepo LessonCommentRepository,
	replyRepo LessonCommentReplyRepository,
	logger *zap.Logger,
	now func() time.Time,
) *commentService {
	return &commentService{
		courseRepo:   courseRepo,
		lessonRepo:   lessonRepo,
		progressRepo: progressRepo,
		commentRepo:  commentRepo,
		replyRepo:    replyRepo,
		logger:       logger,
		now:          now,
	}
}

// requireCommentableLesson loads a lesson and asserts the user may comment on
// it: the lesson must be accessible right now and commenting must be enabled.
func (s *commentService) requireCommentableLesson(ctx context.Context, userID, lessonID int) (*models.LessonWithCourse, error) {
	lesson, err := s.lessonRepo.FindByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	if lesson == nil {
		return nil, apperrors.ErrLessonNotFound
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
	completed := map[int]bool{}
	if progress != nil {
		completed = access.CompletedSet(progress.CompletedLessonIDs)
	}

	treeLesson, module := access.FindLesson(course, lessonID)
	if treeLesson == nil {
		return nil, apperrors.ErrLessonNotFound
	}
	if !access.IsLessonAccessible(treeLesson, module, course, s.now(), completed) {
		return nil, apperrors.ErrLessonLocked
	}
	if !lesson.IsCommentingEnabled {
		return nil, apperrors.ErrCommentsDisabled
	}

	return lesson, nil
}

// AddComment posts a new comment on a lesson. The comment starts pending iff
// the lesson requires moderation, otherwise it is approved immediately.
func (s *commentService) AddComment(ctx context.Context, userID, lessonID int, body string) (*models.LessonComment, error) {
	lesson, err := s.requireCommentableLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}

	status := models.ModerationStatusApproved
	if lesson.IsCommentingModerated {
		status = models.ModerationStatusPending
	}

	comment := &models.LessonComment{
		LessonID:          lessonID,
		UserID:            userID,
		Body:              body,
		PendingModeration: lesson.IsCommentingModerated,
		ModerationStatus:  status,
		CreatedAt:         s.now(),
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return comment, nil
}

// AddReply posts a reply under a comment, optionally nested under another
// reply. Replying under a rejected comment or reply is refused, and the new
// reply may not exceed the maximum nesting depth. A reply inherits pending
// state from the comment and its parent reply.
func (s *commentService) AddReply(ctx context.Context, userID, commentID int, body string, parentReplyID *int) (*models.LessonCommentReply, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	if comment == nil {
		return nil, apperrors.ErrCommentNotFound
	}

	if _, err := s.requireCommentableLesson(ctx, userID, comment.LessonID); err != nil {
		return nil, err
	}

	if comment.ModerationStatus == models.ModerationStatusRejected {
		return nil, apperrors.ErrCommentRejected
	}

	var parent *models.LessonCommentReply
	if parentReplyID != nil {
		replies, err := s.replyRepo.ListByComments(ctx, []int{commentID})
		if err != nil {
			return nil, fmt.Errorf("failed to list replies: %w", err)
		}
		byID := make(map[int]*models.LessonCommentReply, len(replies))
		for i := range replies {
			byID[replies[i].ID] = &replies[i]
		}

		parent = byID[*parentReplyID]
		if parent == nil || parent.CommentID != commentID {
			return nil, apperrors.ErrReplyParentNotFound
		}
		if parent.ModerationStatus == models.ModerationStatusRejected {
			return nil, apperrors.ErrReplyRejected
		}
		if replyDepth(parent, byID) >= models.MaxReplyDepth {
			return nil, apperrors.ErrReplyDepthExceeded
		}
	}

	pending := comment.PendingModeration ||
		comment.ModerationStatus != models.ModerationStatusApproved ||
		(parent != nil && parent.PendingModeration)

	status := models.ModerationStatusApproved
	if pending {
		status = models.ModerationStatusPending
	}

	reply := &models.LessonCommentReply{
		CommentID:         commentID,
		ParentReplyID:     parentReplyID,
		UserID:            userID,
		Body:              body,
		PendingModeration: pending,
		ModerationStatus:  status,
		CreatedAt:         s.now(),
	}

	if err := s.replyRepo.Create(ctx, reply); err != nil {
		return nil, fmt.Errorf("failed to create reply: %w", err)
	}

	return reply, nil
}

// ListLessonComments returns all comments of a lesson with their bounded
// reply trees attached and bodies rendered to sanitized HTML.
func (s *commentService) ListLessonComments(ctx context.Context, userID, lessonID int) ([]models.LessonComment, error) {
	if _, err := s.requireCommentableLesson(ctx, userID, lessonID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	if len(comments) == 0 {
		return []models.LessonComment{}, nil
	}

	ids := make([]int, 0, len(comments))
	for i := range comments {
		ids = append(ids, comments[i].ID)
	}

	replies, err := s.replyRepo.ListByComments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}

	byComment := make(map[int][]models.LessonCommentReply)
	for _, reply := range replies {
		byComment[reply.CommentID] = append(byComment[reply.CommentID], reply)
	}

	for i := range comments {
		comments[i].BodyHTML = markdown.Render(comments[i].Body)
		comments[i].Replies = buildReplyTree(byComment[comments[i].ID])
	}

	return comments, nil
}

// ApproveComment approves a comment and cascades to its currently pending
// replies. Replies already approved or rejected are untouched.
func (s *commentService) ApproveComment(ctx context.Context, moderatorID, commentID int) error {
	return s.moderateComment(ctx, moderatorID, commentID, models.ModerationStatusApproved)
}

// RejectComment rejects a comment and cascades to every reply not already
// rejected, including previously approved ones.
func (s *commentService) RejectComment(ctx context.Context, moderatorID, commentID int) error {
	return s.moderateComment(ctx, moderatorID, commentID, models.ModerationStatusRejected)
}

// moderateComment updates the comment's own state, then cascades over the
// comment's flat reply list. The cascade is deliberately not tree-aware: it
// touches every matching reply of the comment regardless of nesting depth.
func (s *commentService) moderateComment(ctx context.Context, moderatorID, commentID int, target models.ModerationStatus) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to get comment: %w", err)
	}
	if comment == nil {
		return apperrors.ErrCommentNotFound
	}

	now := s.now()
	if comment.ModerationStatus != target || comment.PendingModeration {
		if err := s.commentRepo.UpdateModeration(ctx, commentID, target, false, moderatorID, now); err != nil {
			return fmt.Errorf("failed to update comment moderation: %w", err)
		}
	}

	replies, err := s.replyRepo.ListByComments(ctx, []int{commentID})
	if err != nil {
		return fmt.Errorf("failed to list replies: %w", err)
	}

	return s.cascadeReplies(ctx, moderatorID, target, now, affectedByCascade(replies, target))
}

// ApproveReply approves a reply and cascades to its pending descendants
func (s *commentService) ApproveReply(ctx context.Context, moderatorID, replyID int) error {
	return s.moderateReply(ctx, moderatorID, replyID, models.ModerationStatusApproved)
}

// RejectReply rejects a reply and cascades to every descendant not already
// rejected
func (s *commentService) RejectReply(ctx context.Context, moderatorID, replyID int) error {
	return s.moderateReply(ctx, moderatorID, replyID, models.ModerationStatusRejected)
}

// moderateReply updates the target reply, then cascades to its full
// descendant subtree computed from the parent→children adjacency of the
// owning comment's flat reply list.
func (s *commentService) moderateReply(ctx context.Context, moderatorID, replyID int, target models.ModerationStatus) error {
	reply, err := s.replyRepo.FindByID(ctx, replyID)
	if err != nil {
		return fmt.Errorf("failed to get reply: %w", err)
	}
	if reply == nil {
		return apperrors.ErrCommentNotFound
	}

	now := s.now()
	if reply.ModerationStatus != target || reply.PendingModeration {
		if err := s.replyRepo.UpdateModeration(ctx, replyID, target, false, moderatorID, now); err != nil {
			return fmt.Errorf("failed to update reply moderation: %w", err)
		}
	}

	siblings, err := s.replyRepo.ListByComments(ctx, []int{reply.CommentID})
	if err != nil {
		return fmt.Errorf("failed to list replies: %w", err)
	}

	descendants := collectDescendants(replyID, siblings)
	return s.cascadeReplies(ctx, moderatorID, target, now, affectedByCascade(descendants, target))
}

// cascadeReplies issues one moderation update per affected reply. Updates run
// concurrently; a reply created after the list was read is missed, which is
// an accepted race.
func (s *commentService) cascadeReplies(ctx context.Context, moderatorID int, target models.ModerationStatus, moderatedAt time.Time, affected []models.LessonCommentReply) error {
	if len(affected) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, reply := range affected {
		reply := reply
		g.Go(func() error {
			if err := s.replyRepo.UpdateModeration(gctx, reply.ID, target, false, moderatorID, moderatedAt); err != nil {
				s.logger.Error("failed to cascade moderation to reply",
					zap.Int("reply_id", reply.ID),
					zap.String("target_status", string(target)),
					zap.Error(err))
				return fmt.Errorf("failed to cascade moderation to reply %d: %w", reply.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// affectedByCascade filters replies by the cascade rules: approving touches
// only pending replies, rejecting touches everything not already rejected.
func affectedByCascade(replies []models.LessonCommentReply, target models.ModerationStatus) []models.LessonCommentReply {
	var affected []models.LessonCommentReply
	for _, reply := range replies {
		switch target {
		case models.ModerationStatusApproved:
			if reply.ModerationStatus == models.ModerationStatusPending {
				affected = append(affected, reply)
			}
		case models.ModerationStatusRejected:
			if reply.ModerationStatus != models.ModerationStatusRejected {
				affected = append(affected, reply)
			}
		}
	}
	return affected
}

// collectDescendants returns the full descendant subtree of a reply using a
// stack-based walk over the parent→children adjacency of the flat list
func collectDescendants(rootID int, replies []models.LessonCommentReply) []models.LessonCommentReply {
	children := make(map[int][]models.LessonCommentReply)
	for _, reply := range replies {
		if reply.ParentReplyID != nil {
			children[*reply.ParentReplyID] = append(children[*reply.ParentReplyID], reply)
		}
	}

	var descendants []models.LessonCommentReply
	stack := []int{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range children[id] {
			descendants = append(descendants, child)
			stack = append(stack, child.ID)
		}
	}
	return descendants
}

// replyDepth returns the 1-based nesting depth of a reply by walking its
// parent chain. The walk stops early at MaxReplyDepth (the value is a cap,
// not exact beyond it) or at a missing parent.
func replyDepth(reply *models.LessonCommentReply, byID map[int]*models.LessonCommentReply) int {
	depth := 1
	current := reply
	for current.ParentReplyID != nil {
		parent, ok := byID[*current.ParentReplyID]
		if !ok {
			break
		}
		depth++
		if depth >= models.MaxReplyDepth {
			return models.MaxReplyDepth
		}
		current = parent
	}
	return depth
}

// buildReplyTree nests a flat reply list into a tree. Children are attached
// sorted by creation time, and any node at the depth cap gets an empty
// Replies slice even if deeper rows exist in storage.
func buildReplyTree(flat []models.LessonCommentReply) []models.LessonCommentReply {
	children := make(map[int][]models.LessonCommentReply)
	var roots []models.LessonCommentReply
	for _, reply := range flat {
		reply.BodyHTML = markdown.Render(reply.Body)
		if reply.ParentReplyID == nil {
			roots = append(roots, reply)
		} else {
			children[*reply.ParentReplyID] = append(children[*reply.ParentReplyID], reply)
		}
	}

	var attach func(node *models.LessonCommentReply, depth int)
	attach = func(node *models.LessonCommentReply, depth int) {
		if depth >= models.MaxReplyDepth {
			node.Replies = []models.LessonCommentReply{}
			return
		}
		kids := children[node.ID]
		if kids == nil {
			kids = []models.LessonCommentReply{}
		}
		sort.SliceStable(kids, func(i, j int) bool {
			return kids[i].CreatedAt.Before(kids[j].CreatedAt)
		})
		node.Replies = kids
		for i := range node.Replies {
			attach(&node.Replies[i], depth+1)
		}
	}

	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].CreatedAt.Before(roots[j].CreatedAt)
	})
	if roots == nil {
		roots = []models.LessonCommentReply{}
	}
	for i := range roots {
		attach(&roots[i], 1)
	}
	return roots
}
