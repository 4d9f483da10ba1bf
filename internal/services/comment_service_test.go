package services

import (
	"context"
	"testing"
	"time"

	"github.com/academyhq/backend/internal/apperrors"
	"github.com/academyhq/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCommentService(
	lessonRepo *mockLessonRepository,
	commentRepo *mockCommentRepository,
	replyRepo *mockReplyRepository,
) *commentService {
	return NewCommentService(
		&mockCourseRepository{course: testCourse()},
		lessonRepo,
		&mockCourseProgressRepository{},
		commentRepo,
		replyRepo,
		zap.NewNop(),
		testClock,
	)
}

// testComment returns an approved comment on lesson 11
func testComment(id int) *models.LessonComment {
	return &models.LessonComment{
		ID:               id,
		LessonID:         11,
		UserID:           5,
		Body:             "nice lesson",
		ModerationStatus: models.ModerationStatusApproved,
		CreatedAt:        fixedNow.Add(-time.Hour),
	}
}

func TestCommentService_AddComment(t *testing.T) {
	t.Run("lesson not found", func(t *testing.T) {
		svc := newCommentService(&mockLessonRepository{lessons: map[int]*models.LessonWithCourse{}}, &mockCommentRepository{}, &mockReplyRepository{})

		_, err := svc.AddComment(context.Background(), 1, 99, "hello")

		assert.ErrorIs(t, err, apperrors.ErrLessonNotFound)
	})

	t.Run("locked lesson", func(t *testing.T) {
		svc := newCommentService(&mockLessonRepository{lessons: testLessonRows()}, &mockCommentRepository{}, &mockReplyRepository{})

		_, err := svc.AddComment(context.Background(), 1, 21, "hello")

		assert.ErrorIs(t, err, apperrors.ErrLessonLocked)
	})

	t.Run("commenting disabled", func(t *testing.T) {
		lessons := testLessonRows()
		lessons[11].IsCommentingEnabled = false
		svc := newCommentService(&mockLessonRepository{lessons: lessons}, &mockCommentRepository{}, &mockReplyRepository{})

		_, err := svc.AddComment(context.Background(), 1, 11, "hello")

		assert.ErrorIs(t, err, apperrors.ErrCommentsDisabled)
	})

	t.Run("unmoderated lesson approves immediately", func(t *testing.T) {
		commentRepo := &mockCommentRepository{}
		svc := newCommentService(&mockLessonRepository{lessons: testLessonRows()}, commentRepo, &mockReplyRepository{})

		comment, err := svc.AddComment(context.Background(), 1, 11, "hello")

		require.NoError(t, err)
		assert.Equal(t, models.ModerationStatusApproved, comment.ModerationStatus)
		assert.False(t, comment.PendingModeration)
		assert.Equal(t, comment, commentRepo.created)
	})

	t.Run("moderated lesson starts pending", func(t *testing.T) {
		lessons := testLessonRows()
		lessons[11].IsCommentingModerated = true
		svc := newCommentService(&mockLessonRepository{lessons: lessons}, &mockCommentRepository{}, &mockReplyRepository{})

		comment, err := svc.AddComment(context.Background(), 1, 11, "hello")

		require.NoError(t, err)
		assert.Equal(t, models.ModerationStatusPending, comment.ModerationStatus)
		assert.True(t, comment.PendingModeration)
	})
}

func TestCommentService_AddReply(t *testing.T) {
	t.Run("comment not found", func(t *testing.T) {
		svc := newCommentService(&mockLessonRepository{lessons: testLessonRows()}, &mockCommentRepository{comments: map[int]*models.LessonComment{}}, &mockReplyRepository{})

		_, err := svc.AddReply(context.Background(), 1, 99, "hello", nil)

		assert.ErrorIs(t, err, apperrors.ErrCommentNotFound)
	})

	t.Run("rejected comment refuses replies", func(t *testing.T) {
		comment := testComment(1)
		comment.ModerationStatus = models.ModerationStatusRejected
		svc := newCommentService(
			&mockLessonRepository{lessons: testLessonRows()},
			&mockCommentRepository{comments: map[int]*models.LessonComment{1: comment}},
			&mockReplyRepository{},
		)

		_, err := svc.AddReply(context.Background(), 1, 1, "hello", nil)

		assert.ErrorIs(t, err, apperrors.ErrCommentRejected)
	})

	t.Run("parent reply must belong to the comment", func(t *testing.T) {
		svc := newCommentService(
			&mockLessonRepository{lessons: testLessonRows()},
			&mockCommentRepository{comments: map[int]*models.LessonComment{1: testComment(1)}},
			&mockReplyRepository{replies: []models.LessonCommentReply{
				{ID: 50, CommentID: 2, UserID: 5},
			}},
		)

		_, err := svc.AddReply(context.Background(), 1, 1, "hello", intPtr(50))

		assert.ErrorIs(t, err, apperrors.ErrReplyParentNotFound)
	})

	t.Run("rejected parent reply refuses children", func(t *testing.T) {
		svc := newCommentService(
			&mockLessonRepository{lessons: testLessonRows()},
			&mockCommentRepository{comments: map[int]*models.LessonComment{1: testComment(1)}},
			&mockReplyRepository{replies: []models.LessonCommentReply{
				{ID: 50, CommentID: 1, ModerationStatus: models.ModerationStatusRejected},
			}},
		)

		_, err := svc.AddReply(context.Background(), 1, 1, "hello", intPtr(50))

		assert.ErrorIs(t, err, apperrors.ErrReplyRejected)
	})

	t.Run("fourth nesting level is refused", func(t *testing.T) {
		// root (50) → 51 → 52; replying under 52 would sit at depth 4.
		svc := newCommentService(
			&mockLessonRepository{lessons: testLessonRows()},
			&mockCommentRepository{comments: map[int]*models.LessonComment{1: testComment(1)}},
			&mockReplyRepository{replies: []models.LessonCommentReply{
				{ID: 50, CommentID: 1, ModerationStatus: models.ModerationStatusApproved},
				{ID: 51, CommentID: 1, ParentReplyID: intPtr(50), ModerationStatus: models.ModerationStatusApproved},
				{ID: 52, CommentID: 1, ParentReplyID: intPtr(51), ModerationStatus: models.ModerationStatusApproved},
			}},
		)

		_, err := svc.AddReply(context.Background(), 1, 1, "too deep", intPtr(52))

		assert.ErrorIs(t, err, apperrors.ErrReplyDepthExceeded)
	})

	t.Run("third nesting level is allowed", func(t *testing.T) {
		replyRepo := &mockReplyRepository{replies: []models.LessonCommentReply{
			{ID: 50, CommentID: 1, ModerationStatus: models.ModerationStatusApproved},
			{ID: 51, CommentID: 1, ParentReplyID: intPtr(50), ModerationStatus: models.ModerationStatusApproved},
		}}
		svc := newCommentService(
			&mockLessonRepository{lessons: testLessonRows()},
			&mockCommentRepository{comments: map[int]*models.LessonComment{1: testComment(1)}},
			replyRepo,
		)

		reply, err := svc.AddReply(context.Background(), 1, 1, "deep but fine", intPtr(51))

		require.NoError(t, err)
		assert.Equal(t, intPtr(51), reply.ParentReplyID)
		assert.Equal(t, models.ModerationStatusApproved, reply.ModerationStatus)
	})

	t.Run("reply inherits pending from comment", func(t *testing.T) {
		comment := testComment(1)
		comment.PendingModeration = true
		comment.ModerationStatus = models.ModerationStatusPending
		svc := newCommentService(
			&mockLessonRepository{lessons: testLessonRows()},
			&mockCommentRepository{comments: map[int]*models.LessonComment{1: comment}},
			&mockReplyRepository{},
		)

		reply, err := svc.AddReply(context.Background(), 1, 1, "hello", nil)

		require.NoError(t, err)
		assert.True(t, reply.PendingModeration)
		assert.Equal(t, models.ModerationStatusPending, reply.ModerationStatus)
	})

	t.Run("reply inherits pending from parent reply", func(t *testing.T) {
		svc := newCommentService(
			&mockLessonRepository{lessons: testLessonRows()},
			&mockCommentRepository{comments: map[int]*models.LessonComment{1: testComment(1)}},
			&mockReplyRepository{replies: []models.LessonCommentReply{
				{ID: 50, CommentID: 1, PendingModeration: true, ModerationStatus: models.ModerationStatusPending},
			}},
		)

		reply, err := svc.AddReply(context.Background(), 1, 1, "hello", intPtr(50))

		require.NoError(t, err)
		assert.True(t, reply.PendingModeration)
	})
}

func TestCommentService_ApproveComment_CascadeScope(t *testing.T) {
	// Replies in all three states: approving touches only the pending one.
	commentRepo := &mockCommentRepository{comments: map[int]*models.LessonComment{1: {
		ID: 1, LessonID: 11, PendingModeration: true, ModerationStatus: models.ModerationStatusPending,
	}}}
	replyRepo := &mockReplyRepository{replies: []models.LessonCommentReply{
		{ID: 50, CommentID: 1, ModerationStatus: models.ModerationStatusPending, PendingModeration: true},
		{ID: 51, CommentID: 1, ModerationStatus: models.ModerationStatusApproved},
		{ID: 52, CommentID: 1, ModerationStatus: models.ModerationStatusRejected},
	}}
	svc := newCommentService(&mockLessonRepository{lessons: testLessonRows()}, commentRepo, replyRepo)

	err := svc.ApproveComment(context.Background(), 9, 1)

	require.NoError(t, err)
	require.Len(t, commentRepo.updates, 1)
	assert.Equal(t, moderationUpdate{id: 1, status: models.ModerationStatusApproved, pending: false, moderatorID: 9}, commentRepo.updates[0])
	assert.Equal(t, map[int]models.ModerationStatus{50: models.ModerationStatusApproved}, replyRepo.updatedReplies())
}

func TestCommentService_RejectComment_CascadeScope(t *testing.T) {
	// Rejecting touches the pending and the approved reply, never the
	// already rejected one. The cascade is flat: nesting depth is ignored.
	commentRepo := &mockCommentRepository{comments: map[int]*models.LessonComment{1: {
		ID: 1, LessonID: 11, ModerationStatus: models.ModerationStatusApproved,
	}}}
	replyRepo := &mockReplyRepository{replies: []models.LessonCommentReply{
		{ID: 50, CommentID: 1, ModerationStatus: models.ModerationStatusPending, PendingModeration: true},
		{ID: 51, CommentID: 1, ParentReplyID: intPtr(50), ModerationStatus: models.ModerationStatusApproved},
		{ID: 52, CommentID: 1, ModerationStatus: models.ModerationStatusRejected},
	}}
	svc := newCommentService(&mockLessonRepository{lessons: testLessonRows()}, commentRepo, replyRepo)

	err := svc.RejectComment(context.Background(), 9, 1)

	require.NoError(t, err)
	assert.Equal(t, map[int]models.ModerationStatus{
		50: models.ModerationStatusRejected,
		51: models.ModerationStatusRejected,
	}, replyRepo.updatedReplies())
}

func TestCommentService_ApproveComment_NoOpOwnState(t *testing.T) {
	// Already approved and not pending: the comment row is untouched but
	// the cascade still runs.
	commentRepo := &mockCommentRepository{comments: map[int]*models.LessonComment{1: {
		ID: 1, LessonID: 11, ModerationStatus: models.ModerationStatusApproved,
	}}}
	replyRepo := &mockReplyRepository{replies: []models.LessonCommentReply{
		{ID: 50, CommentID: 1, ModerationStatus: models.ModerationStatusPending, PendingModeration: true},
	}}
	svc := newCommentService(&mockLessonRepository{lessons: testLessonRows()}, commentRepo, replyRepo)

	err := svc.ApproveComment(context.Background(), 9, 1)

	require.NoError(t, err)
	assert.Empty(t, commentRepo.updates)
	assert.Equal(t, map[int]models.ModerationStatus{50: models.ModerationStatusApproved}, replyRepo.updatedReplies())
}

func TestCommentService_ModerateComment_NotFound(t *testing.T) {
	svc := newCommentService(&mockLessonRepository{lessons: testLessonRows()}, &mockCommentRepository{comments: map[int]*models.LessonComment{}}, &mockReplyRepository{})

	err := svc.ApproveComment(context.Background(), 9, 99)

	assert.ErrorIs(t, err, apperrors.ErrCommentNotFound)
}

func TestCommentService_RejectReply_SubtreeCascade(t *testing.T) {
	// Tree under comment 1: 50 → 51 → 52, plus unrelated root 60.
	// Rejecting 50 must touch 50, 51 and 52 but never 60.
	replyRepo := &mockReplyRepository{replies: []models.LessonCommentReply{
		{ID: 50, CommentID: 1, ModerationStatus: models.ModerationStatusApproved},
		{ID: 51, CommentID: 1, ParentReplyID: intPtr(50), ModerationStatus: models.ModerationStatusApproved},
		{ID: 52, CommentID: 1, ParentReplyID: intPtr(51), ModerationStatus: models.ModerationStatusPending, PendingModeration: true},
		{ID: 60, CommentID: 1, ModerationStatus: models.ModerationStatusApproved},
	}}
	svc := newCommentService(&mockLessonRepository{lessons: testLessonRows()}, &mockCommentRepository{}, replyRepo)

	err := svc.RejectReply(context.Background(), 9, 50)

	require.NoError(t, err)
	assert.Equal(t, map[int]models.ModerationStatus{
		50: models.ModerationStatusRejected,
		51: models.ModerationStatusRejected,
		52: models.ModerationStatusRejected,
	}, replyRepo.updatedReplies())
}

func TestCommentService_ApproveReply_SubtreeCascade(t *testing.T) {
	// Approving 50 updates it and its pending descendant, skipping the
	// approved and rejected ones.
	replyRepo := &mockReplyRepository{replies: []models.LessonCommentReply{
		{ID: 50, CommentID: 1, ModerationStatus: models.ModerationStatusPending, PendingModeration: true},
		{ID: 51, CommentID: 1, ParentReplyID: intPtr(50), ModerationStatus: models.ModerationStatusPending, PendingModeration: true},
		{ID: 52, CommentID: 1, ParentReplyID: intPtr(50), ModerationStatus: models.ModerationStatusRejected},
		{ID: 53, CommentID: 1, ParentReplyID: intPtr(51), ModerationStatus: models.ModerationStatusApproved},
	}}
	svc := newCommentService(&mockLessonRepository{lessons: testLessonRows()}, &mockCommentRepository{}, replyRepo)

	err := svc.ApproveReply(context.Background(), 9, 50)

	require.NoError(t, err)
	assert.Equal(t, map[int]models.ModerationStatus{
		50: models.ModerationStatusApproved,
		51: models.ModerationStatusApproved,
	}, replyRepo.updatedReplies())
}

func TestBuildReplyTree(t *testing.T) {
	t.Run("children sorted by creation time", func(t *testing.T) {
		flat := []models.LessonCommentReply{
			{ID: 52, CommentID: 1, ParentReplyID: intPtr(50), CreatedAt: fixedNow.Add(2 * time.Minute)},
			{ID: 50, CommentID: 1, CreatedAt: fixedNow},
			{ID: 51, CommentID: 1, ParentReplyID: intPtr(50), CreatedAt: fixedNow.Add(time.Minute)},
		}

		tree := buildReplyTree(flat)

		require.Len(t, tree, 1)
		require.Len(t, tree[0].Replies, 2)
		assert.Equal(t, 51, tree[0].Replies[0].ID)
		assert.Equal(t, 52, tree[0].Replies[1].ID)
	})

	t.Run("nodes at the depth cap are truncated", func(t *testing.T) {
		// Storage holds a chain deeper than the cap; the tree stops
		// attaching children at depth 3 even though row 53 exists.
		flat := []models.LessonCommentReply{
			{ID: 50, CommentID: 1, CreatedAt: fixedNow},
			{ID: 51, CommentID: 1, ParentReplyID: intPtr(50), CreatedAt: fixedNow},
			{ID: 52, CommentID: 1, ParentReplyID: intPtr(51), CreatedAt: fixedNow},
			{ID: 53, CommentID: 1, ParentReplyID: intPtr(52), CreatedAt: fixedNow},
		}

		tree := buildReplyTree(flat)

		require.Len(t, tree, 1)
		level2 := tree[0].Replies
		require.Len(t, level2, 1)
		level3 := level2[0].Replies
		require.Len(t, level3, 1)
		assert.Equal(t, 52, level3[0].ID)
		assert.Empty(t, level3[0].Replies)
	})

	t.Run("empty input yields empty tree", func(t *testing.T) {
		assert.Empty(t, buildReplyTree(nil))
	})

	t.Run("childless nodes get an empty slice, not nil", func(t *testing.T) {
		flat := []models.LessonCommentReply{
			{ID: 50, CommentID: 1, CreatedAt: fixedNow},
			{ID: 51, CommentID: 1, ParentReplyID: intPtr(50), CreatedAt: fixedNow},
		}

		tree := buildReplyTree(flat)

		require.Len(t, tree, 1)
		require.Len(t, tree[0].Replies, 1)
		leaf := tree[0].Replies[0]
		assert.NotNil(t, leaf.Replies)
		assert.Empty(t, leaf.Replies)
	})
}

func TestCommentService_ListLessonComments(t *testing.T) {
	commentRepo := &mockCommentRepository{
		byLesson: []models.LessonComment{
			{ID: 1, LessonID: 11, Body: "**bold** text", ModerationStatus: models.ModerationStatusApproved, CreatedAt: fixedNow},
		},
	}
	replyRepo := &mockReplyRepository{replies: []models.LessonCommentReply{
		{ID: 50, CommentID: 1, Body: "reply", ModerationStatus: models.ModerationStatusApproved, CreatedAt: fixedNow},
	}}
	svc := newCommentService(&mockLessonRepository{lessons: testLessonRows()}, commentRepo, replyRepo)

	comments, err := svc.ListLessonComments(context.Background(), 1, 11)

	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0].BodyHTML, "<strong>bold</strong>")
	require.Len(t, comments[0].Replies, 1)
	assert.Equal(t, 50, comments[0].Replies[0].ID)
}
