// Package apperrors defines the typed domain faults raised by the academy
// engine. Every fault carries a stable machine-readable code and an HTTP
// status hint; collaborator failures are wrapped and propagated unchanged
// instead of being converted into faults.
package apperrors

// Error is a domain fault with a stable code and an HTTP status hint
type Error struct {
	Code    string
	Status  int
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// New creates a new domain fault
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

var (
	ErrLessonNotFound       = New("ACADEMY_LESSON_NOT_FOUND", 404, "lesson not found")
	ErrCourseNotFound       = New("ACADEMY_COURSE_NOT_FOUND", 404, "course not found")
	ErrLessonLocked         = New("ACADEMY_LESSON_LOCKED", 403, "lesson is not accessible yet")
	ErrCommentsDisabled     = New("ACADEMY_COMMENTS_DISABLED", 403, "commenting is disabled for this lesson")
	ErrCommentNotFound      = New("ACADEMY_COMMENT_NOT_FOUND", 404, "comment not found")
	ErrReplyParentNotFound  = New("ACADEMY_COMMENT_REPLY_PARENT_NOT_FOUND", 404, "parent reply not found")
	ErrReplyDepthExceeded   = New("ACADEMY_COMMENT_REPLY_DEPTH_EXCEEDED", 400, "maximum reply depth exceeded")
	ErrReplyRejected        = New("ACADEMY_COMMENT_REPLY_REJECTED", 403, "cannot reply to a rejected reply")
	ErrCommentRejected      = New("ACADEMY_COMMENT_REJECTED", 403, "cannot reply to a rejected comment")
	ErrLessonCourseMismatch = New("ACADEMY_LESSON_COURSE_MISMATCH", 400, "lesson does not belong to this course")
	ErrRatingInvalid        = New("ACADEMY_RATING_INVALID", 400, "rating must be between 1 and 5")
)
