package util

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrQuizNotPublished   = errors.New("quiz not published or not accessible")
	ErrQuizHasAttempts    = errors.New("quiz already has attempts and cannot be changed")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrDeadlinePassed     = errors.New("deadline has passed, submission not accepted")
	ErrSubmissionGraded   = errors.New("submission already graded")
	ErrSessionNotFound    = errors.New("quiz session not found")
	ErrSessionNotActive   = errors.New("quiz session not active")
)

// AlreadyAttemptedError 重复作答不是失败，而是携带首次成绩的终态结果。
type AlreadyAttemptedError struct {
	AttemptID string
	Score     int
}

func (e *AlreadyAttemptedError) Error() string {
	return fmt.Sprintf("quiz already attempted, score %d", e.Score)
}

// QuizNotActiveError 标明违反的是哪一侧时间边界。
type QuizNotActiveError struct {
	Reason   string // not_started | ended
	Boundary time.Time
}

func (e *QuizNotActiveError) Error() string {
	if e.Reason == "not_started" {
		return fmt.Sprintf("quiz has not started yet, opens at %s", e.Boundary.Format(TimeFormat))
	}
	return fmt.Sprintf("quiz has ended, closed at %s", e.Boundary.Format(TimeFormat))
}

// ValidationError 在任何持久化之前拒绝非法输入。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
