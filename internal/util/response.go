package util

import (
	"errors"
	"lms_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// FromServiceError 将服务层错误映射为 HTTP 响应。
// 重复作答返回 409 并附上首次成绩，供前端直接展示。
func FromServiceError(c *gin.Context, err error) {
	var attempted *AlreadyAttemptedError
	if errors.As(err, &attempted) {
		c.JSON(http.StatusConflict, Response{
			Code:    http.StatusConflict,
			Message: attempted.Error(),
			Data: gin.H{
				"attemptId": attempted.AttemptID,
				"score":     attempted.Score,
			},
		})
		return
	}

	var notActive *QuizNotActiveError
	if errors.As(err, &notActive) {
		c.JSON(http.StatusForbidden, Response{
			Code:    http.StatusForbidden,
			Message: notActive.Error(),
			Data: gin.H{
				"reason":   notActive.Reason,
				"boundary": notActive.Boundary,
			},
		})
		return
	}

	var invalid *ValidationError
	if errors.As(err, &invalid) {
		BadRequest(c, invalid.Msg)
		return
	}

	switch {
	case errors.Is(err, ErrPermissionDenied):
		Forbidden(c)
	case errors.Is(err, ErrDeadlinePassed),
		errors.Is(err, ErrSubmissionGraded),
		errors.Is(err, ErrQuizHasAttempts),
		errors.Is(err, ErrQuizNotPublished):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrSessionNotActive):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrQuizNotFound),
		errors.Is(err, ErrAttemptNotFound),
		errors.Is(err, ErrAssignmentNotFound),
		errors.Is(err, ErrSubmissionNotFound),
		errors.Is(err, ErrUserNotFound):
		NotFound(c)
	default:
		LogInternalError(c, err)
	}
}
