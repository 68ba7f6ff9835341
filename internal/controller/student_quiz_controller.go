package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// StudentQuizController 学生侧作答流程：取题开卷、暂存答案、
// 交卷（手动或超时自动）、查成绩。
type StudentQuizController struct {
	QuizService   *service.QuizService
	Sessions      *service.QuizSessionManager
	Grading       *service.QuizGradingService
	ResultService *service.QuizResultService
}

func NewStudentQuizController(
	quizService *service.QuizService,
	sessions *service.QuizSessionManager,
	grading *service.QuizGradingService,
	resultService *service.QuizResultService,
) *StudentQuizController {
	return &StudentQuizController{
		QuizService:   quizService,
		Sessions:      sessions,
		Grading:       grading,
		ResultService: resultService,
	}
}

// ListAvailableQuizzes godoc
// @Summary 可作答试卷列表
// @Description 某教师某科目下已发布的试卷
// @Tags 学生-试卷
// @Produce  json
// @Security ApiKeyAuth
// @Param   teacherId query int true "教师ID"
// @Param   subject query string false "科目名称"
// @Success 200 {object} util.Response{data=[]model.Quiz} "成功"
// @Router /api/student/quizzes [get]
func (c *StudentQuizController) ListAvailableQuizzes(ctx *gin.Context) {
	teacherID := util.MustParseUint(ctx.Query("teacherId"))
	if teacherID == 0 {
		util.BadRequest(ctx, "teacherId is required")
		return
	}

	quizzes, err := c.QuizService.ListAvailableQuizzes(teacherID, ctx.Query("subject"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// StartQuiz godoc
// @Summary 开卷取题
// @Description 校验发布状态、开放窗口和既往作答后返回题目（不含答案），
// @Description 同时建立作答会话并启动倒计时
// @Tags 学生-试卷
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "试卷ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 403 {object} util.Response "未发布或不在开放窗口内"
// @Failure 409 {object} util.Response "已作答过"
// @Router /api/student/quizzes/{id}/questions [get]
func (c *StudentQuizController) StartQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	content, session, err := c.Sessions.Start(util.MustParseUint(ctx.Param("id")), claims.UserID)
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"quiz":      content.Quiz,
		"questions": content.Questions,
		"session":   session,
	})
}

// RecordAnswer godoc
// @Summary 暂存答案
// @Description 会话进行中记录一道题的作答，后提交的覆盖先前的
// @Tags 学生-试卷
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "试卷ID"
// @Param   body body service.AnswerSubmission true "单题作答"
// @Success 200 {object} util.Response{data=service.SessionSnapshot} "成功"
// @Failure 404 {object} util.Response "会话不存在"
// @Failure 409 {object} util.Response "会话不在作答中"
// @Router /api/student/quizzes/{id}/answer [post]
func (c *StudentQuizController) RecordAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AnswerSubmission
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	snap, err := c.Sessions.RecordAnswer(util.MustParseUint(ctx.Param("id")), claims.UserID, req)
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Success(ctx, snap)
}

// SessionStatus godoc
// @Summary 会话状态
// @Description 剩余分钟数与已答题数
// @Tags 学生-试卷
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "试卷ID"
// @Success 200 {object} util.Response{data=service.SessionSnapshot} "成功"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/student/quizzes/{id}/session [get]
func (c *StudentQuizController) SessionStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	snap, err := c.Sessions.Status(util.MustParseUint(ctx.Param("id")), claims.UserID)
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Success(ctx, snap)
}

// CancelSession godoc
// @Summary 放弃作答
// @Description 结束会话且不留任何记录，之后仍可重新开卷
// @Tags 学生-试卷
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "试卷ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "会话不存在"
// @Router /api/student/quizzes/{id}/session [delete]
func (c *StudentQuizController) CancelSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.Sessions.Cancel(util.MustParseUint(ctx.Param("id")), claims.UserID); err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// SubmitQuizRequest 交卷请求。answers 可选：
// 有会话时以会话暂存为准，无会话时按整卷答案直接评分。
type SubmitQuizRequest struct {
	Answers []service.AnswerSubmission `json:"answers"`
}

// SubmitQuiz godoc
// @Summary 交卷
// @Description 评分并生成作答记录；服务端独立复核时间窗口和重复作答
// @Tags 学生-试卷
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "试卷ID"
// @Param   body body SubmitQuizRequest false "整卷答案（无会话时必填）"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 403 {object} util.Response "不在开放窗口内"
// @Failure 409 {object} util.Response "已作答过"
// @Router /api/student/quizzes/{id}/submit [post]
func (c *StudentQuizController) SubmitQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	quizID := util.MustParseUint(ctx.Param("id"))

	var req SubmitQuizRequest
	_ = ctx.ShouldBindJSON(&req)

	// 有进行中的会话时先把随卷答案并入暂存，再由会话统一交卷
	if _, err := c.Sessions.Status(quizID, claims.UserID); err == nil {
		for _, a := range req.Answers {
			if _, err := c.Sessions.RecordAnswer(quizID, claims.UserID, a); err != nil {
				break
			}
		}
		attempt, err := c.Sessions.Submit(quizID, claims.UserID)
		if err != nil {
			util.FromServiceError(ctx, err)
			return
		}
		util.Success(ctx, gin.H{
			"attemptId":  attempt.ID,
			"totalScore": attempt.TotalScore,
		})
		return
	}

	attempt, err := c.Grading.Grade(service.GradeRequest{
		QuizID:    quizID,
		StudentID: claims.UserID,
		Answers:   req.Answers,
	})
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"attemptId":  attempt.ID,
		"totalScore": attempt.TotalScore,
	})
}

// GetResult godoc
// @Summary 成绩单
// @Description 逐题对照的成绩单，仅作答者本人可见
// @Tags 学生-试卷
// @Produce  json
// @Security ApiKeyAuth
// @Param   attemptId path string true "作答记录ID"
// @Success 200 {object} util.Response{data=service.QuizResult} "成功"
// @Failure 403 {object} util.Response "非本人作答"
// @Failure 404 {object} util.Response "记录不存在"
// @Router /api/student/quiz-results/{attemptId} [get]
func (c *StudentQuizController) GetResult(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.ResultService.GetResult(ctx.Param("attemptId"), claims.UserID)
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
