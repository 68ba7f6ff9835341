package controller

import (
	"errors"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// QuizController 教师侧试卷维护。
type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// CreateQuiz godoc
// @Summary 创建试卷
// @Description 创建带题目和选项的限时试卷，总分由各题分值求和
// @Tags 试卷
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.QuizReq true "试卷内容"
// @Success 201 {object} util.Response{data=model.Quiz} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/teacher/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.QuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.CreateQuiz(claims.UserID, req)
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// ListQuizzes godoc
// @Summary 试卷列表
// @Description 当前教师创建的试卷，可按科目过滤
// @Tags 试卷
// @Produce  json
// @Security ApiKeyAuth
// @Param   subject query string false "科目名称"
// @Success 200 {object} util.Response{data=[]model.Quiz} "成功"
// @Router /api/teacher/quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	quizzes, err := c.QuizService.ListQuizzes(claims.UserID, ctx.Query("subject"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// GetQuiz godoc
// @Summary 试卷详情
// @Description 试卷及全部题目，含答案，仅教师可见
// @Tags 试卷
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "试卷ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "试卷不存在"
// @Router /api/teacher/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	quiz, questions, err := c.QuizService.GetQuiz(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	if quiz.TeacherID != claims.UserID {
		util.Forbidden(ctx)
		return
	}

	util.Success(ctx, gin.H{
		"quiz":      quiz,
		"questions": questions,
	})
}

// DeleteQuiz godoc
// @Summary 删除试卷
// @Description 删除试卷及其题目，已有作答记录的试卷不可删除
// @Tags 试卷
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "试卷ID"
// @Success 200 {object} util.Response "删除成功"
// @Failure 403 {object} util.Response "已有作答或无权限"
// @Failure 404 {object} util.Response "试卷不存在"
// @Router /api/teacher/quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	err := c.QuizService.DeleteQuiz(claims.UserID, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		if errors.Is(err, util.ErrQuizHasAttempts) {
			util.Error(ctx, 403, "试卷已有作答记录，不可删除")
			return
		}
		util.FromServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
