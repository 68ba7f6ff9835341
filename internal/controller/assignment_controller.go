package controller

import (
	"fmt"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var assignmentMimeTypes = []string{
	util.MimeImage,
	util.MimePDF,
	util.MimeText,
	util.MimeZip,
	util.MimeOctetStream,
}

// AssignmentController 作业的发布、提交、截止处理与评分。
type AssignmentController struct {
	AssignmentService *service.AssignmentService
	StorageService    *service.StorageService
}

func NewAssignmentController(assignmentService *service.AssignmentService, storageService *service.StorageService) *AssignmentController {
	return &AssignmentController{
		AssignmentService: assignmentService,
		StorageService:    storageService,
	}
}

func (c *AssignmentController) storeUpload(ctx *gin.Context, header *multipart.FileHeader, prefix string) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := util.ValidateMimeType(file, assignmentMimeTypes); err != nil {
		return "", err
	}
	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), filepath.Ext(header.Filename))
	return c.StorageService.Upload(ctx.Request.Context(), filename, file, header.Size, header.Header.Get("Content-Type"))
}

// CreateAssignment godoc
// @Summary 发布作业
// @Description 发布带截止时间的作业，可附一个题目附件
// @Tags 作业
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   title formData string true "标题"
// @Param   description formData string false "描述"
// @Param   subjectName formData string true "科目名称"
// @Param   dueDate formData string true "截止时间 RFC3339"
// @Param   totalMarks formData int true "满分"
// @Param   attachment formData file false "题目附件"
// @Success 201 {object} util.Response{data=model.Assignment} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/teacher/assignments [post]
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	dueDate, err := time.Parse(time.RFC3339, ctx.PostForm("dueDate"))
	if err != nil {
		util.BadRequest(ctx, "invalid dueDate, expected RFC3339")
		return
	}

	req := service.AssignmentReq{
		Title:       ctx.PostForm("title"),
		Description: ctx.PostForm("description"),
		SubjectName: ctx.PostForm("subjectName"),
		DueDate:     dueDate,
		TotalMarks:  int(util.MustParseUint(ctx.PostForm("totalMarks"))),
	}
	if req.Title == "" || req.SubjectName == "" {
		util.BadRequest(ctx, "title and subjectName are required")
		return
	}

	if header, err := ctx.FormFile("attachment"); err == nil {
		path, err := c.storeUpload(ctx, header, "assignments")
		if err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		req.AttachmentPath = path
	}

	assignment, err := c.AssignmentService.CreateAssignment(claims.UserID, req)
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Created(ctx, assignment)
}

// ListAssignments godoc
// @Summary 作业列表（教师）
// @Description 当前教师发布的作业，可按科目过滤
// @Tags 作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   subject query string false "科目名称"
// @Success 200 {object} util.Response{data=[]model.Assignment} "成功"
// @Router /api/teacher/assignments [get]
func (c *AssignmentController) ListAssignments(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	assignments, err := c.AssignmentService.ListAssignments(claims.UserID, ctx.Query("subject"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, assignments)
}

// DeleteAssignment godoc
// @Summary 删除作业
// @Description 删除作业及其全部提交记录
// @Tags 作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Success 200 {object} util.Response "删除成功"
// @Failure 404 {object} util.Response "作业不存在"
// @Router /api/teacher/assignments/{id} [delete]
func (c *AssignmentController) DeleteAssignment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.AssignmentService.DeleteAssignment(claims.UserID, util.MustParseUint(ctx.Param("id"))); err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListStudentAssignments godoc
// @Summary 作业列表（学生）
// @Description 列出作业并附本人提交状态；列表前先做一轮截止扫描，
// @Description 逾期未交的作业即刻落零分
// @Tags 学生-作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   teacherId query int true "教师ID"
// @Param   subject query string false "科目名称"
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/student/assignments [get]
func (c *AssignmentController) ListStudentAssignments(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	teacherID := util.MustParseUint(ctx.Query("teacherId"))
	if teacherID == 0 {
		util.BadRequest(ctx, "teacherId is required")
		return
	}
	subject := ctx.Query("subject")

	sweep, err := c.AssignmentService.SweepOverdue(claims.UserID, teacherID, subject)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	assignments, err := c.AssignmentService.ListAssignments(teacherID, subject)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	submissions, err := c.AssignmentService.ListStudentSubmissions(claims.UserID, subject)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"assignments": assignments,
		"submissions": submissions,
		"sweep":       sweep,
	})
}

// SubmitAssignment godoc
// @Summary 提交作业
// @Description 截止前提交或重交；已评分的提交不可覆盖
// @Tags 学生-作业
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Param   file formData file true "作业文件"
// @Success 200 {object} util.Response{data=model.AssignmentSubmission} "成功"
// @Failure 403 {object} util.Response "已过截止时间或已评分"
// @Router /api/student/assignments/{id}/submit [post]
func (c *AssignmentController) SubmitAssignment(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	path, err := c.storeUpload(ctx, header, "submissions")
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.AssignmentService.SubmitAssignment(util.MustParseUint(ctx.Param("id")), claims.UserID, path)
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}

// ListStudentSubmissions godoc
// @Summary 本人提交记录
// @Description 当前学生的全部提交，可按科目过滤
// @Tags 学生-作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   subject query string false "科目名称"
// @Success 200 {object} util.Response{data=[]model.AssignmentSubmission} "成功"
// @Router /api/student/submissions [get]
func (c *AssignmentController) ListStudentSubmissions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	submissions, err := c.AssignmentService.ListStudentSubmissions(claims.UserID, ctx.Query("subject"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, submissions)
}

// CheckAndGradeRequest 单个 (作业, 学生) 的截止检查请求。
type CheckAndGradeRequest struct {
	TeacherID uint `json:"teacherId" binding:"required"`
}

// CheckAndGrade godoc
// @Summary 截止检查
// @Description 对单个作业做截止检查：逾期且无提交则写入零分记录。
// @Description 幂等，重复调用与未到期调用均返回 autoGraded=false
// @Tags 学生-作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Param   body body CheckAndGradeRequest true "所属教师"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "作业不存在"
// @Router /api/student/assignments/{id}/check-and-grade [post]
func (c *AssignmentController) CheckAndGrade(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CheckAndGradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	created, err := c.AssignmentService.CheckAndGrade(util.MustParseUint(ctx.Param("id")), claims.UserID, req.TeacherID)
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"autoGraded": created})
}

// ListAssignmentSubmissions godoc
// @Summary 作业提交列表
// @Description 某作业下全部学生提交，含学生姓名和邮箱
// @Tags 作业
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "作业ID"
// @Success 200 {object} util.Response{data=[]repository.SubmissionListRow} "成功"
// @Failure 403 {object} util.Response "非本人作业"
// @Router /api/teacher/assignments/{id}/submissions [get]
func (c *AssignmentController) ListAssignmentSubmissions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	rows, err := c.AssignmentService.ListAssignmentSubmissions(claims.UserID, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// GradeSubmissionRequest 人工评分请求。
type GradeSubmissionRequest struct {
	Marks    *int   `json:"marks" binding:"required"`
	Feedback string `json:"feedback"`
}

// GradeSubmission godoc
// @Summary 人工评分
// @Description 给一份提交打分并附评语；评分即终态，不可再改
// @Tags 作业
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "提交记录ID"
// @Param   body body GradeSubmissionRequest true "分数与评语"
// @Success 200 {object} util.Response{data=model.AssignmentSubmission} "成功"
// @Failure 403 {object} util.Response "已评分或无权限"
// @Failure 404 {object} util.Response "提交不存在"
// @Router /api/teacher/submissions/{id}/grade [post]
func (c *AssignmentController) GradeSubmission(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req GradeSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.AssignmentService.GradeSubmission(claims.UserID, ctx.Param("id"), *req.Marks, req.Feedback)
	if err != nil {
		util.FromServiceError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}
