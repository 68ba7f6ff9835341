package service

import (
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoGradeFeedback 写入零分行的系统反馈，前端据此区分自动评分
const AutoGradeFeedback = "Automatically graded 0 marks: no submission was received before the deadline."

// AssignmentService 作业发布、提交与截止处理。
type AssignmentService struct {
	Repo  AssignmentStore
	Clock Clock
}

func NewAssignmentService(repo AssignmentStore, clock Clock) *AssignmentService {
	return &AssignmentService{Repo: repo, Clock: clock}
}

type AssignmentReq struct {
	Title          string    `json:"title" binding:"required"`
	Description    string    `json:"description"`
	SubjectName    string    `json:"subjectName" binding:"required"`
	DueDate        time.Time `json:"dueDate" binding:"required"`
	TotalMarks     int       `json:"totalMarks" binding:"required"`
	AttachmentPath string    `json:"attachmentPath"`
}

func (s *AssignmentService) CreateAssignment(teacherID uint, req AssignmentReq) (*model.Assignment, error) {
	if req.TotalMarks <= 0 {
		return nil, util.NewValidationError("total marks must be positive")
	}
	if !req.DueDate.After(s.Clock.Now()) {
		return nil, util.NewValidationError("due date must be in the future")
	}

	assignment := &model.Assignment{
		Title:          req.Title,
		Description:    req.Description,
		SubjectName:    req.SubjectName,
		TeacherID:      teacherID,
		DueDate:        req.DueDate,
		TotalMarks:     req.TotalMarks,
		AttachmentPath: req.AttachmentPath,
	}
	if err := s.Repo.Create(assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *AssignmentService) ListAssignments(teacherID uint, subjectName string) ([]model.Assignment, error) {
	return s.Repo.List(teacherID, subjectName)
}

func (s *AssignmentService) GetAssignment(assignmentID uint) (*model.Assignment, error) {
	assignment, err := s.Repo.FindByID(assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssignmentNotFound
		}
		return nil, err
	}
	return assignment, nil
}

func (s *AssignmentService) DeleteAssignment(teacherID, assignmentID uint) error {
	assignment, err := s.GetAssignment(assignmentID)
	if err != nil {
		return err
	}
	if assignment.TeacherID != teacherID {
		return util.ErrPermissionDenied
	}
	return s.Repo.Delete(assignmentID)
}

// SubmitAssignment 学生提交或截止前重交。
// 截止后拒绝；已评分（含自动零分）的行是终态，同样拒绝。
func (s *AssignmentService) SubmitAssignment(assignmentID, studentID uint, filePath string) (*model.AssignmentSubmission, error) {
	assignment, err := s.GetAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	if now.After(assignment.DueDate) {
		return nil, util.ErrDeadlinePassed
	}

	existing, err := s.Repo.FindSubmission(assignmentID, studentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if existing != nil {
		if existing.Graded() {
			return nil, util.ErrSubmissionGraded
		}
		existing.FilePath = filePath
		existing.SubmittedAt = now
		if err := s.Repo.UpdateSubmission(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	submission := &model.AssignmentSubmission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		SubjectName:  assignment.SubjectName,
		FilePath:     filePath,
		SubmittedAt:  now,
	}
	if err := s.Repo.CreateSubmission(submission); err != nil {
		if util.IsDuplicateKeyError(err) {
			// 并发首交撞上唯一索引，按重交路径重试一次
			return s.SubmitAssignment(assignmentID, studentID, filePath)
		}
		return nil, err
	}
	return submission, nil
}

func (s *AssignmentService) ListStudentSubmissions(studentID uint, subjectName string) ([]model.AssignmentSubmission, error) {
	return s.Repo.ListSubmissionsByStudent(studentID, subjectName)
}

func (s *AssignmentService) ListAssignmentSubmissions(teacherID, assignmentID uint) ([]repository.SubmissionListRow, error) {
	assignment, err := s.GetAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TeacherID != teacherID {
		return nil, util.ErrPermissionDenied
	}
	return s.Repo.ListSubmissionsByAssignment(assignmentID)
}

// GradeSubmission 教师人工评分。分数范围按作业满分校验，
// 已评分（含自动零分）的行不可再改。
func (s *AssignmentService) GradeSubmission(teacherID uint, submissionID string, marks int, feedback string) (*model.AssignmentSubmission, error) {
	submission, err := s.Repo.FindSubmissionByID(submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}

	assignment, err := s.GetAssignment(submission.AssignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TeacherID != teacherID {
		return nil, util.ErrPermissionDenied
	}
	if marks < 0 || marks > assignment.TotalMarks {
		return nil, util.NewValidationError("marks must be between 0 and %d", assignment.TotalMarks)
	}

	updated, err := s.Repo.GradeSubmission(submissionID, teacherID, marks, feedback)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, util.ErrSubmissionGraded
	}
	return s.Repo.FindSubmissionByID(submissionID)
}

// CheckAndGrade 截止处理的提交端：为一个逾期且无提交的
// (assignment, student) 写入零分行。幂等，重复调用返回 false。
// 尚未到期或已有提交时同样返回 false，不报错。
func (s *AssignmentService) CheckAndGrade(assignmentID, studentID, teacherID uint) (bool, error) {
	assignment, err := s.GetAssignment(assignmentID)
	if err != nil {
		return false, err
	}
	if assignment.TeacherID != teacherID {
		return false, util.ErrPermissionDenied
	}

	now := s.Clock.Now()
	if !now.After(assignment.DueDate) {
		monitoring.AutoGradeCounter.WithLabelValues("skipped").Inc()
		return false, nil
	}

	if _, err := s.Repo.FindSubmission(assignmentID, studentID); err == nil {
		monitoring.AutoGradeCounter.WithLabelValues("skipped").Inc()
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	zero := 0
	gradedAt := now
	row := &model.AssignmentSubmission{
		AssignmentID:  assignmentID,
		StudentID:     studentID,
		SubjectName:   assignment.SubjectName,
		SubmittedAt:   now,
		MarksObtained: &zero,
		Feedback:      AutoGradeFeedback,
		AutoGraded:    true,
		GradedAt:      &gradedAt,
	}
	if err := s.Repo.CreateSubmission(row); err != nil {
		if util.IsDuplicateKeyError(err) {
			// 另一次扫描抢先落库，本次视为已处理
			monitoring.AutoGradeCounter.WithLabelValues("skipped").Inc()
			return false, nil
		}
		return false, err
	}

	monitoring.AutoGradeCounter.WithLabelValues("created").Inc()
	logger.Log.Info("assignment auto graded",
		zap.Uint("assignmentId", assignmentID),
		zap.Uint("studentId", studentID),
	)
	return true, nil
}

// OverdueResult 一次扫描的汇总。
type OverdueResult struct {
	Checked    int    `json:"checked"`
	AutoGraded int    `json:"autoGraded"`
	SubjectIDs []uint `json:"-"`
}

// SweepOverdue 学生维度的截止扫描：遍历该教师该科目的全部作业，
// 对每个逾期且无提交的作业调用 CheckAndGrade。单个作业出错
// 只记日志，不中断整轮扫描。
func (s *AssignmentService) SweepOverdue(studentID, teacherID uint, subjectName string) (*OverdueResult, error) {
	assignments, err := s.Repo.List(teacherID, subjectName)
	if err != nil {
		return nil, err
	}

	result := &OverdueResult{}
	now := s.Clock.Now()
	for _, a := range assignments {
		if !now.After(a.DueDate) {
			continue
		}
		result.Checked++

		created, err := s.CheckAndGrade(a.ID, studentID, teacherID)
		if err != nil {
			logger.Log.Warn("deadline sweep entry failed",
				zap.Uint("assignmentId", a.ID),
				zap.Uint("studentId", studentID),
				zap.Error(err),
			)
			continue
		}
		if created {
			result.AutoGraded++
		}
	}
	return result, nil
}
