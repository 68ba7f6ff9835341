package repository

import (
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(assignment *model.Assignment) error {
	return r.DB.Create(assignment).Error
}

func (r *AssignmentRepository) FindByID(id uint) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.DB.First(&assignment, id).Error
	return &assignment, err
}

func (r *AssignmentRepository) List(teacherID uint, subjectName string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	query := r.DB.Where("teacher_id = ?", teacherID)
	if subjectName != "" {
		query = query.Where("subject_name = ?", subjectName)
	}
	err := query.Order("due_date asc").Find(&assignments).Error
	return assignments, err
}

func (r *AssignmentRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assignment_id = ?", id).Delete(&model.AssignmentSubmission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Assignment{}, id).Error
	})
}

func (r *AssignmentRepository) FindSubmission(assignmentID, studentID uint) (*model.AssignmentSubmission, error) {
	var submission model.AssignmentSubmission
	err := r.DB.Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *AssignmentRepository) FindSubmissionByID(id string) (*model.AssignmentSubmission, error) {
	var submission model.AssignmentSubmission
	err := r.DB.First(&submission, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *AssignmentRepository) ListSubmissionsByStudent(studentID uint, subjectName string) ([]model.AssignmentSubmission, error) {
	var submissions []model.AssignmentSubmission
	query := r.DB.Where("student_id = ?", studentID)
	if subjectName != "" {
		query = query.Where("subject_name = ?", subjectName)
	}
	err := query.Order("submitted_at desc").Find(&submissions).Error
	return submissions, err
}

type SubmissionListRow struct {
	model.AssignmentSubmission
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
}

func (r *AssignmentRepository) ListSubmissionsByAssignment(assignmentID uint) ([]SubmissionListRow, error) {
	var rows []SubmissionListRow
	err := r.DB.Table("assignment_submissions s").
		Select("s.*, u.name as student_name, u.email as student_email").
		Joins("JOIN users u ON s.student_id = u.id").
		Where("s.assignment_id = ? AND s.deleted_at IS NULL", assignmentID).
		Order("s.submitted_at desc").
		Scan(&rows).Error
	return rows, err
}

// CreateSubmission 依赖 (assignment_id, student_id) 唯一索引，
// 并发重复插入由数据层拒绝，调用方用 IsDuplicateKeyError 判别。
func (r *AssignmentRepository) CreateSubmission(submission *model.AssignmentSubmission) error {
	return r.DB.Create(submission).Error
}

// UpdateSubmission 截止前重交：整行字段原地覆盖，不新建行，
// 唯一索引因此始终成立。
func (r *AssignmentRepository) UpdateSubmission(submission *model.AssignmentSubmission) error {
	return r.DB.Save(submission).Error
}

// GradeSubmission 评分即终态。UPDATE 带 marks_obtained IS NULL 守卫，
// 两个并发评分请求只有一个能改到行，另一个 RowsAffected 为 0。
func (r *AssignmentRepository) GradeSubmission(submissionID string, graderID uint, marks int, feedback string) (bool, error) {
	now := time.Now()
	result := r.DB.Model(&model.AssignmentSubmission{}).
		Where("id = ? AND marks_obtained IS NULL", submissionID).
		Updates(map[string]interface{}{
			"marks_obtained": marks,
			"feedback":       feedback,
			"graded_by":      graderID,
			"graded_at":      now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
