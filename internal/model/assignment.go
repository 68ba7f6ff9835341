package model

import (
	"time"
)

// swagger:model Assignment
type Assignment struct {
	BaseModel
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	SubjectName string    `gorm:"size:100;index;not null" json:"subjectName"`
	TeacherID   uint      `gorm:"index;not null" json:"teacherId"`
	DueDate     time.Time `gorm:"not null" json:"dueDate"`
	TotalMarks  int       `gorm:"not null" json:"totalMarks"`
	// 可选的题目附件，存储服务返回的对象路径
	AttachmentPath string `gorm:"size:512" json:"attachmentPath,omitempty"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// AssignmentSubmission 每个 (assignment, student) 至多一行。
// 截止前未评分可以重交（整行替换），一旦 MarksObtained 非空即为终态。
// 截止扫描创建的零分行与手动提交同构，仅 AutoGraded 置位、分数为 0。
type AssignmentSubmission struct {
	UUIDBase
	AssignmentID uint      `gorm:"uniqueIndex:idx_assignment_student;not null" json:"assignmentId"`
	StudentID    uint      `gorm:"uniqueIndex:idx_assignment_student;not null" json:"studentId"`
	SubjectName  string    `gorm:"size:100;index" json:"subjectName"`
	FilePath     string    `gorm:"size:512" json:"filePath"`
	SubmittedAt  time.Time `json:"submittedAt"`

	MarksObtained *int       `json:"marksObtained,omitempty"`
	Feedback      string     `gorm:"type:text" json:"feedback"`
	AutoGraded    bool       `gorm:"default:false" json:"autoGraded"`
	GradedBy      *uint      `json:"gradedBy,omitempty"`
	GradedAt      *time.Time `json:"gradedAt,omitempty"`
}

func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}

// Graded 报告该行是否已进入终态（人工或自动评分均算）。
func (s *AssignmentSubmission) Graded() bool {
	return s.MarksObtained != nil
}
