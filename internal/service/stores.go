package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
)

// QuizStore 试卷数据访问接口，生产实现为 repository.QuizRepository。
type QuizStore interface {
	CreateQuizWithQuestions(quiz *model.Quiz, questions []model.QuizQuestion) error
	FindQuizByID(id uint) (*model.Quiz, error)
	ListQuizzes(teacherID uint, subjectName string) ([]model.Quiz, error)
	ListPublishedQuizzes(teacherID uint, subjectName string) ([]model.Quiz, error)
	ListQuestions(quizID uint) ([]model.QuizQuestion, error)
	CountAttempts(quizID uint) (int64, error)
	DeleteQuiz(id uint) error
	FindAttemptByQuizAndStudent(quizID, studentID uint) (*model.QuizAttempt, error)
	FindAttemptByID(id string) (*model.QuizAttempt, error)
	CreateAttemptWithAnswers(attempt *model.QuizAttempt, answers []model.QuizAnswer) error
}

// AssignmentStore 作业数据访问接口，生产实现为 repository.AssignmentRepository。
type AssignmentStore interface {
	Create(assignment *model.Assignment) error
	FindByID(id uint) (*model.Assignment, error)
	List(teacherID uint, subjectName string) ([]model.Assignment, error)
	Delete(id uint) error
	FindSubmission(assignmentID, studentID uint) (*model.AssignmentSubmission, error)
	FindSubmissionByID(id string) (*model.AssignmentSubmission, error)
	ListSubmissionsByStudent(studentID uint, subjectName string) ([]model.AssignmentSubmission, error)
	ListSubmissionsByAssignment(assignmentID uint) ([]repository.SubmissionListRow, error)
	CreateSubmission(submission *model.AssignmentSubmission) error
	UpdateSubmission(submission *model.AssignmentSubmission) error
	GradeSubmission(submissionID string, graderID uint, marks int, feedback string) (bool, error)
}

var (
	_ QuizStore       = (*repository.QuizRepository)(nil)
	_ AssignmentStore = (*repository.AssignmentRepository)(nil)
)
