package model

import (
	"time"
)

// QuizAttempt 学生对一次测验的唯一作答记录。
// (quiz_id, student_id) 上的唯一索引是"每人每卷只允许一次提交"
// 的最终保障：并发的重复提交在插入时触发 1062，而不是靠先查后写。
type QuizAttempt struct {
	UUIDBase
	QuizID      uint      `gorm:"uniqueIndex:idx_quiz_student;not null" json:"quizId"`
	StudentID   uint      `gorm:"uniqueIndex:idx_quiz_student;not null" json:"studentId"`
	StartedAt   time.Time `json:"startedAt"`
	SubmittedAt time.Time `json:"submittedAt"`
	TotalScore  int       `gorm:"default:0" json:"totalScore"`
	// 到时自动交卷时为 true，协议上与手动提交无其他差别
	AutoSubmitted bool `gorm:"default:false" json:"autoSubmitted"`

	Answers []QuizAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// QuizAnswer 单题作答，评分时一次性写入，之后不再修改。
type QuizAnswer struct {
	UUIDBase
	AttemptID        string `gorm:"index;type:varchar(36);not null" json:"attemptId"`
	QuestionID       uint   `gorm:"index;not null" json:"questionId"`
	SelectedOptionID *uint  `json:"selectedOptionId,omitempty"`
	AnswerText       string `gorm:"type:text" json:"answerText"`
	IsCorrect        bool   `gorm:"default:false" json:"isCorrect"`
	MarksObtained    int    `gorm:"default:0" json:"marksObtained"`
}

func (QuizAnswer) TableName() string {
	return "quiz_answers"
}
