package model

import (
	"time"
)

// Locale 题目文本的书写语言。每道题只按作者选定的一种语言存储，
// 展示端按此字段决定排版方向，不做空串探测。
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleArabic  Locale = "ar"
	LocaleUrdu    Locale = "ur"
)

type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionTrueFalse   QuestionType = "true_false"
	QuestionShortAnswer QuestionType = "short_answer"
)

// swagger:model Quiz
type Quiz struct {
	BaseModel
	Title           string    `gorm:"size:255;not null" json:"title"`
	SubjectName     string    `gorm:"size:100;index;not null" json:"subjectName"`
	TeacherID       uint      `gorm:"index;not null" json:"teacherId"`
	StartTime       time.Time `gorm:"not null" json:"startTime"`
	EndTime         time.Time `gorm:"not null" json:"endTime"`
	DurationMinutes int       `gorm:"not null" json:"durationMinutes"`
	TotalMarks      int       `gorm:"not null" json:"totalMarks"`
	IsPublished     bool      `gorm:"default:true" json:"isPublished"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

type QuizQuestion struct {
	BaseModel
	QuizID       uint         `gorm:"index;not null" json:"quizId"`
	QuestionType QuestionType `gorm:"size:20;not null" json:"questionType"`
	Locale       Locale       `gorm:"size:5;default:'en'" json:"locale"`
	Text         string       `gorm:"type:text;not null" json:"text"`
	Marks        int          `gorm:"not null" json:"marks"`
	// 简答题的标准答案，选择/判断题为空
	CorrectAnswer string `gorm:"type:text" json:"-"`
	Order         int    `gorm:"default:0" json:"order"`

	Options []QuizOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

type QuizOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"-"`
}

func (QuizOption) TableName() string {
	return "quiz_options"
}
