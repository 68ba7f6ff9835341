package service

import (
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"math"

	"gorm.io/gorm"
)

// QuizResultService 把已评分的作答整理成逐题对照的成绩单。
type QuizResultService struct {
	Repo QuizStore
}

func NewQuizResultService(repo QuizStore) *QuizResultService {
	return &QuizResultService{Repo: repo}
}

type QuestionResult struct {
	QuestionID   uint               `json:"questionId"`
	QuestionType model.QuestionType `json:"questionType"`
	Locale       model.Locale       `json:"locale"`
	Text         string             `json:"text"`
	Marks        int                `json:"marks"`

	SelectedOptionID   *uint  `json:"selectedOptionId,omitempty"`
	SelectedOptionText string `json:"selectedOptionText,omitempty"`
	AnswerText         string `json:"answerText,omitempty"`

	CorrectOptionText string `json:"correctOptionText,omitempty"`
	CorrectAnswer     string `json:"correctAnswer,omitempty"`

	IsCorrect     bool `json:"isCorrect"`
	MarksObtained int  `json:"marksObtained"`
}

type QuizResult struct {
	AttemptID     string           `json:"attemptId"`
	Quiz          model.Quiz       `json:"quiz"`
	TotalScore    int              `json:"totalScore"`
	TotalMarks    int              `json:"totalMarks"`
	Percentage    int              `json:"percentage"`
	Grade         string           `json:"grade"`
	AutoSubmitted bool             `json:"autoSubmitted"`
	Questions     []QuestionResult `json:"questions"`
}

// GetResult 成绩单只对作答者本人开放。
func (s *QuizResultService) GetResult(attemptID string, studentID uint) (*QuizResult, error) {
	attempt, err := s.Repo.FindAttemptByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}

	quiz, err := s.Repo.FindQuizByID(attempt.QuizID)
	if err != nil {
		return nil, err
	}
	questions, err := s.Repo.ListQuestions(attempt.QuizID)
	if err != nil {
		return nil, err
	}

	answerByQuestion := make(map[uint]model.QuizAnswer, len(attempt.Answers))
	for _, a := range attempt.Answers {
		answerByQuestion[a.QuestionID] = a
	}

	percentage := Percentage(attempt.TotalScore, quiz.TotalMarks)
	result := &QuizResult{
		AttemptID:     attempt.ID,
		Quiz:          *quiz,
		TotalScore:    attempt.TotalScore,
		TotalMarks:    quiz.TotalMarks,
		Percentage:    percentage,
		Grade:         LetterGrade(percentage),
		AutoSubmitted: attempt.AutoSubmitted,
	}

	for _, q := range questions {
		qr := QuestionResult{
			QuestionID:   q.ID,
			QuestionType: q.QuestionType,
			Locale:       q.Locale,
			Text:         q.Text,
			Marks:        q.Marks,
		}

		if ans, ok := answerByQuestion[q.ID]; ok {
			qr.SelectedOptionID = ans.SelectedOptionID
			qr.AnswerText = ans.AnswerText
			qr.IsCorrect = ans.IsCorrect
			qr.MarksObtained = ans.MarksObtained
		}

		switch q.QuestionType {
		case model.QuestionMCQ, model.QuestionTrueFalse:
			for _, o := range q.Options {
				if o.IsCorrect {
					qr.CorrectOptionText = o.Text
				}
				if qr.SelectedOptionID != nil && o.ID == *qr.SelectedOptionID {
					qr.SelectedOptionText = o.Text
				}
			}
		case model.QuestionShortAnswer:
			qr.CorrectAnswer = q.CorrectAnswer
		}

		result.Questions = append(result.Questions, qr)
	}

	return result, nil
}

// Percentage 四舍五入到整数百分比，满分为 0 时记 0。
func Percentage(score, totalMarks int) int {
	if totalMarks <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(totalMarks) * 100))
}

// LetterGrade 固定阈值等级制。
func LetterGrade(percentage int) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B"
	case percentage >= 60:
		return "C"
	case percentage >= 50:
		return "D"
	default:
		return "F"
	}
}
