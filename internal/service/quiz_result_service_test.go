package service

import (
	"lms_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		percentage int
		want       string
	}{
		{100, "A+"},
		{90, "A+"},
		{89, "A"},
		{80, "A"},
		{79, "B"},
		{70, "B"},
		{69, "C"},
		{60, "C"},
		{59, "D"},
		{50, "D"},
		{49, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LetterGrade(tt.percentage), "percentage %d", tt.percentage)
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 100, Percentage(5, 5))
	assert.Equal(t, 67, Percentage(2, 3)) // 四舍五入
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 0, Percentage(0, 5))
	assert.Equal(t, 0, Percentage(3, 0)) // 满分为 0 不除零
}

func gradeAndFetch(t *testing.T) (*QuizResultService, string) {
	t.Helper()
	store := newFakeQuizStore()
	seedTimedQuiz(store)
	grading := NewQuizGradingService(store, newFakeClock(testBase))

	attempt, err := grading.Grade(GradeRequest{
		QuizID:    1,
		StudentID: 7,
		Answers: []AnswerSubmission{
			{QuestionID: 10, SelectedOptionID: optionID(102)},
			{QuestionID: 11, SelectedOptionID: optionID(112)},
			{QuestionID: 12, AnswerText: "paris"},
		},
	})
	require.NoError(t, err)
	return NewQuizResultService(store), attempt.ID
}

func TestGetResultBreakdown(t *testing.T) {
	svc, attemptID := gradeAndFetch(t)

	result, err := svc.GetResult(attemptID, 7)
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalScore)
	assert.Equal(t, 5, result.TotalMarks)
	assert.Equal(t, 80, result.Percentage)
	assert.Equal(t, "A", result.Grade)
	require.Len(t, result.Questions, 3)

	mcq := result.Questions[0]
	assert.True(t, mcq.IsCorrect)
	assert.Equal(t, "4", mcq.SelectedOptionText)
	assert.Equal(t, "4", mcq.CorrectOptionText)

	tf := result.Questions[1]
	assert.False(t, tf.IsCorrect)
	assert.Equal(t, "False", tf.SelectedOptionText)
	assert.Equal(t, "True", tf.CorrectOptionText)

	sa := result.Questions[2]
	assert.True(t, sa.IsCorrect)
	assert.Equal(t, "Paris", sa.CorrectAnswer)
	assert.Equal(t, 2, sa.MarksObtained)
}

func TestGetResultOwnership(t *testing.T) {
	svc, attemptID := gradeAndFetch(t)

	_, err := svc.GetResult(attemptID, 99)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestGetResultNotFound(t *testing.T) {
	svc := NewQuizResultService(newFakeQuizStore())
	_, err := svc.GetResult("missing", 7)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}

// 满分两分的短卷：全对 100% A+，零分 0% F。
func TestResultGradeExtremes(t *testing.T) {
	store := newFakeQuizStore()
	quiz := seedTimedQuiz(store)
	quiz.TotalMarks = 2
	store.questions[quiz.ID] = store.questions[quiz.ID][:1]

	grading := NewQuizGradingService(store, newFakeClock(testBase))
	results := NewQuizResultService(store)

	full, err := grading.Grade(GradeRequest{
		QuizID:    1,
		StudentID: 7,
		Answers:   []AnswerSubmission{{QuestionID: 10, SelectedOptionID: optionID(102)}},
	})
	require.NoError(t, err)
	r, err := results.GetResult(full.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 100, r.Percentage)
	assert.Equal(t, "A+", r.Grade)

	// 第二名学生放着不答，超时自动交卷
	idle, err := grading.Grade(GradeRequest{QuizID: 1, StudentID: 8, AutoSubmitted: true})
	require.NoError(t, err)
	r, err = results.GetResult(idle.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Percentage)
	assert.Equal(t, "F", r.Grade)
	assert.True(t, r.AutoSubmitted)
}
