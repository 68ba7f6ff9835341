package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuizReq() QuizReq {
	return QuizReq{
		Title:           "Algebra Midterm",
		SubjectName:     "Mathematics",
		StartTime:       testBase,
		EndTime:         testBase.Add(2 * time.Hour),
		DurationMinutes: 30,
		Questions: []QuizQuestionReq{
			{
				QuestionType: model.QuestionMCQ,
				Text:         "2 + 2 = ?",
				Marks:        2,
				Options: []QuizOptionReq{
					{Text: "3"},
					{Text: "4", IsCorrect: true},
				},
			},
			{
				QuestionType:  model.QuestionShortAnswer,
				Locale:        model.LocaleArabic,
				Text:          "ما عاصمة فرنسا؟",
				Marks:         3,
				CorrectAnswer: "باريس",
			},
		},
	}
}

func TestCreateQuiz(t *testing.T) {
	store := newFakeQuizStore()
	svc := NewQuizService(store, nil, newFakeClock(testBase))

	quiz, err := svc.CreateQuiz(1, validQuizReq())
	require.NoError(t, err)
	assert.Equal(t, 5, quiz.TotalMarks)
	assert.True(t, quiz.IsPublished)

	questions, err := store.ListQuestions(quiz.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, model.LocaleEnglish, questions[0].Locale) // 未指定时默认英文
	assert.Equal(t, model.LocaleArabic, questions[1].Locale)
}

func TestCreateQuizValidation(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(*QuizReq)
	}{
		{"end before start", func(r *QuizReq) { r.EndTime = r.StartTime.Add(-time.Minute) }},
		{"zero duration", func(r *QuizReq) { r.DurationMinutes = 0 }},
		{"no questions", func(r *QuizReq) { r.Questions = nil }},
		{"zero marks", func(r *QuizReq) { r.Questions[0].Marks = 0 }},
		{"no correct option", func(r *QuizReq) { r.Questions[0].Options[1].IsCorrect = false }},
		{"two correct options", func(r *QuizReq) { r.Questions[0].Options[0].IsCorrect = true }},
		{"short answer without key", func(r *QuizReq) { r.Questions[1].CorrectAnswer = "" }},
		{"unknown question type", func(r *QuizReq) { r.Questions[0].QuestionType = "essay" }},
	}

	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewQuizService(newFakeQuizStore(), nil, newFakeClock(testBase))
			req := validQuizReq()
			tt.mutate(&req)

			_, err := svc.CreateQuiz(1, req)
			var invalid *util.ValidationError
			require.ErrorAs(t, err, &invalid)
		})
	}
}

func TestFetchQuizQuestionsChecks(t *testing.T) {
	t.Run("unpublished", func(t *testing.T) {
		store := newFakeQuizStore()
		quiz := seedTimedQuiz(store)
		quiz.IsPublished = false
		svc := NewQuizService(store, nil, newFakeClock(testBase))

		_, err := svc.FetchQuizQuestions(1, 7)
		assert.ErrorIs(t, err, util.ErrQuizNotPublished)
	})

	t.Run("before window", func(t *testing.T) {
		store := newFakeQuizStore()
		seedTimedQuiz(store)
		svc := NewQuizService(store, nil, newFakeClock(testBase.Add(-2*time.Hour)))

		_, err := svc.FetchQuizQuestions(1, 7)
		var notActive *util.QuizNotActiveError
		require.ErrorAs(t, err, &notActive)
		assert.Equal(t, "not_started", notActive.Reason)
	})

	t.Run("after window", func(t *testing.T) {
		store := newFakeQuizStore()
		seedTimedQuiz(store)
		svc := NewQuizService(store, nil, newFakeClock(testBase.Add(2*time.Hour)))

		_, err := svc.FetchQuizQuestions(1, 7)
		var notActive *util.QuizNotActiveError
		require.ErrorAs(t, err, &notActive)
		assert.Equal(t, "ended", notActive.Reason)
	})

	t.Run("already attempted", func(t *testing.T) {
		store := newFakeQuizStore()
		seedTimedQuiz(store)
		grading := NewQuizGradingService(store, newFakeClock(testBase))
		_, err := grading.Grade(GradeRequest{QuizID: 1, StudentID: 7})
		require.NoError(t, err)

		svc := NewQuizService(store, nil, newFakeClock(testBase))
		_, err = svc.FetchQuizQuestions(1, 7)
		var attempted *util.AlreadyAttemptedError
		require.ErrorAs(t, err, &attempted)
	})

	t.Run("missing quiz", func(t *testing.T) {
		svc := NewQuizService(newFakeQuizStore(), nil, newFakeClock(testBase))
		_, err := svc.FetchQuizQuestions(42, 7)
		assert.ErrorIs(t, err, util.ErrQuizNotFound)
	})
}

func TestFetchQuizQuestionsStudentView(t *testing.T) {
	store := newFakeQuizStore()
	seedTimedQuiz(store)
	svc := NewQuizService(store, nil, newFakeClock(testBase))

	content, err := svc.FetchQuizQuestions(1, 7)
	require.NoError(t, err)
	require.Len(t, content.Questions, 3)

	// 学生视图不携带标准答案字段
	for _, q := range content.Questions {
		assert.NotEmpty(t, q.Text)
		assert.NotEmpty(t, q.Locale)
	}
	assert.Len(t, content.Questions[0].Options, 2)
}

func TestDeleteQuizRules(t *testing.T) {
	t.Run("owner only", func(t *testing.T) {
		store := newFakeQuizStore()
		seedTimedQuiz(store)
		svc := NewQuizService(store, nil, newFakeClock(testBase))

		err := svc.DeleteQuiz(99, 1)
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})

	t.Run("blocked when attempted", func(t *testing.T) {
		store := newFakeQuizStore()
		seedTimedQuiz(store)
		grading := NewQuizGradingService(store, newFakeClock(testBase))
		_, err := grading.Grade(GradeRequest{QuizID: 1, StudentID: 7})
		require.NoError(t, err)

		svc := NewQuizService(store, nil, newFakeClock(testBase))
		err = svc.DeleteQuiz(1, 1)
		assert.ErrorIs(t, err, util.ErrQuizHasAttempts)
	})

	t.Run("deletes clean quiz", func(t *testing.T) {
		store := newFakeQuizStore()
		seedTimedQuiz(store)
		svc := NewQuizService(store, nil, newFakeClock(testBase))

		require.NoError(t, svc.DeleteQuiz(1, 1))
		_, err := store.FindQuizByID(1)
		assert.Error(t, err)
	})
}
