package service

import (
	"lms_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionManager(t *testing.T) (*QuizSessionManager, *fakeQuizStore, *fakeClock) {
	t.Helper()
	store := newFakeQuizStore()
	seedTimedQuiz(store)
	clock := newFakeClock(testBase)

	quizzes := NewQuizService(store, nil, clock)
	grading := NewQuizGradingService(store, clock)
	manager := NewQuizSessionManager(quizzes, grading, clock)
	manager.TickInterval = time.Hour // 测试手动调用 Tick，禁用后台触发
	return manager, store, clock
}

func TestSessionStartAndStatus(t *testing.T) {
	manager, _, _ := newSessionManager(t)

	content, snap, err := manager.Start(1, 7)
	require.NoError(t, err)
	assert.Equal(t, SessionActive, snap.State)
	assert.Equal(t, 30, snap.RemainingMinutes)
	assert.Len(t, content.Questions, 3)

	status, err := manager.Status(1, 7)
	require.NoError(t, err)
	assert.Equal(t, SessionActive, status.State)
}

func TestSessionStartReusesActiveSession(t *testing.T) {
	manager, _, _ := newSessionManager(t)

	_, first, err := manager.Start(1, 7)
	require.NoError(t, err)

	session, err := manager.find(1, 7)
	require.NoError(t, err)
	manager.Tick(session)

	// 重新进入不重置剩余时间
	_, second, err := manager.Start(1, 7)
	require.NoError(t, err)
	assert.Equal(t, first.RemainingMinutes-1, second.RemainingMinutes)
}

func TestSessionRecordAnswerOverwrites(t *testing.T) {
	manager, _, _ := newSessionManager(t)
	_, _, err := manager.Start(1, 7)
	require.NoError(t, err)

	snap, err := manager.RecordAnswer(1, 7, AnswerSubmission{QuestionID: 10, SelectedOptionID: optionID(101)})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.AnsweredCount)

	// 同一道题再答只覆盖，不增加计数
	snap, err = manager.RecordAnswer(1, 7, AnswerSubmission{QuestionID: 10, SelectedOptionID: optionID(102)})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.AnsweredCount)

	attempt, err := manager.Submit(1, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, attempt.TotalScore)
}

func TestSessionRecordAnswerWithoutSession(t *testing.T) {
	manager, _, _ := newSessionManager(t)
	_, err := manager.RecordAnswer(1, 7, AnswerSubmission{QuestionID: 10})
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestSessionCountdownAutoSubmitsOnce(t *testing.T) {
	manager, store, _ := newSessionManager(t)
	_, _, err := manager.Start(1, 7)
	require.NoError(t, err)
	_, err = manager.RecordAnswer(1, 7, AnswerSubmission{QuestionID: 10, SelectedOptionID: optionID(102)})
	require.NoError(t, err)

	session, err := manager.find(1, 7)
	require.NoError(t, err)

	for i := 0; i < 29; i++ {
		assert.True(t, manager.Tick(session))
	}
	// 第 30 次归零并自动提交
	assert.False(t, manager.Tick(session))

	attempt, err := store.FindAttemptByQuizAndStudent(1, 7)
	require.NoError(t, err)
	assert.True(t, attempt.AutoSubmitted)
	assert.Equal(t, 2, attempt.TotalScore)

	// 会话已结束，之后的 Tick 不会再提交
	assert.False(t, manager.Tick(session))
	count, err := store.CountAttempts(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// 超时交卷后学生轮询仍能看到终态和 attemptId
	status, err := manager.Status(1, 7)
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, status.State)
	assert.Equal(t, attempt.ID, status.AttemptID)
}

func TestSessionManualSubmit(t *testing.T) {
	manager, store, _ := newSessionManager(t)
	_, _, err := manager.Start(1, 7)
	require.NoError(t, err)
	_, err = manager.RecordAnswer(1, 7, AnswerSubmission{QuestionID: 12, AnswerText: "Paris"})
	require.NoError(t, err)

	session, err := manager.find(1, 7)
	require.NoError(t, err)

	attempt, err := manager.Submit(1, 7)
	require.NoError(t, err)
	assert.False(t, attempt.AutoSubmitted)
	assert.Equal(t, 2, attempt.TotalScore)
	assert.Equal(t, testBase, attempt.StartedAt)

	// 交卷后的超时触发不产生第二次提交
	assert.False(t, manager.Tick(session))
	count, err := store.CountAttempts(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// 会话进入终态，重复交卷拿回首次成绩而非第二次落库
	_, err = manager.Submit(1, 7)
	var attempted *util.AlreadyAttemptedError
	require.ErrorAs(t, err, &attempted)
	assert.Equal(t, attempt.ID, attempted.AttemptID)

	status, err := manager.Status(1, 7)
	require.NoError(t, err)
	assert.Equal(t, SessionCompleted, status.State)
	assert.Equal(t, attempt.ID, status.AttemptID)
}

func TestSessionCancelLeavesNoTrace(t *testing.T) {
	manager, store, _ := newSessionManager(t)
	_, _, err := manager.Start(1, 7)
	require.NoError(t, err)
	_, err = manager.RecordAnswer(1, 7, AnswerSubmission{QuestionID: 10, SelectedOptionID: optionID(102)})
	require.NoError(t, err)

	require.NoError(t, manager.Cancel(1, 7))

	_, err = manager.Status(1, 7)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)

	count, err := store.CountAttempts(1)
	require.NoError(t, err)
	assert.Zero(t, count)

	// 放弃后可以重新开卷，剩余时间重置
	_, snap, err := manager.Start(1, 7)
	require.NoError(t, err)
	assert.Equal(t, 30, snap.RemainingMinutes)
}

func TestSessionCancelWithoutSession(t *testing.T) {
	manager, _, _ := newSessionManager(t)
	err := manager.Cancel(1, 7)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestSessionStartRejectedAfterAttempt(t *testing.T) {
	manager, _, _ := newSessionManager(t)
	_, _, err := manager.Start(1, 7)
	require.NoError(t, err)
	_, err = manager.Submit(1, 7)
	require.NoError(t, err)

	_, _, err = manager.Start(1, 7)
	var attempted *util.AlreadyAttemptedError
	require.ErrorAs(t, err, &attempted)
}
