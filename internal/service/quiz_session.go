package service

import (
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionState 会话状态机取值。
type SessionState string

const (
	SessionIdle       SessionState = "idle"
	SessionLoading    SessionState = "loading"
	SessionActive     SessionState = "active"
	SessionSubmitting SessionState = "submitting"
	SessionCompleted  SessionState = "completed"
	SessionFailed     SessionState = "failed"
)

// QuizSession 一名学生对一张试卷的进行中作答。
// 倒计时按分钟递减，归零时自动提交；Submit 在任何 I/O 之前
// 同步离开 active 态，保证手动提交和超时提交只会落库一次。
type QuizSession struct {
	mu sync.Mutex

	QuizID    uint
	StudentID uint
	StartedAt time.Time

	state            SessionState
	remainingMinutes int
	answers          map[uint]AnswerSubmission

	attempt *model.QuizAttempt
	err     error

	stopTicker chan struct{}
	stopOnce   sync.Once
}

func (s *QuizSession) key() string {
	return sessionKey(s.QuizID, s.StudentID)
}

func sessionKey(quizID, studentID uint) string {
	return fmt.Sprintf("%d:%d", quizID, studentID)
}

// Snapshot 会话对外只读视图。
type SessionSnapshot struct {
	QuizID           uint         `json:"quizId"`
	State            SessionState `json:"state"`
	RemainingMinutes int          `json:"remainingMinutes"`
	AnsweredCount    int          `json:"answeredCount"`
	AttemptID        string       `json:"attemptId,omitempty"`
}

func (s *QuizSession) snapshotLocked() SessionSnapshot {
	snap := SessionSnapshot{
		QuizID:           s.QuizID,
		State:            s.state,
		RemainingMinutes: s.remainingMinutes,
		AnsweredCount:    len(s.answers),
	}
	if s.attempt != nil {
		snap.AttemptID = s.attempt.ID
	}
	return snap
}

// QuizSessionManager 持有进程内全部进行中的会话。
type QuizSessionManager struct {
	mu       sync.Mutex
	sessions map[string]*QuizSession

	Quizzes *QuizService
	Grading *QuizGradingService
	Clock   Clock

	// 倒计时步长，生产为一分钟，测试可缩短
	TickInterval time.Duration
}

func NewQuizSessionManager(quizzes *QuizService, grading *QuizGradingService, clock Clock) *QuizSessionManager {
	return &QuizSessionManager{
		sessions:     make(map[string]*QuizSession),
		Quizzes:      quizzes,
		Grading:      grading,
		Clock:        clock,
		TickInterval: time.Minute,
	}
}

// Start 开卷：取题校验通过后建立会话并启动倒计时。
// 同一学生同一试卷已有进行中的会话时直接复用，不重置剩余时间。
func (m *QuizSessionManager) Start(quizID, studentID uint) (*QuizContent, SessionSnapshot, error) {
	m.mu.Lock()
	if existing, ok := m.sessions[sessionKey(quizID, studentID)]; ok {
		existing.mu.Lock()
		if existing.state == SessionActive || existing.state == SessionLoading {
			snap := existing.snapshotLocked()
			existing.mu.Unlock()
			m.mu.Unlock()

			content, err := m.Quizzes.loadContent(quizID)
			if err != nil {
				return nil, SessionSnapshot{}, err
			}
			return content, snap, nil
		}
		existing.mu.Unlock()
		delete(m.sessions, sessionKey(quizID, studentID))
	}

	session := &QuizSession{
		QuizID:     quizID,
		StudentID:  studentID,
		state:      SessionLoading,
		answers:    make(map[uint]AnswerSubmission),
		stopTicker: make(chan struct{}),
	}
	m.sessions[session.key()] = session
	m.mu.Unlock()

	content, err := m.Quizzes.FetchQuizQuestions(quizID, studentID)
	if err != nil {
		m.remove(session)
		return nil, SessionSnapshot{}, err
	}

	session.mu.Lock()
	session.state = SessionActive
	session.StartedAt = m.Clock.Now()
	session.remainingMinutes = content.Quiz.DurationMinutes
	snap := session.snapshotLocked()
	session.mu.Unlock()

	go m.runCountdown(session)

	logger.Log.Info("quiz session started",
		zap.Uint("quizId", quizID),
		zap.Uint("studentId", studentID),
		zap.Int("durationMinutes", content.Quiz.DurationMinutes),
	)
	return content, snap, nil
}

// RecordAnswer 暂存一道题的作答，最后一次覆盖先前的。
func (m *QuizSessionManager) RecordAnswer(quizID, studentID uint, answer AnswerSubmission) (SessionSnapshot, error) {
	session, err := m.find(quizID, studentID)
	if err != nil {
		return SessionSnapshot{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if session.state != SessionActive {
		return SessionSnapshot{}, util.ErrSessionNotActive
	}
	session.answers[answer.QuestionID] = answer
	return session.snapshotLocked(), nil
}

// Status 查询会话当前状态。
func (m *QuizSessionManager) Status(quizID, studentID uint) (SessionSnapshot, error) {
	session, err := m.find(quizID, studentID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.snapshotLocked(), nil
}

// Submit 学生主动交卷。
func (m *QuizSessionManager) Submit(quizID, studentID uint) (*model.QuizAttempt, error) {
	session, err := m.find(quizID, studentID)
	if err != nil {
		return nil, err
	}
	return m.submit(session, false)
}

// Cancel 放弃作答。会话消失且不留任何记录，学生之后仍可重新开卷。
func (m *QuizSessionManager) Cancel(quizID, studentID uint) error {
	session, err := m.find(quizID, studentID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	if session.state != SessionActive && session.state != SessionLoading {
		session.mu.Unlock()
		return util.ErrSessionNotActive
	}
	session.state = SessionIdle
	session.mu.Unlock()

	session.stop()
	m.remove(session)

	logger.Log.Info("quiz session cancelled",
		zap.Uint("quizId", quizID),
		zap.Uint("studentId", studentID),
	)
	return nil
}

// Tick 倒计时推进一分钟，归零时触发自动提交。
// 返回值表示会话在本次推进后是否仍在作答中。
func (m *QuizSessionManager) Tick(session *QuizSession) bool {
	session.mu.Lock()
	if session.state != SessionActive {
		session.mu.Unlock()
		return false
	}
	session.remainingMinutes--
	expired := session.remainingMinutes <= 0
	session.mu.Unlock()

	if !expired {
		return true
	}

	if _, err := m.submit(session, true); err != nil {
		logger.Log.Warn("auto submit failed",
			zap.Uint("quizId", session.QuizID),
			zap.Uint("studentId", session.StudentID),
			zap.Error(err),
		)
	}
	return false
}

func (m *QuizSessionManager) runCountdown(session *QuizSession) {
	ticker := time.NewTicker(m.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-session.stopTicker:
			return
		case <-ticker.C:
			if !m.Tick(session) {
				return
			}
		}
	}
}

// submit 状态机核心。先同步把 active 切到 submitting，
// 后到的提交（无论手动还是超时）在这一步就被拒绝，
// 因此评分落库永远只发生一次。
func (m *QuizSessionManager) submit(session *QuizSession, auto bool) (*model.QuizAttempt, error) {
	session.mu.Lock()
	if session.state != SessionActive {
		state := session.state
		attempt := session.attempt
		session.mu.Unlock()
		if state == SessionCompleted && attempt != nil {
			return nil, &util.AlreadyAttemptedError{AttemptID: attempt.ID, Score: attempt.TotalScore}
		}
		return nil, util.ErrSessionNotActive
	}
	session.state = SessionSubmitting
	answers := make([]AnswerSubmission, 0, len(session.answers))
	for _, a := range session.answers {
		answers = append(answers, a)
	}
	startedAt := session.StartedAt
	session.mu.Unlock()

	session.stop()

	attempt, err := m.Grading.Grade(GradeRequest{
		QuizID:        session.QuizID,
		StudentID:     session.StudentID,
		Answers:       answers,
		AutoSubmitted: auto,
		StartedAt:     startedAt,
	})

	session.mu.Lock()
	if err != nil {
		session.state = SessionFailed
		session.err = err
	} else {
		session.state = SessionCompleted
		session.attempt = attempt
	}
	session.mu.Unlock()

	// 终态会话留在注册表里，交卷后（尤其是超时自动交卷）
	// 学生查询状态能看到 completed 和 attemptId；
	// 下次 Start 会替换掉它。

	if err != nil {
		return nil, err
	}
	return attempt, nil
}

func (m *QuizSessionManager) find(quizID, studentID uint) (*QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionKey(quizID, studentID)]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	return session, nil
}

func (m *QuizSessionManager) remove(session *QuizSession) {
	m.mu.Lock()
	if current, ok := m.sessions[session.key()]; ok && current == session {
		delete(m.sessions, session.key())
	}
	m.mu.Unlock()
}

func (s *QuizSession) stop() {
	s.stopOnce.Do(func() { close(s.stopTicker) })
}
