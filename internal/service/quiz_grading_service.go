package service

import (
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuizGradingService 评分引擎。收到完整答卷后逐题判分并落库，
// "每人每卷一次"由数据层唯一索引保证，而非应用层先查后写。
type QuizGradingService struct {
	Repo  QuizStore
	Clock Clock
}

func NewQuizGradingService(repo QuizStore, clock Clock) *QuizGradingService {
	return &QuizGradingService{Repo: repo, Clock: clock}
}

type AnswerSubmission struct {
	QuestionID       uint   `json:"questionId" binding:"required"`
	SelectedOptionID *uint  `json:"selectedOptionId"`
	AnswerText       string `json:"answerText"`
}

type GradeRequest struct {
	QuizID        uint
	StudentID     uint
	Answers       []AnswerSubmission
	AutoSubmitted bool
	// 会话管理器记录的开卷时间，直连提交时为零值
	StartedAt time.Time
}

// Grade 评分并创建作答记录。
// 服务端在落库时刻独立复核时间窗口，客户端倒计时只是展示。
func (s *QuizGradingService) Grade(req GradeRequest) (*model.QuizAttempt, error) {
	quiz, err := s.Repo.FindQuizByID(req.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	// 直连提交同样只认已发布的试卷，草稿不可作答
	if !quiz.IsPublished {
		monitoring.QuizSubmissionCounter.WithLabelValues("rejected").Inc()
		return nil, util.ErrQuizNotPublished
	}

	now := s.Clock.Now()
	if now.Before(quiz.StartTime) {
		return nil, &util.QuizNotActiveError{Reason: "not_started", Boundary: quiz.StartTime}
	}
	// 窗口收尾前合法开卷的学生仍有整段答题时长，
	// 硬截止因此是 end_time + duration。
	hardClose := quiz.EndTime.Add(time.Duration(quiz.DurationMinutes) * time.Minute)
	if now.After(hardClose) {
		return nil, &util.QuizNotActiveError{Reason: "ended", Boundary: quiz.EndTime}
	}

	// 快速路径：已有作答直接返回既往成绩。并发窗口内漏过的
	// 重复提交由下面的唯一索引兜住。
	if existing, err := s.Repo.FindAttemptByQuizAndStudent(req.QuizID, req.StudentID); err == nil && existing != nil {
		monitoring.QuizSubmissionCounter.WithLabelValues("already_attempted").Inc()
		return nil, &util.AlreadyAttemptedError{AttemptID: existing.ID, Score: existing.TotalScore}
	}

	questions, err := s.Repo.ListQuestions(req.QuizID)
	if err != nil {
		return nil, err
	}

	answerByQuestion := make(map[uint]AnswerSubmission, len(req.Answers))
	questionIDs := make(map[uint]bool, len(questions))
	for _, q := range questions {
		questionIDs[q.ID] = true
	}
	for _, a := range req.Answers {
		if !questionIDs[a.QuestionID] {
			monitoring.QuizSubmissionCounter.WithLabelValues("rejected").Inc()
			return nil, util.NewValidationError("answer references unknown question %d", a.QuestionID)
		}
		answerByQuestion[a.QuestionID] = a
	}

	totalScore := 0
	answers := make([]model.QuizAnswer, 0, len(questions))
	for _, q := range questions {
		sub, answered := answerByQuestion[q.ID]

		row := model.QuizAnswer{QuestionID: q.ID}
		if answered {
			row.SelectedOptionID = sub.SelectedOptionID
			row.AnswerText = sub.AnswerText

			correct, err := scoreAnswer(&q, sub)
			if err != nil {
				monitoring.QuizSubmissionCounter.WithLabelValues("rejected").Inc()
				return nil, err
			}
			if correct {
				row.IsCorrect = true
				row.MarksObtained = q.Marks
				totalScore += q.Marks
			}
		}
		answers = append(answers, row)
	}

	startedAt := req.StartedAt
	if startedAt.IsZero() {
		startedAt = now
	}

	attempt := &model.QuizAttempt{
		QuizID:        req.QuizID,
		StudentID:     req.StudentID,
		StartedAt:     startedAt,
		SubmittedAt:   now,
		TotalScore:    totalScore,
		AutoSubmitted: req.AutoSubmitted,
	}

	if err := s.Repo.CreateAttemptWithAnswers(attempt, answers); err != nil {
		if util.IsDuplicateKeyError(err) {
			// 并发重复提交：另一份已经落库，把它的成绩带回去
			if winner, ferr := s.Repo.FindAttemptByQuizAndStudent(req.QuizID, req.StudentID); ferr == nil && winner != nil {
				monitoring.QuizSubmissionCounter.WithLabelValues("already_attempted").Inc()
				return nil, &util.AlreadyAttemptedError{AttemptID: winner.ID, Score: winner.TotalScore}
			}
		}
		return nil, err
	}

	monitoring.QuizSubmissionCounter.WithLabelValues("graded").Inc()
	logger.Log.Info("quiz attempt graded",
		zap.Uint("quizId", req.QuizID),
		zap.Uint("studentId", req.StudentID),
		zap.Int("score", totalScore),
		zap.Bool("autoSubmitted", req.AutoSubmitted),
	)

	return attempt, nil
}

// scoreAnswer 单题判分。选择/判断看选项的 is_correct，
// 简答做去空格、折叠大小写后的全文比对。
func scoreAnswer(q *model.QuizQuestion, sub AnswerSubmission) (bool, error) {
	switch q.QuestionType {
	case model.QuestionMCQ, model.QuestionTrueFalse:
		if sub.SelectedOptionID == nil {
			return false, nil
		}
		for _, o := range q.Options {
			if o.ID == *sub.SelectedOptionID {
				return o.IsCorrect, nil
			}
		}
		return false, util.NewValidationError("option %d does not belong to question %d", *sub.SelectedOptionID, q.ID)
	case model.QuestionShortAnswer:
		if sub.AnswerText == "" {
			return false, nil
		}
		return normalizeAnswer(sub.AnswerText) == normalizeAnswer(q.CorrectAnswer), nil
	}
	return false, util.NewValidationError("unknown question type %q", q.QuestionType)
}

func normalizeAnswer(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
