package service

import (
	"context"
	"encoding/json"
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const quizContentCacheTTL = 5 * time.Minute

// QuizService 负责试卷的教师侧维护和学生侧取题。
type QuizService struct {
	Repo  QuizStore
	Redis *redis.Client
	Clock Clock
}

func NewQuizService(repo QuizStore, rdb *redis.Client, clock Clock) *QuizService {
	return &QuizService{Repo: repo, Redis: rdb, Clock: clock}
}

type QuizOptionReq struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type QuizQuestionReq struct {
	QuestionType  model.QuestionType `json:"questionType" binding:"required"`
	Locale        model.Locale       `json:"locale"`
	Text          string             `json:"text" binding:"required"`
	Marks         int                `json:"marks"`
	CorrectAnswer string             `json:"correctAnswer"`
	Order         int                `json:"order"`
	Options       []QuizOptionReq    `json:"options"`
}

type QuizReq struct {
	Title           string            `json:"title" binding:"required"`
	SubjectName     string            `json:"subjectName" binding:"required"`
	StartTime       time.Time         `json:"startTime" binding:"required"`
	EndTime         time.Time         `json:"endTime" binding:"required"`
	DurationMinutes int               `json:"durationMinutes" binding:"required"`
	IsPublished     *bool             `json:"isPublished"`
	Questions       []QuizQuestionReq `json:"questions" binding:"required"`
}

func (s *QuizService) CreateQuiz(teacherID uint, req QuizReq) (*model.Quiz, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, util.NewValidationError("end time must be after start time")
	}
	if req.DurationMinutes <= 0 {
		return nil, util.NewValidationError("duration must be positive")
	}
	if len(req.Questions) == 0 {
		return nil, util.NewValidationError("quiz must contain at least one question")
	}

	totalMarks := 0
	questions := make([]model.QuizQuestion, 0, len(req.Questions))
	for i, qReq := range req.Questions {
		if qReq.Marks <= 0 {
			return nil, util.NewValidationError("question %d: marks must be positive", i+1)
		}
		locale := qReq.Locale
		if locale == "" {
			locale = model.LocaleEnglish
		}

		q := model.QuizQuestion{
			QuestionType:  qReq.QuestionType,
			Locale:        locale,
			Text:          qReq.Text,
			Marks:         qReq.Marks,
			CorrectAnswer: qReq.CorrectAnswer,
			Order:         qReq.Order,
		}

		switch qReq.QuestionType {
		case model.QuestionMCQ, model.QuestionTrueFalse:
			correct := 0
			for _, oReq := range qReq.Options {
				if oReq.IsCorrect {
					correct++
				}
				q.Options = append(q.Options, model.QuizOption{
					Text:      oReq.Text,
					IsCorrect: oReq.IsCorrect,
				})
			}
			if correct != 1 {
				return nil, util.NewValidationError("question %d: exactly one option must be correct", i+1)
			}
		case model.QuestionShortAnswer:
			if qReq.CorrectAnswer == "" {
				return nil, util.NewValidationError("question %d: short answer question needs a correct answer", i+1)
			}
		default:
			return nil, util.NewValidationError("question %d: unknown question type %q", i+1, qReq.QuestionType)
		}

		totalMarks += qReq.Marks
		questions = append(questions, q)
	}

	quiz := &model.Quiz{
		Title:           req.Title,
		SubjectName:     req.SubjectName,
		TeacherID:       teacherID,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		TotalMarks:      totalMarks,
		IsPublished:     true,
	}
	if req.IsPublished != nil {
		quiz.IsPublished = *req.IsPublished
	}

	if err := s.Repo.CreateQuizWithQuestions(quiz, questions); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) ListQuizzes(teacherID uint, subjectName string) ([]model.Quiz, error) {
	return s.Repo.ListQuizzes(teacherID, subjectName)
}

func (s *QuizService) GetQuiz(quizID uint) (*model.Quiz, []model.QuizQuestion, error) {
	quiz, err := s.Repo.FindQuizByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrQuizNotFound
		}
		return nil, nil, err
	}
	questions, err := s.Repo.ListQuestions(quizID)
	return quiz, questions, err
}

// DeleteQuiz 已有作答记录的试卷不可删除，成绩单依赖其内容。
func (s *QuizService) DeleteQuiz(teacherID, quizID uint) error {
	quiz, err := s.Repo.FindQuizByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuizNotFound
		}
		return err
	}
	if quiz.TeacherID != teacherID {
		return util.ErrPermissionDenied
	}

	count, err := s.Repo.CountAttempts(quizID)
	if err != nil {
		return err
	}
	if count > 0 {
		return util.ErrQuizHasAttempts
	}

	if err := s.Repo.DeleteQuiz(quizID); err != nil {
		return err
	}
	s.invalidateContentCache(quizID)
	return nil
}

// StudentQuizOption 学生取题视图，不含 is_correct。
type StudentQuizOption struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type StudentQuizQuestion struct {
	ID           uint                `json:"id"`
	QuestionType model.QuestionType  `json:"questionType"`
	Locale       model.Locale        `json:"locale"`
	Text         string              `json:"text"`
	Marks        int                 `json:"marks"`
	Order        int                 `json:"order"`
	Options      []StudentQuizOption `json:"options,omitempty"`
}

type QuizContent struct {
	Quiz      model.Quiz            `json:"quiz"`
	Questions []StudentQuizQuestion `json:"questions"`
}

// FetchQuizQuestions 学生开卷取题。
// 依次校验：试卷存在且已发布、当前时间在开放窗口内、无既往作答。
// 内容本身不随学生变化，过了校验后可整体缓存。
func (s *QuizService) FetchQuizQuestions(quizID, studentID uint) (*QuizContent, error) {
	content, err := s.loadContent(quizID)
	if err != nil {
		return nil, err
	}

	if !content.Quiz.IsPublished {
		return nil, util.ErrQuizNotPublished
	}

	now := s.Clock.Now()
	if now.Before(content.Quiz.StartTime) {
		return nil, &util.QuizNotActiveError{Reason: "not_started", Boundary: content.Quiz.StartTime}
	}
	if now.After(content.Quiz.EndTime) {
		return nil, &util.QuizNotActiveError{Reason: "ended", Boundary: content.Quiz.EndTime}
	}

	attempt, err := s.Repo.FindAttemptByQuizAndStudent(quizID, studentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if attempt != nil {
		return nil, &util.AlreadyAttemptedError{AttemptID: attempt.ID, Score: attempt.TotalScore}
	}

	return content, nil
}

// ListAvailableQuizzes 某科目下已发布的试卷列表，供学生选择。
func (s *QuizService) ListAvailableQuizzes(teacherID uint, subjectName string) ([]model.Quiz, error) {
	return s.Repo.ListPublishedQuizzes(teacherID, subjectName)
}

func (s *QuizService) loadContent(quizID uint) (*QuizContent, error) {
	if cached := s.contentFromCache(quizID); cached != nil {
		return cached, nil
	}

	quiz, err := s.Repo.FindQuizByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	questions, err := s.Repo.ListQuestions(quizID)
	if err != nil {
		return nil, err
	}

	content := &QuizContent{Quiz: *quiz}
	for _, q := range questions {
		sq := StudentQuizQuestion{
			ID:           q.ID,
			QuestionType: q.QuestionType,
			Locale:       q.Locale,
			Text:         q.Text,
			Marks:        q.Marks,
			Order:        q.Order,
		}
		for _, o := range q.Options {
			sq.Options = append(sq.Options, StudentQuizOption{ID: o.ID, Text: o.Text})
		}
		content.Questions = append(content.Questions, sq)
	}

	s.cacheContent(quizID, content)
	return content, nil
}

func quizContentKey(quizID uint) string {
	return "quiz:content:" + util.FormatUint(quizID)
}

func (s *QuizService) contentFromCache(quizID uint) *QuizContent {
	if s.Redis == nil {
		return nil
	}
	raw, err := s.Redis.Get(context.Background(), quizContentKey(quizID)).Bytes()
	if err != nil {
		return nil
	}
	var content QuizContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil
	}
	return &content
}

func (s *QuizService) cacheContent(quizID uint, content *QuizContent) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return
	}
	s.Redis.Set(context.Background(), quizContentKey(quizID), raw, quizContentCacheTTL)
}

func (s *QuizService) invalidateContentCache(quizID uint) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(context.Background(), quizContentKey(quizID))
}
