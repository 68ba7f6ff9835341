package service

import (
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"sync"
	"time"

	"gorm.io/gorm"
)

// fakeClock 可手动拨动的时钟。
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func attemptKey(quizID, studentID uint) string {
	return fmt.Sprintf("%d:%d", quizID, studentID)
}

// fakeQuizStore 内存版 QuizStore。
type fakeQuizStore struct {
	mu           sync.Mutex
	quizzes      map[uint]*model.Quiz
	questions    map[uint][]model.QuizQuestion
	attempts     map[string]*model.QuizAttempt
	attemptsByID map[string]*model.QuizAttempt
	attemptSeq   int

	// 模拟并发落库冲突：Create 返回重复键错误，同时让 winner 可见
	dupOnCreate bool
	winner      *model.QuizAttempt
}

func newFakeQuizStore() *fakeQuizStore {
	return &fakeQuizStore{
		quizzes:      make(map[uint]*model.Quiz),
		questions:    make(map[uint][]model.QuizQuestion),
		attempts:     make(map[string]*model.QuizAttempt),
		attemptsByID: make(map[string]*model.QuizAttempt),
	}
}

func (s *fakeQuizStore) CreateQuizWithQuestions(quiz *model.Quiz, questions []model.QuizQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz.ID = uint(len(s.quizzes) + 1)
	s.quizzes[quiz.ID] = quiz
	for i := range questions {
		questions[i].QuizID = quiz.ID
	}
	s.questions[quiz.ID] = questions
	return nil
}

func (s *fakeQuizStore) FindQuizByID(id uint) (*model.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return quiz, nil
}

func (s *fakeQuizStore) ListQuizzes(teacherID uint, subjectName string) ([]model.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Quiz
	for _, q := range s.quizzes {
		if q.TeacherID == teacherID && (subjectName == "" || q.SubjectName == subjectName) {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *fakeQuizStore) ListPublishedQuizzes(teacherID uint, subjectName string) ([]model.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Quiz
	for _, q := range s.quizzes {
		if q.TeacherID == teacherID && q.SubjectName == subjectName && q.IsPublished {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *fakeQuizStore) ListQuestions(quizID uint) ([]model.QuizQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[quizID], nil
}

func (s *fakeQuizStore) CountAttempts(quizID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, a := range s.attempts {
		if a.QuizID == quizID {
			count++
		}
	}
	return count, nil
}

func (s *fakeQuizStore) DeleteQuiz(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, id)
	delete(s.questions, id)
	return nil
}

func (s *fakeQuizStore) FindAttemptByQuizAndStudent(quizID, studentID uint) (*model.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptKey(quizID, studentID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return attempt, nil
}

func (s *fakeQuizStore) FindAttemptByID(id string) (*model.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attemptsByID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return attempt, nil
}

func (s *fakeQuizStore) CreateAttemptWithAnswers(attempt *model.QuizAttempt, answers []model.QuizAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attemptKey(attempt.QuizID, attempt.StudentID)
	if s.dupOnCreate {
		if s.winner != nil {
			s.attempts[attemptKey(s.winner.QuizID, s.winner.StudentID)] = s.winner
			s.attemptsByID[s.winner.ID] = s.winner
		}
		return gorm.ErrDuplicatedKey
	}
	if _, exists := s.attempts[key]; exists {
		return gorm.ErrDuplicatedKey
	}

	s.attemptSeq++
	attempt.ID = fmt.Sprintf("attempt-%d", s.attemptSeq)
	for i := range answers {
		answers[i].AttemptID = attempt.ID
	}
	attempt.Answers = answers
	s.attempts[key] = attempt
	s.attemptsByID[attempt.ID] = attempt
	return nil
}

// fakeAssignmentStore 内存版 AssignmentStore。
type fakeAssignmentStore struct {
	mu              sync.Mutex
	assignments     map[uint]*model.Assignment
	submissions     map[string]*model.AssignmentSubmission
	submissionsByID map[string]*model.AssignmentSubmission
	submissionSeq   int

	// 模拟并发落库冲突：Create 返回重复键错误，同时让 winner 可见
	dupOnCreate bool
	winner      *model.AssignmentSubmission
}

func newFakeAssignmentStore() *fakeAssignmentStore {
	return &fakeAssignmentStore{
		assignments:     make(map[uint]*model.Assignment),
		submissions:     make(map[string]*model.AssignmentSubmission),
		submissionsByID: make(map[string]*model.AssignmentSubmission),
	}
}

func (s *fakeAssignmentStore) Create(assignment *model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment.ID = uint(len(s.assignments) + 1)
	s.assignments[assignment.ID] = assignment
	return nil
}

func (s *fakeAssignmentStore) FindByID(id uint) (*model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment, ok := s.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (s *fakeAssignmentStore) List(teacherID uint, subjectName string) ([]model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Assignment
	for _, a := range s.assignments {
		if a.TeacherID == teacherID && (subjectName == "" || a.SubjectName == subjectName) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeAssignmentStore) Delete(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments, id)
	return nil
}

func (s *fakeAssignmentStore) FindSubmission(assignmentID, studentID uint) (*model.AssignmentSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission, ok := s.submissions[attemptKey(assignmentID, studentID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (s *fakeAssignmentStore) FindSubmissionByID(id string) (*model.AssignmentSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission, ok := s.submissionsByID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (s *fakeAssignmentStore) ListSubmissionsByStudent(studentID uint, subjectName string) ([]model.AssignmentSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AssignmentSubmission
	for _, sub := range s.submissions {
		if sub.StudentID == studentID && (subjectName == "" || sub.SubjectName == subjectName) {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (s *fakeAssignmentStore) ListSubmissionsByAssignment(assignmentID uint) ([]repository.SubmissionListRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.SubmissionListRow
	for _, sub := range s.submissions {
		if sub.AssignmentID == assignmentID {
			out = append(out, repository.SubmissionListRow{AssignmentSubmission: *sub})
		}
	}
	return out, nil
}

func (s *fakeAssignmentStore) CreateSubmission(submission *model.AssignmentSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey(submission.AssignmentID, submission.StudentID)
	if s.dupOnCreate {
		if s.winner != nil {
			s.submissions[attemptKey(s.winner.AssignmentID, s.winner.StudentID)] = s.winner
			s.submissionsByID[s.winner.ID] = s.winner
		}
		return gorm.ErrDuplicatedKey
	}
	if _, exists := s.submissions[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	s.submissionSeq++
	submission.ID = fmt.Sprintf("submission-%d", s.submissionSeq)
	s.submissions[key] = submission
	s.submissionsByID[submission.ID] = submission
	return nil
}

func (s *fakeAssignmentStore) UpdateSubmission(submission *model.AssignmentSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[attemptKey(submission.AssignmentID, submission.StudentID)] = submission
	s.submissionsByID[submission.ID] = submission
	return nil
}

func (s *fakeAssignmentStore) GradeSubmission(submissionID string, graderID uint, marks int, feedback string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission, ok := s.submissionsByID[submissionID]
	if !ok || submission.MarksObtained != nil {
		return false, nil
	}
	now := time.Now()
	submission.MarksObtained = &marks
	submission.Feedback = feedback
	submission.GradedBy = &graderID
	submission.GradedAt = &now
	return true, nil
}
