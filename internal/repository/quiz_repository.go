package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

// CreateQuizWithQuestions 整卷一次性落库，题目或选项失败时全部回滚。
func (r *QuizRepository) CreateQuizWithQuestions(quiz *model.Quiz, questions []model.QuizQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(quiz).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].QuizID = quiz.ID
			options := questions[i].Options
			questions[i].Options = nil
			if err := tx.Create(&questions[i]).Error; err != nil {
				return err
			}
			for j := range options {
				options[j].QuestionID = questions[i].ID
				if err := tx.Create(&options[j]).Error; err != nil {
					return err
				}
			}
			questions[i].Options = options
		}
		return nil
	})
}

func (r *QuizRepository) FindQuizByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.First(&quiz, id).Error
	return &quiz, err
}

func (r *QuizRepository) ListQuizzes(teacherID uint, subjectName string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	query := r.DB.Where("teacher_id = ?", teacherID)
	if subjectName != "" {
		query = query.Where("subject_name = ?", subjectName)
	}
	err := query.Order("created_at desc").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) ListPublishedQuizzes(teacherID uint, subjectName string) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("teacher_id = ? AND subject_name = ? AND is_published = ?", teacherID, subjectName, true).
		Order("start_time asc").
		Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) ListQuestions(quizID uint) ([]model.QuizQuestion, error) {
	var questions []model.QuizQuestion
	err := r.DB.Preload("Options").
		Where("quiz_id = ?", quizID).
		Order("`order` asc, id asc").
		Find(&questions).Error
	return questions, err
}

func (r *QuizRepository) CountAttempts(quizID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, err
}

func (r *QuizRepository) DeleteQuiz(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var questionIDs []uint
		if err := tx.Model(&model.QuizQuestion{}).Where("quiz_id = ?", id).Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&model.QuizOption{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Quiz{}, id).Error
	})
}

func (r *QuizRepository) FindAttemptByQuizAndStudent(quizID, studentID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.Where("quiz_id = ? AND student_id = ?", quizID, studentID).First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// CreateAttemptWithAnswers 尝试与答案同一事务写入。
// (quiz_id, student_id) 唯一索引在这里兜底：并发的第二次插入
// 以重复键错误返回，调用方据此改走 AlreadyAttempted 路径。
func (r *QuizRepository) CreateAttemptWithAnswers(attempt *model.QuizAttempt, answers []model.QuizAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].AttemptID = attempt.ID
			if err := tx.Create(&answers[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *QuizRepository) FindAttemptByID(id string) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.Preload("Answers").First(&attempt, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
