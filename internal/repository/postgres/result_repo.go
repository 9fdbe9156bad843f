package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/quiz-site/internal/domain/entity"
)

// ResultRepo реализует repository.ResultRepository
type ResultRepo struct {
	db *gorm.DB
}

// NewResultRepo создает новый репозиторий результатов
func NewResultRepo(db *gorm.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// Save сохраняет итоговый результат и ответы пользователя в одной транзакции.
// Либо сохраняется все, либо ничего: частично записанных прохождений не бывает.
func (r *ResultRepo) Save(result *entity.QuizResult, answers []entity.QuizAnswer) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(result).Error; err != nil {
			return err
		}
		if len(answers) == 0 {
			return nil
		}
		for i := range answers {
			answers[i].UserID = result.UserID
			answers[i].QuizName = result.QuizName
		}
		return tx.Create(&answers).Error
	})
}

// ListByUser возвращает все результаты пользователя, новые первыми
func (r *ResultRepo) ListByUser(userID uint) ([]entity.QuizResult, error) {
	var results []entity.QuizResult
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&results).Error
	return results, err
}
