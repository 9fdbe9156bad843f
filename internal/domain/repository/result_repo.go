package repository

import (
	"github.com/yourusername/quiz-site/internal/domain/entity"
)

// ResultRepository определяет методы для работы с результатами викторин.
// История результатов append-only: методов обновления и удаления нет.
type ResultRepository interface {
	// Save атомарно сохраняет итоговый результат и ответы на отдельные вопросы.
	Save(result *entity.QuizResult, answers []entity.QuizAnswer) error
	// ListByUser возвращает все результаты пользователя, новые первыми.
	ListByUser(userID uint) ([]entity.QuizResult, error)
}
