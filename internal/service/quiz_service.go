package service

import (
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/quiz-site/internal/catalog"
	"github.com/yourusername/quiz-site/internal/domain/entity"
	"github.com/yourusername/quiz-site/internal/domain/repository"
)

// QuizService оценивает прохождения викторин и сохраняет результаты.
// Одна функция оценки для всех викторин: ключ ответов берется из каталога,
// а не дублируется по обработчикам.
type QuizService struct {
	cat        *catalog.Catalog
	resultRepo repository.ResultRepository
}

// NewQuizService создает новый сервис викторин и возвращает ошибку при проблемах
func NewQuizService(cat *catalog.Catalog, resultRepo repository.ResultRepository) (*QuizService, error) {
	if cat == nil {
		return nil, fmt.Errorf("Catalog is required for QuizService")
	}
	if resultRepo == nil {
		return nil, fmt.Errorf("ResultRepository is required for QuizService")
	}

	return &QuizService{
		cat:        cat,
		resultRepo: resultRepo,
	}, nil
}

// Submit оценивает ответы пользователя и сохраняет результат.
// Сравнение выполняется с реальным эталонным ответом из каталога: точное,
// с учетом регистра, по значению после TrimSpace присланного ответа.
// Для неизвестной викторины возвращается catalog.ErrUnknownQuiz и ничего
// не сохраняется. Результат и ответы пишутся в одной транзакции.
func (s *QuizService) Submit(user *entity.User, quizName string, submitted map[string]string) (*entity.QuizResult, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}

	quiz, err := s.cat.Get(quizName)
	if err != nil {
		return nil, err
	}

	score := 0
	answers := make([]entity.QuizAnswer, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		given := strings.TrimSpace(submitted[question.ID])
		if given == question.Answer {
			score++
		}
		answers = append(answers, entity.QuizAnswer{
			UserID:     user.ID,
			QuizName:   quiz.Name,
			QuestionID: question.ID,
			Answer:     given,
		})
	}

	result := &entity.QuizResult{
		UserID:         user.ID,
		QuizName:       quiz.Name,
		Score:          score,
		TotalQuestions: len(quiz.Questions),
	}

	if err := s.resultRepo.Save(result, answers); err != nil {
		return nil, fmt.Errorf("failed to save quiz result: %w", err)
	}

	log.Printf("[QuizService] Пользователь ID=%d прошел викторину %q: %d/%d",
		user.ID, quiz.Name, result.Score, result.TotalQuestions)

	return result, nil
}

// ResultsForUser возвращает историю результатов пользователя, новые первыми
func (s *QuizService) ResultsForUser(userID uint) ([]entity.QuizResult, error) {
	return s.resultRepo.ListByUser(userID)
}

// Quiz возвращает викторину каталога по идентификатору
func (s *QuizService) Quiz(name string) (*catalog.Quiz, error) {
	return s.cat.Get(name)
}

// Quizzes возвращает все викторины каталога для страницы выбора
func (s *QuizService) Quizzes() []*catalog.Quiz {
	return s.cat.Quizzes()
}
