package entity

import (
	"time"
)

// QuizAnswer представляет ответ пользователя на отдельный вопрос.
// Сохраняется в одной транзакции с итоговым QuizResult.
type QuizAnswer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	QuizName   string    `gorm:"size:100;not null" json:"quiz_name"`
	QuestionID string    `gorm:"size:50;not null" json:"question_id"`
	Answer     string    `gorm:"size:255;not null" json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (QuizAnswer) TableName() string {
	return "quiz_answers"
}
