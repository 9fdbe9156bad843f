package entity

import (
	"time"
)

// QuizResult представляет одно событие прохождения викторины.
// Записи только добавляются: обновление и удаление не предусмотрены.
type QuizResult struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	QuizName       string    `gorm:"size:100;not null" json:"quiz_name"`
	Score          int       `gorm:"not null;default:0" json:"score"`
	TotalQuestions int       `gorm:"not null" json:"total_questions"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (QuizResult) TableName() string {
	return "quiz_results"
}
