package models

import "time"

// ExamAttempt — неизменяемая запись о сданном экзамене, оценка по шкале 0–20.
type ExamAttempt struct {
	ID          int64     `json:"id"`
	AccountID   string    `json:"account_id"`
	AttemptDate time.Time `json:"attempt_date"`
	Score       int       `json:"score"`
}

// DummyAttempt принимает результат экзамена из JSON-запроса.
type DummyAttempt struct {
	Score *int `json:"score" validate:"required,min=0,max=20"`
}

// AttemptWithOwner — попытка вместе с именем и email владельца для
// административного списка.
type AttemptWithOwner struct {
	ExamAttempt
	Names string `json:"names"`
	Email string `json:"email"`
}

// ExamStats — агрегированная статистика попыток аккаунта.
type ExamStats struct {
	TotalAttempts int `json:"total_attempts"`
	MaxScore      int `json:"max_score"`
}

// AttemptResult возвращается после успешного списания попытки.
type AttemptResult struct {
	Attempt  ExamAttempt `json:"attempt"`
	Snapshot Snapshot    `json:"entitlements"`
}
