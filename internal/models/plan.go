package models

import "time"

// Plan — запись каталога тарифов. Изменения плана не затрагивают уже
// выданные экземпляры, кроме цены, которая читается в момент сравнения.
type Plan struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Price             int64     `json:"price"`
	ExamAttemptsLimit *int      `json:"exam_attempts_limit,omitempty"` // nil означает без ограничения
	ValidityDays      int       `json:"validity_days"`
	CreatedAt         time.Time `json:"created_at"`
}

// DummyPlan используется для приёма плана из JSON-запроса администратора.
type DummyPlan struct {
	Name              string `json:"name" validate:"required"`
	Price             int64  `json:"price" validate:"required,gt=0"`
	ExamAttemptsLimit *int   `json:"exam_attempts_limit" validate:"omitempty,gte=0"`
	ValidityDays      int    `json:"validity_days" validate:"required,gt=0"`
}

// PlanFilter ограничивает выборку каталога по цене и сроку действия.
type PlanFilter struct {
	MinPrice     *int64
	MaxPrice     *int64
	ValidityDays *int
}
