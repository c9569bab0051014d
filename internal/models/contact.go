package models

// DummyContact принимает сообщение формы обратной связи.
type DummyContact struct {
	Names       string `json:"names" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required,numeric"`
	Email       string `json:"email" validate:"omitempty,email"`
	Message     string `json:"message" validate:"required,max=2000"`
}
