// Package models содержит доменные структуры сервиса подписок:
// аккаунты, планы, экземпляры подписок, попытки экзамена и уведомления.
package models

import "time"

const (
	// RoleUser — роль обычного пользователя.
	RoleUser = "user"
	// RoleAdmin — роль администратора каталога.
	RoleAdmin = "admin"
)

// Account представляет учётную запись пользователя вместе с флагами доступа.
//
// Инвариант: Subscribed == (ActiveSubscriptionID != nil).
type Account struct {
	ID                   string    // UUID аккаунта
	Names                string    // Имя пользователя
	Email                string    // Электронная почта
	PhoneNumber          string    // Телефон для SMS
	Language             string    // Язык интерфейса
	Country              string    // Страна
	PasswordHash         string    // bcrypt-хэш пароля
	Role                 string    // user или admin
	Subscribed           bool      // Есть ли активная подписка
	HasFreeTrial         bool      // Доступна ли бесплатная пробная попытка
	GazetteAccess        bool      // Разрешено ли скачивание газеты
	ActiveSubscriptionID *int64    // Активный экземпляр подписки
	CreatedAt            time.Time // Дата регистрации
}

// Contact возвращает контактные данные аккаунта для уведомлений.
func (a Account) Contact() Contact {
	return Contact{
		AccountID: a.ID,
		Name:      a.Names,
		Email:     a.Email,
		Phone:     a.PhoneNumber,
	}
}

// Contact — адресат уведомления.
type Contact struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// DummyAccount принимает данные регистрации из JSON-запроса.
type DummyAccount struct {
	Names       string `json:"names" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,numeric"`
	Password    string `json:"password" validate:"required,min=6"`
	Language    string `json:"language" validate:"omitempty,alpha"`
	Country     string `json:"country" validate:"omitempty"`
}

// DummyProfile принимает изменяемые поля профиля.
type DummyProfile struct {
	Names       string `json:"names" validate:"omitempty"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,numeric"`
	Language    string `json:"language" validate:"omitempty,alpha"`
	Country     string `json:"country" validate:"omitempty"`
}

// ResetCode — одноразовый код сброса пароля с явным сроком действия.
type ResetCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Failures  int       `json:"failures"`
}

// Valid сообщает, совпадает ли код и не истёк ли срок его действия.
func (c ResetCode) Valid(code string, now time.Time) bool {
	return c.Code != "" && c.Code == code && now.Before(c.ExpiresAt)
}

// DummyLogin принимает учётные данные для входа.
type DummyLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// DummyPasswordChange принимает смену пароля авторизованным пользователем.
type DummyPasswordChange struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// DummyResetRequest запрашивает код сброса пароля.
type DummyResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// DummyResetConfirm подтверждает сброс пароля кодом.
type DummyResetConfirm struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}
