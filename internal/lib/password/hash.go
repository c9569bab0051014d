// Package password хранит пароли аккаунтов в виде bcrypt-хэшей.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
)

// MaxLength — предел bcrypt в байтах.
const MaxLength = 72

// ErrMismatch — пароль не совпадает с хэшем.
var ErrMismatch = errors.New("password mismatch")

// Hash возвращает bcrypt-хэш пароля. Пароль длиннее MaxLength байт
// отклоняется как некорректный ввод.
func Hash(raw string) (string, error) {
	const op = "password.Hash"
	if len(raw) > MaxLength {
		return "", fmt.Errorf("%s: longer than %d bytes: %w", op, MaxLength, apperr.ErrInvalidInput)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Verify сверяет пароль с хэшем. Несовпадение возвращается как ErrMismatch,
// повреждённый хэш как обычная ошибка.
func Verify(hash, raw string) error {
	const op = "password.Verify"
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
