// Package auth содержит регистрацию, вход, управление профилем и сброс
// пароля по одноразовому коду.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/jwt"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/password"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

// AccountRepository описывает хранение аккаунтов.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account models.Account) (string, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateProfile(ctx context.Context, id string, p models.DummyProfile) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// ResetCodeStore хранит одноразовые коды сброса пароля.
type ResetCodeStore interface {
	Save(ctx context.Context, accountID, code string) (models.ResetCode, error)
	Consume(ctx context.Context, accountID, code string) (bool, error)
}

// Dispatcher ставит уведомления в фоновую доставку.
type Dispatcher interface {
	Dispatch(ctx context.Context, notices ...models.Notice)
}

// ErrInvalidCredentials — неверный email или пароль.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)

// Service отвечает за аутентификацию и учётные записи.
type Service struct {
	accounts   AccountRepository
	codes      ResetCodeStore
	jwtMaker   jwt.Maker
	dispatcher Dispatcher
	log        *slog.Logger
}

// NewService создаёт сервис аутентификации.
func NewService(accounts AccountRepository, codes ResetCodeStore, jwtMaker jwt.Maker, dispatcher Dispatcher, log *slog.Logger) *Service {
	return &Service{
		accounts:   accounts,
		codes:      codes,
		jwtMaker:   jwtMaker,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Register создаёт аккаунт с ролью user и бесплатной пробной попыткой.
func (s *Service) Register(ctx context.Context, in models.DummyAccount) (string, error) {
	const op = "auth.Register"

	hashed, err := password.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	language := in.Language
	if language == "" {
		language = "rw"
	}
	account := models.Account{
		Names:        in.Names,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PhoneNumber:  in.PhoneNumber,
		Language:     language,
		Country:      in.Country,
		PasswordHash: hashed,
		Role:         models.RoleUser,
		HasFreeTrial: true,
	}
	id, err := s.accounts.CreateAccount(ctx, account)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	account.ID = id

	s.log.Info("account registered", slog.String("account_id", id))
	s.dispatcher.Dispatch(ctx, models.Notice{Kind: models.NoticeWelcome, Contact: account.Contact()})
	return id, nil
}

// Login проверяет пароль и выпускает токен доступа.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (string, *models.Account, error) {
	const op = "auth.Login"

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Verify(account.PasswordHash, rawPassword); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.jwtMaker.GenerateToken(account.ID, account.Role)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, account, nil
}

// ValidateToken разбирает токен доступа.
func (s *Service) ValidateToken(token string) (*jwt.Claims, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w: %w", apperr.ErrUnauthorized, err)
	}
	return claims, nil
}

// Profile возвращает аккаунт.
func (s *Service) Profile(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("auth.Profile: %w", err)
	}
	return account, nil
}

// UpdateProfile меняет имя, телефон, язык и страну. Пустые поля не меняются.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, p models.DummyProfile) (*models.Account, error) {
	const op = "auth.UpdateProfile"
	if err := s.accounts.UpdateProfile(ctx, accountID, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.Profile(ctx, accountID)
}

// ChangePassword меняет пароль после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	const op = "auth.ChangePassword"

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Verify(account.PasswordHash, oldPassword); err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	return s.setPassword(ctx, op, accountID, newPassword)
}

// RequestReset создаёт шестизначный код и отправляет его по SMS и email.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	const op = "auth.RequestReset"

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	code, err := newResetCode()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.codes.Save(ctx, account.ID, code); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("password reset requested", slog.String("account_id", account.ID))
	s.dispatcher.Dispatch(ctx, models.Notice{Kind: models.NoticeResetCode, Contact: account.Contact(), Code: code})
	return nil
}

// ConfirmReset меняет пароль, если код верен и не истёк. Код одноразовый.
func (s *Service) ConfirmReset(ctx context.Context, email, code, newPassword string) error {
	const op = "auth.ConfirmReset"

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ok, err := s.codes.Consume(ctx, account.ID, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: invalid or expired code: %w", op, apperr.ErrInvalidInput)
	}
	return s.setPassword(ctx, op, account.ID, newPassword)
}

func (s *Service) setPassword(ctx context.Context, op, accountID, newPassword string) error {
	hashed, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password changed", slog.String("account_id", accountID))
	return nil
}

func newResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
