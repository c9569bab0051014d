// Package payment создаёт счета у платёжного провайдера и обрабатывает
// его webhook: активирует подписку или доступ к газете и уведомляет
// пользователя о результате.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/config"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/txid"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/paymentprovider"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/lifecycle"
)

const (
	itemSubscription = "y'ifatabuguzi"
	itemGazette      = "y'igazeti"
)

// Provider — операции платёжного провайдера.
type Provider interface {
	CreateInvoice(ctx context.Context, in paymentprovider.CreateInvoiceRequest) (*paymentprovider.Invoice, error)
	GetInvoice(ctx context.Context, invoiceNumber string) (*paymentprovider.Invoice, error)
	VerifySignature(header string, payload []byte) error
}

// Repository — чтение аккаунтов и планов.
type Repository interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
}

// Entitlements — операции жизненного цикла, вызываемые по оплаченному счёту.
type Entitlements interface {
	ActivateForInvoice(ctx context.Context, accountID string, planID int64, language string, invoice lifecycle.Invoice) (models.Snapshot, bool, error)
	GrantGazetteForInvoice(ctx context.Context, accountID string, invoice lifecycle.Invoice) (bool, error)
}

// Service — сценарий оплаты.
type Service struct {
	provider     Provider
	repo         Repository
	entitlements Entitlements
	dispatcher   lifecycle.Dispatcher
	cfg          config.IremboPay
	gazetteCost  int64
	now          func() time.Time
	log          *slog.Logger
}

// New создаёт сервис оплаты.
func New(provider Provider, repo Repository, entitlements Entitlements, dispatcher lifecycle.Dispatcher,
	cfg config.IremboPay, payCfg config.Payment, log *slog.Logger) *Service {
	return &Service{
		provider:     provider,
		repo:         repo,
		entitlements: entitlements,
		dispatcher:   dispatcher,
		cfg:          cfg,
		gazetteCost:  payCfg.GazetteAmount,
		now:          time.Now,
		log:          log,
	}
}

// Initiate создаёт счёт на покупку плана или газеты и возвращает ссылку на оплату.
func (s *Service) Initiate(ctx context.Context, accountID string, req models.DummyPayment) (models.PaymentLink, error) {
	const op = "payment.Initiate"

	kind := models.PaymentType(req.TransactionType)
	if kind == "" {
		kind = models.PaymentSubscription
	}

	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return models.PaymentLink{}, fmt.Errorf("%s: %w", op, err)
	}

	var (
		amount      int64
		planID      int64
		description string
	)
	switch kind {
	case models.PaymentSubscription:
		if req.PlanID <= 0 {
			return models.PaymentLink{}, fmt.Errorf("%s: subscription_id is required: %w", op, apperr.ErrInvalidInput)
		}
		plan, err := s.repo.GetPlan(ctx, req.PlanID)
		if err != nil {
			return models.PaymentLink{}, fmt.Errorf("%s: %w", op, err)
		}
		amount, planID, description = plan.Price, plan.ID, "Subscription Payment"
	case models.PaymentGazette:
		amount, description = s.gazetteCost, "Gazette Payment"
	default:
		return models.PaymentLink{}, fmt.Errorf("%s: unknown transaction type %q: %w", op, kind, apperr.ErrInvalidInput)
	}

	now := s.now()
	id := txid.New(kind, planID, req.Language, now)
	invoice, err := s.provider.CreateInvoice(ctx, paymentprovider.CreateInvoiceRequest{
		TransactionID:            id.String(),
		PaymentAccountIdentifier: s.cfg.PaymentAccount,
		Customer: paymentprovider.Customer{
			Email:       account.Email,
			PhoneNumber: account.PhoneNumber,
			Name:        account.Names,
		},
		PaymentItems: []paymentprovider.PaymentItem{{
			UnitAmount: amount,
			Quantity:   1,
			Code:       s.cfg.ProductCode,
		}},
		Description: description,
		ExpiryAt:    now.Add(s.cfg.InvoiceExpiration).UTC(),
		Language:    id.Language,
	})
	if err != nil {
		return models.PaymentLink{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("invoice created",
		slog.String("account_id", accountID),
		slog.String("transaction_id", id.String()),
		slog.String("invoice", invoice.InvoiceNumber),
		slog.Int64("amount", amount))

	return models.PaymentLink{
		TransactionID: id.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		PaymentURL:    invoice.PaymentLinkURL,
	}, nil
}
