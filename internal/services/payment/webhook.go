package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/txid"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/paymentprovider"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/lifecycle"
)

type callbackBody struct {
	Data models.PaymentCallback `json:"data"`
}

// CallbackResult описывает, что сделал обработчик webhook.
type CallbackResult struct {
	TransactionID string
	Paid          bool
	Applied       bool
}

// HandleCallback проверяет подпись webhook и применяет результат оплаты.
// Повторная доставка оплаченного счёта ничего не меняет.
func (s *Service) HandleCallback(ctx context.Context, signature string, body []byte) (CallbackResult, error) {
	const op = "payment.HandleCallback"

	if err := s.provider.VerifySignature(signature, body); err != nil {
		return CallbackResult{}, fmt.Errorf("%s: %w: %w", op, apperr.ErrUnauthorized, err)
	}

	var cb callbackBody
	if err := json.Unmarshal(body, &cb); err != nil {
		return CallbackResult{}, fmt.Errorf("%s: %w: %v", op, apperr.ErrInvalidInput, err)
	}

	invoice, err := s.provider.GetInvoice(ctx, cb.Data.InvoiceNumber)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("%s: %w", op, err)
	}

	transactionID := cb.Data.TransactionID
	if invoice.TransactionID != "" {
		transactionID = invoice.TransactionID
	}
	id, err := txid.Parse(transactionID)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("%s: %w", op, err)
	}

	account, err := s.repo.GetAccountByEmail(ctx, invoice.Customer.Email)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("%s: %w", op, err)
	}

	status := invoice.PaymentStatus
	if status == "" {
		status = cb.Data.PaymentStatus
	}
	result := CallbackResult{TransactionID: transactionID, Paid: status == paymentprovider.StatusPaid}
	log := s.log.With(
		slog.String("op", op),
		slog.String("account_id", account.ID),
		slog.String("transaction_id", transactionID),
		slog.String("invoice", invoice.InvoiceNumber),
		slog.String("status", status),
	)

	if !result.Paid {
		log.Info("payment not completed")
		s.dispatcher.Dispatch(ctx, models.Notice{
			Kind:       models.NoticePaymentFailed,
			Contact:    account.Contact(),
			PaymentURL: invoice.PaymentLinkURL,
		})
		return result, nil
	}

	ref := lifecycle.Invoice{Number: invoice.InvoiceNumber, TransactionID: transactionID}
	item := itemSubscription
	switch id.Type {
	case models.PaymentSubscription:
		_, result.Applied, err = s.entitlements.ActivateForInvoice(ctx, account.ID, id.PlanID, strings.ToLower(id.Language), ref)
	case models.PaymentGazette:
		item = itemGazette
		result.Applied, err = s.entitlements.GrantGazetteForInvoice(ctx, account.ID, ref)
	}
	if err != nil {
		return CallbackResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if !result.Applied {
		log.Info("invoice already processed")
		return result, nil
	}
	log.Info("payment applied")
	s.dispatcher.Dispatch(ctx, models.Notice{
		Kind:    models.NoticePaymentSucceeded,
		Contact: account.Contact(),
		Item:    item,
	})
	return result, nil
}
