// Package txid формирует и разбирает идентификаторы транзакций платёжного
// провайдера вида TX-<type>-s<planId>-<langCode>-<timestamp>.
package txid

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

const prefix = "TX"

// ID — разобранный идентификатор транзакции.
type ID struct {
	Type      models.PaymentType
	PlanID    int64 // 0 для оплаты газеты
	Language  string
	Timestamp time.Time
}

// LangCode приводит язык к коду провайдера: EN, FR, иначе RW.
func LangCode(language string) string {
	code := strings.ToUpper(language)
	if len(code) > 2 {
		code = code[:2]
	}
	switch code {
	case "EN", "FR":
		return code
	default:
		return "RW"
	}
}

// New создаёт идентификатор для операции на момент now.
func New(kind models.PaymentType, planID int64, language string, now time.Time) ID {
	return ID{
		Type:      kind,
		PlanID:    planID,
		Language:  LangCode(language),
		Timestamp: time.UnixMilli(now.UnixMilli()),
	}
}

// String кодирует идентификатор в строку.
func (id ID) String() string {
	return fmt.Sprintf("%s-%s-s%d-%s-%d", prefix, id.Type, id.PlanID, id.Language, id.Timestamp.UnixMilli())
}

// Parse разбирает строковый идентификатор транзакции.
func Parse(raw string) (ID, error) {
	const op = "txid.Parse"
	parts := strings.Split(raw, "-")
	if len(parts) != 5 || parts[0] != prefix {
		return ID{}, fmt.Errorf("%s: malformed transaction id %q: %w", op, raw, apperr.ErrInvalidInput)
	}

	kind := models.PaymentType(parts[1])
	if kind != models.PaymentSubscription && kind != models.PaymentGazette {
		return ID{}, fmt.Errorf("%s: unknown operation type %q: %w", op, parts[1], apperr.ErrInvalidInput)
	}

	if !strings.HasPrefix(parts[2], "s") {
		return ID{}, fmt.Errorf("%s: missing plan segment: %w", op, apperr.ErrInvalidInput)
	}
	planID, err := strconv.ParseInt(strings.TrimPrefix(parts[2], "s"), 10, 64)
	if err != nil || planID < 0 {
		return ID{}, fmt.Errorf("%s: invalid plan id %q: %w", op, parts[2], apperr.ErrInvalidInput)
	}
	if kind == models.PaymentSubscription && planID == 0 {
		return ID{}, fmt.Errorf("%s: subscription payment without plan: %w", op, apperr.ErrInvalidInput)
	}

	ts, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("%s: invalid timestamp %q: %w", op, parts[4], apperr.ErrInvalidInput)
	}

	return ID{
		Type:      kind,
		PlanID:    planID,
		Language:  LangCode(parts[3]),
		Timestamp: time.UnixMilli(ts),
	}, nil
}
