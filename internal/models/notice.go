package models

import "time"

// NoticeKind определяет шаблон уведомления.
type NoticeKind string

const (
	NoticeExpired          NoticeKind = "expired"
	NoticeExpiring         NoticeKind = "expiring"
	NoticePaymentSucceeded NoticeKind = "payment_succeeded"
	NoticePaymentFailed    NoticeKind = "payment_failed"
	NoticeResetCode        NoticeKind = "reset_code"
	NoticeWelcome          NoticeKind = "welcome"
	NoticeAttemptRecorded  NoticeKind = "attempt_recorded"
	NoticeContactReceived  NoticeKind = "contact_received"
	NoticeContactRelayed   NoticeKind = "contact_relayed"
)

// Notice — одно уведомление пользователю. Доставляется по email и SMS
// независимо друг от друга.
type Notice struct {
	Kind             NoticeKind `json:"kind"`
	Contact          Contact    `json:"contact"`
	SubscriptionName string     `json:"subscription_name,omitempty"`
	ExpiresAt        time.Time  `json:"expires_at,omitempty"`
	Item             string     `json:"item,omitempty"`
	PaymentURL       string     `json:"payment_url,omitempty"`
	Code             string     `json:"code,omitempty"`
	Score            int        `json:"score,omitempty"`
	// Sender и Message заполняются для сообщений формы обратной связи.
	Sender  *Contact `json:"sender,omitempty"`
	Message string   `json:"message,omitempty"`
}
