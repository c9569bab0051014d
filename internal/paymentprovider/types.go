package paymentprovider

import "time"

// Customer — плательщик в счёте.
type Customer struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Name        string `json:"name,omitempty"`
}

// PaymentItem — позиция счёта.
type PaymentItem struct {
	UnitAmount int64  `json:"unitAmount"`
	Quantity   int    `json:"quantity"`
	Code       string `json:"code"`
}

// CreateInvoiceRequest — запрос на создание счёта.
type CreateInvoiceRequest struct {
	TransactionID            string        `json:"transactionId"`
	PaymentAccountIdentifier string        `json:"paymentAccountIdentifier"`
	Customer                 Customer      `json:"customer"`
	PaymentItems             []PaymentItem `json:"paymentItems"`
	Description              string        `json:"description"`
	ExpiryAt                 time.Time     `json:"expiryAt"`
	Language                 string        `json:"language"`
}

// Invoice — счёт в ответах провайдера.
type Invoice struct {
	InvoiceNumber  string   `json:"invoiceNumber"`
	TransactionID  string   `json:"transactionId"`
	PaymentStatus  string   `json:"paymentStatus"`
	Amount         int64    `json:"amount"`
	Currency       string   `json:"currency"`
	PaymentLinkURL string   `json:"paymentLinkUrl"`
	Customer       Customer `json:"customer"`
}

type envelope struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Data    Invoice `json:"data"`
	Errors  []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// StatusPaid — статус оплаченного счёта.
const StatusPaid = "PAID"
