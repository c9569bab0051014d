package models

// PaymentType — тип операции, закодированный в идентификаторе транзакции.
type PaymentType string

const (
	// PaymentSubscription — покупка плана подписки.
	PaymentSubscription PaymentType = "sub"
	// PaymentGazette — покупка доступа к газете.
	PaymentGazette PaymentType = "gaz"
)

// DummyPayment принимает запрос на создание счёта.
type DummyPayment struct {
	PlanID          int64  `json:"subscription_id" validate:"omitempty,gt=0"`
	Language        string `json:"language" validate:"required"`
	TransactionType string `json:"transaction_type" validate:"omitempty,oneof=sub gaz"`
}

// PaymentLink — результат создания счёта у платёжного провайдера.
type PaymentLink struct {
	TransactionID string `json:"transaction_id"`
	InvoiceNumber string `json:"invoice_number"`
	PaymentURL    string `json:"payment_url"`
}

// PaymentCallback — тело webhook платёжного провайдера.
type PaymentCallback struct {
	TransactionID string `json:"transactionId"`
	InvoiceNumber string `json:"invoiceNumber"`
	PaymentStatus string `json:"paymentStatus"`
}
