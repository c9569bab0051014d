// Package storage описывает транзакционный контракт хранилища прав доступа.
//
// Все изменения одного аккаунта выполняются внутри AccountTx: реализация
// блокирует строку аккаунта до конца транзакции, поэтому конкурентные
// сверки одного аккаунта не перемешивают частичные записи.
package storage

import (
	"context"

	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

// AccountTx — транзакция, ограниченная одним заблокированным аккаунтом.
type AccountTx interface {
	// Account возвращает строку аккаунта, прочитанную под блокировкой.
	Account() models.Account
	// Instances возвращает экземпляры аккаунта с ценой плана на момент чтения.
	Instances(ctx context.Context) ([]models.Instance, error)
	// DeleteInstances удаляет экземпляры аккаунта по идентификаторам.
	DeleteInstances(ctx context.Context, ids []int64) error
	// SetActive записывает активный экземпляр и флаг subscribed.
	SetActive(ctx context.Context, active *int64, subscribed bool) error
	// CreateInstance создаёт экземпляр и возвращает его идентификатор.
	CreateInstance(ctx context.Context, inst models.Instance) (int64, error)
	// CreateAttempt записывает попытку экзамена.
	CreateAttempt(ctx context.Context, attempt models.ExamAttempt) (int64, error)
	// DecrementAttempts уменьшает отслеживаемый лимит экземпляра и возвращает остаток.
	DecrementAttempts(ctx context.Context, instanceID int64) (int, error)
	// ClearFreeTrial сбрасывает has_free_trial.
	ClearFreeTrial(ctx context.Context) error
	// SetGazetteAccess включает или отключает доступ к газете.
	SetGazetteAccess(ctx context.Context, allowed bool) error
	// MarkInvoiceProcessed фиксирует обработку счёта. Возвращает false, если счёт уже обработан.
	MarkInvoiceProcessed(ctx context.Context, invoiceNumber, transactionID string) (bool, error)
}

// TxFunc — тело транзакции аккаунта.
type TxFunc func(ctx context.Context, tx AccountTx) error
