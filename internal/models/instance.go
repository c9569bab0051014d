package models

import "time"

// Instance — один выданный период подписки для одного аккаунта.
//
// PlanName и PlanPrice подтягиваются из каталога при чтении и не хранятся
// в строке экземпляра.
type Instance struct {
	ID           int64     `json:"id"`
	AccountID    string    `json:"account_id"`
	PlanID       int64     `json:"plan_id"`
	PlanName     string    `json:"plan_name"`
	PlanPrice    int64     `json:"plan_price"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Language     string    `json:"language"`
	AttemptsLeft *int      `json:"attempts_left"` // nil означает без ограничения
}

// Expired сообщает, истёк ли экземпляр к моменту now (end_date <= now).
func (i Instance) Expired(now time.Time) bool {
	return !i.EndDate.After(now)
}

// Depleted сообщает, исчерпан ли отслеживаемый лимит попыток.
func (i Instance) Depleted() bool {
	return i.AttemptsLeft != nil && *i.AttemptsLeft <= 0
}

// ExpiringInstance — экземпляр подписки вместе с контактами владельца,
// используется для предупреждений о скором окончании.
type ExpiringInstance struct {
	Instance
	Contact Contact
}

// Snapshot — состояние прав доступа аккаунта после операции жизненного цикла.
type Snapshot struct {
	AccountID          string     `json:"account_id"`
	Subscribed         bool       `json:"subscribed"`
	HasFreeTrial       bool       `json:"has_free_trial"`
	GazetteAccess      bool       `json:"gazette_access"`
	ActiveSubscription *Instance  `json:"active_subscription"`
	Subscriptions      []Instance `json:"subscriptions"`
}

// NewSnapshot собирает Snapshot из аккаунта и его экземпляров.
func NewSnapshot(account Account, instances []Instance) Snapshot {
	snap := Snapshot{
		AccountID:     account.ID,
		Subscribed:    account.Subscribed,
		HasFreeTrial:  account.HasFreeTrial,
		GazetteAccess: account.GazetteAccess,
		Subscriptions: instances,
	}
	if snap.Subscriptions == nil {
		snap.Subscriptions = []Instance{}
	}
	if account.ActiveSubscriptionID != nil {
		for i := range instances {
			if instances[i].ID == *account.ActiveSubscriptionID {
				active := instances[i]
				snap.ActiveSubscription = &active
				break
			}
		}
	}
	return snap
}

// DummySwitch выбирает активный экземпляр подписки.
type DummySwitch struct {
	InstanceID int64 `json:"subscription_id" validate:"required,gt=0"`
}

// DummyGrant — ручная выдача плана администратором.
type DummyGrant struct {
	PlanID   int64  `json:"plan_id" validate:"required,gt=0"`
	Language string `json:"language" validate:"required"`
}

// DummyExtend переносит дату окончания экземпляра.
type DummyExtend struct {
	EndDate time.Time `json:"end_date" validate:"required"`
}
