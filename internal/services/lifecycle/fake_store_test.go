package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/storage"
)

// fakeStore хранит данные в памяти с транзакционной семантикой: изменения
// внутри WithinAccount откатываются при ошибке.
type fakeStore struct {
	mu        sync.Mutex
	accounts  map[string]*models.Account
	plans     map[int64]*models.Plan
	instances map[int64]*models.Instance
	attempts  []models.ExamAttempt
	invoices  map[string]bool
	nextID    int64

	failAccounts map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:     map[string]*models.Account{},
		plans:        map[int64]*models.Plan{},
		instances:    map[int64]*models.Instance{},
		invoices:     map[string]bool{},
		failAccounts: map[string]error{},
	}
}

func (f *fakeStore) addAccount(id string, freeTrial bool) {
	f.accounts[id] = &models.Account{ID: id, Names: "User " + id, Email: id + "@example.com", PhoneNumber: "250700000000", HasFreeTrial: freeTrial}
}

func (f *fakeStore) addPlan(id int64, name string, price int64, limit *int, days int) {
	f.plans[id] = &models.Plan{ID: id, Name: name, Price: price, ExamAttemptsLimit: limit, ValidityDays: days}
}

func (f *fakeStore) addInstance(accountID string, planID int64, start, end time.Time, left *int) int64 {
	f.nextID++
	f.instances[f.nextID] = &models.Instance{
		ID: f.nextID, AccountID: accountID, PlanID: planID,
		StartDate: start, EndDate: end, AttemptsLeft: copyInt(left),
	}
	return f.nextID
}

func (f *fakeStore) setActive(accountID string, id int64) {
	a := f.accounts[accountID]
	a.ActiveSubscriptionID = &id
	a.Subscribed = true
}

func (f *fakeStore) account(id string) models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.accounts[id]
}

func (f *fakeStore) instancesOf(accountID string) []models.Instance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.instancesLocked(accountID)
}

func (f *fakeStore) instancesLocked(accountID string) []models.Instance {
	var out []models.Instance
	for _, inst := range f.instances {
		if inst.AccountID != accountID {
			continue
		}
		c := *inst
		c.AttemptsLeft = copyInt(inst.AttemptsLeft)
		plan := f.plans[inst.PlanID]
		c.PlanName, c.PlanPrice = plan.Name, plan.Price
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeState struct {
	accounts  map[string]models.Account
	instances map[int64]models.Instance
	attempts  int
	invoices  map[string]bool
}

func (f *fakeStore) save() fakeState {
	st := fakeState{
		accounts:  map[string]models.Account{},
		instances: map[int64]models.Instance{},
		attempts:  len(f.attempts),
		invoices:  map[string]bool{},
	}
	for k, v := range f.accounts {
		st.accounts[k] = *v
	}
	for k, v := range f.instances {
		c := *v
		c.AttemptsLeft = copyInt(v.AttemptsLeft)
		st.instances[k] = c
	}
	for k, v := range f.invoices {
		st.invoices[k] = v
	}
	return st
}

func (f *fakeStore) restore(st fakeState) {
	f.accounts = map[string]*models.Account{}
	for k, v := range st.accounts {
		a := v
		f.accounts[k] = &a
	}
	f.instances = map[int64]*models.Instance{}
	for k, v := range st.instances {
		i := v
		f.instances[k] = &i
	}
	f.attempts = f.attempts[:st.attempts]
	f.invoices = st.invoices
}

func (f *fakeStore) WithinAccount(ctx context.Context, accountID string, fn storage.TxFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failAccounts[accountID]; err != nil {
		return err
	}
	if _, ok := f.accounts[accountID]; !ok {
		return fmt.Errorf("account %s: %w", accountID, apperr.ErrNotFound)
	}

	saved := f.save()
	tx := &fakeTx{store: f, accountID: accountID}
	if err := fn(ctx, tx); err != nil {
		f.restore(saved)
		return err
	}
	if err := f.checkInvariants(accountID); err != nil {
		f.restore(saved)
		return err
	}
	return nil
}

func (f *fakeStore) checkInvariants(accountID string) error {
	a := f.accounts[accountID]
	if a.Subscribed != (a.ActiveSubscriptionID != nil) {
		return fmt.Errorf("subscribed flag mismatch: %w", apperr.ErrInvalidInput)
	}
	if a.ActiveSubscriptionID != nil {
		inst, ok := f.instances[*a.ActiveSubscriptionID]
		if !ok || inst.AccountID != accountID {
			return fmt.Errorf("active instance not owned: %w", apperr.ErrConflict)
		}
	}
	return nil
}

func (f *fakeStore) GetAccount(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (f *fakeStore) AccountsWithExpiredInstances(_ context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, inst := range f.instances {
		if inst.Expired(now) && !seen[inst.AccountID] {
			seen[inst.AccountID] = true
			ids = append(ids, inst.AccountID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) ExpiringInstances(_ context.Context, from, to time.Time) ([]models.ExpiringInstance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ExpiringInstance
	for _, a := range f.accounts {
		for _, inst := range f.instancesLocked(a.ID) {
			if inst.EndDate.After(from) && !inst.EndDate.After(to) {
				out = append(out, models.ExpiringInstance{Instance: inst, Contact: a.Contact()})
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetPlan(_ context.Context, id int64) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakeStore) GetInstance(_ context.Context, id int64) (*models.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	c := *inst
	return &c, nil
}

func (f *fakeStore) ExtendInstance(_ context.Context, id int64, endDate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[id]
	if !ok {
		return apperr.ErrNotFound
	}
	inst.EndDate = endDate
	return nil
}

func (f *fakeStore) ListAttempts(_ context.Context, accountID string, limit, offset int) ([]models.ExamAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ExamAttempt
	for i := len(f.attempts) - 1; i >= 0; i-- {
		if f.attempts[i].AccountID == accountID {
			out = append(out, f.attempts[i])
		}
	}
	if offset >= len(out) {
		return []models.ExamAttempt{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) AttemptStats(_ context.Context, accountID string) (models.ExamStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats models.ExamStats
	for _, a := range f.attempts {
		if a.AccountID == accountID {
			stats.TotalAttempts++
			stats.MaxScore = max(stats.MaxScore, a.Score)
		}
	}
	return stats, nil
}

func (f *fakeStore) ListAllAttempts(_ context.Context, limit, offset int) ([]models.AttemptWithOwner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.AttemptWithOwner{}
	for i := len(f.attempts) - 1; i >= 0; i-- {
		a := f.attempts[i]
		owner := f.accounts[a.AccountID]
		out = append(out, models.AttemptWithOwner{ExamAttempt: a, Names: owner.Names, Email: owner.Email})
	}
	if offset >= len(out) {
		return []models.AttemptWithOwner{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) attemptsOf(accountID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.attempts {
		if a.AccountID == accountID {
			n++
		}
	}
	return n
}

// fakeTx работает под блокировкой fakeStore.mu, взятой в WithinAccount.
type fakeTx struct {
	store     *fakeStore
	accountID string
}

var _ storage.AccountTx = (*fakeTx)(nil)

func (t *fakeTx) Account() models.Account { return *t.store.accounts[t.accountID] }

func (t *fakeTx) Instances(context.Context) ([]models.Instance, error) {
	return t.store.instancesLocked(t.accountID), nil
}

func (t *fakeTx) DeleteInstances(_ context.Context, ids []int64) error {
	a := t.store.accounts[t.accountID]
	for _, id := range ids {
		if a.ActiveSubscriptionID != nil && *a.ActiveSubscriptionID == id {
			return fmt.Errorf("instance %d is referenced: %w", id, apperr.ErrConflict)
		}
		if inst, ok := t.store.instances[id]; ok && inst.AccountID == t.accountID {
			delete(t.store.instances, id)
		}
	}
	return nil
}

func (t *fakeTx) SetActive(_ context.Context, active *int64, subscribed bool) error {
	a := t.store.accounts[t.accountID]
	a.ActiveSubscriptionID = active
	a.Subscribed = subscribed
	return nil
}

func (t *fakeTx) CreateInstance(_ context.Context, inst models.Instance) (int64, error) {
	t.store.nextID++
	inst.ID = t.store.nextID
	inst.AccountID = t.accountID
	t.store.instances[inst.ID] = &inst
	return inst.ID, nil
}

func (t *fakeTx) CreateAttempt(_ context.Context, attempt models.ExamAttempt) (int64, error) {
	attempt.ID = int64(len(t.store.attempts) + 1)
	attempt.AccountID = t.accountID
	t.store.attempts = append(t.store.attempts, attempt)
	return attempt.ID, nil
}

func (t *fakeTx) DecrementAttempts(_ context.Context, instanceID int64) (int, error) {
	inst, ok := t.store.instances[instanceID]
	if !ok || inst.AttemptsLeft == nil || *inst.AttemptsLeft <= 0 {
		return 0, apperr.ErrQuotaExhausted
	}
	*inst.AttemptsLeft--
	return *inst.AttemptsLeft, nil
}

func (t *fakeTx) ClearFreeTrial(context.Context) error {
	t.store.accounts[t.accountID].HasFreeTrial = false
	return nil
}

func (t *fakeTx) SetGazetteAccess(_ context.Context, allowed bool) error {
	t.store.accounts[t.accountID].GazetteAccess = allowed
	return nil
}

func (t *fakeTx) MarkInvoiceProcessed(_ context.Context, invoiceNumber, _ string) (bool, error) {
	if t.store.invoices[invoiceNumber] {
		return false, nil
	}
	t.store.invoices[invoiceNumber] = true
	return true, nil
}
