package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/storage"
)

type storageTx = storage.AccountTx

func TestStorage_AccountLifecycle(t *testing.T) {
	s := setupTestDatabase(t)
	f := newTestDataFactory(t, s)
	ctx := context.Background()

	id := f.account("alice@example.com")

	acc, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", acc.Email)
	assert.True(t, acc.HasFreeTrial)
	assert.False(t, acc.Subscribed)
	assert.Nil(t, acc.ActiveSubscriptionID)

	byEmail, err := s.GetAccountByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)

	_, err = s.CreateAccount(ctx, models.Account{Names: "dup", Email: "alice@example.com", PasswordHash: "x", Role: models.RoleUser})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, s.UpdateProfile(ctx, id, models.DummyProfile{Names: "Alice B"}))
	acc, err = s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", acc.Names)
	assert.Equal(t, "250788000000", acc.PhoneNumber)

	_, err = s.GetAccount(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStorage_Plans(t *testing.T) {
	s := setupTestDatabase(t)
	f := newTestDataFactory(t, s)
	ctx := context.Background()

	cheap := f.plan("Weekly", 1000, ptr(5), 7)
	f.plan("Monthly", 5000, nil, 30)
	f.plan("Quarter", 12000, ptr(100), 90)

	all, err := s.ListPlans(ctx, models.PlanFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Weekly", all[0].Name)

	ranged, err := s.ListPlans(ctx, models.PlanFilter{MinPrice: ptr(int64(2000)), MaxPrice: ptr(int64(10000))})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "Monthly", ranged[0].Name)
	assert.Nil(t, ranged[0].ExamAttemptsLimit)

	byDays, err := s.ListPlans(ctx, models.PlanFilter{ValidityDays: ptr(90)})
	require.NoError(t, err)
	require.Len(t, byDays, 1)

	require.NoError(t, s.UpdatePlan(ctx, cheap, models.Plan{Name: "Weekly+", Price: 1500, ExamAttemptsLimit: ptr(6), ValidityDays: 7}))
	p, err := s.GetPlan(ctx, cheap)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), p.Price)
	assert.Equal(t, 6, *p.ExamAttemptsLimit)

	account := f.account("plan@example.com")
	f.instance(account, cheap, time.Now(), time.Now().Add(time.Hour), ptr(3))
	assert.ErrorIs(t, s.RemovePlan(ctx, cheap), apperr.ErrConflict, "referenced plan cannot be removed")

	assert.ErrorIs(t, s.RemovePlan(ctx, 99999), apperr.ErrNotFound)
}

func TestStorage_WithinAccount_RollbackOnError(t *testing.T) {
	s := setupTestDatabase(t)
	f := newTestDataFactory(t, s)
	ctx := context.Background()

	account := f.account("rollback@example.com")
	plan := f.plan("Monthly", 5000, nil, 30)
	now := time.Now().UTC()

	boom := errors.New("boom")
	err := s.WithinAccount(ctx, account, func(ctx context.Context, tx storageTx) error {
		id, err := tx.CreateInstance(ctx, models.Instance{PlanID: plan, StartDate: now, EndDate: now.Add(time.Hour)})
		require.NoError(t, err)
		require.NoError(t, tx.SetActive(ctx, &id, true))
		return boom
	})
	require.ErrorIs(t, err, boom)

	instances, err := s.ListInstances(ctx, account)
	require.NoError(t, err)
	assert.Empty(t, instances)

	acc, err := s.GetAccount(ctx, account)
	require.NoError(t, err)
	assert.False(t, acc.Subscribed)
	assert.Nil(t, acc.ActiveSubscriptionID)
}

func TestStorage_WithinAccount_UnknownAccount(t *testing.T) {
	s := setupTestDatabase(t)

	err := s.WithinAccount(context.Background(), "00000000-0000-0000-0000-000000000000",
		func(context.Context, storageTx) error { return nil })
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStorage_Constraints(t *testing.T) {
	s := setupTestDatabase(t)
	f := newTestDataFactory(t, s)
	ctx := context.Background()

	owner := f.account("owner@example.com")
	other := f.account("other@example.com")
	plan := f.plan("Monthly", 5000, nil, 30)
	now := time.Now().UTC()
	inst := f.instance(owner, plan, now, now.Add(time.Hour), nil)

	t.Run("active instance must belong to the account", func(t *testing.T) {
		err := s.WithinAccount(ctx, other, func(ctx context.Context, tx storageTx) error {
			return tx.SetActive(ctx, &inst, true)
		})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("subscribed must match active pointer", func(t *testing.T) {
		err := s.WithinAccount(ctx, owner, func(ctx context.Context, tx storageTx) error {
			return tx.SetActive(ctx, nil, true)
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})

	t.Run("active instance cannot be deleted while referenced", func(t *testing.T) {
		f.activate(owner, inst)
		err := s.WithinAccount(ctx, owner, func(ctx context.Context, tx storageTx) error {
			return tx.DeleteInstances(ctx, []int64{inst})
		})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})
}

func TestStorage_DecrementAttempts(t *testing.T) {
	s := setupTestDatabase(t)
	f := newTestDataFactory(t, s)
	ctx := context.Background()

	account := f.account("quota@example.com")
	plan := f.plan("Weekly", 1000, ptr(1), 7)
	now := time.Now().UTC()
	inst := f.instance(account, plan, now, now.Add(time.Hour), ptr(1))

	err := s.WithinAccount(ctx, account, func(ctx context.Context, tx storageTx) error {
		left, err := tx.DecrementAttempts(ctx, inst)
		require.NoError(t, err)
		assert.Equal(t, 0, left)
		return nil
	})
	require.NoError(t, err)

	err = s.WithinAccount(ctx, account, func(ctx context.Context, tx storageTx) error {
		_, err := tx.DecrementAttempts(ctx, inst)
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrQuotaExhausted)

	got, err := s.GetInstance(ctx, inst)
	require.NoError(t, err)
	require.NotNil(t, got.AttemptsLeft)
	assert.Equal(t, 0, *got.AttemptsLeft)
}

func TestStorage_ConcurrentDecrementNeverGoesNegative(t *testing.T) {
	s := setupTestDatabase(t)
	f := newTestDataFactory(t, s)
	ctx := context.Background()

	account := f.account("race@example.com")
	plan := f.plan("Weekly", 1000, ptr(5), 7)
	now := time.Now().UTC()
	inst := f.instance(account, plan, now, now.Add(time.Hour), ptr(5))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinAccount(ctx, account, func(ctx context.Context, tx storageTx) error {
				if _, err := tx.CreateAttempt(ctx, models.ExamAttempt{AttemptDate: time.Now(), Score: 10}); err != nil {
					return err
				}
				_, err := tx.DecrementAttempts(ctx, inst)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperr.ErrQuotaExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, exhausted)

	stats, err := s.AttemptStats(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalAttempts, "failed decrements must roll back their attempts")
}

func TestStorage_ExpiryQueries(t *testing.T) {
	s := setupTestDatabase(t)
	f := newTestDataFactory(t, s)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	a := f.account("a@example.com")
	b := f.account("b@example.com")
	plan := f.plan("Monthly", 5000, nil, 30)

	f.instance(a, plan, now.Add(-48*time.Hour), now.Add(-time.Hour), nil)
	f.instance(a, plan, now.Add(-48*time.Hour), now.Add(2*time.Hour), nil)
	f.instance(b, plan, now.Add(-48*time.Hour), now, nil)
	f.instance(b, plan, now.Add(-48*time.Hour), now.Add(72*time.Hour), nil)

	accounts, err := s.AccountsWithExpiredInstances(ctx, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, accounts)

	expired, err := s.ExpiredInstances(ctx, now)
	require.NoError(t, err)
	assert.Len(t, expired, 2)

	expiring, err := s.ExpiringInstances(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, a, expiring[0].Contact.AccountID)
	assert.Equal(t, "a@example.com", expiring[0].Contact.Email)
	assert.Equal(t, "Monthly", expiring[0].PlanName)
}

func TestStorage_MarkInvoiceProcessed(t *testing.T) {
	s := setupTestDatabase(t)
	f := newTestDataFactory(t, s)
	ctx := context.Background()

	account := f.account("invoice@example.com")

	mark := func() bool {
		var fresh bool
		err := s.WithinAccount(ctx, account, func(ctx context.Context, tx storageTx) error {
			var err error
			fresh, err = tx.MarkInvoiceProcessed(ctx, "INV-1", "TX-sub-s1-EN-1")
			return err
		})
		require.NoError(t, err)
		return fresh
	}

	assert.True(t, mark())
	assert.False(t, mark())
}

func TestStorage_Attempts(t *testing.T) {
	s := setupTestDatabase(t)
	f := newTestDataFactory(t, s)
	ctx := context.Background()

	account := f.account("exam@example.com")
	stats, err := s.AttemptStats(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, models.ExamStats{}, stats)

	err = s.WithinAccount(ctx, account, func(ctx context.Context, tx storageTx) error {
		for i, score := range []int{12, 18, 9} {
			if _, err := tx.CreateAttempt(ctx, models.ExamAttempt{
				AttemptDate: time.Now().Add(time.Duration(i) * time.Minute),
				Score:       score,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	stats, err = s.AttemptStats(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, models.ExamStats{TotalAttempts: 3, MaxScore: 18}, stats)

	list, err := s.ListAttempts(ctx, account, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 9, list[0].Score)

	other := f.account("other@example.com")
	err = s.WithinAccount(ctx, other, func(ctx context.Context, tx storageTx) error {
		_, err := tx.CreateAttempt(ctx, models.ExamAttempt{AttemptDate: time.Now().Add(time.Hour), Score: 20})
		return err
	})
	require.NoError(t, err)

	all, err := s.ListAllAttempts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, other, all[0].AccountID)
	assert.Equal(t, "other@example.com", all[0].Email)
	assert.Equal(t, "Test User", all[0].Names)
	assert.Equal(t, 20, all[0].Score)

	err = s.WithinAccount(ctx, account, func(ctx context.Context, tx storageTx) error {
		_, err := tx.CreateAttempt(ctx, models.ExamAttempt{AttemptDate: time.Now(), Score: 25})
		return err
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
