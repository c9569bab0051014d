package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/exam-subscriptions/internal/migrations"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	t.Cleanup(func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return storage
}

// testDataFactory создаёт тестовые записи напрямую через Storage.
type testDataFactory struct {
	t       *testing.T
	storage *Storage
}

func newTestDataFactory(t *testing.T, storage *Storage) *testDataFactory {
	return &testDataFactory{t: t, storage: storage}
}

func (f *testDataFactory) account(email string) string {
	id, err := f.storage.CreateAccount(context.Background(), models.Account{
		Names:        "Test User",
		Email:        email,
		PhoneNumber:  "250788000000",
		PasswordHash: "hash",
		Role:         models.RoleUser,
		HasFreeTrial: true,
	})
	require.NoError(f.t, err)
	return id
}

func (f *testDataFactory) plan(name string, price int64, limit *int, days int) int64 {
	id, err := f.storage.CreatePlan(context.Background(), models.Plan{
		Name:              name,
		Price:             price,
		ExamAttemptsLimit: limit,
		ValidityDays:      days,
	})
	require.NoError(f.t, err)
	return id
}

func (f *testDataFactory) instance(accountID string, planID int64, start, end time.Time, left *int) int64 {
	var id int64
	err := f.storage.WithinAccount(context.Background(), accountID, func(ctx context.Context, tx storageTx) error {
		var err error
		id, err = tx.CreateInstance(ctx, models.Instance{
			PlanID:       planID,
			StartDate:    start,
			EndDate:      end,
			Language:     "EN",
			AttemptsLeft: left,
		})
		return err
	})
	require.NoError(f.t, err)
	return id
}

func (f *testDataFactory) activate(accountID string, instanceID int64) {
	err := f.storage.WithinAccount(context.Background(), accountID, func(ctx context.Context, tx storageTx) error {
		return tx.SetActive(ctx, &instanceID, true)
	})
	require.NoError(f.t, err)
}

func ptr[T any](v T) *T { return &v }
