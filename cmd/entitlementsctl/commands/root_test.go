package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

func TestRoot_RequiresConfig(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	root := NewRoot()
	root.SetArgs([]string{"sweep"})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))

	err := root.Execute()
	assert.ErrorIs(t, err, errConfigRequired)
}

func TestRoot_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: local\nnotifications:\n  mode: carrier-pigeon\n"), 0o600))
	t.Setenv("STORAGE_CONNECTION_STRING", "postgres://localhost/exam")
	t.Setenv("JWT_SECRET_KEY", "secret")

	root := NewRoot()
	root.SetArgs([]string{"migrate", "--config", path})
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown notifications mode")
}

func TestRoot_Commands(t *testing.T) {
	root := NewRoot()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"sweep", "migrate"})
}

type listerStub struct {
	instances []models.Instance
	err       error
	asOf      time.Time
}

func (l *listerStub) ExpiredInstances(_ context.Context, now time.Time) ([]models.Instance, error) {
	l.asOf = now
	return l.instances, l.err
}

func TestPrintPending(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &listerStub{instances: []models.Instance{
		{ID: 3, AccountID: "acc-1", PlanName: "Weekly", EndDate: now.Add(-time.Hour)},
		{ID: 9, AccountID: "acc-2", PlanName: "Gold", EndDate: now},
	}}

	var out bytes.Buffer
	require.NoError(t, printPending(context.Background(), &out, store, now))

	assert.Equal(t, now, store.asOf)
	assert.Equal(t,
		"account=acc-1 instance=3 plan=\"Weekly\" end_date=2025-05-01T11:00:00Z\n"+
			"account=acc-2 instance=9 plan=\"Gold\" end_date=2025-05-01T12:00:00Z\n"+
			"pending=2\n",
		out.String())
}

func TestPrintPending_StoreError(t *testing.T) {
	store := &listerStub{err: errors.New("connection refused")}
	err := printPending(context.Background(), new(bytes.Buffer), store, time.Now())
	assert.EqualError(t, err, "connection refused")
}

func TestSweep_DryRunFlag(t *testing.T) {
	sweep, _, err := NewRoot().Find([]string{"sweep"})
	require.NoError(t, err)
	flag := sweep.Flags().Lookup("dry-run")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
