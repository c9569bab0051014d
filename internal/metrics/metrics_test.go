package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SweepRuns.Inc()
	m.PurgedInstances.Add(3)
	m.NotificationsSent.WithLabelValues("email").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SweepRuns))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.PurgedInstances))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsSent.WithLabelValues("email")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "entitlements_sweep_runs_total")
	assert.Contains(t, names, "entitlements_purged_instances_total")
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
