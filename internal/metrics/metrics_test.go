package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCollector(reg)

	m.Samples.WithLabelValues("foot").Inc()
	m.Samples.WithLabelValues("foot").Inc()
	m.Jumps.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Samples.WithLabelValues("foot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Jumps))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewServerRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServer(reg)
	m.Broadcasts.WithLabelValues("shot").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Broadcasts.WithLabelValues("shot")))

	assert.Panics(t, func() { NewServer(reg) }, "double registration")
}
