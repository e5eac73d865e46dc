package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Uploads.WithLabelValues("success").Inc()
	m.OrphanedObjects.Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Uploads.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OrphanedObjects))

	_, err = New(reg)
	assert.Error(t, err, "registering twice on one registry must fail")
}
