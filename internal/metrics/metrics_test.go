package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestObserveRequestIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	once = sync.Once{}
	m := New(reg)

	m.ObserveRequest("/version", 200)
	m.ObserveRequest("/version", 200)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, float64(2), counterValue(t, families, "failsafe_requests_total"))
}

func TestNilReceiverIsNoOp(t *testing.T) {
	var m *Recovery
	require.NotPanics(t, func() {
		m.ObserveRequest("/x", 200)
		m.ObserveFlashOp("read", true)
	})
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name string) float64 {
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var total float64
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
		return total
	}
	t.Fatalf("metric family %s not found", name)
	return 0
}
