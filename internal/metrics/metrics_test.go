package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"AINewsDigest/internal/domain"
)

func TestCollectors(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveItems(domain.SourceNews, 7)
	m.OriginFailed(domain.SourcePaper)
	m.OriginFailed(domain.SourcePaper)
	m.ObserveDelivery(domain.DeliveryReport{Batches: []domain.BatchResult{
		{Index: 0, Recipients: []string{"a"}},
		{Index: 1, Recipients: []string{"b"}, Err: errors.New("boom")},
	}})
	m.ObserveRun(3 * time.Second)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.itemsCollected.WithLabelValues("news")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.originFailures.WithLabelValues("paper")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("failed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveItems(domain.SourceNews, 1)
		m.OriginFailed(domain.SourceNews)
		m.ObserveDelivery(domain.DeliveryReport{})
		m.ObserveRun(time.Second)
	})
	assert.NotNil(t, m.Handler())
}
