package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordTransition("IN_PROGRESS", "PENDING_CASH_COUNT")
	m.RecordTransition("IN_PROGRESS", "PENDING_CASH_COUNT")
	m.RecordRecompute("tick", 20*time.Millisecond, 3, nil)
	m.RecordRecompute("tick", time.Millisecond, 0, errors.New("db down"))
	m.RecordSync("ok", time.Second)
	m.RecordSyncDocuments("mercadillos", "push", 2)
	m.RecordSyncDocuments("mercadillos", "pull", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StateTransitionsTotal.WithLabelValues("IN_PROGRESS", "PENDING_CASH_COUNT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecomputeRunsTotal.WithLabelValues("tick", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecomputeRunsTotal.WithLabelValues("tick", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecomputeChangedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyncDocumentsTotal.WithLabelValues("mercadillos", "push")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SyncDocumentsTotal))
}
