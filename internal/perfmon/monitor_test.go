package perfmon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitor_RecordOperation_ComputesAvgMinMax(t *testing.T) {
	m := New(Options{})
	m.RecordOperation("parse", 10)
	m.RecordOperation("parse", 20)
	m.RecordOperation("parse", 30)

	stats := m.Stats("parse")
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 20.0, stats.AvgMs)
	assert.Equal(t, 10.0, stats.MinMs)
	assert.Equal(t, 30.0, stats.MaxMs)
}

func TestMonitor_Stats_ZeroCountForUnseenOperation(t *testing.T) {
	m := New(Options{})
	stats := m.Stats("never_recorded")
	assert.Equal(t, 0, stats.Count)
}

func TestMonitor_RollingWindow_DropsOldestBeyondCapacity(t *testing.T) {
	m := New(Options{WindowSize: 3})
	m.RecordOperation("op", 1)
	m.RecordOperation("op", 2)
	m.RecordOperation("op", 3)
	m.RecordOperation("op", 100) // should evict the sample of 1

	stats := m.Stats("op")
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 2.0, stats.MinMs)
	assert.Equal(t, 100.0, stats.MaxMs)
}

func TestMonitor_RecordOperation_FiresAlertOnThresholdBreach(t *testing.T) {
	var alerts []Alert
	m := New(Options{
		QueryExecutionTimeThresholdMs: 50,
		OnAlert: func(a Alert) { alerts = append(alerts, a) },
	})

	m.RecordOperation("search", 10)
	m.RecordOperation("search", 75)

	assert.Len(t, alerts, 1)
	assert.Equal(t, "search", alerts[0].Operation)
	assert.Equal(t, 75.0, alerts[0].DurationMs)
}

func TestMonitor_RecordOperation_NoAlertWhenThresholdDisabled(t *testing.T) {
	var alerts []Alert
	m := New(Options{OnAlert: func(a Alert) { alerts = append(alerts, a) }})

	m.RecordOperation("search", 99999)
	assert.Empty(t, alerts)
}

func TestMonitor_RecordQueryExecution_UsesFixedOperationName(t *testing.T) {
	m := New(Options{})
	m.RecordQueryExecution(42)

	stats := m.Stats("query_execution")
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 42.0, stats.AvgMs)
}

func TestMonitor_Track_RecordsElapsedDuration(t *testing.T) {
	m := New(Options{})
	done := m.Track("work")
	done()

	stats := m.Stats("work")
	assert.Equal(t, 1, stats.Count)
	assert.GreaterOrEqual(t, stats.AvgMs, 0.0)
}

func TestMonitor_AllStats_SortedByOperationName(t *testing.T) {
	m := New(Options{})
	m.RecordOperation("zeta", 1)
	m.RecordOperation("alpha", 2)

	all := m.AllStats()
	assert.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Operation)
	assert.Equal(t, "zeta", all[1].Operation)
}
