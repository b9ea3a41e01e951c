package resourceguard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Tiers(t *testing.T) {
	assert.Equal(t, LevelNormal, classify(0.5, 0.7, 0.85, 0.95))
	assert.Equal(t, LevelWarn, classify(0.72, 0.7, 0.85, 0.95))
	assert.Equal(t, LevelCritical, classify(0.9, 0.7, 0.85, 0.95))
	assert.Equal(t, LevelEmergency, classify(0.99, 0.7, 0.85, 0.95))
}

func TestMemoryGuard_Sample_ReturnsCurrentHeapUsage(t *testing.T) {
	g := NewMemoryGuard(MemoryGuardOptions{
		LimitBytes:   1 << 40, // deliberately huge so the running test process never trips a tier
		WarnPct:      0.7,
		CriticalPct:  0.85,
		EmergencyPct: 0.95,
	}, nil)

	heapAlloc, pct, level := g.Sample()
	assert.Greater(t, heapAlloc, uint64(0))
	assert.Less(t, pct, 0.7)
	assert.Equal(t, LevelNormal, level)
}

func TestMemoryGuard_RunCleanup_InvokesInPriorityOrder(t *testing.T) {
	var order []string
	g := NewMemoryGuard(DefaultMemoryGuardOptions(), nil)

	g.RegisterStrategy(CleanupStrategy{
		Name:     "low-priority",
		Priority: 10,
		Run: func(ctx context.Context) (int64, int, error) {
			order = append(order, "low-priority")
			return 100, 1, nil
		},
	})
	g.RegisterStrategy(CleanupStrategy{
		Name:     "high-priority",
		Priority: 0,
		Run: func(ctx context.Context) (int64, int, error) {
			order = append(order, "high-priority")
			return 200, 2, nil
		},
	})

	freed, removed := g.RunCleanup(context.Background(), LevelCritical)
	assert.Equal(t, []string{"high-priority", "low-priority"}, order)
	assert.Equal(t, int64(300), freed)
	assert.Equal(t, 3, removed)
}

func TestMemoryGuard_RunCleanup_StopsAfterNoOpStrategyBelowEmergency(t *testing.T) {
	var calledSecond bool
	g := NewMemoryGuard(DefaultMemoryGuardOptions(), nil)

	g.RegisterStrategy(CleanupStrategy{
		Name:     "freed-nothing",
		Priority: 0,
		Run: func(ctx context.Context) (int64, int, error) {
			return 0, 0, nil
		},
	})
	g.RegisterStrategy(CleanupStrategy{
		Name:     "never-reached",
		Priority: 1,
		Run: func(ctx context.Context) (int64, int, error) {
			calledSecond = true
			return 50, 1, nil
		},
	})

	g.RunCleanup(context.Background(), LevelWarn)
	assert.False(t, calledSecond, "a strategy that freed nothing should short-circuit the rest at non-emergency levels")
}

func TestMemoryGuard_RunCleanup_RunsAllStrategiesAtEmergency(t *testing.T) {
	calls := 0
	g := NewMemoryGuard(DefaultMemoryGuardOptions(), nil)

	for i := 0; i < 3; i++ {
		g.RegisterStrategy(CleanupStrategy{
			Name:     "noop",
			Priority: i,
			Run: func(ctx context.Context) (int64, int, error) {
				calls++
				return 0, 0, nil
			},
		})
	}

	g.RunCleanup(context.Background(), LevelEmergency)
	assert.Equal(t, 3, calls, "emergency level must exhaust every strategy regardless of individual yield")
}

func TestMemoryGuard_Tick_FiresOnPressureOnlyOnLevelChange(t *testing.T) {
	var levels []Level
	g := NewMemoryGuard(MemoryGuardOptions{
		LimitBytes:   1, // tiny limit guarantees an immediate emergency reading
		WarnPct:      0.1,
		CriticalPct:  0.2,
		EmergencyPct: 0.3,
	}, func(l Level) { levels = append(levels, l) })

	g.tick(context.Background())
	g.tick(context.Background())

	assert.Len(t, levels, 1, "a second tick at the same level must not re-fire onPressure")
	assert.Equal(t, LevelEmergency, levels[0])
}
