package guard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GSejas/health-watch-sub002/internal/application/guard"
)

func TestEvaluate_NoRefsPasses(t *testing.T) {
	ev := guard.New()
	agg := ev.Evaluate(context.Background(), nil)
	assert.True(t, agg.AllPassed)
}

func TestEvaluate_AllPass(t *testing.T) {
	ev := guard.New()
	ev.Register("iface-up", func(ctx context.Context) (bool, error) { return true, nil })
	ev.Register("dns-ok", func(ctx context.Context) (bool, error) { return true, nil })

	agg := ev.Evaluate(context.Background(), []string{"iface-up", "dns-ok"})
	assert.True(t, agg.AllPassed)
	assert.Empty(t, agg.Failures)
}

func TestEvaluate_OneFails(t *testing.T) {
	ev := guard.New()
	ev.Register("iface-up", func(ctx context.Context) (bool, error) { return false, nil })

	agg := ev.Evaluate(context.Background(), []string{"iface-up"})
	assert.False(t, agg.AllPassed)
	assert.Len(t, agg.Failures, 1)
}

func TestEvaluate_ErrorTreatedAsFailure(t *testing.T) {
	ev := guard.New()
	ev.Register("flaky", func(ctx context.Context) (bool, error) { return false, errors.New("boom") })

	agg := ev.Evaluate(context.Background(), []string{"flaky"})
	assert.False(t, agg.AllPassed)
}

func TestEvaluate_UnregisteredGuardFails(t *testing.T) {
	ev := guard.New()
	agg := ev.Evaluate(context.Background(), []string{"does-not-exist"})
	assert.False(t, agg.AllPassed)
	assert.Len(t, agg.Failures, 1)
}

func TestEvaluate_ResultIsCachedBetweenCalls(t *testing.T) {
	ev := guard.New()
	calls := 0
	ev.Register("counted", func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	})

	ev.Evaluate(context.Background(), []string{"counted"})
	ev.Evaluate(context.Background(), []string{"counted"})
	assert.Equal(t, 1, calls)
}

func TestEvaluate_ReregisterInvalidatesCache(t *testing.T) {
	ev := guard.New()
	ev.Register("flip", func(ctx context.Context) (bool, error) { return true, nil })
	ev.Evaluate(context.Background(), []string{"flip"})

	ev.Register("flip", func(ctx context.Context) (bool, error) { return false, nil })
	agg := ev.Evaluate(context.Background(), []string{"flip"})
	assert.False(t, agg.AllPassed)
}

func TestEvaluate_PanicRecoveredAsFailure(t *testing.T) {
	ev := guard.New()
	ev.Register("panicky", func(ctx context.Context) (bool, error) { panic("boom") })

	agg := ev.Evaluate(context.Background(), []string{"panicky"})
	assert.False(t, agg.AllPassed)
}
