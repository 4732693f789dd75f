package dispatcher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GSejas/health-watch-sub002/internal/application/dispatcher"
	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
)

func testChannel(kind channel.Kind) channel.Channel {
	return channel.Channel{ID: "web", Kind: kind, TimeoutMs: 1000}
}

func TestDispatch_Success(t *testing.T) {
	d := dispatcher.New(1)
	d.Register(channel.KindTask, func(ctx context.Context, params map[string]string) dispatcher.Outcome {
		return dispatcher.Outcome{Success: true, LatencyMs: 3, HasLatency: true}
	})

	sample := d.Dispatch(context.Background(), testChannel(channel.KindTask), time.Now().Add(time.Second))
	assert.True(t, sample.Success)
	assert.Equal(t, "web", sample.ChannelID)
}

func TestDispatch_UnregisteredKind(t *testing.T) {
	d := dispatcher.New(1)
	sample := d.Dispatch(context.Background(), testChannel(channel.KindHTTP), time.Now().Add(time.Second))
	assert.False(t, sample.Success)
	assert.Contains(t, sample.Error, "no probe operation registered")
}

func TestDispatch_Timeout(t *testing.T) {
	d := dispatcher.New(1)
	d.Register(channel.KindTask, func(ctx context.Context, params map[string]string) dispatcher.Outcome {
		<-ctx.Done()
		return dispatcher.Outcome{Success: false}
	})

	sample := d.Dispatch(context.Background(), testChannel(channel.KindTask), time.Now().Add(10*time.Millisecond))
	assert.False(t, sample.Success)
	assert.Equal(t, "timeout", sample.Error)
}

func TestDispatch_OperationPanicRecovers(t *testing.T) {
	d := dispatcher.New(1)
	d.Register(channel.KindTask, func(ctx context.Context, params map[string]string) dispatcher.Outcome {
		panic("boom")
	})

	sample := d.Dispatch(context.Background(), testChannel(channel.KindTask), time.Now().Add(time.Second))
	assert.False(t, sample.Success)
	assert.Contains(t, sample.Error, "panicked")
}

func TestQueueDepth_ReflectsInFlightDispatch(t *testing.T) {
	d := dispatcher.New(1)
	release := make(chan struct{})
	d.Register(channel.KindTask, func(ctx context.Context, params map[string]string) dispatcher.Outcome {
		<-release
		return dispatcher.Outcome{Success: true}
	})

	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), testChannel(channel.KindTask), time.Now().Add(time.Second))
		close(done)
	}()

	assert.Eventually(t, func() bool { return d.QueueDepth() == 1 }, time.Second, time.Millisecond)
	close(release)
	<-done
}
