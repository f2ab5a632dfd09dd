package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recv(t *testing.T, p *Poller) ResultMsg {
	t.Helper()
	select {
	case msg := <-p.Results():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
		return ResultMsg{}
	}
}

func TestPoller_RunsImmediatelyAndOnInterval(t *testing.T) {
	p := New(zap.NewNop(), 16)
	defer p.StopAll()

	var calls int32
	h := p.Start("reviews", 30*time.Millisecond, func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	})

	first := recv(t, p)
	assert.Equal(t, "reviews", first.Job)
	assert.Equal(t, h, first.Handle)
	assert.Equal(t, int32(1), first.Value)
	assert.NoError(t, first.Err)

	second := recv(t, p)
	assert.Equal(t, int32(2), second.Value)
	assert.True(t, p.Active(h))
}

func TestPoller_StopDiscardsLateResult(t *testing.T) {
	p := New(zap.NewNop(), 16)

	started := make(chan struct{})
	release := make(chan struct{})
	h := p.Start("slow", time.Hour, func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		return "late", nil
	})

	<-started
	p.Stop(h)
	close(release)

	assert.False(t, p.Active(h))
	select {
	case msg := <-p.Results():
		t.Fatalf("unexpected result after stop: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPoller_StopCancelsTaskContext(t *testing.T) {
	p := New(zap.NewNop(), 16)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	h := p.Start("blocking", time.Hour, func(ctx context.Context) (interface{}, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	})

	<-started
	p.Stop(h)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
}

func TestPoller_NoInvocationAfterStop(t *testing.T) {
	p := New(zap.NewNop(), 64)

	var calls int32
	h := p.Start("fast", 10*time.Millisecond, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	})

	time.Sleep(50 * time.Millisecond)
	p.Stop(h)
	after := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, after, atomic.LoadInt32(&calls))
}

func TestPoller_TicksOverlap(t *testing.T) {
	p := New(zap.NewNop(), 64)
	defer p.StopAll()

	var current, peak int32
	p.Start("overlap", 10*time.Millisecond, func(ctx context.Context) (interface{}, error) {
		n := atomic.AddInt32(&current, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(60 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return nil, nil
	})

	time.Sleep(100 * time.Millisecond)
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestPoller_Refresh(t *testing.T) {
	p := New(zap.NewNop(), 16)
	defer p.StopAll()

	var calls int32
	h := p.Start("manual", time.Hour, func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	})

	recv(t, p)
	p.Refresh(h)
	msg := recv(t, p)
	assert.Equal(t, int32(2), msg.Value)
}

func TestPoller_ErrorIsDeliveredAndJobKeepsRunning(t *testing.T) {
	p := New(zap.NewNop(), 16)
	defer p.StopAll()

	boom := errors.New("boom")
	h := p.Start("failing", 20*time.Millisecond, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})

	msg := recv(t, p)
	assert.ErrorIs(t, msg.Err, boom)
	recv(t, p)
	assert.True(t, p.Active(h))

	statuses := p.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "failing", statuses[0].Name)
}

func TestPoller_StopUnknownHandleIsNoop(t *testing.T) {
	p := New(zap.NewNop(), 1)
	assert.NotPanics(t, func() {
		p.Stop(Handle(42))
		p.Refresh(Handle(42))
	})
}

func TestPoller_DropsWhenChannelFull(t *testing.T) {
	p := New(zap.NewNop(), 1)
	defer p.StopAll()

	p.Start("a", time.Hour, func(ctx context.Context) (interface{}, error) { return "a", nil })
	p.Start("b", time.Hour, func(ctx context.Context) (interface{}, error) { return "b", nil })

	time.Sleep(50 * time.Millisecond)
	recv(t, p)
	select {
	case msg := <-p.Results():
		t.Fatalf("expected second result to be dropped, got %+v", msg)
	default:
	}
}
