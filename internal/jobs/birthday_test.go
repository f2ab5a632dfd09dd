package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/model"
)

// MockReconciler is a mock type for notify.Reconciler.
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Name() string { return "birthdays" }

func (m *MockReconciler) Reconcile(ctx context.Context) ([]model.Notification, error) {
	args := m.Called(ctx)
	var out []model.Notification
	if args.Get(0) != nil {
		out = args.Get(0).([]model.Notification)
	}
	return out, args.Error(1)
}

type published struct {
	job   string
	value interface{}
	err   error
}

type recorder struct {
	mu  sync.Mutex
	got []published
	ch  chan struct{}
}

func newRecorder() *recorder { return &recorder{ch: make(chan struct{}, 8)} }

func (r *recorder) Publish(job string, value interface{}, err error) {
	r.mu.Lock()
	r.got = append(r.got, published{job, value, err})
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func TestBirthdayJob_RunPublishes(t *testing.T) {
	rec := new(MockReconciler)
	emitted := []model.Notification{{Kind: model.KindBirthday, Message: "Upcoming guest birthday: Sam in 2 day(s)."}}
	rec.On("Reconcile", mock.Anything).Return(emitted, nil).Once()
	rec.On("Reconcile", mock.Anything).Return(nil, errors.New("backend down")).Once()

	pub := newRecorder()
	job := NewBirthdayJob(rec, pub, "", zap.NewNop())

	got, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, emitted, got)

	_, err = job.Run(context.Background())
	assert.EqualError(t, err, "backend down")

	require.Len(t, pub.got, 2)
	assert.Equal(t, BirthdayJobName, pub.got[0].job)
	assert.Equal(t, emitted, pub.got[0].value)
	assert.Error(t, pub.got[1].err)
}

func TestBirthdayJob_StartRunsImmediately(t *testing.T) {
	rec := new(MockReconciler)
	rec.On("Reconcile", mock.Anything).Return(nil, nil)

	pub := newRecorder()
	job := NewBirthdayJob(rec, pub, "@daily", zap.NewNop())
	require.NoError(t, job.Start())
	defer job.Stop()

	select {
	case <-pub.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not run on start")
	}
}

func TestBirthdayJob_InvalidSchedule(t *testing.T) {
	job := NewBirthdayJob(new(MockReconciler), nil, "not a cron spec", zap.NewNop())
	assert.Error(t, job.Start())
}

func TestBirthdayJob_RestartKeepsOneEntry(t *testing.T) {
	rec := new(MockReconciler)
	rec.On("Reconcile", mock.Anything).Return(nil, nil)

	pub := newRecorder()
	job := NewBirthdayJob(rec, pub, "@daily", zap.NewNop())

	require.NoError(t, job.Start())
	job.Stop()
	assert.Empty(t, job.scheduler.Entries())

	require.NoError(t, job.Start())
	defer job.Stop()
	assert.Len(t, job.scheduler.Entries(), 1)
}

func TestBirthdayJob_StopDropsRunningScan(t *testing.T) {
	started := make(chan struct{})
	finished := make(chan struct{})
	rec := new(MockReconciler)
	rec.On("Reconcile", mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-args.Get(0).(context.Context).Done()
		close(finished)
	}).Return(nil, context.Canceled).Once()

	pub := newRecorder()
	job := NewBirthdayJob(rec, pub, "", zap.NewNop())
	require.NoError(t, job.Start())

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not start")
	}
	job.Stop()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("scan was not cancelled by Stop")
	}
	select {
	case <-pub.ch:
		t.Fatal("cancelled scan was published")
	case <-time.After(100 * time.Millisecond):
	}
	rec.AssertExpectations(t)
}

func TestBirthdayJob_RunWithCancelledContextDoesNotPublish(t *testing.T) {
	rec := new(MockReconciler)
	rec.On("Reconcile", mock.Anything).Return(nil, context.Canceled).Once()

	pub := newRecorder()
	job := NewBirthdayJob(rec, pub, "", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := job.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.got)
}
