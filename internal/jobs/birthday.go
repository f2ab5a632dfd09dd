package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nhle/guest-review/internal/model"
	"github.com/nhle/guest-review/internal/notify"
)

// BirthdayJobName identifies birthday scan results.
const BirthdayJobName = "birthdays"

// runTimeout bounds a single scan.
const runTimeout = 2 * time.Minute

// Publisher receives the outcome of each scan; *sync.Poller satisfies it.
type Publisher interface {
	Publish(job string, value interface{}, err error)
}

// BirthdayJob runs the upcoming-birthday scan once when started and then
// on a cron schedule, so the seven-day window moves with the calendar.
type BirthdayJob struct {
	reconciler notify.Reconciler
	publisher  Publisher
	schedule   string
	logger     *zap.Logger
	scheduler  *cron.Cron
	entry      cron.EntryID
	scheduled  bool

	// mu guards ctx and cancel. Stop cancels ctx so scans still running
	// after logout neither touch the feed nor publish.
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBirthdayJob creates a job for schedule (a cron spec such as "@daily").
// An empty schedule runs the scan only on Start.
func NewBirthdayJob(r notify.Reconciler, pub Publisher, schedule string, logger *zap.Logger) *BirthdayJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	cronLog := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog)),
	)
	return &BirthdayJob{
		reconciler: r,
		publisher:  pub,
		schedule:   schedule,
		logger:     logger.Named("BirthdayJob"),
		scheduler:  scheduler,
	}
}

// Start schedules the job, starts the scheduler and kicks off an
// immediate scan in the background. A stopped job may be started again.
func (j *BirthdayJob) Start() error {
	j.mu.Lock()
	if j.cancel == nil {
		j.ctx, j.cancel = context.WithCancel(context.Background())
	}
	j.mu.Unlock()

	if j.schedule != "" && !j.scheduled {
		id, err := j.scheduler.AddFunc(j.schedule, j.runJob)
		if err != nil {
			return fmt.Errorf("scheduling birthday scan %q: %w", j.schedule, err)
		}
		j.entry, j.scheduled = id, true
		j.logger.Info("birthday scan scheduled", zap.String("spec", j.schedule), zap.Int("entry", int(id)))
		j.scheduler.Start()
	}
	go j.runJob()
	return nil
}

// Run performs one scan and publishes its result. A scan whose context
// was cancelled is not published.
func (j *BirthdayJob) Run(ctx context.Context) ([]model.Notification, error) {
	emitted, err := j.reconciler.Reconcile(ctx)
	if errors.Is(ctx.Err(), context.Canceled) {
		j.logger.Debug("birthday scan cancelled")
		return nil, ctx.Err()
	}
	if err != nil {
		j.logger.Warn("birthday scan failed", zap.Error(err))
	} else {
		j.logger.Debug("birthday scan completed", zap.Int("emitted", len(emitted)))
	}
	if j.publisher != nil {
		j.publisher.Publish(BirthdayJobName, emitted, err)
	}
	return emitted, err
}

func (j *BirthdayJob) runJob() {
	j.mu.Lock()
	base := j.ctx
	j.mu.Unlock()
	if base == nil || base.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(base, runTimeout)
	defer cancel()
	_, _ = j.Run(ctx)
}

// Stop cancels running scans, stops the scheduler and unschedules the
// scan, waiting briefly for a running one.
func (j *BirthdayJob) Stop() {
	j.mu.Lock()
	if j.cancel != nil {
		j.cancel()
		j.cancel = nil
	}
	j.mu.Unlock()

	stopCtx := j.scheduler.Stop()
	if j.scheduled {
		j.scheduler.Remove(j.entry)
		j.scheduled = false
	}
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		j.logger.Warn("birthday scheduler stop timed out")
	}
}

// cronLogger adapts zap.Logger to the cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.fields(keysAndValues...)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(cl.fields(keysAndValues...), zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) fields(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
