package sync

import (
	"context"
	"sort"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// JobState represents the current state of a polling job.
type JobState int

const (
	JobIdle JobState = iota
	JobRunning
	JobError
)

// JobStatus holds the run state of a single job.
type JobStatus struct {
	Name     string
	State    JobState
	InFlight int
	LastRun  time.Time
	Error    error
}

// Task is one invocation of a polled job. The context is cancelled when
// the job is stopped or the invocation exceeds the fetch timeout.
type Task func(ctx context.Context) (interface{}, error)

// Handle identifies a started job. The zero Handle is never issued.
type Handle uint64

// ResultMsg is a tea.Msg carrying the outcome of one invocation.
type ResultMsg struct {
	Job    string
	Handle Handle
	Value  interface{}
	Err    error
	At     time.Time
}

// fetchTimeout is the maximum time allowed for a single invocation.
const fetchTimeout = 30 * time.Second

type job struct {
	id       Handle
	name     string
	interval time.Duration
	task     Task
	ctx      context.Context
	cancel   context.CancelFunc
	trigger  chan struct{}
	status   JobStatus
}

// Poller runs named tasks on fixed intervals. Each tick starts its own
// goroutine, so a slow invocation does not delay the next one. Stopping a
// job cancels in-flight invocations and discards anything they return.
type Poller struct {
	log      *zap.Logger
	timeout  time.Duration
	resultCh chan ResultMsg

	mu     gosync.Mutex
	jobs   map[Handle]*job
	nextID Handle
}

// New creates a Poller whose result channel holds up to buffer messages.
func New(log *zap.Logger, buffer int) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 16
	}
	return &Poller{
		log:      log.Named("poller"),
		timeout:  fetchTimeout,
		resultCh: make(chan ResultMsg, buffer),
		jobs:     make(map[Handle]*job),
	}
}

// SetTimeout overrides the per-invocation timeout.
func (p *Poller) SetTimeout(d time.Duration) {
	p.mu.Lock()
	p.timeout = d
	p.mu.Unlock()
}

// Start runs task immediately and then every interval until Stop.
func (p *Poller) Start(name string, interval time.Duration, task Task) Handle {
	if interval <= 0 {
		interval = 120 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.nextID++
	j := &job{
		id:       p.nextID,
		name:     name,
		interval: interval,
		task:     task,
		ctx:      ctx,
		cancel:   cancel,
		trigger:  make(chan struct{}, 1),
		status:   JobStatus{Name: name, State: JobIdle},
	}
	p.jobs[j.id] = j
	p.mu.Unlock()

	p.log.Debug("job started", zap.String("job", name), zap.Duration("interval", interval))
	go p.loop(j)
	return j.id
}

// Stop cancels the job. Unknown or already stopped handles are ignored.
func (p *Poller) Stop(h Handle) {
	p.mu.Lock()
	j, ok := p.jobs[h]
	delete(p.jobs, h)
	p.mu.Unlock()

	if ok {
		j.cancel()
		p.log.Debug("job stopped", zap.String("job", j.name))
	}
}

// StopAll cancels every running job.
func (p *Poller) StopAll() {
	p.mu.Lock()
	jobs := p.jobs
	p.jobs = make(map[Handle]*job)
	p.mu.Unlock()

	for _, j := range jobs {
		j.cancel()
	}
}

// Active reports whether h refers to a running job.
func (p *Poller) Active(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.jobs[h]
	return ok
}

// Refresh triggers an immediate extra invocation of the job.
// A refresh already pending is not queued twice.
func (p *Poller) Refresh(h Handle) {
	p.mu.Lock()
	j, ok := p.jobs[h]
	p.mu.Unlock()
	if !ok {
		return
	}
	select {
	case j.trigger <- struct{}{}:
	default:
	}
}

// Statuses returns the status of every running job, sorted by name.
func (p *Poller) Statuses() []JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]JobStatus, 0, len(p.jobs))
	for _, j := range p.jobs {
		statuses = append(statuses, j.status)
	}
	sort.Slice(statuses, func(i, k int) bool { return statuses[i].Name < statuses[k].Name })
	return statuses
}

func (p *Poller) loop(j *job) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	go p.invoke(j)

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			go p.invoke(j)
		case <-j.trigger:
			go p.invoke(j)
		}
	}
}

// invoke performs a single run of the job's task and delivers the result
// if the job is still active.
func (p *Poller) invoke(j *job) {
	if j.ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	timeout := p.timeout
	j.status.State = JobRunning
	j.status.InFlight++
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(j.ctx, timeout)
	value, err := j.task(ctx)
	cancel()

	p.mu.Lock()
	j.status.InFlight--
	j.status.LastRun = time.Now()
	j.status.Error = err
	switch {
	case err != nil:
		j.status.State = JobError
	case j.status.InFlight == 0:
		j.status.State = JobIdle
	}
	_, live := p.jobs[j.id]
	p.mu.Unlock()

	if !live || j.ctx.Err() != nil {
		p.log.Debug("discarding result of stopped job", zap.String("job", j.name))
		return
	}

	if err != nil {
		p.log.Warn("job failed", zap.String("job", j.name), zap.Error(err))
	}

	p.sendResult(ResultMsg{Job: j.name, Handle: j.id, Value: value, Err: err, At: time.Now()})
}

// sendResult sends a ResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg ResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		p.log.Debug("result channel full, dropping", zap.String("job", msg.Job))
	}
}

// Publish delivers a result produced outside the poller's own jobs, such
// as a cron-scheduled scan, through the same channel.
func (p *Poller) Publish(job string, value interface{}, err error) {
	p.sendResult(ResultMsg{Job: job, Value: value, Err: err, At: time.Now()})
}

// Results exposes the result channel for consumers outside Bubble Tea.
func (p *Poller) Results() <-chan ResultMsg {
	return p.resultCh
}

// WaitForNextResult returns a tea.Cmd that waits for the next job result.
// Call it again after handling each ResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		return <-p.resultCh
	}
}
