package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled unit of work. A returned error is logged and counted.
type Job func(ctx context.Context) error

// Scheduler defines the interface for the cron-driven job runner
type Scheduler interface {
	AddJob(name, spec string, job Job) error
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
	Entries() []EntryInfo
	GetMetrics() *SchedulerMetrics
}

// EntryInfo describes a registered job and its next activation
type EntryInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

// Parser accepts 5- or 6-field expressions (seconds optional) and descriptors
var Parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type jobEntry struct {
	id   cron.EntryID
	spec string
}

// scheduler implements the Scheduler interface on top of robfig/cron
type scheduler struct {
	cron            *cron.Cron
	logger          *zap.Logger
	metrics         *SchedulerMetrics
	shutdownTimeout time.Duration

	mu     sync.Mutex
	jobs   map[string]jobEntry
	jobCtx context.Context

	running atomic.Bool
}

// NewScheduler creates a scheduler. Stop waits up to shutdownTimeout for
// running jobs.
func NewScheduler(shutdownTimeout time.Duration, logger *zap.Logger) (Scheduler, error) {
	if shutdownTimeout <= 0 {
		return nil, NewConfigurationError("shutdown_timeout", shutdownTimeout, "must be greater than 0")
	}

	cronLogger := newCronLogger(logger)
	return &scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger:          logger,
		metrics:         NewSchedulerMetrics(),
		shutdownTimeout: shutdownTimeout,
		jobs:            make(map[string]jobEntry),
		jobCtx:          context.Background(),
	}, nil
}

// ValidateSpec reports whether spec is an acceptable schedule expression
func ValidateSpec(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return NewConfigurationError("spec", spec, "must not be empty")
	}
	if _, err := Parser.Parse(spec); err != nil {
		return NewConfigurationError("spec", spec, err.Error())
	}
	return nil
}

// AddJob registers job under a unique name. Jobs may be added before or
// after Start.
func (s *scheduler) AddJob(name, spec string, job Job) error {
	if strings.TrimSpace(name) == "" {
		return NewConfigurationError("name", name, "must not be empty")
	}
	if job == nil {
		return NewConfigurationError("job", name, "must not be nil")
	}
	if err := ValidateSpec(spec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return NewSchedulerError(ErrDuplicateJob, fmt.Sprintf("job %q is already registered", name))
	}

	schedule, _ := Parser.Parse(spec)
	id := s.cron.Schedule(schedule, cron.FuncJob(s.wrap(name, job)))
	s.jobs[name] = jobEntry{id: id, spec: spec}

	s.logger.Info("Scheduled job", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Start begins firing registered jobs. Jobs receive a context carrying the
// values of ctx that is never cancelled, so an in-flight run completes.
func (s *scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return NewSchedulerError(ErrSchedulerAlreadyRunning, "scheduler is already running")
	}

	s.mu.Lock()
	s.jobCtx = context.WithoutCancel(ctx)
	jobCount := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", jobCount))
	return nil
}

// Stop halts new activations and waits for running jobs to finish
func (s *scheduler) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return NewSchedulerError(ErrSchedulerNotRunning, "scheduler is not running")
	}

	s.logger.Info("Stopping scheduler...")
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.shutdownTimeout):
		s.logger.Warn("Scheduler shutdown timed out, a job is still running",
			zap.Duration("timeout", s.shutdownTimeout))
		return NewShutdownError("shutdown timeout exceeded", s.shutdownTimeout)
	}
}

// IsRunning returns true if the scheduler is currently running
func (s *scheduler) IsRunning() bool {
	return s.running.Load()
}

// Entries lists registered jobs sorted by name
func (s *scheduler) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]EntryInfo, 0, len(s.jobs))
	for name, job := range s.jobs {
		entry := s.cron.Entry(job.id)
		infos = append(infos, EntryInfo{Name: name, Spec: job.spec, Next: entry.Next, Prev: entry.Prev})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// GetMetrics returns the current scheduler metrics
func (s *scheduler) GetMetrics() *SchedulerMetrics {
	return s.metrics
}

// wrap turns a Job into a cron func that records metrics and never panics
func (s *scheduler) wrap(name string, job Job) func() {
	return func() {
		s.mu.Lock()
		ctx := s.jobCtx
		s.mu.Unlock()

		start := time.Now()
		err := s.runJob(ctx, name, job)
		duration := time.Since(start)

		s.metrics.RecordRun(name, start, duration, err)
		if err != nil {
			s.logger.Error("Scheduled job failed",
				zap.String("job", name),
				zap.Duration("duration", duration),
				zap.Error(err))
			return
		}
		s.logger.Debug("Scheduled job completed", zap.String("job", name), zap.Duration("duration", duration))
	}
}

func (s *scheduler) runJob(ctx context.Context, name string, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewJobError(name, fmt.Errorf("panic: %v", r))
		}
	}()

	if jobErr := job(ctx); jobErr != nil {
		return NewJobError(name, jobErr)
	}
	return nil
}

// cronLogger adapts zap onto cron.Logger
type cronLogger struct {
	logger *zap.SugaredLogger
}

func newCronLogger(logger *zap.Logger) cron.Logger {
	return cronLogger{logger: logger.Named("cron").Sugar()}
}

// Info carries cron's per-tick chatter, so it goes to debug
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
