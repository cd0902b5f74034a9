// Package scheduler triggers named tasks on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Parser accepts five-field expressions, an optional leading seconds field
// and descriptors such as @daily or @every 1h.
var Parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate reports whether spec is a schedule the scheduler accepts.
func Validate(spec string) error {
	if _, err := Parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// Task is a unit of scheduled work.
type Task func(ctx context.Context) error

// Entry describes a registered task.
type Entry struct {
	Name string
	Spec string
	Next time.Time
}

// Scheduler runs registered tasks until stopped. A task whose previous run
// is still in progress is skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	specs   map[string]string
}

// New creates a scheduler. ctx is passed to every task run.
func New(ctx context.Context, logger zerolog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		ctx:     ctx,
		logger:  logger,
		entries: map[string]cron.EntryID{},
		specs:   map[string]string{},
	}
}

// Register adds task under name on spec.
func (s *Scheduler) Register(name, spec string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("task %q already registered", name)
	}

	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger: s.logger})).
		Then(cron.FuncJob(func() { s.run(name, task) }))

	id, err := s.cron.AddJob(spec, job)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for task %s: %w", spec, name, err)
	}

	s.entries[name] = id
	s.specs[name] = spec

	s.logger.Debug().Str("task", name).Str("schedule", spec).Msg("task registered")

	return nil
}

// Entries returns the registered tasks with their next activation.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for name, id := range s.entries {
		out = append(out, Entry{Name: name, Spec: s.specs[name], Next: s.cron.Entry(id).Next})
	}
	return out
}

// Start begins running tasks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits until running tasks return or ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("stopped waiting for running tasks")
	}
}

func (s *Scheduler) run(name string, task Task) {
	start := time.Now()
	s.logger.Debug().Str("task", name).Msg("task started")

	if err := task(s.ctx); err != nil {
		s.logger.Error().Err(err).Str("task", name).Dur("duration", time.Since(start)).Msg("task failed")
		return
	}

	s.logger.Debug().Str("task", name).Dur("duration", time.Since(start)).Msg("task finished")
}

// cronLogger routes cron's internal logging to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
