package vm

import (
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Config holds the runtime's tunables, assembled from functional
// Options — the same convention internal/scheduler.Config uses, itself
// modelled on the teacher's `eventloop.New(...)` constructor rather than
// a flags-parsing struct. Config loading from environment or a file is
// cmd/embervm's job, not the runtime's.
type Config struct {
	Workers         int
	Backups         int
	EpochInterval   time.Duration
	MonitorInterval time.Duration
	Reductions      int32
	InlineCap       int
	EnablePoller    bool
	Logger          *logiface.Logger[*stumpy.Event]
}

// Option configures a State at construction time.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Workers:      4,
		Backups:      2,
		Reductions:   0, // 0 -> interpreter.DefaultReductions
		EnablePoller: true,
	}
}

// WithWorkerCount sets the scheduler's primary worker count.
func WithWorkerCount(n int) Option { return func(c *Config) { c.Workers = n } }

// WithBackupCount sets the scheduler's reserve backup worker count.
func WithBackupCount(n int) Option { return func(c *Config) { c.Backups = n } }

// WithEpochInterval overrides the scheduler's epoch thread tick interval.
func WithEpochInterval(d time.Duration) Option { return func(c *Config) { c.EpochInterval = d } }

// WithMonitorInterval overrides the scheduler's monitor thread wake
// interval.
func WithMonitorInterval(d time.Duration) Option {
	return func(c *Config) { c.MonitorInterval = d }
}

// WithReductionBudget overrides the interpreter's per-Run preemption
// budget (spec.md §4.I); zero means internal/interpreter.DefaultReductions.
func WithReductionBudget(n int32) Option { return func(c *Config) { c.Reductions = n } }

// WithInlineCap records an accumulated-weight cap for internal/inline;
// zero means internal/inline.DefaultCap. The VM does not run the inliner
// on a loaded program, so the value does not affect execution.
func WithInlineCap(n int) Option { return func(c *Config) { c.InlineCap = n } }

// WithPoller toggles the network poller bridge (internal/poller). It
// starts an epoll-backed background goroutine, which a headless test
// environment without epoll access may want to disable.
func WithPoller(enabled bool) Option { return func(c *Config) { c.EnablePoller = enabled } }

// WithLogger sets the structured logger used for lifecycle and panic
// events: VM startup/shutdown, main-process exit status, and unhandled
// tier-1 panics. It is also passed to the scheduler pool's Config, where
// no scheduler code path writes to it.
func WithLogger(l *logiface.Logger[*stumpy.Event]) Option {
	return func(c *Config) { c.Logger = l }
}
