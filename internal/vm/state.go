package vm

import (
	"github.com/embervm/embervm/internal/inline"
	"github.com/embervm/embervm/internal/interpreter"
	"github.com/embervm/embervm/internal/poller"
	"github.com/embervm/embervm/internal/process"
	"github.com/embervm/embervm/internal/scheduler"
	"github.com/embervm/embervm/internal/value"
)

// State is the running VM: every subsystem spec.md §9's "global mutable
// state" design note calls for sharing as a single value — the
// interpreter's decoded program tables, the scheduler pool driving it,
// and the network poller bridge feeding it readiness events. Constructed
// once per embedding process via New, matching the teacher's
// `eventloop.New(...)` -> long-lived value convention.
type State struct {
	cfg    Config
	Interp *interpreter.Interpreter
	Pool   *scheduler.Pool
	Poller *poller.Loop
}

// New builds and starts a State: the interpreter, the scheduler pool
// (which immediately spins up its workers, monitor, epoch, and timeout
// threads), and — unless disabled — the network poller bridge. Call
// Shutdown to unwind everything.
func New(opts ...Option) (*State, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	in := interpreter.New()
	in.Reductions = cfg.Reductions

	s := &State{cfg: cfg, Interp: in}

	poolOpts := []scheduler.Option{
		scheduler.WithRunner(in),
		scheduler.WithWorkerCount(cfg.Workers),
		scheduler.WithBackupCount(cfg.Backups),
	}
	if cfg.EpochInterval > 0 {
		poolOpts = append(poolOpts, scheduler.WithEpochInterval(cfg.EpochInterval))
	}
	if cfg.MonitorInterval > 0 {
		poolOpts = append(poolOpts, scheduler.WithMonitorInterval(cfg.MonitorInterval))
	}
	if cfg.Logger != nil {
		poolOpts = append(poolOpts, scheduler.WithLogger(cfg.Logger))
	}
	s.Pool = scheduler.New(poolOpts...)
	in.Submit = s.Pool.Submit

	if cfg.EnablePoller {
		loop, err := poller.NewLoop(s.Pool)
		if err != nil {
			s.Pool.Shutdown()
			return nil, err
		}
		s.Poller = loop
	}

	s.logf("vm started: %d workers, %d backups", cfg.Workers, cfg.Backups)
	return s, nil
}

// Shutdown stops the poller (if running) and the scheduler pool, waiting
// for every background goroutine to exit.
func (s *State) Shutdown() {
	if s.Poller != nil {
		_ = s.Poller.Close()
	}
	s.Pool.Shutdown()
	s.logf("vm stopped")
}

// Install publishes prog's linked tables (built by the package-level Load
// function) into the interpreter, fixing up any constant-pool string/array
// whose class the loader left nil — Program/link have no Interpreter to
// resolve StringClass/ArrayClass against until now.
func (s *State) Install(prog *Program) {
	for _, c := range prog.Constants {
		if !c.IsHeap() {
			continue
		}
		obj := c.Object()
		if obj.Class != nil {
			continue
		}
		switch obj.Payload.(type) {
		case *value.StringData:
			obj.Class = s.Interp.StringClass
		case *value.Array:
			obj.Class = s.Interp.ArrayClass
		}
	}

	s.Interp.Constants = prog.Constants
	s.Interp.Classes = prog.Classes
	s.Interp.Methods = prog.Methods
}

// InlineCap reports the configured internal/inline weight cap (zero
// means inline.DefaultCap), for callers running that pass over a
// program's IR ahead of Install — inlining operates on the compiler's
// pre-bytecode CFG (internal/inline.Program), not the already-linked,
// already-encoded instructions Program.Methods carries, so this package
// does not invoke it directly; see DESIGN.md for the scope boundary.
func (s *State) InlineCap() int {
	if s.cfg.InlineCap == 0 {
		return inline.DefaultCap
	}
	return s.cfg.InlineCap
}

// Submit hands a freshly allocated or woken process to the scheduler
// pool, implementing poller.Submitter and the generic "resubmit a
// process" need of future-resolution callbacks.
func (s *State) Submit(p *process.Process) { s.Pool.Submit(p) }

func (s *State) logf(msg string, args ...any) {
	if s.cfg.Logger == nil {
		return
	}
	b := s.cfg.Logger.Info()
	if b == nil {
		return
	}
	b.Logf(msg, args...)
}
