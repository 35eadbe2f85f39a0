package cmx

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/flowpbx/cmx/internal/cmxtrace"
)

// Context owns the conference registry and is passed explicitly into
// every entry point. Tests construct independent Context values so
// test cases never share state.
//
// The engine's scheduling model is single-threaded cooperative per
// channel/conference, but the registry map itself is shared across
// calls; the mutex covers callers that multiplex several ISDN spans
// across goroutines, each driving disjoint channels against one
// registry.
type Context struct {
	mu          sync.Mutex
	conferences map[uint32]*Conference

	logger  *slog.Logger
	tracer  *cmxtrace.Tracer
	offload HardwareOffload

	rxFramesDropped     atomic.Uint64
	txBytesDropped      atomic.Uint64
	hardwareTransitions atomic.Uint64
}

// Option configures a Context at construction.
type Option func(*Context)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ctx *Context) {
		if logger != nil {
			ctx.logger = logger
		}
	}
}

// WithTracer attaches a debug-trace collaborator.
func WithTracer(tracer *cmxtrace.Tracer) Option {
	return func(ctx *Context) { ctx.tracer = tracer }
}

// WithHardwareOffload attaches the hardware-offload collaborator. A
// Context with no offload configured behaves as a pure software build:
// every classify() result that would otherwise dispatch a hardware
// notification is simply skipped.
func WithHardwareOffload(offload HardwareOffload) Option {
	return func(ctx *Context) { ctx.offload = offload }
}

// NewContext creates an empty mixer context.
func NewContext(opts ...Option) *Context {
	ctx := &Context{
		conferences: make(map[uint32]*Conference),
		logger:      slog.Default().With("subsystem", "cmx"),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	return ctx
}

// ActiveConferences implements cmxmetrics.EngineStatsProvider.
func (ctx *Context) ActiveConferences() int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return len(ctx.conferences)
}

// TotalMembers implements cmxmetrics.EngineStatsProvider.
func (ctx *Context) TotalMembers() int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	total := 0
	for _, c := range ctx.conferences {
		total += len(c.Members)
	}
	return total
}

// RxFramesDropped implements cmxmetrics.EngineStatsProvider.
func (ctx *Context) RxFramesDropped() uint64 { return ctx.rxFramesDropped.Load() }

// TxBytesDropped implements cmxmetrics.EngineStatsProvider.
func (ctx *Context) TxBytesDropped() uint64 { return ctx.txBytesDropped.Load() }

// HardwareTransitions implements cmxmetrics.EngineStatsProvider.
func (ctx *Context) HardwareTransitions() uint64 { return ctx.hardwareTransitions.Load() }

// Find returns the conference registered under id, or nil if none
// exists. Safe for concurrent use.
func (ctx *Context) Find(id uint32) *Conference {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.find(id)
}
