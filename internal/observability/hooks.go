// Package observability provides metrics collection and trace logging for
// resource fetches.
package observability

import (
	"context"
	"sync"
	"time"
)

// OperationInfo describes one query attempt: a fetch issued by a hook for
// one descriptor.
type OperationInfo struct {
	Resource   string
	Locale     string
	Generation uint64
	Stale      bool // set on end when the result was discarded as superseded
}

// RequestInfo describes one HTTP request.
type RequestInfo struct {
	Method    string
	URL       string
	RequestID string
}

// RequestResult describes the outcome of one HTTP request.
type RequestResult struct {
	StatusCode  int
	ContentType string
	Duration    time.Duration
	Empty       bool // non-JSON body accepted as an empty result
	Error       error
}

// FallbackInfo describes a language fallback.
type FallbackInfo struct {
	Resource  string
	Requested string
	Served    string
	Cause     error
}

// Hooks receives fetch lifecycle events. Implementations must be safe for
// concurrent use.
type Hooks interface {
	OnOperationStart(ctx context.Context, op OperationInfo) context.Context
	OnOperationEnd(ctx context.Context, op OperationInfo, err error, duration time.Duration)
	OnRequestStart(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd(ctx context.Context, info RequestInfo, result RequestResult)
	OnFallback(ctx context.Context, info FallbackInfo)
}

// NopHooks ignores every event.
type NopHooks struct{}

func (NopHooks) OnOperationStart(ctx context.Context, _ OperationInfo) context.Context { return ctx }
func (NopHooks) OnOperationEnd(context.Context, OperationInfo, error, time.Duration)     {}
func (NopHooks) OnRequestStart(ctx context.Context, _ RequestInfo) context.Context    { return ctx }
func (NopHooks) OnRequestEnd(context.Context, RequestInfo, RequestResult)              {}
func (NopHooks) OnFallback(context.Context, FallbackInfo)                              {}

// Verify CLIHooks implements Hooks at compile time.
var _ Hooks = (*CLIHooks)(nil)

// CLIHooks implements Hooks for CLI observability.
// It supports configurable verbosity levels:
//   - 0: Silent (collect stats only, no output)
//   - 1: Operations only (query attempts and fallbacks)
//   - 2: Operations + requests
type CLIHooks struct {
	mu        sync.Mutex
	level     int
	collector *SessionCollector
	writer    *TraceWriter
}

// NewCLIHooks creates a new CLIHooks with the given verbosity level.
// If collector is nil, metrics are not collected.
// If writer is nil, no trace output is produced.
func NewCLIHooks(level int, collector *SessionCollector, writer *TraceWriter) *CLIHooks {
	return &CLIHooks{
		level:     level,
		collector: collector,
		writer:    writer,
	}
}

// SetLevel changes the verbosity level at runtime.
func (h *CLIHooks) SetLevel(level int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// Level returns the current verbosity level.
func (h *CLIHooks) Level() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

func (h *CLIHooks) snapshot() (int, *SessionCollector, *TraceWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level, h.collector, h.writer
}

// OnOperationStart is called when a query attempt begins.
func (h *CLIHooks) OnOperationStart(ctx context.Context, op OperationInfo) context.Context {
	level, _, writer := h.snapshot()
	if level >= 1 && writer != nil {
		writer.WriteOperationStart(op)
	}
	return ctx
}

// OnOperationEnd is called when a query attempt settles or is discarded.
func (h *CLIHooks) OnOperationEnd(_ context.Context, op OperationInfo, err error, duration time.Duration) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordOperation(OperationMetrics{
			Resource: op.Resource,
			Locale:   op.Locale,
			Stale:    op.Stale,
			Duration: duration,
			Error:    err,
		})
	}
	if level >= 1 && writer != nil {
		writer.WriteOperationEnd(op, err, duration)
	}
}

// OnRequestStart is called before an HTTP request is sent.
func (h *CLIHooks) OnRequestStart(ctx context.Context, info RequestInfo) context.Context {
	level, _, writer := h.snapshot()
	if level >= 2 && writer != nil {
		writer.WriteRequestStart(info)
	}
	return ctx
}

// OnRequestEnd is called after an HTTP request completes.
func (h *CLIHooks) OnRequestEnd(_ context.Context, info RequestInfo, result RequestResult) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordRequest(RequestMetrics{
			Method:     info.Method,
			URL:        info.URL,
			StatusCode: result.StatusCode,
			Duration:   result.Duration,
			Empty:      result.Empty,
			Error:      result.Error,
		})
	}
	// Lenient empty results are always worth a warning, even when quiet.
	if writer != nil && (level >= 2 || result.Empty) {
		writer.WriteRequestEnd(info, result)
	}
}

// OnFallback is called when a resource is re-requested in the default locale.
func (h *CLIHooks) OnFallback(_ context.Context, info FallbackInfo) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordFallback()
	}
	if level >= 1 && writer != nil {
		writer.WriteFallback(info)
	}
}
