package observability

import (
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/lmittmann/tint"
)

// sensitiveParams are query parameter names that should be scrubbed from trace output.
var sensitiveParams = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"client_secret": true,
	"private_key":   true,
}

// TraceWriter emits structured trace records through slog.
// Each record carries the elapsed time since session start.
type TraceWriter struct {
	logger *slog.Logger

	mu        sync.Mutex
	startTime time.Time
}

// NewTraceWriter creates a TraceWriter that writes colored output to stderr
// when stderr is a terminal.
func NewTraceWriter() *TraceWriter {
	noColor := !term.IsTerminal(os.Stderr.Fd()) || os.Getenv("NO_COLOR") != ""
	return newTraceWriter(os.Stderr, noColor)
}

// NewTraceWriterTo creates a TraceWriter that writes plain text to w.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return newTraceWriter(w, true)
}

func newTraceWriter(w io.Writer, noColor bool) *TraceWriter {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
	return &TraceWriter{
		logger:    slog.New(handler),
		startTime: time.Now(),
	}
}

// Logger returns the underlying structured logger.
func (t *TraceWriter) Logger() *slog.Logger {
	return t.logger
}

func (t *TraceWriter) elapsed() slog.Attr {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slog.Duration("t", time.Since(t.startTime).Round(time.Millisecond))
}

// WriteOperationStart writes a query attempt start record.
func (t *TraceWriter) WriteOperationStart(op OperationInfo) {
	t.logger.Info("fetch", t.elapsed(),
		"resource", op.Resource,
		"locale", op.Locale,
		"gen", op.Generation)
}

// WriteOperationEnd writes a query attempt completion record.
func (t *TraceWriter) WriteOperationEnd(op OperationInfo, err error, duration time.Duration) {
	attrs := []any{t.elapsed(),
		"resource", op.Resource,
		"locale", op.Locale,
		"gen", op.Generation,
		"took", duration.Round(time.Millisecond)}
	switch {
	case op.Stale:
		t.logger.Debug("discarded", attrs...)
	case err != nil:
		t.logger.Warn("failed", append(attrs, tint.Err(err))...)
	default:
		t.logger.Info("completed", attrs...)
	}
}

// WriteRequestStart writes a request start record.
// Sensitive query parameters are redacted.
func (t *TraceWriter) WriteRequestStart(info RequestInfo) {
	t.logger.Debug("->", t.elapsed(),
		"method", info.Method,
		"url", scrubURL(info.URL),
		"request_id", info.RequestID)
}

// WriteRequestEnd writes a request completion record.
func (t *TraceWriter) WriteRequestEnd(info RequestInfo, result RequestResult) {
	attrs := []any{t.elapsed(), "request_id", info.RequestID}
	switch {
	case result.Error != nil:
		t.logger.Warn("<-", append(attrs, "status", result.StatusCode, tint.Err(result.Error))...)
	case result.Empty:
		t.logger.Warn("non-JSON response treated as empty", append(attrs,
			"url", scrubURL(info.URL),
			"content_type", result.ContentType)...)
	default:
		t.logger.Debug("<-", append(attrs,
			"status", result.StatusCode,
			"took", result.Duration.Round(time.Millisecond))...)
	}
}

// WriteFallback writes a language fallback record.
func (t *TraceWriter) WriteFallback(info FallbackInfo) {
	attrs := []any{t.elapsed(),
		"resource", info.Resource,
		"requested", info.Requested,
		"served", info.Served}
	if info.Cause != nil {
		attrs = append(attrs, tint.Err(info.Cause))
	}
	t.logger.Warn("falling back to default locale", attrs...)
}

// Reset resets the start time for relative timestamps.
func (t *TraceWriter) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startTime = time.Now()
}

// scrubURL redacts sensitive query parameters from a URL for safe logging.
// Returns a safe placeholder if the URL cannot be parsed.
func scrubURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[unparseable URL]"
	}

	query := u.Query()
	modified := false
	for key := range query {
		if sensitiveParams[strings.ToLower(key)] {
			query.Set(key, "[REDACTED]")
			modified = true
		}
	}

	if !modified {
		return rawURL
	}

	u.RawQuery = query.Encode()
	return u.String()
}
