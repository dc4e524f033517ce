package observability

import (
	"fmt"
	"sync"
	"time"
)

// RequestMetrics holds timing and status information for a single HTTP request.
type RequestMetrics struct {
	Method     string
	URL        string
	StatusCode int
	Duration   time.Duration
	Empty      bool
	Error      error
}

// OperationMetrics holds timing information for one query attempt.
type OperationMetrics struct {
	Resource string
	Locale   string
	Stale    bool
	Duration time.Duration
	Error    error
}

// SessionMetrics aggregates metrics for an entire session.
type SessionMetrics struct {
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	TotalRequests   int           `json:"total_requests"`
	FailedRequests  int           `json:"failed_requests"`
	EmptyResults    int           `json:"empty_results,omitempty"`
	TotalOperations int           `json:"total_operations"`
	FailedOps       int           `json:"failed_operations"`
	StaleOps        int           `json:"stale_operations,omitempty"`
	Fallbacks       int           `json:"fallbacks,omitempty"`
	TotalLatency    time.Duration `json:"total_latency_ns"`
}

// FormatParts renders the non-zero metrics as short phrases.
func (m SessionMetrics) FormatParts() []string {
	var parts []string

	duration := m.EndTime.Sub(m.StartTime)
	if duration < time.Second {
		parts = append(parts, fmt.Sprintf("%dms", duration.Milliseconds()))
	} else {
		parts = append(parts, fmt.Sprintf("%.1fs", duration.Seconds()))
	}

	plural := func(n int, one, many string) {
		switch {
		case n == 1:
			parts = append(parts, "1 "+one)
		case n > 1:
			parts = append(parts, fmt.Sprintf("%d %s", n, many))
		}
	}
	plural(m.TotalRequests, "request", "requests")
	plural(m.FailedRequests, "failed", "failed")
	plural(m.Fallbacks, "fallback", "fallbacks")
	plural(m.StaleOps, "discarded", "discarded")
	plural(m.EmptyResults, "empty result", "empty results")
	return parts
}

// SessionCollector accumulates metrics across a session.
// It is safe for concurrent use and uses counters instead of unbounded slices.
type SessionCollector struct {
	mu sync.Mutex

	startTime       time.Time
	totalRequests   int
	failedRequests  int
	emptyResults    int
	totalOperations int
	failedOps       int
	staleOps        int
	fallbacks       int
	totalLatency    time.Duration
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{startTime: time.Now()}
}

// RecordRequest records metrics for an HTTP request.
func (c *SessionCollector) RecordRequest(m RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.totalLatency += m.Duration
	if m.Error != nil {
		c.failedRequests++
	}
	if m.Empty {
		c.emptyResults++
	}
}

// RecordOperation records metrics for one query attempt.
func (c *SessionCollector) RecordOperation(m OperationMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalOperations++
	switch {
	case m.Stale:
		c.staleOps++
	case m.Error != nil:
		c.failedOps++
	}
}

// RecordFallback records a language fallback.
func (c *SessionCollector) RecordFallback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbacks++
}

// Summary returns aggregated metrics for the session.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SessionMetrics{
		StartTime:       c.startTime,
		EndTime:         time.Now(),
		TotalRequests:   c.totalRequests,
		FailedRequests:  c.failedRequests,
		EmptyResults:    c.emptyResults,
		TotalOperations: c.totalOperations,
		FailedOps:       c.failedOps,
		StaleOps:        c.staleOps,
		Fallbacks:       c.fallbacks,
		TotalLatency:    c.totalLatency,
	}
}

// Reset clears all collected metrics and resets the start time.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.totalRequests = 0
	c.failedRequests = 0
	c.emptyResults = 0
	c.totalOperations = 0
	c.failedOps = 0
	c.staleOps = 0
	c.fallbacks = 0
	c.totalLatency = 0
}
