package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTraceWriter_WriteOperationStart(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteOperationStart(OperationInfo{Resource: "news", Locale: "en", Generation: 3})

	output := buf.String()
	for _, want := range []string{"INF", "fetch", "resource=news", "locale=en", "gen=3"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q, got: %s", want, output)
		}
	}
}

func TestTraceWriter_WriteOperationEnd(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteOperationEnd(OperationInfo{Resource: "news", Locale: "ru"}, nil, 50*time.Millisecond)

	output := buf.String()
	if !strings.Contains(output, "completed") {
		t.Errorf("expected 'completed', got: %s", output)
	}
	if !strings.Contains(output, "took=50ms") {
		t.Errorf("expected duration, got: %s", output)
	}
}

func TestTraceWriter_WriteOperationEnd_Error(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteOperationEnd(OperationInfo{Resource: "events"}, errors.New("boom"), time.Millisecond)

	output := buf.String()
	if !strings.Contains(output, "WRN") || !strings.Contains(output, "failed") {
		t.Errorf("expected warning line, got: %s", output)
	}
	if !strings.Contains(output, "boom") {
		t.Errorf("expected error message, got: %s", output)
	}
}

func TestTraceWriter_WriteOperationEnd_Stale(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteOperationEnd(OperationInfo{Resource: "events", Stale: true}, nil, time.Millisecond)

	if !strings.Contains(buf.String(), "discarded") {
		t.Errorf("expected 'discarded', got: %s", buf.String())
	}
}

func TestTraceWriter_WriteRequestStart(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteRequestStart(RequestInfo{Method: "GET", URL: "/api/news?lang=en", RequestID: "abc"})

	output := buf.String()
	for _, want := range []string{"method=GET", "/api/news?lang=en", "request_id=abc"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q, got: %s", want, output)
		}
	}
}

func TestTraceWriter_WriteRequestEnd(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteRequestEnd(RequestInfo{Method: "GET"}, RequestResult{StatusCode: 200, Duration: 45 * time.Millisecond})

	output := buf.String()
	if !strings.Contains(output, "status=200") {
		t.Errorf("expected status, got: %s", output)
	}
	if !strings.Contains(output, "took=45ms") {
		t.Errorf("expected duration, got: %s", output)
	}
}

func TestTraceWriter_WriteRequestEnd_Empty(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteRequestEnd(RequestInfo{URL: "/api/news"}, RequestResult{StatusCode: 200, ContentType: "text/html", Empty: true})

	output := buf.String()
	if !strings.Contains(output, "non-JSON response treated as empty") {
		t.Errorf("expected empty warning, got: %s", output)
	}
	if !strings.Contains(output, "text/html") {
		t.Errorf("expected content type, got: %s", output)
	}
}

func TestTraceWriter_WriteFallback(t *testing.T) {
	var buf bytes.Buffer
	w := NewTraceWriterTo(&buf)

	w.WriteFallback(FallbackInfo{Resource: "news", Requested: "en", Served: "ru", Cause: errors.New("HTTP 500")})

	output := buf.String()
	for _, want := range []string{"falling back", "requested=en", "served=ru", "HTTP 500"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q, got: %s", want, output)
		}
	}
}

func TestScrubURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		leaks   string
		keeps   string
		exactly bool
	}{
		{name: "no query", input: "https://example.com/api/news", keeps: "https://example.com/api/news", exactly: true},
		{name: "safe params", input: "/api/news?lang=en&q=exam", keeps: "/api/news?lang=en&q=exam", exactly: true},
		{name: "token", input: "/api/news?token=s3cret&lang=en", leaks: "s3cret", keeps: "lang=en"},
		{name: "case insensitive", input: "/api/news?API_KEY=s3cret", leaks: "s3cret", keeps: "REDACTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scrubURL(tt.input)
			if tt.exactly && got != tt.keeps {
				t.Errorf("scrubURL(%q) = %q, want %q", tt.input, got, tt.keeps)
			}
			if tt.leaks != "" && strings.Contains(got, tt.leaks) {
				t.Errorf("scrubURL(%q) = %q leaks %q", tt.input, got, tt.leaks)
			}
			if !strings.Contains(got, tt.keeps) {
				t.Errorf("scrubURL(%q) = %q, want it to contain %q", tt.input, got, tt.keeps)
			}
		})
	}
}

func TestScrubURL_Unparseable(t *testing.T) {
	if got := scrubURL("http://[::1"); got != "[unparseable URL]" {
		t.Errorf("got %q", got)
	}
}
