package metrics

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCategorize(t *testing.T) {
	cases := map[string]string{
		"context deadline exceeded":          "Timeout",
		"dial tcp: connection refused":       "Conn Refused",
		"read: connection reset by peer":     "Conn Reset",
		"lookup x: no such host":             "DNS Error",
		"trace endpoint returned status 503": "Bad Status",
		"something odd":                      "Other",
	}
	for msg, want := range cases {
		if got := Categorize(errors.New(msg)); got != want {
			t.Errorf("Categorize(%q) = %q, want %q", msg, got, want)
		}
	}
	if got := Categorize(context.DeadlineExceeded); got != "Timeout" {
		t.Errorf("Expected Timeout for DeadlineExceeded, got %q", got)
	}
}

func TestCollector_ReportAndRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.RecordSuccess(SourceGeo, 120*time.Millisecond)
	c.RecordFailure(SourceTrace, errors.New("connection refused"))
	c.RecordAnalysis("success")

	var buf bytes.Buffer
	c.PrintReport(&buf)
	out := buf.String()
	if !strings.Contains(out, "GEO") || !strings.Contains(out, "TRACE") {
		t.Errorf("report missing sources:\n%s", out)
	}
	if !strings.Contains(out, "Conn Refused") {
		t.Errorf("report missing error category:\n%s", out)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) != 3 {
		t.Errorf("Expected 3 metric families, got %d", len(families))
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.RecordSuccess(SourceAI, time.Second)
	c.RecordFailure(SourceAI, errors.New("x"))
	c.RecordAnalysis("failure")
	c.PrintReport(&bytes.Buffer{})
}
