package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Upstream sources
const (
	SourceTrace = "trace"
	SourceGeo   = "geo"
	SourceAI    = "ai"
)

// Collector tracks upstream calls. It keeps an in-process summary for the
// CLI report and mirrors every observation into Prometheus. A nil *Collector
// is valid and records nothing.
type Collector struct {
	mu sync.Mutex

	latencies   map[string][]time.Duration
	errorCounts map[string]map[string]int

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	analyses *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		latencies:   make(map[string][]time.Duration),
		errorCounts: make(map[string]map[string]int),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipscope_upstream_requests_total",
				Help: "Upstream requests by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ipscope_upstream_request_duration_seconds",
				Help:    "Duration of successful upstream requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipscope_analyses_total",
				Help: "Analyses by outcome",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(c.requests, c.duration, c.analyses)
	}
	return c
}

func (c *Collector) RecordSuccess(source string, d time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latencies[source] = append(c.latencies[source], d)
	c.requests.WithLabelValues(source, "success").Inc()
	c.duration.WithLabelValues(source).Observe(d.Seconds())
}

func (c *Collector) RecordFailure(source string, err error) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.errorCounts[source] == nil {
		c.errorCounts[source] = make(map[string]int)
	}
	c.errorCounts[source][Categorize(err)]++
	c.requests.WithLabelValues(source, "failure").Inc()
}

// RecordAnalysis counts finished analyses ("success" or "failure").
func (c *Collector) RecordAnalysis(outcome string) {
	if c == nil {
		return
	}
	c.analyses.WithLabelValues(outcome).Inc()
}

// Categorize buckets an error message for the report.
func Categorize(err error) string {
	if err == nil {
		return "None"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return "Timeout"
	case strings.Contains(msg, "refused"):
		return "Conn Refused"
	case strings.Contains(msg, "reset"):
		return "Conn Reset"
	case strings.Contains(msg, "no such host"):
		return "DNS Error"
	case strings.Contains(msg, "status"):
		return "Bad Status"
	case strings.Contains(msg, "EOF"):
		return "EOF / Empty"
	}
	return "Other"
}

func (c *Collector) PrintReport(out io.Writer) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sources := make(map[string]bool)
	for s := range c.latencies {
		sources[s] = true
	}
	for s := range c.errorCounts {
		sources[s] = true
	}
	var names []string
	for s := range sources {
		names = append(names, s)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(out, "\n📊 \033[1mUPSTREAM REPORT\033[0m")
	fmt.Fprintln(out, "────────────────────────────────────────")

	if len(names) == 0 {
		fmt.Fprintln(w, "  No upstream calls recorded.")
	}
	for _, s := range names {
		fmt.Fprintf(w, "\033[1;36m[ %s ]\033[0m\t\n", strings.ToUpper(s))
		lat := c.latencies[s]
		fmt.Fprintf(w, "  Successes:\t%d\n", len(lat))
		if len(lat) > 0 {
			fmt.Fprintf(w, "  Avg Duration:\t%v\n", average(lat).Round(time.Millisecond))
		}
		for kind, n := range c.errorCounts[s] {
			fmt.Fprintf(w, "  %s:\t%d\n", kind, n)
		}
		fmt.Fprintln(w, "\t")
	}
	w.Flush()
}

func average(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return time.Duration(int64(sum) / int64(len(d)))
}
