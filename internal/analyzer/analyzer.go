// Package analyzer runs one IP analysis: trace, geolocation, score, history.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ipscope/internal/geo"
	"ipscope/internal/history"
	"ipscope/internal/logger"
	"ipscope/internal/metrics"
	"ipscope/internal/model"
	"ipscope/internal/score"
)

const DefaultTimestampLayout = "2006-01-02 15:04:05"

// TraceSource returns the caller's own connection trace.
type TraceSource interface {
	Fetch(ctx context.Context) (model.TraceRecord, error)
}

type Analyzer struct {
	trace   TraceSource
	geo     geo.Provider
	history history.Store
	metrics *metrics.Collector

	layout string
	now    func() time.Time
}

type Option func(*Analyzer)

func WithMetrics(m *metrics.Collector) Option {
	return func(a *Analyzer) { a.metrics = m }
}

func WithTimestampLayout(layout string) Option {
	return func(a *Analyzer) {
		if layout != "" {
			a.layout = layout
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func New(trace TraceSource, provider geo.Provider, store history.Store, opts ...Option) *Analyzer {
	a := &Analyzer{
		trace:   trace,
		geo:     provider,
		history: store,
		layout:  DefaultTimestampLayout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze looks up ip, or the caller's own address when ip is empty.
// A failed lookup returns an error and records nothing.
func (a *Analyzer) Analyze(ctx context.Context, ip string) (*model.LogEntry, error) {
	var trace *model.TraceRecord

	if ip == "" {
		start := time.Now()
		t, err := a.trace.Fetch(ctx)
		if err != nil {
			a.metrics.RecordFailure(metrics.SourceTrace, err)
			logger.Log.Warnf("Trace unavailable, continuing without it: %v", err)
		} else {
			a.metrics.RecordSuccess(metrics.SourceTrace, time.Since(start))
			trace = &t
		}
	}

	target := ip
	if target == "" && trace != nil {
		target = trace.IP
	}

	start := time.Now()
	rec := a.geo.Lookup(ctx, target)
	if !rec.OK() {
		a.metrics.RecordFailure(metrics.SourceGeo, errors.New(rec.Message))
		a.metrics.RecordAnalysis("failure")

		subject := target
		if subject == "" {
			subject = "my IP"
		}
		return nil, fmt.Errorf("lookup for %s failed: %s", subject, rec.Message)
	}
	a.metrics.RecordSuccess(metrics.SourceGeo, time.Since(start))

	entry := model.LogEntry{Result: model.AnalysisResult{Geo: rec}}
	if trace != nil {
		trace.IP = rec.Query
		s := score.Score(*trace)
		entry.Result.Trace = trace
		entry.SecurityScore = &s
	}

	now := a.now()
	entry.ID = now.UnixMilli()
	entry.Timestamp = now.Format(a.layout)

	if err := a.history.Append(entry); err != nil {
		logger.Log.Errorf("Failed to record analysis of %s: %v", rec.Query, err)
	}

	a.metrics.RecordAnalysis("success")
	logger.Log.Infof("Analyzed %s (%s)", rec.Query, rec.CountryCode)
	return &entry, nil
}
