// Package score rates a connection from its trace.
//
// The result is a heuristic label built from three fixed contributions
// (TLS version, HTTP version, privacy proxy). It is not a risk assessment
// and says nothing about the security of the endpoint itself.
package score

import (
	"strings"

	"ipscope/internal/model"
)

const (
	TLS13Points = 35
	TLS12Points = 15
	HTTP3Points = 35
	HTTP2Points = 25
	WarpPoints  = 30
)

// Score returns a value in [0,100].
func Score(t model.TraceRecord) int {
	total := tlsPoints(t.TLSVersion) + httpPoints(t.HTTPVersion) + warpPoints(t.WarpStatus)
	return clamp(total, 0, 100)
}

func tlsPoints(v string) int {
	v = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "tlsv")
	switch v {
	case "1.3":
		return TLS13Points
	case "1.2":
		return TLS12Points
	}
	return 0
}

func httpPoints(v string) int {
	v = strings.ToLower(strings.TrimSpace(v))
	switch {
	case v == "h3", strings.HasPrefix(v, "h3-"), v == "http/3":
		return HTTP3Points
	case v == "http/2", v == "h2":
		return HTTP2Points
	}
	return 0
}

func warpPoints(v string) int {
	if strings.EqualFold(strings.TrimSpace(v), "on") {
		return WarpPoints
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Grade buckets a score for display.
func Grade(s int) string {
	switch {
	case s >= 70:
		return "strong"
	case s >= 40:
		return "moderate"
	}
	return "weak"
}
