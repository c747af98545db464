// Package trace fetches and parses the edge trace describing the caller's own connection.
package trace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ipscope/internal/logger"
	"ipscope/internal/model"
)

// Parse turns a key=value body into a TraceRecord. It never fails: lines
// without '=' are dropped and unknown keys are ignored.
func Parse(body string) model.TraceRecord {
	data := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		parts := strings.SplitN(strings.TrimRight(line, "\r"), "=", 2)
		if len(parts) != 2 {
			continue
		}
		data[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	return model.TraceRecord{
		IP:          data["ip"],
		CountryCode: data["loc"],
		DataCenter:  data["colo"],
		HTTPVersion: data["http"],
		TLSVersion:  data["tls"],
		UserAgent:   data["uag"],
		WarpStatus:  data["warp"],
		VisitScheme: data["visit_scheme"],
		SNI:         data["sni"],
	}
}

type Fetcher struct {
	url    string
	client *http.Client
}

func NewFetcher(url string, client *http.Client) *Fetcher {
	return &Fetcher{url: url, client: client}
}

func (f *Fetcher) Fetch(ctx context.Context) (model.TraceRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return model.TraceRecord{}, err
	}

	logger.Log.Debugf("Fetching trace: %s", f.url)
	resp, err := f.client.Do(req)
	if err != nil {
		return model.TraceRecord{}, fmt.Errorf("failed to fetch trace: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.TraceRecord{}, fmt.Errorf("failed to read trace body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.TraceRecord{}, fmt.Errorf("trace endpoint returned status %d", resp.StatusCode)
	}

	return Parse(string(body)), nil
}
