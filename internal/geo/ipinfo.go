package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ipscope/internal/config"
	"ipscope/internal/logger"
	"ipscope/internal/model"
)

// IPInfo queries an ipinfo.io compatible endpoint: GET <endpoint>[ip/]json.
type IPInfo struct {
	endpoint string
	token    string
	locale   string
	client   *http.Client
}

func NewIPInfo(cfg config.GeoConfig, client *http.Client) *IPInfo {
	endpoint := cfg.Endpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &IPInfo{endpoint: endpoint, token: cfg.Token, locale: cfg.Locale, client: client}
}

func (p *IPInfo) Name() string {
	return "ipinfo"
}

func (p *IPInfo) Lookup(ctx context.Context, ip string) model.GeoRecord {
	target := p.endpoint + "json"
	if ip != "" {
		target = p.endpoint + url.PathEscape(ip) + "/json"
	}
	if p.token != "" {
		target += "?token=" + url.QueryEscape(p.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return model.FailedGeo(ip, err.Error())
	}
	req.Header.Set("Accept", "application/json")

	logger.Log.Debugf("Geo lookup: %q", ip)
	resp, err := p.client.Do(req)
	if err != nil {
		return model.FailedGeo(ip, fmt.Sprintf("geolocation request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.FailedGeo(ip, fmt.Sprintf("failed to read geolocation response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Prefer the provider's own explanation when it sent one.
		if rec := Normalize(body, ip, p.locale); !rec.OK() && !strings.HasPrefix(rec.Message, "malformed") {
			return rec
		}
		return model.FailedGeo(ip, fmt.Sprintf("geolocation API returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	return Normalize(body, ip, p.locale)
}

func init() {
	Register("ipinfo", func(cfg config.GeoConfig, client *http.Client) (Provider, error) {
		return NewIPInfo(cfg, client), nil
	})
}
