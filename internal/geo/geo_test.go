package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ipscope/internal/config"
	"ipscope/internal/model"
)

func TestSplitASN(t *testing.T) {
	cases := []struct {
		in, asn, org string
	}{
		{"AS15169 Google LLC", "AS15169", "Google LLC"},
		{"Google LLC", "", "Google LLC"},
		{"ASUS Cloud Corp", "", "ASUS Cloud Corp"},
		{"AS13335", "AS13335", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		asn, org := SplitASN(tc.in)
		if asn != tc.asn || org != tc.org {
			t.Errorf("SplitASN(%q) = (%q, %q), want (%q, %q)", tc.in, asn, org, tc.asn, tc.org)
		}
	}
}

func TestNormalize_Success(t *testing.T) {
	raw := `{"ip":"8.8.8.8","city":"Mountain View","region":"California","country":"US","org":"AS15169 Google LLC"}`
	got := Normalize([]byte(raw), "8.8.8.8", "en")

	want := model.GeoRecord{
		Query:       "8.8.8.8",
		Status:      model.GeoSuccess,
		Country:     "United States",
		CountryCode: "US",
		Region:      "California",
		City:        "Mountain View",
		ISP:         "Google LLC",
		Org:         "Google LLC",
		ASN:         "AS15169",
	}
	if got != want {
		t.Errorf("Normalize mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestNormalize_SelfUsesResponseIP(t *testing.T) {
	got := Normalize([]byte(`{"ip":"203.0.113.9","country":"KR"}`), "", "en")
	if got.Query != "203.0.113.9" {
		t.Errorf("Expected query from response, got %q", got.Query)
	}
	if got.Country != "South Korea" {
		t.Errorf("Expected South Korea, got %q", got.Country)
	}
}

func TestNormalize_Failures(t *testing.T) {
	cases := map[string]string{
		`{"ip":"10.0.0.1","bogon":true}`: reservedMessage,
		`{"error":"rate limited"}`:       "rate limited",
		`{"status":404,"error":{"title":"Wrong ip","message":"Please provide a valid IP address"}}`: "Please provide a valid IP address",
	}
	for raw, msg := range cases {
		got := Normalize([]byte(raw), "10.0.0.1", "en")
		if got.Status != model.GeoFail {
			t.Errorf("Expected fail for %s", raw)
		}
		if got.Message != msg {
			t.Errorf("Expected message %q, got %q", msg, got.Message)
		}
		if got.Query != "10.0.0.1" {
			t.Errorf("Expected requested ip echoed, got %q", got.Query)
		}
	}

	if got := Normalize([]byte("not json"), "1.1.1.1", "en"); got.OK() {
		t.Error("Expected malformed body to fail")
	}
}

func TestCountryName(t *testing.T) {
	if got := CountryName("US", "en"); got != "United States" {
		t.Errorf("Expected United States, got %q", got)
	}
	if got := CountryName("not-a-code", "en"); got != "not-a-code" {
		t.Errorf("Expected fallback to code, got %q", got)
	}
	if got := CountryName("", "en"); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
	if got := CountryName("JP", "!!"); got != "Japan" {
		t.Errorf("Expected English fallback for bad locale, got %q", got)
	}
}

func newProvider(t *testing.T, h http.HandlerFunc) (Provider, func()) {
	t.Helper()
	srv := httptest.NewServer(h)
	p, err := Get("ipinfo", config.GeoConfig{Endpoint: srv.URL, Locale: "en", Token: "tok"}, srv.Client())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return p, srv.Close
}

func TestIPInfo_Lookup(t *testing.T) {
	var paths []string
	p, done := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Query().Get("token") != "tok" {
			t.Errorf("token not forwarded")
		}
		w.Write([]byte(`{"ip":"1.1.1.1","country":"AU","org":"AS13335 Cloudflare, Inc."}`))
	})
	defer done()

	rec := p.Lookup(context.Background(), "1.1.1.1")
	if !rec.OK() || rec.ASN != "AS13335" || rec.Org != "Cloudflare, Inc." {
		t.Errorf("unexpected record %+v", rec)
	}

	p.Lookup(context.Background(), "")
	if len(paths) != 2 || paths[0] != "/1.1.1.1/json" || paths[1] != "/json" {
		t.Errorf("unexpected request paths %v", paths)
	}
}

func TestIPInfo_HTTPFailure(t *testing.T) {
	p, done := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("Too Many Requests"))
	})
	defer done()

	rec := p.Lookup(context.Background(), "1.1.1.1")
	if rec.OK() {
		t.Fatal("Expected fail on 429")
	}
	if !strings.Contains(rec.Message, "429") {
		t.Errorf("Expected status in message, got %q", rec.Message)
	}
}

func TestIPInfo_ErrorBodyOnBadStatus(t *testing.T) {
	p, done := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":404,"error":{"title":"Wrong ip","message":"Please provide a valid IP address"}}`))
	})
	defer done()

	rec := p.Lookup(context.Background(), "999.1.1.1")
	if rec.Message != "Please provide a valid IP address" {
		t.Errorf("Expected provider message, got %q", rec.Message)
	}
}

func TestIPInfo_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewIPInfo(config.GeoConfig{Endpoint: url}, http.DefaultClient)
	rec := p.Lookup(context.Background(), "1.1.1.1")
	if rec.OK() || rec.Message == "" {
		t.Errorf("Expected tagged failure, got %+v", rec)
	}
}

func TestGet_Unknown(t *testing.T) {
	if _, err := Get("nope", config.GeoConfig{}, http.DefaultClient); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}
