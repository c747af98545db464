// Package geo resolves an IP to a normalized GeoRecord through pluggable providers.
package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"ipscope/internal/config"
	"ipscope/internal/model"
)

// Provider looks up an IP. An empty ip means the caller's own address.
// Lookup never returns an error: every failure is a record with Status fail.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, ip string) model.GeoRecord
}

type Factory func(cfg config.GeoConfig, client *http.Client) (Provider, error)

var registry = make(map[string]Factory)

func Register(name string, factory Factory) {
	registry[name] = factory
}

func Get(name string, cfg config.GeoConfig, client *http.Client) (Provider, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("geo provider '%s' not found", name)
	}
	return factory(cfg, client)
}

// Close releases provider resources when the provider holds any.
func Close(p Provider) {
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
}
