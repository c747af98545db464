// Package geoip is an offline geo provider backed by MaxMind GeoLite2 City and ASN databases.
package geoip

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"

	"ipscope/internal/config"
	"ipscope/internal/geo"
	"ipscope/internal/logger"
	"ipscope/internal/model"

	"github.com/oschwald/geoip2-golang"
)

type Provider struct {
	cityReader *geoip2.Reader
	asnReader  *geoip2.Reader
	locale     string
}

// Open loads the MMDB files. The ASN database is optional.
func Open(cityPath, asnPath, locale string) (*Provider, error) {
	cityReader, err := geoip2.Open(cityPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open City DB at %s: %w", cityPath, err)
	}

	p := &Provider{cityReader: cityReader, locale: locale}

	if asnPath != "" {
		p.asnReader, err = geoip2.Open(asnPath)
		if err != nil {
			logger.Log.Warnf("Failed to open ASN DB at %s: %v. ASN data will be missing.", asnPath, err)
		}
	}
	return p, nil
}

func (p *Provider) Name() string {
	return "mmdb"
}

func (p *Provider) Lookup(_ context.Context, ipStr string) model.GeoRecord {
	if ipStr == "" {
		return model.FailedGeo(ipStr, "offline lookup needs an explicit IP address")
	}

	addr, err := netip.ParseAddr(ipStr)
	if err != nil {
		return model.FailedGeo(ipStr, fmt.Sprintf("invalid ip: %s", ipStr))
	}
	if Reserved(addr) {
		return model.FailedGeo(ipStr, "invalid or reserved IP address")
	}

	ip := net.IP(addr.AsSlice())
	rec := model.GeoRecord{Query: addr.String(), Status: model.GeoSuccess}

	city, err := p.cityReader.City(ip)
	if err != nil {
		return model.FailedGeo(ipStr, fmt.Sprintf("city lookup failed: %v", err))
	}
	rec.CountryCode = city.Country.IsoCode
	rec.Country = localized(city.Country.Names, p.locale)
	if rec.Country == "" {
		rec.Country = geo.CountryName(rec.CountryCode, p.locale)
	}
	rec.City = localized(city.City.Names, p.locale)
	if len(city.Subdivisions) > 0 {
		rec.Region = localized(city.Subdivisions[0].Names, p.locale)
	}

	if p.asnReader != nil {
		if asn, err := p.asnReader.ASN(ip); err == nil && asn.AutonomousSystemNumber != 0 {
			rec.ASN = fmt.Sprintf("AS%d", asn.AutonomousSystemNumber)
			rec.Org = asn.AutonomousSystemOrganization
			rec.ISP = asn.AutonomousSystemOrganization
		}
	}

	if rec.CountryCode == "" && rec.ASN == "" {
		return model.FailedGeo(ipStr, "no data for this address")
	}
	return rec
}

func (p *Provider) Close() error {
	if p.cityReader != nil {
		p.cityReader.Close()
	}
	if p.asnReader != nil {
		p.asnReader.Close()
	}
	return nil
}

// Reserved reports addresses no geolocation database can place.
func Reserved(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !addr.IsValid() ||
		addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() ||
		addr.IsInterfaceLocalMulticast()
}

func localized(names map[string]string, locale string) string {
	if n := names[locale]; n != "" {
		return n
	}
	return names["en"]
}

func init() {
	geo.Register("mmdb", func(cfg config.GeoConfig, _ *http.Client) (geo.Provider, error) {
		p, err := Open(cfg.CityDBPath, cfg.ASNDBPath, cfg.Locale)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}
