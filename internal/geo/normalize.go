package geo

import (
	"encoding/json"
	"regexp"
	"strings"

	"ipscope/internal/model"
)

const reservedMessage = "invalid or reserved IP address"

var asnToken = regexp.MustCompile(`^AS\d+$`)

type ipinfoResponse struct {
	IP      string          `json:"ip"`
	City    string          `json:"city"`
	Region  string          `json:"region"`
	Country string          `json:"country"`
	Org     string          `json:"org"`
	Bogon   bool            `json:"bogon"`
	Error   json.RawMessage `json:"error"`
}

// Normalize maps an ipinfo-style JSON body into a GeoRecord.
func Normalize(raw []byte, requestedIP, locale string) model.GeoRecord {
	var data ipinfoResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return model.FailedGeo(requestedIP, "malformed geolocation response: "+err.Error())
	}

	if msg := errorMessage(data.Error); msg != "" {
		return model.FailedGeo(requestedIP, msg)
	}
	if data.Bogon {
		return model.FailedGeo(requestedIP, reservedMessage)
	}

	query := data.IP
	if query == "" {
		query = requestedIP
	}

	asn, org := SplitASN(data.Org)

	return model.GeoRecord{
		Query:       query,
		Status:      model.GeoSuccess,
		Country:     CountryName(data.Country, locale),
		CountryCode: data.Country,
		Region:      data.Region,
		City:        data.City,
		ISP:         org,
		Org:         org,
		ASN:         asn,
	}
}

// SplitASN separates a leading "AS<digits>" token from an organization string.
func SplitASN(field string) (asn, org string) {
	field = strings.TrimSpace(field)
	if field == "" {
		return "", ""
	}
	first, rest, _ := strings.Cut(field, " ")
	if asnToken.MatchString(first) {
		return first, strings.TrimSpace(rest)
	}
	return "", field
}

// errorMessage reads the provider error field, which is either a string or
// an object with title and message.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return reservedMessage
		}
		return s
	}

	var obj struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Title != "" {
			return obj.Title
		}
	}
	return reservedMessage
}
