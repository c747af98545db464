package model

import (
	"time"
)

// TraceRecord is the caller's own connection as reported by the edge trace endpoint.
// Every field is optional; an absent key stays empty.
type TraceRecord struct {
	IP          string `json:"ip,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	DataCenter  string `json:"data_center,omitempty"`
	HTTPVersion string `json:"http_version,omitempty"`
	TLSVersion  string `json:"tls_version,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	WarpStatus  string `json:"warp,omitempty"`
	VisitScheme string `json:"visit_scheme,omitempty"`
	SNI         string `json:"sni,omitempty"`
}

type GeoStatus string

const (
	GeoSuccess GeoStatus = "success"
	GeoFail    GeoStatus = "fail"
)

// GeoRecord is a normalized geolocation lookup. A record with Status GeoFail
// only carries Query and Message.
type GeoRecord struct {
	Query       string    `json:"query"`
	Status      GeoStatus `json:"status"`
	Message     string    `json:"message,omitempty"`
	Country     string    `json:"country,omitempty"`
	CountryCode string    `json:"country_code,omitempty"`
	Region      string    `json:"region,omitempty"`
	City        string    `json:"city,omitempty"`
	ISP         string    `json:"isp,omitempty"`
	Org         string    `json:"org,omitempty"`
	ASN         string    `json:"asn,omitempty"`
}

func (g GeoRecord) OK() bool {
	return g.Status == GeoSuccess
}

// FailedGeo builds the tagged failure record returned by every provider.
func FailedGeo(query, message string) GeoRecord {
	return GeoRecord{Query: query, Status: GeoFail, Message: message}
}

// AnalysisResult pairs a lookup with the trace. Trace is only set for self-analysis.
type AnalysisResult struct {
	Geo   GeoRecord    `json:"geo"`
	Trace *TraceRecord `json:"trace,omitempty"`
}

// LogEntry is one history item. ID is the creation time in unix milliseconds and
// doubles as the de-duplication clock.
type LogEntry struct {
	ID            int64          `json:"id"`
	Timestamp     string         `json:"timestamp"`
	Result        AnalysisResult `json:"result"`
	SecurityScore *int           `json:"security_score,omitempty"`
}

func (e LogEntry) CreatedAt() time.Time {
	return time.UnixMilli(e.ID)
}

type TipSeverity string

const (
	SeverityInfo     TipSeverity = "info"
	SeverityWarning  TipSeverity = "warning"
	SeverityCritical TipSeverity = "critical"
)

type PrivacyTip struct {
	Title       string      `json:"title" validate:"required"`
	Description string      `json:"description" validate:"required"`
	Severity    TipSeverity `json:"severity" validate:"required,oneof=info warning critical"`
}

type InternetPersonality struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Emoji       string `json:"emoji" validate:"required"`
}

// PrivacyAnalysis is the AI critique. Its shape is validated before it leaves the ai package.
type PrivacyAnalysis struct {
	Personality *InternetPersonality `json:"personality" validate:"required"`
	Tips        []PrivacyTip         `json:"tips" validate:"required,dive"`
}

// Item is a row of the local key-value store.
type Item struct {
	Key       string `gorm:"column:item_key;primaryKey"`
	Value     string
	UpdatedAt time.Time
}

func (Item) TableName() string {
	return "kv_items"
}
