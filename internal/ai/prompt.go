package ai

import (
	"fmt"
	"strings"

	"ipscope/internal/model"
)

const unknown = "unknown"

func critiquePrompt(t model.TraceRecord) string {
	var b strings.Builder
	b.WriteString("You are a witty and capable cybersecurity expert. Analyze the user's connection data ")
	b.WriteString("and produce privacy tips plus a playful 'internet personality'.\n\n")
	b.WriteString("User data:\n")
	fmt.Fprintf(&b, "- IP address: %s\n", orUnknown(t.IP))
	fmt.Fprintf(&b, "- Country: %s\n", orUnknown(t.CountryCode))
	fmt.Fprintf(&b, "- Data center: %s\n", orUnknown(t.DataCenter))
	fmt.Fprintf(&b, "- HTTP version: %s\n", orUnknown(t.HTTPVersion))
	fmt.Fprintf(&b, "- TLS version: %s\n", orUnknown(t.TLSVersion))
	fmt.Fprintf(&b, "- User agent: %s\n", orUnknown(t.UserAgent))
	fmt.Fprintf(&b, "- WARP: %s\n\n", orUnknown(t.WarpStatus))
	b.WriteString("The output must follow the JSON schema.\n")
	b.WriteString("- personality: a fun, creative internet personality based on the data ")
	b.WriteString("(for example: steady homebody, digital nomad, early adopter).\n")
	b.WriteString("- tips: explain what each data point means for privacy and give concrete advice. ")
	b.WriteString("Classify severity as one of 'info', 'warning' or 'critical'.\n")
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

// critiqueSchema mirrors model.PrivacyAnalysis.
var critiqueSchema = map[string]interface{}{
	"type": "OBJECT",
	"properties": map[string]interface{}{
		"personality": map[string]interface{}{
			"type": "OBJECT",
			"properties": map[string]interface{}{
				"title":       stringField("Name of the internet personality"),
				"description": stringField("A fun description of the personality"),
				"emoji":       stringField("An emoji for the personality"),
			},
			"required": []string{"title", "description", "emoji"},
		},
		"tips": map[string]interface{}{
			"type": "ARRAY",
			"items": map[string]interface{}{
				"type": "OBJECT",
				"properties": map[string]interface{}{
					"title":       stringField("Title of the privacy tip"),
					"description": stringField("Detailed explanation of the tip"),
					"severity": map[string]interface{}{
						"type":        "STRING",
						"enum":        []string{string(model.SeverityInfo), string(model.SeverityWarning), string(model.SeverityCritical)},
						"description": "How important the tip is",
					},
				},
				"required": []string{"title", "description", "severity"},
			},
		},
	},
	"required": []string{"personality", "tips"},
}

func stringField(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "STRING", "description": desc}
}
