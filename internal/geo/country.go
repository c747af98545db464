package geo

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// CountryName maps an ISO 3166 code to its display name in locale,
// falling back to the code itself.
func CountryName(code, locale string) string {
	if code == "" {
		return ""
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	namer := display.Regions(tag)
	if namer == nil {
		namer = display.Regions(language.English)
	}

	if name := namer.Name(region); name != "" {
		return name
	}
	return code
}
