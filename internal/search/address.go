package search

import (
	"regexp"
	"strings"
)

var stateZip = regexp.MustCompile(`^([A-Za-z]{2})(?:\s+(\d{5})(?:-\d{4})?)?$`)

// parseAddress pulls city, state and zip out of a US formatted address such
// as "123 1st Ave, Sandpoint, ID 83864, USA". Missing parts are empty.
func parseAddress(addr string) (city, state, zip string) {
	parts := strings.Split(addr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if n := len(parts); n > 0 {
		last := strings.ToUpper(parts[n-1])
		if last == "USA" || last == "US" || last == "UNITED STATES" {
			parts = parts[:n-1]
		}
	}

	for i := len(parts) - 1; i > 0; i-- {
		m := stateZip.FindStringSubmatch(parts[i])
		if m == nil {
			continue
		}
		return parts[i-1], strings.ToUpper(m[1]), m[2]
	}
	return "", "", ""
}

var stateAbbrev = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"district of columbia": "DC", "florida": "FL", "georgia": "GA", "hawaii": "HI",
	"idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME",
	"maryland": "MD", "massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT", "nebraska": "NE",
	"nevada": "NV", "new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM",
	"new york": "NY", "north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA", "rhode island": "RI",
	"south carolina": "SC", "south dakota": "SD", "tennessee": "TN", "texas": "TX",
	"utah": "UT", "vermont": "VT", "virginia": "VA", "washington": "WA",
	"west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

// normalizeState returns a two-letter code for a state name or code.
func normalizeState(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 2 {
		return strings.ToUpper(s)
	}
	return stateAbbrev[strings.ToLower(s)]
}
