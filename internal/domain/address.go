package domain

import "strings"

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// NeedsGeocoding decides whether a write must resolve the address from coordinates.
//
// On create (stored == nil) the address is resolved only when the caller left it blank.
// On update it is resolved when the incoming address is blank or when either
// coordinate differs from the stored value; a caller-supplied address is kept
// verbatim only while the coordinates stay put. Coordinates are compared exactly,
// not by their rounded cache key.
func NeedsGeocoding(stored *Report, in ReportInput) bool {
	if IsBlank(in.Address) {
		return true
	}
	if stored == nil {
		return false
	}
	return stored.Latitude != in.Lat() || stored.Longitude != in.Lon()
}
