// Package geo provides best-effort location enrichment. Both resolvers
// degrade to an empty Location on any failure; callers never see an error and
// never block past the configured provider timeout.
package geo

import "math"

// Location is a coarse or reverse-geocoded place. Nil fields mean unknown.
type Location struct {
	Country *string
	Region  *string
	City    *string
	Town    *string
}

func (l Location) IsZero() bool {
	return l.Country == nil && l.Region == nil && l.City == nil && l.Town == nil
}

// RoundCoord rounds a coordinate to 2 decimal places (~1 km). This is the
// privacy floor for stored coordinates: the unrounded value must never be
// persisted.
func RoundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}

func strptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
