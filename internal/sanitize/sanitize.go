// Package sanitize normalizes untrusted tracking-payload fields. Every
// function is total: malformed input degrades to nil or a safe default, never
// to an error, so an analytics field can never fail a visitor's request.
package sanitize

import "strings"

// DefaultEventType is the safe baseline for unrecognized event types.
const DefaultEventType = "page_view"

var eventTypes = map[string]bool{
	"qr_scan":            true,
	"page_view":          true,
	"diagnosis_start":    true,
	"diagnosis_complete": true,
}

var ctaTypes = map[string]bool{
	"phone":   true,
	"line":    true,
	"website": true,
	"reserve": true,
	"map":     true,
}

var genders = map[string]bool{
	"male":   true,
	"female": true,
	"other":  true,
}

// String returns the trimmed value truncated to max runes, or nil when the
// value is not a string or empty after trimming.
func String(v interface{}, max int) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if runes := []rune(s); len(runes) > max {
		s = string(runes[:max])
	}
	return &s
}

// EventType validates against the event allow-list and falls back to
// DefaultEventType.
func EventType(v interface{}) string {
	s, ok := v.(string)
	if !ok || !eventTypes[s] {
		return DefaultEventType
	}
	return s
}

// CTAType validates against the CTA allow-list; unknown values become nil.
func CTAType(v interface{}) *string {
	s, ok := v.(string)
	if !ok || !ctaTypes[s] {
		return nil
	}
	return &s
}

// Gender validates against the gender allow-list; unknown values become nil.
func Gender(v interface{}) *string {
	s, ok := v.(string)
	if !ok || !genders[s] {
		return nil
	}
	return &s
}

// Latitude accepts numbers in [-90, 90].
func Latitude(v interface{}) *float64 {
	f, ok := toFloat(v)
	if !ok || f < -90 || f > 90 {
		return nil
	}
	return &f
}

// Longitude accepts numbers in [-180, 180].
func Longitude(v interface{}) *float64 {
	f, ok := toFloat(v)
	if !ok || f < -180 || f > 180 {
		return nil
	}
	return &f
}

// Age accepts whole numbers in [0, 120].
func Age(v interface{}) *int {
	i, ok := toInt(v)
	if !ok || i < 0 || i > 120 {
		return nil
	}
	return &i
}

// Score accepts whole numbers in [0, 100].
func Score(v interface{}) *int {
	i, ok := toInt(v)
	if !ok || i < 0 || i > 100 {
		return nil
	}
	return &i
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		// JSON numbers decode as float64; only whole values count.
		if n != float64(int64(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
