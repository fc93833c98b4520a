package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedDate is returned when a non-empty date matches none of the known layouts.
var ErrMalformedDate = errors.New("malformed date")

const (
	rfc822NumericZone = "Mon, 02 Jan 2006 15:04:05 -0700"
	rfc822NamedZone   = "Mon, 02 Jan 2006 15:04:05 MST"
	isoSpaced         = "2006-01-02 15:04:05"
)

// Tried after the primary chain fails; feeds in the wild drop the leading
// zero of the day or use RFC 3339 offsets.
var lenientLayouts = []string{
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

var namedZoneLayouts = []string{
	rfc822NamedZone,
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// RFC 822 zone names. time.Parse records unknown abbreviations with a zero
// offset, so named zones are resolved through this table instead.
var rfc822Zones = map[string]int{
	"UTC": 0,
	"GMT": 0,
	"EST": -5 * 3600,
	"EDT": -4 * 3600,
	"CST": -6 * 3600,
	"CDT": -5 * 3600,
	"MST": -7 * 3600,
	"MDT": -6 * 3600,
	"PST": -8 * 3600,
	"PDT": -7 * 3600,
}

// ParseDate normalizes a feed date. Empty input yields (nil, nil); input that
// matches no layout yields ErrMalformedDate.
func ParseDate(text string) (*time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, nil
	}

	if t, err := time.Parse(rfc822NumericZone, s); err == nil {
		return &t, nil
	}

	iso := strings.ReplaceAll(strings.ReplaceAll(s, "T", " "), "Z", "")
	if t, err := time.Parse(isoSpaced, iso); err == nil {
		return &t, nil
	}

	named := s
	if zone := s[strings.LastIndexByte(s, ' ')+1:]; zone == "UT" || zone == "Z" {
		// time.Parse wants at least three letters for a zone name.
		named = strings.TrimSuffix(s, zone) + "GMT"
	}
	for _, layout := range namedZoneLayouts {
		if t, err := time.Parse(layout, named); err == nil {
			return withNamedZone(t, named)
		}
	}

	for _, layout := range lenientLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

// withNamedZone reinterprets the wall clock of t in the RFC 822 zone that ends s.
func withNamedZone(t time.Time, s string) (*time.Time, error) {
	name := strings.ToUpper(s[strings.LastIndexByte(s, ' ')+1:])
	offset, ok := rfc822Zones[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown zone %q in %q", ErrMalformedDate, name, s)
	}

	out := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
		time.FixedZone(name, offset))
	return &out, nil
}
