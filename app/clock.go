package app

import (
	"strings"
	"time"
	_ "time/tzdata"

	"casedesk/internal/errors"
)

const (
	// TimeLayout formats local wall-clock time
	TimeLayout = "2006-01-02 15:04:05"
	// ZonedTimeLayout formats time in a named zone, abbreviation included
	ZonedTimeLayout = "2006-01-02 15:04:05 MST"

	DefaultTimezone = "UTC"
)

// Clock returns the current time
type Clock func() time.Time

// LookupZone resolves an IANA zone name. Blank means UTC.
func LookupZone(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.UnknownTimezone(tz)
	}
	return loc, nil
}
