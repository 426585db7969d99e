package httpdate

import "time"

var zoneGMT = time.FixedZone("GMT", 0)

// Format renders the time in the IMF-fixdate form, e.g. Sun, 06 Nov 1994 08:49:37 GMT.
func Format(t time.Time) string {
	return t.In(zoneGMT).Format(time.RFC1123)
}

// Now returns the current time, formatted for the Date header.
func Now() string {
	return Format(time.Now())
}
