package tracker

import (
	"net/url"
	"strconv"
	"strings"
)

// recordDelimiter separates the percentage from the location in a stored record.
const recordDelimiter = "|||"

// Encode renders p in the persisted wire format: the percent-encoded
// "<percent>|||<location>".
func Encode(p Progress) string {
	return url.PathEscape(strconv.Itoa(p.ScrollPercent) + recordDelimiter + p.DocumentLocation)
}

// Decode parses a stored record. Anything that does not split into exactly
// two parts with an integer percentage reports ok=false.
func Decode(raw string) (Progress, bool) {
	value, err := url.PathUnescape(raw)
	if err != nil {
		return Progress{}, false
	}
	parts := strings.Split(value, recordDelimiter)
	if len(parts) != 2 {
		return Progress{}, false
	}
	percent, err := strconv.Atoi(parts[0])
	if err != nil {
		return Progress{}, false
	}
	return Progress{ScrollPercent: percent, DocumentLocation: parts[1]}, true
}
