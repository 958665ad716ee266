package naming

import (
	"fmt"
	"strings"
	"time"
)

// UnknownDate is returned whenever a date cannot be read. Callers treat it as
// "extraction failed", never as a literal date.
const UnknownDate = "DDMMYYYY"

type dateLayout struct {
	layout    string
	shortYear bool
}

// Tried in order; the first layout that parses wins. A genuinely ambiguous
// date such as 01/02/2024 is always read day-first.
var dateLayouts = []dateLayout{
	{layout: "2/1/2006"},
	{layout: "2/1/06", shortYear: true},
	{layout: "2006/1/2"},
}

// NormalizeDate reads a loosely formatted date ("05/03/2024", "5-3-24",
// "2024-03-05") and returns it as DDMMYYYY, or UnknownDate.
func NormalizeDate(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return UnknownDate
	}
	value = strings.ReplaceAll(value, "-", "/")

	for _, l := range dateLayouts {
		t, err := time.Parse(l.layout, value)
		if err != nil {
			continue
		}
		year := t.Year()
		if l.shortYear {
			year = 2000 + year%100
		}
		return fmt.Sprintf("%02d%02d%04d", t.Day(), int(t.Month()), year)
	}
	return UnknownDate
}
