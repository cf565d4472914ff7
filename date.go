package exporter

import "time"

// presentLabel substitutes for the end date of an ongoing position.
const presentLabel = "Present"

// monthYear formats a date as abbreviated month plus year, e.g. "Mar 2021".
// The zero time renders as an empty string.
func monthYear(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2006")
}

// dateRange formats "start – end" with "Present" substituted when the entry
// is current and carries no end date. Either side may be empty.
func dateRange(start, end time.Time, current bool) string {
	from := monthYear(start)
	to := monthYear(end)
	if to == "" && current {
		to = presentLabel
	}
	switch {
	case from == "" && to == "":
		return ""
	case to == "":
		return from
	case from == "":
		return to
	}
	return from + " – " + to
}
