package wellknown

import (
	"fmt"
	"time"
)

// hashHandler projects a byte slice onto its hex encoding.
type hashHandler struct{}

func (hashHandler) TypeName() string { return "Hash" }

func (hashHandler) Process(fields map[string]FieldValue) Result {
	raw, ok := rawBytesOf(fields, 32)
	if !ok {
		if v, ok := fields["$bytes"]; ok && v.IsBytes {
			raw = v.Bytes
		} else {
			return none
		}
	}
	return Result{Matched: true, Enrichment: map[string]any{"hex": fmt.Sprintf("%x", raw)}}
}

// timestampHandler projects {seconds, nanos} onto an RFC-3339 string.
type timestampHandler struct{}

func (timestampHandler) TypeName() string { return "Timestamp" }

func (timestampHandler) Process(fields map[string]FieldValue) Result {
	secs, ok := fieldInt(fields, "seconds")
	if !ok {
		return none
	}
	nanos := fieldIntDefault(fields, "nanos", 0)
	t := time.Unix(secs, nanos).UTC()
	return Result{Matched: true, Enrichment: map[string]any{"iso8601": t.Format(time.RFC3339Nano)}}
}

// durationHandler projects {seconds, nanos} onto an ISO-8601 duration
// string (PT1H30M, PT-1H30M for negative durations).
type durationHandler struct{}

func (durationHandler) TypeName() string { return "Duration" }

func (durationHandler) Process(fields map[string]FieldValue) Result {
	secs, ok := fieldInt(fields, "seconds")
	if !ok {
		return none
	}
	nanos := fieldIntDefault(fields, "nanos", 0)
	return Result{Matched: true, Enrichment: map[string]any{"iso8601": formatISO8601Duration(secs, nanos)}}
}

func formatISO8601Duration(seconds, nanos int64) string {
	negative := seconds < 0 || (seconds == 0 && nanos < 0)
	total := absInt64(seconds)
	absNanos := absInt64(nanos)

	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	out := "PT"
	if negative {
		out += "-"
	}

	if hours > 0 {
		out += fmt.Sprintf("%dH", hours)
	}
	if minutes > 0 {
		out += fmt.Sprintf("%dM", minutes)
	}
	if secs > 0 || absNanos > 0 || (hours == 0 && minutes == 0) {
		if absNanos > 0 {
			frac := float64(absNanos) / 1_000_000_000.0
			fracStr := trimFraction(fmt.Sprintf("%.9f", frac))
			out += fmt.Sprintf("%d.%sS", secs, fracStr)
		} else {
			out += fmt.Sprintf("%dS", secs)
		}
	}
	return out
}

func trimFraction(s string) string {
	// s looks like "0.123000000"; keep only what follows the decimal
	// point, with trailing zeros stripped.
	for i, c := range s {
		if c == '.' {
			frac := s[i+1:]
			j := len(frac)
			for j > 0 && frac[j-1] == '0' {
				j--
			}
			if j == 0 {
				return "0"
			}
			return frac[:j]
		}
	}
	return s
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// dateHandler projects {year, month, day} onto an ISO-8601 date string,
// validated via time.Date round-tripping back to the same y/m/d.
type dateHandler struct{}

func (dateHandler) TypeName() string { return "Date" }

func (dateHandler) Process(fields map[string]FieldValue) Result {
	year, ok1 := fieldInt(fields, "year")
	month, ok2 := fieldInt(fields, "month")
	day, ok3 := fieldInt(fields, "day")
	if !ok1 || !ok2 || !ok3 {
		return none
	}
	t := time.Date(int(year), time.Month(month), int(day), 0, 0, 0, 0, time.UTC)
	if int64(t.Year()) != year || int64(t.Month()) != month || int64(t.Day()) != day {
		return none
	}
	return Result{Matched: true, Enrichment: map[string]any{"iso8601": t.Format("2006-01-02")}}
}

// dateTimeHandler projects a full calendar date/time with UTC offset onto
// an RFC-3339 string.
type dateTimeHandler struct{}

func (dateTimeHandler) TypeName() string { return "DateTime" }

func (dateTimeHandler) Process(fields map[string]FieldValue) Result {
	year, ok1 := fieldInt(fields, "year")
	month, ok2 := fieldInt(fields, "month")
	day, ok3 := fieldInt(fields, "day")
	hours, ok4 := fieldInt(fields, "hours")
	minutes, ok5 := fieldInt(fields, "minutes")
	seconds, ok6 := fieldInt(fields, "seconds")
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return none
	}
	nanos := fieldIntDefault(fields, "nanos", 0)
	offsetSeconds := fieldIntDefault(fields, "utc_offset_seconds", 0)

	loc := time.FixedZone("", int(offsetSeconds))
	t := time.Date(int(year), time.Month(month), int(day), int(hours), int(minutes), int(seconds), int(nanos), loc)
	return Result{Matched: true, Enrichment: map[string]any{"iso8601": t.Format(time.RFC3339Nano)}}
}

// timeOfDayHandler projects {hours, minutes, seconds, nanos} onto a plain
// HH:MM:SS(.fff) string.
type timeOfDayHandler struct{}

func (timeOfDayHandler) TypeName() string { return "TimeOfDay" }

func (timeOfDayHandler) Process(fields map[string]FieldValue) Result {
	hours, ok1 := fieldInt(fields, "hours")
	minutes, ok2 := fieldInt(fields, "minutes")
	seconds, ok3 := fieldInt(fields, "seconds")
	if !ok1 || !ok2 || !ok3 {
		return none
	}
	nanos := fieldIntDefault(fields, "nanos", 0)
	s := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	if nanos > 0 {
		s += "." + trimFraction(fmt.Sprintf("%.9f", float64(nanos)/1_000_000_000.0))
	}
	return Result{Matched: true, Enrichment: map[string]any{"formatted": s}}
}

var dayOfWeekNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// dayOfWeekHandler names a 0 (Sunday) .. 6 (Saturday) "value" field.
type dayOfWeekHandler struct{}

func (dayOfWeekHandler) TypeName() string { return "DayOfWeek" }

func (dayOfWeekHandler) Process(fields map[string]FieldValue) Result {
	v, ok := fieldInt(fields, "value")
	if !ok {
		return none
	}
	name := unknownName(v)
	if v >= 0 && int(v) < len(dayOfWeekNames) {
		name = dayOfWeekNames[v]
	}
	return Result{Matched: true, Enrichment: map[string]any{"name": name}}
}

var monthNames = []string{"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December"}

// monthHandler names a 1..12 "value" field.
type monthHandler struct{}

func (monthHandler) TypeName() string { return "Month" }

func (monthHandler) Process(fields map[string]FieldValue) Result {
	v, ok := fieldInt(fields, "value")
	if !ok {
		return none
	}
	name := unknownName(v)
	if v >= 1 && v <= 12 {
		name = monthNames[v-1]
	}
	return Result{Matched: true, Enrichment: map[string]any{"name": name}}
}

var calendarPeriodNames = []string{
	"CALENDAR_PERIOD_UNSPECIFIED", "DAY", "WEEK", "FORTNIGHT", "MONTH", "QUARTER", "HALF", "YEAR",
}

// calendarPeriodHandler names a 0..7 "value" field.
type calendarPeriodHandler struct{}

func (calendarPeriodHandler) TypeName() string { return "CalendarPeriod" }

func (calendarPeriodHandler) Process(fields map[string]FieldValue) Result {
	v, ok := fieldInt(fields, "value")
	if !ok {
		return none
	}
	name := unknownName(v)
	if v >= 0 && int(v) < len(calendarPeriodNames) {
		name = calendarPeriodNames[v]
	}
	return Result{Matched: true, Enrichment: map[string]any{"name": name}}
}

func unknownName(v int64) string {
	return fmt.Sprintf("Unknown(%d)", v)
}
