package domain

import "fmt"

// TimePeriod names a departure-time-of-day snapshot of the matrix.
type TimePeriod string

const (
	PeriodMorning  TimePeriod = "MORNING"
	PeriodEvening  TimePeriod = "EVENING"
	PeriodMidnight TimePeriod = "MIDNIGHT"
)

// AllPeriods lists every period in matrix order.
func AllPeriods() []TimePeriod {
	return []TimePeriod{PeriodMorning, PeriodEvening, PeriodMidnight}
}

// DepartureTime returns the planner clock time for the period
// (planner "hh:mmam" format).
func (p TimePeriod) DepartureTime() string {
	switch p {
	case PeriodMorning:
		return "08:00am"
	case PeriodEvening:
		return "05:00pm"
	case PeriodMidnight:
		return "11:59pm"
	}
	return ""
}

// ParsePeriod validates a period name from configuration or CLI flags.
func ParsePeriod(s string) (TimePeriod, error) {
	switch TimePeriod(s) {
	case PeriodMorning, PeriodEvening, PeriodMidnight:
		return TimePeriod(s), nil
	}
	return "", fmt.Errorf("parse period: unknown period %q", s)
}

// TransportMode selects the travel mode requested from the trip planner.
type TransportMode string

const (
	ModeWalk    TransportMode = "WALK"
	ModeBicycle TransportMode = "BICYCLE"
)

// ParseMode validates a transport mode name from configuration or CLI flags.
func ParseMode(s string) (TransportMode, error) {
	switch TransportMode(s) {
	case ModeWalk, ModeBicycle:
		return TransportMode(s), nil
	}
	return "", fmt.Errorf("parse mode: unknown transport mode %q", s)
}
