package domain

import "time"

// Timeframe is a trailing reporting window.
type Timeframe string

const (
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"
	Timeframe90d Timeframe = "90d"
	Timeframe1y  Timeframe = "1y"
)

// ParseTimeframe maps query values onto a Timeframe, defaulting to 30 days.
func ParseTimeframe(v string) Timeframe {
	switch v {
	case "7d":
		return Timeframe7d
	case "90d":
		return Timeframe90d
	case "1y", "365d":
		return Timeframe1y
	default:
		return Timeframe30d
	}
}

// Start returns the beginning of the window ending at now.
func (t Timeframe) Start(now time.Time) time.Time {
	return t.shift(now, 1)
}

// PreviousStart returns the beginning of the equally long window that precedes Start.
func (t Timeframe) PreviousStart(now time.Time) time.Time {
	return t.shift(now, 2)
}

func (t Timeframe) shift(now time.Time, n int) time.Time {
	switch t {
	case Timeframe7d:
		return now.AddDate(0, 0, -7*n)
	case Timeframe90d:
		return now.AddDate(0, 0, -90*n)
	case Timeframe1y:
		return now.AddDate(-n, 0, 0)
	default:
		return now.AddDate(0, 0, -30*n)
	}
}
