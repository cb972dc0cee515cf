package models

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall clock time without a date, in minutes after midnight.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseTimeOfDay parses the 24-hour "15:04" form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute())
}

func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ClockInput is a time as an operator types it on a 12-hour clock.
type ClockInput struct {
	Hour   int    `json:"hour" validate:"min=1,max=12"`
	Minute int    `json:"minute" validate:"min=0,max=59"`
	Period string `json:"period" validate:"required,oneof=AM PM am pm"`
}

// TimeOfDay converts the 12-hour reading to 24-hour time: 12 AM is midnight, 12 PM is noon.
func (c ClockInput) TimeOfDay() (TimeOfDay, error) {
	if c.Hour < 1 || c.Hour > 12 {
		return 0, fmt.Errorf("invalid hour %d", c.Hour)
	}

	hour := c.Hour % 12
	switch strings.ToUpper(c.Period) {
	case "AM":
	case "PM":
		hour += 12
	default:
		return 0, fmt.Errorf("invalid period %q", c.Period)
	}

	return NewTimeOfDay(hour, c.Minute)
}

type ScheduleWindow struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether t lies in [Start, End]. A window whose end is
// before its start never contains anything.
func (w ScheduleWindow) Contains(t TimeOfDay) bool {
	return w.Start <= t && t <= w.End
}

func (w ScheduleWindow) Overnight() bool {
	return w.End < w.Start
}

type ScheduleStatus struct {
	Window     ScheduleWindow `json:"window"`
	Engaged    bool           `json:"engaged"`
	ManualStop bool           `json:"manual_stop"`
	Inside     bool           `json:"inside"`
}
