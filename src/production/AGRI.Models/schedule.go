package agrimodels

import (
	"fmt"
	"time"
)

// Schedule actions and frequencies.
const (
	ActionOn  = "on"
	ActionOff = "off"

	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// Layouts for the string-typed schedule fields.
const (
	TimeOfDayLayout = "15:04"
	DateLayout      = "2006-01-02"
)

// Schedule is a recurring (daily) or one-shot (weekly) watering rule.
// Weekly schedules carry a concrete Date and are deactivated after their
// single firing.
type Schedule struct {
	ID              string    `bson:"schedule_id" json:"id"`
	TimeOfDay       string    `bson:"time_of_day" json:"time_of_day"`
	Action          string    `bson:"action" json:"action"`
	DurationMinutes int       `bson:"duration_minutes" json:"duration_minutes"`
	Frequency       string    `bson:"frequency" json:"frequency"`
	Date            string    `bson:"date,omitempty" json:"date,omitempty"`
	Active          bool      `bson:"active" json:"active"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}

// Validate checks field values on creation.
func (s *Schedule) Validate() error {
	if _, err := time.Parse(TimeOfDayLayout, s.TimeOfDay); err != nil {
		return fmt.Errorf("invalid time_of_day %q: expected HH:MM", s.TimeOfDay)
	}
	if s.Action != ActionOn && s.Action != ActionOff {
		return fmt.Errorf("invalid action %q: expected on or off", s.Action)
	}
	if s.DurationMinutes < 0 {
		return fmt.Errorf("invalid duration_minutes %d: must be >= 0", s.DurationMinutes)
	}
	switch s.Frequency {
	case FrequencyDaily:
		// date ignored for daily schedules
	case FrequencyWeekly:
		if _, err := time.Parse(DateLayout, s.Date); err != nil {
			return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s.Date)
		}
	default:
		return fmt.Errorf("invalid frequency %q: expected daily or weekly", s.Frequency)
	}
	return nil
}

// Details returns the audit snapshot attached to sessions this schedule
// starts.
func (s *Schedule) Details() *ScheduleDetails {
	return &ScheduleDetails{
		Frequency: s.Frequency,
		TimeOfDay: s.TimeOfDay,
		Date:      s.Date,
	}
}
