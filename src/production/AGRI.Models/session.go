package agrimodels

import "time"

// Session sources.
const (
	SourceManual   = "manual"
	SourceSchedule = "schedule"
)

// ScheduleDetails is the audit snapshot attached to sessions started by the
// schedule engine.
type ScheduleDetails struct {
	Frequency string `bson:"frequency" json:"frequency"`
	TimeOfDay string `bson:"time_of_day" json:"time_of_day"`
	Date      string `bson:"date,omitempty" json:"date,omitempty"`
}

// IrrigationSession is the transient record of one continuous motor-on
// interval. At most one session exists at any time.
type IrrigationSession struct {
	StartedAt   time.Time        `json:"started_at"`
	Source      string           `json:"source"`
	ScheduleRef string           `json:"schedule_ref,omitempty"`
	Details     *ScheduleDetails `json:"details,omitempty"`
}

// IrrigationEvent is the immutable history record produced when a session
// ends.
type IrrigationEvent struct {
	ID              string           `bson:"event_id" json:"id"`
	StartedAt       time.Time        `bson:"started_at" json:"started_at"`
	EndedAt         time.Time        `bson:"ended_at" json:"ended_at"`
	DurationMinutes int              `bson:"duration_minutes" json:"duration_minutes"`
	Source          string           `bson:"source" json:"source"`
	ScheduleRef     string           `bson:"schedule_ref,omitempty" json:"schedule_ref,omitempty"`
	ScheduleDetails *ScheduleDetails `bson:"schedule_details,omitempty" json:"schedule_details,omitempty"`
}
