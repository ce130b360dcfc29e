package agrimodels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleValidate(t *testing.T) {
	valid := Schedule{TimeOfDay: "06:30", Action: ActionOn, DurationMinutes: 20, Frequency: FrequencyDaily}
	assert.NoError(t, valid.Validate())

	weekly := Schedule{TimeOfDay: "18:00", Action: ActionOff, Frequency: FrequencyWeekly, Date: "2026-09-01"}
	assert.NoError(t, weekly.Validate())

	tests := []struct {
		name  string
		sched Schedule
	}{
		{"bad time", Schedule{TimeOfDay: "6:99", Action: ActionOn, Frequency: FrequencyDaily}},
		{"bad action", Schedule{TimeOfDay: "06:00", Action: "open", Frequency: FrequencyDaily}},
		{"bad frequency", Schedule{TimeOfDay: "06:00", Action: ActionOn, Frequency: "hourly"}},
		{"weekly without date", Schedule{TimeOfDay: "06:00", Action: ActionOn, Frequency: FrequencyWeekly}},
		{"negative duration", Schedule{TimeOfDay: "06:00", Action: ActionOn, DurationMinutes: -1, Frequency: FrequencyDaily}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.sched.Validate())
		})
	}
}

func TestScheduleDetails(t *testing.T) {
	sched := Schedule{TimeOfDay: "18:00", Frequency: FrequencyWeekly, Date: "2026-09-01"}
	details := sched.Details()
	require.NotNil(t, details)
	assert.Equal(t, FrequencyWeekly, details.Frequency)
	assert.Equal(t, "18:00", details.TimeOfDay)
	assert.Equal(t, "2026-09-01", details.Date)
}
