package interfaces

import (
	"context"

	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// ScheduleRepository stores the full schedule list. The coordinator owns
// the in-memory copy; the repository only ever sees whole-list writes.
type ScheduleRepository interface {
	ReplaceAll(ctx context.Context, schedules []agrimodels.Schedule) error
	LoadAll(ctx context.Context) ([]agrimodels.Schedule, error)
}
