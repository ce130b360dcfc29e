package interfaces

import (
	"context"

	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// HistoryRepository stores the bounded irrigation event log, most recent
// first, truncated to the retention cap on write.
type HistoryRepository interface {
	ReplaceAll(ctx context.Context, events []agrimodels.IrrigationEvent) error
	LoadRecent(ctx context.Context, limit int) ([]agrimodels.IrrigationEvent, error)
}
