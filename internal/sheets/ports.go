package sheets

import (
	"context"

	"bilancio/internal/obligation"
)

// Ports for outbound adapters.
type (
	// SummaryExporter publishes computed views of a household to an external
	// sheet. Exports are snapshots; nothing is read back.
	SummaryExporter interface {
		ExportSummary(ctx context.Context, household string, s obligation.Summary) error
		ExportProjection(ctx context.Context, household string, months []obligation.ProjectionMonth) error
	}
)
