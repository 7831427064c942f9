// Package stage defines the contract between the pipeline orchestrator and
// the enrichment stages it drives.
package stage

import (
	"context"

	"signalwatch/internal/store"
)

// Handler describes the contract the pipeline needs from each stage.
// Execute performs the stage's work for a single video and reports a
// classified outcome; it must not mutate video status, that is the
// orchestrator's job.
type Handler interface {
	Name() string
	Execute(context.Context, *store.Video) Outcome
	HealthCheck(context.Context) Health
}
