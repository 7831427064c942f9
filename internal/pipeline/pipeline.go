package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"signalwatch/internal/config"
	"signalwatch/internal/feed"
	"signalwatch/internal/logging"
	"signalwatch/internal/notifications"
	"signalwatch/internal/stage"
	"signalwatch/internal/store"
)

// FeedSource fetches the current entries for one channel.
type FeedSource interface {
	Fetch(ctx context.Context, channelID string) ([]feed.Entry, error)
}

// stageSpec binds a stage handler to the statuses it services.
type stageSpec struct {
	name          string
	handler       stage.Handler
	fromStatuses  map[store.Status]struct{}
	pendingStatus store.Status
	doneStatus    store.Status
}

// Pipeline coordinates runs over the shared store.
type Pipeline struct {
	cfg      *config.Config
	store    *store.Store
	source   FeedSource
	stages   []stageSpec
	logger   *slog.Logger
	notifier notifications.Service

	mu      sync.Mutex
	running bool
}

// New constructs a pipeline. The transcript and summary handlers implement
// the two enrichment stages; nil logger and notifier fall back to no-ops.
func New(cfg *config.Config, st *store.Store, source FeedSource, transcriptHandler, summaryHandler stage.Handler, logger *slog.Logger, notifier notifications.Service) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(&config.Config{})
	}
	return &Pipeline{
		cfg:    cfg,
		store:  st,
		source: source,
		stages: []stageSpec{
			{
				name:    store.StageTranscript,
				handler: transcriptHandler,
				fromStatuses: map[store.Status]struct{}{
					store.StatusDiscovered:        {},
					store.StatusTranscriptPending: {},
				},
				pendingStatus: store.StatusTranscriptPending,
				doneStatus:    store.StatusTranscriptReady,
			},
			{
				name:    store.StageSummary,
				handler: summaryHandler,
				fromStatuses: map[store.Status]struct{}{
					store.StatusTranscriptReady: {},
					store.StatusSummaryPending:  {},
				},
				pendingStatus: store.StatusSummaryPending,
				doneStatus:    store.StatusEnriched,
			},
		},
		logger:   logger.With(logging.String(logging.FieldComponent, "pipeline")),
		notifier: notifier,
	}
}

// Health reports the readiness of every stage handler.
func (p *Pipeline) Health(ctx context.Context) []stage.Health {
	health := make([]stage.Health, 0, len(p.stages))
	for _, spec := range p.stages {
		if spec.handler == nil {
			health = append(health, stage.Unhealthy(spec.name, "handler not configured"))
			continue
		}
		health = append(health, spec.handler.HealthCheck(ctx))
	}
	return health
}

// stageFor returns the stage spec that services the video's current status.
func (p *Pipeline) stageFor(status store.Status) (stageSpec, bool) {
	for _, spec := range p.stages {
		if _, ok := spec.fromStatuses[status]; ok {
			return spec, true
		}
	}
	return stageSpec{}, false
}
