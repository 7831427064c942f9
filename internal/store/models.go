package store

import (
	"fmt"
	"strings"
	"time"
)

// Status tracks a video through the enrichment pipeline.
type Status string

const (
	StatusDiscovered        Status = "discovered"
	StatusTranscriptPending Status = "transcript_pending"
	StatusTranscriptReady   Status = "transcript_ready"
	StatusSummaryPending    Status = "summary_pending"
	StatusEnriched          Status = "enriched"
	StatusFailed            Status = "failed"
)

// Stage names used in failure records and run counters.
const (
	StageTranscript = "transcript"
	StageSummary    = "summary"
)

var allStatuses = []Status{
	StatusDiscovered,
	StatusTranscriptPending,
	StatusTranscriptReady,
	StatusSummaryPending,
	StatusEnriched,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// statusRank defines the forward ordering of pipeline states. Failure and
// success are absorbing so they rank above every working state.
var statusRank = map[Status]int{
	StatusDiscovered:        0,
	StatusTranscriptPending: 1,
	StatusTranscriptReady:   2,
	StatusSummaryPending:    3,
	StatusEnriched:          4,
	StatusFailed:            4,
}

// ActiveStatuses lists the non-terminal states eligible for pipeline work, in
// forward order.
func ActiveStatuses() []Status {
	return []Status{StatusDiscovered, StatusTranscriptPending, StatusTranscriptReady, StatusSummaryPending}
}

// ParseStatus validates a raw status value.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return status, nil
}

// Terminal reports whether the status admits no further automatic work.
func (s Status) Terminal() bool {
	return s == StatusEnriched || s == StatusFailed
}

// Before reports whether s precedes other in the pipeline ordering. Used to
// guard against state regression.
func (s Status) Before(other Status) bool {
	return statusRank[s] < statusRank[other]
}

// Video is one discovered unit of content tracked through the pipeline.
type Video struct {
	ID                string
	ChannelID         string
	Title             string
	PublishedAt       time.Time
	Status            Status
	FailedStage       string
	LastError         string
	TranscriptRetries int
	SummaryRetries    int
	DiscoveredAt      time.Time
	UpdatedAt         time.Time
	EnrichedAt        *time.Time
}

// SetFailed marks the video permanently failed for the given stage.
func (v *Video) SetFailed(stage, reason string) {
	v.Status = StatusFailed
	v.FailedStage = stage
	v.LastError = strings.TrimSpace(reason)
}

// ResetFailedStage moves a failed video back to the pending state of the
// stage it failed in, clearing the failure record. This is the only sanctioned
// backward transition and requires an explicit operator action.
func (v *Video) ResetFailedStage() error {
	if v.Status != StatusFailed {
		return fmt.Errorf("video %s is %s, not failed", v.ID, v.Status)
	}
	switch v.FailedStage {
	case StageTranscript:
		v.Status = StatusTranscriptPending
	case StageSummary:
		v.Status = StatusSummaryPending
	default:
		return fmt.Errorf("video %s has unknown failed stage %q", v.ID, v.FailedStage)
	}
	v.FailedStage = ""
	v.LastError = ""
	return nil
}

// BumpRetry increments the retry counter for the given stage.
func (v *Video) BumpRetry(stage string) {
	switch stage {
	case StageTranscript:
		v.TranscriptRetries++
	case StageSummary:
		v.SummaryRetries++
	}
}

// Channel mirrors one configured channel row.
type Channel struct {
	ID        string
	Name      string
	URL       string
	Domain    string
	Priority  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transcript is the persisted transcript artifact for one video.
type Transcript struct {
	VideoID   string
	Language  string
	Content   string
	FetchedAt time.Time
}

// Summary is the persisted summarization artifact for one video. Field names
// follow the downstream digest contract.
type Summary struct {
	VideoID     string
	Summary     string
	KeyPoints   []string
	Category    string
	Model       string
	GeneratedAt time.Time
}

// Trigger records what started a pipeline run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// RunStatus describes the overall outcome of one pipeline run.
type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunPartial    RunStatus = "partial"
	RunAborted    RunStatus = "aborted"
)

// StageCounters aggregates per-stage outcomes for one run.
type StageCounters struct {
	Attempted       int `json:"attempted"`
	Succeeded       int `json:"succeeded"`
	TransientFailed int `json:"transient_failed"`
	PermanentFailed int `json:"permanent_failed"`
}

// Add folds other into the receiver.
func (c *StageCounters) Add(other StageCounters) {
	c.Attempted += other.Attempted
	c.Succeeded += other.Succeeded
	c.TransientFailed += other.TransientFailed
	c.PermanentFailed += other.PermanentFailed
}

// Run is one end-to-end pipeline invocation record.
type Run struct {
	ID             string
	Trigger        Trigger
	Status         RunStatus
	StartedAt      time.Time
	FinishedAt     *time.Time
	Fetched        int
	Discovered     int
	AlreadyKnown   int
	ChannelsFailed int
	Transcript     StageCounters
	Summary        StageCounters
	ErrorMessage   string
}

// Duration returns the wall-clock length of a finalized run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
