package stage

import (
	"signalwatch/internal/services"
)

// Kind classifies how a stage attempt ended.
type Kind int

const (
	// KindSuccess means the stage completed and the video may advance.
	KindSuccess Kind = iota
	// KindTransient means the attempt failed for a reason that may clear on
	// its own. The video keeps its current status and the stage retry
	// counter is bumped.
	KindTransient
	// KindPermanent means retrying cannot help. The video moves to the
	// failed status until an operator intervenes.
	KindPermanent
)

// Outcome is the classified result of one stage attempt.
type Outcome struct {
	Kind   Kind
	Reason string
	Err    error
}

// Success reports a completed attempt.
func Success() Outcome {
	return Outcome{Kind: KindSuccess}
}

// Transient reports a retryable failure with a short operator-facing reason.
func Transient(reason string, err error) Outcome {
	return Outcome{Kind: KindTransient, Reason: reason, Err: err}
}

// Permanent reports a failure that retrying cannot fix.
func Permanent(reason string, err error) Outcome {
	return Outcome{Kind: KindPermanent, Reason: reason, Err: err}
}

// FromError classifies err using the services markers. Unmarked errors are
// treated as transient so an unexpected failure never strands a video in the
// failed state without cause.
func FromError(err error) Outcome {
	if err == nil {
		return Success()
	}
	if services.IsPermanent(err) {
		return Permanent(err.Error(), err)
	}
	return Transient(err.Error(), err)
}

// Failed reports whether the outcome is any kind of failure.
func (o Outcome) Failed() bool {
	return o.Kind != KindSuccess
}
