package stage_test

import (
	"errors"
	"testing"

	"signalwatch/internal/services"
	"signalwatch/internal/stage"
)

func TestFromErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want stage.Kind
	}{
		{"nil is success", nil, stage.KindSuccess},
		{"permanent marker", services.Wrap(services.ErrPermanent, "transcript", "fetch", "no transcript", nil), stage.KindPermanent},
		{"validation marker", services.Wrap(services.ErrValidation, "summarizer", "decode", "bad payload", nil), stage.KindPermanent},
		{"transient marker", services.Wrap(services.ErrTransient, "summarizer", "request", "http 503", nil), stage.KindTransient},
		{"source unavailable marker", services.Wrap(services.ErrSourceUnavailable, "feed", "fetch", "timeout", nil), stage.KindTransient},
		{"unmarked error defaults transient", errors.New("boom"), stage.KindTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := stage.FromError(tc.err)
			if outcome.Kind != tc.want {
				t.Fatalf("kind = %v, want %v", outcome.Kind, tc.want)
			}
			if tc.err != nil && outcome.Reason == "" {
				t.Fatal("failure outcome must carry a reason")
			}
		})
	}
}

func TestOutcomeFailed(t *testing.T) {
	if stage.Success().Failed() {
		t.Fatal("success must not report failed")
	}
	if !stage.Transient("slow upstream", nil).Failed() {
		t.Fatal("transient must report failed")
	}
	if !stage.Permanent("captions disabled", nil).Failed() {
		t.Fatal("permanent must report failed")
	}
}

func TestHealthConstructors(t *testing.T) {
	h := stage.Healthy("transcript")
	if !h.Ready || h.Name != "transcript" || h.Detail != "" {
		t.Fatalf("unexpected healthy record: %+v", h)
	}
	u := stage.Unhealthy("summarizer", "model not loaded")
	if u.Ready || u.Detail != "model not loaded" {
		t.Fatalf("unexpected unhealthy record: %+v", u)
	}
}
