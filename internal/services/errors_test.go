package services_test

import (
	"errors"
	"strings"
	"testing"

	"signalwatch/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrPermanent, "transcript", "fetch", "captions disabled", base)
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "transcript: fetch: captions disabled") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "summarizer", "generate", "", nil)
	if !services.IsTransient(err) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestClassificationHelpers(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		transient   bool
		permanent   bool
		unavailable bool
	}{
		{"transient", services.Wrap(services.ErrTransient, "s", "op", "", nil), true, false, false},
		{"timeout", services.Wrap(services.ErrTimeout, "s", "op", "", nil), true, false, false},
		{"permanent", services.Wrap(services.ErrPermanent, "s", "op", "", nil), false, true, false},
		{"validation", services.Wrap(services.ErrValidation, "s", "op", "", nil), false, true, false},
		{"source", services.Wrap(services.ErrSourceUnavailable, "feed", "fetch", "", nil), true, false, true},
		{"plain", errors.New("plain"), false, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsTransient(tc.err); got != tc.transient {
				t.Errorf("IsTransient = %v, want %v", got, tc.transient)
			}
			if got := services.IsPermanent(tc.err); got != tc.permanent {
				t.Errorf("IsPermanent = %v, want %v", got, tc.permanent)
			}
			if got := services.IsSourceUnavailable(tc.err); got != tc.unavailable {
				t.Errorf("IsSourceUnavailable = %v, want %v", got, tc.unavailable)
			}
		})
	}
}

func TestWrapWithoutDetailUsesFallback(t *testing.T) {
	err := services.Wrap(services.ErrTransient, "", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %v", err)
	}
}
