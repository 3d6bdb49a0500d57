package services_test

import (
	"errors"
	"strings"
	"testing"

	"podpirate/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrExternalService, "transcription", "stream", "whisper unreachable", base)
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatal("expected wrapped error to match marker")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to match cause")
	}
	msg := err.Error()
	for _, want := range []string{"transcription", "stream", "whisper unreachable", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in message %q", want, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "download", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected nil marker to default to transient")
	}
}

func TestClassificationHelpers(t *testing.T) {
	if !services.IsMissingPrerequisite(services.Wrap(services.ErrMissingPrerequisite, "transcription", "open", "audio file gone", nil)) {
		t.Fatal("expected missing prerequisite classification")
	}
	if !services.IsPaused(services.Wrap(services.ErrPaused, "addetect", "run", "", nil)) {
		t.Fatal("expected paused classification")
	}
	if services.IsPaused(errors.New("other")) {
		t.Fatal("did not expect paused classification")
	}
}
