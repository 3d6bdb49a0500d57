package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalService marks failures of the whisper or ollama services.
	ErrExternalService = errors.New("external service error")
	// ErrExternalTool marks failures of a subprocess such as ffmpeg.
	ErrExternalTool = errors.New("external tool error")
	// ErrMissingPrerequisite marks a stage input that no longer exists, such
	// as a deleted audio file. Stages recover by resetting the episode.
	ErrMissingPrerequisite = errors.New("missing prerequisite")
	// ErrMalformedResponse marks unparseable output from the language model.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrPaused marks work refused because ad detection is paused.
	ErrPaused = errors.New("ai processing paused")
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrTransient  = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsMissingPrerequisite reports whether a stage should self-heal instead of
// failing the episode.
func IsMissingPrerequisite(err error) bool {
	return errors.Is(err, ErrMissingPrerequisite)
}

// IsPaused reports whether the failure was a pause refusal.
func IsPaused(err error) bool {
	return errors.Is(err, ErrPaused)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
