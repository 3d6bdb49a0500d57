package addetect

import (
	"testing"
)

func TestParseDetectedAdsBareArray(t *testing.T) {
	segments := parseDetectedAds(`[{"start": 120.5, "end": 180.3}, {"start": 450.0, "end": 510.2}]`)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].StartTime != 120.5 || segments[0].EndTime != 180.3 {
		t.Fatalf("unexpected first segment: %+v", segments[0])
	}
	if segments[1].Source != "auto" {
		t.Fatalf("expected auto source, got %q", segments[1].Source)
	}
}

func TestParseDetectedAdsAdsWrapper(t *testing.T) {
	segments := parseDetectedAds(`{"ads": [{"start": 10, "end": 20}]}`)
	if len(segments) != 1 || segments[0].StartTime != 10 || segments[0].EndTime != 20 {
		t.Fatalf("unexpected segments: %+v", segments)
	}
}

func TestParseDetectedAdsFirstArrayField(t *testing.T) {
	segments := parseDetectedAds(`{"model": "x", "segments": [{"start": 1, "end": 2}]}`)
	if len(segments) != 1 || segments[0].StartTime != 1 {
		t.Fatalf("unexpected segments: %+v", segments)
	}
}

func TestParseDetectedAdsDropsInvalidRanges(t *testing.T) {
	segments := parseDetectedAds(`[{"start": 30, "end": 30}, {"start": 50, "end": 40}, {"start": 5}, {"start": 60, "end": 90}]`)
	if len(segments) != 1 || segments[0].StartTime != 60 {
		t.Fatalf("expected only the valid segment, got %+v", segments)
	}
}

func TestParseDetectedAdsEmptyArray(t *testing.T) {
	if segments := parseDetectedAds(`[]`); segments != nil {
		t.Fatalf("expected nil for empty array, got %+v", segments)
	}
}

func TestParseDetectedAdsProseYieldsNothing(t *testing.T) {
	if segments := parseDetectedAds("I could not find any advertisements in this transcript."); segments != nil {
		t.Fatalf("expected nil for prose, got %+v", segments)
	}
}
