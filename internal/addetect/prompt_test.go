package addetect

import (
	"strings"
	"testing"

	"podpirate/internal/store"
)

func TestBuildDetectionPromptIncludesHintsAndMarkers(t *testing.T) {
	prompt := buildDetectionPrompt(promptInput{
		hints: &store.AdDetectionHints{
			Brands:        []string{"Acme Mattress"},
			Patterns:      []string{"use code X"},
			SamplePhrases: []string{"a word from our sponsor"},
		},
		transcript: []store.TranscriptSegment{
			{Start: 0, End: 5.5, Text: "welcome back to the show"},
			{Start: 5.5, End: 12, Text: "this episode is brought to you by Acme Mattress"},
		},
	})

	if !strings.Contains(prompt, "Known advertisers on this podcast: Acme Mattress") {
		t.Fatal("missing advertiser hint line")
	}
	if !strings.Contains(prompt, "Ad patterns to look for: use code X") {
		t.Fatal("missing pattern hint line")
	}
	if !strings.Contains(prompt, "The hosts typically introduce ads with: a word from our sponsor") {
		t.Fatal("missing sample phrase hint line")
	}
	if !strings.Contains(prompt, "[0.0-5.5] welcome back to the show") {
		t.Fatalf("missing plain transcript line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[5.5-12.0] [POSSIBLE AD] this episode is brought to you by Acme Mattress") {
		t.Fatalf("missing marked transcript line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Lines marked [POSSIBLE AD] contain known advertiser names") {
		t.Fatal("missing marker note")
	}
}

func TestBuildDetectionPromptWithoutHints(t *testing.T) {
	prompt := buildDetectionPrompt(promptInput{
		transcript: []store.TranscriptSegment{{Start: 0, End: 3, Text: "hello"}},
	})
	if strings.Contains(prompt, "Known advertisers") || strings.Contains(prompt, "[POSSIBLE AD]") {
		t.Fatal("hints section should be absent without hints")
	}
	if !strings.Contains(prompt, "[0.0-3.0] hello") {
		t.Fatalf("missing transcript line:\n%s", prompt)
	}
	if !strings.Contains(prompt, `If no ads are found, return an empty array: []`) {
		t.Fatal("missing empty-array instruction")
	}
}

func TestBuildDetectionPromptFewShotSection(t *testing.T) {
	prompt := buildDetectionPrompt(promptInput{
		transcript: []store.TranscriptSegment{{Start: 0, End: 1, Text: "intro"}},
		examples: [][]store.TranscriptSegment{
			{
				{Start: 100, End: 105, Text: "today's sponsor is Acme"},
				{Start: 105, End: 110, Text: "use code POD for ten percent off"},
			},
		},
	})
	if !strings.Contains(prompt, "Here are examples of ads previously identified in this podcast:") {
		t.Fatal("missing few-shot heading")
	}
	if !strings.Contains(prompt, "Example ad from this podcast:\n[100.0-105.0] today's sponsor is Acme\n[105.0-110.0] use code POD for ten percent off") {
		t.Fatalf("missing example block:\n%s", prompt)
	}
}

func TestBuildHintExtractionPrompt(t *testing.T) {
	prompt := buildHintExtractionPrompt([]string{"sponsor read one", "sponsor read two"})
	if !strings.Contains(prompt, `{"brands": ["Brand1", "Brand2"], "patterns": ["pattern1", "pattern2"], "samplePhrases": ["phrase1", "phrase2"]}`) {
		t.Fatal("missing format example")
	}
	if !strings.Contains(prompt, "sponsor read one\n---\nsponsor read two") {
		t.Fatalf("excerpts not joined with separator:\n%s", prompt)
	}
}
