// Package addetect asks the language model to locate advertisement segments
// in episode transcripts, and learns podcast-specific hints from operator
// corrections.
package addetect

import (
	"fmt"
	"strings"

	"podpirate/internal/store"
)

const fewShotEpisodeLimit = 3

type promptInput struct {
	hints      *store.AdDetectionHints
	transcript []store.TranscriptSegment
	// examples holds transcript lines overlapping manual ad segments,
	// grouped per prior episode.
	examples [][]store.TranscriptSegment
}

func buildDetectionPrompt(in promptInput) string {
	var sb strings.Builder
	sb.WriteString(`Analyze this podcast transcript and identify advertisement segments.
For each ad segment, provide the start and end timestamps in seconds.

Ads typically include:
- Sponsor mentions ("this episode is brought to you by", "sponsored by")
- Promo codes and discount offers
- Product pitches unrelated to the podcast topic
- Mid-roll ad reads
`)
	sb.WriteString(hintsSection(in.hints))
	sb.WriteString(fewShotSection(in.examples))
	sb.WriteString(`Return ONLY a JSON array of ad segments, no other text. Example format:
[{"start": 120.5, "end": 180.3}, {"start": 450.0, "end": 510.2}]

If no ads are found, return an empty array: []

Transcript:
`)
	sb.WriteString(transcriptWithMarkers(in.transcript, brandList(in.hints)))
	return sb.String()
}

func hintsSection(hints *store.AdDetectionHints) string {
	if hints == nil {
		return ""
	}
	var parts []string
	if brands := nonEmpty(hints.Brands); len(brands) > 0 {
		parts = append(parts, "Known advertisers on this podcast: "+strings.Join(brands, ", "))
	}
	if patterns := nonEmpty(hints.Patterns); len(patterns) > 0 {
		parts = append(parts, "Ad patterns to look for: "+strings.Join(patterns, "; "))
	}
	if phrases := nonEmpty(hints.SamplePhrases); len(phrases) > 0 {
		parts = append(parts, "The hosts typically introduce ads with: "+strings.Join(phrases, "; "))
	}
	if len(parts) == 0 {
		return ""
	}
	return "\n" + strings.Join(parts, "\n") + "\n\nNote: Lines marked [POSSIBLE AD] contain known advertiser names.\n"
}

func fewShotSection(examples [][]store.TranscriptSegment) string {
	var blocks []string
	for _, lines := range examples {
		if len(lines) == 0 {
			continue
		}
		var sb strings.Builder
		sb.WriteString("Example ad from this podcast:\n")
		for i, segment := range lines {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(transcriptLine(segment, false))
		}
		blocks = append(blocks, sb.String())
	}
	if len(blocks) == 0 {
		return ""
	}
	return "\nHere are examples of ads previously identified in this podcast:\n" + strings.Join(blocks, "\n\n") + "\n"
}

// transcriptWithMarkers renders the transcript one timed line at a time,
// flagging lines that mention a known advertiser.
func transcriptWithMarkers(segments []store.TranscriptSegment, brands []string) string {
	lowered := make([]string, 0, len(brands))
	for _, brand := range brands {
		lowered = append(lowered, strings.ToLower(brand))
	}

	lines := make([]string, 0, len(segments))
	for _, segment := range segments {
		marked := false
		if len(lowered) > 0 {
			text := strings.ToLower(segment.Text)
			for _, brand := range lowered {
				if strings.Contains(text, brand) {
					marked = true
					break
				}
			}
		}
		lines = append(lines, transcriptLine(segment, marked))
	}
	return strings.Join(lines, "\n")
}

func transcriptLine(segment store.TranscriptSegment, marked bool) string {
	marker := ""
	if marked {
		marker = "[POSSIBLE AD] "
	}
	return fmt.Sprintf("[%.1f-%.1f] %s%s", segment.Start, segment.End, marker, segment.Text)
}

func brandList(hints *store.AdDetectionHints) []string {
	if hints == nil {
		return nil
	}
	return nonEmpty(hints.Brands)
}

func nonEmpty(values []string) []string {
	var out []string
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

const hintExtractionPromptHeader = `Below are transcript excerpts from manually-tagged advertisement segments in a podcast.
Analyze them and extract:
1. Brand/advertiser names mentioned
2. Recurring ad patterns (e.g. "use code X for", "dot com slash")
3. Short sample phrases the hosts use to introduce or deliver ads

Return ONLY a JSON object with this format, no other text:
{"brands": ["Brand1", "Brand2"], "patterns": ["pattern1", "pattern2"], "samplePhrases": ["phrase1", "phrase2"]}

Ad transcript excerpts:
`

func buildHintExtractionPrompt(excerpts []string) string {
	return hintExtractionPromptHeader + strings.Join(excerpts, "\n---\n")
}
