package addetect

import (
	"encoding/json"
	"strings"

	"podpirate/internal/store"
)

type adTimes struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// parseDetectedAds interprets the model's response as permissively as
// possible: a bare array, an {"ads": [...]} wrapper, or the first array
// field of any object. Entries without both timestamps or with end <= start
// are dropped. Anything unparseable yields zero ads, never an error; the
// pipeline proceeds without cutting.
func parseDetectedAds(response string) []*store.AdSegment {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return nil
	}

	if raw := extractAdArray(trimmed); raw != nil {
		var entries []adTimes
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil
		}
		var segments []*store.AdSegment
		for _, entry := range entries {
			if entry.Start == nil || entry.End == nil {
				continue
			}
			if *entry.End <= *entry.Start {
				continue
			}
			segments = append(segments, &store.AdSegment{
				StartTime: *entry.Start,
				EndTime:   *entry.End,
				Source:    store.SourceAuto,
			})
		}
		return segments
	}
	return nil
}

func extractAdArray(payload string) json.RawMessage {
	var bare json.RawMessage
	if err := json.Unmarshal([]byte(payload), &bare); err != nil {
		return nil
	}

	switch firstByte(bare) {
	case '[':
		return bare
	case '{':
		var object map[string]json.RawMessage
		if err := json.Unmarshal(bare, &object); err != nil {
			return nil
		}
		if ads, ok := object["ads"]; ok && firstByte(ads) == '[' {
			return ads
		}
		// Fall back to any array-valued field. Decode order is not
		// guaranteed for maps, so scan tokens to honor document order.
		return firstArrayField(payload)
	default:
		return nil
	}
}

func firstArrayField(payload string) json.RawMessage {
	decoder := json.NewDecoder(strings.NewReader(payload))
	if _, err := decoder.Token(); err != nil { // opening brace
		return nil
	}
	for decoder.More() {
		if _, err := decoder.Token(); err != nil { // field name
			return nil
		}
		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil
		}
		if firstByte(value) == '[' {
			return value
		}
	}
	return nil
}

func firstByte(raw json.RawMessage) byte {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return 0
	}
	return trimmed[0]
}
