// Package audioproc cuts detected ad segments out of episode audio with
// ffmpeg, producing the cleaned file the API serves.
package audioproc

import "sort"

// endSentinel stands in for "end of file" in the final keep interval. ffmpeg
// clamps atrim to the stream's real duration.
const endSentinel = 999999.0

// Interval is a half-open slice of audio to keep, in seconds.
type Interval struct {
	Start float64
	End   float64
}

// KeepIntervals inverts a list of ad ranges into the content ranges between
// them. Overlapping or touching ads merge before inversion. A nil result
// means nothing to cut.
func KeepIntervals(ads []Interval) []Interval {
	merged := mergeIntervals(ads)
	if len(merged) == 0 {
		return nil
	}

	var keep []Interval
	cursor := 0.0
	for _, ad := range merged {
		if ad.Start > cursor {
			keep = append(keep, Interval{Start: cursor, End: ad.Start})
		}
		if ad.End > cursor {
			cursor = ad.End
		}
	}
	keep = append(keep, Interval{Start: cursor, End: endSentinel})
	return keep
}

func mergeIntervals(ads []Interval) []Interval {
	var valid []Interval
	for _, ad := range ads {
		if ad.End <= ad.Start {
			continue
		}
		start := ad.Start
		if start < 0 {
			start = 0
		}
		valid = append(valid, Interval{Start: start, End: ad.End})
	}
	if len(valid) == 0 {
		return nil
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i].Start < valid[j].Start })

	merged := []Interval{valid[0]}
	for _, ad := range valid[1:] {
		last := &merged[len(merged)-1]
		if ad.Start <= last.End {
			if ad.End > last.End {
				last.End = ad.End
			}
			continue
		}
		merged = append(merged, ad)
	}
	return merged
}
