package store

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle of an episode.
type Status string

const (
	StatusPending       Status = "pending"
	StatusDownloading   Status = "downloading"
	StatusDownloaded    Status = "downloaded"
	StatusTranscribing  Status = "transcribing"
	StatusDetectingAds  Status = "detecting_ads"
	StatusProcessing    Status = "processing"
	StatusReady         Status = "ready"
	StatusError         Status = "error"
)

// PriorityBoost is the priority assigned when an operator promotes an episode.
const PriorityBoost = 1000

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusDownloaded,
	StatusTranscribing,
	StatusDetectingAds,
	StatusProcessing,
	StatusReady,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Statuses that mean a stage worker currently holds the episode. At startup
// recovery rolls these back to a durable boundary or resubmits them in place.
var inFlightStatuses = map[Status]struct{}{
	StatusDownloading:  {},
	StatusTranscribing: {},
	StatusDetectingAds: {},
	StatusProcessing:   {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the automatic pipeline is done with a status.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusError
}

// IsInFlight reports whether a status reflects an in-flight stage.
func (s Status) IsInFlight() bool {
	_, ok := inFlightStatuses[s]
	return ok
}

// Podcast represents a subscribed feed.
type Podcast struct {
	ID                   int64
	Title                string
	Author               string
	Description          string
	FeedURL              string
	AdDetectionHintsJSON string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AdDetectionHints are podcast-specific cues fed into the detection prompt.
type AdDetectionHints struct {
	Brands        []string `json:"brands,omitempty"`
	Patterns      []string `json:"patterns,omitempty"`
	SamplePhrases []string `json:"samplePhrases,omitempty"`
}

// Hints decodes the podcast's stored detection hints. A missing or empty
// column yields nil hints without error.
func (p *Podcast) Hints() (*AdDetectionHints, error) {
	raw := strings.TrimSpace(p.AdDetectionHintsJSON)
	if raw == "" {
		return nil, nil
	}
	var hints AdDetectionHints
	if err := json.Unmarshal([]byte(raw), &hints); err != nil {
		return nil, err
	}
	return &hints, nil
}

// SetHints encodes and stores detection hints on the podcast.
func (p *Podcast) SetHints(hints *AdDetectionHints) error {
	if hints == nil {
		p.AdDetectionHintsJSON = ""
		return nil
	}
	data, err := json.Marshal(hints)
	if err != nil {
		return err
	}
	p.AdDetectionHintsJSON = string(data)
	return nil
}

// Episode represents one feed entry moving through the pipeline.
type Episode struct {
	ID                 int64
	PodcastID          int64
	Title              string
	Description        string
	AudioURL           string
	GUID               string
	PublishedAt        *time.Time
	LocalAudioPath     string
	ProcessedAudioPath string
	DurationSeconds    *float64
	Status             Status
	ErrorMessage       string
	Priority           int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SetError marks the episode failed with the given message.
func (e *Episode) SetError(message string) {
	e.Status = StatusError
	e.ErrorMessage = message
}

// TranscriptSegment is one timed line of transcribed speech.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript holds the ordered segments for an episode.
type Transcript struct {
	EpisodeID int64
	Segments  []TranscriptSegment
	UpdatedAt time.Time
}

// AdSegmentSource distinguishes detected segments from operator corrections.
type AdSegmentSource string

const (
	SourceAuto   AdSegmentSource = "auto"
	SourceManual AdSegmentSource = "manual"
)

// AdSegment is a time range to cut from an episode's audio.
type AdSegment struct {
	ID        int64
	EpisodeID int64
	StartTime float64
	EndTime   float64
	Source    AdSegmentSource
	Confirmed bool
	CreatedAt time.Time
}
