package audioproc

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// commandRunner executes an external command and returns combined output.
// Tests substitute a fake to avoid depending on an ffmpeg install.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Transcoder drives ffmpeg to splice the keep intervals back together.
type Transcoder struct {
	binary  string
	threads int
	run     commandRunner
}

// NewTranscoder builds a transcoder for the configured ffmpeg binary.
func NewTranscoder(binary string, threads int) *Transcoder {
	return &Transcoder{binary: binary, threads: threads, run: runCommand}
}

// Cut re-encodes input into output keeping only the given intervals, in a
// single ffmpeg invocation using a trim-and-concat filter graph.
func (t *Transcoder) Cut(ctx context.Context, input, output string, keep []Interval) error {
	if len(keep) == 0 {
		return fmt.Errorf("no intervals to keep")
	}

	args := []string{"-y", "-i", input}
	if t.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(t.threads))
	}
	args = append(args, "-filter_complex", filterGraph(keep), "-map", "[out]", output)

	out, err := t.run(ctx, t.binary, args...)
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", t.binary, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Probe verifies the configured binary exists and runs.
func (t *Transcoder) Probe(ctx context.Context) error {
	if _, err := t.run(ctx, t.binary, "-version"); err != nil {
		return fmt.Errorf("%s not available: %w", t.binary, err)
	}
	return nil
}

// filterGraph builds an atrim/concat graph such as
//
//	[0:a]atrim=start=0:end=120,asetpts=PTS-STARTPTS[s0];
//	[0:a]atrim=start=180,asetpts=PTS-STARTPTS[s1];
//	[s0][s1]concat=n=2:v=0:a=1[out]
//
// The final interval's sentinel end is expressed by omitting end= so the trim
// runs to the stream's close.
func filterGraph(keep []Interval) string {
	var sb strings.Builder
	for i, interval := range keep {
		fmt.Fprintf(&sb, "[0:a]atrim=start=%s", formatSeconds(interval.Start))
		if interval.End < endSentinel {
			fmt.Fprintf(&sb, ":end=%s", formatSeconds(interval.End))
		}
		fmt.Fprintf(&sb, ",asetpts=PTS-STARTPTS[s%d];", i)
	}
	for i := range keep {
		fmt.Fprintf(&sb, "[s%d]", i)
	}
	fmt.Fprintf(&sb, "concat=n=%d:v=0:a=1[out]", len(keep))
	return sb.String()
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
