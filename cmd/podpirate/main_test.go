package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandShowsHelp(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"serve", "podcast", "episode", "pause", "resume", "status", "config"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("help missing %q:\n%s", want, out.String())
		}
	}
}

func TestParseID(t *testing.T) {
	if _, err := parseID("abc"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
	if _, err := parseID("0"); err == nil {
		t.Fatal("expected error for zero id")
	}
	id, err := parseID("42")
	if err != nil || id != 42 {
		t.Fatalf("parseID(42) = %d, %v", id, err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 48); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("x", 60)
	got := truncate(long, 48)
	if len(got) != 48 || !strings.HasSuffix(got, "...") {
		t.Fatalf("got %q (len %d)", got, len(got))
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(nil); got != "-" {
		t.Fatalf("got %q", got)
	}
	seconds := 3725.0
	if got := formatDuration(&seconds); got != "1h2m5s" {
		t.Fatalf("got %q", got)
	}
}
