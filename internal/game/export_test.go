package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArchiveResults(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "out", "results.txt")
	vote := "5"
	r := Results{
		SessionID:    "ABC234",
		Organizer:    "Alice",
		GameMode:     DefaultGameMode,
		TimePerStory: 5,
		History: []StoryRecord{
			{Story: "Login", Result: 5.0, Votes: []VoteSnap{{Name: "Bob", Vote: &vote}, {Name: "Carol"}}},
			{Story: "Checkout", Result: nil},
		},
	}

	if err := ArchiveResults(r, filename, t0); err != nil {
		t.Fatalf("should be able to archive results: %v", err)
	}
	if err := ArchiveResults(r, filename, t0); err != nil {
		t.Fatalf("should be able to append results: %v", err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("should be able to read archive: %v", err)
	}
	out := string(data)
	if strings.Count(out, "Session ABC234") != 2 {
		t.Fatalf("expected two archived games, got:\n%s", out)
	}
	for _, want := range []string{`Story 1: "Login"`, "Result: 5\n", "- Bob: 5", "- Carol: -", "Result: no consensus"} {
		if !strings.Contains(out, want) {
			t.Fatalf("archive should contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatResult(t *testing.T) {
	cases := map[string]any{
		"no consensus": nil,
		"8":            8.0,
		"2.5":          2.5,
		"XL":           "XL",
	}
	for want, in := range cases {
		if got := formatResult(in); got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}
