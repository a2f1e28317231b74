package game

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestSession(t, "A", "B")
	s.AddParticipant("Bob", "viking")
	if err := s.Start("Alice", t0); err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	s.RecordVote("Bob", "8")
	if err := s.NextStory(nil, t0); err != nil {
		t.Fatalf("should be able to advance story: %v", err)
	}

	data, err := json.Marshal(s.ExportFullState())
	if err != nil {
		t.Fatalf("should be able to encode snapshot: %v", err)
	}
	sn, err := ParseSnapshot(data)
	if err != nil {
		t.Fatalf("should be able to parse exported snapshot: %v", err)
	}
	if sn.SchemaVersion != SchemaVersion || sn.SessionID != "ABC234" || *sn.CurrentStoryIndex != 1 {
		t.Fatalf("unexpected snapshot %+v", sn)
	}
	if len(sn.History) != 1 || sn.History[0].Result != 8.0 {
		t.Fatalf("history should survive the round trip, got %+v", sn.History)
	}
	if len(sn.Participants) != 2 {
		t.Fatalf("full state carries participants, got %d", len(sn.Participants))
	}
}

func TestResumeSession(t *testing.T) {
	sn := &Snapshot{
		Organizer:   "Alice",
		UserStories: []string{"A", "B", "C"},
		History:     []StoryRecord{{Story: "A", Result: 3.0}},
		Participants: []Participant{
			{Name: "Bob", AvatarSeed: "pirate"},
			{Name: "Alice", AvatarSeed: "wizard"},
		},
	}
	s := ResumeSession("NEW234", sn)
	if s.ID != "NEW234" || s.Status != StatusWaiting || s.CurrentStoryIndex != 1 {
		t.Fatalf("expected waiting at index 1, got %s at %d", s.Status, s.CurrentStoryIndex)
	}
	if s.TimePerStory != DefaultTimePerStory || s.RoundNumber != 1 || s.GameMode != DefaultGameMode {
		t.Fatalf("expected defaults, got %+v", s)
	}
	if len(s.Participants) != 1 || s.Participants[0].AvatarSeed != "wizard" {
		t.Fatalf("only the organizer comes back with their avatar, got %+v", s.Participants)
	}

	sn.History = append(sn.History, StoryRecord{Story: "B"}, StoryRecord{Story: "C"})
	done := ResumeSession("DONE23", sn)
	if done.Status != StatusFinished || done.CurrentStoryIndex != 2 {
		t.Fatalf("fully played snapshot should be finished at 2, got %s at %d", done.Status, done.CurrentStoryIndex)
	}

	anon := ResumeSession("ANON23", &Snapshot{})
	if anon.Organizer != DefaultOrganizer || anon.Status != StatusWaiting || anon.CurrentStoryIndex != 0 {
		t.Fatalf("empty snapshot should resume waiting under the default organizer, got %+v", anon)
	}
	if anon.Participants[0].AvatarSeed != DefaultAvatarSeed {
		t.Fatal("missing avatar falls back to the default")
	}
}

func TestParseSnapshotLegacyRound(t *testing.T) {
	sn, err := ParseSnapshot([]byte(`{"organizer":"Alice","userStories":["A"],"round_number":4,"extra":true}`))
	if err != nil {
		t.Fatalf("should be able to parse legacy snapshot: %v", err)
	}
	if s := ResumeSession("LEG234", sn); s.RoundNumber != 4 {
		t.Fatalf("expected legacy round 4, got %d", s.RoundNumber)
	}
}

func TestParseSnapshotInvalid(t *testing.T) {
	inputs := []string{
		`not json`,
		`[]`,
		`{"userStories":"A"}`,
		`{"timePerStory":0}`,
		`{"history":[{"votes":[{"vote":5}]}]}`,
	}
	for _, in := range inputs {
		if _, err := ParseSnapshot([]byte(in)); !errors.Is(err, ErrInvalidImport) {
			t.Fatalf("expected ErrInvalidImport for %s, got %v", in, err)
		}
	}
}

func TestExportResultsOnly(t *testing.T) {
	s := newTestSession(t, "A")
	s.AddParticipant("Bob", "")
	r := s.ExportResultsOnly()
	if r.SchemaVersion != SchemaVersion || r.SessionID != "ABC234" || len(r.UserStories) != 1 {
		t.Fatalf("unexpected results %+v", r)
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("should be able to encode results: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("should be able to decode results: %v", err)
	}
	if _, ok := raw["participants"]; ok {
		t.Fatal("results export must not contain participants")
	}
}
