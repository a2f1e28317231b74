package game

import (
	"errors"
	"testing"
	"time"
)

func newTestSession(t *testing.T, stories ...string) *Session {
	t.Helper()
	s, err := NewSession("ABC234", CreateParams{Organizer: "Alice", Stories: stories})
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}
	return s
}

func TestNewSessionDefaults(t *testing.T) {
	s := newTestSession(t, " Login ", "", "Checkout")

	if s.Status != StatusWaiting || s.RoundNumber != 1 || s.CurrentStoryIndex != 0 {
		t.Fatalf("unexpected initial state %+v", s)
	}
	if len(s.UserStories) != 2 || s.UserStories[0] != "Login" {
		t.Fatalf("stories should be trimmed and blanks dropped, got %q", s.UserStories)
	}
	if s.GameMode != DefaultGameMode || s.TimePerStory != DefaultTimePerStory {
		t.Fatalf("expected defaults, got mode=%s tps=%d", s.GameMode, s.TimePerStory)
	}
	if s.TimerStart != nil || s.PauseRemaining != nil {
		t.Fatal("timer should not run before start")
	}
	if len(s.Participants) != 1 || s.Participants[0].Name != "Alice" {
		t.Fatalf("organizer should be the only participant, got %+v", s.Participants)
	}

	if _, err := NewSession("X", CreateParams{Organizer: "  "}); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}

func TestNewSessionWithImport(t *testing.T) {
	idx, legacyRound := 1, 3
	vote := "5"
	imp := &Snapshot{
		Organizer:         "Someone else",
		UserStories:       []string{"A", "B", "C"},
		CurrentStoryIndex: &idx,
		LegacyRoundNumber: &legacyRound,
		History:           []StoryRecord{{Story: "A", Result: 3.0}},
		Participants: []Participant{
			{Name: "Alice", AvatarSeed: "ninja", Vote: &vote, HasVoted: true},
			{Name: "Bob", AvatarSeed: "pirate"},
		},
	}
	s, err := NewSession("ABC234", CreateParams{
		Organizer: "Alice",
		Stories:   []string{"ignored"},
		GameMode:  "free",
		Import:    imp,
	})
	if err != nil {
		t.Fatalf("should be able to create session from import: %v", err)
	}

	if s.Organizer != "Alice" {
		t.Fatalf("organizer comes from the request, got %s", s.Organizer)
	}
	if len(s.UserStories) != 3 || s.CurrentStoryIndex != 1 || s.RoundNumber != 3 {
		t.Fatalf("import should win: stories=%v index=%d round=%d", s.UserStories, s.CurrentStoryIndex, s.RoundNumber)
	}
	if s.GameMode != "free" {
		t.Fatalf("form game mode should be kept when import has none, got %s", s.GameMode)
	}
	if len(s.History) != 1 {
		t.Fatalf("expected imported history, got %d", len(s.History))
	}
	if len(s.Participants) != 3 || s.Participants[2].Name != "Alice" {
		t.Fatalf("imported participants plus organizer expected, got %+v", s.Participants)
	}
	if s.Participants[0].Vote == nil || *s.Participants[0].Vote != "5" {
		t.Fatal("imported vote should carry over")
	}
	if s.Participants[0].ID == "" {
		t.Fatal("imported participants get fresh ids")
	}
}

func TestStartKeepsStoryIndex(t *testing.T) {
	s := newTestSession(t, "A", "B", "C")
	s.CurrentStoryIndex = 2
	s.RoundNumber = 4
	s.RecordVote("Alice", "8")

	if err := s.Start("Bob", t0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := s.Start("Alice", t0); err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	if s.CurrentStoryIndex != 2 || s.RoundNumber != 1 || s.Status != StatusStarted {
		t.Fatalf("unexpected state after start: index=%d round=%d status=%s", s.CurrentStoryIndex, s.RoundNumber, s.Status)
	}
	if s.TimerStart == nil || *s.TimerStart != t0.Unix() {
		t.Fatal("timer should start now")
	}
	if s.Participants[0].HasVoted {
		t.Fatal("start should reset votes")
	}
}

func TestRevealVotes(t *testing.T) {
	s := newTestSession(t, "A")
	if err := s.RevealVotes(""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := s.RevealVotes("Alice"); err != nil || !s.Reveal {
		t.Fatalf("should be able to reveal votes: %v", err)
	}
	s.Status = StatusFinished
	s.Reveal = false
	if err := s.RevealVotes("Alice"); !errors.Is(err, ErrGameFinished) {
		t.Fatalf("expected ErrGameFinished, got %v", err)
	}
}

func TestNextStoryAdvances(t *testing.T) {
	s := newTestSession(t, "A", "B")
	s.AddParticipant("Bob", "")
	if err := s.Start("Alice", t0); err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	s.RecordVote("Alice", "3")
	s.RecordVote("Bob", "5")
	s.Reveal = true
	s.RoundNumber = 2

	later := t0.Add(2 * time.Minute)
	if err := s.NextStory(nil, later); err != nil {
		t.Fatalf("should be able to advance story: %v", err)
	}
	if len(s.History) != 1 {
		t.Fatalf("expected one history entry, got %d", len(s.History))
	}
	rec := s.History[0]
	if rec.Story != "A" || rec.Result != 4.0 {
		t.Fatalf("expected average 4 for A, got %+v", rec)
	}
	if len(rec.Votes) != 2 || rec.Votes[1].Avatar != DefaultAvatarSeed || *rec.Votes[1].Vote != "5" {
		t.Fatalf("unexpected vote snapshot %+v", rec.Votes)
	}
	if s.CurrentStoryIndex != 1 || s.Status != StatusStarted || s.Reveal || s.RoundNumber != 1 {
		t.Fatalf("unexpected state after advance %+v", s)
	}
	if *s.TimerStart != later.Unix() {
		t.Fatal("timer should restart for the next story")
	}
	for _, p := range s.Participants {
		if p.HasVoted {
			t.Fatal("votes should be reset")
		}
	}
}

func TestNextStoryFinishesOnLastStory(t *testing.T) {
	s := newTestSession(t, "A")
	if err := s.Start("Alice", t0); err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	if err := s.NextStory("XL", t0); err != nil {
		t.Fatalf("should be able to finish game: %v", err)
	}
	if s.Status != StatusFinished || !s.Reveal || s.FinalResult != "XL" {
		t.Fatalf("unexpected finished state %+v", s)
	}
	if s.TimerStart != nil || s.CurrentStoryIndex != 0 {
		t.Fatal("finished game keeps the last index and stops the timer")
	}
	if err := s.NextStory(nil, t0); !errors.Is(err, ErrGameFinished) {
		t.Fatalf("expected ErrGameFinished, got %v", err)
	}
	if len(s.History) != 1 {
		t.Fatal("a refused advance must not append history")
	}
}

func TestNextStoryWithoutStories(t *testing.T) {
	s := newTestSession(t)
	if err := s.NextStory(nil, t0); err != nil {
		t.Fatalf("should be able to advance an empty game: %v", err)
	}
	if s.Status != StatusFinished || s.History[0].Story != "" || s.History[0].Result != nil {
		t.Fatalf("unexpected state %+v", s)
	}
}

func TestRevote(t *testing.T) {
	s := newTestSession(t, "A", "B")
	if err := s.Start("Alice", t0); err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	start := *s.TimerStart
	s.RecordVote("Alice", "13")
	s.Reveal = true

	if err := s.Revote(); err != nil {
		t.Fatalf("should be able to revote: %v", err)
	}
	if s.RoundNumber != 2 || s.Reveal || s.Participants[0].HasVoted {
		t.Fatalf("unexpected state after revote %+v", s)
	}
	if *s.TimerStart != start {
		t.Fatal("revote keeps the round deadline")
	}

	s.Status = StatusFinished
	if err := s.Revote(); !errors.Is(err, ErrGameFinished) {
		t.Fatalf("expected ErrGameFinished, got %v", err)
	}
	if s.RoundNumber != 2 {
		t.Fatal("refused revote must not bump the round")
	}
}

func TestResume(t *testing.T) {
	s := newTestSession(t, "A")
	if s.Resume(t0) {
		t.Fatal("a waiting game cannot resume")
	}
	s.Status = StatusPaused
	s.TimePerStory = 5
	s.PauseRemaining = int64Ptr(120)
	s.RecordVote("Alice", CoffeeCard)

	if !s.Resume(t0) {
		t.Fatal("should be able to resume a paused game")
	}
	if s.Status != StatusStarted || s.PauseRemaining != nil {
		t.Fatalf("unexpected state after resume %+v", s)
	}
	if *s.TimerStart != t0.Unix()-180 {
		t.Fatalf("expected start %d, got %d", t0.Unix()-180, *s.TimerStart)
	}
	if s.Participants[0].HasVoted {
		t.Fatal("resume clears the coffee votes")
	}
}
