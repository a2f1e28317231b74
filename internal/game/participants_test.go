package game

import "testing"

func TestRegistryFirstMatch(t *testing.T) {
	s := &Session{Organizer: "Alice"}
	s.AddParticipant("Alice", "")
	s.AddParticipant("Bob", "ninja")
	s.AddParticipant("Bob", "pirate")

	if s.Participants[0].AvatarSeed != DefaultAvatarSeed {
		t.Fatalf("expected default avatar, got %s", s.Participants[0].AvatarSeed)
	}
	if s.Participants[1].ID == "" || s.Participants[1].ID == s.Participants[2].ID {
		t.Fatal("participants should get distinct ids")
	}

	if !s.RecordVote("Bob", "5") {
		t.Fatal("should be able to record a vote for Bob")
	}
	if s.Participants[1].Vote == nil || *s.Participants[1].Vote != "5" || !s.Participants[1].HasVoted {
		t.Fatal("first Bob should hold the vote")
	}
	if s.Participants[2].Vote != nil || s.Participants[2].HasVoted {
		t.Fatal("second Bob should be untouched")
	}
	if s.RecordVote("Carol", "3") {
		t.Fatal("unknown voter should not match")
	}
}

func TestResetAllVotes(t *testing.T) {
	s := &Session{}
	for _, n := range []string{"A", "B", "C"} {
		s.AddParticipant(n, "")
		s.RecordVote(n, "8")
	}
	s.ResetAllVotes()
	for _, p := range s.ListParticipants() {
		if p.Vote != nil || p.HasVoted {
			t.Fatalf("expected %s to be reset, got %+v", p.Name, p)
		}
	}
}

func TestSubmitVoteInsertsMissingVoter(t *testing.T) {
	s := &Session{}
	s.AddParticipant("Alice", "")
	s.SubmitVote("Late", "wizard", "13")

	if len(s.Participants) != 2 {
		t.Fatalf("expected late voter to be added, got %d participants", len(s.Participants))
	}
	p := s.Participants[1]
	if p.Name != "Late" || p.AvatarSeed != "wizard" || p.Vote == nil || *p.Vote != "13" || !p.HasVoted {
		t.Fatalf("unexpected inserted participant %+v", p)
	}
}

func TestSanitizedParticipants(t *testing.T) {
	s := &Session{Organizer: "Alice"}
	for _, n := range []string{"Alice", "Bob", "Carol"} {
		s.AddParticipant(n, "")
		s.RecordVote(n, n+"-vote")
	}

	bob := s.SanitizedParticipants("Bob")
	if bob[0].Vote != nil || bob[2].Vote != nil {
		t.Fatal("Bob should not see other votes before reveal")
	}
	if bob[1].Vote == nil || *bob[1].Vote != "Bob-vote" {
		t.Fatal("Bob should see his own vote")
	}
	if !bob[0].HasVoted {
		t.Fatal("hasVoted stays visible")
	}

	for _, p := range s.SanitizedParticipants("Alice") {
		if p.Vote == nil {
			t.Fatalf("organizer should see %s's vote", p.Name)
		}
	}
	for _, p := range s.SanitizedParticipants("") {
		if p.Vote != nil {
			t.Fatal("anonymous viewer should see no votes")
		}
	}

	s.Reveal = true
	for _, p := range s.SanitizedParticipants("Carol") {
		if p.Vote == nil {
			t.Fatalf("revealed votes should be visible, %s hidden", p.Name)
		}
	}
	if s.Participants[0].Vote == nil {
		t.Fatal("sanitizing must not touch the session")
	}
}
