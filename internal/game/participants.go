package game

import "github.com/google/uuid"

// AddParticipant appends a participant with no vote. Names are not unique;
// lookups by name use the first match.
func (s *Session) AddParticipant(name, avatarSeed string) *Participant {
	if avatarSeed == "" {
		avatarSeed = DefaultAvatarSeed
	}
	s.Participants = append(s.Participants, Participant{
		ID:         uuid.NewString(),
		Name:       name,
		AvatarSeed: avatarSeed,
	})
	return &s.Participants[len(s.Participants)-1]
}

// findParticipant returns the index of the first participant called name, or -1.
func (s *Session) findParticipant(name string) int {
	for i := range s.Participants {
		if s.Participants[i].Name == name {
			return i
		}
	}
	return -1
}

// RecordVote stores value for the first participant called name. It reports
// false when nobody matched and nothing was changed.
func (s *Session) RecordVote(name, value string) bool {
	i := s.findParticipant(name)
	if i < 0 {
		return false
	}
	s.Participants[i].Vote = strPtr(value)
	s.Participants[i].HasVoted = true
	return true
}

// ResetAllVotes clears every vote. Called at the start of each round.
func (s *Session) ResetAllVotes() {
	for i := range s.Participants {
		s.Participants[i].Vote = nil
		s.Participants[i].HasVoted = false
	}
}

// ListParticipants returns a copy of the participants in insertion order.
func (s *Session) ListParticipants() []Participant {
	out := make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		if p.Vote != nil {
			p.Vote = strPtr(*p.Vote)
		}
		out[i] = p
	}
	return out
}

// SanitizedParticipants hides votes from viewer unless the cards are revealed,
// the viewer is the organizer, or the vote is the viewer's own.
func (s *Session) SanitizedParticipants(viewer string) []Participant {
	out := s.ListParticipants()
	if s.Reveal || (viewer != "" && viewer == s.Organizer) {
		return out
	}
	for i := range out {
		if viewer != "" && out[i].Name == viewer {
			continue
		}
		out[i].Vote = nil
	}
	return out
}

func (s *Session) votes() []*string {
	out := make([]*string, len(s.Participants))
	for i, p := range s.Participants {
		out[i] = p.Vote
	}
	return out
}
