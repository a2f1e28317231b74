package game

import (
	"strings"
	"time"
)

// CreateParams describes a new game. When Import is set, its fields win over the
// form values except for the organizer, and its participants are recreated.
type CreateParams struct {
	Organizer    string
	Stories      []string
	AvatarSeed   string
	GameMode     string
	TimePerStory int
	Import       *Snapshot
}

// NewSession builds the document for a fresh game under code.
func NewSession(code string, p CreateParams) (*Session, error) {
	organizer := strings.TrimSpace(p.Organizer)
	if organizer == "" {
		return nil, ErrNameRequired
	}
	s := &Session{
		ID:           code,
		Organizer:    organizer,
		Status:       StatusWaiting,
		UserStories:  cleanStories(p.Stories),
		GameMode:     p.GameMode,
		RoundNumber:  1,
		TimePerStory: p.TimePerStory,
	}
	if imp := p.Import; imp != nil {
		if len(imp.UserStories) > 0 {
			s.UserStories = append([]string(nil), imp.UserStories...)
		}
		if imp.CurrentStoryIndex != nil {
			s.CurrentStoryIndex = *imp.CurrentStoryIndex
		}
		s.History = cloneHistory(imp.History)
		if imp.GameMode != "" {
			s.GameMode = imp.GameMode
		}
		if rn := imp.roundNumber(); rn != nil {
			s.RoundNumber = *rn
		}
		if imp.TimePerStory != nil {
			s.TimePerStory = *imp.TimePerStory
		}
		for _, ip := range imp.Participants {
			p := s.AddParticipant(ip.Name, ip.AvatarSeed)
			if ip.Vote != nil {
				p.Vote = strPtr(*ip.Vote)
			}
			p.HasVoted = ip.HasVoted
		}
	}
	s.Normalize()
	s.stopTimer()
	// The organizer always joins, even if the import already listed them.
	s.AddParticipant(organizer, p.AvatarSeed)
	return s, nil
}

func cleanStories(in []string) []string {
	out := make([]string, 0, len(in))
	for _, st := range in {
		if st = strings.TrimSpace(st); st != "" {
			out = append(out, st)
		}
	}
	return out
}

func (s *Session) requireOrganizer(requester string) error {
	if requester == "" || requester != s.Organizer {
		return ErrUnauthorized
	}
	return nil
}

// Start opens the first round at the current story. The story index is kept so
// an imported game resumes where it stopped.
func (s *Session) Start(requester string, now time.Time) error {
	if err := s.requireOrganizer(requester); err != nil {
		return err
	}
	s.ResetAllVotes()
	s.Status = StatusStarted
	s.Reveal = false
	s.RoundNumber = 1
	s.startTimer(now)
	return nil
}

func (s *Session) RevealVotes(requester string) error {
	if err := s.requireOrganizer(requester); err != nil {
		return err
	}
	if s.Status == StatusFinished {
		return ErrGameFinished
	}
	s.Reveal = true
	return nil
}

// SubmitVote records value for voter. A voter missing from the table is added
// with the vote already cast. There is no status check.
func (s *Session) SubmitVote(voter, avatarSeed, value string) {
	if s.RecordVote(voter, value) {
		return
	}
	p := s.AddParticipant(voter, avatarSeed)
	p.Vote = strPtr(value)
	p.HasVoted = true
}

// Resume restarts a coffee-paused game keeping the remaining round time. It
// reports false and changes nothing unless the game is paused.
func (s *Session) Resume(now time.Time) bool {
	if s.Status != StatusPaused {
		return false
	}
	s.ResetAllVotes()
	s.Status = StatusStarted
	s.resumeTimer(now)
	return true
}

// NextStory closes the current story into history and moves to the next one, or
// finishes the game after the last story. A nil result is replaced by the
// average of numeric votes.
func (s *Session) NextStory(result any, now time.Time) error {
	if s.Status == StatusFinished {
		return ErrGameFinished
	}
	votes := make([]VoteSnap, len(s.Participants))
	for i, p := range s.Participants {
		avatar := p.AvatarSeed
		if avatar == "" {
			avatar = DefaultAvatarSeed
		}
		vs := VoteSnap{Name: p.Name, Avatar: avatar}
		if p.Vote != nil {
			vs.Vote = strPtr(*p.Vote)
		}
		votes[i] = vs
	}
	if result == nil {
		result = averageResult(s.votes())
	}
	s.History = append(s.History, StoryRecord{
		Story:  s.CurrentStory(),
		Result: result,
		Votes:  votes,
	})

	s.ResetAllVotes()
	if s.CurrentStoryIndex < len(s.UserStories)-1 {
		s.CurrentStoryIndex++
		s.Status = StatusStarted
		s.Reveal = false
		s.FinalResult = nil
		s.RoundNumber = 1
		s.startTimer(now)
		return nil
	}
	s.Status = StatusFinished
	s.Reveal = true
	s.FinalResult = result
	s.stopTimer()
	return nil
}

// Revote starts another round on the same story. The round deadline is kept.
func (s *Session) Revote() error {
	if s.Status == StatusFinished {
		return ErrGameFinished
	}
	s.ResetAllVotes()
	s.Reveal = false
	s.FinalResult = nil
	s.RoundNumber++
	return nil
}
