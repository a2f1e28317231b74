package game

import "time"

// GameView is the per-viewer projection of a session sent to clients.
type GameView struct {
	SessionID        string        `json:"sessionId"`
	Organizer        string        `json:"organizer"`
	IsOrganizer      bool          `json:"isOrganizer"`
	Participants     []Participant `json:"participants"`
	AllVoted         bool          `json:"allVoted"`
	AllCafe          bool          `json:"allCafe"`
	Unanimous        bool          `json:"unanimous"`
	UnanimousValue   *string       `json:"unanimousValue"`
	Reveal           bool          `json:"reveal"`
	CurrentStory     string        `json:"currentStory"`
	CurrentIndex     int           `json:"currentStoryIndex"`
	StoryCount       int           `json:"storyCount"`
	FinalResult      any           `json:"finalResult"`
	History          []StoryRecord `json:"history"`
	GameMode         string        `json:"gameMode"`
	RoundNumber      int           `json:"roundNumber"`
	TimePerStory     int           `json:"timePerStory"`
	TimerStart       *int64        `json:"timerStart"`
	PauseRemaining   *int64        `json:"pauseRemaining"`
	RemainingSeconds *int64        `json:"remainingSeconds"`
	Status           Status        `json:"status"`
}

// ComputeGameView builds the view for viewer. It is not a pure read: when every
// participant played the coffee card the game is paused here, freezing the
// remaining round time. It reports whether that pause happened so the caller
// can persist the session.
func (s *Session) ComputeGameView(viewer string, now time.Time) (GameView, bool) {
	votes := s.votes()
	cafe := allCoffee(votes)
	unanimous, value := unanimity(votes)

	paused := false
	if cafe && s.Status != StatusFinished && s.Status != StatusPaused {
		s.Status = StatusPaused
		s.pauseTimer(now)
		paused = true
	}

	v := GameView{
		SessionID:        s.ID,
		Organizer:        s.Organizer,
		IsOrganizer:      viewer != "" && viewer == s.Organizer,
		Participants:     s.SanitizedParticipants(viewer),
		AllVoted:         allVoted(votes),
		AllCafe:          cafe,
		Unanimous:        unanimous,
		UnanimousValue:   value,
		Reveal:           s.Reveal,
		CurrentStory:     s.CurrentStory(),
		CurrentIndex:     s.CurrentStoryIndex,
		StoryCount:       len(s.UserStories),
		FinalResult:      s.FinalResult,
		History:          cloneHistory(s.History),
		GameMode:         s.GameMode,
		RoundNumber:      s.RoundNumber,
		TimePerStory:     s.TimePerStory,
		RemainingSeconds: s.Remaining(now),
		Status:           s.Status,
	}
	if s.TimerStart != nil {
		v.TimerStart = int64Ptr(*s.TimerStart)
	}
	if s.PauseRemaining != nil {
		v.PauseRemaining = int64Ptr(*s.PauseRemaining)
	}
	return v, paused
}

func cloneHistory(in []StoryRecord) []StoryRecord {
	out := make([]StoryRecord, len(in))
	for i, r := range in {
		votes := make([]VoteSnap, len(r.Votes))
		copy(votes, r.Votes)
		out[i] = StoryRecord{Story: r.Story, Result: r.Result, Votes: votes}
	}
	return out
}
