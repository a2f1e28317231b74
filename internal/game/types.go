package game

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusStarted  Status = "started"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

const (
	DefaultGameMode     = "strict"
	DefaultTimePerStory = 5 // minutes
	DefaultAvatarSeed   = "astronaut"
	DefaultOrganizer    = "Organizer"
)

// Session is the document stored per game. Participants travel with it as an
// ordered sub-collection; chat messages are stored separately.
type Session struct {
	ID                string        `json:"id"`
	Organizer         string        `json:"organizer"`
	Status            Status        `json:"status"`
	UserStories       []string      `json:"userStories"`
	CurrentStoryIndex int           `json:"currentStoryIndex"`
	Reveal            bool          `json:"reveal"`
	FinalResult       any           `json:"finalResult"`
	History           []StoryRecord `json:"history"`
	GameMode          string        `json:"gameMode"`
	RoundNumber       int           `json:"roundNumber"`
	TimePerStory      int           `json:"timePerStory"` // minutes
	TimerStart        *int64        `json:"timerStart"`     // epoch seconds
	PauseRemaining    *int64        `json:"pauseRemaining"` // seconds
	Participants      []Participant `json:"participants"`
}

type Participant struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name"`
	AvatarSeed string  `json:"avatarSeed"`
	Vote       *string `json:"vote"`
	HasVoted   bool    `json:"hasVoted"`
}

// StoryRecord is appended once when a story is closed and never changed afterwards.
// Result is nil when no estimate could be derived; numbers are float64 as with encoding/json.
type StoryRecord struct {
	Story  string     `json:"story"`
	Result any        `json:"result"`
	Votes  []VoteSnap `json:"votes"`
}

type VoteSnap struct {
	Name   string  `json:"name"`
	Avatar string  `json:"avatar"`
	Vote   *string `json:"vote"`
}

type Message struct {
	ID     string `json:"id,omitempty"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	TS     int64  `json:"ts"`
}

// Normalize fills defaults for documents read back from storage or built from imports.
func (s *Session) Normalize() {
	if s.Status == "" {
		s.Status = StatusWaiting
	}
	if s.UserStories == nil {
		s.UserStories = []string{}
	}
	if s.History == nil {
		s.History = []StoryRecord{}
	}
	if s.Participants == nil {
		s.Participants = []Participant{}
	}
	if s.GameMode == "" {
		s.GameMode = DefaultGameMode
	}
	if s.RoundNumber < 1 {
		s.RoundNumber = 1
	}
	if s.TimePerStory < 1 {
		s.TimePerStory = DefaultTimePerStory
	}
	if s.CurrentStoryIndex < 0 {
		s.CurrentStoryIndex = 0
	}
}

// CurrentStory returns the label at the current index, or "" when out of range.
func (s *Session) CurrentStory() string {
	if s.CurrentStoryIndex >= 0 && s.CurrentStoryIndex < len(s.UserStories) {
		return s.UserStories[s.CurrentStoryIndex]
	}
	return ""
}

func strPtr(v string) *string { return &v }

func int64Ptr(v int64) *int64 { return &v }
