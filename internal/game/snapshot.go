package game

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const SchemaVersion = 1

// Snapshot is the portable, re-importable form of a session. Pointer fields
// distinguish "missing" from zero so imports can fall back to defaults.
type Snapshot struct {
	SchemaVersion     int           `json:"schemaVersion"`
	SessionID         string        `json:"sessionId,omitempty"`
	Organizer         string        `json:"organizer"`
	Status            Status        `json:"status,omitempty"`
	GameMode          string        `json:"gameMode,omitempty"`
	TimePerStory      *int          `json:"timePerStory,omitempty"`
	UserStories       []string      `json:"userStories"`
	CurrentStoryIndex *int          `json:"currentStoryIndex,omitempty"`
	RoundNumber       *int          `json:"roundNumber,omitempty"`
	LegacyRoundNumber *int          `json:"round_number,omitempty"`
	Reveal            bool          `json:"reveal"`
	FinalResult       any           `json:"finalResult"`
	TimerStart        *int64        `json:"timerStart"`
	PauseRemaining    *int64        `json:"pauseRemaining"`
	History           []StoryRecord `json:"history"`
	Participants      []Participant `json:"participants,omitempty"`
}

// Results is the archival export: no participants and no live position.
type Results struct {
	SchemaVersion int           `json:"schemaVersion"`
	SessionID     string        `json:"sessionId"`
	Organizer     string        `json:"organizer"`
	Status        Status        `json:"status"`
	GameMode      string        `json:"gameMode"`
	TimePerStory  int           `json:"timePerStory"`
	UserStories   []string      `json:"userStories"`
	History       []StoryRecord `json:"history"`
}

func (sn *Snapshot) roundNumber() *int {
	if sn.RoundNumber != nil {
		return sn.RoundNumber
	}
	return sn.LegacyRoundNumber
}

// ExportFullState captures every session field plus the live participants.
func (s *Session) ExportFullState() Snapshot {
	idx, rn, tps := s.CurrentStoryIndex, s.RoundNumber, s.TimePerStory
	sn := Snapshot{
		SchemaVersion:     SchemaVersion,
		SessionID:         s.ID,
		Organizer:         s.Organizer,
		Status:            s.Status,
		GameMode:          s.GameMode,
		TimePerStory:      &tps,
		UserStories:       append([]string{}, s.UserStories...),
		CurrentStoryIndex: &idx,
		RoundNumber:       &rn,
		Reveal:            s.Reveal,
		FinalResult:       s.FinalResult,
		History:           cloneHistory(s.History),
		Participants:      s.ListParticipants(),
	}
	if s.TimerStart != nil {
		sn.TimerStart = int64Ptr(*s.TimerStart)
	}
	if s.PauseRemaining != nil {
		sn.PauseRemaining = int64Ptr(*s.PauseRemaining)
	}
	return sn
}

func (s *Session) ExportResultsOnly() Results {
	return Results{
		SchemaVersion: SchemaVersion,
		SessionID:     s.ID,
		Organizer:     s.Organizer,
		Status:        s.Status,
		GameMode:      s.GameMode,
		TimePerStory:  s.TimePerStory,
		UserStories:   append([]string{}, s.UserStories...),
		History:       cloneHistory(s.History),
	}
}

// ResumeSession derives a new session under code from a snapshot. Play resumes
// at the first story without a history entry; a fully played snapshot comes
// back finished on its last story. Only the organizer is recreated.
func ResumeSession(code string, sn *Snapshot) *Session {
	organizer := strings.TrimSpace(sn.Organizer)
	if organizer == "" {
		organizer = DefaultOrganizer
	}
	stories := append([]string{}, sn.UserStories...)
	history := cloneHistory(sn.History)

	status, index := StatusWaiting, len(history)
	if len(history) >= len(stories) && len(stories) > 0 {
		status, index = StatusFinished, len(stories)-1
	}

	s := &Session{
		ID:                code,
		Organizer:         organizer,
		Status:            status,
		UserStories:       stories,
		CurrentStoryIndex: index,
		History:           history,
		GameMode:          sn.GameMode,
		RoundNumber:       1,
		TimePerStory:      DefaultTimePerStory,
	}
	if rn := sn.roundNumber(); rn != nil {
		s.RoundNumber = *rn
	}
	if sn.TimePerStory != nil {
		s.TimePerStory = *sn.TimePerStory
	}
	s.Normalize()

	avatar := DefaultAvatarSeed
	for _, p := range sn.Participants {
		if p.Name == organizer {
			if p.AvatarSeed != "" {
				avatar = p.AvatarSeed
			}
			break
		}
	}
	s.AddParticipant(organizer, avatar)
	return s
}

const snapshotSchema = `{
  "type": "object",
  "properties": {
    "schemaVersion": {"type": "integer", "minimum": 0},
    "sessionId": {"type": ["string", "null"]},
    "organizer": {"type": ["string", "null"]},
    "status": {"enum": ["waiting", "started", "paused", "finished", null]},
    "gameMode": {"type": ["string", "null"]},
    "timePerStory": {"type": ["integer", "null"], "minimum": 1},
    "userStories": {"type": ["array", "null"], "items": {"type": "string"}},
    "currentStoryIndex": {"type": ["integer", "null"], "minimum": 0},
    "roundNumber": {"type": ["integer", "null"], "minimum": 1},
    "round_number": {"type": ["integer", "null"], "minimum": 1},
    "reveal": {"type": ["boolean", "null"]},
    "timerStart": {"type": ["integer", "null"]},
    "pauseRemaining": {"type": ["integer", "null"]},
    "history": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "story": {"type": ["string", "null"]},
          "votes": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "properties": {
                "name": {"type": ["string", "null"]},
                "avatar": {"type": ["string", "null"]},
                "vote": {"type": ["string", "null"]}
              }
            }
          }
        }
      }
    },
    "participants": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": ["string", "null"]},
          "avatarSeed": {"type": ["string", "null"]},
          "vote": {"type": ["string", "null"]},
          "hasVoted": {"type": ["boolean", "null"]}
        }
      }
    }
  }
}`

var snapshotSchemaLoader = gojsonschema.NewStringLoader(snapshotSchema)

// ParseSnapshot validates and decodes an exported state file. Unknown fields are
// ignored; wrong types fail with ErrInvalidImport.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	result, err := gojsonschema.Validate(snapshotSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidImport, strings.Join(msgs, "; "))
	}
	var sn Snapshot
	if err := json.Unmarshal(data, &sn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return &sn, nil
}
