package game

import "time"

func (s *Session) totalSeconds() int64 {
	return int64(s.TimePerStory) * 60
}

func (s *Session) startTimer(now time.Time) {
	s.TimerStart = int64Ptr(now.Unix())
	s.PauseRemaining = nil
}

func (s *Session) stopTimer() {
	s.TimerStart = nil
	s.PauseRemaining = nil
}

// Elapsed returns seconds since the round timer started, or 0 when it is not running.
func (s *Session) Elapsed(now time.Time) int64 {
	if s.TimerStart == nil {
		return 0
	}
	return now.Unix() - *s.TimerStart
}

// Remaining returns the seconds left in the current round: the frozen value while
// paused, the live countdown while running, nil when no timer exists.
func (s *Session) Remaining(now time.Time) *int64 {
	if s.PauseRemaining != nil {
		return int64Ptr(*s.PauseRemaining)
	}
	if s.TimerStart == nil {
		return nil
	}
	return int64Ptr(max(0, s.totalSeconds()-s.Elapsed(now)))
}

// pauseTimer freezes the countdown. Without a running timer the remaining time is 0.
func (s *Session) pauseTimer(now time.Time) {
	var remaining int64
	if s.TimerStart != nil {
		remaining = max(0, s.totalSeconds()-s.Elapsed(now))
	}
	s.TimerStart = nil
	s.PauseRemaining = int64Ptr(remaining)
}

// resumeTimer back-dates the start so the frozen remaining time carries over.
func (s *Session) resumeTimer(now time.Time) {
	if s.PauseRemaining == nil || *s.PauseRemaining <= 0 {
		s.startTimer(now)
		return
	}
	start := now.Unix() - (s.totalSeconds() - *s.PauseRemaining)
	s.TimerStart = int64Ptr(start)
	s.PauseRemaining = nil
}
