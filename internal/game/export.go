package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArchiveResults appends a human-readable summary of a finished game to filename.
func ArchiveResults(r Results, filename string, at time.Time) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	if fileExists {
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("Planning Poker Results - Session %s\n", r.SessionID))
	sb.WriteString(fmt.Sprintf("Organizer: %s\n", r.Organizer))
	sb.WriteString(fmt.Sprintf("Mode: %s, %d min per story\n", r.GameMode, r.TimePerStory))
	sb.WriteString(fmt.Sprintf("Finished: %s\n", at.Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	for i, rec := range r.History {
		sb.WriteString(fmt.Sprintf("Story %d: \"%s\"\n", i+1, rec.Story))
		sb.WriteString(strings.Repeat("-", 40) + "\n")
		sb.WriteString(fmt.Sprintf("Result: %s\n", formatResult(rec.Result)))
		if len(rec.Votes) > 0 {
			sb.WriteString("Votes:\n")
			for _, v := range rec.Votes {
				vote := "-"
				if v.Vote != nil {
					vote = *v.Vote
				}
				sb.WriteString(fmt.Sprintf("- %s: %s\n", v.Name, vote))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("=", 50) + "\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

func formatResult(v any) string {
	switch r := v.(type) {
	case nil:
		return "no consensus"
	case float64:
		if r == float64(int64(r)) {
			return fmt.Sprintf("%d", int64(r))
		}
		return fmt.Sprintf("%g", r)
	case string:
		return r
	default:
		return fmt.Sprintf("%v", r)
	}
}
