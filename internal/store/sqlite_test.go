package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kiliankoe/pokerplanning/internal/game"
)

func openTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "poker.db")
	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("should be able to open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteStore(t *testing.T) {
	s, _ := openTestSQLite(t)
	exerciseStore(t, s, "SQL234")
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openTestSQLite(t)

	sess, err := game.NewSession("KEEP23", game.CreateParams{Organizer: "Alice", Stories: []string{"A"}})
	if err != nil {
		t.Fatalf("should be able to build session: %v", err)
	}
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("should be able to save session: %v", err)
	}
	if err := s.AppendMessage(ctx, "KEEP23", game.Message{Sender: "Alice", Text: "hi", TS: 1}); err != nil {
		t.Fatalf("should be able to append message: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("should be able to close sqlite: %v", err)
	}

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("should be able to reopen sqlite: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(ctx, "KEEP23")
	if err != nil {
		t.Fatalf("should be able to load after reopen: %v", err)
	}
	if got.Organizer != "Alice" || len(got.Participants) != 1 || got.Participants[0].ID != sess.Participants[0].ID {
		t.Fatalf("unexpected session after reopen %+v", got)
	}
	msgs, err := reopened.Messages(ctx, "KEEP23", 0)
	if err != nil {
		t.Fatalf("should be able to list messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID == "" {
		t.Fatalf("message should persist with a generated id, got %+v", msgs)
	}
}
