package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vladbarsukov/gameroom-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "games.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id, gameType string) *store.GameRecord {
	return &store.GameRecord{
		ID:       id,
		GameType: gameType,
		Params:   json.RawMessage(`{"seed":7}`),
		Players:  json.RawMessage(`[{"player":1,"token":"abc"}]`),
		History:  json.RawMessage(`[]`),
	}
}

func TestSaveAndGetGame(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := record("g1", "sueca")
	if err := s.SaveGame(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "g1" || got.GameType != "sueca" {
		t.Fatalf("got %q/%q, want g1/sueca", got.ID, got.GameType)
	}
	if string(got.Params) != `{"seed":7}` {
		t.Fatalf("params = %s", got.Params)
	}
	if got.Outcome != nil {
		t.Fatalf("outcome = %s, want nil", got.Outcome)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("updated_at must be set")
	}
}

func TestGetGameNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetGame(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestSaveGameUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := record("g1", "sueca")
	if err := s.SaveGame(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec.History = json.RawMessage(`[{"player":1,"move":{"suit":"♠","value":"A"}}]`)
	rec.Outcome = json.RawMessage(`{"winners":[1,3]}`)
	if err := s.SaveGame(ctx, rec); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := s.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.History) != string(rec.History) {
		t.Fatalf("history = %s", got.History)
	}
	if string(got.Outcome) != `{"winners":[1,3]}` {
		t.Fatalf("outcome = %s", got.Outcome)
	}
}

func TestListGamesByType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, rec := range []*store.GameRecord{
		record("g1", "sueca"),
		record("g2", "sueca"),
		record("g3", "chess"),
	} {
		if err := s.SaveGame(ctx, rec); err != nil {
			t.Fatalf("save %s: %v", rec.ID, err)
		}
	}

	recs, err := s.ListGames(ctx, "sueca")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("listed %d records, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.GameType != "sueca" {
			t.Fatalf("listed wrong type %q", rec.GameType)
		}
	}

	recs, err = s.ListGames(ctx, "unknown")
	if err != nil {
		t.Fatalf("list unknown: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("listed %d records for unknown type, want 0", len(recs))
	}
}

func TestNullColumnsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveGame(ctx, &store.GameRecord{ID: "bare", GameType: "sueca"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.GetGame(ctx, "bare")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Params != nil || got.Players != nil || got.History != nil || got.Outcome != nil {
		t.Fatal("empty fields must come back nil")
	}
}
