package database_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edgard/boteco/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "boteco_test.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return database.NewStore(db, logger)
}

func TestStorePing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestSaveReceivedRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	payload := map[string]any{
		"id":          "m1",
		"group_id":    "g1",
		"user_id":     "u1",
		"name":        "Alice",
		"text":        "hello there",
		"created_at":  int64(1700000000),
		"sender_type": "user",
		"attachments": []any{map[string]any{"type": "image", "url": "https://i.example/x.png"}},
	}
	if err := store.SaveReceived(ctx, payload); err != nil {
		t.Fatalf("SaveReceived() error = %v", err)
	}

	got, err := store.GetRecent(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("GetRecent() returned %d payloads, want 1", len(got))
	}

	// JSON round trip: strings survive exactly, numbers come back as float64.
	if got[0]["id"] != "m1" || got[0]["text"] != "hello there" || got[0]["name"] != "Alice" {
		t.Errorf("payload = %+v", got[0])
	}
	if createdAt, ok := got[0]["created_at"].(float64); !ok || int64(createdAt) != 1700000000 {
		t.Errorf("created_at = %v (%T)", got[0]["created_at"], got[0]["created_at"])
	}
	if _, ok := got[0]["attachments"].([]any); !ok {
		t.Errorf("attachments were not preserved: %+v", got[0]["attachments"])
	}
}

func TestSaveReceivedUpsert(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	first := map[string]any{
		"id": "m1", "group_id": "g1", "user_id": "u1",
		"text": "original", "created_at": int64(100),
	}
	if err := store.SaveReceived(ctx, first); err != nil {
		t.Fatalf("SaveReceived() error = %v", err)
	}

	// Same id delivered again (webhook retry) with amended content.
	second := map[string]any{
		"id": "m1", "group_id": "g1", "user_id": "u1",
		"text": "edited", "created_at": int64(100),
	}
	if err := store.SaveReceived(ctx, second); err != nil {
		t.Fatalf("SaveReceived() upsert error = %v", err)
	}

	got, err := store.GetRecent(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("upsert produced %d rows, want 1", len(got))
	}
	if got[0]["text"] != "edited" {
		t.Errorf("text = %v, want the last write", got[0]["text"])
	}
}

func TestSaveReceivedValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveReceived(ctx, nil); err == nil {
		t.Error("SaveReceived(nil) error = nil, want error")
	}
	if err := store.SaveReceived(ctx, map[string]any{"text": "no id"}); err == nil {
		t.Error("SaveReceived() without id: error = nil, want error")
	}
}

func TestSaveReceivedNullText(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	payload := map[string]any{
		"id": "m1", "group_id": "g1", "user_id": "u1",
		"created_at": int64(100),
		"attachments": []any{
			map[string]any{"type": "image", "url": "https://i.example/only.png"},
		},
	}
	if err := store.SaveReceived(ctx, payload); err != nil {
		t.Fatalf("SaveReceived() error = %v", err)
	}

	got, err := store.GetRecent(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("GetRecent() returned %d payloads, want 1", len(got))
	}
	if _, present := got[0]["text"]; present {
		t.Errorf("text key should be absent from a textless payload, got %v", got[0]["text"])
	}
}

func TestSaveSent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveSent(ctx, "outgoing hello", "g1", "bot-1", ""); err != nil {
		t.Fatalf("SaveSent() error = %v", err)
	}

	got, err := store.GetRecent(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("GetRecent() returned %d payloads, want 1", len(got))
	}

	payload := got[0]
	id, _ := payload["id"].(string)
	if !strings.HasPrefix(id, "sent_") || !strings.HasSuffix(id, "_bot-1") {
		t.Errorf("sent id = %q, want sent_<ts>_bot-1 shape", id)
	}
	if payload["text"] != "outgoing hello" {
		t.Errorf("text = %v", payload["text"])
	}
	if payload["sender_type"] != "bot" {
		t.Errorf("sender_type = %v, want bot", payload["sender_type"])
	}
	if payload["direction"] != database.DirectionSent {
		t.Errorf("direction = %v, want %q", payload["direction"], database.DirectionSent)
	}
	if _, present := payload["picture_url"]; present {
		t.Error("picture_url should be absent when no image was attached")
	}
}

func TestSaveSentWithImage(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveSent(ctx, "look", "g1", "bot-1", "https://i.example/pic.png"); err != nil {
		t.Fatalf("SaveSent() error = %v", err)
	}

	got, err := store.GetRecent(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(got) != 1 || got[0]["picture_url"] != "https://i.example/pic.png" {
		t.Errorf("payloads = %+v", got)
	}
}

func TestGetRecentOrderingAndLimit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i, ts := range []int64{100, 300, 200} {
		payload := map[string]any{
			"id":         []string{"m-a", "m-b", "m-c"}[i],
			"group_id":   "g1",
			"user_id":    "u1",
			"text":       []string{"oldest", "newest", "middle"}[i],
			"created_at": ts,
		}
		if err := store.SaveReceived(ctx, payload); err != nil {
			t.Fatalf("SaveReceived() error = %v", err)
		}
	}

	got, err := store.GetRecent(ctx, "g1", 2)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetRecent() returned %d payloads, want 2", len(got))
	}
	if got[0]["text"] != "newest" || got[1]["text"] != "middle" {
		t.Errorf("ordering = [%v, %v], want newest first", got[0]["text"], got[1]["text"])
	}
}

func TestGetRecentScopedToGroup(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for _, p := range []map[string]any{
		{"id": "m1", "group_id": "g1", "user_id": "u1", "text": "mine", "created_at": int64(100)},
		{"id": "m2", "group_id": "g2", "user_id": "u1", "text": "theirs", "created_at": int64(200)},
	} {
		if err := store.SaveReceived(ctx, p); err != nil {
			t.Fatalf("SaveReceived() error = %v", err)
		}
	}

	got, err := store.GetRecent(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(got) != 1 || got[0]["text"] != "mine" {
		t.Errorf("payloads = %+v, want only group g1", got)
	}
}

func TestGetRecentDefaultLimit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	payload := map[string]any{
		"id": "m1", "group_id": "g1", "user_id": "u1",
		"text": "hi", "created_at": int64(100),
	}
	if err := store.SaveReceived(ctx, payload); err != nil {
		t.Fatalf("SaveReceived() error = %v", err)
	}

	// Non-positive limit falls back to the default instead of failing.
	got, err := store.GetRecent(ctx, "g1", 0)
	if err != nil {
		t.Fatalf("GetRecent(limit=0) error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("GetRecent(limit=0) returned %d payloads, want 1", len(got))
	}

	if _, err := store.GetRecent(ctx, "", 10); err == nil {
		t.Error("GetRecent() with empty group id: error = nil, want error")
	}
}

func TestRunSQLMaintenance(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.RunSQLMaintenance(context.Background()); err != nil {
		t.Errorf("RunSQLMaintenance() error = %v", err)
	}
}
