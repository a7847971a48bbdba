package message_test

import (
	"encoding/json"
	"testing"

	"github.com/edgard/boteco/internal/message"
)

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  map[string]any
	}{
		{name: "empty payload", raw: map[string]any{}},
		{name: "nil values ignored", raw: map[string]any{"text": nil, "name": nil, "sender_type": nil}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := message.Parse(tt.raw)

			if m.Text != "" {
				t.Errorf("Text = %q, want empty", m.Text)
			}
			if m.Name != "Unknown" {
				t.Errorf("Name = %q, want %q", m.Name, "Unknown")
			}
			if m.SenderType != message.SenderTypeUser {
				t.Errorf("SenderType = %q, want %q", m.SenderType, message.SenderTypeUser)
			}
			if m.System {
				t.Error("System = true, want false")
			}
			if len(m.Attachments) != 0 {
				t.Errorf("Attachments = %v, want empty", m.Attachments)
			}
		})
	}
}

func TestParseFullPayload(t *testing.T) {
	t.Parallel()

	// Decode from JSON so numeric fields arrive as float64, exactly as
	// they do from a webhook delivery.
	payload := `{
		"id": "162",
		"text": "hello there",
		"user_id": "u1",
		"name": "Alice",
		"group_id": "g1",
		"created_at": 1700000000,
		"system": false,
		"sender_type": "user",
		"avatar_url": "https://i.groupme.com/a.jpg"
	}`
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	m := message.Parse(raw)

	if m.ID != "162" {
		t.Errorf("ID = %q, want %q", m.ID, "162")
	}
	if m.Text != "hello there" {
		t.Errorf("Text = %q, want %q", m.Text, "hello there")
	}
	if m.UserID != "u1" {
		t.Errorf("UserID = %q, want %q", m.UserID, "u1")
	}
	if m.Name != "Alice" {
		t.Errorf("Name = %q, want %q", m.Name, "Alice")
	}
	if m.GroupID != "g1" {
		t.Errorf("GroupID = %q, want %q", m.GroupID, "g1")
	}
	if m.CreatedAt != 1700000000 {
		t.Errorf("CreatedAt = %d, want 1700000000", m.CreatedAt)
	}
	if m.AvatarURL != "https://i.groupme.com/a.jpg" {
		t.Errorf("AvatarURL = %q", m.AvatarURL)
	}
}

func TestParseAttachments(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"id": "1",
		"attachments": []any{
			map[string]any{"type": "emoji", "placeholder": "x"},
			map[string]any{"type": "image", "url": "https://i.groupme.com/pic1.jpg"},
			map[string]any{"type": "location", "lat": "40.7", "lng": "-74.0", "name": "NYC"},
			map[string]any{"type": "image", "url": "https://i.groupme.com/pic2.jpg"},
			"not-an-object",
		},
	}

	m := message.Parse(raw)

	if len(m.Attachments) != 5 {
		t.Fatalf("len(Attachments) = %d, want 5", len(m.Attachments))
	}

	if !m.HasImage() {
		t.Error("HasImage() = false, want true")
	}
	url, ok := m.FirstImageURL()
	if !ok || url != "https://i.groupme.com/pic1.jpg" {
		t.Errorf("FirstImageURL() = %q, %v; want first image in sequence order", url, ok)
	}

	if !m.HasLocation() {
		t.Error("HasLocation() = false, want true")
	}
	loc, ok := m.FirstLocation()
	if !ok {
		t.Fatal("FirstLocation() returned no location")
	}
	if loc.Lat != "40.7" || loc.Lng != "-74.0" || loc.Name != "NYC" {
		t.Errorf("FirstLocation() = %+v", loc)
	}

	// Unrecognized and malformed entries pass through as Other.
	if _, ok := m.Attachments[0].(message.OtherAttachment); !ok {
		t.Errorf("Attachments[0] = %T, want OtherAttachment", m.Attachments[0])
	}
	if _, ok := m.Attachments[4].(message.OtherAttachment); !ok {
		t.Errorf("Attachments[4] = %T, want OtherAttachment", m.Attachments[4])
	}
}

func TestParseAttachmentsAbsentVsMalformed(t *testing.T) {
	t.Parallel()

	t.Run("absent key yields empty sequence", func(t *testing.T) {
		t.Parallel()
		m := message.Parse(map[string]any{"id": "1"})
		if len(m.Attachments) != 0 {
			t.Errorf("Attachments = %v, want empty", m.Attachments)
		}
	})

	t.Run("present but malformed passes through", func(t *testing.T) {
		t.Parallel()
		m := message.Parse(map[string]any{"id": "1", "attachments": "garbage"})
		if len(m.Attachments) != 1 {
			t.Fatalf("len(Attachments) = %d, want 1", len(m.Attachments))
		}
		if _, ok := m.Attachments[0].(message.OtherAttachment); !ok {
			t.Errorf("Attachments[0] = %T, want OtherAttachment", m.Attachments[0])
		}
	})
}

func TestAttachmentHelpersWithoutAttachments(t *testing.T) {
	t.Parallel()

	m := message.Parse(map[string]any{"id": "1", "text": "plain"})

	if m.HasImage() {
		t.Error("HasImage() = true, want false")
	}
	if _, ok := m.FirstImageURL(); ok {
		t.Error("FirstImageURL() unexpectedly found an image")
	}
	if m.HasLocation() {
		t.Error("HasLocation() = true, want false")
	}
	if _, ok := m.FirstLocation(); ok {
		t.Error("FirstLocation() unexpectedly found a location")
	}
}

func TestIsFromBot(t *testing.T) {
	t.Parallel()

	if message.Parse(map[string]any{"sender_type": "bot"}).IsFromBot() != true {
		t.Error("IsFromBot() = false for bot sender")
	}
	if message.Parse(map[string]any{"sender_type": "user"}).IsFromBot() != false {
		t.Error("IsFromBot() = true for user sender")
	}
	if message.Parse(map[string]any{}).IsFromBot() != false {
		t.Error("IsFromBot() = true for defaulted sender")
	}
}

func TestParseCreatedAtShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  any
		want int64
	}{
		{name: "float64 from json", raw: float64(1700000001), want: 1700000001},
		{name: "int64", raw: int64(1700000002), want: 1700000002},
		{name: "int", raw: int(1700000003), want: 1700000003},
		{name: "missing", raw: nil, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := message.Parse(map[string]any{"created_at": tt.raw})
			if m.CreatedAt != tt.want {
				t.Errorf("CreatedAt = %d, want %d", m.CreatedAt, tt.want)
			}
		})
	}
}
