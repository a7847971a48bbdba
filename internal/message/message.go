// Package message defines the normalized inbound message entity and the
// parser that builds it from a raw GroupMe webhook payload.
package message

// Sender type values as delivered by the GroupMe callback payload.
const (
	SenderTypeUser = "user"
	SenderTypeBot  = "bot"
)

// Message is a normalized GroupMe message parsed from a webhook payload
// or from a stored raw payload. It is built once per inbound delivery
// and never mutated afterwards.
type Message struct {
	ID          string
	Text        string // empty when the payload carries no text
	UserID      string
	Name        string
	GroupID     string
	CreatedAt   int64 // unix seconds
	System      bool
	SenderType  string
	AvatarURL   string
	Attachments []Attachment
}

// Attachment is one entry of a message's attachment list. Exactly one
// of the concrete types ImageAttachment, LocationAttachment, or
// OtherAttachment implements it.
type Attachment interface {
	attachmentKind() string
}

// ImageAttachment is an image attachment with its hosted URL.
type ImageAttachment struct {
	URL string
}

// LocationAttachment is a location pin. Lat and Lng are kept in their
// wire form (decimal strings) rather than parsed into floats.
type LocationAttachment struct {
	Lat  string
	Lng  string
	Name string
}

// OtherAttachment preserves an attachment of an unrecognized or
// malformed shape without validation.
type OtherAttachment struct {
	Raw map[string]any
}

func (ImageAttachment) attachmentKind() string    { return "image" }
func (LocationAttachment) attachmentKind() string { return "location" }
func (OtherAttachment) attachmentKind() string    { return "other" }

// Parse normalizes a raw webhook payload into a Message. It never
// fails: missing fields map to documented defaults (text empty, name
// "Unknown", sender_type "user", system false, attachments empty), and
// malformed attachment entries pass through as OtherAttachment.
func Parse(raw map[string]any) *Message {
	m := &Message{
		ID:         asString(raw["id"]),
		Text:       asString(raw["text"]),
		UserID:     asString(raw["user_id"]),
		Name:       "Unknown",
		GroupID:    asString(raw["group_id"]),
		CreatedAt:  asInt64(raw["created_at"]),
		System:     asBool(raw["system"]),
		SenderType: SenderTypeUser,
		AvatarURL:  asString(raw["avatar_url"]),
	}

	if name := asString(raw["name"]); name != "" {
		m.Name = name
	}
	if st := asString(raw["sender_type"]); st != "" {
		m.SenderType = st
	}

	if rawAtts, ok := raw["attachments"]; ok {
		m.Attachments = parseAttachments(rawAtts)
	}

	return m
}

// HasImage reports whether the message contains an image attachment.
func (m *Message) HasImage() bool {
	for _, a := range m.Attachments {
		if _, ok := a.(ImageAttachment); ok {
			return true
		}
	}
	return false
}

// FirstImageURL returns the URL of the first image attachment in
// sequence order, or false when the message has none.
func (m *Message) FirstImageURL() (string, bool) {
	for _, a := range m.Attachments {
		if img, ok := a.(ImageAttachment); ok {
			return img.URL, true
		}
	}
	return "", false
}

// HasLocation reports whether the message contains a location attachment.
func (m *Message) HasLocation() bool {
	for _, a := range m.Attachments {
		if _, ok := a.(LocationAttachment); ok {
			return true
		}
	}
	return false
}

// FirstLocation returns the first location attachment in sequence
// order, or false when the message has none.
func (m *Message) FirstLocation() (LocationAttachment, bool) {
	for _, a := range m.Attachments {
		if loc, ok := a.(LocationAttachment); ok {
			return loc, true
		}
	}
	return LocationAttachment{}, false
}

// IsFromBot reports whether the message was posted by a bot sender.
func (m *Message) IsFromBot() bool {
	return m.SenderType == SenderTypeBot
}

func parseAttachments(raw any) []Attachment {
	list, ok := raw.([]any)
	if !ok {
		// Present but not a list: keep the value as a single opaque entry.
		return []Attachment{OtherAttachment{Raw: map[string]any{"value": raw}}}
	}

	atts := make([]Attachment, 0, len(list))
	for _, entry := range list {
		fields, ok := entry.(map[string]any)
		if !ok {
			atts = append(atts, OtherAttachment{Raw: map[string]any{"value": entry}})
			continue
		}
		switch asString(fields["type"]) {
		case "image":
			atts = append(atts, ImageAttachment{URL: asString(fields["url"])})
		case "location":
			atts = append(atts, LocationAttachment{
				Lat:  asString(fields["lat"]),
				Lng:  asString(fields["lng"]),
				Name: asString(fields["name"]),
			})
		default:
			atts = append(atts, OtherAttachment{Raw: fields})
		}
	}
	return atts
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// asInt64 accepts the numeric shapes a created_at value can arrive in:
// float64 from encoding/json, or int/int64 from hand-built payloads.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
