// Package bot implements the core GroupMe bot: identity lifecycle,
// message dispatch, and the command router.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/edgard/boteco/internal/config"
	"github.com/edgard/boteco/internal/database"
	"github.com/edgard/boteco/internal/groupme"
	"github.com/edgard/boteco/internal/message"
)

// State is the lifecycle state of a bot identity.
type State int32

// Lifecycle states. The only transitions are Uninitialized → Creating →
// Active → Destroyed; a failed creation returns the constructor error
// and no Bot value escapes.
const (
	StateUninitialized State = iota
	StateCreating
	StateActive
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCreating:
		return "creating"
	case StateActive:
		return "active"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Bot owns one GroupMe bot identity and dispatches its inbound webhook
// messages. Dispatch is safe to call concurrently; lifecycle mutations
// (Destroy, Close) are serialized internally.
type Bot struct {
	logger *slog.Logger
	sender Sender
	store  database.Store // nil when storage is disabled
	router *Router

	botID       string
	groupID     string
	callbackURL string
	name        string
	avatarURL   string

	mu    sync.Mutex
	state State
	owned bool // identity was auto-created by this process

	closeOnce sync.Once
}

// New constructs a Bot from configuration and collaborators.
//
// If cfg.BotID is set the identity is externally supplied: the bot goes
// straight to Active with no network call and will never be destroyed
// by this process. Otherwise, when cfg.AutoCreate is set, a new bot is
// created via the sender (requiring GroupID and CallbackURL) and owned
// by this process.
//
// store may be nil (message history disabled) and router may be nil
// (send-only bot). Configuration problems are reported as
// config.ErrConfiguration; creation failures propagate the sender's
// error.
func New(cfg *config.Config, sender Sender, store database.Store, router *Router, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is required (set GROUPME_API_KEY or api_key)", config.ErrConfiguration)
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: sender is required", config.ErrConfiguration)
	}

	if router == nil {
		router = NewRouter(logger)
	}

	b := &Bot{
		logger:      logger.With("component", "bot"),
		sender:      sender,
		store:       store,
		router:      router,
		botID:       cfg.BotID,
		groupID:     cfg.GroupID,
		callbackURL: cfg.CallbackURL,
		name:        cfg.BotName,
		avatarURL:   cfg.AvatarURL,
		state:       StateUninitialized,
	}

	switch {
	case b.botID != "":
		// Externally supplied identity: no network call, never owned.
		b.state = StateActive
		b.logger = b.logger.With("bot_id", b.botID)
		b.logger.Info("Using externally supplied bot identity", "group_id", b.groupID)

	case cfg.AutoCreate:
		if b.groupID == "" || b.callbackURL == "" {
			return nil, fmt.Errorf(
				"%w: to auto-create a bot, provide group_id and callback_url (or set GROUPME_GROUP_ID and GROUPME_CALLBACK_URL)",
				config.ErrConfiguration)
		}
		if err := b.create(context.Background()); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: bot_id is required (or enable auto_create)", config.ErrConfiguration)
	}

	return b, nil
}

// create performs the auto-create network call and records ownership.
func (b *Bot) create(ctx context.Context) error {
	b.state = StateCreating

	info, err := b.sender.CreateBot(ctx, groupme.CreateBotParams{
		Name:        b.name,
		GroupID:     b.groupID,
		CallbackURL: b.callbackURL,
		AvatarURL:   b.avatarURL,
	})
	if err != nil {
		b.state = StateUninitialized
		return fmt.Errorf("failed to create bot: %w", err)
	}

	b.botID = info.BotID
	b.owned = true
	b.state = StateActive
	b.logger = b.logger.With("bot_id", b.botID)
	b.logger.Info("Created bot", "name", b.name, "group_id", b.groupID)
	return nil
}

// ID returns the bot identity.
func (b *Bot) ID() string { return b.botID }

// GroupID returns the group the bot belongs to, when known.
func (b *Bot) GroupID() string { return b.groupID }

// Router returns the bot's command router for handler registration at
// setup time.
func (b *Bot) Router() *Router { return b.router }

// State returns the current lifecycle state.
func (b *Bot) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Owned reports whether the identity was auto-created by this process.
func (b *Bot) Owned() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owned
}

// ProcessMessage handles one raw webhook payload: best-effort history
// persistence, parsing, and dispatch. Handler and persistence failures
// are logged, never returned; the webhook response path cannot fail
// here.
func (b *Bot) ProcessMessage(ctx context.Context, raw map[string]any) {
	if b.store != nil {
		if err := b.store.SaveReceived(ctx, raw); err != nil {
			b.logger.WarnContext(ctx, "Failed to store received message", "error", err)
		}
	}

	msg := message.Parse(raw)
	b.router.Dispatch(ctx, NewContext(msg, b))
}

// SendMessage posts a text message as the bot and best-effort records
// it in history. Send failures are returned to the caller.
func (b *Bot) SendMessage(ctx context.Context, text string) (*groupme.APIResponse, error) {
	return b.send(ctx, text, "", nil)
}

// SendImage posts a text message with an attached image.
func (b *Bot) SendImage(ctx context.Context, text, imageURL string) (*groupme.APIResponse, error) {
	return b.send(ctx, text, imageURL, nil)
}

// SendWithAttachments posts a message with raw GroupMe attachments for
// advanced use.
func (b *Bot) SendWithAttachments(ctx context.Context, text string, attachments []map[string]any) (*groupme.APIResponse, error) {
	return b.send(ctx, text, "", attachments)
}

func (b *Bot) send(ctx context.Context, text, imageURL string, attachments []map[string]any) (*groupme.APIResponse, error) {
	resp, err := b.sender.PostMessage(ctx, groupme.PostMessageParams{
		BotID:       b.botID,
		Text:        text,
		PictureURL:  imageURL,
		Attachments: attachments,
	})
	if err != nil {
		b.logger.WarnContext(ctx, "Failed to send message", "error", err)
		return nil, err
	}

	if b.store != nil && b.groupID != "" {
		if saveErr := b.store.SaveSent(ctx, text, b.groupID, b.botID, imageURL); saveErr != nil {
			b.logger.WarnContext(ctx, "Failed to store sent message", "error", saveErr)
		}
	}

	return resp, nil
}

// SendLocation posts a location pin as the bot.
func (b *Bot) SendLocation(ctx context.Context, name string, lat, lng float64, text string) (*groupme.APIResponse, error) {
	resp, err := b.sender.PostLocation(ctx, groupme.PostLocationParams{
		BotID: b.botID,
		Name:  name,
		Lat:   lat,
		Lng:   lng,
		Text:  text,
	})
	if err != nil {
		b.logger.WarnContext(ctx, "Failed to send location", "error", err)
		return nil, err
	}
	return resp, nil
}

// Info fetches this bot's record from the GroupMe API.
func (b *Bot) Info(ctx context.Context) (*groupme.BotInfo, error) {
	bots, err := b.sender.ListBots(ctx)
	if err != nil {
		return nil, err
	}
	for i := range bots {
		if bots[i].BotID == b.botID {
			return &bots[i], nil
		}
	}
	return nil, fmt.Errorf("bot %s not found in account bot list", b.botID)
}

// ListGroups lists all groups the API key's user belongs to, which is
// handy for finding a group_id.
func (b *Bot) ListGroups(ctx context.Context) ([]groupme.Group, error) {
	return b.sender.ListGroups(ctx)
}

// RecentMessages returns up to limit messages for the bot's group from
// history, newest first, re-parsed from their stored raw payloads.
func (b *Bot) RecentMessages(ctx context.Context, limit int) ([]*message.Message, error) {
	if b.store == nil {
		return nil, fmt.Errorf("storage not enabled")
	}

	payloads, err := b.store.GetRecent(ctx, b.groupID, limit)
	if err != nil {
		return nil, err
	}

	msgs := make([]*message.Message, 0, len(payloads))
	for _, payload := range payloads {
		msgs = append(msgs, message.Parse(payload))
	}
	return msgs, nil
}

// Destroy destroys an identity this process owns. On any other state
// (externally supplied, already destroyed) it logs a warning, performs
// no network call, and returns nil. A failed destroy call leaves the
// state unchanged and returns the sender's error.
func (b *Bot) Destroy(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.owned || b.state != StateActive {
		b.logger.WarnContext(ctx, "Destroy is a no-op for this bot",
			"owned", b.owned, "state", b.state.String())
		return nil
	}

	if err := b.sender.DestroyBot(ctx, b.botID); err != nil {
		return fmt.Errorf("failed to destroy bot: %w", err)
	}

	b.state = StateDestroyed
	b.logger.InfoContext(ctx, "Destroyed bot")
	return nil
}

// Close is the process-exit finalizer for owned identities. It runs at
// most once, destroys the identity if this process still owns it, and
// only ever logs failures so shutdown is never blocked.
func (b *Bot) Close(ctx context.Context) {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		owned, state := b.owned, b.state
		b.mu.Unlock()

		if !owned || state != StateActive {
			return
		}

		if err := b.Destroy(ctx); err != nil {
			b.logger.WarnContext(ctx, "Failed to destroy bot during shutdown", "error", err)
		}
	})
}
