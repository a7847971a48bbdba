package bot

import (
	"context"

	"github.com/edgard/boteco/internal/groupme"
	"github.com/edgard/boteco/internal/message"
)

// Replier sends messages on behalf of the bot that received a message.
// *Bot implements it.
type Replier interface {
	SendMessage(ctx context.Context, text string) (*groupme.APIResponse, error)
	SendImage(ctx context.Context, text, imageURL string) (*groupme.APIResponse, error)
	SendLocation(ctx context.Context, name string, lat, lng float64, text string) (*groupme.APIResponse, error)
}

// Context bundles a parsed message with the reply capability of the
// bot it was delivered to. It is built once per dispatch and never
// mutated; handlers receive it instead of a mutable message entity.
type Context struct {
	Message *message.Message

	replier Replier
}

// NewContext creates a handler context for one dispatched message.
func NewContext(msg *message.Message, replier Replier) *Context {
	return &Context{Message: msg, replier: replier}
}

// Reply sends a text message back to the group the message came from.
func (c *Context) Reply(ctx context.Context, text string) error {
	_, err := c.replier.SendMessage(ctx, text)
	return err
}

// ReplyImage sends a text message with an attached image.
func (c *Context) ReplyImage(ctx context.Context, text, imageURL string) error {
	_, err := c.replier.SendImage(ctx, text, imageURL)
	return err
}

// ReplyLocation sends a location pin back to the group.
func (c *Context) ReplyLocation(ctx context.Context, name string, lat, lng float64, text string) error {
	_, err := c.replier.SendLocation(ctx, name, lat, lng, text)
	return err
}
