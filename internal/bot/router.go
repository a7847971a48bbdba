package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// Handler processes a message that matched no command route.
type Handler func(ctx context.Context, mc *Context) error

// CommandHandler processes a command message. args is the message text
// with the matched prefix stripped and surrounding whitespace trimmed.
type CommandHandler func(ctx context.Context, mc *Context, args string) error

// UnknownCommandHandler processes a message that starts with a command
// marker but matched no registered route. It receives the full text.
type UnknownCommandHandler func(ctx context.Context, mc *Context, text string) error

type commandRoute struct {
	prefix  string
	handler CommandHandler
}

type asyncCommandRoute struct {
	prefix     string
	handler    CommandHandler
	ackMessage string
}

// Router holds the ordered command routes and generic handlers for a
// bot and dispatches each inbound message to at most one command
// handler. Registration happens once at setup time; after that the
// router is read-only and Dispatch is safe to call concurrently
// without locking.
//
// Matching is first-match-by-registration-order, not longest-prefix:
// with "/x" registered before "/xy", a "/xy ..." message matches "/x".
type Router struct {
	logger        *slog.Logger
	generic       []Handler
	commands      []commandRoute
	asyncCommands []asyncCommandRoute
	unknown       UnknownCommandHandler
}

// NewRouter creates an empty router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger.With("component", "router")}
}

// OnMessage registers a generic handler. Generic handlers run, in
// registration order, for every message that reaches no command route.
func (r *Router) OnMessage(handler Handler) {
	r.generic = append(r.generic, handler)
}

// Command registers a synchronous command handler for a literal text
// prefix (e.g. "/ping", "!help").
func (r *Router) Command(prefix string, handler CommandHandler) {
	r.commands = append(r.commands, commandRoute{prefix: prefix, handler: handler})
}

// AsyncCommand registers a command handler that runs on its own
// goroutine; Dispatch returns without waiting for it. If ackMessage is
// non-empty it is sent synchronously before the handler starts.
//
// There is no bound on the number of concurrently running async
// handlers and no queueing or backpressure; hosts that need a cap must
// impose it in their handlers.
func (r *Router) AsyncCommand(prefix string, handler CommandHandler, ackMessage string) {
	r.asyncCommands = append(r.asyncCommands, asyncCommandRoute{
		prefix:     prefix,
		handler:    handler,
		ackMessage: ackMessage,
	})
}

// OnUnknownCommand registers the fallback for messages that start with
// a command marker ("/" or "!") but match no route. At most one is
// kept; re-registering replaces it.
func (r *Router) OnUnknownCommand(handler UnknownCommandHandler) {
	r.unknown = handler
}

// Dispatch routes one message. At most one command handler (sync or
// async) runs per message; generic handlers fan out with each failure
// isolated. Handler failures are logged and never propagate.
func (r *Router) Dispatch(ctx context.Context, mc *Context) {
	msg := mc.Message

	// Skip bot senders to prevent reply loops between bots.
	if msg.IsFromBot() {
		r.logger.DebugContext(ctx, "Skipping message from bot sender", "message_id", msg.ID)
		return
	}

	// No text: generic handlers may still want attachments.
	if msg.Text == "" {
		r.fanOutGeneric(ctx, mc)
		return
	}

	for _, route := range r.asyncCommands {
		if !strings.HasPrefix(msg.Text, route.prefix) {
			continue
		}
		args := strings.TrimSpace(strings.TrimPrefix(msg.Text, route.prefix))

		if route.ackMessage != "" {
			if err := mc.Reply(ctx, route.ackMessage); err != nil {
				r.logger.WarnContext(ctx, "Failed to send ack message", "prefix", route.prefix, "error", err)
			}
		}

		// The handler outlives the webhook request, so detach it from
		// the request's cancellation.
		handlerCtx := context.WithoutCancel(ctx)
		go r.invoke(handlerCtx, "async command", route.prefix, func() error {
			return route.handler(handlerCtx, mc, args)
		})
		return
	}

	for _, route := range r.commands {
		if !strings.HasPrefix(msg.Text, route.prefix) {
			continue
		}
		args := strings.TrimSpace(strings.TrimPrefix(msg.Text, route.prefix))
		r.invoke(ctx, "command", route.prefix, func() error {
			return route.handler(ctx, mc, args)
		})
		return
	}

	if strings.HasPrefix(msg.Text, "/") || strings.HasPrefix(msg.Text, "!") {
		if r.unknown != nil {
			text := msg.Text
			r.invoke(ctx, "unknown command handler", text, func() error {
				return r.unknown(ctx, mc, text)
			})
			return
		}
		// No fallback registered: fall through to generic handlers.
	}

	r.fanOutGeneric(ctx, mc)
}

// fanOutGeneric invokes every generic handler in registration order,
// isolating each failure so one failing handler never prevents its
// siblings from running.
func (r *Router) fanOutGeneric(ctx context.Context, mc *Context) {
	for i, handler := range r.generic {
		handler := handler
		r.invoke(ctx, "handler", "generic_"+strconv.Itoa(i), func() error {
			return handler(ctx, mc)
		})
	}
}

// invoke runs one handler, containing both error returns and panics at
// the dispatch boundary.
func (r *Router) invoke(ctx context.Context, kind, name string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "Handler panicked", "kind", kind, "name", name, "panic", rec)
		}
	}()

	if err := fn(); err != nil {
		r.logger.ErrorContext(ctx, "Handler failed", "kind", kind, "name", name, "error", err)
	}
}
