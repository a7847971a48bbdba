package bot

import (
	"context"

	"github.com/edgard/boteco/internal/groupme"
)

// Sender is the outbound network boundary: the GroupMe operations the
// bot needs for identity lifecycle and message delivery. It is
// implemented by *groupme.Client and by test fakes.
type Sender interface {
	CreateBot(ctx context.Context, params groupme.CreateBotParams) (*groupme.BotInfo, error)
	DestroyBot(ctx context.Context, botID string) error
	PostMessage(ctx context.Context, params groupme.PostMessageParams) (*groupme.APIResponse, error)
	PostLocation(ctx context.Context, params groupme.PostLocationParams) (*groupme.APIResponse, error)
	ListBots(ctx context.Context) ([]groupme.BotInfo, error)
	ListGroups(ctx context.Context) ([]groupme.Group, error)
}
