// Package tasks implements scheduled background tasks for the bot,
// along with their registration.
package tasks

import (
	"log/slog"

	"github.com/edgard/boteco/internal/config"
	"github.com/edgard/boteco/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
