package binding

import (
	"context"

	"github.com/nerrad567/gray-logic-miio/internal/coalesce"
	"github.com/nerrad567/gray-logic-miio/internal/loop"
)

// Logger is the logging interface bindings use. *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Env carries what every binding needs. Context bounds device operations
// started by bindings.
type Env struct {
	Loop    *loop.Loop
	Context context.Context
	Logger  Logger
	Colors  *coalesce.Scheduler
}

// NewEnv builds an Env with a colour scheduler on l.
func NewEnv(ctx context.Context, l *loop.Loop, logger Logger) Env {
	return Env{
		Loop:    l,
		Context: ctx,
		Logger:  logger,
		Colors:  coalesce.New(l),
	}
}
