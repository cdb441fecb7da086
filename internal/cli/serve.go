package cli

import (
	"os/signal"
	"syscall"

	"github.com/julianstephens/streaks/internal/server"
	"github.com/julianstephens/streaks/internal/tui"
)

// ServeCmd runs the HTTP API. It holds the writer lock for its lifetime, so
// other mutating commands wait until it stops.
type ServeCmd struct {
	Listen string `help:"Address to listen on. Overrides the config file."`
}

func (c *ServeCmd) Run(ctx *Context) error {
	if c.Listen != "" {
		ctx.Config.Listen = c.Listen
	}
	if err := ctx.LoadForWrite(); err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx.Ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx.Printf("Serving %s on http://%s\n", ctx.Store.Location(), ctx.Config.Listen)
	return server.New(ctx.Config.Listen, ctx.Service).Run(runCtx)
}

// TuiCmd opens the interactive view of today's habits and tasks.
type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	if err := ctx.LoadForWrite(); err != nil {
		return err
	}
	return tui.Run(ctx.Ctx, ctx.Service, tui.WithBackups(ctx.Backups))
}
