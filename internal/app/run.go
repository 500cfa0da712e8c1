package app

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/five82/kanjidex/internal/server"
	"github.com/five82/kanjidex/internal/ui"
)

var (
	_ ui.Backend     = (*App)(nil)
	_ server.Backend = (*App)(nil)
)

// Run boots the kanjidex TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	a, err := Open(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.RunTUI(ctx)
}

// RunTUI starts background refresh, kicks off an initial sync when a key is
// stored and blocks in the terminal UI.
func (a *App) RunTUI(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.startBackground(ctx)

	userPrefs := a.Prefs()
	return ui.Run(ui.Options{
		Context:   ctx,
		Backend:   a,
		ThemeName: userPrefs.Theme,
		Filter:    userPrefs.Filter,
	})
}

// Serve runs the local HTTP API on addr (config listen_addr when empty)
// until ctx is cancelled. ready receives the bound address.
func (a *App) Serve(ctx context.Context, addr string, ready func(net.Addr)) error {
	if addr == "" {
		addr = a.Config.ListenAddr
	}
	handler, err := server.NewHTTPHandler(server.Dependencies{
		Backend: a,
		Logger:  a.Logger.Named("http"),
	})
	if err != nil {
		return fmt.Errorf("build http handler: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.startBackground(ctx)

	return server.Serve(ctx, addr, handler, a.Logger, ready)
}

// startBackground launches the initial sync and the periodic refresher.
func (a *App) startBackground(ctx context.Context) {
	go func() {
		ran, err := a.SyncIfConfigured(ctx)
		if err != nil {
			a.Logger.Warn("initial sync failed", zap.Error(err))
			return
		}
		if ran {
			a.Logger.Info("initial sync complete")
		}
	}()
	StartRefresher(ctx, a, a.Config.SyncInterval)
}
