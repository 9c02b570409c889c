package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/memorymatch/cmd/memorymatch/shared"
	"github.com/lox/memorymatch/internal/prompt"
	"github.com/lox/memorymatch/internal/randutil"
	"github.com/lox/memorymatch/internal/server"
	"github.com/lox/memorymatch/internal/session"
)

// ServeCmd serves the browser client.
type ServeCmd struct {
	Addr          string `help:"Listen address (overrides server.address and server.port)"`
	AllowedOrigin string `help:"Only accept websockets from this Origin"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, err := g.logger(os.Stderr, cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	addr := cfg.ServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}
	origin := cfg.Server.AllowedOrigin
	if c.AllowedOrigin != "" {
		origin = c.AllowedOrigin
	}

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Each connection shuffles from its own source derived from the base seed.
	base := g.seed(logger)
	var n atomic.Int64
	factory := func(ui prompt.UI) *session.Controller {
		return a.newController(ui, randutil.New(base+n.Add(1)))
	}

	srv := server.NewServer(a.ledger, logger,
		server.WithControllerFactory(factory),
		server.WithAllowedOrigin(origin),
	)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting memorymatch server",
		"address", addr,
		"storage", cfg.Storage.Backend,
		"allowed_origin", origin,
		"version", version)

	ctx := shared.SetupSignalHandler(logger)
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		// Websockets are hijacked, so Shutdown does not wait for them.
		_ = srv.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
