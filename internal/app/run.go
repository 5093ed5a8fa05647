package app

import (
	"context"
	"errors"
	"net"

	"golang.org/x/sync/errgroup"

	"testserver/internal/metrics"
)

// Run accepts connections on cfg.BindAddr, hands each to the session
// dispatcher, and drives the timer sweep and (if configured) the metrics
// listener alongside it. It blocks until ctx is canceled or one of the
// three fails, then shuts everything down and returns the first error
// encountered (nil on a clean, context-triggered shutdown).
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.BindAddr)
	if err != nil {
		return err
	}
	a.log.Info("app.listen", "addr", a.cfg.BindAddr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.timer.Run(gctx)
	})

	if a.cfg.MetricsAddr != "" {
		g.Go(func() error {
			if err := metrics.Serve(gctx, a.cfg.MetricsAddr); err != nil {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.acceptLoop(gctx, ln)
	})

	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// acceptLoop accepts connections until ctx is canceled, handing each to
// the session dispatcher on its own goroutine.
func (a *App) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		go a.disp.Handle(ctx, nc)
	}
}

// Entrypoint wraps LoadConfig, NewLogger, ValidateSecurityConfig, and
// Bootstrap into the single call cmd/server makes, mirroring how the
// teacher keeps its binary's main() a thin delegate to the app package.
func Entrypoint(ctx context.Context) error {
	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := ValidateSecurityConfig(cfg, log); err != nil {
		return err
	}

	a, err := Bootstrap(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}
