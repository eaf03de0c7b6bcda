package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"afval-classifier/api/internal/bootstrap"
	"afval-classifier/api/internal/config"
	"afval-classifier/api/internal/handle"
	"afval-classifier/api/internal/httpserver"
)

func main() {
	if err := run(); err != nil {
		slog.Error("classifier stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.NewRuntime(ctx, cfg, "afval-classifier")
	if err != nil {
		return err
	}
	defer rt.Close()

	opts := []handle.Option{handle.WithTimeout(cfg.RequestTimeout), handle.WithLogger(rt.Logger)}
	if rt.History != nil {
		opts = append(opts, handle.WithHistory(rt.History))
	}
	h := handle.New(rt.Service, rt.Settings, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(gctx, ":"+cfg.Port, httpserver.NewRouter(h, rt.Logger), rt.Logger)
	})
	g.Go(func() error { return rt.PurgeLoop(gctx) })
	return g.Wait()
}
