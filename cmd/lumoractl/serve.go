package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lumoracare/lumora/pkg/config"
	"github.com/lumoracare/lumora/pkg/server"
	"github.com/lumoracare/lumora/pkg/telemetry"
)

func serveCommand(ctx context.Context, argv []string, cfgPath string, streams ioStreams) error {
	set := flag.NewFlagSet("serve", flag.ContinueOnError)
	set.SetOutput(streams.err)
	configFlag := set.String("config", cfgPath, "Path to config file.")
	addr := set.String("addr", "", "Listen address (overrides config).")
	watch := set.Bool("watch", false, "Reload configuration when the file changes.")
	tracing := set.Bool("tracing", false, "Export OTLP traces (OTEL_EXPORTER_OTLP_* env).")
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: lumoractl serve [flags]")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := slog.New(slog.NewTextHandler(streams.err, nil))

	var cfg *config.Config
	if *watch {
		manager, err := config.NewManager(*configFlag, logger)
		if err != nil {
			return err
		}
		defer manager.Close()
		manager.OnChange(func(next *config.Config) {
			logger.Info("configuration changed, restart to apply backend settings",
				"provider", next.Provider, "model", next.Model)
		})
		if err := manager.Watch(ctx); err != nil {
			return err
		}
		cfg = manager.Get()
	} else {
		var err error
		cfg, err = validatedConfig(*configFlag)
		if err != nil {
			return err
		}
	}

	if *tracing {
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	backend, err := newModel(cfg)
	if err != nil {
		return err
	}
	store, err := newStore(cfg)
	if err != nil {
		return err
	}
	opts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}

	listen := cfg.Listen
	if *addr != "" {
		listen = *addr
	}

	httpServer := &http.Server{
		Addr:              listen,
		Handler:           server.New(backend, store, logger, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("lumora server listening", "addr", listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
