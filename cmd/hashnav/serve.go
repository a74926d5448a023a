package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/config"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/input"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/remote"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	Config   string
	Addr     string
	Input    string
	Debounce time.Duration
	Watch    bool
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a headless router with remote control",
		Long: `Run a router without a UI. Routes come from the configuration file and
are bound to pages that log their lifecycle.

The router is exposed over HTTP (/state, /navigate, /step, /capture/{digit},
/remote, /metrics) and a websocket (/ws). Keys can be read from stdin
(--input stdin) or a Linux input device (--input /dev/input/event3).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := settings(cmd)
			if err != nil {
				return err
			}

			hashnav.Init(hashnav.Options{
				LogLevel: v.GetString("log-level"),
				LogPath:  v.GetString("log-path"),
			})
			defer hashnav.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, serveOptions{
				Config:   v.GetString("config"),
				Addr:     v.GetString("addr"),
				Input:    v.GetString("input"),
				Debounce: v.GetDuration("debounce"),
				Watch:    v.GetBool("watch"),
			}, cmd.InOrStdin(), nil)
		},
	}

	cmd.Flags().String("addr", "127.0.0.1:7070", "listen address")
	cmd.Flags().String("input", "", `key source: "stdin" or an evdev device path`)
	cmd.Flags().Bool("watch", true, "apply [router] changes when the configuration file changes")
	cmd.Flags().Duration("debounce", config.DefaultDebounce, "delay before reloading a changed configuration file")

	return cmd
}

// serve runs the router, its HTTP surface, the key source and the
// configuration watcher until ctx is done or one of them fails. ready, if
// set, receives the bound listen address.
func serve(ctx context.Context, opts serveOptions, stdin io.Reader, ready func(addr string)) error {
	logger := hashnav.GetLogger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r, err := hashnav.New(hashnav.Options{
		ConfigFile:        opts.Config,
		MetricsRegisterer: reg,
		Bindings:          headless(logger),
		OnStateChange: func(state string) {
			logger.Debug("state changed", "state", state)
		},
		OnClose: func() {
			logger.Info("nothing left to step back to")
		},
	})
	if err != nil {
		return err
	}
	defer r.Close()

	srv := remote.NewServer(r, remote.ServerOptions{Gatherer: reg, Logger: logger})
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		srv.Close()
		return fmt.Errorf("listening on %s: %w", opts.Addr, err)
	}
	logger.Info("remote control listening", "addr", ln.Addr().String())

	if err := r.Start(ctx); err != nil {
		logger.Error("start failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if src := keySource(opts.Input, stdin, logger); src != nil {
		dispatcher := input.NewDispatcher(r, logger)
		g.Go(func() error {
			// Readers such as stdin do not unblock on cancellation.
			errc := make(chan error, 1)
			go func() { errc <- dispatcher.Run(ctx, src) }()
			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				return nil
			}
		})
	}

	if opts.Watch && opts.Config != "" {
		g.Go(func() error {
			return config.Watch(ctx, opts.Config, func(f config.File) {
				r.SetConfig(f.Router)
				logger.Info("configuration reloaded", "path", opts.Config)
			}, config.WatchOptions{Debounce: opts.Debounce, Logger: logger})
		})
	}

	if ready != nil {
		ready(ln.Addr().String())
	}
	return g.Wait()
}

func keySource(name string, stdin io.Reader, logger *slog.Logger) input.Source {
	switch name {
	case "":
		return nil
	case "stdin", "-":
		return input.LineSource{Reader: stdin, Logger: logger}
	default:
		return input.EvdevSource{Path: name, Logger: logger}
	}
}
