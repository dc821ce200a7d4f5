package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sabrinaskaa/chatbot-binara/pkg/metrics"
	"github.com/sabrinaskaa/chatbot-binara/pkg/server"
	"github.com/sabrinaskaa/chatbot-binara/pkg/service/mcp"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cli.Command {
	var (
		cfg             config
		addr            string
		shutdownTimeout time.Duration
		janitorInterval time.Duration
		enableMCP       bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("KOSTBOT_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "shutdown-timeout",
			Usage:       "Time allowed for in-flight requests on shutdown",
			Value:       10 * time.Second,
			Sources:     cli.EnvVars("KOSTBOT_SHUTDOWN_TIMEOUT"),
			Destination: &shutdownTimeout,
		},
		&cli.DurationFlag{
			Name:        "janitor-interval",
			Usage:       "Interval of the idle session sweep",
			Value:       time.Minute,
			Sources:     cli.EnvVars("KOSTBOT_JANITOR_INTERVAL"),
			Destination: &janitorInterval,
		},
		&cli.BoolFlag{
			Name:        "mcp",
			Usage:       "Serve the kost tools over MCP at /mcp",
			Sources:     cli.EnvVars("KOSTBOT_MCP"),
			Destination: &enableMCP,
		},
	}
	flags = append(flags, engineCommandFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the chat API over HTTP",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			logger := logging.From(ctx)

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.NewMetrics(reg)

			e, err := cfg.newEngine(ctx, m)
			if err != nil {
				return err
			}

			opts := []server.Option{server.WithGatherer(reg)}
			if enableMCP {
				opts = append(opts, server.WithMCP(mcp.HTTPHandler(e.router)))
			}
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.New(e.chat, opts...).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e.memory.StartJanitor(ctx, janitorInterval)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("server listening", "addr", addr, "mcp", enableMCP)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "failed to serve HTTP", goerr.V("addr", addr))
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down")

				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logger.Warn("graceful shutdown failed", "error", err)
					_ = httpServer.Close()
				}
				return nil
			})

			serveErr := g.Wait()

			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := e.Close(closeCtx); err != nil {
				logger.Warn("failed to close engine", "error", err)
			}

			logger.Info("shutdown complete")
			return serveErr
		},
	}
}
