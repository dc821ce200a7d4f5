package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/repository"
	"github.com/sabrinaskaa/chatbot-binara/pkg/service/mcp"
	"github.com/sabrinaskaa/chatbot-binara/pkg/tool"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var (
		cfg      config
		httpAddr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "http",
			Usage:       "Serve streamable HTTP on this address instead of stdio",
			Sources:     cli.EnvVars("KOSTBOT_MCP_HTTP"),
			Destination: &httpAddr,
		},
	}
	flags = append(flags, loggingFlags(&cfg)...)
	flags = append(flags, gatewayFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the kost tools as an MCP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// stdout carries the protocol in stdio mode
			cfg.logOutput = os.Stderr
			ctx = cfg.setupLogger(ctx)
			logger := logging.From(ctx)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepository(ctx, repo)

			router := tool.NewRouter(repo)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if httpAddr == "" {
				logger.Info("serving MCP on stdio", "tools", router.Tools())
				return mcp.ServeStdio(ctx, router)
			}

			httpServer := &http.Server{
				Addr:              httpAddr,
				Handler:           mcp.HTTPHandler(router),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logger.Warn("graceful shutdown failed", "error", err)
				}
			}()

			logger.Info("serving MCP over HTTP", "addr", httpAddr, "tools", router.Tools())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return goerr.Wrap(err, "failed to serve MCP over HTTP", goerr.V("addr", httpAddr))
			}
			return nil
		},
	}
}

func closeRepository(ctx context.Context, repo repository.Repository) {
	if err := repo.Close(); err != nil {
		logging.From(ctx).Warn("failed to close repository", "error", err)
	}
}
