package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	// Values in .env never override the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Default().Warn("failed to load .env", "error", err)
	}

	cmd := &cli.Command{
		Name:  "kostbot",
		Usage: "Chatbot for kost tenants and prospective tenants",
		Commands: []*cli.Command{
			serveCommand(),
			chatCommand(),
			askCommand(),
			trainCommand(),
			mcpCommand(),
			seedCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
