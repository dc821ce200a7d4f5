package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg       config
		sessionID string
		asJSON    bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session-id",
			Aliases:     []string{"s"},
			Usage:       "Session the message belongs to",
			Value:       "cli",
			Destination: &sessionID,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print intent and reply as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, engineCommandFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a single message and exit",
		ArgsUsage: "<message>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			message := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if message == "" {
				return goerr.Wrap(model.ErrInvalidArgument, "message is required")
			}

			ctx = cfg.setupLogger(ctx)
			e, err := cfg.newEngine(ctx, nil)
			if err != nil {
				return err
			}
			defer func() {
				if err := e.Close(context.WithoutCancel(ctx)); err != nil {
					logging.From(ctx).Warn("failed to close engine", "error", err)
				}
			}()

			reply, err := e.chat.Chat(ctx, sessionID, message)
			if err != nil {
				return goerr.Wrap(err, "failed to answer message")
			}

			w := c.Root().Writer
			if !asJSON {
				fmt.Fprintln(w, reply.Reply)
				return nil
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(reply); err != nil {
				return goerr.Wrap(err, "failed to encode reply")
			}
			return nil
		},
	}
}
