package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg         config
		sessionID   string
		historyFile string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session-id",
			Aliases:     []string{"s"},
			Usage:       "Session to continue. A new one is created when empty",
			Sources:     cli.EnvVars("KOSTBOT_SESSION_ID"),
			Destination: &sessionID,
		},
		&cli.StringFlag{
			Name:        "history-file",
			Usage:       "File keeping the input history of the prompt",
			Sources:     cli.EnvVars("KOSTBOT_HISTORY_FILE"),
			Destination: &historyFile,
		},
	}
	flags = append(flags, engineCommandFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Talk to the chatbot in the terminal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
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

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			ctx = logging.WithSession(ctx, sessionID, "")

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				HistoryFile:     historyFile,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to create prompt")
			}
			defer rl.Close()

			w := rl.Stdout()
			fmt.Fprintf(w, "Chat session %s started. Type 'exit' to quit.\n", sessionID)

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "exit" || message == "quit" {
					break
				}
				if message == "" {
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
				sp.Suffix = " mengetik..."
				sp.Start()
				reply, err := e.chat.Chat(ctx, sessionID, message)
				sp.Stop()

				if err != nil {
					logging.From(ctx).Error("failed to answer message", "error", err)
					fmt.Fprintln(w, "Maaf, sistem lagi bermasalah. Coba lagi sebentar ya.")
					continue
				}
				fmt.Fprintf(w, "%s\n", reply.Reply)
			}

			fmt.Fprintf(w, "\nChat session completed\n")
			return nil
		},
	}
}
