package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/intent"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func trainCommand() *cli.Command {
	var (
		cfg     config
		data    string
		output  string
		verbose bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "data",
			Aliases:     []string{"d"},
			Usage:       "YAML training examples per label. The bundled dataset is used when empty",
			Sources:     cli.EnvVars("KOSTBOT_INTENT_DATA"),
			Destination: &data,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Path of the trained model",
			Value:       "intent_model.json",
			Sources:     cli.EnvVars("KOSTBOT_INTENT_MODEL"),
			Destination: &output,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Usage:       "Print the accuracy of the model on its own training data",
			Destination: &verbose,
		},
	}
	flags = append(flags, loggingFlags(&cfg)...)

	return &cli.Command{
		Name:  "train",
		Usage: "Train the intent model",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			ds := intent.DefaultDataset()
			if data != "" {
				loaded, err := intent.LoadDataset(data)
				if err != nil {
					return goerr.Wrap(err, "failed to load dataset", goerr.V("path", data))
				}
				ds = loaded
			}

			m, err := intent.Train(ds)
			if err != nil {
				return goerr.Wrap(err, "failed to train intent model")
			}
			if err := m.Save(output); err != nil {
				return err
			}
			logging.From(ctx).Info("intent model saved",
				"path", output,
				"labels", len(m.Labels),
				"vocabulary", m.VocabSize)

			if verbose {
				printAccuracy(c, m, ds)
			}
			return nil
		},
	}
}

func printAccuracy(c *cli.Command, m *intent.Model, ds intent.Dataset) {
	labels := make([]string, 0, len(ds))
	for label := range ds {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	w := c.Root().Writer
	for _, label := range labels {
		examples := ds[label]
		hit := 0
		for _, text := range examples {
			if got, _ := m.Predict(text); got == label {
				hit++
			}
		}
		fmt.Fprintf(w, "%-20s %3d/%-3d\n", label, hit, len(examples))
	}
}
