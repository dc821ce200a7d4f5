package cli_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/sabrinaskaa/chatbot-binara/pkg/cli"
	"github.com/sabrinaskaa/chatbot-binara/pkg/repository"
)

func TestSeedCommand(t *testing.T) {
	ctx := context.Background()
	dsn := "sqlite:" + filepath.Join(t.TempDir(), "kost.db")

	gt.True(t, cli.Run(ctx, []string{"kostbot", "seed", "--db", dsn}) == nil)

	repo, err := repository.New(ctx, dsn)
	gt.NoError(t, err)
	defer repo.Close()

	rooms, err := repo.ListAvailableRooms(ctx, nil)
	gt.NoError(t, err)
	gt.A(t, rooms).Length(2)
}

func TestSeedCommandRequiresDB(t *testing.T) {
	err := cli.Run(context.Background(), []string{"kostbot", "seed"})
	gt.True(t, err != nil)
	gt.Equal(t, err.Code, 1)
}

func TestAskRejectsUnknownBackend(t *testing.T) {
	err := cli.Run(context.Background(), []string{"kostbot", "ask", "--backend", "claude", "halo"})
	gt.True(t, err != nil)
	gt.Equal(t, err.Code, 1)
}

func TestAskFallbackNeedsBackend(t *testing.T) {
	err := cli.Run(context.Background(), []string{"kostbot", "ask", "--backend", "none", "halo"})
	gt.True(t, err != nil)
}

func TestAskWithoutBackend(t *testing.T) {
	err := cli.Run(context.Background(), []string{
		"kostbot", "ask", "--backend", "none", "--llm-fallback=false", "--log-level", "error",
		"kamar", "kosong", "dong",
	})
	gt.True(t, err == nil)
}

func TestTrainCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "model.json")
	gt.True(t, cli.Run(context.Background(), []string{"kostbot", "train", "--output", output}) == nil)

	err := cli.Run(context.Background(), []string{
		"kostbot", "ask", "--backend", "none", "--llm-fallback=false", "--intent-model", output, "--log-level", "error",
		"harga kamar berapa",
	})
	gt.True(t, err == nil)
}
