package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/gt"
	"github.com/sabrinaskaa/chatbot-binara/pkg/guardrail"
	"github.com/sabrinaskaa/chatbot-binara/pkg/intent"
	"github.com/sabrinaskaa/chatbot-binara/pkg/llm"
	"github.com/sabrinaskaa/chatbot-binara/pkg/memory"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"github.com/sabrinaskaa/chatbot-binara/pkg/repository"
	"github.com/sabrinaskaa/chatbot-binara/pkg/tool"
	"github.com/sabrinaskaa/chatbot-binara/pkg/usecase/chat"
)

// countingClient records every Generate call and answers with generate
type countingClient struct {
	mu       sync.Mutex
	prompts  []string
	generate func(ctx context.Context, prompt string) (string, error)
}

func (c *countingClient) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	if c.generate == nil {
		return "jawaban", nil
	}
	return c.generate(ctx, prompt)
}

func (c *countingClient) GenerateJSON(ctx context.Context, text string, schema *jsonschema.Schema, out any, opts ...llm.Option) error {
	return errors.New("not used")
}

func (c *countingClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

type fixture struct {
	orchestrator *chat.Orchestrator
	memory       *memory.Store
	repo         *repository.Memory
	client       *countingClient
}

type fixtureOption func(*chat.Input)

func withoutFallback() fixtureOption {
	return func(in *chat.Input) {
		in.Fallback = false
	}
}

func withGuardrail(g chat.GuardrailClassifier) fixtureOption {
	return func(in *chat.Input) {
		in.Guardrail = g
	}
}

func newFixture(t *testing.T, seed *repository.Seed, opts ...fixtureOption) *fixture {
	repo := repository.NewMemory()
	if seed != nil {
		gt.NoError(t, repo.Seed(context.Background(), seed))
	}

	client := &countingClient{}
	store := memory.New()
	classifier, err := intent.New()
	gt.NoError(t, err)

	input := chat.Input{
		Memory:    store,
		Guardrail: guardrail.New(nil),
		Intent:    classifier,
		Router:    tool.NewRouter(repo, tool.WithClient(client)),
		Gateway:   repo,
		Client:    client,
		Fallback:  true,
	}
	for _, opt := range opts {
		opt(&input)
	}

	o, err := chat.New(input)
	gt.NoError(t, err)

	return &fixture{orchestrator: o, memory: store, repo: repo, client: client}
}

func TestPolicyConstants(t *testing.T) {
	gt.Equal(t, chat.AvailabilityThreshold, 0.35)
	gt.Equal(t, chat.PriceThreshold, 0.55)
	gt.Equal(t, chat.ToolThreshold, 0.55)
	gt.Equal(t, chat.ContextTurns, 6)
	gt.Equal(t, memory.MaxTurns, 10)
	gt.Equal(t, tool.MaxListedRooms, 10)
}

func TestAvailabilityWithEmptyRooms(t *testing.T) {
	f := newFixture(t, nil)

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "kamar kosong dong")
	gt.NoError(t, err)
	gt.Equal(t, reply.Reply, "Saat ini belum ada kamar kosong.")
	gt.Equal(t, reply.Intent, model.IntentCheckAvailability)
	gt.Equal(t, f.client.calls(), 0)

	turns := f.memory.Get("s1").Turns
	gt.A(t, turns).Length(2)
	gt.Equal(t, turns[1].Role, model.RoleBot)
}

func TestAvailabilityListsRooms(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "Masih ada kamar kosong?")
	gt.NoError(t, err)
	gt.Equal(t, reply.Reply, "Kamar kosong yang tersedia:\n- A1 (single) Rp900000/bulan\n- B1 (sharing) Rp1200000/bulan")
	gt.Equal(t, f.client.calls(), 0)
}

func TestOutOfScope(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "siapa presiden sekarang")
	gt.NoError(t, err)
	gt.Equal(t, reply.Reply, chat.RedirectReply)
	gt.Equal(t, reply.Intent, model.IntentOutOfScope)
	gt.Equal(t, f.client.calls(), 0)

	turns := f.memory.Get("s1").Turns
	gt.A(t, turns).Length(2)
	gt.Equal(t, turns[0].Text, "siapa presiden sekarang")
	gt.Equal(t, turns[1].Text, chat.RedirectReply)
}

func TestOutOfScopeBeforeGrounded(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())

	// Mentions an available room but also a denied keyword
	reply, err := f.orchestrator.Chat(context.Background(), "s1", "kamar kosong buat main game")
	gt.NoError(t, err)
	gt.Equal(t, reply.Reply, chat.RedirectReply)
}

func TestPriceRange(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "berapa harga sewanya")
	gt.NoError(t, err)
	gt.Equal(t, reply.Intent, model.IntentAskPrice)
	gt.Equal(t, reply.Reply, "Harga kamar yang tersedia mulai Rp900000 sampai Rp1200000/bulan.\n- sharing: mulai Rp1200000/bulan\n- single: mulai Rp900000/bulan")
	gt.Equal(t, f.client.calls(), 0)
}

func TestPriceWithoutRooms(t *testing.T) {
	f := newFixture(t, nil)

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "harga kamar berapa")
	gt.NoError(t, err)
	gt.Equal(t, reply.Reply, chat.PriceHintReply)
}

func TestToolTierCreateTicketUnknownRoom(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())
	f.client.generate = func(ctx context.Context, prompt string) (string, error) {
		return `{"tool":"create_ticket","room_code":"Z9","description":"AC rusak"}`, nil
	}

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "komplain AC rusak di kamar Z9")
	gt.NoError(t, err)
	gt.Equal(t, reply.Intent, model.IntentCreateTicket)
	gt.Equal(t, reply.Reply, "Kamar Z9 nggak ketemu. Pastikan formatnya bener (A1, B2, dll).")
	gt.A(t, f.repo.Tickets()).Length(0)
	gt.Equal(t, f.client.calls(), 1)
}

func TestToolTierCheckUnpaid(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())
	f.client.generate = func(ctx context.Context, prompt string) (string, error) {
		return `{"tool":"check_unpaid","phone":"081234567890"}`, nil
	}

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "cek tunggakan nomor 081234567890")
	gt.NoError(t, err)
	gt.Equal(t, reply.Reply, "Tunggakan Andi:\n- 2026-01-01 Rp850000")
}

func TestToolTierLowConfidenceNone(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())
	f.client.generate = func(ctx context.Context, prompt string) (string, error) {
		return `{"tool":"none","answer":"Halo juga! Ada yang bisa dibantu?"}`, nil
	}

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "halo kak")
	gt.NoError(t, err)
	gt.Equal(t, reply.Intent, model.IntentGeneral)
	gt.Equal(t, reply.Reply, "Halo juga! Ada yang bisa dibantu?")
}

func TestToolTierBadVisitDate(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())
	f.client.generate = func(ctx context.Context, prompt string) (string, error) {
		return `{"tool":"create_visit","name":"Sabrina","phone":"0899","preferred_date":"2025-13-40"}`, nil
	}

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "mau survey tanggal 40")
	gt.NoError(t, err)
	gt.Equal(t, reply.Reply, "Tool error (create_visit): InvalidArgument: preferred_date must be YYYY-MM-DD")
	gt.A(t, f.repo.Visits()).Length(0)
}

func TestFallbackDisabled(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed(), withoutFallback())

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "mau booking survey")
	gt.NoError(t, err)
	gt.Equal(t, reply.Reply, chat.NotUnderstoodReply)
	gt.Equal(t, f.client.calls(), 0)
}

func TestGenerativeWithContext(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())
	f.client.generate = func(ctx context.Context, prompt string) (string, error) {
		return "Alamatnya di Jl. Kaliurang KM 5 No. 12.", nil
	}

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "alamat kost dimana")
	gt.NoError(t, err)
	gt.Equal(t, reply.Intent, model.IntentAskLocation)
	gt.Equal(t, reply.Reply, "Alamatnya di Jl. Kaliurang KM 5 No. 12.")

	gt.Equal(t, f.client.calls(), 1)
	prompt := f.client.prompts[0]
	gt.S(t, prompt).Contains("CONTEXT (JSON):")
	gt.S(t, prompt).Contains("Kost Binara")
	gt.S(t, prompt).Contains("User: alamat kost dimana")
}

func TestGenerativeUnavailableRendersContext(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())
	f.client.generate = func(ctx context.Context, prompt string) (string, error) {
		return "", llm.ErrUnavailable
	}

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "lokasi kost nya")
	gt.NoError(t, err)
	gt.S(t, reply.Reply).Contains("**Kost Binara**")
	gt.S(t, reply.Reply).Contains("Alamat: Jl. Kaliurang KM 5 No. 12, Sleman, Yogyakarta")
	gt.A(t, f.memory.Get("s1").Turns).Length(2)
}

func TestGenerativeFailureApology(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())
	f.client.generate = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("internal error")
	}

	reply, err := f.orchestrator.Chat(context.Background(), "s1", "lokasi kost nya")
	gt.NoError(t, err)
	gt.Equal(t, reply.Reply, chat.ApologyReply)
	gt.A(t, f.memory.Get("s1").Turns).Length(2)
}

func TestCallerCancelled(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())
	ctx, cancel := context.WithCancel(context.Background())
	f.client.generate = func(ctx context.Context, prompt string) (string, error) {
		cancel()
		return "", ctx.Err()
	}

	reply, err := f.orchestrator.Chat(ctx, "s1", "lokasi kost nya")
	gt.NoError(t, err)
	gt.S(t, reply.Reply).Contains("**Kost Binara**")

	// Only the user turn: the reply was never delivered
	turns := f.memory.Get("s1").Turns
	gt.A(t, turns).Length(1)
	gt.Equal(t, turns[0].Role, model.RoleUser)
}

func TestGenerativeContextWindow(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed())
	for i := 1; i <= 8; i++ {
		gt.NoError(t, f.memory.Add("s1", model.RoleUser, fmt.Sprintf("turn-%d", i)))
	}

	_, err := f.orchestrator.Chat(context.Background(), "s1", "lokasi kost nya")
	gt.NoError(t, err)

	prompt := f.client.prompts[0]
	gt.S(t, prompt).NotContains("turn-2\n")
	for i := 3; i <= 8; i++ {
		gt.S(t, prompt).Contains(fmt.Sprintf("user: turn-%d\n", i))
	}
}

type failingGuardrail struct{}

func (failingGuardrail) Classify(ctx context.Context, question string) (model.GuardrailResult, error) {
	return model.GuardrailResult{}, errors.New("permission denied")
}

func TestGuardrailErrorPropagates(t *testing.T) {
	f := newFixture(t, repository.DefaultSeed(), withGuardrail(failingGuardrail{}))

	_, err := f.orchestrator.Chat(context.Background(), "s1", "halo")
	gt.Error(t, err)

	// The user turn is recorded, no bot turn
	gt.A(t, f.memory.Get("s1").Turns).Length(1)
}

func TestMemoryCapAcrossChats(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < 8; i++ {
		_, err := f.orchestrator.Chat(context.Background(), "s1", "kamar kosong?")
		gt.NoError(t, err)
	}
	gt.A(t, f.memory.Get("s1").Turns).Length(memory.MaxTurns)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := chat.New(chat.Input{})
	gt.True(t, errors.Is(err, model.ErrConfiguration))

	repo := repository.NewMemory()
	classifier, err := intent.New()
	gt.NoError(t, err)

	_, err = chat.New(chat.Input{
		Memory:    memory.New(),
		Guardrail: guardrail.New(nil),
		Intent:    classifier,
		Router:    tool.NewRouter(repo),
		Gateway:   repo,
		Fallback:  true,
	})
	gt.True(t, errors.Is(err, model.ErrConfiguration))
}
