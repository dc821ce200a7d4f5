package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/adapter"
	"github.com/sabrinaskaa/chatbot-binara/pkg/guardrail"
	"github.com/sabrinaskaa/chatbot-binara/pkg/intent"
	"github.com/sabrinaskaa/chatbot-binara/pkg/llm"
	"github.com/sabrinaskaa/chatbot-binara/pkg/memory"
	"github.com/sabrinaskaa/chatbot-binara/pkg/metrics"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"github.com/sabrinaskaa/chatbot-binara/pkg/repository"
	"github.com/sabrinaskaa/chatbot-binara/pkg/tool"
	"github.com/sabrinaskaa/chatbot-binara/pkg/usecase/chat"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	backendGemini = "gemini"
	backendOpenAI = "openai"
	backendNone   = "none"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string
	logOutput io.Writer

	// Gateway
	db       string
	seedPath string
	kostID   string

	// Generative backend
	backend        string
	geminiAPIKey   string
	geminiProject  string
	geminiLocation string
	geminiModel    string
	openaiAPIKey   string
	openaiBaseURL  string
	openaiModel    string
	llmTimeout     time.Duration
	llmRateLimit   float64
	llmBurst       int64

	// Engine
	intentModel string
	policyPath  string
	fallback    bool

	// Memory
	sessionTTL    time.Duration
	archiveBucket string
	archivePrefix string
}

func loggingFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("KOSTBOT_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("KOSTBOT_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// gatewayFlags returns flags selecting where kost records live
func gatewayFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "db",
			Usage:       "Data source: empty for in-memory, sqlite:<path>, postgres://..., firestore://<project>/<database>",
			Sources:     cli.EnvVars("KOSTBOT_DB"),
			Destination: &cfg.db,
		},
		&cli.StringFlag{
			Name:        "seed",
			Usage:       "YAML seed file. The in-memory gateway uses the bundled seed when empty",
			Sources:     cli.EnvVars("KOSTBOT_SEED"),
			Destination: &cfg.seedPath,
		},
		&cli.StringFlag{
			Name:        "kost-id",
			Usage:       "Kost whose records answer general questions",
			Value:       string(model.DefaultKostID),
			Sources:     cli.EnvVars("KOSTBOT_KOST_ID"),
			Destination: &cfg.kostID,
		},
	}
}

// llmFlags returns flags for the generative backend
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "Generative backend (gemini, openai, none)",
			Value:       backendGemini,
			Sources:     cli.EnvVars("KOSTBOT_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini Developer API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini on Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "Base URL of an OpenAI compatible endpoint",
			Sources:     cli.EnvVars("OPENAI_BASE_URL"),
			Destination: &cfg.openaiBaseURL,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Usage:       "OpenAI model name",
			Value:       "gpt-4o-mini",
			Sources:     cli.EnvVars("OPENAI_MODEL"),
			Destination: &cfg.openaiModel,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Timeout of a single backend call",
			Value:       15 * time.Second,
			Sources:     cli.EnvVars("KOSTBOT_LLM_TIMEOUT"),
			Destination: &cfg.llmTimeout,
		},
		&cli.FloatFlag{
			Name:        "llm-rate-limit",
			Usage:       "Backend calls per second. Calls above the limit use local fallbacks. 0 disables the limit",
			Sources:     cli.EnvVars("KOSTBOT_LLM_RATE_LIMIT"),
			Destination: &cfg.llmRateLimit,
		},
		&cli.IntFlag{
			Name:        "llm-burst",
			Usage:       "Burst size of the backend rate limit",
			Value:       5,
			Sources:     cli.EnvVars("KOSTBOT_LLM_BURST"),
			Destination: &cfg.llmBurst,
		},
	}
}

// engineFlags returns flags for intent, scope and reply tiers
func engineFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "intent-model",
			Usage:       "Trained intent model file. Rules only when empty",
			Sources:     cli.EnvVars("KOSTBOT_INTENT_MODEL"),
			Destination: &cfg.intentModel,
		},
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Rego policy file evaluated after each scope decision",
			Sources:     cli.EnvVars("KOSTBOT_POLICY"),
			Destination: &cfg.policyPath,
		},
		&cli.BoolFlag{
			Name:        "llm-fallback",
			Usage:       "Use the tool router and generative answers when records cannot answer",
			Value:       true,
			Sources:     cli.EnvVars("USE_LLM_FALLBACK"),
			Destination: &cfg.fallback,
		},
	}
}

func memoryFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "Drop sessions idle for longer than this. 0 keeps them until shutdown",
			Value:       30 * time.Minute,
			Sources:     cli.EnvVars("KOSTBOT_SESSION_TTL"),
			Destination: &cfg.sessionTTL,
		},
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket for transcripts of dropped sessions",
			Sources:     cli.EnvVars("KOSTBOT_ARCHIVE_BUCKET"),
			Destination: &cfg.archiveBucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object prefix in the archive bucket",
			Sources:     cli.EnvVars("KOSTBOT_ARCHIVE_PREFIX"),
			Destination: &cfg.archivePrefix,
		},
	}
}

// engineCommandFlags are shared by every command that answers messages
func engineCommandFlags(cfg *config) []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, loggingFlags(cfg)...)
	flags = append(flags, gatewayFlags(cfg)...)
	flags = append(flags, llmFlags(cfg)...)
	flags = append(flags, engineFlags(cfg)...)
	flags = append(flags, memoryFlags(cfg)...)
	return flags
}

// setupLogger installs the configured logger as default and in ctx
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	w := cfg.logOutput
	if w == nil {
		w = os.Stdout
	}
	logger := logging.NewWithFormat(cfg.logLevel, logging.Format(cfg.logFormat), w)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newRepository opens the gateway. The in-memory gateway is seeded right away.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	repo, err := repository.New(ctx, cfg.db)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open repository")
	}

	if mem, ok := repo.(*repository.Memory); ok {
		seed, err := cfg.loadSeed()
		if err != nil {
			return nil, err
		}
		if err := mem.Seed(ctx, seed); err != nil {
			return nil, goerr.Wrap(err, "failed to seed in-memory repository")
		}
	}

	return repo, nil
}

func (cfg *config) loadSeed() (*repository.Seed, error) {
	if cfg.seedPath == "" {
		return repository.DefaultSeed(), nil
	}
	seed, err := repository.LoadSeedFile(cfg.seedPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load seed", goerr.V("path", cfg.seedPath))
	}
	return seed, nil
}

// newClient creates the guarded generative backend. It returns nil for the
// "none" backend.
func (cfg *config) newClient(ctx context.Context, m *metrics.Metrics) (llm.Client, error) {
	var client llm.Client

	switch strings.ToLower(cfg.backend) {
	case backendNone, "":
		return nil, nil

	case backendGemini:
		opts := []adapter.GeminiOption{adapter.WithGenerativeModel(cfg.geminiModel)}
		switch {
		case cfg.geminiAPIKey != "":
			opts = append(opts, adapter.WithGeminiAPIKey(cfg.geminiAPIKey))
		case cfg.geminiProject != "":
			opts = append(opts, adapter.WithVertexAI(cfg.geminiProject, cfg.geminiLocation))
		default:
			return nil, goerr.Wrap(model.ErrConfiguration, "gemini-api-key or gemini-project is required")
		}

		gemini, err := adapter.NewGemini(ctx, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gemini adapter")
		}
		client = llm.NewGemini(gemini)

	case backendOpenAI:
		if cfg.openaiAPIKey == "" {
			return nil, goerr.Wrap(model.ErrConfiguration, "openai-api-key is required")
		}
		openai, err := adapter.NewOpenAI(cfg.openaiAPIKey, cfg.openaiBaseURL)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create openai adapter")
		}
		client = llm.NewOpenAI(openai, cfg.openaiModel)

	default:
		return nil, goerr.Wrap(model.ErrConfiguration, "unsupported backend",
			goerr.V("backend", cfg.backend),
			goerr.V("supported", []string{backendGemini, backendOpenAI, backendNone}))
	}

	return llm.Guard(client,
		llm.WithTimeout(cfg.llmTimeout),
		llm.WithRateLimit(cfg.llmRateLimit, int(cfg.llmBurst)),
		llm.WithObserver(m.ObserveBackend),
	), nil
}

// newArchiver returns nil when no bucket is configured
func (cfg *config) newArchiver(ctx context.Context) (memory.Archiver, error) {
	if cfg.archiveBucket == "" {
		return nil, nil
	}

	storage, err := adapter.NewStorage(ctx, cfg.archiveBucket, cfg.archivePrefix)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage", goerr.V("bucket", cfg.archiveBucket))
	}
	return memory.NewStorageArchiver(storage), nil
}

// engine is the wired conversation engine shared by serve, chat, ask and mcp
type engine struct {
	repo   repository.Repository
	memory *memory.Store
	router *tool.Router
	chat   *chat.Orchestrator
}

func (cfg *config) newEngine(ctx context.Context, m *metrics.Metrics) (*engine, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}
	e := &engine{repo: repo}

	if err := cfg.wire(ctx, e, m); err != nil {
		if cerr := repo.Close(); cerr != nil {
			logging.From(ctx).Warn("failed to close repository", "error", cerr)
		}
		return nil, err
	}
	return e, nil
}

func (cfg *config) wire(ctx context.Context, e *engine, m *metrics.Metrics) error {
	client, err := cfg.newClient(ctx, m)
	if err != nil {
		return err
	}

	var intentOpts []intent.Option
	if cfg.intentModel != "" {
		intentOpts = append(intentOpts, intent.WithModelPath(cfg.intentModel))
	}
	classifier, err := intent.New(intentOpts...)
	if err != nil {
		return goerr.Wrap(err, "failed to create intent classifier")
	}

	guardOpts := []guardrail.Option{guardrail.WithMetrics(m)}
	if cfg.policyPath != "" {
		policy, err := guardrail.LoadPolicy(ctx, cfg.policyPath)
		if err != nil {
			return goerr.Wrap(err, "failed to load scope policy")
		}
		guardOpts = append(guardOpts, guardrail.WithPolicy(policy))
	}

	archiver, err := cfg.newArchiver(ctx)
	if err != nil {
		return err
	}
	memOpts := []memory.Option{memory.WithIdleTTL(cfg.sessionTTL)}
	if archiver != nil {
		memOpts = append(memOpts, memory.WithArchiver(archiver))
	}

	routerOpts := []tool.Option{tool.WithMetrics(m)}
	if client != nil {
		routerOpts = append(routerOpts, tool.WithClient(client))
	}

	e.memory = memory.New(memOpts...)
	e.router = tool.NewRouter(e.repo, routerOpts...)
	e.chat, err = chat.New(chat.Input{
		Memory:    e.memory,
		Guardrail: guardrail.New(client, guardOpts...),
		Intent:    classifier,
		Router:    e.router,
		Gateway:   e.repo,
		Client:    client,
		Metrics:   m,
		Fallback:  cfg.fallback,
		KostID:    model.KostID(cfg.kostID),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to create orchestrator")
	}

	logging.From(ctx).Debug("engine ready",
		"backend", cfg.backend,
		"fallback", cfg.fallback,
		"intent_model", classifier.HasModel(),
		"tools", e.router.Tools())
	return nil
}

// Close archives open sessions and releases the gateway
func (e *engine) Close(ctx context.Context) error {
	var errs []error
	if e.memory != nil {
		if err := e.memory.Close(ctx); err != nil {
			errs = append(errs, goerr.Wrap(err, "failed to close memory store"))
		}
	}
	if err := e.repo.Close(); err != nil {
		errs = append(errs, goerr.Wrap(err, "failed to close repository"))
	}
	return errors.Join(errs...)
}
