package llm

import (
	"context"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/time/rate"
)

// Observer receives one call per backend request
type Observer func(op string, elapsed time.Duration, err error)

type guarded struct {
	next     Client
	timeout  time.Duration
	limiter  *rate.Limiter
	observer Observer
}

type GuardOption func(*guarded)

// WithTimeout bounds every backend call. Zero disables the bound.
func WithTimeout(d time.Duration) GuardOption {
	return func(g *guarded) {
		g.timeout = d
	}
}

// WithRateLimit refuses calls above perSecond with ErrUnavailable instead of
// waiting, which sends callers to their local fallback right away.
func WithRateLimit(perSecond float64, burst int) GuardOption {
	return func(g *guarded) {
		if perSecond > 0 {
			if burst < 1 {
				burst = 1
			}
			g.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

func WithObserver(o Observer) GuardOption {
	return func(g *guarded) {
		g.observer = o
	}
}

// Guard wraps a Client with a call timeout, a rate limit and an observer
func Guard(next Client, opts ...GuardOption) Client {
	g := &guarded{next: next}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *guarded) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if g.limiter != nil && !g.limiter.Allow() {
		err := goerr.Wrap(ErrUnavailable, "local rate limit exceeded", goerr.V("op", op))
		g.observe(op, 0, err)
		return err
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	err := fn(callCtx)
	if err != nil && callCtx.Err() != nil {
		err = goerr.Wrap(ErrUnavailable, "backend call aborted",
			goerr.V("op", op),
			goerr.V("reason", callCtx.Err().Error()))
	}
	g.observe(op, time.Since(started), err)
	return err
}

func (g *guarded) observe(op string, elapsed time.Duration, err error) {
	if g.observer != nil {
		g.observer(op, elapsed, err)
	}
}

func (g *guarded) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	var text string
	err := g.run(ctx, "generate", func(ctx context.Context) error {
		var err error
		text, err = g.next.Generate(ctx, prompt, opts...)
		return err
	})
	return text, err
}

func (g *guarded) GenerateJSON(ctx context.Context, text string, schema *jsonschema.Schema, out any, opts ...Option) error {
	return g.run(ctx, "generate_json", func(ctx context.Context) error {
		return g.next.GenerateJSON(ctx, text, schema, out, opts...)
	})
}
