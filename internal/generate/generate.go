package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/creds"
	"github.com/dmorgan81/imagine/internal/image"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/dmorgan81/imagine/internal/prompt"
	"github.com/dmorgan81/imagine/internal/retry"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type Options struct {
	Model        string
	Sizes        []config.Size
	TotalTimeout time.Duration
}

// Observer sees every retry and every finished request.
type Observer interface {
	Retry(ctx context.Context, class retry.Class, delay time.Duration)
	Outcome(ctx context.Context, res *Result, err error)
}

// Generator turns a Request into exactly one of a Result or an *Error.
// It keeps no per-request state and is safe for concurrent use.
type Generator struct {
	composer  *prompt.Composer
	transport image.Transport
	creds     creds.Provider
	policy    retry.Policy
	opts      Options
	observer  Observer
}

func New(composer *prompt.Composer, transport image.Transport, provider creds.Provider, policy *retry.Policy, opts Options) (*Generator, error) {
	if composer == nil {
		return nil, errors.New("composer is required")
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	if provider == nil {
		return nil, errors.New("credential provider is required")
	}
	if policy == nil {
		return nil, errors.New("retry policy is required")
	}
	if len(opts.Sizes) == 0 {
		return nil, errors.New("at least one allowed size is required")
	}
	return &Generator{
		composer:  composer,
		transport: transport,
		creds:     provider,
		policy:    *policy,
		opts:      opts,
	}, nil
}

func NewGenerator(i *do.Injector) (*Generator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	g, err := New(
		do.MustInvoke[*prompt.Composer](i),
		do.MustInvoke[image.Transport](i),
		do.MustInvoke[creds.Provider](i),
		do.MustInvoke[*retry.Policy](i),
		Options{
			Model:        cfg.Inference.Model,
			Sizes:        cfg.Sizes,
			TotalTimeout: cfg.Retry.TotalTimeout,
		},
	)
	if err != nil {
		return nil, err
	}
	if o, err := do.Invoke[Observer](i); err == nil {
		g.observer = o
	}
	return g, nil
}

func (g *Generator) WithObserver(o Observer) *Generator {
	cp := *g
	cp.observer = o
	return &cp
}

func (g *Generator) Generate(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	log := log.FromContextOrDiscard(ctx).WithGroup("generate").With("request", req.Summary())
	log.Info("generating image")

	if g.observer != nil {
		defer func() { g.observer.Outcome(ctx, res, err) }()
	}

	if !g.allowed(req.Width, req.Height) {
		return nil, &Error{
			Kind:    KindInvalidInput,
			Message: fmt.Sprintf("size %dx%d is not one of %s", req.Width, req.Height, g.sizeList()),
		}
	}
	composed, err := g.composer.Compose(req.Prompt, req.StyleID, req.NegativePrompt)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Message: "prompt must not be empty", Err: err}
	}
	token, err := g.creds.Token(ctx)
	if err != nil {
		log.Error("no credentials", "error", err)
		return nil, &Error{Kind: KindUnauthorized, Message: "no API token available", Err: err}
	}

	if g.opts.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.TotalTimeout)
		defer cancel()
	}

	payload := image.Payload{
		Prompt:         composed.Prompt,
		NegativePrompt: composed.NegativePrompt,
		Width:          req.Width,
		Height:         req.Height,
		Seed:           req.Seed,
		Reference:      req.Reference,
	}
	policy := g.policy
	if g.observer != nil {
		policy.OnRetry = func(ctx context.Context, _ int, v retry.Verdict, delay time.Duration) {
			g.observer.Retry(ctx, v.Class, delay)
		}
	}

	resp, attempts, err := policy.Do(ctx, func(ctx context.Context) (*image.Response, error) {
		return g.transport.Send(ctx, token, payload)
	})
	if err != nil {
		e := g.failure(err)
		log.Warn("generation failed", "kind", e.Kind.String(), "attempts", attempts, "error", err)
		return nil, e
	}

	decoded, err := image.Decode(resp.Body)
	if err != nil {
		log.Error("protocol violation: success response is not an image",
			"status", resp.StatusCode, "content_type", resp.ContentType(), "bytes", len(resp.Body), "error", err)
		return nil, &Error{Kind: KindDecode, Message: "endpoint returned an undecodable body", Err: err}
	}

	res = &Result{
		Image:          resp.Body,
		ContentType:    decoded.ContentType,
		Format:         decoded.Format,
		Model:          g.opts.Model,
		Prompt:         composed.Prompt,
		NegativePrompt: composed.NegativePrompt,
		StyleID:        req.StyleID,
		Width:          req.Width,
		Height:         req.Height,
		Seed:           req.Seed,
		Elapsed:        time.Since(start),
		Attempts:       attempts,
	}
	log.Info("generated image", "attempts", attempts, "elapsed", res.Elapsed.String(), "format", decoded.Format)
	return res, nil
}

func (g *Generator) failure(err error) *Error {
	if IsCanceled(err) {
		return &Error{Kind: KindTransport, Message: "generation canceled", Err: err}
	}

	var f *retry.Failure
	if !errors.As(err, &f) {
		return &Error{Kind: KindTransport, Message: "request failed", Err: err}
	}
	msg := fmt.Sprintf("gave up after %d attempt(s)", f.Attempts)
	switch f.Class {
	case retry.ClassModelLoading:
		return &Error{
			Kind:       KindModelUnavailable,
			Message:    msg,
			RetryAfter: lo.Ternary(f.RetryAfter > 0, f.RetryAfter, g.policy.LoadingDelay),
			Err:        f,
		}
	case retry.ClassRateLimited:
		return &Error{
			Kind:       KindRateLimited,
			Message:    msg,
			RetryAfter: lo.Ternary(f.RetryAfter > 0, f.RetryAfter, g.policy.MaxDelay),
			Err:        f,
		}
	case retry.ClassUnauthorized:
		return &Error{Kind: KindUnauthorized, Message: "token rejected", Err: f}
	case retry.ClassInvalidRequest:
		return &Error{Kind: KindInvalidRequest, Message: "request rejected", Err: f}
	case retry.ClassServer:
		return &Error{Kind: KindService, Message: msg, Err: f}
	default:
		return &Error{Kind: KindTransport, Message: msg, Err: f}
	}
}

func (g *Generator) allowed(w, h int) bool {
	return lo.ContainsBy(g.opts.Sizes, func(s config.Size) bool {
		return s.Width == w && s.Height == h
	})
}

func (g *Generator) sizeList() string {
	return strings.Join(lo.Map(g.opts.Sizes, func(s config.Size, _ int) string {
		return s.String()
	}), ", ")
}

// Sizes lists the allowed sizes in configured order.
func (g *Generator) Sizes() []config.Size {
	return append([]config.Size(nil), g.opts.Sizes...)
}
