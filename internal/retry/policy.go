package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/image"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/samber/lo"
)

// Policy drives one generation request through its attempts. It holds no
// state between calls to Do.
type Policy struct {
	MaxAttempts        int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	LoadingDelay       time.Duration
	ServerErrorDelay   time.Duration
	ServerErrorRetries int

	// Rand returns values in [0, 1) for jitter; nil disables jitter.
	Rand func() float64
	// Sleep must return early with ctx's error when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called once per scheduled retry, before sleeping.
	OnRetry func(ctx context.Context, attempt int, v Verdict, delay time.Duration)
}

func NewPolicy(cfg config.RetryConfig) *Policy {
	return &Policy{
		MaxAttempts:        cfg.MaxAttempts,
		BaseDelay:          cfg.BaseDelay,
		MaxDelay:           cfg.MaxDelay,
		LoadingDelay:       cfg.LoadingDelay,
		ServerErrorDelay:   cfg.ServerErrorDelay,
		ServerErrorRetries: cfg.ServerErrorRetries,
		Rand:               rand.Float64,
		Sleep:              Sleep,
	}
}

// Failure is the terminal state of a request that did not succeed.
type Failure struct {
	Verdict
	Attempts int
	Status   int
	Detail   string
	Err      error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s after %d attempt(s)", f.Class, f.Attempts)
	if f.Status != 0 {
		msg += fmt.Sprintf(": status %d", f.Status)
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Do calls fn until it succeeds, fails terminally, or runs out of attempts.
// fn must perform exactly one attempt.
func (p *Policy) Do(ctx context.Context, fn func(context.Context) (*image.Response, error)) (*image.Response, int, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("retry")
	maxAttempts := max(p.MaxAttempts, 1)

	var st state
	for attempt := 1; ; attempt++ {
		resp, err := fn(ctx)
		v := Classify(resp, err)
		if v.Class == ClassOK {
			return resp, attempt, nil
		}

		fail := &Failure{Verdict: v, Attempts: attempt, Detail: detail(resp), Err: err}
		if resp != nil {
			fail.Status = resp.StatusCode
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			fail.Err = lo.Ternary(err != nil, err, ctxErr)
			return nil, attempt, fail
		}

		delay, again := p.next(attempt, v, &st)
		if !again || attempt >= maxAttempts {
			log.Warn("giving up", "class", v.Class.String(), "attempts", attempt, "status", fail.Status)
			return nil, attempt, fail
		}

		log.Info("retrying", "class", v.Class.String(), "attempt", attempt, "delay", delay.String())
		if p.OnRetry != nil {
			p.OnRetry(ctx, attempt, v, delay)
		}
		if err := p.sleep(ctx, delay); err != nil {
			fail.Err = err
			return nil, attempt, fail
		}
	}
}

type state struct {
	loadingWait   time.Duration
	serverRetries int
}

func (p *Policy) next(attempt int, v Verdict, st *state) (time.Duration, bool) {
	switch v.Class {
	case ClassModelLoading:
		d := lo.Ternary(v.RetryAfter > 0, v.RetryAfter, p.LoadingDelay)
		d = max(d, st.loadingWait)
		if p.MaxDelay > 0 {
			d = min(d, p.MaxDelay)
		}
		st.loadingWait = d
		return d, true
	case ClassRateLimited:
		d := Backoff(attempt, p.BaseDelay, p.MaxDelay, p.Rand)
		if v.RetryAfter > d {
			d = lo.Ternary(p.MaxDelay > 0, min(v.RetryAfter, p.MaxDelay), v.RetryAfter)
		}
		return d, true
	case ClassTransport:
		return Backoff(attempt, p.BaseDelay, p.MaxDelay, p.Rand), true
	case ClassServer:
		if st.serverRetries >= p.ServerErrorRetries {
			return 0, false
		}
		st.serverRetries++
		return p.ServerErrorDelay, true
	default:
		return 0, false
	}
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}
