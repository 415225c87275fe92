// Package creds supplies the HuggingFace API token. The token is never
// compiled in; it comes from the environment or from SSM Parameter Store.
package creds

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/dmorgan81/imagine/internal/param"
	"github.com/samber/do"
)

var ErrMissingToken = errors.New("no HuggingFace token configured")

type Provider interface {
	Token(context.Context) (string, error)
}

func NewProvider(i *do.Injector) (Provider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.Inference.TokenParam != "" {
		return &ParameterStoreProvider{
			Fetcher: do.MustInvoke[param.Fetcher](i),
			Path:    cfg.Inference.TokenParam,
		}, nil
	}
	return &EnvProvider{Key: config.TokenEnv}, nil
}

type EnvProvider struct {
	Key    string
	Lookup func(string) (string, bool)
}

func (p *EnvProvider) Token(context.Context) (string, error) {
	lookup := p.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(p.Key)
	if v = strings.TrimSpace(v); v == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingToken, p.Key)
	}
	return v, nil
}

// ParameterStoreProvider fetches the token once and remembers it for the life
// of the process. Failed fetches are not remembered.
type ParameterStoreProvider struct {
	Fetcher param.Fetcher
	Path    string

	mu    sync.Mutex
	token string
}

func (p *ParameterStoreProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" {
		return p.token, nil
	}

	v, err := p.Fetcher.Fetch(ctx, p.Path)
	if err != nil {
		log.FromContextOrDiscard(ctx).WithGroup("creds").Error("fetching token", "path", p.Path, "error", err)
		return "", fmt.Errorf("%w: %s: %w", ErrMissingToken, p.Path, err)
	}
	if v = strings.TrimSpace(v); v == "" {
		return "", fmt.Errorf("%w: parameter %s is empty", ErrMissingToken, p.Path)
	}
	p.token = v
	return v, nil
}

// Static is handy for tests and local runs.
type Static string

func (s Static) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrMissingToken
	}
	return string(s), nil
}
