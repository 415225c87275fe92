package creds

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(_ context.Context, path string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.values[path], nil
}

func (f *fakeFetcher) FetchAll(context.Context, string) ([]string, error) {
	return nil, errors.New("not used")
}

func TestEnvProvider(t *testing.T) {
	env := map[string]string{"HUGGINGFACE_TOKEN": " hf_123 ", "EMPTY": "  "}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	tok, err := (&EnvProvider{Key: "HUGGINGFACE_TOKEN", Lookup: lookup}).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hf_123", tok)

	_, err = (&EnvProvider{Key: "EMPTY", Lookup: lookup}).Token(context.Background())
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = (&EnvProvider{Key: "UNSET", Lookup: lookup}).Token(context.Background())
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.ErrorContains(t, err, "UNSET")
}

func TestParameterStoreProvider(t *testing.T) {
	t.Run("caches a successful fetch", func(t *testing.T) {
		f := &fakeFetcher{values: map[string]string{"/hf": "hf_abc"}}
		p := &ParameterStoreProvider{Fetcher: f, Path: "/hf"}
		for i := 0; i < 3; i++ {
			tok, err := p.Token(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "hf_abc", tok)
		}
		assert.Equal(t, 1, f.calls)
	})

	t.Run("fetch failure is missing token", func(t *testing.T) {
		boom := errors.New("access denied")
		f := &fakeFetcher{err: boom}
		p := &ParameterStoreProvider{Fetcher: f, Path: "/hf"}
		_, err := p.Token(context.Background())
		assert.ErrorIs(t, err, ErrMissingToken)
		assert.ErrorIs(t, err, boom)

		_, _ = p.Token(context.Background())
		assert.Equal(t, 2, f.calls)
	})

	t.Run("empty parameter", func(t *testing.T) {
		p := &ParameterStoreProvider{Fetcher: &fakeFetcher{values: map[string]string{}}, Path: "/hf"}
		_, err := p.Token(context.Background())
		assert.ErrorIs(t, err, ErrMissingToken)
	})
}

func TestStatic(t *testing.T) {
	tok, err := Static("hf_x").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hf_x", tok)

	_, err = Static("").Token(context.Background())
	assert.ErrorIs(t, err, ErrMissingToken)
}
