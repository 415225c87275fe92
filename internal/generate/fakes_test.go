package generate

import (
	"bytes"
	"context"
	stdimage "image"
	"image/color"
	"image/png"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/creds"
	"github.com/dmorgan81/imagine/internal/image"
	"github.com/dmorgan81/imagine/internal/prompt"
	"github.com/dmorgan81/imagine/internal/retry"
	"github.com/dmorgan81/imagine/internal/style"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func ok(body []byte) *image.Response {
	return &image.Response{StatusCode: 200, Header: http.Header{"Content-Type": {"image/png"}}, Body: body}
}

func status(code int, body string) *image.Response {
	return &image.Response{StatusCode: code, Header: http.Header{}, Body: []byte(body)}
}

type step struct {
	resp *image.Response
	err  error
}

// fakeTransport replays steps in order, repeating the last one.
type fakeTransport struct {
	mu       sync.Mutex
	steps    []step
	calls    int
	payloads []image.Payload
	tokens   []string
}

func (f *fakeTransport) Send(ctx context.Context, token string, p image.Payload) (*image.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.steps[min(f.calls, len(f.steps)-1)]
	f.calls++
	f.payloads = append(f.payloads, p)
	f.tokens = append(f.tokens, token)
	return s.resp, s.err
}

type sleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleeper) total() time.Duration {
	var sum time.Duration
	for _, d := range s.delays {
		sum += d
	}
	return sum
}

func testPolicy(s *sleeper) *retry.Policy {
	return &retry.Policy{
		MaxAttempts:        5,
		BaseDelay:          10 * time.Millisecond,
		MaxDelay:           80 * time.Millisecond,
		LoadingDelay:       20 * time.Millisecond,
		ServerErrorDelay:   5 * time.Millisecond,
		ServerErrorRetries: 1,
		Rand:               func() float64 { return 0.5 },
		Sleep:              s.Sleep,
	}
}

func testGenerator(t *testing.T, tr image.Transport, s *sleeper) *Generator {
	t.Helper()
	catalog, err := style.NewCatalog(
		style.Preset{ID: "anime", Label: "Anime", Suffix: "studio ghibli style"},
		style.Preset{ID: "photo", Suffix: "photorealistic", NegativePrompt: "cartoon"},
	)
	require.NoError(t, err)
	g, err := New(prompt.NewComposer(catalog), tr, creds.Static("hf_test"), testPolicy(s), Options{
		Model:        "black-forest-labs/FLUX.1-schnell",
		Sizes:        config.Default().Sizes,
		TotalTimeout: time.Minute,
	})
	require.NoError(t, err)
	return g
}

func validRequest() Request {
	return Request{Prompt: "a cat in a garden", StyleID: "anime", Width: 512, Height: 512}
}

type recordingObserver struct {
	retries  []retry.Class
	outcomes []error
	results  int
}

func (o *recordingObserver) Retry(_ context.Context, c retry.Class, _ time.Duration) {
	o.retries = append(o.retries, c)
}

func (o *recordingObserver) Outcome(_ context.Context, res *Result, err error) {
	if res != nil {
		o.results++
	}
	o.outcomes = append(o.outcomes, err)
}
