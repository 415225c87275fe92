package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/feed"
	"github.com/dmorgan81/imagine/internal/generate"
	"github.com/dmorgan81/imagine/internal/history"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/dmorgan81/imagine/internal/metrics"
	"github.com/dmorgan81/imagine/internal/page"
	"github.com/dmorgan81/imagine/internal/prompt"
	"github.com/dmorgan81/imagine/internal/store"
	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/lo"
)

var ErrPublishDisabled = errors.New("publishing requested but no bucket is configured")

type Input struct {
	Prompt         string `json:"prompt,omitempty"`
	Style          string `json:"style,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	// Size is a configured size label such as "portrait", or "WxH".
	Size   string `json:"size,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Seed   *int64 `json:"seed,omitempty"`
	// Reference is a base64 encoded image.
	Reference string `json:"reference,omitempty"`
	Random    bool   `json:"random,omitempty"`
	Publish   bool   `json:"publish,omitempty"`
}

type ErrorOutput struct {
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	Hint         string `json:"hint,omitempty"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty"`
}

type Output struct {
	Prompt         string       `json:"prompt,omitempty"`
	NegativePrompt string       `json:"negative_prompt,omitempty"`
	Style          string       `json:"style,omitempty"`
	Width          int          `json:"width,omitempty"`
	Height         int          `json:"height,omitempty"`
	Seed           *int64       `json:"seed,omitempty"`
	ElapsedMs      int64        `json:"elapsed_ms,omitempty"`
	Attempts       int          `json:"attempts,omitempty"`
	ContentType    string       `json:"content_type,omitempty"`
	Image          string       `json:"image,omitempty"`
	Key            string       `json:"key,omitempty"`
	URL            string       `json:"url,omitempty"`
	Error          *ErrorOutput `json:"error,omitempty"`
}

type Generator interface {
	Generate(context.Context, generate.Request) (*generate.Result, error)
}

type FeedGenerator interface {
	Generate(context.Context) ([]byte, error)
}

type Handler struct {
	cfg        *config.Config
	randomizer *prompt.Randomizer
	generator  Generator
	history    *history.History
	metrics    *metrics.Collector

	uploader    store.Uploader
	invalidator store.Invalidator
	templator   *page.Templator
	feed        FeedGenerator
	now         func() time.Time
}

func NewHandler(i *do.Injector) (*Handler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	h := &Handler{
		cfg:        cfg,
		randomizer: do.MustInvoke[*prompt.Randomizer](i),
		generator:  do.MustInvoke[*generate.Generator](i),
		history:    do.MustInvoke[*history.History](i),
		metrics:    do.MustInvoke[*metrics.Collector](i),
		now:        time.Now,
	}
	if cfg.Publish.Enabled() {
		h.uploader = do.MustInvoke[store.Uploader](i)
		h.invalidator = do.MustInvoke[store.Invalidator](i)
		h.templator = do.MustInvoke[*page.Templator](i)
		h.feed = do.MustInvoke[*feed.Generator](i)
	}
	return h, nil
}

func (h *Handler) Handle(ctx context.Context, input Input) (Output, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("handler").With(
		"style", input.Style,
		"size", input.Size,
		"random", input.Random,
		"publish", input.Publish,
	)
	log.Info("handling lambda invocation")
	defer h.pushMetrics(ctx)

	if input.Publish && !h.cfg.Publish.Enabled() {
		return Output{}, ErrPublishDisabled
	}

	req, err := h.request(ctx, input)
	if err != nil {
		return Output{Prompt: input.Prompt, Style: input.Style, Error: errorOutput(err)}, nil
	}

	res, err := h.generator.Generate(ctx, req)
	h.history.Record(ctx, req, res, err)
	if err != nil {
		log.Warn("generation failed", "error", err)
		out := Output{
			Prompt: req.Prompt,
			Style:  req.StyleID,
			Width:  req.Width,
			Height: req.Height,
			Seed:   req.Seed,
			Error:  errorOutput(err),
		}
		return out, nil
	}

	out := Output{
		Prompt:         res.Prompt,
		NegativePrompt: res.NegativePrompt,
		Style:          res.StyleID,
		Width:          res.Width,
		Height:         res.Height,
		Seed:           res.Seed,
		ElapsedMs:      res.Elapsed.Milliseconds(),
		Attempts:       res.Attempts,
		ContentType:    res.ContentType,
	}
	if !input.Publish {
		out.Image = base64.StdEncoding.EncodeToString(res.Image)
		return out, nil
	}

	key, err := h.publish(ctx, res)
	if err != nil {
		log.Error("publishing failed", "error", err)
		return out, fmt.Errorf("publish: %w", err)
	}
	out.Key = key
	out.URL = h.url(key + ".html")
	return out, nil
}

func (h *Handler) request(ctx context.Context, input Input) (generate.Request, error) {
	req := generate.Request{
		Prompt:         input.Prompt,
		StyleID:        input.Style,
		NegativePrompt: input.NegativePrompt,
		Width:          input.Width,
		Height:         input.Height,
		Seed:           input.Seed,
	}

	if input.Random {
		p, err := h.randomizer.Randomize(ctx)
		if err != nil {
			return req, &generate.Error{Kind: generate.KindInvalidInput, Message: "no prompt to choose from", Err: err}
		}
		req.Prompt = p
	}

	switch {
	case input.Size != "":
		size, ok := h.cfg.SizeByLabel(input.Size)
		if !ok {
			return req, &generate.Error{
				Kind:    generate.KindInvalidInput,
				Message: fmt.Sprintf("unknown size %q", input.Size),
			}
		}
		req.Width, req.Height = size.Width, size.Height
	case input.Width == 0 && input.Height == 0 && len(h.cfg.Sizes) > 0:
		req.Width, req.Height = h.cfg.Sizes[0].Width, h.cfg.Sizes[0].Height
	}

	if input.Reference != "" {
		ref, err := base64.StdEncoding.DecodeString(input.Reference)
		if err != nil {
			return req, &generate.Error{Kind: generate.KindInvalidInput, Message: "reference is not valid base64", Err: err}
		}
		req.Reference = ref
	}
	return req, nil
}

func (h *Handler) publish(ctx context.Context, res *generate.Result) (string, error) {
	now := h.now().UTC()
	key := now.Format("20060102") + "-" + uuid.NewString()
	ext := "." + lo.Ternary(res.Format == "jpeg", "jpg", res.Format)
	imageKey := key + ext

	meta := map[string]string{
		"prompt":  res.Prompt,
		"style":   res.StyleID,
		"model":   res.Model,
		"size":    fmt.Sprintf("%dx%d", res.Width, res.Height),
		"created": now.Format(time.RFC3339),
	}
	if res.NegativePrompt != "" {
		meta["negative_prompt"] = res.NegativePrompt
	}
	if res.Seed != nil {
		meta["seed"] = strconv.FormatInt(*res.Seed, 10)
	}

	html, err := h.templator.Template(ctx, page.Params{
		Image:          imageKey,
		Prompt:         meta["prompt"],
		NegativePrompt: meta["negative_prompt"],
		Style:          meta["style"],
		Model:          meta["model"],
		Seed:           meta["seed"],
		Size:           meta["size"],
		Created:        meta["created"],
	})
	if err != nil {
		return "", err
	}

	err = store.UploadAll(ctx, h.uploader,
		store.UploadParams{Key: imageKey, Data: res.Image, ContentType: res.ContentType, Metadata: meta},
		store.UploadParams{Key: key + ".html", Data: html, ContentType: "text/html", Metadata: meta},
	)
	if err != nil {
		return "", err
	}

	rss, err := h.feed.Generate(ctx)
	if err != nil {
		return "", err
	}
	err = h.uploader.Upload(ctx, store.UploadParams{Key: feed.Key, Data: rss, ContentType: "application/rss+xml"})
	if err != nil {
		return "", err
	}

	paths := []string{"/" + imageKey, "/" + key + ".html", "/" + feed.Key}
	if err := h.invalidator.Invalidate(ctx, paths); err != nil {
		return "", err
	}
	return key, nil
}

func (h *Handler) url(key string) string {
	site := strings.TrimSuffix(h.cfg.Publish.SiteURL, "/")
	if site == "" {
		return ""
	}
	return site + "/" + key
}

func (h *Handler) pushMetrics(ctx context.Context) {
	if h.metrics == nil {
		return
	}
	if err := h.metrics.Push(ctx); err != nil {
		log.FromContextOrDiscard(ctx).WithGroup("handler").Warn("pushing metrics failed", "error", err)
	}
}

func errorOutput(err error) *ErrorOutput {
	var e *generate.Error
	if !errors.As(err, &e) {
		return &ErrorOutput{Kind: generate.KindTransport.String(), Message: err.Error()}
	}
	return &ErrorOutput{
		Kind:         e.Kind.String(),
		Message:      e.Message,
		Hint:         e.Hint(),
		RetryAfterMs: e.RetryAfter.Milliseconds(),
	}
}
