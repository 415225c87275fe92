package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/samber/do"
)

const maxResponseBytes = 32 << 20

type HuggingFaceClient struct {
	Client   *http.Client
	Endpoint string
	Model    string
	Timeout  time.Duration
	// Reference enables image-conditioned requests; when false reference
	// images are dropped.
	Reference bool
}

func NewHuggingFaceClient(i *do.Injector) (Transport, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &HuggingFaceClient{
		Client:    do.MustInvoke[*http.Client](i),
		Endpoint:  cfg.Inference.Endpoint,
		Model:     cfg.Inference.Model,
		Timeout:   cfg.Inference.Timeout,
		Reference: cfg.Inference.ReferenceImages,
	}, nil
}

type hfParameters struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Seed           *int64 `json:"seed,omitempty"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Image      string       `json:"image,omitempty"`
}

func (c *HuggingFaceClient) URL() string {
	return strings.TrimRight(c.Endpoint, "/") + "/" + strings.TrimLeft(c.Model, "/")
}

func (c *HuggingFaceClient) Send(ctx context.Context, token string, payload Payload) (*Response, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("huggingface").With("model", c.Model)

	body := hfRequest{
		Inputs: payload.Prompt,
		Parameters: hfParameters{
			NegativePrompt: payload.NegativePrompt,
			Width:          payload.Width,
			Height:         payload.Height,
			Seed:           payload.Seed,
		},
	}
	if len(payload.Reference) > 0 {
		if c.Reference {
			body.Image = base64.StdEncoding.EncodeToString(payload.Reference)
		} else {
			log.Warn("endpoint does not take reference images, dropping", "bytes", len(payload.Reference))
		}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")
	req.Header.Set("Authorization", "Bearer "+token)
	if payload.Seed == nil {
		// a cached response would defeat an unseeded re-roll
		req.Header.Set("x-use-cache", "false")
	}

	log.Debug("sending inference request", "width", payload.Width, "height", payload.Height)
	resp, err := c.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	log.Debug("received inference response", "status", resp.StatusCode, "bytes", len(raw))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       raw,
	}, nil
}

func (c *HuggingFaceClient) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}
