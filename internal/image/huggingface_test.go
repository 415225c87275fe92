package image

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceClient_Send(t *testing.T) {
	img := pngBytes(t, 2, 2)
	var got hfRequest
	var header http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/black-forest-labs/FLUX.1-schnell", r.URL.Path)
		header = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	c := &HuggingFaceClient{
		Client:   srv.Client(),
		Endpoint: srv.URL + "/models/",
		Model:    "black-forest-labs/FLUX.1-schnell",
		Timeout:  time.Second,
	}
	resp, err := c.Send(context.Background(), "hf_secret", Payload{
		Prompt:         "a cat , anime style",
		NegativePrompt: "blurry",
		Width:          512,
		Height:         768,
		Seed:           lo.ToPtr[int64](7),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, img, resp.Body)
	assert.Equal(t, "image/png", resp.ContentType())

	assert.Equal(t, "Bearer hf_secret", header.Get("Authorization"))
	assert.Empty(t, header.Get("x-use-cache"))
	assert.Equal(t, "a cat , anime style", got.Inputs)
	assert.Equal(t, hfParameters{NegativePrompt: "blurry", Width: 512, Height: 768, Seed: lo.ToPtr[int64](7)}, got.Parameters)
	assert.Empty(t, got.Image)
}

func TestHuggingFaceClient_Reference(t *testing.T) {
	ref := []byte("reference-bytes")
	var bodies []hfRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req hfRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		bodies = append(bodies, req)
		assert.Equal(t, "false", r.Header.Get("x-use-cache"))
	}))
	defer srv.Close()

	payload := Payload{Prompt: "p", Width: 512, Height: 512, Reference: ref}

	c := &HuggingFaceClient{Client: srv.Client(), Endpoint: srv.URL, Model: "m", Reference: true}
	_, err := c.Send(context.Background(), "t", payload)
	require.NoError(t, err)

	c.Reference = false
	_, err = c.Send(context.Background(), "t", payload)
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, base64.StdEncoding.EncodeToString(ref), bodies[0].Image)
	assert.Empty(t, bodies[1].Image)
}

func TestHuggingFaceClient_ErrorStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":12.5}`))
	}))
	defer srv.Close()

	c := &HuggingFaceClient{Client: srv.Client(), Endpoint: srv.URL, Model: "m"}
	resp, err := c.Send(context.Background(), "t", Payload{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "3", resp.Header.Get("Retry-After"))
	assert.Equal(t, "application/json", resp.ContentType())
	assert.Contains(t, string(resp.Body), "estimated_time")
}

func TestHuggingFaceClient_Timeout(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := &HuggingFaceClient{Client: srv.Client(), Endpoint: srv.URL, Model: "m", Timeout: 50 * time.Millisecond}
	_, err := c.Send(context.Background(), "t", Payload{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHuggingFaceClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := &HuggingFaceClient{Endpoint: url, Model: "m", Timeout: time.Second}
	_, err := c.Send(context.Background(), "t", Payload{Prompt: "p"})
	assert.Error(t, err)
}

func TestResponse_ContentType(t *testing.T) {
	var nilResp *Response
	assert.Empty(t, nilResp.ContentType())
	r := &Response{Header: http.Header{"Content-Type": {"image/jpeg; charset=binary"}}}
	assert.Equal(t, "image/jpeg", r.ContentType())
}
