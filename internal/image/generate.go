package image

import (
	"context"
	"mime"
	"net/http"
)

// Payload is everything the remote model needs for one generation.
type Payload struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Seed           *int64
	Reference      []byte
}

// Response is the raw outcome of a single call. The body has been fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) ContentType() string {
	if r == nil || r.Header == nil {
		return ""
	}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// Transport performs exactly one outbound call per Send and never retries.
// A non-nil error means the call failed below HTTP (timeout, refused, DNS).
type Transport interface {
	Send(ctx context.Context, token string, payload Payload) (*Response, error)
}
