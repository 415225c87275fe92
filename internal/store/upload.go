package store

import (
	"context"
	"mime"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

type UploadParams struct {
	Key         string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

type Uploader interface {
	Upload(context.Context, UploadParams) error
}

// UploadAll uploads every object concurrently and returns the first failure.
func UploadAll(ctx context.Context, u Uploader, uploads ...UploadParams) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, params := range uploads {
		params := params
		group.Go(func() error {
			return u.Upload(ctx, params)
		})
	}
	return group.Wait()
}

// EncodeMetadata makes values safe for S3 user metadata, which only carries
// ASCII. Non-ASCII values become RFC 2047 encoded words.
func EncodeMetadata(meta map[string]string) map[string]string {
	return lo.MapValues(meta, func(v string, _ string) string {
		return mime.QEncoding.Encode("utf-8", strings.ReplaceAll(v, "\n", " "))
	})
}

func DecodeMetadata(meta map[string]string) map[string]string {
	dec := new(mime.WordDecoder)
	return lo.MapValues(meta, func(v string, _ string) string {
		out, err := dec.DecodeHeader(v)
		if err != nil {
			return v
		}
		return out
	})
}
