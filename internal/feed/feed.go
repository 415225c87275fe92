package feed

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/dmorgan81/imagine/internal/store"
	"github.com/gorilla/feeds"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Key is where the generated feed is stored in the bucket.
const Key = "feed.xml"

// ImageTypes maps published image extensions to their content types.
var ImageTypes = map[string]string{
	".png": "image/png",
	".jpg": "image/jpeg",
	".gif": "image/gif",
}

type S3API interface {
	s3.ListObjectsV2APIClient
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type Generator struct {
	client  S3API
	bucket  string
	title   string
	siteURL string
	limit   int
}

func NewS3Generator(i *do.Injector) (*Generator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return New(do.MustInvoke[*s3.Client](i), cfg.Publish), nil
}

func New(client S3API, publish config.PublishConfig) *Generator {
	return &Generator{
		client:  client,
		bucket:  publish.Bucket,
		title:   publish.Title,
		siteURL: strings.TrimSuffix(publish.SiteURL, "/"),
		limit:   100,
	}
}

func (g *Generator) Generate(ctx context.Context) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("feed").With("bucket", g.bucket)
	log.Info("generating rss feed")

	feed := feeds.Feed{
		Title:       g.title,
		Description: "Images generated from text prompts",
		Link:        &feeds.Link{Href: g.siteURL},
		Updated:     time.Now(),
	}

	pager := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
	})

	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(16)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		objs := lo.Filter(page.Contents, func(o s3types.Object, _ int) bool {
			_, ok := ImageTypes[path.Ext(aws.ToString(o.Key))]
			return ok
		})
		for _, obj := range objs {
			obj := obj
			group.Go(func() error {
				item, err := g.item(gctx, aws.ToString(obj.Key))
				if err != nil {
					return err
				}
				mu.Lock()
				feed.Add(item)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	feed.Sort(func(a, b *feeds.Item) bool {
		return a.Updated.After(b.Updated)
	})
	if len(feed.Items) > g.limit {
		feed.Items = feed.Items[:g.limit]
	}
	log.Info("generated rss feed", "items", len(feed.Items))

	rss, err := feed.ToRss()
	return []byte(rss), err
}

func (g *Generator) item(ctx context.Context, key string) (*feeds.Item, error) {
	out, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}

	meta := store.DecodeMetadata(out.Metadata)
	ext := path.Ext(key)
	base := strings.TrimSuffix(key, ext)
	details := lo.Filter([]string{
		lo.Ternary(meta["style"] != "", "style "+meta["style"], ""),
		meta["model"],
		meta["size"],
		lo.Ternary(meta["seed"] != "", "seed "+meta["seed"], ""),
	}, func(s string, _ int) bool { return s != "" })

	return &feeds.Item{
		Id:          base,
		Title:       lo.Ternary(meta["prompt"] != "", meta["prompt"], base),
		Description: strings.Join(details, ", "),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/%s.html", g.siteURL, base)},
		Enclosure: &feeds.Enclosure{
			Url:    fmt.Sprintf("%s/%s", g.siteURL, key),
			Type:   ImageTypes[ext],
			Length: fmt.Sprint(out.ContentLength),
		},
		Updated: aws.ToTime(out.LastModified),
	}, nil
}
