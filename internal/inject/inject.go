package inject

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/creds"
	"github.com/dmorgan81/imagine/internal/feed"
	"github.com/dmorgan81/imagine/internal/generate"
	"github.com/dmorgan81/imagine/internal/handler"
	"github.com/dmorgan81/imagine/internal/history"
	"github.com/dmorgan81/imagine/internal/image"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/dmorgan81/imagine/internal/metrics"
	"github.com/dmorgan81/imagine/internal/page"
	"github.com/dmorgan81/imagine/internal/param"
	"github.com/dmorgan81/imagine/internal/prompt"
	"github.com/dmorgan81/imagine/internal/retry"
	"github.com/dmorgan81/imagine/internal/store"
	"github.com/samber/do"
)

func Setup(ctx context.Context, cfg *config.Config) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})
	do.ProvideValue[*config.Config](injector, cfg)

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*cloudfront.Client](injector, func(i *do.Injector) (*cloudfront.Client, error) {
		return cloudfront.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, &http.Client{})

	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)
	do.Provide[creds.Provider](injector, creds.NewProvider)
	do.ProvideNamed[[]string](injector, "prompts", func(i *do.Injector) ([]string, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.Inference.PromptsParam == "" {
			return cfg.Prompts, nil
		}
		return do.MustInvoke[param.Fetcher](i).FetchAll(ctx, cfg.Inference.PromptsParam)
	})

	do.Provide[*prompt.Composer](injector, func(i *do.Injector) (*prompt.Composer, error) {
		catalog, err := do.MustInvoke[*config.Config](i).Catalog()
		if err != nil {
			return nil, err
		}
		return prompt.NewComposer(catalog), nil
	})
	do.Provide[*prompt.Randomizer](injector, prompt.NewRandomizer)
	do.Provide[image.Transport](injector, image.NewHuggingFaceClient)
	do.Provide[*retry.Policy](injector, func(i *do.Injector) (*retry.Policy, error) {
		return retry.NewPolicy(do.MustInvoke[*config.Config](i).Retry), nil
	})
	do.Provide[*metrics.Collector](injector, metrics.NewCollector)
	do.Provide[generate.Observer](injector, func(i *do.Injector) (generate.Observer, error) {
		return do.MustInvoke[*metrics.Collector](i), nil
	})
	do.Provide[*generate.Generator](injector, generate.NewGenerator)
	do.Provide[*history.History](injector, history.NewHistory)

	do.Provide[store.Uploader](injector, store.NewS3Uploader)
	do.Provide[store.Invalidator](injector, store.NewCloudFrontInvalidator)
	do.Provide[*page.Templator](injector, page.NewTemplator)
	do.Provide[*feed.Generator](injector, feed.NewS3Generator)

	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}
