// Package metrics counts retries and outcomes. A Lambda has nothing to scrape,
// so the collector pushes to a Pushgateway at the end of each invocation.
package metrics

import (
	"context"
	"time"

	"github.com/dmorgan81/imagine/internal/config"
	"github.com/dmorgan81/imagine/internal/generate"
	"github.com/dmorgan81/imagine/internal/log"
	"github.com/dmorgan81/imagine/internal/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/samber/do"
)

const namespace = "imagine"

type Collector struct {
	registry *prometheus.Registry
	retries  *prometheus.CounterVec
	waited   *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
	attempts prometheus.Histogram
	gateway  string
	job      string
}

func New(gateway, job string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries scheduled, by classification of the failed attempt.",
		}, []string{"class"}),
		waited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_wait_seconds_total",
			Help:      "Time spent waiting between attempts.",
		}, []string{"class"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Finished generation requests, by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall time of successful generations.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120, 150},
		}),
		attempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_attempts",
			Help:      "Attempts needed by successful generations.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		gateway: gateway,
		job:     job,
	}
}

func NewCollector(i *do.Injector) (*Collector, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return New(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job), nil
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Retry(_ context.Context, class retry.Class, delay time.Duration) {
	c.retries.WithLabelValues(class.String()).Inc()
	c.waited.WithLabelValues(class.String()).Add(delay.Seconds())
}

func (c *Collector) Outcome(_ context.Context, res *generate.Result, err error) {
	if err != nil {
		outcome := "unknown"
		if kind, ok := generate.KindOf(err); ok {
			outcome = kind.String()
		}
		if generate.IsCanceled(err) {
			outcome = "canceled"
		}
		c.outcomes.WithLabelValues(outcome).Inc()
		return
	}
	c.outcomes.WithLabelValues("success").Inc()
	if res != nil {
		c.duration.Observe(res.Elapsed.Seconds())
		c.attempts.Observe(float64(res.Attempts))
	}
}

// Push sends everything collected so far. It is a no-op without a gateway.
func (c *Collector) Push(ctx context.Context) error {
	if c.gateway == "" {
		return nil
	}
	log.FromContextOrDiscard(ctx).WithGroup("metrics").Debug("pushing metrics", "gateway", c.gateway)
	return push.New(c.gateway, c.job).Gatherer(c.registry).PushContext(ctx)
}

func (c *Collector) Enabled() bool {
	return c.gateway != ""
}
