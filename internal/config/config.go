// Package config loads service settings: built-in defaults, then an optional
// YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmorgan81/imagine/internal/style"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// TokenEnv holds the HuggingFace token when it is not read from Parameter Store.
const TokenEnv = "HUGGINGFACE_TOKEN"

type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Inference InferenceConfig `yaml:"inference"`
	Retry     RetryConfig     `yaml:"retry"`
	Sizes     []Size          `yaml:"sizes"`
	Styles    []style.Preset  `yaml:"styles"`
	Prompts   []string        `yaml:"prompts"`
	Publish   PublishConfig   `yaml:"publish"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type InferenceConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	Model           string        `yaml:"model"`
	Timeout         time.Duration `yaml:"timeout"`
	ReferenceImages bool          `yaml:"reference_images"`
	// TokenParam names an SSM parameter holding the token. Empty means the
	// token comes from the environment.
	TokenParam   string `yaml:"token_param"`
	PromptsParam string `yaml:"prompts_param"`
}

type RetryConfig struct {
	MaxAttempts        int           `yaml:"max_attempts"`
	BaseDelay          time.Duration `yaml:"base_delay"`
	MaxDelay           time.Duration `yaml:"max_delay"`
	LoadingDelay       time.Duration `yaml:"loading_delay"`
	ServerErrorDelay   time.Duration `yaml:"server_error_delay"`
	ServerErrorRetries int           `yaml:"server_error_retries"`
	TotalTimeout       time.Duration `yaml:"total_timeout"`
}

type Size struct {
	Label  string `yaml:"label"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

type PublishConfig struct {
	Bucket       string `yaml:"bucket"`
	Distribution string `yaml:"distribution"`
	SiteURL      string `yaml:"site_url"`
	Title        string `yaml:"title"`
}

func (p PublishConfig) Enabled() bool {
	return p.Bucket != ""
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Inference: InferenceConfig{
			Endpoint: "https://api-inference.huggingface.co/models",
			Model:    "black-forest-labs/FLUX.1-schnell",
			Timeout:  60 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:        5,
			BaseDelay:          2 * time.Second,
			MaxDelay:           30 * time.Second,
			LoadingDelay:       20 * time.Second,
			ServerErrorDelay:   3 * time.Second,
			ServerErrorRetries: 1,
			TotalTimeout:       150 * time.Second,
		},
		Sizes: []Size{
			{Label: "square", Width: 512, Height: 512},
			{Label: "portrait", Width: 512, Height: 768},
			{Label: "landscape", Width: 768, Height: 512},
		},
		Styles: append([]style.Preset(nil), style.Defaults...),
		Publish: PublishConfig{
			Title: "Imagine",
		},
		Metrics: MetricsConfig{
			Job: "imagine",
		},
	}
}

// Load reads the process environment. path may be empty.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("LOG_LEVEL", &c.LogLevel)
	str("HUGGINGFACE_ENDPOINT", &c.Inference.Endpoint)
	str("HUGGINGFACE_MODEL", &c.Inference.Model)
	str("HUGGINGFACE_TOKEN_PARAM", &c.Inference.TokenParam)
	str("PROMPTS_PARAM", &c.Inference.PromptsParam)
	dur("INFERENCE_TIMEOUT", &c.Inference.Timeout)
	flag("REFERENCE_IMAGES", &c.Inference.ReferenceImages)

	num("MAX_ATTEMPTS", &c.Retry.MaxAttempts)
	dur("BACKOFF_BASE", &c.Retry.BaseDelay)
	dur("BACKOFF_CAP", &c.Retry.MaxDelay)
	dur("LOADING_DELAY", &c.Retry.LoadingDelay)
	dur("SERVER_ERROR_DELAY", &c.Retry.ServerErrorDelay)
	dur("TOTAL_TIMEOUT", &c.Retry.TotalTimeout)

	str("BUCKET", &c.Publish.Bucket)
	str("DISTRIBUTION", &c.Publish.Distribution)
	str("SITE_URL", &c.Publish.SiteURL)
	str("PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL)

	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Inference.Endpoint) == "" || strings.TrimSpace(c.Inference.Model) == "" {
		errs = append(errs, errors.New("inference endpoint and model are required"))
	}
	r := c.Retry
	if r.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be at least 1, got %d", r.MaxAttempts))
	}
	if r.BaseDelay < 0 || r.MaxDelay < 0 || r.LoadingDelay < 0 || r.ServerErrorDelay < 0 {
		errs = append(errs, errors.New("retry delays must not be negative"))
	}
	if r.BaseDelay > r.MaxDelay {
		errs = append(errs, fmt.Errorf("base_delay %s exceeds max_delay %s", r.BaseDelay, r.MaxDelay))
	}
	if r.ServerErrorRetries < 0 {
		errs = append(errs, errors.New("server_error_retries must not be negative"))
	}
	if len(c.Sizes) == 0 {
		errs = append(errs, errors.New("at least one size is required"))
	}
	for _, s := range c.Sizes {
		if s.Width <= 0 || s.Height <= 0 {
			errs = append(errs, fmt.Errorf("size %q must have positive dimensions", s.String()))
		}
	}
	if _, err := c.Catalog(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) Catalog() (*style.Catalog, error) {
	return style.NewCatalog(c.Styles...)
}

// SizeByLabel accepts either a configured label ("portrait") or WxH ("512x768").
func (c *Config) SizeByLabel(label string) (Size, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	return lo.Find(c.Sizes, func(s Size) bool {
		return strings.ToLower(s.Label) == label || s.String() == label
	})
}
