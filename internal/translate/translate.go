// Package translate is the fallback translator used by label normalization.
// Every failure path returns the input text unchanged.
package translate

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/match-verify/internal/fastclient"
	"github.com/park285/match-verify/internal/metrics"
)

const (
	DefaultBaseURL = "https://translation.googleapis.com"
	DefaultTimeout = 4 * time.Second
	targetLanguage = "en"
)

type translateRequest struct {
	Q      string `json:"q"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

type Client struct {
	api     *fastclient.Client
	key     string
	timeout time.Duration
	cache   *Cache
	logger  *zap.Logger
}

type settings struct {
	baseURL  string
	cache    *Cache
	logger   *zap.Logger
	httpOpts []fastclient.Option
}

type Option func(*settings)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option { return func(s *settings) { s.baseURL = strings.TrimSpace(u) } }

// WithCache enables the shared translation cache.
func WithCache(c *Cache) Option { return func(s *settings) { s.cache = c } }

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithHTTPOptions(opts ...fastclient.Option) Option {
	return func(s *settings) { s.httpOpts = append(s.httpOpts, opts...) }
}

// New builds a Google Translate v2 client. An empty apiKey disables
// translation entirely.
func New(apiKey string, timeout time.Duration, opts ...Option) *Client {
	s := settings{baseURL: DefaultBaseURL, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.baseURL == "" {
		s.baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpOpts := append([]fastclient.Option{fastclient.WithTimeout(timeout), fastclient.WithRetry(1)}, s.httpOpts...)
	return &Client{
		api:     fastclient.New(s.baseURL, httpOpts...),
		key:     strings.TrimSpace(apiKey),
		timeout: timeout,
		cache:   s.cache,
		logger:  s.logger,
	}
}

// Translate renders text in English, or returns it unchanged.
func (c *Client) Translate(ctx context.Context, text string) string {
	if c == nil || c.key == "" || strings.TrimSpace(text) == "" {
		metrics.IncTranslate("skipped")
		return text
	}
	if c.cache != nil {
		if v, ok := c.cache.Get(ctx, targetLanguage, text); ok {
			metrics.IncTranslate("hit")
			return v
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp translateResponse
	path := "/language/translate/v2?key=" + url.QueryEscape(c.key)
	req := translateRequest{Q: text, Target: targetLanguage, Format: "text"}
	if err := c.api.PostJSON(ctx, path, req, &resp, false); err != nil {
		c.logger.Warn("translate_failed", zap.Error(err))
		metrics.IncTranslate("error")
		return text
	}
	if len(resp.Data.Translations) == 0 || strings.TrimSpace(resp.Data.Translations[0].TranslatedText) == "" {
		metrics.IncTranslate("error")
		return text
	}
	out := resp.Data.Translations[0].TranslatedText
	metrics.IncTranslate("miss")
	if c.cache != nil {
		c.cache.Set(ctx, targetLanguage, text, out)
	}
	return out
}
