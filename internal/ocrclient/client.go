// Package ocrclient talks to the remote text extraction service.
package ocrclient

import (
	"context"
	"encoding/base64"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/park285/match-verify/internal/fastclient"
	"github.com/park285/match-verify/internal/imaging"
	"github.com/park285/match-verify/internal/metrics"
)

const extractPath = "/extract"

// Extractor turns an image region into text. It returns "" when nothing was
// recognized or the extraction failed.
type Extractor interface {
	Extract(ctx context.Context, region image.Image) string
}

type extractRequest struct {
	Image string `json:"image"`
	Lang  string `json:"lang,omitempty"`
	// Binarized tells the extractor the region is already thresholded.
	Binarized bool `json:"binarized"`
}

type extractResponse struct {
	Text  string   `json:"text"`
	Lines []string `json:"lines,omitempty"`
}

type Client struct {
	api     *fastclient.Client
	lang    string
	limiter *rate.Limiter
	logger  *zap.Logger
}

type settings struct {
	lang     string
	rps      float64
	logger   *zap.Logger
	httpOpts []fastclient.Option
}

type Option func(*settings)

func WithLanguage(lang string) Option {
	return func(s *settings) { s.lang = strings.TrimSpace(lang) }
}

// WithRateLimit caps extraction calls per second; zero or less means unlimited.
func WithRateLimit(rps float64) Option {
	return func(s *settings) { s.rps = rps }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHTTPOptions passes options through to the underlying HTTP client.
func WithHTTPOptions(opts ...fastclient.Option) Option {
	return func(s *settings) { s.httpOpts = append(s.httpOpts, opts...) }
}

// New builds a client for baseURL. Extraction is never retried; a failed read
// is reported as empty text.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	s := settings{lang: "en", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	httpOpts := append([]fastclient.Option{fastclient.WithTimeout(timeout), fastclient.WithRetry(1)}, s.httpOpts...)
	c := &Client{
		api:    fastclient.New(baseURL, httpOpts...),
		lang:   s.lang,
		logger: s.logger,
	}
	if s.rps > 0 {
		burst := int(s.rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(s.rps), burst)
	}
	return c
}

func (c *Client) Extract(ctx context.Context, region image.Image) string {
	if region == nil {
		return ""
	}
	started := time.Now()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn("extract_throttled", zap.Error(err))
			metrics.ObserveExtract("throttled", time.Since(started))
			return ""
		}
	}
	prepared := imaging.Binarize(region)
	raw, err := imaging.EncodePNG(prepared)
	if err != nil {
		c.logger.Warn("extract_encode_failed", zap.Error(err))
		metrics.ObserveExtract("error", time.Since(started))
		return ""
	}
	req := extractRequest{Image: base64.StdEncoding.EncodeToString(raw), Lang: c.lang, Binarized: true}
	var resp extractResponse
	if err := c.api.PostJSON(ctx, extractPath, req, &resp, false); err != nil {
		c.logger.Warn("extract_failed", zap.Error(err))
		metrics.ObserveExtract("error", time.Since(started))
		return ""
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" && len(resp.Lines) > 0 {
		text = strings.TrimSpace(strings.Join(resp.Lines, " "))
	}
	outcome := "ok"
	if text == "" {
		outcome = "empty"
	}
	metrics.ObserveExtract(outcome, time.Since(started))
	return text
}
