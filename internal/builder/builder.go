// Package builder wires the verify service and its collaborators from config.
package builder

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/match-verify/internal/config"
	"github.com/park285/match-verify/internal/engine"
	"github.com/park285/match-verify/internal/fastclient"
	"github.com/park285/match-verify/internal/msgcat"
	"github.com/park285/match-verify/internal/notify"
	"github.com/park285/match-verify/internal/ocrclient"
	"github.com/park285/match-verify/internal/profile"
	"github.com/park285/match-verify/internal/repository"
	"github.com/park285/match-verify/internal/service/verify"
	"github.com/park285/match-verify/internal/store"
	"github.com/park285/match-verify/internal/translate"
)

const wsReconnectAttempts = 5

type Deps struct {
	Service  *verify.Service
	Profiles *profile.Registry
	Redis    *redis.Client
	Postgres *repository.Postgres
	Socket   *notify.WebSocket
}

// Close releases connections in reverse order of creation.
func (d *Deps) Close(ctx context.Context) {
	if d == nil {
		return
	}
	if d.Socket != nil {
		_ = d.Socket.Close(ctx)
	}
	if d.Postgres != nil {
		_ = d.Postgres.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}

	profiles, err := profile.NewRegistry(cfg.ProfileDir, logger)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	d.Profiles = profiles
	messages, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	// Redis (optional): submission store and translation cache
	var subs *store.Store
	var trCache *translate.Cache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := ParseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		d.Redis = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = d.Redis.Ping(ctx).Err()
		cancel()
		if err != nil {
			d.Close(context.Background())
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		subs = store.NewStore(d.Redis, cfg.SubmissionTTL)
		trCache = translate.NewCache(d.Redis, 0, logger)
	} else {
		logger.Warn("redis_disabled", zap.String("effect", "no stored submissions, no translation cache"))
	}

	// Verdict repository: Postgres when configured, in-memory otherwise
	var repo repository.Repository
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, err := repository.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			d.Close(context.Background())
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		d.Postgres = pg
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = pg.EnsureSchema(ctx)
		cancel()
		if err != nil {
			d.Close(context.Background())
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		repo = pg
	} else {
		repo = repository.NewMemoryRepository()
	}

	trOpts := []translate.Option{translate.WithLogger(logger)}
	if trCache != nil {
		trOpts = append(trOpts, translate.WithCache(trCache))
	}
	translator := translate.New(cfg.TranslateKey, cfg.TranslateTimeout, trOpts...)

	extractor := ocrclient.New(cfg.OCRBaseURL, cfg.OCRTimeout,
		ocrclient.WithRateLimit(cfg.OCRRatePerSec),
		ocrclient.WithLogger(logger))

	egress := buildEgress(cfg, d, logger)

	window := cfg.AlignWindow
	svc, err := verify.NewService(verify.Deps{
		Profiles:  profiles,
		Engine:    engine.New(translator, messages, logger),
		Extractor: extractor,
		Store:     subs,
		Repo:      repo,
		Egress:    egress,
		Logger:    logger,
	}, verify.Config{AlignWindow: &window, ExtractWorkers: cfg.OCRWorkers})
	if err != nil {
		d.Close(context.Background())
		return nil, err
	}
	d.Service = svc
	return d, nil
}

// buildEgress connects the notification socket when the mode needs one. A
// failed first dial is left to the reconnect loop.
func buildEgress(cfg *config.AppConfig, d *Deps, logger *zap.Logger) notify.Egress {
	var httpClient *fastclient.Client
	if cfg.NotifyHTTPURL != "" {
		httpClient = fastclient.New(cfg.NotifyHTTPURL, fastclient.WithTimeout(5*time.Second), fastclient.WithRetry(3))
	}
	if cfg.NotifyWSURL != "" && (cfg.NotifyMode == "ws" || cfg.NotifyMode == "auto") {
		d.Socket = notify.NewWebSocket(cfg.NotifyWSURL, wsReconnectAttempts, logger)
		d.Socket.OnStateChange(func(s notify.State) {
			logger.Info("notify_ws_state", zap.String("state", s.String()))
		})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.Socket.Connect(ctx); err != nil {
			logger.Warn("notify_ws_connect_failed", zap.Error(err))
		}
		cancel()
	}
	return notify.NewEgress(cfg.NotifyMode, httpClient, d.Socket, logger)
}

// ParseRedisURL accepts redis:// and rediss:// URLs with an optional /db path.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Host
	if u.Port() == "" {
		host = u.Hostname() + ":6379"
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: host, Username: u.User.Username(), Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
