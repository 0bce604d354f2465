package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr       string
	MaxUploadBytes int

	OCRBaseURL    string
	OCRTimeout    time.Duration
	OCRRatePerSec float64
	OCRWorkers    int

	TranslateKey     string
	TranslateTimeout time.Duration

	RedisURL      string
	DatabaseURL   string
	SubmissionTTL time.Duration

	AlignWindow time.Duration
	ProfileDir  string
	MessagesDir string

	NotifyMode    string
	NotifyHTTPURL string
	NotifyWSURL   string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:         ":8080",
		MaxUploadBytes:   10 << 20,
		OCRTimeout:       8 * time.Second,
		OCRWorkers:       4,
		TranslateTimeout: 4 * time.Second,
		SubmissionTTL:    24 * time.Hour,
		AlignWindow:      5 * time.Minute,
		NotifyMode:       "off",
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if n, ok := positiveInt("MAX_UPLOAD_BYTES"); ok {
		cfg.MaxUploadBytes = n
	}

	cfg.OCRBaseURL = strings.TrimSpace(os.Getenv("OCR_BASE_URL"))
	if n, ok := positiveInt("OCR_TIMEOUT_MS"); ok {
		cfg.OCRTimeout = time.Duration(n) * time.Millisecond
	}
	if v := strings.TrimSpace(os.Getenv("OCR_RATE_PER_SEC")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.OCRRatePerSec = f
		}
	}
	if n, ok := positiveInt("OCR_WORKERS"); ok {
		cfg.OCRWorkers = n
	}

	cfg.TranslateKey = strings.TrimSpace(os.Getenv("GOOGLE_TRANSLATE_KEY"))
	if n, ok := positiveInt("TRANSLATE_TIMEOUT_MS"); ok {
		cfg.TranslateTimeout = time.Duration(n) * time.Millisecond
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if n, ok := positiveInt("SUBMISSION_TTL_SEC"); ok {
		cfg.SubmissionTTL = time.Duration(n) * time.Second
	}

	// 0 disables the window; alignment then only needs both timestamps
	if v := strings.TrimSpace(os.Getenv("ALIGN_WINDOW_MIN")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.AlignWindow = time.Duration(n) * time.Minute
		}
	}
	cfg.ProfileDir = strings.TrimSpace(os.Getenv("PROFILE_DIR"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFY_MODE"))); v != "" {
		cfg.NotifyMode = v
	}
	cfg.NotifyHTTPURL = strings.TrimSpace(os.Getenv("NOTIFY_HTTP_URL"))
	cfg.NotifyWSURL = strings.TrimSpace(os.Getenv("NOTIFY_WS_URL"))

	if cfg.OCRBaseURL == "" {
		return nil, errors.New("OCR_BASE_URL is required")
	}
	switch cfg.NotifyMode {
	case "off":
	case "http":
		if cfg.NotifyHTTPURL == "" {
			return nil, errors.New("NOTIFY_HTTP_URL is required for NOTIFY_MODE=http")
		}
	case "ws":
		if cfg.NotifyWSURL == "" {
			return nil, errors.New("NOTIFY_WS_URL is required for NOTIFY_MODE=ws")
		}
	case "auto":
		if cfg.NotifyHTTPURL == "" || cfg.NotifyWSURL == "" {
			return nil, errors.New("NOTIFY_HTTP_URL and NOTIFY_WS_URL are required for NOTIFY_MODE=auto")
		}
	default:
		return nil, errors.New("NOTIFY_MODE must be off, http, ws or auto")
	}

	return cfg, nil
}

func positiveInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
