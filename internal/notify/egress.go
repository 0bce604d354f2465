package notify

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/match-verify/internal/fastclient"
	"github.com/park285/match-verify/internal/metrics"
)

// Egress publishes verdict events.
type Egress interface {
	Publish(ctx context.Context, ev *VerdictEvent) error
}

type transportMode string

const (
	transportOff  transportMode = "off"
	transportHTTP transportMode = "http"
	transportWS   transportMode = "ws"
	transportAuto transportMode = "auto"
)

// NewEgress creates an Egress for mode. Auto prefers the socket when it is
// connected and falls back to HTTP once. Unknown modes disable publishing.
func NewEgress(mode string, c *fastclient.Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch transportMode(strings.ToLower(strings.TrimSpace(mode))) {
	case transportHTTP:
		return &httpEgress{c: c}
	case transportWS:
		return &wsEgress{ws: ws}
	case transportAuto:
		return &autoEgress{ws: &wsEgress{ws: ws}, http: &httpEgress{c: c}, logger: logger}
	default:
		return nopEgress{}
	}
}

type nopEgress struct{}

func (nopEgress) Publish(context.Context, *VerdictEvent) error { return nil }

// httpEgress posts the event to the listener's base URL.
type httpEgress struct{ c *fastclient.Client }

func (h *httpEgress) Publish(ctx context.Context, ev *VerdictEvent) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	err := h.c.PostJSON(ctx, "", ev, nil, true)
	metrics.IncNotify(string(transportHTTP), outcome(err))
	return err
}

type wsEgress struct{ ws *WebSocket }

func (w *wsEgress) available() bool { return w != nil && w.ws != nil && w.ws.Connected() }

func (w *wsEgress) Publish(ctx context.Context, ev *VerdictEvent) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	err := w.ws.WriteJSON(ctx, ev)
	metrics.IncNotify(string(transportWS), outcome(err))
	return err
}

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) Publish(ctx context.Context, ev *VerdictEvent) error {
	if a.ws.available() {
		err := a.ws.Publish(ctx, ev)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("match_id", ev.MatchID), zap.Error(err))
	}
	return a.http.Publish(ctx, ev)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
