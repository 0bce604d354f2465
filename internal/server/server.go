// Package server exposes verification and arbitration over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/park285/match-verify/internal/imaging"
	"github.com/park285/match-verify/internal/metrics"
	"github.com/park285/match-verify/internal/profile"
	"github.com/park285/match-verify/internal/service/verify"
	"github.com/park285/match-verify/pkg/verifydto"
)

const (
	defaultMaxUpload = 10 << 20
	requestTimeout   = 30 * time.Second
	// multipart framing and text fields on top of the image itself
	formOverhead = 64 << 10
)

type Server struct {
	svc       *verify.Service
	maxUpload int
	logger    *zap.Logger
	metrics   fasthttp.RequestHandler
	srv       *fasthttp.Server
}

func New(svc *verify.Service, maxUploadBytes int, logger *zap.Logger) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUpload
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:       svc,
		maxUpload: maxUploadBytes,
		logger:    logger,
		metrics:   fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})),
	}
	s.srv = &fasthttp.Server{
		Name:               "match-verify",
		Handler:            s.Handler(),
		MaxRequestBodySize: maxUploadBytes + formOverhead,
		ReadTimeout:        requestTimeout,
		WriteTimeout:       requestTimeout,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

// Serve accepts connections on ln; tests pass an in-memory listener.
func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handler routes requests and applies CORS headers.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		setCORS(ctx)
		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}
		started := time.Now()
		s.route(ctx)
		s.logger.Debug("http_request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("took", time.Since(started)))
	}
}

func setCORS(ctx *fasthttp.RequestCtx) {
	h := &ctx.Response.Header
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "*")
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	parts := strings.Split(strings.Trim(string(ctx.Path()), "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case len(parts) == 1 && parts[0] == "metrics":
		s.metrics(ctx)
	case len(parts) == 1 && parts[0] == "profiles":
		writeJSON(ctx, fasthttp.StatusOK, s.svc.Profiles())
	case (len(parts) == 3 || len(parts) == 4) && parts[0] == "ocr":
		if !ctx.IsPost() {
			methodNotAllowed(ctx)
			return
		}
		game, teamSize, err := gameAndSize(parts[1], parts[3:])
		if err != nil {
			s.writeError(ctx, err)
			return
		}
		switch parts[2] {
		case "verify":
			s.handleVerify(ctx, game, teamSize)
		case "compare":
			s.handleCompare(ctx, game, teamSize)
		default:
			notFound(ctx)
		}
	case len(parts) == 3 && parts[0] == "matches" && parts[2] == "verdict":
		switch {
		case ctx.IsPost():
			s.handleDecide(ctx, parts[1])
		case ctx.IsGet():
			s.handleGetVerdict(ctx, parts[1])
		default:
			methodNotAllowed(ctx)
		}
	default:
		notFound(ctx)
	}
}

var errBadTeamSize = errors.New("team size must be a number")

func gameAndSize(rawGame string, rest []string) (profile.Game, int, error) {
	game, ok := profile.ParseGame(rawGame)
	if !ok {
		return "", 0, profile.ErrUnknownGame
	}
	if len(rest) == 0 || rest[0] == "" {
		return game, 0, nil
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil || n <= 0 {
		return "", 0, errBadTeamSize
	}
	return game, n, nil
}

func (s *Server) handleVerify(ctx *fasthttp.RequestCtx, game profile.Game, teamSize int) {
	form, err := ctx.MultipartForm()
	if err != nil {
		s.writeError(ctx, verifydto.DomainError{Code: verifydto.CodeBadRequest, Message: "multipart form expected"})
		return
	}
	value := func(k string) string {
		if vs := form.Value[k]; len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
		return ""
	}
	in := verify.VerifyInput{
		Game:     game,
		TeamSize: teamSize,
		Form: verifydto.VerifyForm{
			MatchID:          value(verifydto.FieldMatchID),
			UserID:           value(verifydto.FieldUserID),
			UploaderGameUser: value(verifydto.FieldUploaderGameUser),
			OpponentGameUser: value(verifydto.FieldOpponentGameUser),
			LayoutVersion:    value(verifydto.FieldLayoutVersion),
		},
	}
	if files := form.File[verifydto.FieldImage]; len(files) > 0 {
		fh := files[0]
		if fh.Size > int64(s.maxUpload) {
			s.writeError(ctx, verifydto.DomainError{Code: verifydto.CodePayloadTooLarge, Message: "image exceeds upload limit"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			s.writeError(ctx, verifydto.DomainError{Code: verifydto.CodeBadRequest, Message: "unreadable image part"})
			return
		}
		in.Image, err = io.ReadAll(io.LimitReader(f, int64(s.maxUpload)+1))
		_ = f.Close()
		if err != nil {
			s.writeError(ctx, verifydto.DomainError{Code: verifydto.CodeBadRequest, Message: "unreadable image part"})
			return
		}
	}

	rctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := s.svc.Verify(rctx, in)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, res)
}

func (s *Server) handleCompare(ctx *fasthttp.RequestCtx, game profile.Game, teamSize int) {
	var req verifydto.CompareRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		s.writeError(ctx, verifydto.DomainError{Code: verifydto.CodeBadRequest, Message: "invalid compare payload"})
		return
	}
	v, err := s.svc.Compare(ctx, game, teamSize, &req)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, v)
}

func (s *Server) handleDecide(ctx *fasthttp.RequestCtx, matchID string) {
	args := ctx.QueryArgs()
	game, teamSize, err := gameAndSize(string(args.Peek("game")), []string{string(args.Peek("teamSize"))})
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	rctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	out, err := s.svc.CompareStored(rctx, matchID, game, teamSize)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleGetVerdict(ctx *fasthttp.RequestCtx, matchID string) {
	out, err := s.svc.Verdict(ctx, matchID)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

// writeError maps service errors to a status and a DomainError body.
func (s *Server) writeError(ctx *fasthttp.RequestCtx, err error) {
	status, body := classify(err)
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Error("http_error", zap.ByteString("path", ctx.Path()), zap.Error(err))
	}
	writeJSON(ctx, status, body)
}

func classify(err error) (int, verifydto.DomainError) {
	var de verifydto.DomainError
	switch {
	case errors.As(err, &de):
		if de.Code == verifydto.CodePayloadTooLarge {
			return fasthttp.StatusRequestEntityTooLarge, de
		}
		return fasthttp.StatusBadRequest, de
	case errors.Is(err, verify.ErrMissingField):
		return fasthttp.StatusBadRequest, verifydto.DomainError{Code: verifydto.CodeMissingField, Message: err.Error()}
	case errors.Is(err, profile.ErrUnknownGame):
		return fasthttp.StatusNotFound, verifydto.DomainError{Code: verifydto.CodeUnknownGame, Message: err.Error()}
	case errors.Is(err, profile.ErrInvalidTeamSize), errors.Is(err, errBadTeamSize):
		return fasthttp.StatusBadRequest, verifydto.DomainError{Code: verifydto.CodeInvalidTeamSize, Message: err.Error()}
	case errors.Is(err, imaging.ErrDecode):
		return fasthttp.StatusBadRequest, verifydto.DomainError{Code: verifydto.CodeImageDecode, Message: err.Error()}
	case errors.Is(err, verify.ErrSubmissionsIncomplete):
		return fasthttp.StatusConflict, verifydto.DomainError{Code: verifydto.CodeIncomplete, Message: err.Error(), Retryable: true}
	case errors.Is(err, verify.ErrStoreUnavailable):
		return fasthttp.StatusServiceUnavailable, verifydto.DomainError{Code: verifydto.CodeStoreUnavailable, Message: err.Error()}
	case errors.Is(err, verify.ErrVerdictNotFound):
		return fasthttp.StatusNotFound, verifydto.DomainError{Code: verifydto.CodeNotFound, Message: err.Error()}
	default:
		return fasthttp.StatusInternalServerError, verifydto.DomainError{Code: verifydto.CodeInternal, Message: "internal error", Retryable: true}
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

func notFound(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusNotFound, verifydto.DomainError{Code: verifydto.CodeNotFound, Message: "no such route"})
}

func methodNotAllowed(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusMethodNotAllowed, verifydto.DomainError{Code: verifydto.CodeBadRequest, Message: "method not allowed"})
}
