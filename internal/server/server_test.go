package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/match-verify/internal/domain"
	"github.com/park285/match-verify/internal/engine"
	"github.com/park285/match-verify/internal/profile"
	"github.com/park285/match-verify/internal/repository"
	"github.com/park285/match-verify/internal/service/verify"
	"github.com/park285/match-verify/internal/store"
	"github.com/park285/match-verify/pkg/verifydto"
)

type blankExtractor struct{}

func (blankExtractor) Extract(context.Context, image.Image) string { return "" }

type harness struct {
	client *fasthttp.Client
}

func newHarness(t *testing.T, withStore bool) *harness {
	t.Helper()
	reg, err := profile.NewRegistry("", nil)
	require.NoError(t, err)
	deps := verify.Deps{
		Profiles:  reg,
		Engine:    engine.New(nil, nil, nil),
		Extractor: blankExtractor{},
		Repo:      repository.NewMemoryRepository(),
	}
	if withStore {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		deps.Store = store.NewStore(rdb, time.Hour)
	}
	svc, err := verify.NewService(deps, verify.Config{})
	require.NoError(t, err)

	srv := New(svc, 1<<20, nil)
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return &harness{client: &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}}
}

func (h *harness) do(t *testing.T, method, path, contentType string, body []byte) (int, []byte) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.Header.SetMethod(method)
	req.SetRequestURI("http://verify.test" + path)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	req.SetBody(body)
	require.NoError(t, h.client.DoTimeout(req, resp, 5*time.Second))
	return resp.StatusCode(), append([]byte(nil), resp.Body()...)
}

func uploadBody(t *testing.T, fields map[string]string, img []byte) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if img != nil {
		part, err := w.CreateFormFile(verifydto.FieldImage, "shot.png")
		require.NoError(t, err)
		_, err = part.Write(img)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return w.FormDataContentType(), buf.Bytes()
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 320, 180))))
	return buf.Bytes()
}

func decodeError(t *testing.T, body []byte) verifydto.DomainError {
	t.Helper()
	var de verifydto.DomainError
	require.NoError(t, json.Unmarshal(body, &de))
	return de
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, false)
	status, body := h.do(t, fasthttp.MethodGet, "/healthz", "", nil)
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Equal(t, "ok", string(body))

	status, body = h.do(t, fasthttp.MethodGet, "/metrics", "", nil)
	assert.Equal(t, fasthttp.StatusOK, status)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, false)
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.Header.SetMethod(fasthttp.MethodOptions)
	req.SetRequestURI("http://verify.test/ocr/dls/verify")
	require.NoError(t, h.client.DoTimeout(req, resp, 5*time.Second))
	assert.Equal(t, fasthttp.StatusNoContent, resp.StatusCode())
	assert.Equal(t, "*", string(resp.Header.Peek("Access-Control-Allow-Origin")))
}

func TestVerifyRoute(t *testing.T) {
	h := newHarness(t, false)
	ct, body := uploadBody(t, map[string]string{
		verifydto.FieldMatchID:       "m-1",
		verifydto.FieldUserID:        "u1",
		verifydto.FieldLayoutVersion: "v1",
	}, pngImage(t))

	status, out := h.do(t, fasthttp.MethodPost, "/ocr/efootball/verify", ct, body)
	require.Equal(t, fasthttp.StatusOK, status, string(out))

	var res domain.Result
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Equal(t, "efootball", res.Game)
	assert.Equal(t, "m-1", res.Meta.MatchID)
	assert.Equal(t, "320x180", res.Meta.Resolution)
	assert.Equal(t, domain.SideNone, res.Winner)
	// nothing legible and no full-time signal
	assert.InDelta(t, 0.45, res.Confidence, 1e-9)
	assert.Contains(t, string(out), `"winner":null`)
}

func TestVerifyRouteErrors(t *testing.T) {
	h := newHarness(t, false)

	ct, body := uploadBody(t, map[string]string{verifydto.FieldUserID: "u1"}, pngImage(t))
	status, out := h.do(t, fasthttp.MethodPost, "/ocr/efootball/verify", ct, body)
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, verifydto.CodeMissingField, decodeError(t, out).Code)

	ct, body = uploadBody(t, map[string]string{verifydto.FieldMatchID: "m", verifydto.FieldUserID: "u"}, []byte("nope"))
	status, out = h.do(t, fasthttp.MethodPost, "/ocr/efootball/verify", ct, body)
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, verifydto.CodeImageDecode, decodeError(t, out).Code)

	status, out = h.do(t, fasthttp.MethodPost, "/ocr/chess/verify", ct, body)
	assert.Equal(t, fasthttp.StatusNotFound, status)
	assert.Equal(t, verifydto.CodeUnknownGame, decodeError(t, out).Code)

	status, out = h.do(t, fasthttp.MethodPost, "/ocr/freefire/verify/9", ct, body)
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, verifydto.CodeInvalidTeamSize, decodeError(t, out).Code)

	status, _ = h.do(t, fasthttp.MethodGet, "/ocr/efootball/verify", "", nil)
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, status)

	status, out = h.do(t, fasthttp.MethodPost, "/ocr/efootball/verify", "application/json", []byte("{}"))
	assert.Equal(t, fasthttp.StatusBadRequest, status)
	assert.Equal(t, verifydto.CodeBadRequest, decodeError(t, out).Code)
}

func TestCompareRoute(t *testing.T) {
	h := newHarness(t, false)
	payload := `{
	  "submissions": [
	    {"game":"freefire","teamSize":2,"meta":{"isFullTime":false},"winner":"A","tieBreak":"kills","confidence":0.95},
	    {"game":"freefire","teamSize":2,"meta":{"isFullTime":false},"winner":"A","tieBreak":"kills"}
	  ],
	  "serverTimestamps": ["2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z"]
	}`
	status, out := h.do(t, fasthttp.MethodPost, "/ocr/freefire/compare/2", "application/json", []byte(payload))
	require.Equal(t, fasthttp.StatusOK, status, string(out))

	var v domain.Verdict
	require.NoError(t, json.Unmarshal(out, &v))
	assert.True(t, v.Aligned)
	assert.Equal(t, domain.SideB, v.Preferred)
	assert.Equal(t, domain.SideA, v.Winner)
	assert.Equal(t, domain.TieBreakKills, v.TieBreak)

	status, out = h.do(t, fasthttp.MethodPost, "/ocr/freefire/compare/2", "application/json", []byte(`{"submissions":[]}`))
	assert.Equal(t, fasthttp.StatusConflict, status)
	assert.True(t, decodeError(t, out).Retryable)

	status, _ = h.do(t, fasthttp.MethodPost, "/ocr/freefire/compare/2", "application/json", []byte(`{`))
	assert.Equal(t, fasthttp.StatusBadRequest, status)
}

func TestStoredVerdictRoutes(t *testing.T) {
	h := newHarness(t, true)

	status, out := h.do(t, fasthttp.MethodPost, "/matches/m-9/verdict?game=efootball", "", nil)
	assert.Equal(t, fasthttp.StatusConflict, status)
	assert.Equal(t, verifydto.CodeIncomplete, decodeError(t, out).Code)

	for _, u := range []string{"u1", "u2"} {
		ct, body := uploadBody(t, map[string]string{verifydto.FieldMatchID: "m-9", verifydto.FieldUserID: u}, pngImage(t))
		status, out := h.do(t, fasthttp.MethodPost, "/ocr/efootball/verify", ct, body)
		require.Equal(t, fasthttp.StatusOK, status, string(out))
	}

	status, out = h.do(t, fasthttp.MethodPost, "/matches/m-9/verdict?game=efootball&teamSize=1", "", nil)
	require.Equal(t, fasthttp.StatusOK, status, string(out))
	var mv verifydto.MatchVerdict
	require.NoError(t, json.Unmarshal(out, &mv))
	assert.Equal(t, [2]string{"u1", "u2"}, mv.UserIDs)
	assert.Equal(t, domain.TieBreakPenaltiesRequired, mv.Verdict.TieBreak)

	status, out = h.do(t, fasthttp.MethodGet, "/matches/m-9/verdict", "", nil)
	require.Equal(t, fasthttp.StatusOK, status)
	assert.True(t, strings.Contains(string(out), `"matchId":"m-9"`))
	var stored verifydto.MatchVerdict
	require.NoError(t, json.Unmarshal(out, &stored))
	assert.Equal(t, [2]string{"u1", "u2"}, stored.UserIDs)

	status, _ = h.do(t, fasthttp.MethodGet, "/matches/unknown/verdict", "", nil)
	assert.Equal(t, fasthttp.StatusNotFound, status)
}

func TestStoredVerdictWithoutStore(t *testing.T) {
	h := newHarness(t, false)
	status, out := h.do(t, fasthttp.MethodPost, "/matches/m-1/verdict?game=dls", "", nil)
	assert.Equal(t, fasthttp.StatusServiceUnavailable, status)
	assert.Equal(t, verifydto.CodeStoreUnavailable, decodeError(t, out).Code)
}

func TestProfilesRoute(t *testing.T) {
	h := newHarness(t, false)
	status, out := h.do(t, fasthttp.MethodGet, "/profiles", "", nil)
	require.Equal(t, fasthttp.StatusOK, status)
	var infos []verifydto.ProfileInfo
	require.NoError(t, json.Unmarshal(out, &infos))
	assert.Len(t, infos, 7)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, false)
	status, _ := h.do(t, fasthttp.MethodGet, "/nope/deeper/still", "", nil)
	assert.Equal(t, fasthttp.StatusNotFound, status)
}
