package fastclient

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type echo struct {
	Value string `json:"value"`
}

func serve(t *testing.T, h fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return New("http://upstream.test/", WithTimeout(2*time.Second), WithDial(func(string) (net.Conn, error) { return ln.Dial() }))
}

func TestPostJSONRoundTrip(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/echo" || !ctx.IsPost() {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		if string(ctx.Request.Header.Peek("X-Token")) != "secret" {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			return
		}
		var in echo
		_ = json.Unmarshal(ctx.PostBody(), &in)
		b, _ := json.Marshal(echo{Value: in.Value + "!"})
		ctx.SetContentType("application/json")
		ctx.SetBody(b)
	})
	c.headers = func() map[string]string { return map[string]string{"X-Token": "secret", " ": "skipped"} }

	var out echo
	if err := c.PostJSON(context.Background(), "/echo", echo{Value: "hi"}, &out, false); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if out.Value != "hi!" {
		t.Fatalf("unexpected reply %q", out.Value)
	}
	if c.BaseURL() != "http://upstream.test" {
		t.Fatalf("base url should drop trailing slash, got %q", c.BaseURL())
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		if atomic.AddInt32(&calls, 1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetBodyString(`{"value":"ok"}`)
	})

	var out echo
	if err := c.PostJSON(context.Background(), "/x", nil, &out, true); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 || out.Value != "ok" {
		t.Fatalf("calls=%d out=%q", calls, out.Value)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		atomic.AddInt32(&calls, 1)
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("bad")
	})

	err := c.PostJSON(context.Background(), "/x", nil, nil, true)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != fasthttp.StatusBadRequest || se.Body != "bad" {
		t.Fatalf("expected StatusError 400, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("4xx must not be retried, calls=%d", calls)
	}
}

func TestCanceledContext(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.PostJSON(ctx, "/x", nil, nil, true); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	if BackoffDuration(0) != 100*time.Millisecond || BackoffDuration(3) != 400*time.Millisecond || BackoffDuration(99) != 3200*time.Millisecond {
		t.Fatalf("unexpected backoff schedule")
	}
}
