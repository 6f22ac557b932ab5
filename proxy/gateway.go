// Package proxy relays same-origin API requests to the backend and unwraps
// its {status, payload, errors} envelope into plain JSON.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/oarkflow/json"
	"github.com/oarkflow/xid"
	"golang.org/x/time/rate"

	"github.com/oarkflow/courselookup"
)

// RequestIDHeader carries the id assigned to every proxied request.
const RequestIDHeader = "X-Request-Id"

// Observer receives one event per proxied request. err is set for
// transport failures, in which case status is 500.
type Observer interface {
	ObserveUpstream(method string, status int, took time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveUpstream(string, int, time.Duration, error) {}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the shared client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithRateLimit bounds the rate of upstream requests. A non-positive rps
// disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gateway) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithTimeout bounds each upstream exchange. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// WithLogger sets the gateway's logger.
func WithLogger(logger *courselookup.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithObserver reports every proxied request to observer.
func WithObserver(observer Observer) Option {
	return func(g *Gateway) {
		if observer != nil {
			g.observer = observer
		}
	}
}

// Gateway forwards requests to one backend.
type Gateway struct {
	backend  *url.URL
	client   *http.Client
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *courselookup.Logger
	observer Observer
}

// NewHTTPClient returns the pooled client shared by all proxied requests.
// Transparent decompression is off so gzip is handled explicitly.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   32,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
			DisableCompression:    true,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// New returns a gateway for the backend at backendURL.
func New(backendURL string, opts ...Option) (*Gateway, error) {
	u, err := url.Parse(strings.TrimSpace(backendURL))
	if err != nil {
		return nil, fmt.Errorf("proxy: invalid backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("proxy: backend url must be absolute http(s), got %q", backendURL)
	}
	g := &Gateway{
		backend:  u,
		client:   NewHTTPClient(),
		logger:   courselookup.NoopLogger(),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Get forwards req as a GET.
func (g *Gateway) Get(ctx context.Context, req ProxyRequest) Result {
	req.Method = http.MethodGet
	req.Body = nil
	return g.sendRequest(ctx, req)
}

// Post forwards req as a POST.
func (g *Gateway) Post(ctx context.Context, req ProxyRequest) Result {
	req.Method = http.MethodPost
	return g.sendRequest(ctx, req)
}

// Put forwards req as a PUT.
func (g *Gateway) Put(ctx context.Context, req ProxyRequest) Result {
	req.Method = http.MethodPut
	return g.sendRequest(ctx, req)
}

// Delete forwards req as a DELETE.
func (g *Gateway) Delete(ctx context.Context, req ProxyRequest) Result {
	req.Method = http.MethodDelete
	return g.sendRequest(ctx, req)
}

// Result is a Response together with the headers to send.
type Result struct {
	Response
	Header http.Header
}

// ServeHTTP relays r. Methods other than GET, POST, PUT and DELETE are
// rejected with 405.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Header.Get(RequestIDHeader) == "" {
		r.Header.Set(RequestIDHeader, xid.New().String())
	}
	req, err := NewProxyRequest(r)
	if err != nil {
		g.logger.WarnContext(ctx, "proxy request body ignored",
			"request_id", r.Header.Get(RequestIDHeader),
			"path", r.URL.Path,
			"error", err,
		)
	}

	var res Result
	switch r.Method {
	case http.MethodGet:
		res = g.Get(ctx, req)
	case http.MethodPost:
		res = g.Post(ctx, req)
	case http.MethodPut:
		res = g.Put(ctx, req)
	case http.MethodDelete:
		res = g.Delete(ctx, req)
	default:
		w.Header().Set("Allow", "GET, POST, PUT, DELETE")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	writeResult(w, res)
}

func writeResult(w http.ResponseWriter, res Result) {
	h := w.Header()
	for k, vs := range res.Header {
		h[k] = append([]string(nil), vs...)
	}
	if res.ContentType != "" {
		h.Set("Content-Type", res.ContentType)
	}
	h.Set("Content-Length", strconv.Itoa(len(res.Body)))
	w.WriteHeader(res.Status)
	_, _ = w.Write(res.Body)
}

func (g *Gateway) sendRequest(ctx context.Context, req ProxyRequest) Result {
	start := time.Now()
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = xid.New().String()
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		req.Header.Set(RequestIDHeader, requestID)
	}
	log := g.logger.With("request_id", requestID, "method", req.Method, "path", req.Path)

	res, err := g.exchange(ctx, req)
	took := time.Since(start)
	if err != nil {
		log.ErrorContext(ctx, "proxy upstream request failed", "error", err, "took", took)
		g.observer.ObserveUpstream(req.Method, http.StatusInternalServerError, took, err)
		res = transportFailure(err)
	} else {
		log.DebugContext(ctx, "proxy request completed", "status", res.Status, "took", took)
		g.observer.ObserveUpstream(req.Method, res.Status, took, nil)
	}
	if res.Header == nil {
		res.Header = make(http.Header)
	}
	res.Header.Set(RequestIDHeader, requestID)
	return res
}

func (g *Gateway) exchange(ctx context.Context, req ProxyRequest) (Result, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	out, err := http.NewRequestWithContext(ctx, req.Method, req.Target(g.backend), body)
	if err != nil {
		return Result{}, err
	}
	out.Header = req.outboundHeader()

	resp, err := g.client.Do(out)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Response: Unwrap(resp.StatusCode, raw),
		Header:   responseHeader(resp.Header),
	}, nil
}

// readBody reads the response body, decompressing gzip.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if isGzip(resp.Header.Get("Content-Encoding")) {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return io.ReadAll(r)
}

func isGzip(encoding string) bool {
	for _, enc := range strings.Split(encoding, ",") {
		enc = strings.ToLower(strings.TrimSpace(enc))
		if enc == "gzip" || enc == "x-gzip" {
			return true
		}
	}
	return false
}

// responseHeader copies upstream headers that stay valid once the body has
// been decoded and rewritten.
func responseHeader(upstream http.Header) http.Header {
	h := upstream.Clone()
	removeHopHeaders(h)
	h.Del("Content-Encoding")
	h.Del("Content-Length")
	h.Del("Content-Type")
	return h
}

type failureBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func transportFailure(err error) Result {
	body, merr := json.Marshal(failureBody{Error: "Internal server error", Message: err.Error()})
	if merr != nil {
		body = []byte(`{"error":"Internal server error"}`)
	}
	return Result{
		Response: Response{
			Status:      http.StatusInternalServerError,
			ContentType: contentTypeJSON,
			Body:        body,
		},
		Header: make(http.Header),
	}
}
