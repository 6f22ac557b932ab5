package proxy

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oarkflow/json"
)

// ProxyRequest is a client request captured for forwarding.
type ProxyRequest struct {
	Method string
	// Path is the escaped request path exactly as the client sent it.
	Path     string
	RawQuery string
	Header   http.Header
	// Body is nil when the request carries no usable JSON body.
	Body []byte
}

// hopHeaders are meaningful only for a single connection and never
// forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// errInvalidBody marks a body that was read but is not valid JSON.
type errInvalidBody struct{ err error }

func (e errInvalidBody) Error() string { return "invalid JSON body: " + e.err.Error() }
func (e errInvalidBody) Unwrap() error { return e.err }

// NewProxyRequest captures r. For methods other than GET the body is read;
// an empty body becomes nil. A body that is not valid JSON is dropped and
// reported through the returned error, which callers treat as a warning.
func NewProxyRequest(r *http.Request) (ProxyRequest, error) {
	req := ProxyRequest{
		Method:   r.Method,
		Path:     r.URL.EscapedPath(),
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
	}
	if r.Method == http.MethodGet || r.Body == nil {
		return req, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return req, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return req, nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return req, errInvalidBody{err: err}
	}
	req.Body = body
	return req, nil
}

// Target joins the backend base URL with the escaped request path and the
// raw query, unchanged. Escapes such as %2F, %3F and %23 stay escaped.
func (p ProxyRequest) Target(base *url.URL) string {
	path := p.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := strings.TrimSuffix(base.String(), "/") + path
	if p.RawQuery != "" {
		target += "?" + p.RawQuery
	}
	return target
}

// outboundHeader returns the headers sent upstream.
func (p ProxyRequest) outboundHeader() http.Header {
	h := p.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	removeHopHeaders(h)
	h.Del("Host")
	h.Del("Content-Length")
	// Only gzip is decoded on the way back.
	h.Set("Accept-Encoding", "gzip")
	if p.Body != nil {
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", "application/json")
		}
	} else {
		h.Del("Content-Type")
	}
	return h
}

func removeHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
