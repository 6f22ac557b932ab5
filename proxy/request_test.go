package proxy

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProxyRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/reviews?course=COMP248&x=%2F", strings.NewReader("  {\"rating\": 5}\n"))
	r.Header.Set("Authorization", "Bearer t")

	req, err := NewProxyRequest(r)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/reviews", req.Path)
	assert.Equal(t, "course=COMP248&x=%2F", req.RawQuery)
	assert.Equal(t, `{"rating": 5}`, string(req.Body))
	assert.Equal(t, "Bearer t", req.Header.Get("Authorization"))
}

func TestNewProxyRequestKeepsEscapedPath(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/instructors/a%2Fb%3Fc%23d?x=1", nil)
	req, err := NewProxyRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/instructors/a%2Fb%3Fc%23d", req.Path)
	assert.Equal(t, "x=1", req.RawQuery)
}

func TestNewProxyRequestBodies(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		body    string
		want    []byte
		invalid bool
	}{
		{"get ignores body", http.MethodGet, `{"a":1}`, nil, false},
		{"empty body", http.MethodPost, "", nil, false},
		{"whitespace body", http.MethodPut, " \n\t", nil, false},
		{"json scalar", http.MethodPost, `"text"`, []byte(`"text"`), false},
		{"invalid json", http.MethodPost, `{"a":`, nil, true},
		{"delete with body", http.MethodDelete, `[1,2]`, []byte(`[1,2]`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "/api/x", strings.NewReader(tt.body))
			req, err := NewProxyRequest(r)
			if tt.invalid {
				var bodyErr errInvalidBody
				assert.True(t, errors.As(err, &bodyErr))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, req.Body)
		})
	}
}

func TestOutboundHeader(t *testing.T) {
	req := ProxyRequest{
		Header: http.Header{
			"Connection":        {"keep-alive, X-Trace"},
			"X-Trace":           {"1"},
			"Keep-Alive":        {"timeout=5"},
			"Transfer-Encoding": {"chunked"},
			"Host":              {"frontend.local"},
			"Content-Length":    {"12"},
			"Content-Type":      {"text/plain"},
			"Accept-Encoding":   {"br, zstd"},
			"Accept-Language":   {"fr-CA"},
		},
	}

	h := req.outboundHeader()
	for _, name := range []string{"Connection", "X-Trace", "Keep-Alive", "Transfer-Encoding", "Host", "Content-Length", "Content-Type"} {
		assert.Empty(t, h.Get(name), name)
	}
	assert.Equal(t, "gzip", h.Get("Accept-Encoding"))
	assert.Equal(t, "fr-CA", h.Get("Accept-Language"))
	assert.Equal(t, "keep-alive, X-Trace", req.Header.Get("Connection"))

	req.Body = []byte(`{}`)
	assert.Equal(t, "text/plain", req.outboundHeader().Get("Content-Type"))
	req.Header.Del("Content-Type")
	assert.Equal(t, "application/json", req.outboundHeader().Get("Content-Type"))
}

func TestOutboundHeaderNil(t *testing.T) {
	h := ProxyRequest{}.outboundHeader()
	assert.Equal(t, "gzip", h.Get("Accept-Encoding"))
}
