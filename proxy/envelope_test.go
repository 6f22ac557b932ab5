package proxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapSuccessPayload(t *testing.T) {
	payloads := []string{
		`{"_id":"r1","tags":["a","b"],"n":{"z":1,"a":2}}`,
		`[1,2,3]`,
		`"text"`,
		`42`,
		`true`,
		`null`,
		`{}`,
	}
	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			res := Unwrap(http.StatusOK, []byte(`{"status":"OK","payload":`+p+`}`))
			assert.Equal(t, http.StatusOK, res.Status)
			assert.Equal(t, p, string(res.Body))
			assert.Equal(t, contentTypeJSON, res.ContentType)
		})
	}
}

func TestUnwrapCompactsPayload(t *testing.T) {
	res := Unwrap(http.StatusCreated, []byte("{\n  \"status\": \"OK\",\n  \"payload\": { \"b\": 1,  \"a\": [ 1, 2 ] }\n}"))
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, `{"b":1,"a":[1,2]}`, string(res.Body))
}

func TestUnwrapMissingPayload(t *testing.T) {
	res := Unwrap(http.StatusOK, []byte(`{"status":"OK"}`))
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "null", string(res.Body))
}

func TestUnwrapUpstreamError(t *testing.T) {
	res := Unwrap(http.StatusNotFound, []byte(`{"status":"ERROR","errors":{"message":"Course not found"}}`))
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, `"Course not found"`, string(res.Body))

	res = Unwrap(http.StatusInternalServerError, []byte(`{"status":"ERROR"}`))
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, `"Unknown error"`, string(res.Body))

	res = Unwrap(http.StatusBadRequest, []byte(`{"errors":[{"message":"title is required"}]}`))
	assert.Equal(t, `"title is required"`, string(res.Body))

	res = Unwrap(http.StatusUnauthorized, []byte(`[1,2]`))
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, `"Unknown error"`, string(res.Body))
}

func TestUnwrapEnvelopeErrorWithSuccessStatus(t *testing.T) {
	res := Unwrap(http.StatusOK, []byte(`{"status":"ERROR","errors":{"message":"nope"}}`))
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.Equal(t, `"nope"`, string(res.Body))

	res = Unwrap(http.StatusOK, []byte(`{"status":"FAILED"}`))
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.Equal(t, `"Unknown error"`, string(res.Body))
}

func TestUnwrapUnparsableBody(t *testing.T) {
	res := Unwrap(http.StatusOK, []byte(`<html>ok</html>`))
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, `"OK"`, string(res.Body))

	res = Unwrap(http.StatusOK, nil)
	assert.Equal(t, `"OK"`, string(res.Body))

	res = Unwrap(http.StatusBadGateway, []byte("  upstream exploded \n"))
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.Equal(t, "upstream exploded", string(res.Body))
	assert.Equal(t, contentTypeText, res.ContentType)

	res = Unwrap(http.StatusServiceUnavailable, nil)
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), string(res.Body))
}

func TestUnwrapNonEnvelopePassthrough(t *testing.T) {
	res := Unwrap(http.StatusOK, []byte(`{"_id": "c1"}`))
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, `{"_id":"c1"}`, string(res.Body))

	res = Unwrap(http.StatusOK, []byte(`[ ]`))
	assert.Equal(t, `[]`, string(res.Body))
}

func TestParseEnvelope(t *testing.T) {
	env, ok, err := ParseEnvelope([]byte(`{"status":"ok","payload":{"x":1},"errors":"ignored"}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusOK, env.Status)
	assert.JSONEq(t, `{"x":1}`, string(env.Payload))
	assert.Equal(t, "ignored", env.ErrorMessage)

	_, ok, err = ParseEnvelope([]byte(`{"other":1}`))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseEnvelope([]byte(`{broken`))
	assert.Error(t, err)
}

func TestUnwrapCanonicalizesPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"trailing zero", `1.0`, `1`},
		{"exponent", `1e2`, `100`},
		{"fraction", `[0.50,-2.25E1]`, `[0.5,-22.5]`},
		{"negative zero", `-0`, `0`},
		{"large exponent", `1E21`, `1e+21`},
		{"small exponent", `0.0000001`, `1e-7`},
		{"smallest plain", `0.000001`, `0.000001`},
		{"escaped slash", `"a\/b"`, `"a/b"`},
		{"unicode escape", `"\u0041\u00e9"`, `"Aé"`},
		{"surrogate pair", `"\ud83d\ude00"`, `"😀"`},
		{"control chars", `"tab\tnl\n\u001F"`, `"tab\tnl\n\u001f"`},
		{"quotes kept escaped", `"say \"hi\" \\o/"`, `"say \"hi\" \\o/"`},
		{"html not escaped", `"\u003cb\u003e \u0026"`, `"<b> &"`},
		{"keys too", `{"z\/1":1.50,"a":{"k":1e0}}`, `{"z/1":1.5,"a":{"k":1}}`},
		{"literals untouched", `[true,false,null,"e1"]`, `[true,false,null,"e1"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Unwrap(http.StatusOK, []byte(`{"status":"OK","payload":`+tt.payload+`}`))
			assert.Equal(t, http.StatusOK, res.Status)
			assert.Equal(t, tt.want, string(res.Body))
		})
	}
}

func TestUnwrapCanonicalizesPassthrough(t *testing.T) {
	res := Unwrap(http.StatusOK, []byte(`{ "score": 4.0, "url": "http:\/\/x" }`))
	assert.Equal(t, `{"score":4,"url":"http://x"}`, string(res.Body))
}

func TestCanonicalizeOutOfRangeNumber(t *testing.T) {
	assert.Equal(t, `[null,-1]`, string(canonicalize([]byte(`[1e400,-1.0]`))))
	assert.Equal(t, `0`, string(canonicalize([]byte(`1e-400`))))
}
