package proxy

import (
	"bytes"
	stdjson "encoding/json"
	"net/http"
	"strings"

	"github.com/oarkflow/json"
)

// Status is the outcome reported inside an upstream envelope.
type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// UnknownError is the message used when an upstream failure carries none.
const UnknownError = "Unknown error"

// Placeholder is the body returned when a successful upstream response
// cannot be parsed.
var Placeholder = []byte(`"OK"`)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
)

// UpstreamEnvelope is the backend's response wrapper.
type UpstreamEnvelope struct {
	Status Status
	// Payload is the raw inner value; nil when the envelope has none.
	Payload json.RawMessage
	// ErrorMessage is errors.message, empty when absent.
	ErrorMessage string
}

type wireEnvelope struct {
	Status  *string         `json:"status"`
	Payload json.RawMessage `json:"payload"`
	Errors  json.RawMessage `json:"errors"`
}

// ParseEnvelope decodes body. ok is false when body is valid JSON but not
// an envelope object; err is set when body is not valid JSON.
func ParseEnvelope(body []byte) (env UpstreamEnvelope, ok bool, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return UpstreamEnvelope{}, false, err
		}
		return UpstreamEnvelope{}, false, nil
	}
	_, hasStatus := fields["status"]
	_, hasPayload := fields["payload"]
	_, hasErrors := fields["errors"]
	if !hasStatus && !hasPayload && !hasErrors {
		return UpstreamEnvelope{}, false, nil
	}
	var wire wireEnvelope
	if err := json.Unmarshal(body, &wire); err != nil {
		return UpstreamEnvelope{}, false, nil
	}
	env.Status = StatusOK
	if wire.Status != nil {
		switch strings.ToUpper(strings.TrimSpace(*wire.Status)) {
		case "", string(StatusOK):
		default:
			env.Status = StatusError
		}
	}
	if len(wire.Payload) > 0 {
		env.Payload = wire.Payload
	}
	env.ErrorMessage = errorMessage(wire.Errors)
	return env, true, nil
}

// errorMessage extracts the message from an errors value: an object with
// "message", an array whose first element carries one, or a bare string.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if s, ok := obj.Message.(string); ok {
			return s
		}
		return ""
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) > 0 {
			return errorMessage(list[0])
		}
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// Response is what the proxy sends back to its client.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Unwrap maps an upstream status and decoded body to the client response.
// It performs no I/O.
func Unwrap(upstreamStatus int, body []byte) Response {
	success := upstreamStatus >= 200 && upstreamStatus < 300
	env, isEnvelope, err := ParseEnvelope(body)
	if err != nil {
		if success {
			return Response{Status: http.StatusOK, ContentType: contentTypeJSON, Body: Placeholder}
		}
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = http.StatusText(upstreamStatus)
		}
		return Response{Status: upstreamStatus, ContentType: contentTypeText, Body: []byte(text)}
	}

	if !success {
		return messageResponse(upstreamStatus, env.ErrorMessage)
	}
	if !isEnvelope {
		return Response{Status: http.StatusOK, ContentType: contentTypeJSON, Body: compact(body)}
	}
	if env.Status == StatusError {
		return messageResponse(http.StatusBadGateway, env.ErrorMessage)
	}
	if env.Payload == nil {
		return Response{Status: http.StatusOK, ContentType: contentTypeJSON, Body: []byte("null")}
	}
	return Response{Status: http.StatusOK, ContentType: contentTypeJSON, Body: compact(env.Payload)}
}

func messageResponse(status int, msg string) Response {
	if msg == "" {
		msg = UnknownError
	}
	body, err := json.Marshal(msg)
	if err != nil {
		body = []byte(`"` + UnknownError + `"`)
	}
	return Response{Status: status, ContentType: contentTypeJSON, Body: body}
}

// compact strips insignificant whitespace and canonicalizes numbers and
// strings, keeping key order.
func compact(raw []byte) []byte {
	var buf bytes.Buffer
	if err := stdjson.Compact(&buf, raw); err != nil {
		return bytes.TrimSpace(raw)
	}
	return canonicalize(buf.Bytes())
}
