// Package httperr renders errors as the JSON error envelope shared by every API handler.
package httperr

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
)

type Envelope struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	TraceID  string            `json:"trace_id"`
	Meta     Meta              `json:"meta"`
	Problems []ruleerr.Problem `json:"problems,omitempty"`
}

type Meta struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

// Classify maps an error kind to an HTTP status and a stable code.
func Classify(err error) (int, string) {
	if _, ok := ruleerr.AsValidation(err); ok {
		return http.StatusUnprocessableEntity, "validation_failed"
	}
	switch {
	case ruleerr.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case ruleerr.IsForbidden(err):
		return http.StatusForbidden, "forbidden"
	case ruleerr.IsInvalidInput(err):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func Write(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	writeEnvelope(w, r, status, Envelope{Code: code, Message: message})
}

// WriteErr classifies err and writes it. Internal errors do not leak their text.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	env := Envelope{Code: code, Message: err.Error()}
	if status == http.StatusInternalServerError {
		env.Message = "internal error"
	}
	if verr, ok := ruleerr.AsValidation(err); ok {
		env.Message = "validation failed"
		env.Problems = verr.Problems
	}
	writeEnvelope(w, r, status, env)
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	env.TraceID = TraceID(r)
	env.Meta = Meta{Path: r.URL.Path, Method: r.Method}
	WriteJSON(w, status, env)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// TraceID extracts the trace id from a W3C traceparent header.
func TraceID(r *http.Request) string {
	traceparent := strings.TrimSpace(r.Header.Get("traceparent"))
	if traceparent == "" {
		return ""
	}
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return ""
	}
	traceID := strings.ToLower(parts[1])
	if len(traceID) != 32 || traceID == "00000000000000000000000000000000" {
		return ""
	}
	for _, ch := range traceID {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return ""
		}
	}
	return traceID
}
