package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
)

// ProblemDetail is an RFC 7807 error body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Code     string `json:"code,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func WriteProblem(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	problem := &ProblemDetail{
		Type:    fmt.Sprintf("https://vialtrack.dev/errors/%d", status),
		Title:   http.StatusText(status),
		Status:  status,
		Code:    code,
		Detail:  detail,
		TraceID: w.Header().Get(RequestIDHeader),
	}
	if r != nil {
		problem.Instance = r.URL.Path
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindConflict, apperror.KindConcurrency:
		return http.StatusConflict
	case apperror.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// WriteError renders err as a problem response. Internal details never leak
// into the body.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.KindOf(err)
	code := "internal"
	if appErr, ok := asAppError(err); ok && kind != apperror.KindInternal {
		code = appErr.Code
	}
	WriteProblem(w, r, StatusFor(kind), code, apperror.MessageOf(err))
}

func WriteUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	if detail == "" {
		detail = "authentication required"
	}
	WriteProblem(w, r, http.StatusUnauthorized, "unauthorized", detail)
}
