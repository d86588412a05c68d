package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fekuna/vialtrack-service/internal/pkg/apperror"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["name", "quantity"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"quantity": {"type": "integer", "minimum": 1, "maximum": 100}
	}
}`

type testPayload struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func TestDecode(t *testing.T) {
	schema := MustCompileSchema("test", testSchema)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"name":"Botox","quantity":3}`},
		{name: "empty body", body: ``, wantErr: "request body is required"},
		{name: "malformed", body: `{"name":`, wantErr: "invalid JSON payload"},
		{name: "missing field", body: `{"name":"Botox"}`, wantErr: "quantity"},
		{name: "out of range", body: `{"name":"Botox","quantity":101}`, wantErr: "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var out testPayload
			err := Decode(req, schema, &out)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Botox", out.Name)
				assert.Equal(t, 3, out.Quantity)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"validation", apperror.Validation("invalid quantity"), http.StatusBadRequest, "invalid quantity"},
		{"not found", apperror.NotFound("vial not found"), http.StatusNotFound, "vial not found"},
		{"conflict", apperror.Conflict("vial is not active"), http.StatusConflict, "vial is not active"},
		{"concurrency", apperror.ErrConcurrentUpdate, http.StatusConflict, apperror.ErrConcurrentUpdate.Message},
		{"unclassified", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
			WriteError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var body ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantDetail, body.Detail)
			assert.Equal(t, "/api/usage", body.Instance)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per client")

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestMiddlewareChain(t *testing.T) {
	h := RequestID(Logging(logger.NewNop())(Recover(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20&days=x&from=2026-03-01", nil)

	limit, err := QueryInt(req, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 20, limit)

	def, err := QueryInt(req, "offset", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, def)

	_, err = QueryIntPtr(req, "days")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	from, err := QueryTime(req, "from")
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Equal(t, 2026, from.Year())
}
