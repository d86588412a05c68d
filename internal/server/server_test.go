package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/model"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/server"
	"github.com/fekuna/vialtrack-service/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tm, err := auth.NewTokenManager("test-secret-0123456789abcdef", "vialtrack-test", time.Hour)
	require.NoError(t, err)

	h := server.NewHandler(server.MemoryRepositories(memory.NewStore()), server.Options{
		Tokens: tm,
		Logger: logger.NewNop(),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func signup(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	var session struct {
		Token string `json:"token"`
	}
	status := call(t, srv, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":       email,
		"password":    "correct-horse",
		"name":        "Clinic Owner",
		"clinic_name": "Glow Aesthetics",
	}, &session)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, session.Token)
	return session.Token
}

func TestClinicWorkflow(t *testing.T) {
	srv := newTestServer(t)
	token := signup(t, srv, "owner@glow.test")

	// 1. Product
	var created struct {
		Product model.Product `json:"product"`
	}
	status := call(t, srv, http.MethodPost, "/api/products", token, map[string]interface{}{
		"name":              "Botox",
		"brand":             "Allergan",
		"category":          "NEUROTOXIN",
		"unit_type":         "UNITS",
		"units_per_vial":    100,
		"reorder_threshold": 5,
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.Product.ID)

	// 2. Intake
	var intake struct {
		VialsCreated int          `json:"vials_created"`
		Vials        []model.Vial `json:"vials"`
	}
	status = call(t, srv, http.MethodPost, "/api/inventory/intake", token, map[string]interface{}{
		"vials": []map[string]interface{}{{
			"product_id":      created.Product.ID,
			"lot_number":      "C123",
			"expiration_date": "2030-01-01",
			"quantity":        3,
		}},
	}, &intake)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, 3, intake.VialsCreated)
	require.Len(t, intake.Vials, 3)
	vialID := intake.Vials[0].ID

	// 3. Usage
	var usage struct {
		UsageLog model.UsageLog `json:"usage_log"`
	}
	status = call(t, srv, http.MethodPost, "/api/usage", token, map[string]interface{}{
		"vial_id":       vialID,
		"quantity_used": 20,
		"patient_ref":   "PT-0042",
	}, &usage)
	require.Equal(t, http.StatusCreated, status)

	var vial struct {
		Vial model.Vial `json:"vial"`
	}
	status = call(t, srv, http.MethodGet, "/api/vials/"+vialID, token, nil, &vial)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, vial.Vial.RemainingQuantity.Equal(decimal.NewFromInt(80)), "remaining %s", vial.Vial.RemainingQuantity)
	assert.Equal(t, model.VialActive, vial.Vial.Status)

	// 4. Inventory
	var inventory struct {
		Vials []model.Vial `json:"vials"`
		Total int          `json:"total"`
	}
	status = call(t, srv, http.MethodGet, "/api/inventory?search=c12", token, nil, &inventory)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, inventory.Total)

	// 5. Audit trail
	var trail struct {
		Logs  []model.AuditLog `json:"logs"`
		Total int              `json:"total"`
	}
	status = call(t, srv, http.MethodGet, "/api/audit?action=VIAL_RECEIVED", token, nil, &trail)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, trail.Total)
	assert.EqualValues(t, 3, trail.Logs[0].Metadata["vialsCreated"])

	status = call(t, srv, http.MethodGet, "/api/audit?action=USAGE_LOGGED", token, nil, &trail)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, trail.Total)
	require.NotNil(t, trail.Logs[0].EntityID)
	assert.Equal(t, vialID, *trail.Logs[0].EntityID)

	// 6. Dashboard
	var alerts struct {
		Dashboard struct {
			ActiveVials int `json:"active_vials"`
			LowStock    []struct {
				ProductID string `json:"product_id"`
			} `json:"low_stock"`
			RecentUsage []model.UsageLog `json:"recent_usage"`
		} `json:"dashboard"`
	}
	status = call(t, srv, http.MethodGet, "/api/alerts", token, nil, &alerts)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, alerts.Dashboard.ActiveVials)
	require.Len(t, alerts.Dashboard.LowStock, 1)
	assert.Equal(t, created.Product.ID, alerts.Dashboard.LowStock[0].ProductID)
	assert.Len(t, alerts.Dashboard.RecentUsage, 1)
}

func TestTenantIsolation(t *testing.T) {
	srv := newTestServer(t)
	first := signup(t, srv, "first@glow.test")
	second := signup(t, srv, "second@glow.test")

	var created struct {
		Product model.Product `json:"product"`
	}
	status := call(t, srv, http.MethodPost, "/api/products", first, map[string]interface{}{
		"name":           "Juvederm",
		"brand":          "Allergan",
		"category":       "FILLER",
		"unit_type":      "ML",
		"units_per_vial": 1,
	}, &created)
	require.Equal(t, http.StatusCreated, status)

	var problem httpx.ProblemDetail
	status = call(t, srv, http.MethodGet, "/api/products/"+created.Product.ID, second, nil, &problem)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, http.StatusNotFound, problem.Status)
}

func TestRequestErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  func() string
		body   interface{}
		status int
	}{
		{
			name:   "health is public",
			method: http.MethodGet,
			path:   "/api/health",
			status: http.StatusOK,
		},
		{
			name:   "missing token",
			method: http.MethodGet,
			path:   "/api/inventory",
			status: http.StatusUnauthorized,
		},
		{
			name:   "garbage token",
			method: http.MethodGet,
			path:   "/api/inventory",
			token:  func() string { return "not-a-jwt" },
			status: http.StatusUnauthorized,
		},
		{
			name:   "unknown route",
			method: http.MethodGet,
			path:   "/nowhere",
			status: http.StatusNotFound,
		},
		{
			name:   "signup payload fails schema",
			method: http.MethodPost,
			path:   "/api/auth/signup",
			body:   map[string]string{"email": "a@b.c"},
			status: http.StatusBadRequest,
		},
		{
			name:   "intake without vials",
			method: http.MethodPost,
			path:   "/api/inventory/intake",
			token:  func() string { return signup(t, srv, "intake@glow.test") },
			body:   map[string]interface{}{"vials": []interface{}{}},
			status: http.StatusBadRequest,
		},
		{
			name:   "usage on unknown vial",
			method: http.MethodPost,
			path:   "/api/usage",
			token:  func() string { return signup(t, srv, "usage@glow.test") },
			body:   map[string]interface{}{"vial_id": "00000000-0000-0000-0000-000000000000", "quantity_used": 1},
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := ""
			if tt.token != nil {
				token = tt.token()
			}
			var out map[string]interface{}
			status := call(t, srv, tt.method, tt.path, token, tt.body, &out)
			assert.Equal(t, tt.status, status)
			if tt.status >= http.StatusBadRequest {
				assert.EqualValues(t, tt.status, out["status"])
			}
		})
	}
}
