package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	httpadapter "github.com/couchcryptid/hazard-report-service/internal/adapter/http"
	"github.com/couchcryptid/hazard-report-service/internal/adapter/memory"
	"github.com/couchcryptid/hazard-report-service/internal/auth"
	"github.com/couchcryptid/hazard-report-service/internal/domain"
	"github.com/couchcryptid/hazard-report-service/internal/geocache"
	"github.com/couchcryptid/hazard-report-service/internal/observability"
	"github.com/couchcryptid/hazard-report-service/internal/reports"
)

// --- fakes ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type stubGeocoder struct {
	address string
	err     error
}

func (g *stubGeocoder) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return g.address, g.err
}

type brokenStore struct {
	*memory.ReportStore
}

func (brokenStore) ListAll(context.Context) ([]domain.Report, error) {
	return nil, errors.New("pq: relation \"reports\" does not exist")
}

// --- harness ---

type harness struct {
	srv      *httpadapter.Server
	authSvc  *auth.Service
	geocoder *stubGeocoder
}

type harnessOpts struct {
	readyErr error
	policy   geocache.FailurePolicy
	store    reports.Store
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClock()

	store := opts.store
	if store == nil {
		store = memory.NewReportStore()
	}
	geo := &stubGeocoder{address: "Av. Paulista, São Paulo"}
	cache := geocache.New(geo, geocache.Options{Policy: opts.policy, Clock: clock}, metrics, logger)
	reportSvc := reports.NewService(store, cache, nil, clock, metrics, logger)
	authSvc := auth.NewService(memory.NewUserStore(),
		auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", 0, clock),
		clock, metrics, logger, auth.WithBcryptCost(bcrypt.MinCost))

	srv := httpadapter.NewServer(":0", reportSvc, authSvc, &mockReadiness{err: opts.readyErr}, metrics, logger)
	return &harness{srv: srv, authSvc: authSvc, geocoder: geo}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

// register creates a user and returns its token and id.
func (h *harness) register(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": "Secr3t!"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)

	id, err := h.authSvc.Authenticate(context.Background(), body.Token)
	require.NoError(t, err)
	return body.Token, id
}

func reportBody(lat, lon float64, address string) map[string]any {
	return map[string]any{
		"type":        "flood",
		"description": "street flooded",
		"latitude":    lat,
		"longitude":   lon,
		"address":     address,
	}
}

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) domain.Report {
	t.Helper()
	var r domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	return r
}

func errorFields(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var body struct {
		Errors []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	out := make([]string, len(body.Errors))
	for i, e := range body.Errors {
		out[i] = e.Field
	}
	return out
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	rec := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReflectsChecker(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/readyz", "", nil).Code)

	h = newHarness(t, harnessOpts{readyErr: errors.New("postgres not ready")})
	assert.Equal(t, http.StatusServiceUnavailable, h.do(t, http.MethodGet, "/readyz", "", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	rec := h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- auth ---

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.register(t, "ana@example.com")

	rec := h.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ANA@example.com", "password": "Secr3t!"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)

	rec = h.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ana@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	h.register(t, "ana@example.com")

	rec := h.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "ana@example.com", "password": "Secr3t!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"email"}, errorFields(t, rec))

	rec = h.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "not-an-email", "password": "weak"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorFields(t, rec), "email")
	assert.Contains(t, errorFields(t, rec), "password")
}

func TestReportsRequireToken(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer abc.def.ghi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/reports", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.srv.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

// --- reports ---

func TestCreateReport(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	token, userID := h.register(t, "ana@example.com")

	body := reportBody(-23.56, -46.65, "")
	body["ownerId"] = "intruder"
	body["id"] = 999
	rec := h.do(t, http.MethodPost, "/reports", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	r := decodeReport(t, rec)
	assert.Equal(t, userID, r.OwnerID)
	assert.NotEqual(t, int64(999), r.ID)
	assert.Equal(t, "Av. Paulista, São Paulo", r.Address)
	assert.Equal(t, fmt.Sprintf("/reports/%d", r.ID), rec.Header().Get("Location"))

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/reports/%d", r.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateReportValidation(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	token, _ := h.register(t, "ana@example.com")

	rec := h.do(t, http.MethodPost, "/reports", token, map[string]any{"type": "flood"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.ElementsMatch(t, []string{"description", "latitude", "longitude"}, errorFields(t, rec))

	rec = h.do(t, http.MethodPost, "/reports", token, `{"type":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"body"}, errorFields(t, rec))

	rec = h.do(t, http.MethodPost, "/reports", token, `{"type":"flood","latitude":"north"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"latitude"}, errorFields(t, rec))

	rec = h.do(t, http.MethodPost, "/reports", token, `{"type":"flood","date":"yesterday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"date"}, errorFields(t, rec))
}

func TestListMineAndAll(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	tokenA, userA := h.register(t, "a@example.com")
	tokenB, _ := h.register(t, "b@example.com")

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/reports", tokenA, reportBody(-23.56, -46.65, "")).Code)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/reports", tokenB, reportBody(-23.56, -46.65, "")).Code)

	rec := h.do(t, http.MethodGet, "/reports/me", tokenA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, userA, mine[0].OwnerID)

	rec = h.do(t, http.MethodGet, "/reports", tokenA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}

func TestListEmptyIsArray(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	token, _ := h.register(t, "a@example.com")

	rec := h.do(t, http.MethodGet, "/reports/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	tokenA, _ := h.register(t, "a@example.com")
	tokenB, _ := h.register(t, "b@example.com")

	rec := h.do(t, http.MethodPost, "/reports", tokenA, reportBody(-23.56, -46.65, "Rua A"))
	require.Equal(t, http.StatusCreated, rec.Code)
	path := fmt.Sprintf("/reports/%d", decodeReport(t, rec).ID)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPut, path, tokenB, reportBody(-23.56, -46.65, "Rua B")).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, path, tokenB, nil).Code)

	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodPut, path, tokenA, reportBody(-23.56, -46.65, "Rua A, 10")).Code)
	got := decodeReport(t, h.do(t, http.MethodGet, path, tokenB, nil))
	assert.Equal(t, "Rua A, 10", got.Address)

	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, path, tokenA, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, path, tokenA, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPut, "/reports/12345", tokenA, reportBody(1, 1, "x")).Code)
}

func TestInvalidReportID(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	token, _ := h.register(t, "a@example.com")

	rec := h.do(t, http.MethodDelete, "/reports/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"id"}, errorFields(t, rec))
}

func TestListNearby(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	token, _ := h.register(t, "a@example.com")

	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/reports", token, reportBody(-23.5510, -46.6340, "Sé")).Code)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/reports", token, reportBody(-22.9068, -43.1729, "Rio")).Code)

	rec := h.do(t, http.MethodGet, "/reports/nearby?lat=-23.5505&lon=-46.6333&radius_km=10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []struct {
		Address    string  `json:"address"`
		DistanceKm float64 `json:"distanceKm"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Sé", got[0].Address)
	assert.Less(t, got[0].DistanceKm, 1.0)

	rec = h.do(t, http.MethodGet, "/reports/nearby?lat=abc&lon=1", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"lat"}, errorFields(t, rec))

	rec = h.do(t, http.MethodGet, "/reports/nearby?lat=1&lon=1&radius_km=500", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"radius_km"}, errorFields(t, rec))
}

func TestGeocodeFailurePolicies(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		h := newHarness(t, harnessOpts{policy: geocache.FailOpen})
		h.geocoder.err = errors.New("nominatim timeout")
		token, _ := h.register(t, "a@example.com")

		rec := h.do(t, http.MethodPost, "/reports", token, reportBody(1, 1, ""))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Empty(t, decodeReport(t, rec).Address)
	})

	t.Run("closed", func(t *testing.T) {
		h := newHarness(t, harnessOpts{policy: geocache.FailClosed})
		h.geocoder.err = errors.New("nominatim timeout")
		token, _ := h.register(t, "a@example.com")

		rec := h.do(t, http.MethodPost, "/reports", token, reportBody(1, 1, ""))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.NotContains(t, rec.Body.String(), "nominatim")
	})
}

func TestStoreFailureIsGeneric500(t *testing.T) {
	h := newHarness(t, harnessOpts{store: brokenStore{memory.NewReportStore()}})
	token, _ := h.register(t, "a@example.com")

	rec := h.do(t, http.MethodGet, "/reports", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")
}
