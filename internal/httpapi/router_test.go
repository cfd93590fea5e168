package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"competitoriq-engine/internal/backend"
	"competitoriq-engine/internal/config"
	"competitoriq-engine/internal/digest"
	"competitoriq-engine/internal/domain"
	"competitoriq-engine/internal/events"
	"competitoriq-engine/internal/logger"
	"competitoriq-engine/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService plays both the tracker's and the aggregator's upstream.
type stubService struct {
	competitors []domain.Competitor
	summaries   []domain.Summary
	prefs       domain.Preferences

	scanResult domain.ScanResult
	scanErr    error
	createID   string
	createErr  error
	updateErr  error
	deleteErr  error
}

func (s *stubService) Scan(ctx context.Context, homepage string) (domain.ScanResult, error) {
	return s.scanResult, s.scanErr
}

func (s *stubService) CreateCompetitor(ctx context.Context, req backend.CreateRequest) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	return s.createID, nil
}

func (s *stubService) TriggerSnapshot(ctx context.Context, id string) error { return nil }

func (s *stubService) ListCompetitors(ctx context.Context, userID string) ([]domain.Competitor, error) {
	return s.competitors, nil
}

func (s *stubService) UpdateCompetitor(ctx context.Context, req backend.UpdateRequest) error {
	return s.updateErr
}

func (s *stubService) DeleteCompetitor(ctx context.Context, id string) error { return s.deleteErr }

func (s *stubService) GetPreferences(ctx context.Context, userID string) (domain.Preferences, error) {
	if s.prefs == (domain.Preferences{}) {
		return domain.DefaultPreferences(), nil
	}
	return s.prefs, nil
}

func (s *stubService) SavePreferences(ctx context.Context, userID string, prefs domain.Preferences) error {
	if !domain.ValidFreq(prefs.UpdateFreq) {
		return &backend.ValidationError{Msg: "invalid update frequency"}
	}
	return nil
}

func (s *stubService) ListSummaries(ctx context.Context, userID string) ([]domain.Summary, error) {
	return s.summaries, nil
}

func newTestMux(t *testing.T, svc *stubService) http.Handler {
	t.Helper()
	log := logger.Nop()
	user := func() string { return "user-1" }
	hub := events.NewHub()

	cfg, vr := config.NormalizeAndValidate(func() config.Config {
		var c config.Config
		c.App.Port = 38561
		c.Backend.BaseURL = "http://localhost:8000"
		c.Caller.UserID = "user-1"
		return c
	}())
	require.True(t, vr.OK())

	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	d := Deps{
		Tracker:     tracker.New(svc, nil, hub, user, log),
		Aggregator:  digest.NewAggregator(svc, nil, user, log),
		Hub:         hub,
		Log:         log,
		CfgVal:      &cfgVal,
		UserCfgPath: filepath.Join(t.TempDir(), "config.yml"),
		LoadCfg:     func() (config.Config, error) { return cfg, nil },
	}
	return Chain(NewMux(d), RequestID, Cors, Recover(log))
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestMux(t, &stubService{})
	rec := doJSON(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestMux(t, &stubService{})
	rec := doJSON(t, h, http.MethodDelete, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCompetitorsListWithRefresh(t *testing.T) {
	svc := &stubService{competitors: []domain.Competitor{
		{ID: "c-1", Name: "Acme", Homepage: "https://acme.com"},
	}}
	h := newTestMux(t, svc)

	rec := doJSON(t, h, http.MethodGet, "/competitors?refresh=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Status      tracker.Status      `json:"status"`
		Competitors []domain.Competitor `json:"competitors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, tracker.StateLoaded, out.Status.State)
	require.Len(t, out.Competitors, 1)
	assert.Equal(t, "Acme", out.Competitors[0].Name)
}

func TestCreateRequiresScan(t *testing.T) {
	h := newTestMux(t, &stubService{createID: "c-9"})

	rec := doJSON(t, h, http.MethodPost, "/competitors", `{"name":"Acme"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var e APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "validation", e.Error.Code)
}

func TestScanThenCreateFlow(t *testing.T) {
	svc := &stubService{
		scanResult: domain.ScanResult{
			Fields: map[string]string{"pricing": "https://acme.com/pricing"},
			Raw:    []byte(`{}`),
		},
		createID: "c-9",
	}
	h := newTestMux(t, svc)

	rec := doJSON(t, h, http.MethodPost, "/competitors/scan", `{"homepage":"https://acme.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/competitors", `{"name":"Acme","fields":{"pricing":"https://acme.com/pricing"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "c-9", out.ID)
}

func TestCreateConflictMapsTo409(t *testing.T) {
	svc := &stubService{
		scanResult: domain.ScanResult{Fields: map[string]string{}, Raw: []byte(`{}`)},
		createErr:  &backend.ConflictError{Msg: "exists"},
	}
	h := newTestMux(t, svc)

	rec := doJSON(t, h, http.MethodPost, "/competitors/scan", `{"homepage":"https://acme.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/competitors", `{"name":"Acme"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var e APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "conflict", e.Error.Code)
	assert.Equal(t, "exists", e.Error.Message)
}

func TestSupersededScanIsNotAnEmptySuccess(t *testing.T) {
	h := newTestMux(t, &stubService{scanErr: tracker.ErrSuperseded})

	rec := doJSON(t, h, http.MethodPost, "/competitors/scan", `{"homepage":"https://acme.com"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var e APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "superseded", e.Error.Code)
}

func TestUpdateUnknownCompetitorIs404(t *testing.T) {
	h := newTestMux(t, &stubService{})
	rec := doJSON(t, h, http.MethodPatch, "/competitors/nope", `{"name":"X"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAndDeleteByPath(t *testing.T) {
	svc := &stubService{competitors: []domain.Competitor{
		{ID: "c-1", Name: "Acme", Homepage: "https://acme.com", Fields: map[string]string{}},
	}}
	h := newTestMux(t, svc)

	rec := doJSON(t, h, http.MethodGet, "/competitors?refresh=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/competitors/c-1",
		`{"name":"Acme Renamed","fields":{"pricing":"https://acme.com/pricing"},"customLinks":["https://acme.com/changelog"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/competitors/c-1", `{"name":"X","fields":{"favicon":"u"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown link field is rejected")

	rec = doJSON(t, h, http.MethodDelete, "/competitors/c-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSummariesViewAndFilters(t *testing.T) {
	svc := &stubService{summaries: []domain.Summary{
		{Company: "Acme", Date: "2024-12-15", Summary: []string{"a", "b", "c", "d", "e"}},
		{Company: "Globex", Date: "2024-12-14", Summary: []string{"No changes detected"}},
	}}
	h := newTestMux(t, svc)

	rec := doJSON(t, h, http.MethodPost, "/summaries/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/summaries?hideNoChanges=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		View digest.View `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.View.Groups, 1, "the no-changes record is filtered out")
	assert.Equal(t, "2024-12-15", out.View.Groups[0].Date)
	assert.Equal(t, digest.ImpactHigh, out.View.Groups[0].Items[0].Impact)
	assert.Equal(t, []string{"Acme", "Globex"}, out.View.Companies, "the selector still offers hidden companies")
}

func TestPreferencesGetLoadsOnFirstAccess(t *testing.T) {
	svc := &stubService{prefs: domain.Preferences{UpdateFreq: domain.FreqWeekly, ReceiveEmail: true}}
	h := newTestMux(t, svc)

	rec := doJSON(t, h, http.MethodGet, "/preferences", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out prefsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, domain.FreqWeekly, out.Preferences.UpdateFreq)
	assert.True(t, out.Status.Loaded)
}

func TestPreferencesPutRejectsBadFreq(t *testing.T) {
	h := newTestMux(t, &stubService{})
	rec := doJSON(t, h, http.MethodPut, "/preferences", `{"updateFreq":"hourly","receiveEmail":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigGetPutValidate(t *testing.T) {
	h := newTestMux(t, &stubService{})

	rec := doJSON(t, h, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cur config.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cur))
	assert.Equal(t, 38561, cur.App.Port)

	// A put with a broken base_url comes back as structured validation.
	cur.Backend.BaseURL = ""
	b, err := json.Marshal(cur)
	require.NoError(t, err)
	rec = doJSON(t, h, http.MethodPut, "/config", string(b))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var vr config.Validation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vr))
	assert.False(t, vr.OK())

	rec = doJSON(t, h, http.MethodGet, "/config/validate", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCorsPreflight(t *testing.T) {
	h := newTestMux(t, &stubService{})
	req := httptest.NewRequest(http.MethodOptions, "/competitors", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
