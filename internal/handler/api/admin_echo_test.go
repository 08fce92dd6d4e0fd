package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"KellyMux/internal/domain/models"
	"KellyMux/internal/usecase"
	applogger "KellyMux/pkg/logger"

	"github.com/labstack/echo/v4"
)

type memAudit struct {
	entries []models.AuditEntry
}

func (a *memAudit) Record(_ context.Context, e models.AuditEntry) error {
	a.entries = append(a.entries, e)
	return nil
}

func (a *memAudit) Recent(_ context.Context, limit int) ([]models.AuditEntry, error) {
	if limit > len(a.entries) {
		limit = len(a.entries)
	}
	out := make([]models.AuditEntry, limit)
	copy(out, a.entries[len(a.entries)-limit:])
	return out, nil
}

func (a *memAudit) Close() error { return nil }

type memSnapshots struct {
	aggregate models.TargetPortfolio
	hasAgg    bool
}

func (s *memSnapshots) StoreAggregate(_ context.Context, p models.TargetPortfolio) error {
	s.aggregate, s.hasAgg = p, true
	return nil
}

func (s *memSnapshots) LoadAggregate(context.Context) (models.TargetPortfolio, bool, error) {
	return s.aggregate, s.hasAgg, nil
}

func (s *memSnapshots) StoreRoster(context.Context, map[string]models.RiskParams) error { return nil }

func (s *memSnapshots) Close() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordUpdate(string)                {}
func (nopMetrics) RecordAggregatePublished(int)       {}
func (nopMetrics) RecordClientScalar(string, float64) {}
func (nopMetrics) RecordRosterSize(int)               {}
func (nopMetrics) RecordError(string)                 {}
func (nopMetrics) RecordLatency(string, float64)      {}

func newTestServer(t *testing.T) (*echo.Echo, *usecase.Engine, *memAudit, *memSnapshots) {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	engine := usecase.NewEngine(usecase.AggregateConfig{KellyFraction: 0.3}, l, nopMetrics{})
	audit := &memAudit{}
	snaps := &memSnapshots{}

	e := echo.New()
	NewAdminEchoHandler(l, engine, audit, snaps).RegisterRoutes(e)
	return e, engine, audit, snaps
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (int, json.RawMessage) {
	t.Helper()
	var env struct {
		Status int             `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env.Status, env.Data
}

func TestAdminCommandAdd(t *testing.T) {
	e, engine, audit, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/admin", `{"cmd":"ADD","id":"StratA","mu":0.05,"sigma":0.10}`)
	status, data := decodeEnvelope(t, rec)
	if status != http.StatusOK {
		t.Fatalf("expected 200 envelope, got %d: %s", status, rec.Body.String())
	}

	var ack models.AdminAck
	if err := json.Unmarshal(data, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Status != "OK" {
		t.Fatalf("expected OK ack, got %+v", ack)
	}

	roster := engine.Clients()
	if p, ok := roster["StratA"]; !ok || p.Mu != 0.05 || p.Sigma != 0.10 {
		t.Fatalf("expected StratA registered, got %+v", roster)
	}
	if len(audit.entries) != 1 || audit.entries[0].Outcome != "OK" {
		t.Fatalf("expected OK audit entry, got %+v", audit.entries)
	}
}

func TestAdminCommandRemove(t *testing.T) {
	e, engine, _, _ := newTestServer(t)
	engine.AddOrUpdateClient("StratA", 0.05, 0.10)

	rec := doJSON(e, http.MethodPost, "/api/admin", `{"cmd":"REMOVE","id":"StratA"}`)
	status, _ := decodeEnvelope(t, rec)
	if status != http.StatusOK {
		t.Fatalf("expected 200 envelope, got %d", status)
	}
	if _, ok := engine.Clients()["StratA"]; ok {
		t.Fatalf("expected StratA removed")
	}
}

func TestAdminCommandUnknown(t *testing.T) {
	e, _, audit, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/admin", `{"cmd":"PAUSE","id":"StratA"}`)
	status, data := decodeEnvelope(t, rec)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 envelope, got %d", status)
	}

	var ack models.AdminAck
	if err := json.Unmarshal(data, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Status != "ERROR" || !strings.Contains(ack.Msg, "Unknown command 'PAUSE'") {
		t.Fatalf("expected unknown-command ack, got %+v", ack)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("rejected commands must still be journaled, got %d entries", len(audit.entries))
	}
}

func TestAdminCommandMissingField(t *testing.T) {
	e, engine, _, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/admin", `{"cmd":"ADD","id":"StratA","mu":0.05}`)
	status, data := decodeEnvelope(t, rec)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 envelope, got %d", status)
	}

	var ack models.AdminAck
	if err := json.Unmarshal(data, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Status != "ERROR" || !strings.Contains(ack.Msg, "missing sigma") {
		t.Fatalf("expected missing sigma ack, got %+v", ack)
	}
	if len(engine.Clients()) != 0 {
		t.Fatalf("rejected command must not mutate the roster")
	}
}

func TestAdminClientsSorted(t *testing.T) {
	e, engine, _, _ := newTestServer(t)
	engine.AddOrUpdateClient("Zeta", 0.10, 0.20)
	engine.AddOrUpdateClient("Alpha", 0.05, 0.10)

	rec := doJSON(e, http.MethodGet, "/api/clients", "")
	_, data := decodeEnvelope(t, rec)

	var entries []models.ClientEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "Alpha" || entries[1].ID != "Zeta" {
		t.Fatalf("expected sorted roster, got %+v", entries)
	}
}

func TestAdminAggregateNotFoundThenFound(t *testing.T) {
	e, _, _, snaps := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/api/aggregate", "")
	status, _ := decodeEnvelope(t, rec)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 envelope before first publish, got %d", status)
	}

	inst := models.NewInstrument("stock", "AAPL", "US")
	_ = snaps.StoreAggregate(context.Background(), models.TargetPortfolio{
		OwnerID: usecase.AggregateOwnerID,
		Weights: map[models.Instrument]float64{inst: 2.25},
	})

	rec = doJSON(e, http.MethodGet, "/api/aggregate", "")
	status, data := decodeEnvelope(t, rec)
	if status != http.StatusOK {
		t.Fatalf("expected 200 envelope, got %d", status)
	}

	var p models.TargetPortfolio
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("decode portfolio: %v", err)
	}
	if p.Weights[inst] != 2.25 {
		t.Fatalf("expected stored aggregate back, got %+v", p)
	}
}

func TestAdminAuditLimit(t *testing.T) {
	e, _, _, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		doJSON(e, http.MethodPost, "/api/admin", `{"cmd":"ADD","id":"StratA","mu":0.05,"sigma":0.10}`)
	}

	rec := doJSON(e, http.MethodGet, "/api/audit?limit=2", "")
	_, data := decodeEnvelope(t, rec)

	var entries []models.AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected limit applied, got %d entries", len(entries))
	}
}
