package bridge

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/pageguard/internal/auditlog"
	"github.com/ppiankov/pageguard/internal/config"
	"github.com/ppiankov/pageguard/internal/engine"
	"github.com/ppiankov/pageguard/internal/grant"
	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/pin"
	"github.com/ppiankov/pageguard/internal/policy"
	"github.com/ppiankov/pageguard/internal/rules"
	"github.com/ppiankov/pageguard/internal/storage"
)

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *pin.Verifier) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	grants := grant.NewStore(storage.NewMemory())
	verifier := pin.NewVerifier(storage.NewMemory())
	machine := policy.NewMachine(grants, verifier)
	audit := auditlog.New(cfg.LogRetentionCount, storage.NewMemory())
	eng := engine.New(config.NewStore(cfg), rules.DefaultSet(), machine, grants, audit, nil)
	return NewServer(Config{Port: 0}, eng), verifier
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEventNavigate(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := postJSON(t, s.Handler(), "/v1/events", map[string]any{
		"type":  "navigate",
		"event": map[string]any{"url": "https://example.com/"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body %s", rec.Code, rec.Body)
	}
	var v engine.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if v.Decision != model.Allow {
		t.Errorf("expected allow, got %s", v.Decision)
	}
	if v.Subject != "example.com" {
		t.Errorf("subject: %q", v.Subject)
	}
}

func TestEventUnknownTypeRejected(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := postJSON(t, s.Handler(), "/v1/events", map[string]any{
		"type":  "teleport",
		"event": map[string]any{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown event type should be rejected, got %d", rec.Code)
	}
}

func TestEventFormSubmitBlocksAndOverrides(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := postJSON(t, h, "/v1/events", map[string]any{
		"type": "form_submit",
		"event": map[string]any{
			"page_url":   "http://shop.example/checkout",
			"action_url": "http://collector.test/steal",
			"method":     "POST",
			"fields": []map[string]any{
				{"name": "cc", "value": "4111111111111111"},
			},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body %s", rec.Code, rec.Body)
	}
	var v engine.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Decision != model.Block {
		t.Fatalf("expected block, got %s (score %d)", v.Decision, v.Assessment.Score)
	}
	if v.OverrideToken == "" {
		t.Fatal("blocked verdict must carry an override token")
	}

	over := postJSON(t, h, "/v1/override", map[string]any{
		"token": v.OverrideToken, "secret": "",
	})
	if over.Code != http.StatusOK {
		t.Fatalf("override: %d body %s", over.Code, over.Body)
	}
}

func TestOverrideWrongSecretForbidden(t *testing.T) {
	s, verifier := newTestServer(t, nil)
	h := s.Handler()
	if err := verifier.Set("4321"); err != nil {
		t.Fatalf("set pin: %v", err)
	}

	rec := postJSON(t, h, "/v1/events", map[string]any{
		"type": "field_change",
		"event": map[string]any{
			"page_url": "http://shop.example/",
			"field":    map[string]any{"name": "cc", "value": "4111111111111111"},
		},
	})
	var v engine.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.OverrideToken == "" {
		t.Fatal("expected a blocked verdict with token")
	}

	over := postJSON(t, h, "/v1/override", map[string]any{
		"token": v.OverrideToken, "secret": "9999",
	})
	if over.Code != http.StatusForbidden {
		t.Errorf("wrong secret should be forbidden, got %d", over.Code)
	}
	if strings.Contains(over.Body.String(), "9999") || strings.Contains(over.Body.String(), "4321") {
		t.Errorf("response leaks secret material: %s", over.Body)
	}
}

func TestOverrideUnknownTokenNotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := postJSON(t, s.Handler(), "/v1/override", map[string]any{
		"token": "pd-deadbeef", "secret": "",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown token: expected 404, got %d", rec.Code)
	}
}

func TestGrantLifecycle(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	add := postJSON(t, h, "/v1/grants", map[string]any{
		"site": "shop.example", "capability": "submit", "mode": "temporary", "ttl_seconds": 300,
	})
	if add.Code != http.StatusOK {
		t.Fatalf("add: %d body %s", add.Code, add.Body)
	}

	list := get(t, h, "/v1/grants")
	if list.Code != http.StatusOK || !strings.Contains(list.Body.String(), "shop.example") {
		t.Fatalf("list: %d body %s", list.Code, list.Body)
	}

	revoke := postJSON(t, h, "/v1/grants/revoke", map[string]any{
		"site": "shop.example", "capability": "submit",
	})
	if revoke.Code != http.StatusOK || !strings.Contains(revoke.Body.String(), "true") {
		t.Fatalf("revoke: %d body %s", revoke.Code, revoke.Body)
	}
}

func TestGrantValidation(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	missing := postJSON(t, h, "/v1/grants", map[string]any{"site": "", "capability": "submit"})
	if missing.Code != http.StatusBadRequest {
		t.Errorf("missing site: expected 400, got %d", missing.Code)
	}
	noTTL := postJSON(t, h, "/v1/grants", map[string]any{
		"site": "a.test", "capability": "submit", "mode": "temporary",
	})
	if noTTL.Code != http.StatusBadRequest {
		t.Errorf("temporary without ttl: expected 400, got %d", noTTL.Code)
	}
	badMode := postJSON(t, h, "/v1/grants", map[string]any{
		"site": "a.test", "capability": "submit", "mode": "forever",
	})
	if badMode.Code != http.StatusBadRequest {
		t.Errorf("unknown mode: expected 400, got %d", badMode.Code)
	}
}

func TestAuditQueryAndCSV(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	postJSON(t, h, "/v1/events", map[string]any{
		"type":  "navigate",
		"event": map[string]any{"url": "https://example.com/"},
	})
	postJSON(t, h, "/v1/events", map[string]any{
		"type": "field_change",
		"event": map[string]any{
			"page_url": "http://shop.example/",
			"field":    map[string]any{"name": "cc", "value": "4111111111111111"},
		},
	})

	all := get(t, h, "/v1/audit")
	if all.Code != http.StatusOK {
		t.Fatalf("audit: %d", all.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(all.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("expected 2 entries, got %d", resp.Count)
	}

	high := get(t, h, "/v1/audit?level=high")
	if err := json.Unmarshal(high.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("level=high: expected 1 entry, got %d", resp.Count)
	}

	csv := get(t, h, "/v1/audit?format=csv")
	if got := csv.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("csv content type: %q", got)
	}
	if !strings.HasPrefix(csv.Body.String(), "timestamp,subject,") {
		t.Errorf("csv header missing: %s", csv.Body)
	}

	bad := get(t, h, "/v1/audit?risk_min=abc")
	if bad.Code != http.StatusBadRequest {
		t.Errorf("bad risk_min: expected 400, got %d", bad.Code)
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/v1/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: %d", rec.Code)
	}
}

func TestAuditRiskRangeFilter(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	postJSON(t, h, "/v1/events", map[string]any{
		"type":  "navigate",
		"event": map[string]any{"url": "https://example.com/"},
	})
	postJSON(t, h, "/v1/events", map[string]any{
		"type": "field_change",
		"event": map[string]any{
			"page_url": "http://shop.example/",
			"field":    map[string]any{"name": "cc", "value": "4111111111111111"},
		},
	})

	var resp struct {
		Count int `json:"count"`
	}

	risky := get(t, h, "/v1/audit?risk_min=50")
	if risky.Code != http.StatusOK {
		t.Fatalf("risk_min: %d", risky.Code)
	}
	if err := json.Unmarshal(risky.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("risk_min=50: expected 1 entry, got %d", resp.Count)
	}

	quiet := get(t, h, "/v1/audit?risk_max=10")
	if err := json.Unmarshal(quiet.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("risk_max=10: expected 1 entry, got %d", resp.Count)
	}

	none := get(t, h, "/v1/audit?risk_min=20&risk_max=60")
	if err := json.Unmarshal(none.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("risk_min=20&risk_max=60: expected 0 entries, got %d", resp.Count)
	}
}
