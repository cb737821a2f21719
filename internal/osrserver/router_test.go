package osrserver

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/open-sync-router/internal/syncer"
	"github.com/r9s-ai/open-sync-router/pkg/config"
	"github.com/r9s-ai/open-sync-router/pkg/httpclient/httpclienttest"
)

const testEnvironments = `
default: staging
environments:
  staging:
    source: {base_url: "https://crm.example.com"}
    target: {base_url: "https://api.airtable.com/v0", base_id: "appS"}
    entities:
      - source_entity_name: contact
        target_entity_name: Contacts
        fields:
          - norm_name: email
            source_path: "contact.['Email Address']"
            target_path: "fields.['Email']"
  prod:
    source: {base_url: "https://crm.example.com"}
    target: {base_url: "https://target.example.com", base_id: "appP"}
    entities:
      - source_entity_name: contact
        target_entity_name: People
        fields:
          - {norm_name: email, source_path: contact.email, target_path: fields.email}
`

type testServer struct {
	engine *gin.Engine
	fake   *httpclienttest.FakeDoer
	logs   *bytes.Buffer
}

func newTestServer(t *testing.T, apiKey string, responses ...*http.Response) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	envs, err := config.ParseEnvironments([]byte(testEnvironments))
	if err != nil {
		t.Fatalf("environments: %v", err)
	}
	creds, err := config.ParseCredentials([]byte(`
api.airtable.com:
  headers:
    Authorization: "Bearer pat"
`))
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	cfg := config.Default()
	cfg.Auth.APIKey = apiKey
	cfg.Logging.AccessLog = true

	fake := httpclienttest.NewFakeDoer(t, responses...)
	var logs bytes.Buffer
	engine := NewRouter(cfg, newState(envs, creds), &syncer.Client{HTTP: fake}, log.New(&logs, "", 0), false, "", nil)
	return &testServer{engine: engine, fake: fake, logs: &logs}
}

func (s *testServer) get(t *testing.T, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var body map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body %q: %v", w.Body.String(), err)
		}
	}
	return w, body
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	s := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodOptions, "/?endpoint=configs-fetch", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin=%q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Fatalf("allow-methods=%q", got)
	}

	w, _ = s.get(t, "/?endpoint=configs-fetch")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "*" {
		t.Fatalf("cors headers missing on error response: %q", got)
	}
}

func TestHealthzAndRequestID(t *testing.T) {
	s := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Osr-Request-Id", "rid-1")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if got := w.Header().Get("X-Osr-Request-Id"); got != "rid-1" {
		t.Fatalf("request id=%q", got)
	}
	if !strings.Contains(s.logs.String(), "request_id=rid-1") {
		t.Fatalf("access log=%q", s.logs.String())
	}
}

func TestConfigsFetch(t *testing.T) {
	s := newTestServer(t, "")

	w, body := s.get(t, "/?endpoint=configs-fetch")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	entities, ok := body["entities"].([]any)
	if !ok || len(entities) != 1 {
		t.Fatalf("entities=%#v", body["entities"])
	}
	first := entities[0].(map[string]any)
	if first["source_entity_name"] != "contact" || first["target_entity_name"] != "Contacts" {
		t.Fatalf("entity=%#v", first)
	}

	w, body = s.get(t, "/api/configs-fetch?env=prod")
	if w.Code != http.StatusOK {
		t.Fatalf("prod status=%d", w.Code)
	}
	if entities, _ := body["entities"].([]any); len(entities) != 1 {
		t.Fatalf("prod entities=%#v", body["entities"])
	}

	w, _ = s.get(t, "/?endpoint=configs-fetch&env=qa")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown env status=%d", w.Code)
	}
}

func TestUnknownEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	for _, target := range []string{"/", "/?endpoint=nope", "/api/nope"} {
		w, body := s.get(t, target)
		if w.Code != http.StatusNotFound || body["error"] != "Unknown endpoint" {
			t.Fatalf("%s: status=%d body=%v", target, w.Code, body)
		}
	}
}

func TestMissingParameters(t *testing.T) {
	s := newTestServer(t, "")
	cases := map[string]string{
		"/?endpoint=source-fetch&entity=contact": "Missing entity or id",
		"/?endpoint=target-fetch&id=rec1":        "Missing entity or id",
		"/?endpoint=source-fetch-and-sync-with-create-or-update&entity=contact": "Missing entity or source id",
	}
	for target, msg := range cases {
		w, body := s.get(t, target)
		if w.Code != http.StatusBadRequest || body["error"] != msg {
			t.Fatalf("%s: status=%d body=%v", target, w.Code, body)
		}
	}
	if len(s.fake.Requests()) != 0 {
		t.Fatalf("no upstream call expected")
	}
}

func TestSourceFetch(t *testing.T) {
	s := newTestServer(t, "", httpclienttest.NewJSONResponse(200, `{"contact":{"Email Address":"a@b.com"}}`))

	w, body := s.get(t, "/?endpoint=source-fetch&entity=contact&id=42")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if body["system"] != "source" || body["entity"] != "contact" || body["id"] != "42" {
		t.Fatalf("body=%v", body)
	}
	norm := body["norm_data"].(map[string]any)
	if norm["email"] != "a@b.com" {
		t.Fatalf("norm_data=%v", norm)
	}
	if _, ok := body["raw_data"].(map[string]any)["contact"]; !ok {
		t.Fatalf("raw_data=%v", body["raw_data"])
	}
	if got := s.fake.Requests()[0].URL; got != "https://crm.example.com/contact/42" {
		t.Fatalf("upstream url=%q", got)
	}
}

func TestSourceFetch_EntityNotAllowed(t *testing.T) {
	s := newTestServer(t, "")
	w, body := s.get(t, "/?endpoint=source-fetch&entity=Contacts&id=1")
	if w.Code != http.StatusNotFound || body["error"] != "Source entity not allowed" {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}
	w, body = s.get(t, "/?endpoint=target-fetch&entity=contact&id=1")
	if w.Code != http.StatusNotFound || body["error"] != "Entity not allowed" {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}
}

func TestTargetFetch_Failures(t *testing.T) {
	s := newTestServer(t, "",
		httpclienttest.NewJSONResponse(404, `{"error":"NOT_FOUND"}`),
		httpclienttest.NewStringResponse(200, `not json`),
	)

	w, body := s.get(t, "/?endpoint=target-fetch&entity=Contacts&id=rec1")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}
	if body["error"] != "Failed to fetch target record" || body["http_code"] != float64(404) {
		t.Fatalf("body=%v", body)
	}
	if body["attempted_url"] != "https://api.airtable.com/v0/appS/Contacts/rec1" {
		t.Fatalf("attempted_url=%v", body["attempted_url"])
	}

	w, body = s.get(t, "/?endpoint=target-fetch&entity=Contacts&id=rec1")
	if w.Code != http.StatusInternalServerError || body["error"] != "JSON decode failed" {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}
	if body["raw_body"] != "not json" {
		t.Fatalf("raw_body=%v", body["raw_body"])
	}
}

func TestTargetFetch_NoAuthConfig(t *testing.T) {
	s := newTestServer(t, "")
	w, body := s.get(t, "/?endpoint=target-fetch&entity=People&id=rec1&env=prod")
	if w.Code != http.StatusInternalServerError || body["error"] != "No auth config for host" {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}
	if len(s.fake.Requests()) != 0 {
		t.Fatalf("no upstream call expected")
	}
}

func TestSyncCreateAndUpdate(t *testing.T) {
	s := newTestServer(t, "key",
		httpclienttest.NewJSONResponse(200, `{"contact":{"Email Address":"a@b.com"}}`),
		httpclienttest.NewJSONResponse(200, `{"id":"recNew"}`),
		httpclienttest.NewJSONResponse(200, `{"contact":{"Email Address":"c@d.com"}}`),
		httpclienttest.NewJSONResponse(422, `{"error":"INVALID"}`),
	)

	req := httptest.NewRequest(http.MethodGet, "/?endpoint=source-fetch-and-sync-with-create-or-update&entity=contact&id=42", nil)
	req.Header.Set("x-api-key", "key")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["mode"] != "create" || body["source_id"] != "42" {
		t.Fatalf("create body=%v", body)
	}
	if target := body["target"].(map[string]any); target["id"] != "recNew" {
		t.Fatalf("target=%v", target)
	}
	create := s.fake.Requests()[1]
	if create.Method != http.MethodPost || string(create.Body) != `{"fields":{"Email":"a@b.com"}}` {
		t.Fatalf("create request=%s %s", create.Method, create.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/?endpoint=source-fetch-and-sync-with-create-or-update&entity=contact&id=43&target_id=rec9", nil)
	req.Header.Set("Authorization", "Bearer key")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("update status=%d body=%s", w.Code, w.Body.String())
	}
	body = nil
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != "Failed to update target" || body["target_id"] != "rec9" || body["http_code"] != float64(422) {
		t.Fatalf("update body=%v", body)
	}
	if payload := body["payload"].(map[string]any); payload["Email"] != "c@d.com" {
		t.Fatalf("payload=%v", payload)
	}
	if !strings.Contains(s.logs.String(), "upstream_status=422") {
		t.Fatalf("access log should carry upstream status: %q", s.logs.String())
	}
}
