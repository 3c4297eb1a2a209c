package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dealflow/internal/config"
	"dealflow/internal/db"
	"dealflow/internal/domain"
	"dealflow/internal/invoice"
	"dealflow/internal/migrate"
	"dealflow/internal/pipeline"
	"dealflow/internal/server"
)

// acceptAll is a set of collaborators that always succeed, so lifecycle
// tests exercise the HTTP layer rather than collaborator rules.
type acceptAll struct{}

func (acceptAll) AnalyzeAndAsk(_ context.Context, _ string) (pipeline.ClarifyResult, error) {
	return pipeline.ClarifyResult{Confidence: 1}, nil
}

func (acceptAll) Generate(_ context.Context, _, _ string, _ float64) (pipeline.SpecResult, error) {
	return pipeline.SpecResult{RequirementCount: 3, TotalHours: 8, FixedPrice: 400}, nil
}

func (acceptAll) Execute(_ context.Context, _ string) (pipeline.ExecResult, error) {
	return pipeline.ExecResult{Success: true, QAScore: 90}, nil
}

type testServer struct {
	*httptest.Server
	t *testing.T
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	p := pipeline.New(conn, cfg, pipeline.Collaborators{
		Clarifier: acceptAll{},
		SpecGen:   acceptAll{},
		CodeGen:   acceptAll{},
		Invoicer:  invoice.New(dir, cfg),
	})
	handler, err := server.New(server.Config{
		Pipeline: p,
		Auth:     server.AuthConfig{JWTSecret: "test-secret", DevLogin: true},
	})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return testServer{Server: ts, t: t}
}

type httpResult struct {
	status int
	body   []byte
}

func (r httpResult) decode(t *testing.T, out any) {
	t.Helper()
	if err := json.Unmarshal(r.body, out); err != nil {
		t.Fatalf("decode %s: %v", r.body, err)
	}
}

func (r httpResult) errorCode(t *testing.T) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	r.decode(t, &envelope)
	return envelope.Error.Code
}

func (s testServer) do(method, path, auth string, body any) httpResult {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		s.t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case strings.HasPrefix(auth, "key:"):
		req.Header.Set("X-Api-Key", strings.TrimPrefix(auth, "key:"))
	case auth != "":
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("do %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		s.t.Fatalf("read body: %v", err)
	}
	return httpResult{status: resp.StatusCode, body: data}
}

func (s testServer) login(role string) string {
	s.t.Helper()
	res := s.do(http.MethodPost, "/v0/auth/dev/login", "", map[string]string{
		"subject": "tester",
		"role":    role,
	})
	if res.status != http.StatusOK {
		s.t.Fatalf("dev login: %d %s", res.status, res.body)
	}
	var out struct {
		Token string `json:"token"`
	}
	res.decode(s.t, &out)
	return out.Token
}

func (s testServer) intake(token string, budget float64) domain.Project {
	s.t.Helper()
	res := s.do(http.MethodPost, "/v0/projects", token, map[string]any{
		"title":       "scraper job",
		"description": "scrape listings into a database",
		"client_name": "acme",
		"budget":      budget,
		"platform":    "direct",
	})
	if res.status != http.StatusCreated {
		s.t.Fatalf("intake: %d %s", res.status, res.body)
	}
	var proj domain.Project
	res.decode(s.t, &proj)
	return proj
}

func TestHealthIsOpen(t *testing.T) {
	s := newTestServer(t)
	res := s.do(http.MethodGet, "/v0/health", "", nil)
	if res.status != http.StatusOK {
		t.Fatalf("health: %d %s", res.status, res.body)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	s := newTestServer(t)
	res := s.do(http.MethodGet, "/v0/projects", "", nil)
	if res.status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.status)
	}
	if code := res.errorCode(t); code != "unauthorized" {
		t.Fatalf("code = %q, want unauthorized", code)
	}

	res = s.do(http.MethodGet, "/v0/projects", "not-a-valid-token", nil)
	if res.status != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", res.status)
	}
}

func TestLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.login("operator")

	proj := s.intake(token, 100)
	if proj.Stage != domain.StageIntake || !strings.HasPrefix(proj.Reference, "NX-") {
		t.Fatalf("intake project: %+v", proj)
	}

	res := s.do(http.MethodPost, fmt.Sprintf("/v0/projects/%d/vet", proj.ID), token,
		map[string]string{"complexity": "medium"})
	if res.status != http.StatusOK {
		t.Fatalf("vet: %d %s", res.status, res.body)
	}
	res.decode(t, &proj)
	if proj.Stage != domain.StageClarifying {
		t.Fatalf("after vet stage = %s", proj.Stage)
	}

	res = s.do(http.MethodPost, fmt.Sprintf("/v0/projects/%d/process", proj.ID), token, map[string]any{})
	if res.status != http.StatusOK {
		t.Fatalf("process: %d %s", res.status, res.body)
	}
	res.decode(t, &proj)
	if proj.Stage != domain.StageQuoting {
		t.Fatalf("process should park at quoting, got %s", proj.Stage)
	}

	// lookup by reference returns the same row
	res = s.do(http.MethodGet, "/v0/projects/"+proj.Reference, token, nil)
	if res.status != http.StatusOK {
		t.Fatalf("get by reference: %d %s", res.status, res.body)
	}
	var byRef domain.Project
	res.decode(t, &byRef)
	if byRef.ID != proj.ID {
		t.Fatalf("reference lookup id = %d, want %d", byRef.ID, proj.ID)
	}

	res = s.do(http.MethodGet, fmt.Sprintf("/v0/projects/%d/events", proj.ID), token, nil)
	if res.status != http.StatusOK {
		t.Fatalf("events: %d %s", res.status, res.body)
	}
	var events []domain.Event
	res.decode(t, &events)
	if len(events) == 0 || events[0].Action != "intake" {
		t.Fatalf("event log starts with %+v", events)
	}
}

func TestApproveLocksPriceOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.login("operator")
	proj := s.intake(token, 100)

	for _, action := range []string{"vet", "process"} {
		res := s.do(http.MethodPost, fmt.Sprintf("/v0/projects/%d/%s", proj.ID, action), token, map[string]any{})
		if res.status != http.StatusOK {
			t.Fatalf("%s: %d %s", action, res.status, res.body)
		}
	}

	res := s.do(http.MethodPost, fmt.Sprintf("/v0/projects/%d/approve", proj.ID), token, map[string]any{})
	if res.status != http.StatusOK {
		t.Fatalf("approve: %d %s", res.status, res.body)
	}
	res.decode(t, &proj)
	if proj.Stage != domain.StageAwaitingPayment || proj.FixedPrice != 400 {
		t.Fatalf("after approve: %+v", proj)
	}

	res = s.do(http.MethodPost, fmt.Sprintf("/v0/projects/%d/approve", proj.ID), token, map[string]any{})
	if res.status != http.StatusConflict {
		t.Fatalf("second approve: %d %s", res.status, res.body)
	}
	if code := res.errorCode(t); code != "price_locked" {
		t.Fatalf("code = %q, want price_locked", code)
	}
}

func TestInvalidTransitionEnvelope(t *testing.T) {
	s := newTestServer(t)
	token := s.login("operator")
	proj := s.intake(token, 100)

	res := s.do(http.MethodPost, fmt.Sprintf("/v0/projects/%d/deliver", proj.ID), token, map[string]any{})
	if res.status != http.StatusConflict {
		t.Fatalf("deliver on intake: %d %s", res.status, res.body)
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	res.decode(t, &envelope)
	if envelope.Error.Code != "invalid_transition" {
		t.Fatalf("code = %q", envelope.Error.Code)
	}
	if envelope.Error.Details["from"] != "intake" {
		t.Fatalf("details = %+v", envelope.Error.Details)
	}
}

func TestUnknownProjectIs404(t *testing.T) {
	s := newTestServer(t)
	token := s.login("viewer")
	res := s.do(http.MethodGet, "/v0/projects/999", token, nil)
	if res.status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.status)
	}
	if code := res.errorCode(t); code != "not_found" {
		t.Fatalf("code = %q, want not_found", code)
	}
}

func TestRoleEnforcement(t *testing.T) {
	s := newTestServer(t)
	viewer := s.login("viewer")
	operator := s.login("operator")

	// viewers read but never mutate
	res := s.do(http.MethodGet, "/v0/stats", viewer, nil)
	if res.status != http.StatusOK {
		t.Fatalf("viewer stats: %d %s", res.status, res.body)
	}
	res = s.do(http.MethodPost, "/v0/projects", viewer, map[string]any{"title": "x", "budget": 100})
	if res.status != http.StatusForbidden {
		t.Fatalf("viewer intake: %d, want 403", res.status)
	}
	if code := res.errorCode(t); code != "forbidden" {
		t.Fatalf("code = %q, want forbidden", code)
	}

	// key management is admin only
	res = s.do(http.MethodPost, "/v0/apikeys", operator, map[string]string{"name": "ci"})
	if res.status != http.StatusForbidden {
		t.Fatalf("operator apikeys: %d, want 403", res.status)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin")

	res := s.do(http.MethodPost, "/v0/apikeys", admin, map[string]string{"name": "ci", "role": "operator"})
	if res.status != http.StatusCreated {
		t.Fatalf("create key: %d %s", res.status, res.body)
	}
	var created struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	res.decode(t, &created)
	if created.Key == "" {
		t.Fatalf("no plaintext key returned: %s", res.body)
	}

	res = s.do(http.MethodGet, "/v0/projects", "key:"+created.Key, nil)
	if res.status != http.StatusOK {
		t.Fatalf("api key list: %d %s", res.status, res.body)
	}

	res = s.do(http.MethodGet, "/v0/projects", "key:wrong-key", nil)
	if res.status != http.StatusUnauthorized {
		t.Fatalf("wrong key: %d, want 401", res.status)
	}

	// listing keys never exposes the secret
	res = s.do(http.MethodGet, "/v0/apikeys", admin, nil)
	if res.status != http.StatusOK {
		t.Fatalf("list keys: %d %s", res.status, res.body)
	}
	if strings.Contains(string(res.body), created.Key) {
		t.Fatalf("plaintext key leaked in listing")
	}
}

func TestListPagination(t *testing.T) {
	s := newTestServer(t)
	token := s.login("operator")
	for i := 0; i < 3; i++ {
		s.intake(token, 100)
	}

	res := s.do(http.MethodGet, "/v0/projects?limit=2", token, nil)
	if res.status != http.StatusOK {
		t.Fatalf("list: %d %s", res.status, res.body)
	}
	var page struct {
		Items      []domain.Project `json:"items"`
		NextCursor int64            `json:"next_cursor"`
	}
	res.decode(t, &page)
	if len(page.Items) != 2 || page.NextCursor == 0 {
		t.Fatalf("page = %d items, cursor %d", len(page.Items), page.NextCursor)
	}

	res = s.do(http.MethodGet, fmt.Sprintf("/v0/projects?limit=2&cursor=%d", page.NextCursor), token, nil)
	if res.status != http.StatusOK {
		t.Fatalf("second page: %d %s", res.status, res.body)
	}
	res.decode(t, &page)
	if len(page.Items) != 1 {
		t.Fatalf("second page = %d items, want 1", len(page.Items))
	}
}
