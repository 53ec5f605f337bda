package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"ward/internal/api"
	"ward/internal/pipeline"
	"ward/internal/store"
	"ward/internal/testsupport"
)

type fakeTrigger struct {
	lastKind store.Kind
	lastOpts pipeline.Options
	summary  *pipeline.Summary
	err      error
}

func (f *fakeTrigger) Run(ctx context.Context, kind store.Kind, opts pipeline.Options) (*pipeline.Summary, error) {
	f.lastKind = kind
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

func startServer(t *testing.T, trigger *fakeTrigger) (*api.Server, string, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	server, err := api.NewServer(cfg, trigger, st, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Close(ctx)
	})
	return server, "http://" + server.Addr(), st
}

func doRequest(t *testing.T, method, url, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("X-Ward-Token", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestHealthzIsOpen(t *testing.T) {
	_, base, _ := startServer(t, &fakeTrigger{summary: &pipeline.Summary{}})
	resp, body := doRequest(t, http.MethodGet, base+"/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
}

func TestRunsRequiresToken(t *testing.T) {
	trigger := &fakeTrigger{summary: &pipeline.Summary{}}
	_, base, _ := startServer(t, trigger)

	resp, _ := doRequest(t, http.MethodPost, base+"/v1/runs", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, http.MethodPost, base+"/v1/runs", "wrong-token")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", resp.StatusCode)
	}
	if trigger.lastKind != "" {
		t.Error("trigger must not fire for unauthorized requests")
	}
}

func TestRunsTriggerWithParams(t *testing.T) {
	trigger := &fakeTrigger{summary: &pipeline.Summary{RunID: "run-1", Created: 2}}
	_, base, _ := startServer(t, trigger)

	resp, body := doRequest(t, http.MethodPost,
		base+"/v1/runs?kind=look_ahead&force=true&neighborhood=sodermalm,vasastan&batch=2", "test-token")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if trigger.lastKind != store.KindLookAhead {
		t.Errorf("expected look_ahead kind, got %q", trigger.lastKind)
	}
	if !trigger.lastOpts.Force {
		t.Error("expected force option")
	}
	if len(trigger.lastOpts.Only) != 2 || trigger.lastOpts.Only[0] != "sodermalm" {
		t.Errorf("unexpected only filter %v", trigger.lastOpts.Only)
	}
	if trigger.lastOpts.BatchSize != 2 {
		t.Errorf("batch size = %d, want 2", trigger.lastOpts.BatchSize)
	}

	var summary pipeline.Summary
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.RunID != "run-1" || summary.Created != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestRunsRejectsUnknownKind(t *testing.T) {
	trigger := &fakeTrigger{summary: &pipeline.Summary{}}
	_, base, _ := startServer(t, trigger)

	resp, body := doRequest(t, http.MethodPost, base+"/v1/runs?kind=bogus", "test-token")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.StatusCode, body)
	}
}

func TestRunsAcceptsItemKinds(t *testing.T) {
	trigger := &fakeTrigger{summary: &pipeline.Summary{}}
	_, base, _ := startServer(t, trigger)

	resp, body := doRequest(t, http.MethodPost, base+"/v1/runs?kind=news", "test-token")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if trigger.lastKind != store.KindNews {
		t.Errorf("expected news kind, got %q", trigger.lastKind)
	}
}

func TestRunsRejectsBadBatch(t *testing.T) {
	trigger := &fakeTrigger{summary: &pipeline.Summary{}}
	_, base, _ := startServer(t, trigger)

	for _, raw := range []string{"0", "-1", "many"} {
		resp, body := doRequest(t, http.MethodPost, base+"/v1/runs?batch="+raw, "test-token")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("batch=%s: expected 400, got %d: %s", raw, resp.StatusCode, body)
		}
	}
	if trigger.lastKind != "" {
		t.Error("trigger must not fire for invalid batch sizes")
	}
}

func TestLatestRun(t *testing.T) {
	trigger := &fakeTrigger{summary: &pipeline.Summary{}}
	_, base, st := startServer(t, trigger)

	resp, _ := doRequest(t, http.MethodGet, base+"/v1/runs/latest", "test-token")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before any run, got %d", resp.StatusCode)
	}

	ctx := context.Background()
	started := time.Now().UTC()
	if err := st.InsertRun(ctx, "run-9", store.KindDailyBrief, started); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if err := st.FinishRun(ctx, "run-9", started.Add(time.Minute), `{"created":3}`); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	resp, body := doRequest(t, http.MethodGet, base+"/v1/runs/latest", "test-token")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"run-9"`) || !strings.Contains(string(body), `"created":3`) {
		t.Errorf("unexpected payload: %s", body)
	}
}

func TestMetricsEndpointServed(t *testing.T) {
	_, base, _ := startServer(t, &fakeTrigger{summary: &pipeline.Summary{}})
	resp, body := doRequest(t, http.MethodGet, base+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "go_") {
		t.Errorf("expected prometheus output, got %q", string(body[:min(len(body), 120)]))
	}
}
