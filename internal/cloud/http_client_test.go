package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/tempocut/tempocut-agent/internal/engine"
	"github.com/tempocut/tempocut-agent/internal/plans"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func completedPlan() *plans.Plan {
	cfg := engine.DefaultConfig()
	return &plans.Plan{
		ID:          "plan-123",
		Name:        "track.mp3",
		AudioID:     "audio-1",
		VideoIDs:    []string{"vid-a"},
		Config:      cfg,
		Seed:        42,
		Fingerprint: "abc123",
		Status:      plans.PlanStatusCompleted,
		Result: &engine.Result{
			EDL: engine.EditDecisionList{
				Clips: []engine.ClipAssignment{
					{ID: "clip-0", TimelineIn: 0, TimelineOut: 2.5, SourceVideoID: "vid-a", SceneID: "s0", SourceIn: 1, SourceOut: 3.5},
					{ID: "clip-1", TimelineIn: 2.5, TimelineOut: 5, SourceVideoID: "vid-a", SceneID: "s1", SourceIn: 0, SourceOut: 2.5, Degraded: true},
				},
				Transitions: []engine.Transition{
					{ID: "tr-0", Type: engine.TransitionDissolve, Duration: 0.3, OutgoingClipID: "clip-0", IncomingClipID: "clip-1"},
				},
			},
			Stats: engine.Stats{BeatAlignmentScore: 0.8},
		},
	}
}

func TestBuildPlanPayload(t *testing.T) {
	payload := BuildPlanPayload(completedPlan(), "proj-1")

	if payload.PlanID != "plan-123" {
		t.Errorf("plan_id = %q", payload.PlanID)
	}
	if payload.ProjectID != "proj-1" {
		t.Errorf("project_id = %q", payload.ProjectID)
	}
	if payload.Style != "rhythm_match" {
		t.Errorf("style = %q, want rhythm_match", payload.Style)
	}
	if len(payload.Clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(payload.Clips))
	}
	if payload.Clips[0].TimelineOutMs != 2500 || payload.Clips[0].SourceInMs != 1000 {
		t.Errorf("clip 0 = %+v", payload.Clips[0])
	}
	if !payload.Clips[1].Degraded {
		t.Error("clip 1 should carry the degraded flag")
	}
	if payload.DurationMs != 5000 {
		t.Errorf("duration_ms = %d, want 5000", payload.DurationMs)
	}
	if payload.Transitions != 1 {
		t.Errorf("transition_count = %d, want 1", payload.Transitions)
	}
	if payload.BeatScore != 0.8 {
		t.Errorf("beat_alignment_score = %v, want 0.8", payload.BeatScore)
	}
}

func TestBuildPlanPayload_NoResult(t *testing.T) {
	p := completedPlan()
	p.Result = nil

	payload := BuildPlanPayload(p, "")

	if len(payload.Clips) != 0 || payload.DurationMs != 0 {
		t.Errorf("payload should be empty without a result: %+v", payload)
	}
}

func TestHTTPClient_UploadPlan_Success(t *testing.T) {
	var receivedPayload PlanIngestPayload
	var receivedAuth string
	var receivedHost string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ingest/plans" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		receivedAuth = r.Header.Get("Authorization")
		receivedHost = r.Host

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &receivedPayload)

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(PlanIngestResponse{PlanID: "plan-123", IndexedCount: 2})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", "devstudio", testLogger())

	if err := client.UploadPlan(context.Background(), completedPlan()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedAuth != "Bearer test-token" {
		t.Errorf("auth = %q, want %q", receivedAuth, "Bearer test-token")
	}
	if receivedHost != "devstudio.app.tempocut.local" {
		t.Errorf("host = %q, want %q", receivedHost, "devstudio.app.tempocut.local")
	}
	if receivedPayload.PlanID != "plan-123" {
		t.Errorf("plan_id = %q, want plan-123", receivedPayload.PlanID)
	}
	if len(receivedPayload.Clips) != 2 {
		t.Errorf("clips count = %d, want 2", len(receivedPayload.Clips))
	}
}

func TestHTTPClient_UploadPlan_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"internal server error"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", "devstudio", testLogger())

	if err := client.UploadPlan(context.Background(), completedPlan()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestUploadError_IsRetryable(t *testing.T) {
	if !(&UploadError{StatusCode: http.StatusInternalServerError}).IsRetryable() {
		t.Fatal("expected 5xx upload error to be retryable")
	}
	if (&UploadError{StatusCode: http.StatusBadRequest}).IsRetryable() {
		t.Fatal("expected 4xx upload error to be permanent")
	}
}

func TestHTTPClient_UploadPlan_Returns_UploadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"invalid project"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", "devstudio", testLogger())

	err := client.UploadPlan(context.Background(), completedPlan())
	if err == nil {
		t.Fatal("expected error for 400 response")
	}

	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("expected UploadError, got %T", err)
	}
	if uploadErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status_code = %d, want %d", uploadErr.StatusCode, http.StatusBadRequest)
	}
	if !strings.Contains(uploadErr.Body, "invalid project") {
		t.Fatalf("body = %q, want to contain invalid project", uploadErr.Body)
	}
}

func TestHTTPClient_UploadPlan_SendsCorrelationHeaders(t *testing.T) {
	var requestID string
	var deviceID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Tempocut-Request-Id")
		deviceID = r.Header.Get("X-Tempocut-Device-Id")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(PlanIngestResponse{PlanID: "plan-123", IndexedCount: 2})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", "devstudio", testLogger())
	client.SetDeviceID("device-xyz")

	if err := client.UploadPlan(context.Background(), completedPlan()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if requestID == "" {
		t.Fatal("expected X-Tempocut-Request-Id header")
	}
	if deviceID != "device-xyz" {
		t.Fatalf("device_id_header = %q, want %q", deviceID, "device-xyz")
	}
}

func TestHTTPClient_UploadPlan_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(PlanIngestResponse{PlanID: "plan-123"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", "devstudio", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.UploadPlan(ctx, completedPlan()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestHTTPClient_ImplementsUploader(t *testing.T) {
	var _ plans.Uploader = (*HTTPClient)(nil)
	var _ plans.Uploader = (*StubPlanUploader)(nil)
}

func TestStubPlanUploader_NoOp(t *testing.T) {
	stub := NewStubPlanUploader(testLogger())
	if err := stub.UploadPlan(context.Background(), completedPlan()); err != nil {
		t.Fatalf("stub should not error: %v", err)
	}
}

func TestHTTPClient_EmptyOrgSlug(t *testing.T) {
	var receivedHost string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHost = r.Host
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(PlanIngestResponse{PlanID: "plan-123"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", "", testLogger())

	if err := client.UploadPlan(context.Background(), completedPlan()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// With an empty org slug the Host header is left alone.
	if strings.HasSuffix(receivedHost, ".app.tempocut.local") {
		t.Errorf("host = %q, should not be rewritten", receivedHost)
	}
}

func TestProjectService_GetOrCreate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(ProjectResult{ID: "proj-1", Name: "Tour 2026", Created: true})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", "devstudio", testLogger())

	result, err := client.Projects().GetOrCreate(context.Background(), "Tour 2026")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ID != "proj-1" || !result.Created {
		t.Errorf("result = %+v", result)
	}
}
