package plans

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/db"
	"github.com/tempocut/tempocut-agent/internal/engine"
)

func testStack(t *testing.T) (*Service, *SQLiteRepository, *analysis.Service) {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := NewRepository(database.Conn())
	analyses := analysis.NewService(analysis.NewRepository(database.Conn()), nil)
	svc := NewService(repo, analyses, engine.DefaultConfig(), nil)
	return svc, repo, analyses
}

func seedAnalyses(t *testing.T, analyses *analysis.Service) {
	t.Helper()
	ctx := context.Background()

	_, err := analyses.IngestAudio(ctx, &analysis.AudioAnalysis{
		ID:        "audio-1",
		MediaPath: "/media/track.mp3",
		Duration:  120,
		Beats:     []analysis.Beat{{Time: 1, Confidence: 0.9}},
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("IngestAudio() error = %v", err)
	}

	for _, id := range []string{"vid-a", "vid-b"} {
		_, err := analyses.IngestVideo(ctx, &analysis.VideoAnalysis{
			ID:        id,
			MediaPath: "/media/" + id + ".mp4",
			Duration:  60,
			Scenes: []analysis.Scene{
				{StartTime: 0, EndTime: 60, BoundaryConfidence: 0.9},
			},
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("IngestVideo(%s) error = %v", id, err)
		}
	}
}

func TestCreatePlan_QueuesGenerateJob(t *testing.T) {
	svc, repo, analyses := testStack(t)
	seedAnalyses(t, analyses)
	ctx := context.Background()

	plan, job, err := svc.CreatePlan(ctx, CreatePlanRequest{
		AudioID:  "audio-1",
		VideoIDs: []string{"vid-a", "vid-b"},
		Seed:     7,
	})
	if err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}

	if plan.Status != PlanStatusPending {
		t.Errorf("plan status = %s, want pending", plan.Status)
	}
	if plan.Name != "track.mp3" {
		t.Errorf("plan name = %s, want default from media path", plan.Name)
	}
	if plan.Config.Style != engine.StyleRhythmMatch {
		t.Errorf("plan config should default to base config, got style %s", plan.Config.Style)
	}

	if job.Type != JobTypeGenerate || job.TargetID != plan.ID {
		t.Errorf("job = %+v, want generate targeting the plan", job)
	}

	pending, err := repo.ListPendingJobs(ctx)
	if err != nil {
		t.Fatalf("ListPendingJobs() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1", len(pending))
	}
}

func TestCreatePlan_CustomConfig(t *testing.T) {
	svc, _, analyses := testStack(t)
	seedAnalyses(t, analyses)

	cfg := engine.DefaultConfig()
	cfg.Style = engine.StyleCinematic
	plan, _, err := svc.CreatePlan(context.Background(), CreatePlanRequest{
		Name:     "slow burn",
		AudioID:  "audio-1",
		VideoIDs: []string{"vid-a"},
		Config:   &cfg,
	})
	if err != nil {
		t.Fatalf("CreatePlan() error = %v", err)
	}
	if plan.Name != "slow burn" || plan.Config.Style != engine.StyleCinematic {
		t.Errorf("plan = %+v, want custom name and style", plan)
	}
}

func TestCreatePlan_Validation(t *testing.T) {
	svc, _, analyses := testStack(t)
	seedAnalyses(t, analyses)
	ctx := context.Background()

	badCfg := engine.DefaultConfig()
	badCfg.FrameRate = 0

	tests := []struct {
		name string
		req  CreatePlanRequest
	}{
		{"missing audio id", CreatePlanRequest{VideoIDs: []string{"vid-a"}}},
		{"no videos", CreatePlanRequest{AudioID: "audio-1"}},
		{"unknown audio", CreatePlanRequest{AudioID: "nope", VideoIDs: []string{"vid-a"}}},
		{"unknown video", CreatePlanRequest{AudioID: "audio-1", VideoIDs: []string{"vid-a", "nope"}}},
		{"invalid config", CreatePlanRequest{AudioID: "audio-1", VideoIDs: []string{"vid-a"}, Config: &badCfg}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := svc.CreatePlan(ctx, tc.req); err == nil {
				t.Fatal("CreatePlan() accepted invalid request")
			}
		})
	}
}

func TestRequestAnalysis_QueuesJob(t *testing.T) {
	svc, repo, _ := testStack(t)
	ctx := context.Background()

	mediaPath := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(mediaPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}

	job, err := svc.RequestAudioAnalysis(ctx, mediaPath)
	if err != nil {
		t.Fatalf("RequestAudioAnalysis() error = %v", err)
	}
	if job.Type != JobTypeAnalyzeAudio {
		t.Errorf("job type = %s, want analyze_audio", job.Type)
	}
	if job.TargetID != mediaPath {
		t.Errorf("job target = %s, want %s", job.TargetID, mediaPath)
	}

	got, err := repo.GetJob(ctx, job.ID)
	if err != nil || got == nil {
		t.Fatalf("GetJob() = %v, %v", got, err)
	}
}

func TestRequestAnalysis_MissingFile(t *testing.T) {
	svc, _, _ := testStack(t)

	if _, err := svc.RequestAudioAnalysis(context.Background(), "/nope/track.mp3"); err == nil {
		t.Fatal("RequestAudioAnalysis() accepted missing file")
	}
	if _, err := svc.RequestVideoAnalysis(context.Background(), t.TempDir()); err == nil {
		t.Fatal("RequestVideoAnalysis() accepted a directory")
	}
}
