package analysis_test

import (
	"context"
	"testing"

	"github.com/tempocut/tempocut-agent/internal/analysis"
)

func testService(t *testing.T) *analysis.Service {
	t.Helper()
	return analysis.NewService(testRepo(t), nil)
}

func TestIngestAudio_AssignsID(t *testing.T) {
	svc := testService(t)

	a := sampleAudio()
	a.ID = ""
	got, err := svc.IngestAudio(context.Background(), a)
	if err != nil {
		t.Fatalf("IngestAudio() error = %v", err)
	}
	if got.ID == "" {
		t.Fatal("IngestAudio() did not assign an id")
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("IngestAudio() did not set created_at")
	}

	stored, err := svc.GetAudio(context.Background(), got.ID)
	if err != nil {
		t.Fatalf("GetAudio() error = %v", err)
	}
	if stored == nil {
		t.Fatal("ingested audio not stored")
	}
}

func TestIngestAudio_RejectsInvalid(t *testing.T) {
	svc := testService(t)

	tests := []struct {
		name  string
		audio *analysis.AudioAnalysis
	}{
		{"nil", nil},
		{"zero duration", &analysis.AudioAnalysis{ID: "a", MediaPath: "/x"}},
		{"beat past end", &analysis.AudioAnalysis{
			ID: "a", MediaPath: "/x", Duration: 10,
			Beats: []analysis.Beat{{Time: 11, Confidence: 0.5}},
		}},
		{"confidence out of range", &analysis.AudioAnalysis{
			ID: "a", MediaPath: "/x", Duration: 10,
			Beats: []analysis.Beat{{Time: 1, Confidence: 1.5}},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.IngestAudio(context.Background(), tc.audio); err == nil {
				t.Fatal("IngestAudio() accepted invalid record")
			}
		})
	}
}

func TestIngestVideo_NormalizesScenes(t *testing.T) {
	svc := testService(t)

	v := &analysis.VideoAnalysis{
		MediaPath: "/media/clip.mp4",
		Duration:  20,
		Scenes: []analysis.Scene{
			{StartTime: 0, EndTime: 8, BoundaryConfidence: 0.9},
			{StartTime: 8, EndTime: 20, BoundaryConfidence: 0.7},
		},
	}
	got, err := svc.IngestVideo(context.Background(), v)
	if err != nil {
		t.Fatalf("IngestVideo() error = %v", err)
	}

	for i, s := range got.Scenes {
		if s.ID == "" {
			t.Errorf("scene %d has no id", i)
		}
		if s.VideoID != got.ID {
			t.Errorf("scene %d video_id = %s, want %s", i, s.VideoID, got.ID)
		}
	}
	if got.Scenes[1].Duration != 12 {
		t.Errorf("scene duration = %v, want 12", got.Scenes[1].Duration)
	}
}

func TestIngestVideo_RejectsOverlap(t *testing.T) {
	svc := testService(t)

	v := &analysis.VideoAnalysis{
		MediaPath: "/media/clip.mp4",
		Duration:  20,
		Scenes: []analysis.Scene{
			{StartTime: 0, EndTime: 10, BoundaryConfidence: 0.9},
			{StartTime: 9, EndTime: 20, BoundaryConfidence: 0.7},
		},
	}
	if _, err := svc.IngestVideo(context.Background(), v); err == nil {
		t.Fatal("IngestVideo() accepted overlapping scenes")
	}
}
