// Package plans owns the edit plan aggregate and its background jobs: plan
// records tie an audio analysis, a set of video analyses, a seed and an
// engine configuration to the generated result; jobs drive analysis and
// generation through the polling runner.
package plans

import (
	"time"

	"github.com/google/uuid"

	"github.com/tempocut/tempocut-agent/internal/engine"
)

const (
	PlanStatusPending   = "pending"
	PlanStatusRunning   = "running"
	PlanStatusCompleted = "completed"
	PlanStatusFailed    = "failed"
)

const (
	JobTypeGenerate     = "generate"
	JobTypeAnalyzeAudio = "analyze_audio"
	JobTypeAnalyzeVideo = "analyze_video"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Plan is one edit plan request and, once generated, its result.
type Plan struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	AudioID     string         `json:"audio_id"`
	VideoIDs    []string       `json:"video_ids"`
	Config      engine.Config  `json:"config"`
	Seed        int64          `json:"seed"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Status      string         `json:"status"`
	Result      *engine.Result `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Job is one unit of background work processed by the runner. TargetID names
// a plan for generate jobs and a media path for analyze jobs.
type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Stage     string    `json:"stage,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewID() string {
	return uuid.NewString()
}
