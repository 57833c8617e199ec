package api

import (
	"time"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/engine"
	"github.com/tempocut/tempocut-agent/internal/plans"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State       string                  `json:"state"`
	LastError   string                  `json:"last_error,omitempty"`
	AudioCount  int                     `json:"audio_count"`
	VideoCount  int                     `json:"video_count"`
	PlansCount  int                     `json:"plans_count"`
	JobsRunning int                     `json:"jobs_running"`
	ActiveJob   *JobResponse            `json:"active_job,omitempty"`
	Analyzers   *AnalyzerStatusResponse `json:"analyzers,omitempty"`
}

type AnalyzerStatusResponse struct {
	HasAudio    bool   `json:"has_audio"`
	HasScenes   bool   `json:"has_scenes"`
	LastProbeAt string `json:"last_probe_at,omitempty"`
	DepsAvail   int    `json:"deps_available"`
	DepsTotal   int    `json:"deps_total"`
}

type AnalysesResponse struct {
	Audio []AudioAnalysisResponse `json:"audio"`
	Video []VideoAnalysisResponse `json:"video"`
}

type AudioAnalysisResponse struct {
	ID        string  `json:"id"`
	MediaPath string  `json:"media_path"`
	Duration  float64 `json:"duration"`
	Tempo     float64 `json:"tempo,omitempty"`
	Beats     int     `json:"beats"`
	Segments  int     `json:"segments"`
	CreatedAt string  `json:"created_at"`
}

type VideoAnalysisResponse struct {
	ID        string  `json:"id"`
	MediaPath string  `json:"media_path"`
	Duration  float64 `json:"duration"`
	Scenes    int     `json:"scenes"`
	CreatedAt string  `json:"created_at"`
}

// IngestAnalysisRequest carries a complete analyzer output document for
// direct ingest, bypassing the local analyzer subprocess. Exactly one of
// Audio or Video must be set.
type IngestAnalysisRequest struct {
	Kind  string                  `json:"kind"`
	Audio *analysis.AudioAnalysis `json:"audio,omitempty"`
	Video *analysis.VideoAnalysis `json:"video,omitempty"`
}

type IngestAnalysisResponse struct {
	ID string `json:"id"`
}

// AnalyzeRequest queues a local analyzer run against a media file.
type AnalyzeRequest struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

type AnalyzeResponse struct {
	JobID string `json:"job_id"`
}

type CreatePlanResponse struct {
	PlanID string `json:"plan_id"`
	JobID  string `json:"job_id"`
}

type PlanResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	AudioID     string         `json:"audio_id"`
	VideoIDs    []string       `json:"video_ids"`
	Style       string         `json:"style"`
	Seed        int64          `json:"seed"`
	Status      string         `json:"status"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Error       string         `json:"error,omitempty"`
	Result      *engine.Result `json:"result,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

type PlansResponse struct {
	Plans []PlanResponse `json:"plans"`
}

type JobResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	TargetID  string `json:"target_id,omitempty"`
	Progress  int    `json:"progress"`
	Stage     string `json:"stage,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func AudioToResponse(a *analysis.AudioAnalysis) AudioAnalysisResponse {
	return AudioAnalysisResponse{
		ID:        a.ID,
		MediaPath: a.MediaPath,
		Duration:  a.Duration,
		Tempo:     a.Tempo,
		Beats:     len(a.Beats),
		Segments:  len(a.Segments),
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

func VideoToResponse(v *analysis.VideoAnalysis) VideoAnalysisResponse {
	return VideoAnalysisResponse{
		ID:        v.ID,
		MediaPath: v.MediaPath,
		Duration:  v.Duration,
		Scenes:    len(v.Scenes),
		CreatedAt: v.CreatedAt.Format(time.RFC3339),
	}
}

// PlanToResponse converts a plan; the full result payload is included only
// when includeResult is set, list endpoints skip it to keep responses small.
func PlanToResponse(p *plans.Plan, includeResult bool) PlanResponse {
	resp := PlanResponse{
		ID:          p.ID,
		Name:        p.Name,
		AudioID:     p.AudioID,
		VideoIDs:    p.VideoIDs,
		Style:       string(p.Config.Style),
		Seed:        p.Seed,
		Status:      p.Status,
		Fingerprint: p.Fingerprint,
		Error:       p.Error,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if includeResult {
		resp.Result = p.Result
	}
	return resp
}

func JobToResponse(j *plans.Job) JobResponse {
	return JobResponse{
		ID:        j.ID,
		Type:      j.Type,
		Status:    j.Status,
		TargetID:  j.TargetID,
		Progress:  j.Progress,
		Stage:     j.Stage,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}
