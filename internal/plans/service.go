package plans

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/engine"
)

// PlanService is the agent-facing surface for creating and querying plans
// and their jobs. Generation itself happens in the runner.
type PlanService interface {
	CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, *Job, error)
	GetPlan(ctx context.Context, id string) (*Plan, error)
	ListPlans(ctx context.Context, limit int) ([]*Plan, error)
	DeletePlan(ctx context.Context, id string) error
	CountPlans(ctx context.Context, status string) (int, error)

	RequestAudioAnalysis(ctx context.Context, mediaPath string) (*Job, error)
	RequestVideoAnalysis(ctx context.Context, mediaPath string) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
}

// CreatePlanRequest carries everything a caller may specify for a new plan.
// A nil Config means the service's base configuration.
type CreatePlanRequest struct {
	Name     string         `json:"name"`
	AudioID  string         `json:"audio_id"`
	VideoIDs []string       `json:"video_ids"`
	Seed     int64          `json:"seed"`
	Config   *engine.Config `json:"config,omitempty"`
}

type Service struct {
	repo       Repository
	analyses   analysis.AnalysisService
	baseConfig engine.Config
	logger     *slog.Logger
}

func NewService(repo Repository, analyses analysis.AnalysisService, baseConfig engine.Config, logger *slog.Logger) *Service {
	return &Service{repo: repo, analyses: analyses, baseConfig: baseConfig, logger: logger}
}

// CreatePlan validates the referenced analyses, stores a pending plan and
// queues a generate job for the runner.
func (s *Service) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, *Job, error) {
	if req.AudioID == "" {
		return nil, nil, fmt.Errorf("audio_id is required")
	}
	if len(req.VideoIDs) == 0 {
		return nil, nil, fmt.Errorf("at least one video id is required")
	}

	audio, err := s.analyses.GetAudio(ctx, req.AudioID)
	if err != nil {
		return nil, nil, err
	}
	if audio == nil {
		return nil, nil, fmt.Errorf("audio analysis %s not found", req.AudioID)
	}
	if _, err := s.analyses.GetVideos(ctx, req.VideoIDs); err != nil {
		return nil, nil, err
	}

	cfg := s.baseConfig
	if req.Config != nil {
		cfg = *req.Config
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	name := req.Name
	if name == "" {
		name = filepath.Base(audio.MediaPath)
	}

	now := time.Now()
	plan := &Plan{
		ID:        NewID(),
		Name:      name,
		AudioID:   req.AudioID,
		VideoIDs:  req.VideoIDs,
		Config:    cfg,
		Seed:      req.Seed,
		Status:    PlanStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		return nil, nil, err
	}

	job := &Job{
		ID:        NewID(),
		Type:      JobTypeGenerate,
		Status:    JobStatusPending,
		TargetID:  plan.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, nil, err
	}

	if s.logger != nil {
		s.logger.Info("plan queued",
			"plan_id", plan.ID, "audio_id", plan.AudioID, "videos", len(plan.VideoIDs), "seed", plan.Seed)
	}
	return plan, job, nil
}

func (s *Service) GetPlan(ctx context.Context, id string) (*Plan, error) {
	return s.repo.GetPlan(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context, limit int) ([]*Plan, error) {
	return s.repo.ListPlans(ctx, limit)
}

func (s *Service) DeletePlan(ctx context.Context, id string) error {
	return s.repo.DeletePlan(ctx, id)
}

func (s *Service) CountPlans(ctx context.Context, status string) (int, error) {
	return s.repo.CountPlans(ctx, status)
}

func (s *Service) RequestAudioAnalysis(ctx context.Context, mediaPath string) (*Job, error) {
	return s.queueAnalysis(ctx, JobTypeAnalyzeAudio, mediaPath)
}

func (s *Service) RequestVideoAnalysis(ctx context.Context, mediaPath string) (*Job, error) {
	return s.queueAnalysis(ctx, JobTypeAnalyzeVideo, mediaPath)
}

func (s *Service) queueAnalysis(ctx context.Context, jobType, mediaPath string) (*Job, error) {
	absPath, err := filepath.Abs(mediaPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("media file does not exist: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a media file")
	}

	now := time.Now()
	job := &Job{
		ID:        NewID(),
		Type:      jobType,
		Status:    JobStatusPending,
		TargetID:  absPath,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("analysis queued", "job_id", job.ID, "type", jobType)
	}
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.GetJob(ctx, id)
}

func (s *Service) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.repo.ListJobs(ctx, limit)
}
