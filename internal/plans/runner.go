package plans

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/analyzers"
	"github.com/tempocut/tempocut-agent/internal/engine"
)

// Uploader pushes a finished plan to the cloud. A nil uploader disables the
// push; a failed push is logged, never fails the job.
type Uploader interface {
	UploadPlan(ctx context.Context, p *Plan) error
}

// Runner polls for pending jobs and executes them one at a time: plan
// generation through the engine, media analysis through the Python analyzers.
type Runner struct {
	repo         Repository
	analyses     analysis.AnalysisService
	anRunner     analyzers.Runner
	doctor       *analyzers.CachedDoctor
	cache        *engine.ResultCache
	uploader     Uploader
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(repo Repository, analyses analysis.AnalysisService, anRunner analyzers.Runner, doctor *analyzers.CachedDoctor, cache *engine.ResultCache, uploader Uploader, logger *slog.Logger) *Runner {
	return &Runner{
		repo:         repo,
		analyses:     analyses,
		anRunner:     anRunner,
		doctor:       doctor,
		cache:        cache,
		uploader:     uploader,
		logger:       logger,
		pollInterval: 2 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("job runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextJob(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("job runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("job runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) processNextJob(ctx context.Context) {
	jobs, err := r.repo.ListPendingJobs(ctx)
	if err != nil {
		r.logger.Error("failed to list pending jobs", "error", err)
		return
	}

	if len(jobs) == 0 {
		return
	}

	job := jobs[0]
	r.logger.Info("processing job", "job_id", job.ID, "type", job.Type)

	switch job.Type {
	case JobTypeGenerate:
		r.processGenerateJob(ctx, job)
	case JobTypeAnalyzeAudio, JobTypeAnalyzeVideo:
		r.processAnalyzeJob(ctx, job)
	default:
		r.logger.Warn("unknown job type", "type", job.Type)
		r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, "unknown job type")
	}
}

func (r *Runner) processGenerateJob(ctx context.Context, job *Job) {
	plan, err := r.repo.GetPlan(ctx, job.TargetID)
	if err != nil || plan == nil {
		r.failJob(ctx, job, "plan not found")
		return
	}

	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusRunning, "")
	r.repo.UpdatePlanStatus(ctx, plan.ID, PlanStatusRunning, "")

	audio, err := r.analyses.GetAudio(ctx, plan.AudioID)
	if err != nil || audio == nil {
		r.failGenerate(ctx, job, plan, "audio analysis not found")
		return
	}
	videos, err := r.analyses.GetVideos(ctx, plan.VideoIDs)
	if err != nil {
		r.failGenerate(ctx, job, plan, err.Error())
		return
	}

	eng, err := engine.New(plan.Config, r.logger)
	if err != nil {
		r.failGenerate(ctx, job, plan, fmt.Sprintf("invalid plan config: %v", err))
		return
	}
	eng.SetCache(r.cache)

	result, err := eng.Generate(engine.Request{
		Audio:  audio,
		Videos: videos,
		Seed:   plan.Seed,
		Progress: func(stage string, fraction float64) {
			r.repo.UpdateJobProgress(ctx, job.ID, int(fraction*100), stage)
		},
	})
	if err != nil {
		r.failGenerate(ctx, job, plan, err.Error())
		return
	}

	fp := engine.Fingerprint(audio.ID, sortedIDs(plan.VideoIDs), plan.Config, plan.Seed)
	if err := r.repo.StorePlanResult(ctx, plan.ID, fp, result); err != nil {
		r.failGenerate(ctx, job, plan, fmt.Sprintf("store result: %v", err))
		return
	}

	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusCompleted, "")
	r.logger.Info("plan generated",
		"plan_id", plan.ID, "cuts", result.Stats.TotalCuts, "degraded", result.Stats.DegradedClips)

	if r.uploader != nil {
		plan.Result = result
		plan.Status = PlanStatusCompleted
		if err := r.uploader.UploadPlan(ctx, plan); err != nil {
			r.logger.Warn("cloud push failed", "plan_id", plan.ID, "error", err)
		}
	}
}

func (r *Runner) processAnalyzeJob(ctx context.Context, job *Job) {
	if r.anRunner == nil || r.doctor == nil {
		r.failJob(ctx, job, "analyzer runner not configured")
		return
	}

	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusRunning, "")

	caps, err := r.doctor.Get(ctx)
	if err != nil {
		r.failJob(ctx, job, fmt.Sprintf("doctor probe failed: %v", err))
		return
	}

	mediaPath := job.TargetID
	outPath := filepath.Join(r.anRunner.ArtifactsDir(), job.ID, "result.json")

	switch job.Type {
	case JobTypeAnalyzeAudio:
		if !caps.HasAudio {
			r.failJob(ctx, job, "audio analyzer not available")
			return
		}

		result, err := r.anRunner.RunAudio(ctx, mediaPath, outPath)
		if err != nil {
			r.failJob(ctx, job, fmt.Sprintf("audio analyzer error: %v", err))
			return
		}
		if !result.IsSuccess() {
			r.failJob(ctx, job, fmt.Sprintf("audio analyzer exited %d: %s", result.ExitCode, tail(result.StderrTail, 512)))
			return
		}

		payload, err := r.anRunner.ParseAudioOutput(outPath)
		if err != nil {
			r.failJob(ctx, job, fmt.Sprintf("audio output invalid: %v", err))
			return
		}

		record := payload.ToAnalysis()
		if record.MediaPath == "" {
			record.MediaPath = mediaPath
		}
		stored, err := r.analyses.IngestAudio(ctx, record)
		if err != nil {
			r.failJob(ctx, job, err.Error())
			return
		}
		r.logger.Info("audio analysis completed",
			"job_id", job.ID, "analysis_id", stored.ID, "duration", result.Duration)

	case JobTypeAnalyzeVideo:
		if !caps.HasScenes {
			r.failJob(ctx, job, "scene analyzer not available")
			return
		}

		result, err := r.anRunner.RunScenes(ctx, mediaPath, outPath)
		if err != nil {
			r.failJob(ctx, job, fmt.Sprintf("scene analyzer error: %v", err))
			return
		}
		if !result.IsSuccess() {
			r.failJob(ctx, job, fmt.Sprintf("scene analyzer exited %d: %s", result.ExitCode, tail(result.StderrTail, 512)))
			return
		}

		payload, err := r.anRunner.ParseScenesOutput(outPath)
		if err != nil {
			r.failJob(ctx, job, fmt.Sprintf("scene output invalid: %v", err))
			return
		}

		record := payload.ToAnalysis()
		if record.MediaPath == "" {
			record.MediaPath = mediaPath
		}
		stored, err := r.analyses.IngestVideo(ctx, record)
		if err != nil {
			r.failJob(ctx, job, err.Error())
			return
		}
		r.logger.Info("video analysis completed",
			"job_id", job.ID, "analysis_id", stored.ID, "scenes", len(stored.Scenes), "duration", result.Duration)
	}

	r.repo.UpdateJobProgress(ctx, job.ID, 100, "")
	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusCompleted, "")
}

func (r *Runner) failJob(ctx context.Context, job *Job, msg string) {
	r.logger.Error("job failed", "job_id", job.ID, "type", job.Type, "error", msg)
	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, msg)
}

func (r *Runner) failGenerate(ctx context.Context, job *Job, plan *Plan, msg string) {
	r.failJob(ctx, job, msg)
	r.repo.UpdatePlanStatus(ctx, plan.ID, PlanStatusFailed, msg)
}

func (r *Runner) GetActiveJobCount(ctx context.Context) int {
	jobs, err := r.repo.ListJobs(ctx, 100)
	if err != nil {
		return 0
	}
	count := 0
	for _, j := range jobs {
		if j.Status == JobStatusRunning {
			count++
		}
	}
	return count
}

func tail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[len(s)-maxLen:]
}

func sortedIDs(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
