package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/plans"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/analyses", listAnalysesHandler(cfg))
		r.Post("/analyses", ingestAnalysisHandler(cfg))
		r.Post("/analyze", analyzeHandler(cfg))
		r.Get("/plans", listPlansHandler(cfg))
		r.Post("/plans", createPlanHandler(cfg))
		r.Get("/plans/{id}", getPlanHandler(cfg))
		r.Delete("/plans/{id}", deletePlanHandler(cfg))
		r.Post("/plans/{id}/export", exportPlanHandler(cfg))
		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
		r.With(LoopbackGuard()).Get("/playback/file", playbackHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  cfg.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		audioCount, videoCount, _ := cfg.Analyses.Counts(ctx)
		plansCount, _ := cfg.Plans.CountPlans(ctx, "")
		jobs, _ := cfg.Plans.ListJobs(ctx, 10)

		state := "idle"
		var activeJob *JobResponse
		jobsRunning := 0
		lastError := ""

		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		for _, j := range jobs {
			if j.Status == plans.JobStatusRunning {
				state = "working"
				resp := JobToResponse(j)
				activeJob = &resp
				jobsRunning++
			}
			if j.Status == plans.JobStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		resp := StatusResponse{
			State:       state,
			LastError:   lastError,
			AudioCount:  audioCount,
			VideoCount:  videoCount,
			PlansCount:  plansCount,
			JobsRunning: jobsRunning,
			ActiveJob:   activeJob,
		}

		if cfg.Doctor != nil {
			caps, err := cfg.Doctor.Get(ctx)
			if err == nil && caps != nil {
				resp.Analyzers = &AnalyzerStatusResponse{
					HasAudio:  caps.HasAudio,
					HasScenes: caps.HasScenes,
					DepsAvail: caps.Summary.Available,
					DepsTotal: caps.Summary.Total,
				}
				if !caps.ProbedAt.IsZero() {
					resp.Analyzers.LastProbeAt = caps.ProbedAt.Format(time.RFC3339)
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listAnalysesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		audio, err := cfg.Analyses.ListAudio(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list analyses", "INTERNAL_ERROR")
			return
		}
		video, err := cfg.Analyses.ListVideos(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list analyses", "INTERNAL_ERROR")
			return
		}

		resp := AnalysesResponse{
			Audio: make([]AudioAnalysisResponse, len(audio)),
			Video: make([]VideoAnalysisResponse, len(video)),
		}
		for i, a := range audio {
			resp.Audio[i] = AudioToResponse(a)
		}
		for i, v := range video {
			resp.Video[i] = VideoToResponse(v)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func ingestAnalysisHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IngestAnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		switch req.Kind {
		case analysis.KindAudio:
			if req.Audio == nil {
				WriteError(w, http.StatusBadRequest, "audio payload is required", "BAD_REQUEST")
				return
			}
			saved, err := cfg.Analyses.IngestAudio(r.Context(), req.Audio)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			WriteJSON(w, http.StatusCreated, IngestAnalysisResponse{ID: saved.ID})
		case analysis.KindVideo:
			if req.Video == nil {
				WriteError(w, http.StatusBadRequest, "video payload is required", "BAD_REQUEST")
				return
			}
			saved, err := cfg.Analyses.IngestVideo(r.Context(), req.Video)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			WriteJSON(w, http.StatusCreated, IngestAnalysisResponse{ID: saved.ID})
		default:
			WriteError(w, http.StatusBadRequest, "kind must be audio or video", "BAD_REQUEST")
		}
	}
}

func analyzeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		var job *plans.Job
		var err error
		switch req.Kind {
		case analysis.KindAudio:
			job, err = cfg.Plans.RequestAudioAnalysis(r.Context(), req.Path)
		case analysis.KindVideo:
			job, err = cfg.Plans.RequestVideoAnalysis(r.Context(), req.Path)
		default:
			WriteError(w, http.StatusBadRequest, "kind must be audio or video", "BAD_REQUEST")
			return
		}
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusAccepted, AnalyzeResponse{JobID: job.ID})
	}
}

func listPlansHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := cfg.Plans.ListPlans(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list plans", "INTERNAL_ERROR")
			return
		}

		resp := PlansResponse{Plans: make([]PlanResponse, len(list))}
		for i, p := range list {
			resp.Plans[i] = PlanToResponse(p, false)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createPlanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req plans.CreatePlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		plan, job, err := cfg.Plans.CreatePlan(r.Context(), req)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusAccepted, CreatePlanResponse{PlanID: plan.ID, JobID: job.ID})
	}
}

func getPlanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "plan id required", "BAD_REQUEST")
			return
		}

		plan, err := cfg.Plans.GetPlan(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if plan == nil {
			WriteError(w, http.StatusNotFound, "plan not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, PlanToResponse(plan, true))
	}
}

func deletePlanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "plan id required", "BAD_REQUEST")
			return
		}

		if err := cfg.Plans.DeletePlan(r.Context(), id); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Plans.ListJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Plans.GetJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := r.URL.Query().Get("video_id")
		if videoID == "" {
			WriteError(w, http.StatusBadRequest, "video_id is required", "BAD_REQUEST")
			return
		}

		video, err := cfg.Analyses.GetVideo(r.Context(), videoID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if video == nil {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}

		if err := cfg.Playback.ServeFile(w, r, video.MediaPath); err != nil {
			cfg.Logger.Error("playback error", "error", err, "video_id", videoID)
		}
	}
}
