package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/export"
	"github.com/tempocut/tempocut-agent/internal/plans"
)

// exportPlanHandler writes a completed plan's EDL to disk in CMX3600 form.
// The plan id comes from the URL; format, project name and output directory
// from the body.
func exportPlanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		planID := chi.URLParam(r, "id")
		if planID == "" {
			WriteError(w, http.StatusBadRequest, "plan id required", "BAD_REQUEST")
			return
		}

		var req export.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.Format != "" && strings.ToLower(req.Format) != "edl" {
			WriteError(w, http.StatusBadRequest, "format must be edl", "BAD_REQUEST")
			return
		}
		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		plan, err := cfg.Plans.GetPlan(r.Context(), planID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if plan == nil {
			WriteError(w, http.StatusNotFound, "plan not found", "NOT_FOUND")
			return
		}
		if plan.Status != plans.PlanStatusCompleted || plan.Result == nil {
			WriteError(w, http.StatusConflict, "plan has no completed result", "PLAN_NOT_READY")
			return
		}

		// Fetch individually so one deleted analysis degrades the export
		// instead of failing it.
		videos := make(map[string]*analysis.VideoAnalysis, len(plan.VideoIDs))
		for _, id := range plan.VideoIDs {
			v, err := cfg.Analyses.GetVideo(r.Context(), id)
			if err != nil {
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
			if v != nil {
				videos[id] = v
			}
		}

		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = plan.Result.EDL.FrameRate
		}
		if frameRate <= 0 {
			frameRate = 30.0
		}

		projectName := req.ProjectName
		if projectName == "" {
			projectName = plan.Name
		}

		fps := int(math.Round(frameRate))
		clips, unresolved := export.ResolveClips(plan.Result.EDL, videos, fps)
		if len(clips) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no clips could be resolved", "UNRESOLVABLE_CLIPS")
			return
		}

		outputPath, err := export.WriteEDL(clips, projectName, req.OutputDir, frameRate)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, export.ExportResponse{
			Status:          "ok",
			Format:          "edl",
			OutputPath:      outputPath,
			ClipCount:       len(clips),
			UnresolvedClips: unresolved,
		})
	}
}
