// Package cloud pushes finished edit plans to the Tempocut SaaS so they can
// be reviewed and shared from the web app. Upload is best effort; the agent
// remains fully functional offline.
package cloud

import (
	"math"

	"github.com/tempocut/tempocut-agent/internal/plans"
)

// PlanIngestPayload is the request body sent to POST /api/ingest/plans.
// Matches the SaaS IngestPlanRequest schema.
type PlanIngestPayload struct {
	PlanID      string          `json:"plan_id"`
	ProjectID   string          `json:"project_id,omitempty"`
	Name        string          `json:"name"`
	AudioID     string          `json:"audio_id"`
	Style       string          `json:"style"`
	Seed        int64           `json:"seed"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	DurationMs  int             `json:"duration_ms,omitempty"`
	Clips       []ClipIngestDoc `json:"clips"`
	Transitions int             `json:"transition_count"`
	BeatScore   float64         `json:"beat_alignment_score,omitempty"`
}

type ClipIngestDoc struct {
	ClipID        string `json:"clip_id"`
	Index         int    `json:"index"`
	TimelineInMs  int    `json:"timeline_in_ms"`
	TimelineOutMs int    `json:"timeline_out_ms"`
	SourceVideoID string `json:"source_video_id"`
	SceneID       string `json:"scene_id"`
	SourceInMs    int    `json:"source_in_ms"`
	SourceOutMs   int    `json:"source_out_ms"`
	Degraded      bool   `json:"degraded,omitempty"`
}

// PlanIngestResponse is the response from POST /api/ingest/plans.
type PlanIngestResponse struct {
	PlanID       string `json:"plan_id"`
	IndexedCount int    `json:"indexed_count"`
	SkippedCount int    `json:"skipped_count"`
}

// BuildPlanPayload flattens a completed plan into its ingest form. The
// caller is responsible for only passing plans that carry a result.
func BuildPlanPayload(p *plans.Plan, projectID string) PlanIngestPayload {
	payload := PlanIngestPayload{
		PlanID:      p.ID,
		ProjectID:   projectID,
		Name:        p.Name,
		AudioID:     p.AudioID,
		Style:       string(p.Config.Style),
		Seed:        p.Seed,
		Fingerprint: p.Fingerprint,
	}

	if p.Result == nil {
		return payload
	}

	edl := p.Result.EDL
	payload.Clips = make([]ClipIngestDoc, len(edl.Clips))
	for i, c := range edl.Clips {
		payload.Clips[i] = ClipIngestDoc{
			ClipID:        c.ID,
			Index:         i,
			TimelineInMs:  toMs(c.TimelineIn),
			TimelineOutMs: toMs(c.TimelineOut),
			SourceVideoID: c.SourceVideoID,
			SceneID:       c.SceneID,
			SourceInMs:    toMs(c.SourceIn),
			SourceOutMs:   toMs(c.SourceOut),
			Degraded:      c.Degraded,
		}
	}
	if n := len(edl.Clips); n > 0 {
		payload.DurationMs = toMs(edl.Clips[n-1].TimelineOut)
	}
	payload.Transitions = len(edl.Transitions)
	payload.BeatScore = p.Result.Stats.BeatAlignmentScore

	return payload
}

func toMs(seconds float64) int {
	return int(math.Round(seconds * 1000))
}
