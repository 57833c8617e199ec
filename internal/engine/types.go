package engine

// Event provenance tags used by the merged timeline.
const (
	EventBeat          = "beat"
	EventSceneBoundary = "scene_boundary"
	EventCut           = "cut"
)

// TimelineEvent is one entry of the flat merged beat/boundary/cut stream.
// The stream is returned alongside the plan for visualization.
type TimelineEvent struct {
	Time     float64 `json:"time"`
	Type     string  `json:"type"`
	SourceID string  `json:"source_id,omitempty"`
}

// Cut point origins.
const (
	OriginBeat          = "beat"
	OriginSceneBoundary = "scene_boundary"
	OriginForced        = "forced"
)

// CutPoint is a chosen timestamp where the visible source changes.
// Forced cuts are synthesized to respect the maximum-interval constraint.
type CutPoint struct {
	Time   float64 `json:"time"`
	Origin string  `json:"origin"`
	Energy float64 `json:"energy"`
}

// ClipAssignment maps one timeline interval to a span of a source scene.
// Source and timeline spans are equal in duration (no speed change); the
// only exception is a degraded last-resort assignment, which truncates the
// source span and is flagged as such.
type ClipAssignment struct {
	ID            string  `json:"id"`
	TimelineIn    float64 `json:"timeline_in"`
	TimelineOut   float64 `json:"timeline_out"`
	SourceVideoID string  `json:"source_video_id"`
	SceneID       string  `json:"scene_id"`
	SourceIn      float64 `json:"source_in"`
	SourceOut     float64 `json:"source_out"`
	SceneStart    float64 `json:"scene_start"`
	SceneEnd      float64 `json:"scene_end"`
	Importance    float64 `json:"importance"`
	Degraded      bool    `json:"degraded,omitempty"`
	Repeated      bool    `json:"repeated,omitempty"`
}

func (c ClipAssignment) Duration() float64 {
	return c.TimelineOut - c.TimelineIn
}

// TransitionType enumerates the supported transition kinds. Hard cuts are
// never materialized as Transition records.
type TransitionType string

const (
	TransitionCut      TransitionType = "cut"
	TransitionDissolve TransitionType = "dissolve"
	TransitionWipe     TransitionType = "wipe"
	TransitionFadeIn   TransitionType = "fade_in"
	TransitionFadeOut  TransitionType = "fade_out"
)

// Transition overlaps two adjacent clips symmetrically around CenterPoint.
type Transition struct {
	ID             string         `json:"id"`
	Type           TransitionType `json:"type"`
	Duration       float64        `json:"duration"`
	OutgoingClipID string         `json:"outgoing_clip_id"`
	IncomingClipID string         `json:"incoming_clip_id"`
	CenterPoint    float64        `json:"center_point"`
}

// EditDecisionList is the aggregate output plan. Clips are
// timeline-contiguous and non-overlapping; every transition references an
// adjacent clip pair.
type EditDecisionList struct {
	Clips       []ClipAssignment `json:"clips"`
	Transitions []Transition     `json:"transitions"`
	CutPoints   []CutPoint       `json:"cut_points"`
	FrameRate   float64          `json:"frame_rate"`
}

// Stats summarizes a generated plan for diagnostics.
type Stats struct {
	TotalCuts            int            `json:"total_cuts"`
	AverageSceneDuration float64        `json:"average_scene_duration"`
	TransitionTypeCounts map[string]int `json:"transition_type_counts"`
	BeatAlignmentScore   float64        `json:"beat_alignment_score"`
	DegradedClips        int            `json:"degraded_clips"`
}

// Result bundles everything one engine invocation produces.
type Result struct {
	EDL      EditDecisionList `json:"edl"`
	Stats    Stats            `json:"stats"`
	Timeline []TimelineEvent  `json:"timeline,omitempty"`
}
