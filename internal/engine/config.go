// Package engine computes beat-synchronized edit plans. Given a finished
// audio analysis and one or more video analyses, it merges their timed events
// into a cut schedule, assigns the best-matching scene to every interval,
// selects transitions, and runs a corrective optimization pass. The engine is
// a pure synchronous computation: no I/O, no internal concurrency, and all
// randomness comes from an explicit seed so identical inputs produce
// byte-identical plans.
package engine

import "fmt"

// EditStyle selects which cut-point strategy runs.
type EditStyle string

const (
	StyleRhythmMatch  EditStyle = "rhythm_match"
	StyleSegmentBased EditStyle = "segment_based"
	StyleEnergyBased  EditStyle = "energy_based"
	StyleCinematic    EditStyle = "cinematic"
)

func (s EditStyle) Valid() bool {
	switch s {
	case StyleRhythmMatch, StyleSegmentBased, StyleEnergyBased, StyleCinematic:
		return true
	}
	return false
}

// EnergyThresholds split the [0,1] energy range into the bands used by the
// transition selector and the energy-based cut strategy.
type EnergyThresholds struct {
	Low    float64 `yaml:"low" json:"low"`
	Medium float64 `yaml:"medium" json:"medium"`
	High   float64 `yaml:"high" json:"high"`
}

// Config holds every tunable the engine reads. The hand-tuned constants from
// the heuristics (snap window, duration ratios, dissolve ratios) are exposed
// here rather than hard-coded.
type Config struct {
	Style EditStyle `yaml:"style" json:"style"`

	// Cut point selection
	BeatCutPercentage         float64 `yaml:"beat_cut_percentage" json:"beat_cut_percentage"`
	MinSceneDuration          float64 `yaml:"min_scene_duration" json:"min_scene_duration"`
	MaxSceneDuration          float64 `yaml:"max_scene_duration" json:"max_scene_duration"`
	PrioritizeSceneBoundaries bool    `yaml:"prioritize_scene_boundaries" json:"prioritize_scene_boundaries"`
	BoundarySnapWindow        float64 `yaml:"boundary_snap_window" json:"boundary_snap_window"`

	// Clip matching
	MinDurationRatio    float64 `yaml:"min_duration_ratio" json:"min_duration_ratio"`
	LongDurationRatio   float64 `yaml:"long_duration_ratio" json:"long_duration_ratio"`
	LongDurationPenalty float64 `yaml:"long_duration_penalty" json:"long_duration_penalty"`
	TopCandidates       int     `yaml:"top_candidates" json:"top_candidates"`

	// Transitions and optimization
	EnergyThresholds    EnergyThresholds `yaml:"energy_thresholds" json:"energy_thresholds"`
	DissolveMaxRatio    float64          `yaml:"dissolve_max_ratio" json:"dissolve_max_ratio"`
	DissolveTargetRatio float64          `yaml:"dissolve_target_ratio" json:"dissolve_target_ratio"`
	HighImportance      float64          `yaml:"high_importance" json:"high_importance"`

	FrameRate float64 `yaml:"frame_rate" json:"frame_rate"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Style:                     StyleRhythmMatch,
		BeatCutPercentage:         50,
		MinSceneDuration:          1.0,
		MaxSceneDuration:          5.0,
		PrioritizeSceneBoundaries: true,
		BoundarySnapWindow:        0.5,
		MinDurationRatio:          0.8,
		LongDurationRatio:         1.5,
		LongDurationPenalty:       0.8,
		TopCandidates:             3,
		EnergyThresholds:          EnergyThresholds{Low: 0.3, Medium: 0.6, High: 0.8},
		DissolveMaxRatio:          0.5,
		DissolveTargetRatio:       0.3,
		HighImportance:            0.7,
		FrameRate:                 30,
	}
}

// Validate rejects malformed configuration before any stage runs.
func (c Config) Validate() error {
	if !c.Style.Valid() {
		return &InvalidInputError{Field: "style", Reason: fmt.Sprintf("unknown edit style %q", c.Style)}
	}
	if c.BeatCutPercentage <= 0 || c.BeatCutPercentage > 100 {
		return &InvalidInputError{Field: "beat_cut_percentage", Reason: "must be in (0,100]"}
	}
	if c.MinSceneDuration <= 0 {
		return &InvalidInputError{Field: "min_scene_duration", Reason: "must be positive"}
	}
	if c.MinSceneDuration > c.MaxSceneDuration {
		return &InvalidInputError{Field: "min_scene_duration", Reason: "must not exceed max_scene_duration"}
	}
	if c.BoundarySnapWindow < 0 {
		return &InvalidInputError{Field: "boundary_snap_window", Reason: "must not be negative"}
	}
	if c.MinDurationRatio <= 0 || c.MinDurationRatio > 1 {
		return &InvalidInputError{Field: "min_duration_ratio", Reason: "must be in (0,1]"}
	}
	if c.LongDurationRatio < 1 {
		return &InvalidInputError{Field: "long_duration_ratio", Reason: "must be at least 1"}
	}
	if c.LongDurationPenalty <= 0 || c.LongDurationPenalty > 1 {
		return &InvalidInputError{Field: "long_duration_penalty", Reason: "must be in (0,1]"}
	}
	if c.TopCandidates < 1 {
		return &InvalidInputError{Field: "top_candidates", Reason: "must be at least 1"}
	}
	t := c.EnergyThresholds
	if t.Low < 0 || t.Low > t.Medium || t.Medium > t.High || t.High > 1 {
		return &InvalidInputError{Field: "energy_thresholds", Reason: "must satisfy 0 <= low <= medium <= high <= 1"}
	}
	if c.DissolveTargetRatio < 0 || c.DissolveTargetRatio > c.DissolveMaxRatio || c.DissolveMaxRatio > 1 {
		return &InvalidInputError{Field: "dissolve_target_ratio", Reason: "must satisfy 0 <= target <= max <= 1"}
	}
	if c.FrameRate <= 0 {
		return &InvalidInputError{Field: "frame_rate", Reason: "must be positive"}
	}
	return nil
}
