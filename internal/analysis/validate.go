package analysis

import "fmt"

// ValidateAudio checks the hard invariants the agent enforces on an audio
// analysis record before it is stored. Malformed records are rejected, never
// silently coerced.
func ValidateAudio(a *AudioAnalysis) error {
	if a == nil {
		return fmt.Errorf("audio analysis is nil")
	}
	if a.ID == "" {
		return fmt.Errorf("audio analysis: id is required")
	}
	if a.Duration <= 0 {
		return fmt.Errorf("audio analysis %s: duration must be positive, got %v", a.ID, a.Duration)
	}
	for i, b := range a.Beats {
		if b.Time < 0 || b.Time > a.Duration {
			return fmt.Errorf("audio analysis %s: beat %d at %.3fs is outside the track", a.ID, i, b.Time)
		}
		if b.Confidence < 0 || b.Confidence > 1 {
			return fmt.Errorf("audio analysis %s: beat %d confidence %v out of [0,1]", a.ID, i, b.Confidence)
		}
	}
	for i, s := range a.Segments {
		if s.EndTime <= s.StartTime {
			return fmt.Errorf("audio analysis %s: segment %d has non-positive span", a.ID, i)
		}
	}
	for i, e := range a.Energy {
		if e.Level < 0 || e.Level > 1 {
			return fmt.Errorf("audio analysis %s: energy sample %d level %v out of [0,1]", a.ID, i, e.Level)
		}
	}
	return nil
}

// ValidateVideo checks a video analysis record: scenes must be ordered,
// non-overlapping and inside the video duration.
func ValidateVideo(v *VideoAnalysis) error {
	if v == nil {
		return fmt.Errorf("video analysis is nil")
	}
	if v.ID == "" {
		return fmt.Errorf("video analysis: id is required")
	}
	if v.Duration <= 0 {
		return fmt.Errorf("video analysis %s: duration must be positive, got %v", v.ID, v.Duration)
	}
	if len(v.Scenes) == 0 {
		return fmt.Errorf("video analysis %s: at least one scene is required", v.ID)
	}
	prevEnd := 0.0
	for i, s := range v.Scenes {
		if s.ID == "" {
			return fmt.Errorf("video analysis %s: scene %d has no id", v.ID, i)
		}
		if s.EndTime <= s.StartTime {
			return fmt.Errorf("video analysis %s: scene %s has non-positive span", v.ID, s.ID)
		}
		if s.StartTime < prevEnd-1e-6 {
			return fmt.Errorf("video analysis %s: scene %s overlaps the previous scene", v.ID, s.ID)
		}
		if s.EndTime > v.Duration+1e-6 {
			return fmt.Errorf("video analysis %s: scene %s ends past the video duration", v.ID, s.ID)
		}
		if s.BoundaryConfidence < 0 || s.BoundaryConfidence > 1 {
			return fmt.Errorf("video analysis %s: scene %s boundary confidence %v out of [0,1]", v.ID, s.ID, s.BoundaryConfidence)
		}
		prevEnd = s.EndTime
	}
	return nil
}
