// Package analysis holds the data contracts delivered by the external audio
// and video analyzers, plus their persistence. The agent never computes these
// records itself; it validates and stores what the analyzers emit.
package analysis

import (
	"time"

	"github.com/google/uuid"
)

const (
	KindAudio = "audio"
	KindVideo = "video"
)

// Beat is a detected rhythmic pulse in the audio track.
type Beat struct {
	Time       float64 `json:"time"`
	Confidence float64 `json:"confidence"`
	Energy     float64 `json:"energy,omitempty"`
}

// Segment is a labeled structural span of the track (verse, chorus, ...).
// Segments are contiguous but may not cover the whole track.
type Segment struct {
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Duration   float64 `json:"duration"`
	Type       string  `json:"type"`
	Energy     float64 `json:"energy,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// EnergySample is one point of a sparse energy curve, level in [0,1].
type EnergySample struct {
	Time  float64 `json:"time"`
	Level float64 `json:"level"`
}

// AudioAnalysis is the finished analysis of one music track.
type AudioAnalysis struct {
	ID        string         `json:"id"`
	MediaPath string         `json:"media_path"`
	Duration  float64        `json:"duration"`
	Tempo     float64        `json:"tempo,omitempty"`
	Beats     []Beat         `json:"beats"`
	Segments  []Segment      `json:"segments,omitempty"`
	Energy    []EnergySample `json:"energy,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// ContentSummary carries optional per-scene classification from the
// video analyzer.
type ContentSummary struct {
	FaceCount   int     `json:"face_count,omitempty"`
	HasMotion   bool    `json:"has_motion,omitempty"`
	MotionScore float64 `json:"motion_score,omitempty"`
}

// Scene is a contiguous span of a source video between two detected cuts.
type Scene struct {
	ID                 string         `json:"id"`
	VideoID            string         `json:"video_id"`
	StartTime          float64        `json:"start_time"`
	EndTime            float64        `json:"end_time"`
	Duration           float64        `json:"duration"`
	BoundaryConfidence float64        `json:"boundary_confidence"`
	SceneTypes         []string       `json:"scene_types,omitempty"`
	Content            ContentSummary `json:"content,omitempty"`
}

// VideoAnalysis is the finished analysis of one source video: an ordered,
// non-overlapping scene list spanning its duration.
type VideoAnalysis struct {
	ID        string    `json:"id"`
	MediaPath string    `json:"media_path"`
	Duration  float64   `json:"duration"`
	Scenes    []Scene   `json:"scenes"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// HasType reports whether the scene carries the given classification tag.
func (s Scene) HasType(tag string) bool {
	for _, t := range s.SceneTypes {
		if t == tag {
			return true
		}
	}
	return false
}

func NewID() string {
	return uuid.NewString()
}
