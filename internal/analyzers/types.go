// Package analyzers provides subprocess-based execution of the
// tempocut-media-analyzers Python CLI commands (doctor, audio, scenes) with
// structured result parsing. The agent never analyzes media itself; it runs
// these analyzers and ingests the JSON they emit.
package analyzers

import (
	"time"

	"github.com/tempocut/tempocut-agent/internal/analysis"
)

// Capabilities represents what the installed Python analyzers can do,
// as reported by the `doctor --json` command.
type Capabilities struct {
	PackageVersion string             `json:"package_version"`
	Python         PythonInfo         `json:"python"`
	Dependencies   map[string]DepInfo `json:"dependencies"`
	Executables    map[string]DepInfo `json:"executables"`
	Summary        SummaryInfo        `json:"summary"`
	Analyzers      AnalyzersInfo      `json:"analyzers"`

	HasAudio  bool      `json:"-"`
	HasScenes bool      `json:"-"`
	ProbedAt  time.Time `json:"-"`
}

// AnalyzersInfo reports per-analyzer availability from doctor JSON.
type AnalyzersInfo struct {
	Audio  bool `json:"audio"`
	Scenes bool `json:"scenes"`
}

// PythonInfo holds Python runtime information.
type PythonInfo struct {
	Version    string `json:"version"`
	Executable string `json:"executable"`
}

// DepInfo represents the availability status of a single dependency.
type DepInfo struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SummaryInfo summarises overall dependency status.
type SummaryInfo struct {
	Available int  `json:"available"`
	Total     int  `json:"total"`
	AllOK     bool `json:"all_ok"`
}

// RunResult is the structured outcome of executing an analyzer subprocess.
type RunResult struct {
	ExitCode   int           `json:"exit_code"`
	OutputPath string        `json:"output_path,omitempty"` // path to the --out JSON file
	StderrTail string        `json:"stderr_tail,omitempty"` // last N bytes of stderr
	Duration   time.Duration `json:"duration"`
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// AnalyzerOutput holds the required metadata fields the agent validates in
// every analyzer JSON output file.
type AnalyzerOutput struct {
	SchemaVersion   string `json:"schema_version"`
	AnalyzerVersion string `json:"analyzer_version"`
	ModelVersion    string `json:"model_version"`
}

// RequiredFieldsPresent checks the hard invariants the agent enforces.
func (o AnalyzerOutput) RequiredFieldsPresent() bool {
	return o.SchemaVersion != "" && o.AnalyzerVersion != "" && o.ModelVersion != ""
}

// AudioOutputPayload is the audio analyzer's full output document.
type AudioOutputPayload struct {
	AnalyzerOutput
	MediaPath string                  `json:"media_path"`
	DurationS float64                 `json:"duration_s"`
	TempoBPM  float64                 `json:"tempo_bpm"`
	Beats     []analysis.Beat         `json:"beats"`
	Segments  []analysis.Segment      `json:"segments,omitempty"`
	Energy    []analysis.EnergySample `json:"energy,omitempty"`
}

// ToAnalysis converts the payload into the record the agent stores. The ID is
// left empty; ingest assigns it.
func (p AudioOutputPayload) ToAnalysis() *analysis.AudioAnalysis {
	return &analysis.AudioAnalysis{
		MediaPath: p.MediaPath,
		Duration:  p.DurationS,
		Tempo:     p.TempoBPM,
		Beats:     p.Beats,
		Segments:  p.Segments,
		Energy:    p.Energy,
	}
}

// SceneOutputPayload is the scene analyzer's full output document.
type SceneOutputPayload struct {
	AnalyzerOutput
	MediaPath string        `json:"media_path"`
	DurationS float64       `json:"duration_s"`
	Scenes    []SceneRecord `json:"scenes"`
}

// SceneRecord is one detected scene from the analyzer.
type SceneRecord struct {
	Index              int      `json:"index"`
	StartS             float64  `json:"start_s"`
	EndS               float64  `json:"end_s"`
	BoundaryConfidence float64  `json:"boundary_confidence"`
	SceneTypes         []string `json:"scene_types,omitempty"`
	FaceCount          int      `json:"face_count,omitempty"`
	HasMotion          bool     `json:"has_motion,omitempty"`
	MotionScore        float64  `json:"motion_score,omitempty"`
}

// ToAnalysis converts the payload into the record the agent stores. Scene IDs
// and the video ID are assigned during ingest.
func (p SceneOutputPayload) ToAnalysis() *analysis.VideoAnalysis {
	v := &analysis.VideoAnalysis{
		MediaPath: p.MediaPath,
		Duration:  p.DurationS,
	}
	for _, s := range p.Scenes {
		v.Scenes = append(v.Scenes, analysis.Scene{
			StartTime:          s.StartS,
			EndTime:            s.EndS,
			Duration:           s.EndS - s.StartS,
			BoundaryConfidence: s.BoundaryConfidence,
			SceneTypes:         s.SceneTypes,
			Content: analysis.ContentSummary{
				FaceCount:   s.FaceCount,
				HasMotion:   s.HasMotion,
				MotionScore: s.MotionScore,
			},
		})
	}
	return v
}
