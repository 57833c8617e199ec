package export

// Transition codes carried on a resolved clip. The code describes how the
// clip is entered from the previous event.
const (
	TransCut      = "C"
	TransDissolve = "D"
	TransWipe     = "W001"
)

// ExportRequest asks for a generated plan to be written out in a cut-list
// format. The plan itself is addressed by the URL, not the body.
type ExportRequest struct {
	ProjectName string  `json:"project_name"`
	Format      string  `json:"format"`
	FrameRate   float64 `json:"frame_rate,omitempty"`
	OutputDir   string  `json:"output_dir"`
}

// ResolvedClip is one timeline event with its source media resolved to a
// path. Times are milliseconds; source and record ranges may differ when the
// engine flagged the clip degraded.
type ResolvedClip struct {
	ClipName    string
	MediaPath   string
	SceneID     string
	SrcInMs     int
	SrcOutMs    int
	RecInMs     int
	RecOutMs    int
	Transition  string // how this clip is entered: C, D or W001
	TransFrames int    // transition duration in frames, 0 for cuts
}

type ExportResponse struct {
	Status          string   `json:"status"`
	Format          string   `json:"format"`
	OutputPath      string   `json:"output_path"`
	ClipCount       int      `json:"clip_count"`
	UnresolvedClips []string `json:"unresolved_clips"`
}
