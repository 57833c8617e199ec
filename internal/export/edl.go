// Package export renders generated edit plans as CMX3600 EDL text for
// interchange with NLEs, plus the name and path sanitization the export
// endpoint applies to caller-supplied values.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/engine"
)

// ResolveClips maps an EDL's clip assignments to exportable events, looking
// up each clip's source media path. Video IDs with no known analysis are
// returned separately; their clips are skipped rather than failing the whole
// export.
func ResolveClips(edl engine.EditDecisionList, videos map[string]*analysis.VideoAnalysis, fps int) ([]ResolvedClip, []string) {
	transitionIn := make(map[string]engine.Transition, len(edl.Transitions))
	for _, tr := range edl.Transitions {
		transitionIn[tr.IncomingClipID] = tr
	}

	var clips []ResolvedClip
	missing := map[string]bool{}

	for _, c := range edl.Clips {
		v, ok := videos[c.SourceVideoID]
		if !ok || v == nil {
			missing[c.SourceVideoID] = true
			continue
		}

		rc := ResolvedClip{
			ClipName:   fmt.Sprintf("%s %s", baseName(v.MediaPath), c.SceneID),
			MediaPath:  v.MediaPath,
			SceneID:    c.SceneID,
			SrcInMs:    toMs(c.SourceIn),
			SrcOutMs:   toMs(c.SourceOut),
			RecInMs:    toMs(c.TimelineIn),
			RecOutMs:   toMs(c.TimelineOut),
			Transition: TransCut,
		}

		if tr, ok := transitionIn[c.ID]; ok {
			switch tr.Type {
			case engine.TransitionWipe:
				rc.Transition = TransWipe
			case engine.TransitionDissolve, engine.TransitionFadeIn, engine.TransitionFadeOut:
				// Fades are dissolves from or to black in CMX3600 terms.
				rc.Transition = TransDissolve
			}
			rc.TransFrames = int(math.Round(tr.Duration * float64(fps)))
		}

		clips = append(clips, rc)
	}

	var unresolved []string
	for id := range missing {
		unresolved = append(unresolved, id)
	}
	sort.Strings(unresolved)
	return clips, unresolved
}

// GenerateEDL renders resolved clips as CMX3600 EDL text.
func GenerateEDL(clips []ResolvedClip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, clip := range clips {
		srcIn := msToTimecode(clip.SrcInMs, fps)
		srcOut := msToTimecode(clip.SrcOutMs, fps)
		recIn := msToTimecode(clip.RecInMs, fps)
		recOut := msToTimecode(clip.RecOutMs, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s %s %s %s %s %s",
				i+1, "AX", "V", transitionField(clip), srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clip.ClipName),
			fmt.Sprintf("* MEDIA PATH:  %s", clip.MediaPath),
		)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// WriteEDL renders the clips and writes the result to outputDir, deriving
// the file name from the sanitized project name. Returns the written path.
func WriteEDL(clips []ResolvedClip, projectName, outputDir string, frameRate float64) (string, error) {
	if err := ValidateOutputDir(outputDir); err != nil {
		return "", err
	}

	name := SanitizeName(projectName, 80)
	if name == "" {
		name = "untitled"
	}

	content := GenerateEDL(clips, name, frameRate)
	path := filepath.Join(outputDir, name+".edl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing EDL: %w", err)
	}
	return path, nil
}

// transitionField renders the CMX transition columns: the code and, for
// anything but a cut, the duration in frames. Width matches the plain cut
// field so the timecode columns stay aligned.
func transitionField(clip ResolvedClip) string {
	if clip.Transition == TransCut || clip.Transition == "" {
		return "C       "
	}
	return fmt.Sprintf("%-4s %03d", clip.Transition, clip.TransFrames)
}

func toMs(seconds float64) int {
	return int(math.Round(seconds * 1000))
}

func baseName(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	return path[idx+1:]
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
