package engine

import (
	"math"
	"math/rand"
	"sort"

	"github.com/tempocut/tempocut-agent/internal/analysis"
)

// Scene classification tags the matcher understands.
const (
	tagAction       = "action"
	tagDynamic      = "dynamic"
	tagInterior     = "interior"
	tagStatic       = "static"
	tagPerformance  = "performance"
	tagBRollStatic  = "broll_static"
	tagBRollDynamic = "broll_dynamic"
)

// actionEnergyGate is the ambient-energy level above which action footage
// earns its bonus.
const actionEnergyGate = 0.7

// segmentAffinity weights scene-type against audio-segment-type pairings:
// performance footage belongs with choruses, calm b-roll with verses,
// dynamic b-roll with bridges.
var segmentAffinity = map[string]map[string]float64{
	tagPerformance:  {"chorus": 1.4, "verse": 1.1},
	tagBRollStatic:  {"verse": 1.3, "intro": 1.2, "outro": 1.2},
	tagBRollDynamic: {"bridge": 1.3, "chorus": 1.15},
}

// audioContext is what the matcher knows about the track at one cut window.
type audioContext struct {
	energy      float64
	segmentType string
	importance  float64
}

// candidate is one scored scene during selection.
type candidate struct {
	scene   analysis.Scene
	videoID string
	score   float64
}

// clipMatcher assigns the best-matching scene to each interval between two
// cuts. It remembers per-scene playhead offsets so a scene reused across
// consecutive windows advances through its footage instead of replaying the
// same frames.
type clipMatcher struct {
	cfg           Config
	scenesByVideo map[string][]analysis.Scene
	videoIDs      []string
	rng           *rand.Rand
	offsets       map[string]float64 // scene key -> next source offset
}

func newClipMatcher(cfg Config, scenesByVideo map[string][]analysis.Scene, rng *rand.Rand) *clipMatcher {
	ids := make([]string, 0, len(scenesByVideo))
	for id := range scenesByVideo {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &clipMatcher{
		cfg:           cfg,
		scenesByVideo: scenesByVideo,
		videoIDs:      ids,
		rng:           rng,
		offsets:       make(map[string]float64),
	}
}

// selectBestScene scores every candidate scene for the window and picks
// uniformly at random among the top few, to avoid monotonous reuse of the
// single best clip. The returned assignment is flagged degraded when only a
// too-short scene could be found.
func (m *clipMatcher) selectBestScene(clipID string, windowStart, windowEnd float64, audioCtx audioContext) ClipAssignment {
	windowDur := windowEnd - windowStart

	candidates := m.collect(windowDur*m.cfg.MinDurationRatio, windowDur, audioCtx)
	if len(candidates) == 0 {
		// Relax the duration filter: any scene at least as long as the window.
		candidates = m.collect(windowDur, windowDur, audioCtx)
	}

	if len(candidates) > 0 {
		pick := m.pick(candidates)
		return m.assign(clipID, pick, windowStart, windowEnd, audioCtx, false)
	}

	// Last resort: the longest scene anywhere, truncation accepted.
	pick := m.longestScene()
	return m.assign(clipID, pick, windowStart, windowEnd, audioCtx, true)
}

func (m *clipMatcher) collect(minDur, windowDur float64, audioCtx audioContext) []candidate {
	var out []candidate
	for _, videoID := range m.videoIDs {
		for _, scene := range m.scenesByVideo[videoID] {
			if scene.Duration < minDur-timeEpsilon {
				continue
			}
			out = append(out, candidate{
				scene:   scene,
				videoID: videoID,
				score:   m.score(scene, windowDur, audioCtx),
			})
		}
	}
	return out
}

// score implements the heuristic ranking: base 1.0, duration-fit penalty,
// boundary confidence weighting, then energy and content bonuses.
func (m *clipMatcher) score(scene analysis.Scene, windowDur float64, audioCtx audioContext) float64 {
	score := 1.0

	if windowDur > 0 && scene.Duration/windowDur > m.cfg.LongDurationRatio {
		score *= m.cfg.LongDurationPenalty
	}

	score *= scene.BoundaryConfidence

	if audioCtx.energy > actionEnergyGate && (scene.HasType(tagAction) || scene.HasType(tagDynamic)) {
		score *= 1.5
	}
	if audioCtx.energy < m.cfg.EnergyThresholds.Low && (scene.HasType(tagInterior) || scene.HasType(tagStatic)) {
		score *= 1.3
	}

	if scene.Content.FaceCount > 0 && audioCtx.importance >= m.cfg.HighImportance {
		score *= 1.2
	}

	if audioCtx.segmentType != "" {
		for _, tag := range scene.SceneTypes {
			if bonus, ok := segmentAffinity[tag][audioCtx.segmentType]; ok {
				score *= bonus
			}
		}
	}

	return score
}

// pick ranks candidates descending by score, ties broken by video then scene
// ID for determinism, and draws uniformly among the top candidates.
func (m *clipMatcher) pick(candidates []candidate) candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].videoID != candidates[j].videoID {
			return candidates[i].videoID < candidates[j].videoID
		}
		return candidates[i].scene.ID < candidates[j].scene.ID
	})

	top := m.cfg.TopCandidates
	if top > len(candidates) {
		top = len(candidates)
	}
	return candidates[m.rng.Intn(top)]
}

func (m *clipMatcher) longestScene() candidate {
	var best candidate
	for _, videoID := range m.videoIDs {
		for _, scene := range m.scenesByVideo[videoID] {
			if scene.Duration > best.scene.Duration {
				best = candidate{scene: scene, videoID: videoID}
			}
		}
	}
	return best
}

// assign builds the clip record, advancing the scene playhead so consecutive
// windows on the same scene use fresh footage. Degraded assignments keep the
// timeline window but truncate the source span to what the scene has.
func (m *clipMatcher) assign(clipID string, pick candidate, windowStart, windowEnd float64, audioCtx audioContext, degraded bool) ClipAssignment {
	windowDur := windowEnd - windowStart
	scene := pick.scene
	key := pick.videoID + "/" + scene.ID

	offset := m.offsets[key]
	if scene.StartTime+offset+windowDur > scene.EndTime+timeEpsilon {
		offset = 0 // playhead exhausted, rewind
	}

	sourceIn := scene.StartTime + offset
	sourceOut := sourceIn + windowDur
	if sourceOut > scene.EndTime {
		// Shift the span back to keep it full-length; when the scene itself
		// is shorter than the window, truncation is all that remains and the
		// assignment must carry the degraded flag.
		sourceOut = scene.EndTime
		if sourceOut-windowDur >= scene.StartTime-timeEpsilon {
			sourceIn = math.Max(scene.StartTime, sourceOut-windowDur)
		} else {
			sourceIn = scene.StartTime
			degraded = true
		}
	}
	m.offsets[key] = sourceOut - scene.StartTime

	return ClipAssignment{
		ID:            clipID,
		TimelineIn:    windowStart,
		TimelineOut:   windowEnd,
		SourceVideoID: pick.videoID,
		SceneID:       scene.ID,
		SourceIn:      sourceIn,
		SourceOut:     sourceOut,
		SceneStart:    scene.StartTime,
		SceneEnd:      scene.EndTime,
		Importance:    audioCtx.importance,
		Degraded:      degraded,
	}
}
