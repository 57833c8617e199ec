package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/tempocut/tempocut-agent/internal/analysis"
)

// Stage names reported through progress callbacks and stage errors.
const (
	StageMerge       = "merge"
	StageCuts        = "cuts"
	StageMatch       = "match"
	StageTransitions = "transitions"
	StageOptimize    = "optimize"
	StageStats       = "stats"
)

// ProgressFunc receives stage completion notifications. It replaces any kind
// of global event emitter: callers that do not care pass nil.
type ProgressFunc func(stage string, fraction float64)

// Request is one engine invocation. Seed drives every random choice the
// engine makes; two requests with equal inputs and seeds produce
// byte-identical results.
type Request struct {
	Audio    *analysis.AudioAnalysis
	Videos   map[string]*analysis.VideoAnalysis
	Seed     int64
	Progress ProgressFunc
}

// Engine generates edit plans. It holds no per-run state; a single Engine is
// safe for concurrent Generate calls, each operating on its own locals. The
// optional result cache carries its own locking.
type Engine struct {
	cfg    Config
	cache  *ResultCache
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// SetCache attaches a result cache. Pass nil to disable caching.
func (e *Engine) SetCache(c *ResultCache) {
	e.cache = c
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Generate runs the full pipeline: merge, cut selection, clip matching,
// transition selection, optimization, stats.
func (e *Engine) Generate(req Request) (*Result, error) {
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}

	fp := Fingerprint(req.Audio.ID, videoIDs(req.Videos), e.cfg, req.Seed)
	if e.cache != nil {
		if cached, ok := e.cache.Get(fp); ok {
			if e.logger != nil {
				e.logger.Debug("plan cache hit", "fingerprint", fp[:12])
			}
			return cached, nil
		}
	}

	scenesByVideo := make(map[string][]analysis.Scene, len(req.Videos))
	for id, v := range req.Videos {
		scenesByVideo[id] = v.Scenes
	}

	rng := rand.New(rand.NewSource(req.Seed))
	progress := req.Progress
	if progress == nil {
		progress = func(string, float64) {}
	}

	events := MergeEvents(req.Audio.Beats, scenesByVideo)
	progress(StageMerge, 1.0/6)

	cuts := newCutSelector(e.cfg, req.Audio, scenesByVideo).selectCuts(events)
	if len(cuts) == 0 {
		return nil, &StageError{Stage: StageCuts, At: 0, Err: fmt.Errorf("no cut points produced")}
	}
	progress(StageCuts, 2.0/6)

	matcher := newClipMatcher(e.cfg, scenesByVideo, rng)
	clips := make([]ClipAssignment, 0, len(cuts))
	for i, cut := range cuts {
		windowEnd := req.Audio.Duration
		if i+1 < len(cuts) {
			windowEnd = cuts[i+1].Time
		}
		ctx := audioContext{
			energy:      cut.Energy,
			segmentType: segmentTypeAt(req.Audio.Segments, cut.Time),
			importance:  cut.Energy,
		}
		clipID := fmt.Sprintf("clip-%03d", i)
		clips = append(clips, matcher.selectBestScene(clipID, cut.Time, windowEnd, ctx))
	}
	progress(StageMatch, 3.0/6)

	transitions := buildTransitions(clips, cuts, &transitionSelector{cfg: e.cfg, rng: rng})
	progress(StageTransitions, 4.0/6)

	edl := EditDecisionList{
		Clips:       clips,
		Transitions: transitions,
		CutPoints:   cuts,
		FrameRate:   e.cfg.FrameRate,
	}

	opt := optimizer{cfg: e.cfg, beats: req.Audio.Beats, logger: e.logger}
	opt.optimize(&edl)
	progress(StageOptimize, 5.0/6)

	result := &Result{
		EDL:      edl,
		Stats:    ComputeStats(edl, req.Audio.Beats),
		Timeline: flatTimeline(events, edl.CutPoints),
	}
	progress(StageStats, 1)

	if e.cache != nil {
		e.cache.Put(fp, result)
	}
	return result, nil
}

func (e *Engine) validateRequest(req Request) error {
	if err := analysis.ValidateAudio(req.Audio); err != nil {
		return &InvalidInputError{Field: "audio", Reason: err.Error()}
	}
	if len(req.Videos) == 0 {
		return &InvalidInputError{Field: "videos", Reason: "at least one video analysis is required"}
	}
	totalScenes := 0
	for id, v := range req.Videos {
		if err := analysis.ValidateVideo(v); err != nil {
			return &InvalidInputError{Field: "videos[" + id + "]", Reason: err.Error()}
		}
		totalScenes += len(v.Scenes)
	}
	if totalScenes == 0 {
		return &InvalidInputError{Field: "videos", Reason: "no scenes to assign clips from"}
	}
	return nil
}

// segmentTypeAt returns the label of the audio segment containing t, or ""
// when the segments do not cover that time.
func segmentTypeAt(segments []analysis.Segment, t float64) string {
	for _, s := range segments {
		if t >= s.StartTime-timeEpsilon && t < s.EndTime {
			return s.Type
		}
	}
	return ""
}

// flatTimeline appends the final cuts to the merged event stream, sorted,
// for downstream visualization.
func flatTimeline(events []TimelineEvent, cuts []CutPoint) []TimelineEvent {
	out := make([]TimelineEvent, 0, len(events)+len(cuts))
	out = append(out, events...)
	for _, c := range cuts {
		out = append(out, TimelineEvent{Time: c.Time, Type: EventCut})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

func videoIDs(videos map[string]*analysis.VideoAnalysis) []string {
	ids := make([]string, 0, len(videos))
	for id := range videos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
