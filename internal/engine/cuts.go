package engine

import (
	"math"
	"sort"

	"github.com/tempocut/tempocut-agent/internal/analysis"
)

// timeEpsilon absorbs float drift when comparing cut times.
const timeEpsilon = 1e-6

// cutSelector walks the merged event stream and decides which events become
// actual cuts, applying the pacing constraints of the configured edit style.
type cutSelector struct {
	cfg           Config
	audio         *analysis.AudioAnalysis
	scenesByVideo map[string][]analysis.Scene
	strongBeats   map[float64]bool
}

func newCutSelector(cfg Config, audio *analysis.AudioAnalysis, scenesByVideo map[string][]analysis.Scene) *cutSelector {
	return &cutSelector{
		cfg:           cfg,
		audio:         audio,
		scenesByVideo: scenesByVideo,
		strongBeats:   strongBeatSet(audio.Beats, cfg.BeatCutPercentage),
	}
}

// strongBeatSet keeps the top percentage of beats by confidence. The cutoff
// is a confidence threshold, so tied confidences are all kept and the result
// does not depend on beat order.
func strongBeatSet(beats []analysis.Beat, percentage float64) map[float64]bool {
	set := make(map[float64]bool, len(beats))
	if len(beats) == 0 {
		return set
	}

	confs := make([]float64, len(beats))
	for i, b := range beats {
		confs[i] = b.Confidence
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(confs)))

	keep := int(math.Ceil(float64(len(beats)) * percentage / 100))
	if keep < 1 {
		keep = 1
	}
	if keep > len(confs) {
		keep = len(confs)
	}
	threshold := confs[keep-1]

	for _, b := range beats {
		if b.Confidence >= threshold {
			set[b.Time] = true
		}
	}
	return set
}

// selectCuts produces the strictly increasing cut schedule. The first cut is
// always at t=0 and no cut lands closer than MinSceneDuration to the end of
// the track.
func (cs *cutSelector) selectCuts(events []TimelineEvent) []CutPoint {
	switch cs.cfg.Style {
	case StyleSegmentBased:
		return cs.walk(cs.segmentEvents(events), false)
	case StyleEnergyBased:
		return cs.walkEnergy(cs.filterEvents(events))
	case StyleCinematic:
		return cs.walkCinematic(cs.filterEvents(events))
	default: // StyleRhythmMatch
		return cs.walk(cs.filterEvents(events), cs.cfg.PrioritizeSceneBoundaries)
	}
}

// filterEvents keeps strong-beat events and all scene-boundary events.
func (cs *cutSelector) filterEvents(events []TimelineEvent) []TimelineEvent {
	out := make([]TimelineEvent, 0, len(events))
	for _, e := range events {
		switch e.Type {
		case EventBeat:
			if cs.strongBeats[e.Time] {
				out = append(out, e)
			}
		case EventSceneBoundary:
			out = append(out, e)
		}
	}
	return out
}

// segmentEvents replaces the beat stream with audio segment boundaries plus
// the strong beats inside each segment, so cuts land on structural changes
// first and on rhythm inside them.
func (cs *cutSelector) segmentEvents(events []TimelineEvent) []TimelineEvent {
	out := make([]TimelineEvent, 0, len(events))
	for _, seg := range cs.audio.Segments {
		out = append(out, TimelineEvent{Time: seg.StartTime, Type: EventSceneBoundary})
	}
	for _, e := range cs.filterEvents(events) {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// walk is the core scan: debounce below MinSceneDuration, force a cut at
// MaxSceneDuration, optionally snap beats to nearby scene boundaries.
func (cs *cutSelector) walk(events []TimelineEvent, snapToBoundaries bool) []CutPoint {
	cuts := []CutPoint{cs.cutAt(0, OriginForced)}
	lastCut := 0.0
	end := cs.endCutoff()

	for _, e := range events {
		lastCut = cs.forceUpTo(&cuts, lastCut, e.Time, end)

		t := e.Time
		origin := OriginBeat
		if e.Type == EventSceneBoundary {
			origin = OriginSceneBoundary
		}

		if e.Type == EventBeat && snapToBoundaries {
			if bt, ok := cs.nearestBoundary(t, cs.cfg.BoundarySnapWindow); ok {
				t = bt
				origin = OriginSceneBoundary
			}
		}

		if t-lastCut < cs.cfg.MinSceneDuration-timeEpsilon {
			continue
		}
		if t > end+timeEpsilon {
			continue
		}

		cuts = append(cuts, cs.cutAt(t, origin))
		lastCut = t
	}

	cs.forceUpTo(&cuts, lastCut, cs.audio.Duration, end)
	return cuts
}

// walkEnergy scales the pacing with the ambient energy: high-energy passages
// cut near the minimum interval, quiet passages stretch toward the maximum.
func (cs *cutSelector) walkEnergy(events []TimelineEvent) []CutPoint {
	cuts := []CutPoint{cs.cutAt(0, OriginForced)}
	lastCut := 0.0
	end := cs.endCutoff()

	for _, e := range events {
		lastCut = cs.forceUpTo(&cuts, lastCut, e.Time, end)

		level := cs.energyAt(lastCut)
		target := cs.cfg.MaxSceneDuration - level*(cs.cfg.MaxSceneDuration-cs.cfg.MinSceneDuration)

		if e.Time-lastCut < target-timeEpsilon {
			continue
		}
		if e.Time > end+timeEpsilon {
			continue
		}

		origin := OriginBeat
		if e.Type == EventSceneBoundary {
			origin = OriginSceneBoundary
		}
		cuts = append(cuts, cs.cutAt(e.Time, origin))
		lastCut = e.Time
	}

	cs.forceUpTo(&cuts, lastCut, cs.audio.Duration, end)
	return cuts
}

// walkCinematic prefers scene boundaries over beats and holds shots half
// again as long as the configured minimum.
func (cs *cutSelector) walkCinematic(events []TimelineEvent) []CutPoint {
	cuts := []CutPoint{cs.cutAt(0, OriginForced)}
	lastCut := 0.0
	end := cs.endCutoff()
	minHold := cs.cfg.MinSceneDuration * 1.5

	for _, e := range events {
		lastCut = cs.forceUpTo(&cuts, lastCut, e.Time, end)

		t := e.Time
		origin := OriginSceneBoundary
		if e.Type == EventBeat {
			bt, ok := cs.nearestBoundary(t, cs.cfg.BoundarySnapWindow)
			if !ok {
				continue // beats only matter when they confirm a boundary
			}
			t = bt
		}

		if t-lastCut < minHold-timeEpsilon {
			continue
		}
		if t > end+timeEpsilon {
			continue
		}

		cuts = append(cuts, cs.cutAt(t, origin))
		lastCut = t
	}

	cs.forceUpTo(&cuts, lastCut, cs.audio.Duration, end)
	return cuts
}

// forceUpTo synthesizes forced cuts while the gap to the next event exceeds
// MaxSceneDuration. Returns the updated last cut time.
func (cs *cutSelector) forceUpTo(cuts *[]CutPoint, lastCut, next, end float64) float64 {
	for next-lastCut > cs.cfg.MaxSceneDuration+timeEpsilon {
		forced := lastCut + cs.cfg.MaxSceneDuration
		if forced > end+timeEpsilon {
			break
		}
		*cuts = append(*cuts, cs.cutAt(forced, OriginForced))
		lastCut = forced
	}
	return lastCut
}

// endCutoff is the latest admissible cut time; anything later would leave a
// final clip shorter than the minimum.
func (cs *cutSelector) endCutoff() float64 {
	return cs.audio.Duration - cs.cfg.MinSceneDuration
}

func (cs *cutSelector) cutAt(t float64, origin string) CutPoint {
	return CutPoint{Time: t, Origin: origin, Energy: cs.energyAt(t)}
}

// energyAt approximates the energy curve by nearest-sample lookup.
// Defaults to 0.5 when the track has no energy data.
func (cs *cutSelector) energyAt(t float64) float64 {
	samples := cs.audio.Energy
	if len(samples) == 0 {
		return 0.5
	}
	best := samples[0].Level
	bestDist := math.Abs(samples[0].Time - t)
	for _, s := range samples[1:] {
		if d := math.Abs(s.Time - t); d < bestDist {
			bestDist = d
			best = s.Level
		}
	}
	return best
}

// nearestBoundary searches every video for the scene boundary closest to t
// within the window. Visits videos in sorted ID order for determinism.
func (cs *cutSelector) nearestBoundary(t, window float64) (float64, bool) {
	videoIDs := make([]string, 0, len(cs.scenesByVideo))
	for id := range cs.scenesByVideo {
		videoIDs = append(videoIDs, id)
	}
	sort.Strings(videoIDs)

	best := 0.0
	bestDist := window + timeEpsilon
	found := false
	for _, id := range videoIDs {
		for _, s := range cs.scenesByVideo[id] {

			for _, bt := range [2]float64{s.StartTime, s.EndTime} {
				if d := math.Abs(bt - t); d < bestDist {
					bestDist = d
					best = bt
					found = true
				}
			}
		}
	}
	return best, found
}
