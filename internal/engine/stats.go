package engine

import (
	"math"

	"github.com/tempocut/tempocut-agent/internal/analysis"
)

// ComputeStats summarizes a generated plan. The beat alignment score is the
// mean over all cuts of max(0, 1 - distance to nearest beat), so a perfectly
// beat-aligned edit scores 1.0 and a cut more than a second from any beat
// contributes nothing.
func ComputeStats(edl EditDecisionList, beats []analysis.Beat) Stats {
	counts := map[string]int{}
	for _, tr := range edl.Transitions {
		counts[string(tr.Type)]++
	}
	// Boundaries without a materialized transition are hard cuts.
	if hard := len(edl.Clips) - 1 - len(edl.Transitions); hard > 0 {
		counts[string(TransitionCut)] = hard
	}

	avg := 0.0
	degraded := 0
	for _, c := range edl.Clips {
		avg += c.Duration()
		if c.Degraded {
			degraded++
		}
	}
	if len(edl.Clips) > 0 {
		avg /= float64(len(edl.Clips))
	}

	return Stats{
		TotalCuts:            len(edl.CutPoints),
		AverageSceneDuration: avg,
		TransitionTypeCounts: counts,
		BeatAlignmentScore:   beatAlignmentScore(edl.CutPoints, beats),
		DegradedClips:        degraded,
	}
}

func beatAlignmentScore(cuts []CutPoint, beats []analysis.Beat) float64 {
	if len(cuts) == 0 || len(beats) == 0 {
		return 0
	}

	sum := 0.0
	for _, c := range cuts {
		nearest := math.Inf(1)
		for _, b := range beats {
			if d := math.Abs(b.Time - c.Time); d < nearest {
				nearest = d
			}
		}
		sum += math.Max(0, 1-nearest)
	}

	score := sum / float64(len(cuts))
	return math.Min(1, math.Max(0, score))
}
