package engine

import (
	"log/slog"
	"math"
	"sort"

	"github.com/tempocut/tempocut-agent/internal/analysis"
)

// onBeatTolerance is how close a transition center must sit to a detected
// beat to count as on-beat during rebalancing.
const onBeatTolerance = 0.1

// pacingFloor is the minimum clip length the smoothing pass may shrink to.
const pacingFloor = 0.5

// optimizer runs bounded corrective passes over the assembled decision
// sequence: flag immediate scene repetition, rebalance an excess of
// dissolves, and smooth outlier clip durations. Every pass preserves the
// EDL invariants (contiguity, non-overlap, valid transition references).
type optimizer struct {
	cfg    Config
	beats  []analysis.Beat
	logger *slog.Logger
}

func (o *optimizer) optimize(edl *EditDecisionList) {
	o.guardRepetition(edl)
	o.balanceTransitions(edl)
	o.smoothPacing(edl)
}

// guardRepetition flags immediately-adjacent clips sharing the same source
// scene. Re-selection is left to the caller; the flag is diagnostic.
func (o *optimizer) guardRepetition(edl *EditDecisionList) {
	repeats := 0
	for i := 1; i < len(edl.Clips); i++ {
		prev, cur := edl.Clips[i-1], edl.Clips[i]
		if prev.SourceVideoID == cur.SourceVideoID && prev.SceneID == cur.SceneID {
			edl.Clips[i].Repeated = true
			repeats++
		}
	}
	if repeats > 0 && o.logger != nil {
		o.logger.Debug("adjacent scene repetition detected", "count", repeats)
	}
}

// balanceTransitions converts surplus dissolves back to hard cuts when they
// exceed DissolveMaxRatio of all transitions, preferring dissolves that land
// on a beat, until the DissolveTargetRatio is met.
func (o *optimizer) balanceTransitions(edl *EditDecisionList) {
	total := len(edl.Transitions)
	if total == 0 {
		return
	}

	dissolveIdx := make([]int, 0, total)
	for i, tr := range edl.Transitions {
		if tr.Type == TransitionDissolve {
			dissolveIdx = append(dissolveIdx, i)
		}
	}
	if float64(len(dissolveIdx))/float64(total) <= o.cfg.DissolveMaxRatio {
		return
	}

	target := int(math.Floor(o.cfg.DissolveTargetRatio * float64(total)))
	remove := len(dissolveIdx) - target
	if remove <= 0 {
		return
	}

	// On-beat dissolves convert first; within each group keep timeline order.
	sort.SliceStable(dissolveIdx, func(a, b int) bool {
		ia, ib := dissolveIdx[a], dissolveIdx[b]
		oa, ob := o.onBeat(edl.Transitions[ia].CenterPoint), o.onBeat(edl.Transitions[ib].CenterPoint)
		if oa != ob {
			return oa
		}
		return ia < ib
	})

	drop := make(map[int]bool, remove)
	for _, idx := range dissolveIdx[:remove] {
		drop[idx] = true
	}

	kept := edl.Transitions[:0]
	for i, tr := range edl.Transitions {
		if !drop[i] {
			kept = append(kept, tr)
		}
	}
	edl.Transitions = kept

	if o.logger != nil {
		o.logger.Debug("dissolves rebalanced", "converted", remove, "remaining", len(edl.Transitions))
	}
}

func (o *optimizer) onBeat(t float64) bool {
	for _, b := range o.beats {
		if math.Abs(b.Time-t) <= onBeatTolerance {
			return true
		}
	}
	return false
}

// smoothPacing shrinks low-importance clips that run far past the mean
// duration, pulling the start of the following clip earlier by the same
// delta. The following clip's source span is extended backwards, clamped to
// its scene start, and the shrunk clip never drops below the pacing floor.
func (o *optimizer) smoothPacing(edl *EditDecisionList) {
	if len(edl.Clips) < 2 {
		return
	}

	mean := 0.0
	for _, c := range edl.Clips {
		mean += c.Duration()
	}
	mean /= float64(len(edl.Clips))

	adjusted := 0
	for i := 0; i < len(edl.Clips)-1; i++ {
		cur := &edl.Clips[i]
		next := &edl.Clips[i+1]

		if cur.Duration() <= o.cfg.LongDurationRatio*mean || cur.Importance >= o.cfg.HighImportance {
			continue
		}
		// Degraded clips run on truncated footage; shrinking their source
		// span alongside the timeline would invert it.
		if cur.Degraded {
			continue
		}

		targetDur := 1.2 * mean
		if targetDur < pacingFloor {
			targetDur = pacingFloor
		}
		delta := cur.Duration() - targetDur
		if delta <= timeEpsilon {
			continue
		}

		// The following clip gains the delta at its head; it can only grow
		// backwards as far as its scene allows.
		headroom := next.SourceIn - next.SceneStart
		if delta > headroom {
			delta = headroom
		}
		if delta <= timeEpsilon {
			continue
		}

		boundary := cur.TimelineOut - delta
		cur.TimelineOut = boundary
		cur.SourceOut -= delta
		next.TimelineIn = boundary
		next.SourceIn -= delta

		for j := range edl.Transitions {
			tr := &edl.Transitions[j]
			if tr.OutgoingClipID == cur.ID && tr.IncomingClipID == next.ID {
				tr.CenterPoint = boundary
			}
		}
		if i+1 < len(edl.CutPoints) {
			edl.CutPoints[i+1].Time = boundary
		}
		adjusted++
	}

	if adjusted > 0 && o.logger != nil {
		o.logger.Debug("pacing smoothed", "clips_adjusted", adjusted, "mean_duration", mean)
	}
}
