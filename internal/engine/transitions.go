package engine

import (
	"fmt"
	"math/rand"
)

// Default transition durations in seconds. Dissolves linger; fades and wipes
// are snappier.
const (
	dissolveDuration = 0.5
	fadeDuration     = 0.25
	wipeDuration     = 0.25
)

// transitionSelector maps the energy at a cut to a transition type. Hard cuts
// are conceptual only; they never become Transition records.
type transitionSelector struct {
	cfg Config
	rng *rand.Rand
}

// selectType picks a type for the given energy band:
// high energy favors cuts and wipes, medium cuts and dissolves, low energy
// the soft dissolve/fade family. Energies between the medium and high
// thresholds fall into the medium band.
func (ts *transitionSelector) selectType(energy float64) TransitionType {
	t := ts.cfg.EnergyThresholds
	switch {
	case energy >= t.High:
		return ts.choose(TransitionCut, TransitionWipe)
	case energy < t.Low:
		return ts.choose(TransitionDissolve, TransitionFadeIn, TransitionFadeOut)
	default:
		return ts.choose(TransitionCut, TransitionDissolve)
	}
}

func (ts *transitionSelector) choose(options ...TransitionType) TransitionType {
	return options[ts.rng.Intn(len(options))]
}

func transitionDuration(t TransitionType) float64 {
	switch t {
	case TransitionDissolve:
		return dissolveDuration
	case TransitionWipe:
		return wipeDuration
	case TransitionFadeIn, TransitionFadeOut:
		return fadeDuration
	default:
		return 0
	}
}

// buildTransitions walks the interior cut points and materializes every
// non-cut transition between the adjacent clip pair.
func buildTransitions(clips []ClipAssignment, cuts []CutPoint, ts *transitionSelector) []Transition {
	var out []Transition
	for i := 1; i < len(cuts) && i < len(clips); i++ {
		kind := ts.selectType(cuts[i].Energy)
		if kind == TransitionCut {
			continue
		}
		out = append(out, Transition{
			ID:             fmt.Sprintf("tr-%03d", i),
			Type:           kind,
			Duration:       transitionDuration(kind),
			OutgoingClipID: clips[i-1].ID,
			IncomingClipID: clips[i].ID,
			CenterPoint:    cuts[i].Time,
		})
	}
	return out
}
