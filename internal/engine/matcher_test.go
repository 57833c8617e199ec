package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/tempocut/tempocut-agent/internal/analysis"
)

func scene(videoID, id string, start, end, confidence float64, tags ...string) analysis.Scene {
	return analysis.Scene{
		ID:                 id,
		VideoID:            videoID,
		StartTime:          start,
		EndTime:            end,
		Duration:           end - start,
		BoundaryConfidence: confidence,
		SceneTypes:         tags,
	}
}

func newTestMatcher(scenes map[string][]analysis.Scene, seed int64) *clipMatcher {
	return newClipMatcher(DefaultConfig(), scenes, rand.New(rand.NewSource(seed)))
}

func TestSelectBestScene_DiscardsTooShortScene(t *testing.T) {
	scenes := map[string][]analysis.Scene{
		"vid-short": {scene("vid-short", "s1", 0, 2, 0.9)},
		"vid-long":  {scene("vid-long", "s1", 0, 10, 0.9)},
	}
	m := newTestMatcher(scenes, 1)

	// A 4s window needs at least 3.2s of footage; the 2s scene must lose.
	clip := m.selectBestScene("clip-000", 0, 4, audioContext{energy: 0.5})

	if clip.SourceVideoID != "vid-long" {
		t.Fatalf("assigned video = %s, want vid-long", clip.SourceVideoID)
	}
	if clip.Degraded {
		t.Fatal("assignment flagged degraded, want clean")
	}
}

func TestSelectBestScene_DurationPreserved(t *testing.T) {
	scenes := map[string][]analysis.Scene{
		"vid-a": {scene("vid-a", "s1", 5, 20, 0.8)},
	}
	m := newTestMatcher(scenes, 1)

	clip := m.selectBestScene("clip-000", 10, 13, audioContext{energy: 0.5})

	srcDur := clip.SourceOut - clip.SourceIn
	tlDur := clip.TimelineOut - clip.TimelineIn
	if math.Abs(srcDur-tlDur) > timeEpsilon {
		t.Fatalf("source span %v != timeline span %v", srcDur, tlDur)
	}
	if clip.SourceIn < 5-timeEpsilon || clip.SourceOut > 20+timeEpsilon {
		t.Fatalf("source span [%v,%v] escapes scene [5,20]", clip.SourceIn, clip.SourceOut)
	}
}

func TestSelectBestScene_ShortSceneFlaggedDegraded(t *testing.T) {
	// 3.5s of footage passes the 0.8x duration filter for a 4s window but
	// cannot fill it; the truncated assignment must carry the degraded flag.
	scenes := map[string][]analysis.Scene{
		"vid-a": {scene("vid-a", "s1", 0, 3.5, 0.9)},
	}
	m := newTestMatcher(scenes, 1)

	clip := m.selectBestScene("clip-000", 0, 4, audioContext{energy: 0.5})

	if !clip.Degraded {
		t.Fatal("truncated assignment not flagged degraded")
	}
	srcDur := clip.SourceOut - clip.SourceIn
	if math.Abs(srcDur-3.5) > timeEpsilon {
		t.Fatalf("source span = %v, want the full 3.5s scene", srcDur)
	}
	if clip.SourceIn < 0-timeEpsilon || clip.SourceOut > 3.5+timeEpsilon {
		t.Fatalf("source span [%v,%v] escapes scene [0,3.5]", clip.SourceIn, clip.SourceOut)
	}
}

func TestSelectBestScene_AdvancesThroughReusedScene(t *testing.T) {
	scenes := map[string][]analysis.Scene{
		"vid-a": {scene("vid-a", "s1", 0, 10, 0.9)},
	}
	m := newTestMatcher(scenes, 1)

	first := m.selectBestScene("clip-000", 0, 2, audioContext{energy: 0.5})
	second := m.selectBestScene("clip-001", 2, 4, audioContext{energy: 0.5})

	if second.SourceIn < first.SourceOut-timeEpsilon {
		t.Fatalf("reused scene replayed footage: first out %v, second in %v", first.SourceOut, second.SourceIn)
	}
}

func TestSelectBestScene_RewindsExhaustedScene(t *testing.T) {
	scenes := map[string][]analysis.Scene{
		"vid-a": {scene("vid-a", "s1", 0, 5, 0.9)},
	}
	m := newTestMatcher(scenes, 1)

	m.selectBestScene("clip-000", 0, 3, audioContext{energy: 0.5})
	clip := m.selectBestScene("clip-001", 3, 7, audioContext{energy: 0.5})

	if clip.SourceIn != 0 {
		t.Fatalf("exhausted scene should rewind to 0, got source in %v", clip.SourceIn)
	}
	if clip.SourceOut > 5+timeEpsilon {
		t.Fatalf("source out %v escapes the 5s scene", clip.SourceOut)
	}
}

func TestSelectBestScene_DegradedLastResort(t *testing.T) {
	scenes := map[string][]analysis.Scene{
		"vid-a": {scene("vid-a", "s1", 0, 2, 0.9)},
	}
	m := newTestMatcher(scenes, 1)

	// Nothing can fill a 6s window; the longest scene is taken truncated.
	clip := m.selectBestScene("clip-000", 0, 6, audioContext{energy: 0.5})

	if !clip.Degraded {
		t.Fatal("expected degraded flag on last-resort assignment")
	}
	if clip.SceneID != "s1" {
		t.Fatalf("scene = %s, want s1", clip.SceneID)
	}
	if clip.SourceOut > 2+timeEpsilon {
		t.Fatalf("source out %v exceeds scene end", clip.SourceOut)
	}
	if clip.TimelineOut != 6 {
		t.Fatalf("timeline window must stay intact, got out %v", clip.TimelineOut)
	}
}

func TestScore_ConfidenceAndDurationPenalty(t *testing.T) {
	m := newTestMatcher(nil, 1)

	base := m.score(scene("v", "s", 0, 4, 1.0), 4, audioContext{energy: 0.5})
	if math.Abs(base-1.0) > timeEpsilon {
		t.Fatalf("base score = %v, want 1.0", base)
	}

	long := m.score(scene("v", "s", 0, 8, 1.0), 4, audioContext{energy: 0.5})
	if math.Abs(long-0.8) > timeEpsilon {
		t.Fatalf("over-long scene score = %v, want 0.8", long)
	}

	weak := m.score(scene("v", "s", 0, 4, 0.5), 4, audioContext{energy: 0.5})
	if math.Abs(weak-0.5) > timeEpsilon {
		t.Fatalf("low-confidence score = %v, want 0.5", weak)
	}
}

func TestScore_EnergyBonuses(t *testing.T) {
	m := newTestMatcher(nil, 1)

	action := m.score(scene("v", "s", 0, 4, 1.0, tagAction), 4, audioContext{energy: 0.9})
	if math.Abs(action-1.5) > timeEpsilon {
		t.Fatalf("action bonus score = %v, want 1.5", action)
	}

	calm := m.score(scene("v", "s", 0, 4, 1.0, tagInterior), 4, audioContext{energy: 0.2})
	if math.Abs(calm-1.3) > timeEpsilon {
		t.Fatalf("interior bonus score = %v, want 1.3", calm)
	}

	mismatch := m.score(scene("v", "s", 0, 4, 1.0, tagAction), 4, audioContext{energy: 0.2})
	if math.Abs(mismatch-1.0) > timeEpsilon {
		t.Fatalf("no-bonus score = %v, want 1.0", mismatch)
	}
}

func TestScore_SegmentAffinity(t *testing.T) {
	m := newTestMatcher(nil, 1)

	chorus := m.score(scene("v", "s", 0, 4, 1.0, tagPerformance), 4, audioContext{energy: 0.5, segmentType: "chorus"})
	if math.Abs(chorus-1.4) > timeEpsilon {
		t.Fatalf("performance/chorus score = %v, want 1.4", chorus)
	}

	verse := m.score(scene("v", "s", 0, 4, 1.0, tagBRollStatic), 4, audioContext{energy: 0.5, segmentType: "verse"})
	if math.Abs(verse-1.3) > timeEpsilon {
		t.Fatalf("broll_static/verse score = %v, want 1.3", verse)
	}
}

func TestPick_DeterministicForSeed(t *testing.T) {
	scenes := map[string][]analysis.Scene{
		"vid-a": {
			scene("vid-a", "s1", 0, 10, 0.9),
			scene("vid-a", "s2", 10, 20, 0.9),
			scene("vid-a", "s3", 20, 30, 0.9),
		},
	}

	run := func(seed int64) []string {
		m := newTestMatcher(scenes, seed)
		var out []string
		for i := 0; i < 8; i++ {
			c := m.selectBestScene("clip", float64(i*2), float64(i*2+2), audioContext{energy: 0.5})
			out = append(out, c.SceneID)
		}
		return out
	}

	a, b := run(42), run(42)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at pick %d: %s vs %s", i, a[i], b[i])
		}
	}
}
