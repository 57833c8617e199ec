package engine

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/tempocut/tempocut-agent/internal/analysis"
)

func testAudio() *analysis.AudioAnalysis {
	return &analysis.AudioAnalysis{
		ID:       "audio-1",
		Duration: 30,
		Tempo:    120,
		Beats:    steadyBeats(30, 0.5, 0.9),
		Segments: []analysis.Segment{
			{Type: "intro", StartTime: 0, EndTime: 8},
			{Type: "verse", StartTime: 8, EndTime: 16},
			{Type: "chorus", StartTime: 16, EndTime: 24},
			{Type: "outro", StartTime: 24, EndTime: 30},
		},
		Energy: []analysis.EnergySample{
			{Time: 0, Level: 0.3},
			{Time: 10, Level: 0.6},
			{Time: 20, Level: 0.9},
			{Time: 29, Level: 0.4},
		},
	}
}

func testVideos() map[string]*analysis.VideoAnalysis {
	return map[string]*analysis.VideoAnalysis{
		"vid-a": {
			ID:       "vid-a",
			Duration: 40,
			Scenes: []analysis.Scene{
				{ID: "a-s1", VideoID: "vid-a", StartTime: 0, EndTime: 12, Duration: 12, BoundaryConfidence: 0.9, SceneTypes: []string{"performance"}},
				{ID: "a-s2", VideoID: "vid-a", StartTime: 12, EndTime: 25, Duration: 13, BoundaryConfidence: 0.8, SceneTypes: []string{"action"}},
				{ID: "a-s3", VideoID: "vid-a", StartTime: 25, EndTime: 40, Duration: 15, BoundaryConfidence: 0.7, SceneTypes: []string{"broll_static"}},
			},
		},
		"vid-b": {
			ID:       "vid-b",
			Duration: 30,
			Scenes: []analysis.Scene{
				{ID: "b-s1", VideoID: "vid-b", StartTime: 0, EndTime: 15, Duration: 15, BoundaryConfidence: 0.85, SceneTypes: []string{"broll_dynamic"}},
				{ID: "b-s2", VideoID: "vid-b", StartTime: 15, EndTime: 30, Duration: 15, BoundaryConfidence: 0.75, SceneTypes: []string{"static"}},
			},
		},
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(DefaultConfig(), slog.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestGenerate_EDLInvariants(t *testing.T) {
	e := testEngine(t)
	res, err := e.Generate(Request{Audio: testAudio(), Videos: testVideos(), Seed: 7})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	edl := res.EDL

	if len(edl.Clips) == 0 {
		t.Fatal("no clips generated")
	}
	if edl.Clips[0].TimelineIn != 0 {
		t.Fatalf("first clip starts at %v, want 0", edl.Clips[0].TimelineIn)
	}
	contiguous(t, edl.Clips)
	if last := edl.Clips[len(edl.Clips)-1]; math.Abs(last.TimelineOut-30) > timeEpsilon {
		t.Fatalf("last clip ends at %v, want audio duration 30", last.TimelineOut)
	}

	videos := testVideos()
	for _, c := range edl.Clips {
		if math.Abs((c.SourceOut-c.SourceIn)-(c.TimelineOut-c.TimelineIn)) > timeEpsilon {
			t.Fatalf("clip %s source span does not match timeline span", c.ID)
		}
		v, ok := videos[c.SourceVideoID]
		if !ok {
			t.Fatalf("clip %s references unknown video %s", c.ID, c.SourceVideoID)
		}
		found := false
		for _, s := range v.Scenes {
			if s.ID == c.SceneID {
				found = true
				if c.SourceIn < s.StartTime-timeEpsilon || c.SourceOut > s.EndTime+timeEpsilon {
					t.Fatalf("clip %s source [%v,%v] escapes scene %s [%v,%v]",
						c.ID, c.SourceIn, c.SourceOut, s.ID, s.StartTime, s.EndTime)
				}
			}
		}
		if !found {
			t.Fatalf("clip %s references unknown scene %s", c.ID, c.SceneID)
		}
	}

	clipIdx := make(map[string]int, len(edl.Clips))
	for i, c := range edl.Clips {
		clipIdx[c.ID] = i
	}
	for _, tr := range edl.Transitions {
		if tr.Type == TransitionCut {
			t.Fatalf("hard cut materialized as transition %s", tr.ID)
		}
		out, okOut := clipIdx[tr.OutgoingClipID]
		in, okIn := clipIdx[tr.IncomingClipID]
		if !okOut || !okIn || in != out+1 {
			t.Fatalf("transition %s does not join adjacent clips (%s -> %s)",
				tr.ID, tr.OutgoingClipID, tr.IncomingClipID)
		}
	}

	if res.Stats.TotalCuts != len(edl.CutPoints) {
		t.Fatalf("Stats.TotalCuts = %d, want %d", res.Stats.TotalCuts, len(edl.CutPoints))
	}
	if res.Stats.BeatAlignmentScore < 0 || res.Stats.BeatAlignmentScore > 1 {
		t.Fatalf("BeatAlignmentScore = %v, out of [0,1]", res.Stats.BeatAlignmentScore)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	e := testEngine(t)

	a, err := e.Generate(Request{Audio: testAudio(), Videos: testVideos(), Seed: 42})
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	b, err := e.Generate(Request{Audio: testAudio(), Videos: testVideos(), Seed: 42})
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	if string(aj) != string(bj) {
		t.Fatal("same seed and inputs produced different results")
	}
}

func TestGenerate_SeedChangesSelection(t *testing.T) {
	e := testEngine(t)

	var marshalled []string
	for _, seed := range []int64{1, 2, 3, 4, 5, 6, 7, 8} {
		res, err := e.Generate(Request{Audio: testAudio(), Videos: testVideos(), Seed: seed})
		if err != nil {
			t.Fatalf("Generate(seed=%d): %v", seed, err)
		}
		j, _ := json.Marshal(res.EDL)
		marshalled = append(marshalled, string(j))
	}

	distinct := map[string]bool{}
	for _, m := range marshalled {
		distinct[m] = true
	}
	if len(distinct) < 2 {
		t.Fatal("eight different seeds all produced the same edit")
	}
}

func TestGenerate_InvalidInput(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"nil audio", Request{Videos: testVideos()}},
		{"zero duration", Request{Audio: &analysis.AudioAnalysis{ID: "a"}, Videos: testVideos()}},
		{"no videos", Request{Audio: testAudio()}},
		{"video without scenes", Request{
			Audio:  testAudio(),
			Videos: map[string]*analysis.VideoAnalysis{"v": {ID: "v", Duration: 10}},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Generate(tc.req)
			var invalid *InvalidInputError
			if !errors.As(err, &invalid) {
				t.Fatalf("err = %v, want *InvalidInputError", err)
			}
		})
	}
}

func TestGenerate_ProgressStages(t *testing.T) {
	e := testEngine(t)

	var stages []string
	var last float64
	_, err := e.Generate(Request{
		Audio:  testAudio(),
		Videos: testVideos(),
		Seed:   1,
		Progress: func(stage string, fraction float64) {
			stages = append(stages, stage)
			if fraction < last {
				t.Fatalf("progress went backwards at %s: %v < %v", stage, fraction, last)
			}
			last = fraction
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []string{StageMerge, StageCuts, StageMatch, StageTransitions, StageOptimize, StageStats}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i, s := range want {
		if stages[i] != s {
			t.Fatalf("stages[%d] = %s, want %s", i, stages[i], s)
		}
	}
	if last != 1 {
		t.Fatalf("final progress = %v, want 1", last)
	}
}

func TestGenerate_CacheHit(t *testing.T) {
	e := testEngine(t)
	cache, err := NewResultCache(8)
	if err != nil {
		t.Fatalf("NewResultCache: %v", err)
	}
	e.SetCache(cache)

	first, err := e.Generate(Request{Audio: testAudio(), Videos: testVideos(), Seed: 9})
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache.Len() = %d, want 1", cache.Len())
	}

	second, err := e.Generate(Request{Audio: testAudio(), Videos: testVideos(), Seed: 9})
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if first != second {
		t.Fatal("second call did not return the cached result pointer")
	}

	// A different seed misses and adds a second entry.
	if _, err := e.Generate(Request{Audio: testAudio(), Videos: testVideos(), Seed: 10}); err != nil {
		t.Fatalf("third Generate: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("cache.Len() = %d, want 2", cache.Len())
	}
}

func TestGenerate_TimelineIncludesCuts(t *testing.T) {
	e := testEngine(t)
	res, err := e.Generate(Request{Audio: testAudio(), Videos: testVideos(), Seed: 3})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	cutEvents := 0
	for i, ev := range res.Timeline {
		if i > 0 && ev.Time < res.Timeline[i-1].Time {
			t.Fatalf("timeline not sorted at %d", i)
		}
		if ev.Type == EventCut {
			cutEvents++
		}
	}
	if cutEvents != len(res.EDL.CutPoints) {
		t.Fatalf("timeline holds %d cut events, want %d", cutEvents, len(res.EDL.CutPoints))
	}
}
