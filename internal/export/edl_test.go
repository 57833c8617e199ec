package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/engine"
)

func TestMsToTimecode(t *testing.T) {
	tests := []struct {
		name string
		ms   int
		fps  int
		want string
	}{
		{"zero", 0, 30, "00:00:00:00"},
		{"one second", 1000, 30, "00:00:01:00"},
		{"half second at 30fps", 500, 30, "00:00:00:15"},
		{"one minute", 60000, 30, "00:01:00:00"},
		{"one hour", 3600000, 30, "01:00:00:00"},
		{"frame rounding", 33, 30, "00:00:00:01"},
		{"24fps half second", 500, 24, "00:00:00:12"},
		{"complex", 3723456, 30, "01:02:03:14"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := msToTimecode(tt.ms, tt.fps)
			if got != tt.want {
				t.Errorf("msToTimecode(%d, %d) = %q, want %q", tt.ms, tt.fps, got, tt.want)
			}
		})
	}
}

func TestGenerateEDL_SingleClip(t *testing.T) {
	clips := []ResolvedClip{
		{
			ClipName:  "concert.mp4 vid-a-s0",
			MediaPath: "/media/concert.mp4",
			SceneID:   "vid-a-s0",
			SrcInMs:   2000,
			SrcOutMs:  5000,
			RecInMs:   0,
			RecOutMs:  3000,
		},
	}

	out := GenerateEDL(clips, "My Cut", 30)

	if !strings.HasPrefix(out, "TITLE: My Cut\n") {
		t.Errorf("missing title header:\n%s", out)
	}
	if !strings.Contains(out, "FCM: NON-DROP FRAME") {
		t.Errorf("missing FCM line:\n%s", out)
	}
	if !strings.Contains(out, "001  AX       V     C        00:00:02:00 00:00:05:00 00:00:00:00 00:00:03:00") {
		t.Errorf("event line malformed:\n%s", out)
	}
	if !strings.Contains(out, "* FROM CLIP NAME:  concert.mp4 vid-a-s0") {
		t.Errorf("missing clip name comment:\n%s", out)
	}
	if !strings.Contains(out, "* MEDIA PATH:  /media/concert.mp4") {
		t.Errorf("missing media path comment:\n%s", out)
	}
}

func TestGenerateEDL_MultipleClips(t *testing.T) {
	clips := []ResolvedClip{
		{ClipName: "a", MediaPath: "/a.mp4", SrcInMs: 0, SrcOutMs: 2000, RecInMs: 0, RecOutMs: 2000},
		{ClipName: "b", MediaPath: "/b.mp4", SrcInMs: 5000, SrcOutMs: 8000, RecInMs: 2000, RecOutMs: 5000},
		{ClipName: "c", MediaPath: "/c.mp4", SrcInMs: 1000, SrcOutMs: 2500, RecInMs: 5000, RecOutMs: 6500},
	}

	out := GenerateEDL(clips, "Three", 30)

	for _, want := range []string{"001  AX", "002  AX", "003  AX"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing event %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "002  AX       V     C        00:00:05:00 00:00:08:00 00:00:02:00 00:00:05:00") {
		t.Errorf("record offsets not carried through:\n%s", out)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	out := GenerateEDL(nil, "DF", 29.97)
	if !strings.Contains(out, "FCM: DROP FRAME") {
		t.Errorf("29.97 should mark drop frame:\n%s", out)
	}

	out = GenerateEDL(nil, "NDF", 25)
	if !strings.Contains(out, "FCM: NON-DROP FRAME") {
		t.Errorf("25 should mark non-drop frame:\n%s", out)
	}
}

func TestGenerateEDL_TransitionEvents(t *testing.T) {
	clips := []ResolvedClip{
		{ClipName: "a", MediaPath: "/a.mp4", SrcInMs: 0, SrcOutMs: 2000, RecInMs: 0, RecOutMs: 2000},
		{
			ClipName: "b", MediaPath: "/b.mp4",
			SrcInMs: 0, SrcOutMs: 2000, RecInMs: 2000, RecOutMs: 4000,
			Transition: TransDissolve, TransFrames: 15,
		},
		{
			ClipName: "c", MediaPath: "/c.mp4",
			SrcInMs: 0, SrcOutMs: 2000, RecInMs: 4000, RecOutMs: 6000,
			Transition: TransWipe, TransFrames: 9,
		},
	}

	out := GenerateEDL(clips, "Trans", 30)

	if !strings.Contains(out, "002  AX       V     D    015 00:00:00:00") {
		t.Errorf("dissolve event malformed:\n%s", out)
	}
	if !strings.Contains(out, "003  AX       V     W001 009 00:00:00:00") {
		t.Errorf("wipe event malformed:\n%s", out)
	}

	// Cut and transition events must keep the timecode columns aligned.
	var starts []int
	for _, line := range strings.Split(out, "\n") {
		if idx := strings.Index(line, "00:00:00:00"); idx >= 0 && !strings.HasPrefix(line, "*") {
			starts = append(starts, idx)
		}
	}
	if len(starts) != 3 {
		t.Fatalf("expected 3 event lines, got %d:\n%s", len(starts), out)
	}
	for i := 1; i < len(starts); i++ {
		if starts[i] != starts[0] {
			t.Errorf("timecode column misaligned: %v\n%s", starts, out)
		}
	}
}

func TestResolveClips(t *testing.T) {
	edl := engine.EditDecisionList{
		Clips: []engine.ClipAssignment{
			{
				ID: "clip-0", TimelineIn: 0, TimelineOut: 2.5,
				SourceVideoID: "vid-a", SceneID: "vid-a-s0",
				SourceIn: 1.0, SourceOut: 3.5,
			},
			{
				ID: "clip-1", TimelineIn: 2.5, TimelineOut: 5.0,
				SourceVideoID: "vid-b", SceneID: "vid-b-s1",
				SourceIn: 0, SourceOut: 2.5,
			},
		},
		Transitions: []engine.Transition{
			{ID: "tr-0", Type: engine.TransitionDissolve, Duration: 0.5, OutgoingClipID: "clip-0", IncomingClipID: "clip-1", CenterPoint: 2.5},
		},
	}
	videos := map[string]*analysis.VideoAnalysis{
		"vid-a": {ID: "vid-a", MediaPath: "/media/stage.mp4"},
		"vid-b": {ID: "vid-b", MediaPath: "/media/crowd.mp4"},
	}

	clips, unresolved := ResolveClips(edl, videos, 30)

	if len(unresolved) != 0 {
		t.Fatalf("unresolved = %v, want none", unresolved)
	}
	if len(clips) != 2 {
		t.Fatalf("len(clips) = %d, want 2", len(clips))
	}

	first := clips[0]
	if first.MediaPath != "/media/stage.mp4" {
		t.Errorf("MediaPath = %q", first.MediaPath)
	}
	if first.SrcInMs != 1000 || first.SrcOutMs != 3500 {
		t.Errorf("source span = [%d, %d], want [1000, 3500]", first.SrcInMs, first.SrcOutMs)
	}
	if first.RecInMs != 0 || first.RecOutMs != 2500 {
		t.Errorf("record span = [%d, %d], want [0, 2500]", first.RecInMs, first.RecOutMs)
	}
	if first.Transition != TransCut {
		t.Errorf("first clip transition = %q, want cut", first.Transition)
	}
	if first.ClipName != "stage.mp4 vid-a-s0" {
		t.Errorf("ClipName = %q", first.ClipName)
	}

	second := clips[1]
	if second.Transition != TransDissolve {
		t.Errorf("second clip transition = %q, want %q", second.Transition, TransDissolve)
	}
	if second.TransFrames != 15 {
		t.Errorf("TransFrames = %d, want 15", second.TransFrames)
	}
}

func TestResolveClips_FadesBecomeDissolves(t *testing.T) {
	edl := engine.EditDecisionList{
		Clips: []engine.ClipAssignment{
			{ID: "clip-0", TimelineIn: 0, TimelineOut: 2, SourceVideoID: "vid-a", SceneID: "s0", SourceIn: 0, SourceOut: 2},
		},
		Transitions: []engine.Transition{
			{ID: "tr-0", Type: engine.TransitionFadeIn, Duration: 1.0, IncomingClipID: "clip-0"},
		},
	}
	videos := map[string]*analysis.VideoAnalysis{
		"vid-a": {ID: "vid-a", MediaPath: "/a.mp4"},
	}

	clips, _ := ResolveClips(edl, videos, 24)

	if clips[0].Transition != TransDissolve {
		t.Errorf("fade transition = %q, want dissolve", clips[0].Transition)
	}
	if clips[0].TransFrames != 24 {
		t.Errorf("TransFrames = %d, want 24", clips[0].TransFrames)
	}
}

func TestWriteEDL(t *testing.T) {
	dir := t.TempDir()
	clips := []ResolvedClip{
		{ClipName: "a", MediaPath: "/a.mp4", SrcInMs: 0, SrcOutMs: 1000, RecInMs: 0, RecOutMs: 1000},
	}

	path, err := WriteEDL(clips, "My Project: Final?", dir, 30)
	if err != nil {
		t.Fatalf("WriteEDL: %v", err)
	}
	if filepath.Base(path) != "My Project_ Final_.edl" {
		t.Errorf("file name = %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.HasPrefix(string(data), "TITLE: My Project_ Final_\n") {
		t.Errorf("unexpected content:\n%s", data)
	}
}

func TestWriteEDL_BadOutputDir(t *testing.T) {
	if _, err := WriteEDL(nil, "x", filepath.Join(t.TempDir(), "missing"), 30); err == nil {
		t.Error("expected error for nonexistent output dir")
	}
	if _, err := WriteEDL(nil, "x", "", 30); err == nil {
		t.Error("expected error for empty output dir")
	}
}

func TestResolveClips_UnresolvedVideos(t *testing.T) {
	edl := engine.EditDecisionList{
		Clips: []engine.ClipAssignment{
			{ID: "clip-0", TimelineIn: 0, TimelineOut: 2, SourceVideoID: "vid-a", SceneID: "s0"},
			{ID: "clip-1", TimelineIn: 2, TimelineOut: 4, SourceVideoID: "vid-gone", SceneID: "s1"},
			{ID: "clip-2", TimelineIn: 4, TimelineOut: 6, SourceVideoID: "vid-gone", SceneID: "s2"},
		},
	}
	videos := map[string]*analysis.VideoAnalysis{
		"vid-a": {ID: "vid-a", MediaPath: "/a.mp4"},
	}

	clips, unresolved := ResolveClips(edl, videos, 30)

	if len(clips) != 1 {
		t.Errorf("len(clips) = %d, want 1", len(clips))
	}
	if len(unresolved) != 1 || unresolved[0] != "vid-gone" {
		t.Errorf("unresolved = %v, want [vid-gone]", unresolved)
	}
}
