package engine

import (
	"sort"

	"github.com/tempocut/tempocut-agent/internal/analysis"
)

// MergeEvents flattens beats and per-video scene boundaries into one stream
// sorted ascending by time. Ties keep insertion order (beats before scene
// boundaries) so the merge is deterministic. No filtering happens here.
func MergeEvents(beats []analysis.Beat, scenesByVideo map[string][]analysis.Scene) []TimelineEvent {
	events := make([]TimelineEvent, 0, len(beats))

	for _, b := range beats {
		events = append(events, TimelineEvent{Time: b.Time, Type: EventBeat})
	}

	// Map iteration order is not stable; visit videos in sorted ID order.
	videoIDs := make([]string, 0, len(scenesByVideo))
	for id := range scenesByVideo {
		videoIDs = append(videoIDs, id)
	}
	sort.Strings(videoIDs)

	for _, id := range videoIDs {
		for _, s := range scenesByVideo[id] {
			events = append(events,
				TimelineEvent{Time: s.StartTime, Type: EventSceneBoundary, SourceID: id},
				TimelineEvent{Time: s.EndTime, Type: EventSceneBoundary, SourceID: id},
			)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	return events
}
