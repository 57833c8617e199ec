// Package watcher polls an inbox directory for analyzer output files and
// ingests them automatically. This is the drop-folder workflow: run the
// analyzers elsewhere, drop the JSON in the inbox, and the agent picks it up.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/analyzers"
	"github.com/tempocut/tempocut-agent/internal/logging"
)

const (
	defaultPollInterval = 5 * time.Second

	processedDir = "processed"
	failedDir    = "failed"
)

// InboxWatcher scans a directory for *.json analyzer outputs on a fixed
// interval. Ingested files move to inbox/processed, rejected files to
// inbox/failed, so a bad file never wedges the loop.
type InboxWatcher struct {
	dir          string
	analyses     analysis.AnalysisService
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
}

func NewInboxWatcher(dir string, analyses analysis.AnalysisService, logger *slog.Logger) *InboxWatcher {
	return &InboxWatcher{
		dir:          dir,
		analyses:     analyses,
		logger:       logging.WithComponent(logger, "inbox"),
		pollInterval: defaultPollInterval,
	}
}

// Start blocks until ctx is cancelled. Call it in its own goroutine.
func (w *InboxWatcher) Start(ctx context.Context) error {
	if w.running.Swap(true) {
		return fmt.Errorf("inbox watcher already running")
	}
	defer w.running.Store(false)

	for _, sub := range []string{processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o755); err != nil {
			return fmt.Errorf("creating inbox subdirectory: %w", err)
		}
	}

	w.logger.Info("inbox watcher started", "dir", logging.SanitizePath(w.dir))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopping")
			return nil
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *InboxWatcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("inbox scan failed", "error", err)
		return
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(w.dir, name)
		if err := w.ingestFile(ctx, path); err != nil {
			w.logger.Warn("inbox file rejected", "file", name, "error", err)
			w.moveTo(path, failedDir)
			continue
		}
		w.moveTo(path, processedDir)
	}
}

// ingestFile reads one analyzer output document and stores it. The kind is
// sniffed from the payload shape rather than the filename.
func (w *InboxWatcher) ingestFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading inbox file: %w", err)
	}

	kind, err := sniffKind(data)
	if err != nil {
		return err
	}

	switch kind {
	case analysis.KindAudio:
		var payload analyzers.AudioOutputPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parsing audio output: %w", err)
		}
		if !payload.RequiredFieldsPresent() {
			return fmt.Errorf("audio output missing version metadata")
		}
		stored, err := w.analyses.IngestAudio(ctx, payload.ToAnalysis())
		if err != nil {
			return err
		}
		w.logger.Info("ingested audio analysis from inbox",
			"id", stored.ID,
			"file", filepath.Base(path),
			"beats", len(stored.Beats))
	case analysis.KindVideo:
		var payload analyzers.SceneOutputPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parsing scene output: %w", err)
		}
		if !payload.RequiredFieldsPresent() {
			return fmt.Errorf("scene output missing version metadata")
		}
		stored, err := w.analyses.IngestVideo(ctx, payload.ToAnalysis())
		if err != nil {
			return err
		}
		w.logger.Info("ingested video analysis from inbox",
			"id", stored.ID,
			"file", filepath.Base(path),
			"scenes", len(stored.Scenes))
	default:
		return fmt.Errorf("unrecognized analyzer output")
	}
	return nil
}

// sniffKind distinguishes audio from scene outputs by their distinctive
// top-level keys. Audio documents carry tempo_bpm, scene documents carry a
// scenes array.
func sniffKind(data []byte) (string, error) {
	var probe struct {
		TempoBPM *float64         `json:"tempo_bpm"`
		Beats    *json.RawMessage `json:"beats"`
		Scenes   *json.RawMessage `json:"scenes"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("parsing analyzer output: %w", err)
	}
	switch {
	case probe.TempoBPM != nil || probe.Beats != nil:
		return analysis.KindAudio, nil
	case probe.Scenes != nil:
		return analysis.KindVideo, nil
	default:
		return "", fmt.Errorf("analyzer output has neither beats nor scenes")
	}
}

func (w *InboxWatcher) moveTo(path, sub string) {
	dest := filepath.Join(w.dir, sub, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		w.logger.Error("moving inbox file failed", "file", filepath.Base(path), "error", err)
		// Remove it so the next scan does not reprocess the same file.
		_ = os.Remove(path)
	}
}
