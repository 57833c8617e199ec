package analyzers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics
)

// Runner executes Python analyzer commands as subprocesses. It is the single
// implementation of the analyzer execution contract used throughout the agent.
type Runner interface {
	// RunDoctor executes `python -m <module> doctor --json --out <path>` and
	// returns parsed capabilities.
	RunDoctor(ctx context.Context) (*Capabilities, error)

	// RunAudio executes the audio analyzer for a music track.
	RunAudio(ctx context.Context, audioPath, outPath string) (RunResult, error)

	// RunScenes executes the scene detection analyzer for a video file.
	RunScenes(ctx context.Context, videoPath, outPath string) (RunResult, error)

	// ParseAudioOutput reads and validates an audio analyzer output JSON.
	ParseAudioOutput(path string) (*AudioOutputPayload, error)

	// ParseScenesOutput reads and validates a scene analyzer output JSON.
	ParseScenesOutput(path string) (*SceneOutputPayload, error)

	// ArtifactsDir returns the base directory for analyzer outputs.
	ArtifactsDir() string
}

// Config holds the runner's configuration.
type Config struct {
	PythonPath    string        // path to python binary; empty = auto-detect
	ModuleName    string        // default "tempocut_media_analyzers"
	ArtifactsBase string        // base dir for outputs, e.g. ~/.tempocut/artifacts
	DoctorTimeout time.Duration // timeout for doctor command
	AudioTimeout  time.Duration // timeout for audio analyzer
	ScenesTimeout time.Duration // timeout for scene analyzer
	Logger        *slog.Logger
	DebugPaths    bool // if true, log full file paths; otherwise sanitise
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig(dataDir string, logger *slog.Logger) Config {
	return Config{
		PythonPath:    "", // auto-detect
		ModuleName:    "tempocut_media_analyzers",
		ArtifactsBase: filepath.Join(dataDir, "artifacts"),
		DoctorTimeout: 30 * time.Second,
		AudioTimeout:  10 * time.Minute,
		ScenesTimeout: 20 * time.Minute,
		Logger:        logger,
		DebugPaths:    false,
	}
}

// SubprocessRunner is the production implementation of Runner.
type SubprocessRunner struct {
	cfg    Config
	python string // resolved python path
}

// NewRunner creates a SubprocessRunner, resolving the Python binary path.
func NewRunner(cfg Config) (*SubprocessRunner, error) {
	python, err := resolvePython(cfg.PythonPath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate python: %w", err)
	}

	if err := os.MkdirAll(cfg.ArtifactsBase, 0755); err != nil {
		return nil, fmt.Errorf("cannot create artifacts dir: %w", err)
	}

	cfg.Logger.Info("analyzer runner initialised",
		"python", python,
		"module", cfg.ModuleName,
		"artifacts_dir", cfg.ArtifactsBase,
	)

	return &SubprocessRunner{cfg: cfg, python: python}, nil
}

func (r *SubprocessRunner) ArtifactsDir() string {
	return r.cfg.ArtifactsBase
}

// RunDoctor probes the installed analyzers environment.
func (r *SubprocessRunner) RunDoctor(ctx context.Context) (*Capabilities, error) {
	outPath := filepath.Join(r.cfg.ArtifactsBase, ".doctor.json")

	ctx, cancel := context.WithTimeout(ctx, r.cfg.DoctorTimeout)
	defer cancel()

	result := r.exec(ctx, outPath, "doctor", "--json", "--out", outPath)
	if !result.IsSuccess() {
		return nil, fmt.Errorf("doctor exited %d: %s", result.ExitCode, result.StderrTail)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read doctor output: %w", err)
	}

	var caps Capabilities
	if err := json.Unmarshal(data, &caps); err != nil {
		return nil, fmt.Errorf("cannot parse doctor JSON: %w", err)
	}

	// Derive capability flags
	caps.HasAudio = isAvailable(caps.Dependencies, "librosa") &&
		isAvailable(caps.Executables, "ffmpeg")
	caps.HasScenes = isAvailable(caps.Dependencies, "cv2") &&
		isAvailable(caps.Executables, "ffmpeg")
	caps.ProbedAt = time.Now()

	r.cfg.Logger.Info("doctor probe complete",
		"audio", caps.HasAudio,
		"scenes", caps.HasScenes,
		"deps_available", caps.Summary.Available,
		"deps_total", caps.Summary.Total,
	)

	return &caps, nil
}

// RunAudio runs the audio analyzer CLI.
func (r *SubprocessRunner) RunAudio(ctx context.Context, audioPath, outPath string) (RunResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.AudioTimeout)
	defer cancel()

	result := r.exec(ctx, outPath,
		"audio", "analyze",
		"--audio", audioPath,
		"--out", outPath,
	)
	return result, nil
}

// RunScenes runs the scene detection analyzer CLI.
func (r *SubprocessRunner) RunScenes(ctx context.Context, videoPath, outPath string) (RunResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ScenesTimeout)
	defer cancel()

	result := r.exec(ctx, outPath,
		"scenes", "detect",
		"--video", videoPath,
		"--out", outPath,
	)
	return result, nil
}

// ParseAudioOutput reads an audio analyzer JSON output and checks required
// metadata fields.
func (r *SubprocessRunner) ParseAudioOutput(path string) (*AudioOutputPayload, error) {
	var out AudioOutputPayload
	if err := r.readOutput(path, &out); err != nil {
		return nil, err
	}
	if err := checkRequiredFields(out.AnalyzerOutput); err != nil {
		return &out, err
	}
	return &out, nil
}

// ParseScenesOutput reads a scene analyzer JSON output and checks required
// metadata fields.
func (r *SubprocessRunner) ParseScenesOutput(path string) (*SceneOutputPayload, error) {
	var out SceneOutputPayload
	if err := r.readOutput(path, &out); err != nil {
		return nil, err
	}
	if err := checkRequiredFields(out.AnalyzerOutput); err != nil {
		return &out, err
	}
	return &out, nil
}

func (r *SubprocessRunner) readOutput(path string, into any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read output file %s: %w", r.safePath(path), err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("cannot parse output JSON: %w", err)
	}
	return nil
}

func checkRequiredFields(o AnalyzerOutput) error {
	if o.RequiredFieldsPresent() {
		return nil
	}
	missing := []string{}
	if o.SchemaVersion == "" {
		missing = append(missing, "schema_version")
	}
	if o.AnalyzerVersion == "" {
		missing = append(missing, "analyzer_version")
	}
	if o.ModelVersion == "" {
		missing = append(missing, "model_version")
	}
	return fmt.Errorf("analyzer output missing required fields: %s", strings.Join(missing, ", "))
}

// exec is the core subprocess execution helper.
func (r *SubprocessRunner) exec(ctx context.Context, outPath string, args ...string) RunResult {
	start := time.Now()

	// Ensure output directory exists
	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			r.cfg.Logger.Error("cannot create output dir", "error", err)
			return RunResult{ExitCode: -1, StderrTail: err.Error(), Duration: time.Since(start)}
		}
	}

	cmdArgs := append([]string{"-m", r.cfg.ModuleName}, args...)
	cmd := exec.CommandContext(ctx, r.python, cmdArgs...)

	// Capture stderr with bounded buffer
	var stderrBuf bytes.Buffer
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})
	cmd.Stdout = io.Discard // CLI writes to --out file, not stdout

	r.cfg.Logger.Info("executing analyzer command", "args", cmdArgs)

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	stderrTail := stderrBuf.String()

	if exitCode != 0 {
		r.cfg.Logger.Warn("analyzer command failed",
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrTail, 512),
		)
	} else {
		r.cfg.Logger.Info("analyzer command succeeded",
			"duration_ms", elapsed.Milliseconds(),
			"output", r.safePath(outPath),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		OutputPath: outPath,
		StderrTail: stderrTail,
		Duration:   elapsed,
	}
}

func (r *SubprocessRunner) safePath(path string) string {
	if r.cfg.DebugPaths {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Base(path)
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return filepath.Base(path)
}

// resolvePython finds a usable python binary.
func resolvePython(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured python %q not found", preferred)
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no python binary found on PATH (tried python3, python)")
}

func isAvailable(deps map[string]DepInfo, name string) bool {
	d, ok := deps[name]
	return ok && d.Available
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
