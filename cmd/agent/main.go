package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tempocut/tempocut-agent/internal/analysis"
	"github.com/tempocut/tempocut-agent/internal/analyzers"
	"github.com/tempocut/tempocut-agent/internal/api"
	"github.com/tempocut/tempocut-agent/internal/cloud"
	"github.com/tempocut/tempocut-agent/internal/config"
	"github.com/tempocut/tempocut-agent/internal/db"
	"github.com/tempocut/tempocut-agent/internal/engine"
	"github.com/tempocut/tempocut-agent/internal/logging"
	"github.com/tempocut/tempocut-agent/internal/plans"
	"github.com/tempocut/tempocut-agent/internal/playback"
	"github.com/tempocut/tempocut-agent/internal/ui"
	"github.com/tempocut/tempocut-agent/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting tempocut agent", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir()))

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	analysisRepo := analysis.NewRepository(database.Conn())
	analysisSvc := analysis.NewService(analysisRepo, logger)

	planRepo := plans.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(planRepo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(planRepo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                  TEMPOCUT AGENT v%-8s                 ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	engineCfg := engine.DefaultConfig()
	if cfg.PresetPath() != "" {
		engineCfg, err = engine.LoadPreset(cfg.PresetPath())
		if err != nil {
			return fmt.Errorf("failed to load preset: %w", err)
		}
		logger.Info("engine preset loaded", "path", logging.SanitizePath(cfg.PresetPath()), "style", engineCfg.Style)
	}

	planSvc := plans.NewService(planRepo, analysisSvc, engineCfg, logger)
	playbackSvc := playback.NewServer(logger)

	resultCache, err := engine.NewResultCache(cfg.PlanCacheSize())
	if err != nil {
		return fmt.Errorf("failed to create result cache: %w", err)
	}

	var uploader plans.Uploader
	if cfg.CloudURL() != "" && cfg.CloudToken() != "" {
		client := cloud.NewHTTPClient(cfg.CloudURL(), cfg.CloudToken(), cfg.CloudOrg(), logger)
		client.SetDeviceID(deviceID)
		if cfg.CloudProject() != "" {
			projCtx, projCancel := context.WithTimeout(context.Background(), 15*time.Second)
			proj, err := client.Projects().GetOrCreate(projCtx, cfg.CloudProject())
			projCancel()
			if err != nil {
				logger.Warn("cloud project resolution failed, plans will upload without a project", "error", err)
			} else {
				client.SetProjectID(proj.ID)
				logger.Info("cloud project resolved", "project", cfg.CloudProject(), "project_id", proj.ID, "created", proj.Created)
			}
		}
		uploader = client
		logger.Info("cloud push enabled", "base_url", cfg.CloudURL(), "org", cfg.CloudOrg())
	} else {
		uploader = cloud.NewStubPlanUploader(logger)
	}

	anCfg := analyzers.Config{
		PythonPath:    cfg.AnalyzersPython(),
		ModuleName:    cfg.AnalyzersModule(),
		ArtifactsBase: filepath.Join(cfg.DataDir(), "artifacts"),
		DoctorTimeout: cfg.AnalyzersTimeoutDoctor(),
		AudioTimeout:  cfg.AnalyzersTimeoutAudio(),
		ScenesTimeout: cfg.AnalyzersTimeoutScenes(),
		Logger:        logger,
	}

	var anRunner analyzers.Runner
	var doctor *analyzers.CachedDoctor

	sr, err := analyzers.NewRunner(anCfg)
	if err != nil {
		logger.Warn("analyzer runner unavailable, media analysis disabled", "error", err)
	} else {
		anRunner = sr
		doctor = analyzers.NewCachedDoctor(sr, logger)

		initCtx, initCancel := context.WithTimeout(context.Background(), anCfg.DoctorTimeout)
		defer initCancel()
		if caps, err := doctor.Refresh(initCtx); err != nil {
			logger.Warn("initial doctor probe failed", "error", err)
		} else {
			logger.Info("analyzer capabilities detected",
				"audio", caps.HasAudio,
				"scenes", caps.HasScenes,
				"deps", fmt.Sprintf("%d/%d", caps.Summary.Available, caps.Summary.Total),
			)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := plans.NewRunner(planRepo, analysisSvc, anRunner, doctor, resultCache, uploader, logger)
	go runner.Start(ctx)

	if cfg.InboxDir() != "" {
		inbox := watcher.NewInboxWatcher(cfg.InboxDir(), analysisSvc, logger)
		go func() {
			if err := inbox.Start(ctx); err != nil {
				logger.Error("inbox watcher error", "error", err)
			}
		}()
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Version:    config.Version,
		Analyses:   analysisSvc,
		Plans:      planSvc,
		Repository: planRepo,
		Runner:     runner,
		Doctor:     doctor,
		Playback:   playbackSvc,
		Logger:     logger,
		StartTime:  startTime,
		DeviceID:   deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			PlanService: planSvc,
			Runner:      runner,
			Logger:      logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo plans.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo plans.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
