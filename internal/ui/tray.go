// Package ui hosts the system tray menu, the only desktop surface the
// agent has. Everything else happens over the local HTTP API.
package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
	"github.com/tempocut/tempocut-agent/internal/plans"
)

type Tray struct {
	planSvc plans.PlanService
	runner  *plans.Runner
	logger  *slog.Logger

	statusItem *systray.MenuItem
	plansItem  *systray.MenuItem
	pauseItem  *systray.MenuItem

	mu sync.Mutex

	onQuit func()
}

type TrayConfig struct {
	PlanService plans.PlanService
	Runner      *plans.Runner
	Logger      *slog.Logger
	OnQuit      func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		planSvc: cfg.PlanService,
		runner:  cfg.Runner,
		logger:  cfg.Logger,
		onQuit:  cfg.OnQuit,
	}
}

// Run blocks until the tray exits. Must be called from the main goroutine
// on platforms where the event loop is thread-bound.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Tempocut")
	systray.SetTooltip("Tempocut Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.plansItem = systray.AddMenuItem("Plans: 0", "Generated edit plans")
	t.plansItem.Disable()

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause", "Pause plan generation")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Tempocut Agent")

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) togglePause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause")
		t.statusItem.SetTitle("Status: Idle")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume")
		t.statusItem.SetTitle("Status: Paused")
	}
}

// UpdateStatus changes the status line unless generation is paused, in
// which case the paused label wins.
func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner != nil && t.runner.IsPaused() {
		return
	}
	t.statusItem.SetTitle("Status: " + status)
}

func (t *Tray) UpdatePlansCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.plansItem.SetTitle(fmt.Sprintf("Plans: %d", count))
}

func (t *Tray) Quit() {
	systray.Quit()
}
