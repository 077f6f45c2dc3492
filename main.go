// ABOUTME: Entry point for the resonate-out player
// ABOUTME: Plays a file, stream or test tone through the selected output backend
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-out/internal/config"
	"github.com/Resonate-Protocol/resonate-out/internal/logging"
	"github.com/Resonate-Protocol/resonate-out/internal/player"
	"github.com/Resonate-Protocol/resonate-out/internal/ui"
	"github.com/Resonate-Protocol/resonate-out/internal/version"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/hal"
	_ "github.com/Resonate-Protocol/resonate-out/pkg/audio/hal/all"
	"github.com/Resonate-Protocol/resonate-out/pkg/audio/output"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "resonate-out: %v\n", err)
		return 2
	}

	if cfg.ShowVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return 0
	}

	logFile, err := logging.ConfigureDefaultLogger(cfg.LogLevel, cfg.LogFile, slog.HandlerOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "resonate-out: configure logging: %v\n", err)
		return 2
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if err := play(cfg); err != nil {
		slog.Error("playback failed", "err", err)
		if cfg.TUI {
			fmt.Fprintf(os.Stderr, "resonate-out: %v\n", err)
		}
		return 1
	}
	return 0
}

func openSource(cfg config.Config) (decode.Source, error) {
	switch strings.ToLower(filepath.Ext(cfg.Source)) {
	case ".raw", ".pcm":
		return decode.OpenRaw(cfg.Source, cfg.RawFormat)
	}
	return decode.Open(cfg.Source)
}

func play(cfg config.Config) error {
	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	sys, err := hal.Open(cfg.Backend)
	if err != nil {
		return err
	}

	engine := output.NewEngine(sys, output.Options{})
	for _, opt := range cfg.EngineOptions() {
		if err := engine.SetOption(opt[0], opt[1]); err != nil {
			return err
		}
	}

	if err := engine.Init(); err != nil {
		sys.Unload()
		return fmt.Errorf("init output: %w", err)
	}
	defer engine.Exit()

	format := src.Format()
	if err := engine.Open(format, audio.DefaultChannelMap(format.Channels)); err != nil {
		return fmt.Errorf("open %s: %w", format, err)
	}
	defer engine.Close()

	// a missing mixer only costs volume control
	var mixer player.Mixer
	m := engine.Mixer()
	if _, err := m.Open(); err != nil {
		slog.Warn("volume control unavailable", "err", err)
	} else {
		defer m.Close()
		mixer = m
		if cfg.Volume >= 0 {
			if err := m.SetVolume(cfg.Volume, cfg.Volume); err != nil {
				slog.Warn("cannot set initial volume", "err", err)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var prog *tea.Program
	updateTUI := func(msg ui.StatusMsg) {
		if prog != nil {
			prog.Send(msg)
		}
	}

	p, err := player.New(player.Config{
		Output: engine,
		Mixer:  mixer,
		Source: src,
		OnStatus: func(s player.Status) {
			updateTUI(ui.StatusMsg{Player: &s})
			if !cfg.TUI {
				slog.Info("player status", "state", s.State.String(), "volume", s.Volume)
			}
		},
	})
	if err != nil {
		return err
	}

	dev := engine.Device()
	slog.Info("playing",
		"source", src.Title(),
		"format", format.String(),
		"device", dev.Name,
		"backend", sys.Name(),
		"version", version.Version,
	)

	var tuiDone chan struct{}
	if cfg.TUI {
		prog, err = ui.Run(p)
		if err != nil {
			return fmt.Errorf("start TUI: %w", err)
		}
		tuiDone = make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := prog.Run(); err != nil {
				slog.Error("TUI failed", "err", err)
			}
			// leaving the TUI ends playback
			p.Send(player.CmdQuit)
		}()
		updateTUI(ui.StatusMsg{
			Device:  dev.Name,
			Backend: sys.Name(),
			Title:   src.Title(),
			Format:  format.String(),
		})
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		p.Watch(watchCtx)
	}()
	if prog != nil {
		go statsUpdateLoop(watchCtx, p, updateTUI)
	}

	runErr := p.Run(ctx)
	cancelWatch()
	// the mixer closes on return; Watch must be gone by then
	<-watchDone

	if prog != nil {
		if runErr != nil {
			updateTUI(ui.StatusMsg{Err: runErr})
		}
		prog.Quit()
		<-tuiDone
	}

	slog.Info("player stopped", "stats", engine.Stats())
	return runErr
}

// statsUpdateLoop periodically updates the TUI with playback statistics
func statsUpdateLoop(ctx context.Context, p *player.Player, updateTUI func(ui.StatusMsg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	// runtime stats are slower to collect
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-runtimeStatsTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			updateTUI(ui.StatusMsg{
				Goroutines: runtime.NumGoroutine(),
				MemAlloc:   m.Alloc,
				MemSys:     m.Sys,
			})

		case <-ticker.C:
			s := p.Status()
			updateTUI(ui.StatusMsg{Player: &s})
		}
	}
}
