package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/roller/config"
	"github.com/lixenwraith/roller/engine"
)

var (
	configFlag = flag.String("config", "", "YAML config file")
	debugFlag  = flag.Bool("debug", false, "Write a debug log and show diagnostics")
	levelFlag  = flag.Int("level", 0, "Level to start; 0 resumes the last played level")
	listenFlag = flag.String("listen", "", "Address for the phone sensor bridge, e.g. :8080")
	dataFlag   = flag.String("data", "", "Progress database path; overrides the config")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "roller: %v\n", err)
		os.Exit(2)
	}
	if *debugFlag {
		cfg.Debug = true
	}
	if *listenFlag != "" {
		cfg.Bridge.Listen = *listenFlag
	}
	if *dataFlag != "" {
		cfg.DataPath = *dataFlag
	}

	logger, logFile, err := setupLogging(cfg.LogPath, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "roller: %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if err := run(cfg, *levelFlag, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exit", "err", err)
		fmt.Fprintf(os.Stderr, "roller: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, level int, logger *log.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	// Restore the terminal before a crash report reaches stderr
	defer func() {
		if r := recover(); r != nil {
			screen.Fini()
			fmt.Fprintf(os.Stderr, "\nROLLER CRASHED: %v\nStack Trace:\n%s\n", r, debug.Stack())
			os.Exit(1)
		}
	}()
	defer screen.Fini()
	screen.EnableFocus()
	screen.HideCursor()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	host := engine.NewTickerHost(cfg.FrameInterval(), nil)
	a, err := newApp(ctx, cancel, cfg, screen, host, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.begin(level); err != nil {
		return err
	}

	// Terminal events are applied on the frame thread
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			host.Post(func() { a.handleEvent(ev) })
		}
	}()

	return host.Run(ctx)
}
