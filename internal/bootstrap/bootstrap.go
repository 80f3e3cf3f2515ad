// Package bootstrap wires the launcher together: logging, history, the
// window platform, the tray and the diagnostics server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coastal-toolkit/tideshell/internal/config"
	"github.com/coastal-toolkit/tideshell/internal/core"
	"github.com/coastal-toolkit/tideshell/internal/desktop"
	"github.com/coastal-toolkit/tideshell/internal/handler"
	"github.com/coastal-toolkit/tideshell/internal/repository"
	"github.com/coastal-toolkit/tideshell/internal/repository/gormdb"
	"github.com/coastal-toolkit/tideshell/internal/version"
)

// ErrWailsUnavailable is returned for the wails backend when the binary was
// built without the launcher page.
var ErrWailsUnavailable = errors.New("the wails backend is not available in this build, use -backend lorca or -backend browser")

// Options 构建差异
type Options struct {
	// Assets holds the wails launcher page; nil disables the wails backend
	Assets fs.FS
}

// Run starts the launcher and blocks until it quits. It must be called from
// the main goroutine because some platforms require it.
func Run(cfg *config.Config, opts Options) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	hub := handler.NewWebSocketHub(nil)
	logWriter, err := handler.NewWebSocketLogWriter(hub, os.Stdout, cfg.LogPath())
	if err != nil {
		log.Printf("[Main] Warning: file logging disabled: %v", err)
		logWriter, _ = handler.NewWebSocketLogWriter(hub, os.Stdout, "")
	}
	log.SetOutput(logWriter)
	defer func() {
		log.SetOutput(os.Stderr)
		logWriter.Close()
	}()

	log.Printf("[Main] tideshell %s", version.Info())
	log.Printf("[Main] Data directory: %s", cfg.DataDir)

	launches, closeHistory := openHistory(cfg)
	defer closeHistory()

	platform, err := NewPlatform(cfg, opts)
	if err != nil {
		return err
	}

	app := desktop.NewLauncherApp(platform, desktop.LauncherConfig{
		Command:  cfg.Command(),
		Window:   cfg.WindowOptions(),
		Launches: launches,
		Output:   hub,
	})

	tray := desktop.NewTrayManager(app)
	app.OnStatusChange(tray.UpdateStatus)
	app.OnStatusChange(func(s desktop.Status) {
		hub.BroadcastMessage(handler.MessageStatus, s)
	})

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	if cfg.DiagAddr != "" {
		diag, err := core.NewManagedServer(&core.ServerConfig{
			Addr:     cfg.DiagAddr,
			Status:   app,
			Launches: launches,
			Hub:      hub,
			Auth:     handler.NewAuthMiddleware(cfg.DiagPassword),
		})
		if err == nil {
			err = diag.Start(runCtx)
		}
		if err != nil {
			log.Printf("[Main] Warning: diagnostics server disabled: %v", err)
		} else {
			defer diag.Stop(context.Background())
		}
	}

	// Signals go through the launcher so the server is stopped first.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go forwardSignals(runCtx, sigs, app.RequestQuit)

	go app.Run(runCtx)
	tray.Start()
	defer tray.Stop()

	err = platform.Run(app)

	// Platforms that exit without a Shutdown still stop the server here.
	cancelRun()
	<-app.Done()

	if err != nil {
		return fmt.Errorf("platform: %w", err)
	}
	log.Printf("[Main] Bye")
	return nil
}

// forwardSignals asks the launcher to quit on every signal until ctx is done.
// Each signal is forwarded, so a quit posted before the platform was ready
// can be repeated.
func forwardSignals(ctx context.Context, sigs <-chan os.Signal, quit func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			log.Printf("[Main] Received %v, quitting", sig)
			quit()
		}
	}
}

// NewPlatform picks the window platform for cfg.Backend.
func NewPlatform(cfg *config.Config, opts Options) (desktop.Platform, error) {
	switch cfg.Backend {
	case config.BackendWails:
		if opts.Assets == nil {
			return nil, ErrWailsUnavailable
		}
		return desktop.NewWailsPlatform(cfg.WindowOptions(), opts.Assets), nil
	case config.BackendLorca:
		return desktop.NewLorcaPlatform(cfg.ProfileDir()), nil
	case config.BackendBrowser:
		return desktop.NewBrowserPlatform(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// openHistory opens the launch history. History is optional: on failure the
// launcher runs without it.
func openHistory(cfg *config.Config) (repository.LaunchRepository, func()) {
	var (
		db  *gormdb.DB
		err error
	)
	if cfg.DSN != "" {
		log.Printf("[DB] Using database DSN from configuration")
		db, err = gormdb.NewDBWithDSN(cfg.DSN)
	} else {
		db, err = gormdb.NewDB(cfg.DBPath())
	}
	if err != nil {
		log.Printf("[DB] Warning: launch history disabled: %v", err)
		return nil, func() {}
	}

	repo := gormdb.NewLaunchRepository(db)
	if n, err := repo.MarkStaleAsFailed("launcher stopped before the server exited", time.Now()); err != nil {
		log.Printf("[DB] Warning: failed to mark stale launches: %v", err)
	} else if n > 0 {
		log.Printf("[DB] Marked %d stale launches as failed", n)
	}

	return repo, func() {
		if err := db.Close(); err != nil {
			log.Printf("[DB] Warning: close failed: %v", err)
		}
	}
}
