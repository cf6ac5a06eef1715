//go:build wails

package main

import (
	"context"
	"embed"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"ergosum/internal/app"
	"ergosum/internal/config"
	"ergosum/internal/desktop"
	"ergosum/internal/logging"
	"ergosum/internal/navigation"
	"ergosum/internal/shell"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
)

//go:embed all:frontend/dist
var assets embed.FS

// singleInstanceID names the OS-wide lock. A second launch forwards its
// arguments to the holder and exits with status 0.
const singleInstanceID = "cc.ergosum.desktop"

func main() {
	loader := config.NewLoader()
	s, cfgErr := loader.Load()
	logger := logging.Init(s.Log.Level, s.Log.Format)
	if cfgErr != nil {
		logger.Warn("config load failed, using defaults", "error", cfgErr)
	} else if seeded, err := loader.Seed(); err != nil {
		logger.Warn("failed to write default config", "path", loader.Path, "error", err)
	} else if seeded {
		logger.Info("wrote default config", "path", loader.Path)
	}

	application := app.New(s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coord := shell.NewCoordinator(shell.Options{
		Policy: shell.Policy{
			Delivery:   shell.DeliveryFor(runtime.GOOS),
			RouteDelay: time.Duration(s.DeepLink.RouteDelayMS) * time.Millisecond,
		},
		Logger: logger,
		Tracer: application.Telemetry(),
	})
	go func() {
		if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("shell coordinator stopped", "error", err)
		}
	}()

	// Wails resolves the single-instance lock inside wails.Run and exits a
	// secondary there, so only the primary ever acts on this event.
	coord.Launch(os.Args[1:])

	bridge := desktop.NewWailsBridge(application, coord, logger)

	if err := wails.Run(&options.App{
		Title:            "ErgoSum",
		Width:            s.Window.Width,
		Height:           s.Window.Height,
		MinWidth:         s.Window.MinWidth,
		MinHeight:        s.Window.MinHeight,
		StartHidden:      true,
		BackgroundColour: &options.RGBA{R: 0x0a, G: 0x0a, B: 0x0a, A: 0xff},
		OnStartup:        bridge.Startup,
		OnDomReady:       bridge.DomReady,
		OnBeforeClose:    bridge.BeforeClose,
		OnShutdown:       bridge.Shutdown,
		Bind: []interface{}{
			bridge,
		},
		// The remote app calls bindings through the native message channel.
		BindingsAllowedOrigins: strings.Join(navigation.PageRules().InApp, ","),
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId:               singleInstanceID,
			OnSecondInstanceLaunch: bridge.SecondInstance,
		},
		Logger:             logging.NewWailsLogger(logger),
		LogLevel:           logging.WailsLevel(s.Log.Level),
		LogLevelProduction: logging.WailsLevel(s.Log.Level),
		Mac: &mac.Options{
			OnUrlOpen: bridge.OpenURL,
		},
	}); err != nil {
		slog.Error("wails runtime failed", "error", err)
		os.Exit(1)
	}
}
