// Neko TTS - a desktop cat that reads text aloud.
package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"github.com/normanking/nekotts/internal/bridge"
	"github.com/normanking/nekotts/internal/bus"
	"github.com/normanking/nekotts/internal/clipboard"
	"github.com/normanking/nekotts/internal/config"
	"github.com/normanking/nekotts/internal/interaction"
	"github.com/normanking/nekotts/internal/logging"
	"github.com/normanking/nekotts/internal/logstore"
	"github.com/normanking/nekotts/internal/menu"
	"github.com/normanking/nekotts/internal/session"
	"github.com/normanking/nekotts/internal/voicebox"
)

//go:embed all:frontend/dist
var assets embed.FS

func getAssets(logger *logging.Logger) fs.FS {
	fsys, err := fs.Sub(assets, "frontend/dist")
	if err != nil {
		alog := logger.Component("assets")
		alog.Error().Err(err).Msg("failed to load embedded assets")
		panic(err)
	}
	return fsys
}

func main() {
	syslog, err := logging.New(nil)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer syslog.Close()

	zlogger := syslog.Zerolog()
	mainLog := syslog.Component("main")
	mainLog.Info().Msg("Neko TTS starting...")

	cfg, err := config.Load()
	if err != nil {
		mainLog.Warn().Err(err).Msg("failed to load config, using defaults")
		cfg = config.DefaultConfig()
	}
	mainLog.Info().
		Str("server", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Str("engine", cfg.TTS.ActiveEngine).
		Msg("configuration loaded")

	eventBus := bus.NewEventBus()
	store := logstore.New()

	baseURL := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	client := voicebox.NewClient(&voicebox.ClientConfig{
		BaseURL: baseURL,
		Timeout: cfg.Server.RequestTimeout,
	}, zlogger)
	process := voicebox.NewProcess(&voicebox.ProcessConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		PythonPath:     cfg.Server.PythonPath,
		HealthInterval: cfg.Server.HealthInterval,
		HealthAttempts: cfg.Server.HealthAttempts,
		ShutdownGrace:  cfg.Server.ShutdownGrace,
	}, client, store, zlogger)
	events := voicebox.NewEventStream(baseURL, zlogger)

	monitor := clipboard.New(cfg.Clipboard.PollInterval, zlogger)
	commander := bridge.NewBackendCommander(client, monitor, eventBus, cfg, zlogger)

	sessCfg := session.DefaultConfig()
	sessCfg.IdleThreshold = cfg.Pet.IdleThreshold
	sess := session.New(sessCfg, commander, zlogger)
	sess.SetActiveEngine(cfg.TTS.ActiveEngine)

	controller := interaction.New(interaction.Config{
		ClickWindow:    cfg.Pet.ClickWindow,
		BounceDuration: cfg.Pet.BounceDuration,
		MenuSize:       menu.Size{Width: cfg.Pet.MenuWidth, Height: cfg.Pet.MenuHeight},
	}, sess, commander, zlogger)

	app := &App{
		cfg:        cfg,
		syslog:     syslog,
		eventBus:   eventBus,
		process:    process,
		events:     events,
		monitor:    monitor,
		sess:       sess,
		controller: controller,

		petBridge:      bridge.NewPetBridge(sess, controller, eventBus),
		speechBridge:   bridge.NewSpeechBridge(sess, client, zlogger),
		logBridge:      bridge.NewLogBridge(store, syslog),
		studioBridge:   bridge.NewStudioBridge(process, events, sess, eventBus, zlogger),
		settingsBridge: bridge.NewSettingsBridge(cfg, zlogger),
		eventBridge:    bridge.NewEventBridge(sess, monitor, events, store, eventBus, zlogger),
	}

	appOptions := &options.App{
		Title:       cfg.Window.Title,
		Width:       cfg.Window.Width,
		Height:      cfg.Window.Height,
		Frameless:   cfg.Window.Frameless,
		AlwaysOnTop: cfg.Window.AlwaysOnTop,
		AssetServer: &assetserver.Options{
			Assets: getAssets(syslog),
		},
		BackgroundColour: &options.RGBA{R: 0, G: 0, B: 0, A: 0},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
			app.petBridge,
			app.speechBridge,
			app.logBridge,
			app.studioBridge,
			app.settingsBridge,
		},
		Mac: &mac.Options{
			TitleBar:             mac.TitleBarHiddenInset(),
			WebviewIsTransparent: cfg.Window.Transparent,
			WindowIsTranslucent:  cfg.Window.Transparent,
			About: &mac.AboutInfo{
				Title:   "Neko TTS",
				Message: "A desktop cat that reads text aloud",
			},
		},
		Windows: &windows.Options{
			WebviewIsTransparent: cfg.Window.Transparent,
			WindowIsTranslucent:  cfg.Window.Transparent,
		},
	}

	mainLog.Info().Msg("starting Wails application")
	if err := wails.Run(appOptions); err != nil {
		mainLog.Error().Err(err).Msg("wails.Run failed")
		os.Exit(1)
	}
	mainLog.Info().Msg("application exited normally")
}

// App holds the assembled application.
type App struct {
	ctx        context.Context
	cfg        *config.Config
	syslog     *logging.Logger
	eventBus   *bus.EventBus
	process    *voicebox.Process
	events     *voicebox.EventStream
	monitor    *clipboard.Monitor
	sess       *session.Session
	controller *interaction.Controller

	petBridge      *bridge.PetBridge
	speechBridge   *bridge.SpeechBridge
	logBridge      *bridge.LogBridge
	studioBridge   *bridge.StudioBridge
	settingsBridge *bridge.SettingsBridge
	eventBridge    *bridge.EventBridge
}

// startup binds the bridges and starts the background machinery. The
// studio bridge owns the server bootstrap.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	lifecycle := a.syslog.Component("lifecycle")
	lifecycle.Debug().Msg("startup called")

	a.petBridge.Bind(ctx)
	a.speechBridge.Bind(ctx)
	a.logBridge.Bind(ctx)
	a.settingsBridge.Bind(ctx)
	a.eventBridge.Bind(ctx)
	a.studioBridge.Bind(ctx)

	a.monitor.SetEnabled(a.cfg.Clipboard.StartEnabled)
	a.sess.SetClipboardMonitorEnabled(a.cfg.Clipboard.StartEnabled)
	a.monitor.Start()

	lifecycle.Info().Msg("startup complete")
}

// shutdown tears everything down, giving the server its grace period.
func (a *App) shutdown(ctx context.Context) {
	lifecycle := a.syslog.Component("lifecycle")
	lifecycle.Info().Msg("shutdown called")

	a.eventBridge.Shutdown()
	a.settingsBridge.Shutdown()
	a.events.Disconnect()
	a.monitor.Stop()
	a.controller.Close()
	a.sess.Close()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.process.Stop(stopCtx); err != nil {
		lifecycle.Warn().Err(err).Msg("server shutdown incomplete")
	}

	lifecycle.Info().Msg("Neko TTS shutdown complete")
}

// GetVersion returns the application version
func (a *App) GetVersion() string {
	return "1.0.0"
}
