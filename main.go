package main

import (
	"embed"
	"log/slog"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"go.aimuz.me/acap/hotkey/oshook"
	"go.aimuz.me/acap/internal/app"
)

//go:embed all:frontend/dist
var assets embed.FS

//go:embed build/tray.png
var trayIconBytes []byte

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.Info("starting app", "version", version, "commit", commit, "date", date)
	appService := app.New(version, oshook.New())

	wailsApp := application.New(application.Options{
		Name:        "acap",
		Description: "System audio recorder",
		Services: []application.Service{
			application.NewService(appService),
		},
		Assets: application.AssetOptions{
			Handler: application.BundledAssetFileServer(assets),
		},
		Mac: application.MacOptions{
			// Recording continues from the tray with the window closed.
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})

	mainWindow := wailsApp.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:  "acap",
		Width:  800,
		Height: 600,
		URL:    "/",
	})

	// Closing only hides; Show window in the tray brings it back.
	mainWindow.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		e.Cancel()
		mainWindow.Hide()
	})

	appService.Init(wailsApp, mainWindow)

	systemTray := wailsApp.SystemTray.New()
	systemTray.SetIcon(trayIconBytes)

	trayMenu := wailsApp.NewMenu()
	trayMenu.Add("Record").OnClick(func(ctx *application.Context) {
		go func() {
			if _, err := appService.RecordAudio(); err != nil {
				slog.Error("record from tray", "error", err)
			}
		}()
	})
	mainItem := trayMenu.Add("Start main recording")
	mainItem.OnClick(func(ctx *application.Context) {
		if appService.IsMainRecording() {
			if err := appService.StopMainRecording(); err != nil {
				slog.Error("stop main recording", "error", err)
			}
			mainItem.SetLabel("Start main recording")
			return
		}
		if _, err := appService.StartMainRecording(); err != nil {
			slog.Error("start main recording", "error", err)
			return
		}
		mainItem.SetLabel("Stop main recording")
	})
	trayMenu.Add("Show window").OnClick(func(ctx *application.Context) {
		appService.ShowWindow()
	})

	trayMenu.AddSeparator()
	trayMenu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(ctx *application.Context) {
			appService.Shutdown()
			wailsApp.Quit()
		})

	systemTray.SetMenu(trayMenu)

	if err := wailsApp.Run(); err != nil {
		slog.Error("run app", "error", err)
	}
}
