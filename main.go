package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	webview "github.com/webview/webview_go"

	"github.com/arko-chat/flurrybridge/internal/bridge"
	"github.com/arko-chat/flurrybridge/internal/config"
	"github.com/arko-chat/flurrybridge/internal/desktop"
	"github.com/arko-chat/flurrybridge/internal/logger"
	"github.com/arko-chat/flurrybridge/internal/server"
	"github.com/arko-chat/flurrybridge/internal/simulator"
)

func main() {
	os.Setenv("WEBKIT_DISABLE_COMPOSITING_MODE", "0")
	os.Setenv("WEBVIEW2_ADDITIONAL_BROWSER_ARGUMENTS", "--enable-gpu")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slogger := logger.New(cfg.LogLevel, cfg.LogFormat)

	// the window talks to its own server only
	cfg.Addr = "127.0.0.1:0"

	w := webview.New(cfg.LogLevel == "debug")
	defer w.Destroy()
	poster := desktop.NewPoster(w)

	var sdkOpts []simulator.Option
	if cfg.PrivacyURL != "" {
		sdkOpts = append(sdkOpts, simulator.WithPrivacyDashboard(func() error {
			return desktop.OpenExternal(cfg.PrivacyURL)
		}))
	}

	srv, err := server.New(server.Options{
		Config: cfg,
		SDK:    simulator.New(slogger.With("component", "sdk"), sdkOpts...),
		Logger: slogger,
		Bridge: []bridge.Option{
			bridge.WithPoster(poster),
			bridge.WithApplicationContext(w),
		},
	})
	if err != nil {
		slogger.Error("failed to start server", "err", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Serve(); err != nil {
			slogger.Error("server error", "err", err)
		}
	}()

	harness, err := srv.HarnessURL("desktop")
	if err != nil {
		slogger.Error("failed to issue bridge token", "err", err)
		os.Exit(1)
	}

	w.SetTitle("flurrybridge")
	w.SetSize(1040, 768, webview.HintMin)
	w.SetSize(1280, 800, webview.HintNone)
	w.Init(desktop.ExternalLinks)
	if err := w.Bind("openExternal", desktop.OpenExternal); err != nil {
		slogger.Error("failed to bind openExternal", "err", err)
	}
	w.Navigate(harness)
	w.Run()

	slogger.Info("window closed, shutting down")
	poster.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slogger.Error("shutdown", "err", err)
	}
}
