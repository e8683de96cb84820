// Package mobile is the gomobile surface of the bridge. Native shells
// register their Flurry SDK wrapper, start the bridge and then either
// call it directly or point a webview at the returned harness.
package mobile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/arko-chat/flurrybridge/internal/bridge"
	"github.com/arko-chat/flurrybridge/internal/config"
	"github.com/arko-chat/flurrybridge/internal/dispatcher"
	"github.com/arko-chat/flurrybridge/internal/logger"
	"github.com/arko-chat/flurrybridge/internal/relay"
	"github.com/arko-chat/flurrybridge/internal/server"
)

var errNotStarted = errors.New("bridge not started")

// EventSink receives relay events as JSON documents.
type EventSink interface {
	Success(payloadJSON string)
}

var (
	mu            sync.Mutex
	native        bridge.NativeSDK
	preconfigured bool
	srv           *server.Server
	callbacks     *bridge.NativeCallbacks
	sdkLogger     = logger.NewSDKLogger(logger.New("info", "text"))
)

func RegisterSDK(n bridge.NativeSDK) {
	mu.Lock()
	defer mu.Unlock()
	native = n
}

// SetMessagingPreconfigured must be called before Start when the app
// enabled Flurry messaging natively. Pass Callbacks to AttachMessaging
// afterwards.
func SetMessagingPreconfigured(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	preconfigured = enabled
}

// Start attaches the bridge and serves it on a loopback port. It returns
// the harness URL, which carries a bridge token.
func Start(dataDir string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	if srv != nil {
		return "", fmt.Errorf("bridge already running")
	}
	if native == nil {
		return "", fmt.Errorf("call RegisterSDK before Start")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	cfg := config.Defaults(dataDir)
	cfg.Addr = "127.0.0.1:0"
	cfg.DataDir = dataDir
	cfg.HashKey = securecookie.GenerateRandomKey(32)
	cfg.BlockKey = securecookie.GenerateRandomKey(32)

	slogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	sdkLogger = logger.NewSDKLogger(slogger)
	sdk, cb := bridge.FromNative(native, slogger.With("component", "native"))

	var bopts []bridge.Option
	if preconfigured {
		bopts = append(bopts, bridge.WithMessagingPreconfigured())
	}

	s, err := server.New(server.Options{
		Config: &cfg,
		SDK:    sdk,
		Logger: slogger,
		Bridge: bopts,
	})
	if err != nil {
		return "", err
	}
	if preconfigured {
		cb.AttachMessaging(s.Plugin.MessagingListener())
	}

	harness, err := s.HarnessURL("mobile")
	if err != nil {
		s.Shutdown(context.Background())
		return "", err
	}

	go func() {
		if err := s.Serve(); err != nil {
			slogger.Error("server error", "err", err)
		}
	}()

	srv = s
	callbacks = cb
	return harness, nil
}

func running() (*server.Server, error) {
	mu.Lock()
	defer mu.Unlock()
	if srv == nil {
		return nil, errNotStarted
	}
	return srv, nil
}

// Call dispatches one method. The result is an envelope
// {"code", "msg", "data"}; errors are only returned when the bridge is
// not running.
func Call(method string, argsJSON string) (string, error) {
	s, err := running()
	if err != nil {
		return "", err
	}

	var env bridge.Envelope
	args, err := dispatcher.ParseArgs([]byte(argsJSON))
	if err != nil {
		env = bridge.Result(nil, err)
	} else {
		env = bridge.Result(s.Plugin.Call(context.Background(), method, args))
	}

	out, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(out), nil
}

// Listen attaches sink to one of the event channels.
func Listen(channel string, sink EventSink) error {
	s, err := running()
	if err != nil {
		return err
	}
	return s.Plugin.Listen(channel, relay.SinkFunc(func(payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			sdkLogger.Error("encode event: " + err.Error())
			return
		}
		sink.Success(string(data))
	}))
}

func Cancel(channel string) error {
	s, err := running()
	if err != nil {
		return err
	}
	return s.Plugin.Cancel(channel)
}

// NotifyDecision answers a pending notification handshake.
func NotifyDecision(willHandle bool) bool {
	s, err := running()
	if err != nil {
		return false
	}
	return s.Plugin.NotifyDecision(willHandle)
}

// Callbacks is where the native SDK wrapper reports vendor callbacks.
// It is nil until Start succeeds.
func Callbacks() *bridge.NativeCallbacks {
	mu.Lock()
	defer mu.Unlock()
	return callbacks
}

// Logger lets native code write into the bridge log.
func Logger() *logger.SDKLogger {
	mu.Lock()
	defer mu.Unlock()
	return sdkLogger
}

func Stop() {
	mu.Lock()
	defer mu.Unlock()

	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sdkLogger.Error("shutdown: " + err.Error())
	}
	srv = nil
	callbacks = nil
}
