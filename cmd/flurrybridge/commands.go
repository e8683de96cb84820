package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/arko-chat/flurrybridge/internal/bridge"
	"github.com/arko-chat/flurrybridge/internal/config"
	"github.com/arko-chat/flurrybridge/internal/credentials"
	"github.com/arko-chat/flurrybridge/internal/logger"
	"github.com/arko-chat/flurrybridge/internal/server"
	"github.com/arko-chat/flurrybridge/internal/session"
	"github.com/arko-chat/flurrybridge/internal/simulator"
)

const shutdownTimeout = 5 * time.Second

type rootFlags struct {
	configDir string
}

func (f *rootFlags) load() (*config.Config, error) {
	if f.configDir != "" {
		return config.LoadFrom(f.configDir)
	}
	return config.Load()
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "flurrybridge",
		Short:         "Flurry SDK bridge for webview and mobile hosts",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "directory holding config.json (default: user config dir)")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newTokenCmd(flags))
	root.AddCommand(newMethodsCmd())
	root.AddCommand(newAPIKeyCmd())
	return root
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge over HTTP against the simulated SDK",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			log := logger.New(cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, cmd)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, cmd *cobra.Command) error {
	sdkOpts := []simulator.Option{}
	if cfg.PrivacyURL != "" {
		sdkOpts = append(sdkOpts, simulator.WithPrivacyDashboard(func() error {
			log.Info("privacy dashboard requested", "url", cfg.PrivacyURL)
			return nil
		}))
	}

	srv, err := server.New(server.Options{
		Config: cfg,
		SDK:    simulator.New(log.With("component", "sdk"), sdkOpts...),
		Logger: log,
	})
	if err != nil {
		return err
	}

	harness, err := srv.HarnessURL("cli")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "harness:", harness)
	if cfg.APIKey == "" {
		log.Warn("no API key configured, hosts must pass one to buildFlurryBuilder")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func newTokenCmd(flags *rootFlags) *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bridge token for the configured keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			token, err := session.NewStore(cfg.HashKey, cfg.BlockKey).Issue(host)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "cli", "host name recorded in the token")
	return cmd
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List the method names the dispatcher accepts",
		RunE: func(cmd *cobra.Command, args []string) error {
			nop := slog.New(slog.DiscardHandler)
			p, err := bridge.Attach(simulator.New(nop), bridge.WithLogger(nop))
			if err != nil {
				return err
			}
			defer p.Detach()

			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(p.Methods(), "\n"))
			return nil
		},
	}
}

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage the Flurry API key in the OS keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY",
		Short: "Store the API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return credentials.StoreAPIKey(args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print whether an API key is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := credentials.LoadAPIKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mask(key))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored API key",
		Run: func(cmd *cobra.Command, args []string) {
			credentials.DeleteAPIKey()
		},
	})
	return cmd
}

func mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
