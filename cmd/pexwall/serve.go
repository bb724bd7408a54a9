package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dixieflatline76/PexWall/config"
	"github.com/dixieflatline76/PexWall/pkg/api"
	"github.com/dixieflatline76/PexWall/pkg/pexels"
	"github.com/dixieflatline76/PexWall/pkg/store"
	"github.com/dixieflatline76/PexWall/util"
	"github.com/dixieflatline76/PexWall/util/log"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	var prefetch int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local API server and the auto change scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, addr, prefetch)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().IntVar(&prefetch, "prefetch", 2, "curated pages to warm on start")
	return cmd
}

func runServe(opts *rootOptions, addr string, prefetch int) error {
	locked, err := acquireLock()
	if err != nil {
		return err
	}
	if !locked {
		return fmt.Errorf("another instance of %s is already running", config.AppName)
	}
	defer releaseLock()

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.ServerAddr
	}

	hub := api.NewHub()
	a, err := newApp(cfg, opts.verbose, appHooks{
		notifier:  hub,
		onEvent:   hub.OnWorkEvent,
		onApplied: hub.OnWallpaperSet,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.manager.Start(ctx); err != nil {
		return err
	}

	server := api.NewServer(api.Dependencies{
		Wallpapers: a.repo,
		Applier:    a.setter,
		Auto:       a.tools,
		Hub:        hub,
		Version:    version(),
		SavedState: store.NewSettingsRepository(a.db),
		Ping:       a.db.Ping,
		Debug:      opts.verbose,
	})

	if prefetch > 0 {
		go func() {
			if err := a.repo.Prefetch(ctx, "", prefetch); err != nil && !errors.Is(err, context.Canceled) {
				if errors.Is(err, pexels.ErrMissingAPIKey) {
					log.Print("No Pexels API key configured; run 'pexwall key set <key>'")
					return
				}
				log.Printf("Curated prefetch failed: %v", err)
			}
		}()
	}

	go checkForUpdates(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	return <-errCh
}

func checkForUpdates(ctx context.Context) {
	res, err := util.CheckForUpdates(ctx, nil)
	if err != nil {
		log.Debugf("Update check failed: %v", err)
		return
	}
	if res.UpdateAvailable {
		log.Printf("A new version of %s is available: %s (%s)", config.AppName, res.LatestVersion, res.ReleaseURL)
	}
}
