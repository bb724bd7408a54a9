package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dixieflatline76/PexWall/config"
	"github.com/dixieflatline76/PexWall/pkg/cache"
	"github.com/dixieflatline76/PexWall/pkg/pexels"
	"github.com/dixieflatline76/PexWall/pkg/repository"
	"github.com/dixieflatline76/PexWall/pkg/setter"
	"github.com/dixieflatline76/PexWall/pkg/store"
	"github.com/dixieflatline76/PexWall/pkg/work"
	"github.com/dixieflatline76/PexWall/util/log"
)

// app holds the wired services shared by every command.
type app struct {
	cfg     *config.Config
	db      *store.DB
	cache   cache.Cache
	client  *pexels.Client
	repo    *repository.Repository
	setter  *setter.Setter
	manager *work.Manager
	tools   *work.Tools
}

type appHooks struct {
	notifier  setter.Notifier
	onEvent   func(work.Event)
	onApplied work.AppliedFunc
}

func newApp(cfg *config.Config, verbose bool, hooks appHooks) (*app, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	db, err := store.Open(store.Options{
		Type:     cfg.DBType,
		FilePath: cfg.DBFilePath,
		DSN:      cfg.DBDSN,
		Verbose:  verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c, err := cache.New(cache.Options{
		Type:          cfg.CacheType,
		RedisAddr:     cfg.CacheRedisAddr,
		RedisPassword: cfg.CacheRedisPassword,
		RedisDB:       cfg.CacheRedisDB,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	client, err := pexels.NewClient(pexels.Options{
		BaseURL:     cfg.APIBaseURL,
		APIKey:      cfg.APIKey,
		PageSize:    cfg.PageSize,
		RatePerHour: cfg.RateLimitPerHour,
		UserAgent:   config.AppName + "/" + version(),
	}, &http.Client{Timeout: 30 * time.Second})
	if err != nil {
		_ = c.Close()
		_ = db.Close()
		return nil, err
	}

	a := &app{cfg: cfg, db: db, cache: c, client: client}
	a.repo = repository.New(client, store.NewWallpaperRepository(db, cfg.PagingMaxSize), c, cfg.CacheTTL, cfg.PagingMaxSize)
	a.setter = setter.New(setter.NewOS(), nil, setter.Options{
		ImageDir: cfg.ImageDir,
		SmartFit: cfg.SmartFit,
		Notifier: hooks.notifier,
	})
	a.manager = work.NewManager(store.NewWorkRequestRepository(db), work.Options{
		PollInterval:    cfg.WorkPollInterval,
		NetworkCheckURL: cfg.NetworkCheckURL,
		OnEvent:         hooks.onEvent,
	})
	a.manager.RegisterWorker(work.KindAutoChangeWallpaper, work.NewAutoChangeWallpaperWorker(a.setter, hooks.onApplied))
	a.tools = work.NewTools(a.manager, cfg.AutoRepeatPasses)
	return a, nil
}

// loadSchedule brings persisted work into the manager for commands that edit
// the schedule without running it.
func (a *app) loadSchedule(ctx context.Context) error {
	return a.manager.Load(ctx)
}

func (a *app) Close() {
	a.manager.Stop()
	if err := a.cache.Close(); err != nil {
		log.Printf("Failed to close cache: %v", err)
	}
	if err := a.db.Close(); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
}

func version() string {
	if config.AppVersion == "" {
		return "dev"
	}
	return config.AppVersion
}

// withApp loads config, wires the services and runs fn.
func withApp(opts *rootOptions, hooks appHooks, fn func(ctx context.Context, a *app) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, opts.verbose, hooks)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}
