package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-live-notifications/internal/httpapi"
	"github.com/goliatone/go-live-notifications/internal/metrics"
	execplatform "github.com/goliatone/go-live-notifications/internal/platform"
	"github.com/goliatone/go-live-notifications/internal/toast"
	"github.com/goliatone/go-live-notifications/pkg/adapters"
	"github.com/goliatone/go-live-notifications/pkg/adapters/console"
	"github.com/goliatone/go-live-notifications/pkg/config"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/logger"
	"github.com/goliatone/go-live-notifications/pkg/interfaces/platform"
	"github.com/goliatone/go-live-notifications/pkg/notifier"
	"github.com/goliatone/go-live-notifications/pkg/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a JSON configuration file")
		envFiles   = flag.String("env", "", "comma separated .env files (default .env,.env.dev)")
		terminal   = flag.Bool("console", false, "render toasts on the terminal")
	)
	flag.Parse()

	lgr := logger.NewLogrus("notifyd")
	if err := run(lgr, *configPath, *envFiles, *terminal); err != nil {
		lgr.Error("notifyd: exited with error", logger.F("error", err))
		os.Exit(1)
	}
}

func run(lgr logger.Logger, configPath, envFiles string, terminal bool) error {
	var files []string
	if envFiles != "" {
		files = strings.Split(envFiles, ",")
	}
	loaded, err := config.LoadEnvFiles(files...)
	if err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	if len(loaded) > 0 {
		lgr.Info("notifyd: env files loaded", logger.F("files", loaded))
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg = config.FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers := storage.NewMemoryProviders()
	if cfg.Inbox.DSN != "" {
		db, err := storage.OpenSQLite(ctx, cfg.Inbox.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		providers = storage.NewBunProviders(db)
	} else if strings.EqualFold(cfg.Identity.Store, "sqlite") {
		return errors.New("identity.store sqlite requires inbox.dsn")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	execs := execplatform.Exec{}
	caps := platform.Capabilities{
		Desktop:     execplatform.NewNotifySend("live-notifications", cfg.Delivery.DesktopDuration, execs),
		ToneFactory: execplatform.CommandToneFactory(cfg.Delivery.PlayerCommand, execs, lgr),
		Clips:       execplatform.NewCommandClips(cfg.Delivery.PlayerCommand, execs),
		DisplayFor:  cfg.Delivery.DesktopDuration,
	}

	var surfaces []toast.Surface
	if terminal {
		surface, err := console.New(lgr)
		if err != nil {
			return err
		}
		surfaces = append(surfaces, surface)
	}

	module, err := notifier.NewModule(notifier.ModuleOptions{
		Config:       cfg,
		Storage:      providers,
		Logger:       lgr,
		Capabilities: caps,
		Surfaces:     surfaces,
		Metrics:      metrics.New(reg),
	})
	if err != nil {
		return err
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				lgr.Info("notifyd: SIGHUP, re-reading session")
				module.Identity().Notify()
			}
		}
	})
	g.Go(func() error { return module.Run(gctx) })

	if cfg.HTTP.Enabled {
		server, err := httpapi.New(httpapi.Dependencies{
			Commands: module.Commands(),
			Inbox:    module.Inbox(),
			Toasts:   module.Toasts(),
			Realtime: module.Realtime(),
			Status:   module.Manager().Viewer,
			Gatherer: reg,
			Logger:   lgr,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return server.ListenAndServe(gctx, cfg.HTTP.Addr) })
	}

	lgr.Info("notifyd: started",
		logger.F("transport", cfg.Push.Transport),
		logger.F("identity_store", cfg.Identity.Store),
		logger.F("http", cfg.HTTP.Enabled),
		logger.F("cue_tiers", module.AdapterRegistry().Names(adapters.ChannelCue)),
	)
	return g.Wait()
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Defaults(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return config.Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return config.Load(input)
}
