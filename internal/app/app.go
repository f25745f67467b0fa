// Package app wires the pipeline services from configuration.
package app

import (
	"context"
	"fmt"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	gpubsub "cloud.google.com/go/pubsub"

	archivegcs "github.com/basketdata/aisle-crawler/internal/archive/gcs"
	archivelocal "github.com/basketdata/aisle-crawler/internal/archive/local"
	"github.com/basketdata/aisle-crawler/internal/config"
	"github.com/basketdata/aisle-crawler/internal/diag"
	"github.com/basketdata/aisle-crawler/internal/dispatch"
	"github.com/basketdata/aisle-crawler/internal/extract"
	"github.com/basketdata/aisle-crawler/internal/fetch"
	"github.com/basketdata/aisle-crawler/internal/hash/sha256"
	"github.com/basketdata/aisle-crawler/internal/logging"
	"github.com/basketdata/aisle-crawler/internal/metrics"
	"github.com/basketdata/aisle-crawler/internal/pipeline"
	"github.com/basketdata/aisle-crawler/internal/proxypool"
	publishpubsub "github.com/basketdata/aisle-crawler/internal/publish/pubsub"
	"github.com/basketdata/aisle-crawler/internal/ratelimit"
	"github.com/basketdata/aisle-crawler/internal/retailer"
	"github.com/basketdata/aisle-crawler/internal/session"
	"github.com/basketdata/aisle-crawler/internal/sink"
	"github.com/basketdata/aisle-crawler/internal/useragent"
)

// App owns the wired services for one process.
type App struct {
	Cfg        config.Config
	Logger     *zap.Logger
	Fetcher    *fetch.Fetcher
	Renderer   *fetch.ExternalRenderer
	Dispatcher *dispatch.Dispatcher
	Sink       pipeline.Sink
	Publisher  pipeline.Publisher
	Diag       *diag.Server

	pubsubClient *gpubsub.Client
	gcsClient    *gstorage.Client
}

// New builds the application from configuration.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	agents := useragent.NewPool()
	limiter := ratelimit.New(ratelimit.Config{
		StrictHost: retailer.StrictHost,
		GlobalRPS:  cfg.Fetch.GlobalRPS,
	}, logger)
	sessions := session.NewPool(agents, cfg.Fetch.SessionRefresh, nil, logger)
	proxies := proxypool.New(
		proxypool.FromBrightDataEnv(cfg.Proxy.Host, cfg.Proxy.Port, cfg.Proxy.User, cfg.Proxy.Pass),
		logger,
	)

	fetcher, err := fetch.New(fetch.Config{
		MinBodyBytes:       cfg.Fetch.MinBodyBytes,
		MaxAttempts:        cfg.Fetch.MaxAttempts,
		InterStrategyDelay: cfg.InterStrategyDelay(),
		BrowserHeadful:     cfg.Fetch.OcadoSeleniumHeadful,
		CacheCapacity:      cfg.Fetch.CacheCapacity,
	}, limiter, sessions, proxies, agents, logger)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	renderer := fetch.NewExternalRenderer(fetch.RendererConfig{
		Endpoint:   cfg.Renderer.Endpoint,
		APIKey:     cfg.Renderer.APIKey,
		DailyQuota: cfg.Renderer.DailyQuota,
		WaitMillis: cfg.Renderer.WaitMillis,
	}, logger)

	dispatcher := dispatch.New(fetcher, renderer, extract.NewRegistry(), logger)

	a := &App{
		Cfg:        cfg,
		Logger:     logger,
		Fetcher:    fetcher,
		Renderer:   renderer,
		Dispatcher: dispatcher,
	}

	if err := a.initSink(ctx); err != nil {
		return nil, err
	}
	if err := a.initArchive(ctx); err != nil {
		return nil, err
	}
	if err := a.initPublisher(ctx); err != nil {
		return nil, err
	}
	if cfg.Diag.Enabled {
		a.Diag = diag.NewServer(cfg.Diag.Port, logger)
		a.Diag.Start()
	}
	return a, nil
}

func (a *App) initSink(ctx context.Context) error {
	if a.Cfg.Output.PreviewOnly {
		preview, err := sink.NewPreviewSink(a.Cfg.Output.PreviewPath)
		if err != nil {
			return fmt.Errorf("init preview sink: %w", err)
		}
		a.Sink = preview
		a.Logger.Info("preview mode: skipping database writes",
			zap.String("path", a.Cfg.Output.PreviewPath))
		return nil
	}

	pg, err := sink.NewPostgresSink(ctx, sink.PostgresConfig{
		DSN: sink.DSNFromEnv(
			a.Cfg.DB.Host, a.Cfg.DB.Port, a.Cfg.DB.Database,
			a.Cfg.DB.User, a.Cfg.DB.Password,
		),
		Table: a.Cfg.DB.Table,
	})
	if err != nil {
		return fmt.Errorf("init postgres sink: %w", err)
	}
	a.Sink = pg
	return nil
}

func (a *App) initArchive(ctx context.Context) error {
	if !a.Cfg.Archive.Enabled {
		return nil
	}
	var (
		blobs pipeline.BlobStore
		err   error
	)
	switch {
	case a.Cfg.Archive.GCSBucket != "":
		a.gcsClient, err = gstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		blobs, err = archivegcs.New(a.gcsClient, archivegcs.Config{Bucket: a.Cfg.Archive.GCSBucket})
		if err != nil {
			return fmt.Errorf("init gcs archive: %w", err)
		}
	default:
		blobs, err = archivelocal.New(a.Cfg.Archive.LocalDir)
		if err != nil {
			return fmt.Errorf("init local archive: %w", err)
		}
	}
	a.Dispatcher.WithArchive(blobs, sha256.New(), a.Cfg.Archive.Prefix)
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	if !a.Cfg.Publish.Enabled {
		return nil
	}
	client, err := gpubsub.NewClient(ctx, a.Cfg.Publish.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub client: %w", err)
	}
	a.pubsubClient = client
	a.Publisher = publishpubsub.New(client)
	return nil
}

// Close releases every held resource.
func (a *App) Close(ctx context.Context) {
	if a.Sink != nil {
		if err := a.Sink.Close(); err != nil {
			a.Logger.Warn("close sink", zap.Error(err))
		}
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.Logger.Warn("close pubsub client", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.Logger.Warn("close gcs client", zap.Error(err))
		}
	}
	if a.Diag != nil {
		if err := a.Diag.Shutdown(ctx); err != nil {
			a.Logger.Warn("shutdown diagnostics", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}
