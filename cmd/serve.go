package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"meme-service/config"
	"meme-service/events"
	"meme-service/fetcher"
	"meme-service/fixtures"
	"meme-service/handler"
	"meme-service/library"
	"meme-service/library/sqlite"
	"meme-service/media"
	"meme-service/metrics"
	"meme-service/repository"
	"meme-service/repository/memory"
	"meme-service/repository/mongo"
	"meme-service/router"
	"meme-service/service"
	"meme-service/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the NATS worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

type backend struct {
	memes     repository.Memes
	templates repository.Templates
	ping      func(ctx context.Context) error
	close     func()
}

func openBackend(ctx context.Context) (backend, error) {
	if cfg.Backend == config.BackendMongo {
		client, err := mongo.Connect(ctx, cfg.MongoURI, cfg.ConnectTimeout, log)
		if err != nil {
			return backend{}, err
		}
		db := client.Database(cfg.MongoDatabase)
		mongo.EnsureIndexes(ctx, db)
		return backend{
			memes:     mongo.NewMemes(db),
			templates: mongo.NewTemplates(db),
			ping:      func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:     func() { _ = client.Disconnect(context.Background()) },
		}, nil
	}

	now := time.Now()
	memes, err := fixtures.Memes(now)
	if err != nil {
		return backend{}, err
	}
	templates, err := fixtures.Templates(now)
	if err != nil {
		return backend{}, err
	}
	log.Info().Int("memes", len(memes)).Int("templates", len(templates)).Msg("Using in-memory fixtures")
	return backend{
		memes:     memory.NewMemes(memes),
		templates: memory.NewTemplates(templates),
		close:     func() {},
	}, nil
}

func serve(ctx context.Context) error {
	metrics.Init(router.ServiceName, version, string(cfg.Environment))

	be, err := openBackend(ctx)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	defer be.close()

	persister, err := sqlite.Open(cfg.LibraryPath)
	if err != nil {
		return fmt.Errorf("open library database: %w", err)
	}
	defer persister.Close()
	lib, err := library.Open(ctx, persister, log)
	if err != nil {
		return err
	}

	var (
		publisher service.Publisher = events.Noop{}
		nc        *nats.Conn
	)
	if cfg.NATSEnabled {
		nc, err = events.Connect(ctx, cfg.NATSUrl, cfg.ConnectTimeout, log)
		if err != nil {
			return err
		}
		pub := events.NewNATSPublisher(nc, log)
		defer pub.Close()
		publisher = pub
	}

	opts := service.Options{Library: lib, Publisher: publisher, Logger: log}
	if cfg.SimulateLatency {
		opts.Latency = service.SimulatedLatency
	}
	memeSvc := service.NewMemeService(be.memes, be.templates, opts)
	templateSvc := service.NewTemplateService(be.templates, opts)

	host, err := media.NewLocalHost(media.LocalConfig{
		Platform: media.Platform(cfg.Platform),
		MediaDir: cfg.MediaDir,
		AlbumDir: cfg.AlbumDir,
		Webhooks: map[media.Channel]string{
			media.ChannelWeChat:   cfg.WeChatWebhook,
			media.ChannelDingTalk: cfg.DingTalkWebhook,
		},
	})
	if err != nil {
		return err
	}

	w := worker.New(
		worker.Config{RefreshInterval: cfg.TemplateRefresh},
		nc,
		memeSvc,
		fetcher.New(fetcher.Config{ImgflipURL: cfg.ImgflipURL, RedditURL: cfg.RedditURL}, log),
		be.templates,
		log,
	)
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	r := router.Setup(router.Handlers{
		Memes:     handler.NewMemeHandler(memeSvc, log),
		Templates: handler.NewTemplateHandler(templateSvc, log),
		Library:   handler.NewLibraryHandler(lib, log),
		Media:     handler.NewMediaHandler(media.NewService(host, log), log),
		Ping:      be.ping,
		Refresh:   w.RefreshTemplates,
	}, log)

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Meme service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down meme service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Meme service stopped")
	return nil
}
