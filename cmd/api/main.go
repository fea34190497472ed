package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/soundslike-labs/moodqueue/internal/adapters/gemini"
	"github.com/soundslike-labs/moodqueue/internal/adapters/rest"
	"github.com/soundslike-labs/moodqueue/internal/adapters/spotify"
	"github.com/soundslike-labs/moodqueue/internal/adapters/sqlite"
	"github.com/soundslike-labs/moodqueue/internal/config"
	"github.com/soundslike-labs/moodqueue/internal/core/domain"
	"github.com/soundslike-labs/moodqueue/internal/core/services"
	"github.com/soundslike-labs/moodqueue/internal/core/vibe"
	"github.com/soundslike-labs/moodqueue/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("MOODQUEUE_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.Log.File, config.ParseLogLevel(cfg.Log.Level))
	defer closeLog() //nolint:errcheck
	slog.SetDefault(logger)

	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		logger.Error("spotify client credentials are required")
		os.Exit(1)
	}

	// Token manager. The session layer that obtains the initial credential
	// is out of scope; tokens are seeded from configuration.
	oauthConf := &oauth2.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.Spotify.AuthURL,
			TokenURL: cfg.Spotify.TokenURL,
		},
	}
	tokens := spotify.NewTokenManager(oauthConf, domain.Credential{
		AccessToken:  cfg.Spotify.AccessToken,
		RefreshToken: cfg.Spotify.RefreshToken,
	}, nil)

	catalog := spotify.NewClient(cfg.Spotify.BaseURL, tokens, logger,
		spotify.WithForbiddenAsAuth(cfg.Spotify.TreatForbiddenAsAuth))

	library, err := sqlite.NewAdapter(cfg.Library.Path)
	if err != nil {
		logger.Error("failed to open local library", "error", err)
		os.Exit(1)
	}
	defer library.Close() //nolint:errcheck

	geminiClient := gemini.NewClient(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, nil, logger)
	ranker := gemini.NewRanker(geminiClient, nil)
	estimator := gemini.NewEstimator(geminiClient)
	describer := gemini.NewDescriber(geminiClient)

	builder := vibe.NewBuilder(cfg.Vibe.DelegateURL, nil, logger)

	svc := services.NewOrchestrator(catalog, builder, ranker, estimator, describer, library, nil, logger)

	pool := worker.NewPool(library, estimator, logger, 100)
	pool.Start(2)
	defer pool.Stop()
	go enqueueUnanalyzed(library, pool, logger)

	handler := rest.NewHandler(svc, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("moodqueue api listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}

// enqueueUnanalyzed feeds tracks still missing features into the enrichment
// pool at startup.
func enqueueUnanalyzed(library *sqlite.Adapter, pool *worker.Pool, logger *slog.Logger) {
	tracks, err := library.MissingFeatures(context.Background(), 100)
	if err != nil {
		logger.Warn("failed to list unanalyzed tracks", "error", err)
		return
	}
	for _, t := range tracks {
		pool.Submit(worker.Job{Track: t})
	}
}
