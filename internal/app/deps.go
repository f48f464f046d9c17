package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/social"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/videos"
	"github.com/vidtube/backend/internal/views"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background media deletions.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := auth.NewTokens(auth.TokenConfig{
		AccessSecret:  cfg.Auth.AccessSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshSecret: cfg.Auth.RefreshSecret,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure tokens: %w", err)
	}

	objectStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
	}
	store := media.NewBreakerStore(objectStore, media.BreakerConfig{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	}, logger)
	reaper := media.NewReaper(store, media.ReaperConfig{
		QueueSize: cfg.Media.ReaperQueue,
		Workers:   cfg.Media.ReaperWorkers,
	}, logger)
	proxies, err := cfg.RateLimit.ProxyPrefixes()
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure rate limiting: %w", err)
	}

	prober := media.NewProber(cfg.Media.FFProbePath, cfg.Media.FFProbeTimeout)

	accountRepo := repositories.NewPostgresAccountRepository(pool)
	videoRepo := repositories.NewPostgresVideoRepository(pool)
	sessions := auth.NewManager(tokens, repositories.NewPostgresSessionStore(pool))

	composer := views.NewComposer(repositories.NewPostgresViewStore(pool))
	stats := views.NewCachingStats(composer, cfg.StatsCacheTTL)

	deps := handlers.Dependencies{
		Accounts: accounts.NewService(accountRepo, sessions, store, reaper, accounts.Config{
			BcryptCost: cfg.Auth.BcryptCost,
		}),
		Videos: videos.NewService(videos.Deps{
			Videos:  videoRepo,
			Watches: accountRepo,
			Store:   store,
			Prober:  prober,
			Reaper:  reaper,
			Stats:   stats,
		}),
		Social: social.NewService(social.Deps{
			Accounts:      accountRepo,
			Videos:        videoRepo,
			Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
			Likes:         repositories.NewPostgresLikeRepository(pool),
			Tweets:        repositories.NewPostgresTweetRepository(pool),
			Comments:      repositories.NewPostgresCommentRepository(pool),
			Stats:         stats,
		}),
		Views:         composer,
		Stats:         stats,
		Authenticator: sessions,
		Limiter:       middleware.NewKeyedLimiter(cfg.RateLimit),
		ClientIP:      middleware.NewClientIP(proxies),
		Health:        pool,
		SecureCookies: cfg.Auth.SecureCookies,
		MaxUploadSize: cfg.Media.MaxUploadMB * 1024 * 1024,
		CORS:          cfg.CORS,
		GlobalRate:    cfg.RateLimit,
	}

	return deps, reaper.Shutdown, nil
}
