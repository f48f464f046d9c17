package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts      AccountService
	Videos        VideoService
	Social        SocialService
	Views         ViewService
	Stats         StatsService
	Authenticator Authenticator
	Limiter       RateLimiter
	ClientIP      *middleware.ClientIP
	Health        HealthChecker
	SecureCookies bool
	MaxUploadSize int64
	CORS          config.CORSConfig
	GlobalRate    config.RateLimitConfig
}

// NewRouter wires every HTTP handler into a chi router.
func NewRouter(deps Dependencies, logger *slog.Logger) http.Handler {
	health := HealthHandler{DB: deps.Health}
	accounts := AccountHandler{
		Accounts:  deps.Accounts,
		Views:     deps.Views,
		Cookies:   cookieJar{secure: deps.SecureCookies},
		MaxUpload: deps.MaxUploadSize,
	}
	videos := VideoHandler{Videos: deps.Videos, Stats: deps.Stats, MaxUpload: deps.MaxUploadSize}
	social := SocialHandler{Social: deps.Social}

	required := authenticate(deps.Authenticator, true)
	optional := authenticate(deps.Authenticator, false)

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger), middleware.Metrics, middleware.CORS(deps.CORS))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondFailure(r.Context(), w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondFailure(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.GlobalLimit(deps.GlobalRate, deps.ClientIP))

		r.Route("/users", func(r chi.Router) {
			r.With(limitRate(deps.Limiter, deps.ClientIP, "register")).Post("/register", accounts.Register)
			r.With(limitRate(deps.Limiter, deps.ClientIP, "login")).Post("/login", accounts.Login)
			r.With(limitRate(deps.Limiter, deps.ClientIP, "refresh")).Post("/refresh-token", accounts.Refresh)
			r.With(optional).Get("/c/{handle}", accounts.ChannelProfile)

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/logout", accounts.Logout)
				r.Post("/change-password", accounts.ChangePassword)
				r.Get("/current-user", accounts.Current)
				r.Patch("/update-account", accounts.UpdateDetails)
				r.Patch("/avatar", accounts.UpdateAvatar)
				r.Patch("/cover-image", accounts.UpdateCoverImage)
				r.Delete("/cover-image", accounts.DeleteCoverImage)
				r.Get("/history", accounts.WatchHistory)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", videos.List)
			r.With(optional).Get("/{videoID}", videos.Get)

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/", videos.Publish)
				r.Patch("/{videoID}", videos.Update)
				r.Delete("/{videoID}", videos.Delete)
				r.Patch("/toggle/publish/{videoID}", videos.TogglePublish)
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(required)
			r.Get("/stats", videos.DashboardStats)
			r.Get("/videos", videos.DashboardVideos)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/c/{channelID}", social.Subscribers)
			r.Get("/u/{subscriberID}", social.SubscribedChannels)
			r.With(required).Post("/c/{channelID}", social.ToggleSubscription)
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(required)
			r.Post("/toggle/{kind}/{targetID}", social.ToggleLike)
			r.Get("/videos", social.LikedVideos)
		})

		r.Route("/tweets", func(r chi.Router) {
			r.Get("/user/{accountID}", social.AccountTweets)

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/", social.CreateTweet)
				r.Patch("/{tweetID}", social.UpdateTweet)
				r.Delete("/{tweetID}", social.DeleteTweet)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/{videoID}", social.VideoComments)

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/{videoID}", social.AddComment)
				r.Patch("/c/{commentID}", social.UpdateComment)
				r.Delete("/c/{commentID}", social.DeleteComment)
			})
		})
	})

	return r
}
