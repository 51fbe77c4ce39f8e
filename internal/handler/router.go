package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/sitecms/internal/metrics"
	"github.com/hitoshi/sitecms/internal/middleware"
	"github.com/hitoshi/sitecms/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	SessionResolver   middleware.SessionResolver
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	CSRFEnabled       bool
	CSRFConfig        middleware.CSRFConfig
	HealthChecker     HealthChecker

	// 認証
	LoginFlow         LoginFlow
	SessionTerminator SessionTerminator
	AuthConfig        AuthHandlerConfig

	// コンテンツ・プロフィール
	ContentService ContentService
	ProfileService ProfileService
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP → Tracing → Metrics → Logging → SecurityHeaders → CORS
//	  /api/*: SessionLoader → RateLimit(General) → [CSRF]
//
// 更新系のコンテンツAPIは RequireAuth → RequireAdmin を通過した場合のみ実行される。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimw.RealIP)
	r.Use(middleware.NewTracingMiddleware())
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{Code: "NOT_FOUND", Message: "Route not found"})
	})

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}

	authHandler := NewAuthHandler(deps.LoginFlow, deps.SessionTerminator, deps.AuthConfig)
	contentHandler := NewContentHandler(deps.ContentService)
	userHandler := NewUserHandler(deps.ProfileService)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewSessionLoader(deps.SessionResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		if deps.CSRFEnabled {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
		}

		// 認証（OAuthフロー）
		r.Route("/auth", func(r chi.Router) {
			r.Get("/user", authHandler.CurrentUser)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.LoginMiddleware())
				r.Get("/{provider}", authHandler.Login)
				r.Get("/{provider}/callback", authHandler.Callback)
			})
		})

		// サイトコンテンツ
		r.Route("/content", func(r chi.Router) {
			r.Get("/", contentHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth, middleware.RequireAdmin)
				r.Put("/", contentHandler.Update)
				r.Put("/company-name", contentHandler.UpdateCompanyName)
				r.Put("/home", contentHandler.UpdateHome)
				r.Put("/about", contentHandler.UpdateAbout)
				r.Put("/contact", contentHandler.UpdateContact)
			})
		})

		// プロフィール
		r.Route("/user", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/profile", userHandler.GetProfile)
			r.Put("/profile", userHandler.UpdateProfile)
		})
	})

	return r
}
