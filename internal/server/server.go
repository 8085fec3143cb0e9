// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "github.com/rai-team-aiframe/dreamly/docs" // swagger docs
	"github.com/rai-team-aiframe/dreamly/internal/auth"
	"github.com/rai-team-aiframe/dreamly/internal/config"
	"github.com/rai-team-aiframe/dreamly/internal/database"
	"github.com/rai-team-aiframe/dreamly/internal/featureflags"
	"github.com/rai-team-aiframe/dreamly/internal/imagegen"
	"github.com/rai-team-aiframe/dreamly/internal/middleware"
	"github.com/rai-team-aiframe/dreamly/internal/models"
	"github.com/rai-team-aiframe/dreamly/internal/notifications"
	"github.com/rai-team-aiframe/dreamly/internal/repository"
	"github.com/rai-team-aiframe/dreamly/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultOrigins = "http://localhost:8000,http://127.0.0.1:8000"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	tokens         *auth.TokenService
	revoker        auth.Revoker
	rateLimiter    *middleware.RateLimiter
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	userService    *service.UserService
	postService    *service.PostService
}

// NewServer wires repositories, services and the HTTP app around already-opened
// dependencies. redisClient may be nil: revocation, rate limits and cross-process
// notification fan-out are then disabled.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, generator imagegen.Generator) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if db == nil {
		return nil, errors.New("server: database is required")
	}
	if generator == nil {
		return nil, errors.New("server: image generator is required")
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	followRepo := repository.NewFollowRepository(db)

	hub := notifications.NewHub()
	notifier := notifications.NewNotifier(redisClient, hub)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("dreamly-api"),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		tokens: auth.NewTokenService(auth.TokenConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			TTL:      cfg.TokenTTL,
		}),
		revoker:      auth.NewRedisRevoker(redisClient),
		rateLimiter:  middleware.NewRateLimiter(redisClient, cfg.Env),
		notifier:     notifier,
		hub:          hub,
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
		userService:  service.NewUserService(userRepo, followRepo, notifier),
		postService:  service.NewPostService(postRepo, followRepo, generator, notifier),
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "Dreamly API",
		BodyLimit:    bodyLimit(cfg.BodyLimitMB),
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app)

	return s, nil
}

func bodyLimit(mb int) int {
	if mb <= 0 {
		return fiber.DefaultBodyLimit
	}
	return mb * 1024 * 1024
}

// App exposes the configured Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// errorHandler renders errors that escape handlers. Fiber's own errors keep their
// status; everything else goes through the AppError mapping.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Detail: fe.Message})
	}
	return s.respondError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = defaultOrigins
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Detail: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes installs the session gate and all routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Use(middleware.AuthGate(middleware.GateConfig{
		Tokens:  s.tokens,
		Revoker: s.revoker,
	}))

	// Operational endpoints
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")
	api.Get("/health", s.HealthCheck)
	api.Get("/health/ready", s.ReadinessCheck)
	api.Get("/auth/status", s.AuthStatus)
	api.Get("/flags", s.GetFeatureFlags)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Dreamly Metrics Dashboard",
	}))
	api.Get("/ws", s.WebsocketHandler())

	users := app.Group("/users")
	users.Post("/register", s.rateLimiter.Limit("register", 5, 10*time.Minute, middleware.FailOpen), s.Register)
	users.Post("/token", s.rateLimiter.Limit("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)
	users.Post("/logout", s.Logout)
	users.Get("/me", s.GetMe)
	users.Put("/me", s.UpdateMe)
	users.Get("/feed", s.GetFeed)
	users.Get("/liked", s.GetLikedPosts)
	users.Get("/profile/:username", s.GetProfile)
	users.Post("/follow/:user_id", s.ToggleFollow)
	users.Get("/followers/:user_id", s.GetFollowers)
	users.Get("/following/:user_id", s.GetFollowing)
	users.Get("/search/:query", s.SearchUsers)

	posts := app.Group("/posts")
	posts.Get("/", s.Explore)
	posts.Post("/", s.rateLimiter.Limit("create_post", 10, time.Minute, middleware.FailOpen), s.CreatePost)
	posts.Post("/search", s.SearchPosts)
	posts.Post("/generate-preview", s.rateLimiter.Limit("preview", 10, time.Minute, middleware.FailOpen), s.GeneratePreview)
	posts.Post("/like/:id", s.ToggleLike)
	posts.Get("/user/:user_id", s.GetUserPosts)
	// Specific /:id/:resource routes before the generic /:id routes
	posts.Get("/:id/thumbnail", s.GetThumbnail)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)
}

// Start wires the notification hub and blocks serving HTTP on the configured port.
func (s *Server) Start() error {
	if s.redis != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the Redis subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down notification hub", slog.String("error", err.Error()))
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
