package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/paylink/internal/app/service"
	inthttp "github.com/sifan077/paylink/internal/http/handler"
	"github.com/sifan077/paylink/internal/http/middleware"
	infraPrometheus "github.com/sifan077/paylink/internal/infra/prometheus"
	"go.uber.org/zap"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	bodyLimit    = 16 * 1024
)

// Dependencies bundles infrastructure dependencies required by the HTTP server.
type Dependencies struct {
	Logger         *zap.Logger
	Development    bool
	Redis          redis.UniversalClient
	Postgres       *pgxpool.Pool
	LinkService    service.LinkService
	Publisher      inthttp.EventPublisher
	Metrics        *infraPrometheus.Metrics
	RedirectPrefix string
	RateLimit      *middleware.RateLimitConfig
	AllowedOrigins []string
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "paylink",
		DisableStartupMessage: !deps.Development,
		EnablePrintRoutes:     deps.Development,
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		BodyLimit:             bodyLimit,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(
		middleware.RequestID(),
		middleware.Recovery(s.deps.Logger),
		middleware.Logger(s.deps.Logger),
		middleware.Metrics(s.deps.Metrics),
	)
}

func (s *Server) registerRoutes() {
	inthttp.NewHealthHandler(inthttp.HealthDeps{
		Logger: s.deps.Logger,
		Checks: s.readinessChecks(),
	}).Register(s.app)

	apiMiddleware := []fiber.Handler{middleware.CORS(s.deps.AllowedOrigins)}
	if s.deps.RateLimit != nil && s.deps.Redis != nil {
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(s.deps.Redis, *s.deps.RateLimit, s.deps.Logger))
	}
	inthttp.NewLinkHandler(inthttp.LinkDeps{
		Logger:      s.deps.Logger,
		LinkService: s.deps.LinkService,
		Publisher:   s.deps.Publisher,
		Metrics:     s.deps.Metrics,
		Middleware:  apiMiddleware,
	}).Register(s.app)

	inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:      s.deps.Logger,
		LinkService: s.deps.LinkService,
		Publisher:   s.deps.Publisher,
		Metrics:     s.deps.Metrics,
		Prefix:      s.deps.RedirectPrefix,
	}).Register(s.app)
}

func (s *Server) readinessChecks() []inthttp.ReadinessCheck {
	var checks []inthttp.ReadinessCheck
	if s.deps.Redis != nil {
		client := s.deps.Redis
		checks = append(checks, inthttp.ReadinessCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
		})
	}
	if s.deps.Postgres != nil {
		pool := s.deps.Postgres
		checks = append(checks, inthttp.ReadinessCheck{
			Name:  "postgres",
			Check: pool.Ping,
		})
	}
	return checks
}
