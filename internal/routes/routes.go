package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lendpoint/lendpoint/internal/audit"
	"github.com/lendpoint/lendpoint/internal/auth"
	"github.com/lendpoint/lendpoint/internal/config"
	"github.com/lendpoint/lendpoint/internal/identity"
	"github.com/lendpoint/lendpoint/internal/loans"
	"github.com/lendpoint/lendpoint/internal/middleware"
	"github.com/lendpoint/lendpoint/internal/notification"
	"github.com/lendpoint/lendpoint/internal/otp"
	"github.com/lendpoint/lendpoint/internal/walletauth"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Logger != nil {
		app.Use(middleware.RequestLog(d.Logger))
	} else {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Repositories
	var (
		userRepo  identity.Repository
		otpRepo   otp.Repository
		auditRepo audit.Repository
		loanRepo  loans.Repository
	)
	if d.DB != nil {
		userRepo = identity.NewPostgresRepository(d.DB)
		otpRepo = otp.NewPostgresRepository(d.DB)
		auditRepo = audit.NewPostgresRepository(d.DB)
		loanRepo = loans.NewPostgresRepository(d.DB)
	} else {
		userRepo = identity.NewMemoryRepository()
		otpRepo = otp.NewMemoryRepository()
		auditRepo = audit.NewMemoryRepository()
		loanRepo = loans.NewMemoryRepository()
	}

	// Services
	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc := identity.NewService(userRepo, notifier, d.Cfg.AppURL)
	otpManager := otp.NewManager(otpRepo, notifier)
	auditSvc := audit.NewService(auditRepo)
	authSvc := auth.NewService(d.Cfg, userRepo)
	loanSvc := loans.NewService(loanRepo)
	walletSvc := walletauth.NewService(userRepo,
		walletauth.NewEthereumVerifier(),
		walletauth.NewHexNonceGenerator(),
		otpManager, authSvc, auditSvc)

	// Handlers
	identityHandler := identity.NewHandler(identitySvc)
	authHandler := auth.NewHandler(authSvc)
	walletHandler := walletauth.NewHandler(walletSvc)
	loanHandler := loans.NewHandler(loanSvc)
	auditHandler := audit.NewHandler(auditSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.AuthRateLimit(d.Cache, 5)
	jwtmw := middleware.JWTAuth(d.Cfg, userRepo)
	protected := api.Group("", jwtmw)

	RegisterAuthRoutes(api, protected, identityHandler, authHandler, walletHandler, rateLimiter)
	RegisterUserRoutes(api, protected, identityHandler, userRepo)
	RegisterLoanRoutes(protected, loanHandler)
	RegisterAuditRoutes(protected, auditHandler)

	return nil
}
