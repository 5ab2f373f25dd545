// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/handlers"
	"github.com/amirphl/quote-core/app/middleware"
	"github.com/amirphl/quote-core/config"
	_ "github.com/amirphl/quote-core/docs"
	"github.com/amirphl/quote-core/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const healthPath = "/api/v1/health"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups every HTTP handler served by the router
type Handlers struct {
	Calculation  handlers.CalculationHandlerInterface
	Extraction   handlers.ExtractionHandlerInterface
	Rule         handlers.RuleHandlerInterface
	Analysis     handlers.AnalysisHandlerInterface
	FixProposal  handlers.FixProposalHandlerInterface
	PricingAdmin handlers.PricingAdminHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.ProductionConfig
	handlers Handlers
	auth     *middleware.AuthMiddleware
	db       *gorm.DB
	redis    *redis.Client
	logger   *zap.Logger
}

// NewFiberRouter creates a new Fiber router. rc may be nil when Redis is disabled.
func NewFiberRouter(
	cfg *config.ProductionConfig,
	h Handlers,
	auth *middleware.AuthMiddleware,
	db *gorm.DB,
	rc *redis.Client,
	logger *zap.Logger,
) *FiberRouter {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:      "Quote Core API",
		ServerHeader: "quote-core",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:      app,
		cfg:      cfg,
		handlers: h,
		auth:     auth,
		db:       db,
		redis:    rc,
		logger:   logger.Named("router"),
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting, no auth)
	api.Get("/health", r.healthCheck)

	if r.isDevelopment() {
		api.Get("/swagger.json", r.serveSwaggerJSON)
	}

	api.Use(rateLimiter(r.cfg.Security.GlobalRateLimit, r.cfg.Security.RateLimitWindow))
	api.Use(r.auth.Authenticate())

	extractions := api.Group("/extractions")
	extractions.Post("", r.handlers.Extraction.IngestExtractions)
	extractions.Post("/route", r.handlers.Extraction.RouteFields)

	calculations := api.Group("/calculations")
	calculations.Post("", r.handlers.Calculation.CreateCalculation)
	calculations.Get("/:uuid", r.handlers.Calculation.GetCalculation)

	api.Post("/rules/evaluate", r.handlers.Rule.EvaluateRule)

	analysis := api.Group("/analysis")
	analysis.Post("/run", r.handlers.Analysis.RunAnalysis)
	analysis.Get("/reports/latest", r.handlers.Analysis.LatestReport)
	analysis.Get("/reports/:uuid/export", r.handlers.Analysis.ExportReport)

	proposals := api.Group("/fix-proposals")
	// registered before /:uuid routes so the literal segment wins
	proposals.Post("/monitoring/evaluate", r.auth.RequireAdmin(), r.handlers.FixProposal.EvaluateMonitoring)
	proposals.Post("", r.handlers.FixProposal.CreateFixProposal)
	proposals.Get("", r.handlers.FixProposal.ListFixProposals)
	proposals.Get("/:uuid", r.handlers.FixProposal.GetFixProposal)
	proposals.Get("/:uuid/audit", r.handlers.FixProposal.ListFixProposalAudits)
	proposals.Post("/:uuid/testing", r.handlers.FixProposal.StartTesting)
	proposals.Post("/:uuid/validate", r.handlers.FixProposal.ValidateFixProposal)
	proposals.Post("/:uuid/deploy", r.handlers.FixProposal.DeployFixProposal)
	proposals.Post("/:uuid/rollback", r.handlers.FixProposal.RollbackFixProposal)

	admin := api.Group("/admin")
	admin.Use(r.auth.RequireAdmin())
	admin.Use(rateLimiter(r.cfg.Security.AdminRateLimit, r.cfg.Security.RateLimitWindow))
	admin.Post("/pricing-factors", r.handlers.PricingAdmin.UpsertPricingFactor)
	admin.Get("/pricing-factors", r.handlers.PricingAdmin.ListPricingFactors)
	admin.Post("/pricing-factors/:uuid/disable", r.handlers.PricingAdmin.DisablePricingFactor)
	admin.Put("/company-config", r.handlers.PricingAdmin.UpsertCompanyConfig)
	admin.Get("/company-config", r.handlers.PricingAdmin.GetCompanyConfig)
	admin.Post("/adjustments", r.handlers.PricingAdmin.CreateAdjustment)
	admin.Get("/adjustments", r.handlers.PricingAdmin.ListAdjustments)
	admin.Post("/materials", r.handlers.PricingAdmin.CreateMaterial)
	admin.Get("/materials", r.handlers.PricingAdmin.ListMaterials)
	admin.Post("/surcharge-rules", r.handlers.PricingAdmin.CreateSurchargeRule)
	admin.Get("/surcharge-rules", r.handlers.PricingAdmin.ListSurchargeRules)

	r.app.Use(r.notFoundHandler)

	r.logger.Info("routes configured", zap.Int("routes", len(r.app.GetRoutes(true))))
}

func rateLimiter(limit int, window time.Duration) fiber.Handler {
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath
		},
	})
}

func (r *FiberRouter) setupMiddleware() {
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-site",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.Security.AllowedOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           utils.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// xlsx exports are already zip compressed
			return strings.HasSuffix(c.Path(), "/export")
		},
	}))

	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || !strings.HasSuffix(c.Path(), "/swagger.json")
		},
		Expiration:          30 * time.Minute,
		DisableCacheControl: false,
	}))

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return c.Path() == healthPath
			},
		}))
	}

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic recovered",
				zap.Any("request_id", c.Locals("requestid")),
				zap.Any("error", e),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
			)
		},
	}))
}

func (r *FiberRouter) Start(address string) error {
	r.logger.Info("starting server", zap.String("address", address))
	return r.app.Listen(address)
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) isDevelopment() bool {
	env := r.cfg.Deployment.Environment
	return env == "development" || env == "local"
}

// healthCheck reports the database and, when configured, Redis reachability
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	database := "ok"
	if r.db == nil {
		database = "unavailable"
		healthy = false
	} else if sqlDB, err := r.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		database = "unavailable"
		healthy = false
	}

	if r.redis != nil {
		if err := r.redis.Ping(ctx).Err(); err != nil {
			// Redis only backs caches and queues
			checks["redis"] = "degraded"
		} else {
			checks["redis"] = "ok"
		}
	}

	resp := dto.HealthResponse{
		Status:   "ok",
		Version:  r.cfg.Deployment.Version,
		Checks:   checks,
		TimeUTC:  utils.UTCNowRFC3339(),
		Database: database,
	}
	if !healthy {
		resp.Status = "unavailable"
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.APIResponse{
			Success: false,
			Message: "Service is unhealthy",
			Data:    resp,
			Error:   dto.ErrorDetail{Code: "SERVICE_UNAVAILABLE"},
		})
	}
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data:    resp,
	})
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(doc)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "Endpoint not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"method": c.Method(),
				"path":   c.Path(),
			},
		},
	})
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	errorCode := "INTERNAL_ERROR"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
		switch code {
		case fiber.StatusNotFound:
			errorCode = "NOT_FOUND"
		case fiber.StatusMethodNotAllowed:
			errorCode = "METHOD_NOT_ALLOWED"
		case fiber.StatusRequestEntityTooLarge:
			errorCode = "REQUEST_TOO_LARGE"
		case fiber.StatusBadRequest:
			errorCode = "BAD_REQUEST"
		default:
			errorCode = "HTTP_ERROR"
		}
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
		},
	})
}

func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return strings.ReplaceAll(utils.UTCNow().Format("20060102150405.000000000"), ".", "")
	}
	return hex.EncodeToString(b)
}
