// Package server assembles the HTTP application: middleware, auth mode,
// rate limits, routes and the run-status websocket.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pantrypal/api/internal/auth"
	"github.com/pantrypal/api/internal/client"
	"github.com/pantrypal/api/internal/config"
	"github.com/pantrypal/api/internal/handler"
	"github.com/pantrypal/api/internal/middleware"
	"github.com/pantrypal/api/internal/service"
	"github.com/pantrypal/api/internal/store"
	ws "github.com/pantrypal/api/internal/websocket"
	"github.com/pantrypal/api/pkg/response"
)

// multipartOverhead is added to the upload limit for form boundaries and headers
const multipartOverhead = 1 << 20

// Deps are the collaborators the application is built from. Archive, Verifier,
// Redis and Hub are optional.
type Deps struct {
	Config   *config.Config
	Store    store.Store
	Pipeline client.PipelineRunner
	Archive  client.ReceiptArchive
	Verifier auth.TokenVerifier
	Redis    *redis.Client
	Hub      *ws.Hub
	// AccessLog receives one line per request; defaults to stdout
	AccessLog io.Writer
}

// New builds the fiber application
func New(d Deps) *fiber.App {
	cfg := d.Config
	validate := validator.New()

	var notifier handler.RunNotifier
	if d.Hub != nil {
		notifier = d.Hub
	}

	pantryService := service.NewPantryService(d.Store)
	receiptService := service.NewReceiptService(d.Pipeline, d.Archive, &cfg.Pipeline, &cfg.Upload)
	recipeService := service.NewRecipeService(d.Store, d.Pipeline, &cfg.Pipeline)

	pantryHandler := handler.NewPantryHandler(pantryService, receiptService, notifier, validate, cfg.Upload.MaxBytes)
	recipeHandler := handler.NewRecipeHandler(recipeService, notifier, validate)
	authHandler := handler.NewAuthHandler(d.Verifier, cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(d.Redis)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    int(cfg.Upload.MaxBytes) + multipartOverhead,
	})

	accessLog := d.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n"
	if strings.EqualFold(cfg.Logging.Level, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid} ${queryParams} ${reqHeaders}\n"
	}

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: logFormat,
		Output: accessLog,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders: "X-Request-ID",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})
	app.Get("/health", healthHandler(d))

	app.Get("/auth/verify", authHandler.Verify)

	api := app.Group("/api", authMiddleware(d))

	pantry := api.Group("/pantry")
	pantry.Get("/", pantryHandler.List)
	pantry.Post("/", pantryHandler.Add)
	pantry.Get("/expiring", pantryHandler.Expiring)
	pantry.Post("/receipt", rateLimiter.ReceiptLimit(cfg.RateLimit.ReceiptPerHour), pantryHandler.Receipt)
	pantry.Put("/:id", pantryHandler.Update)
	pantry.Delete("/:id", pantryHandler.Delete)

	recipes := api.Group("/recipes")
	recipes.Get("/", recipeHandler.List)
	recipes.Post("/", recipeHandler.Create)
	recipes.Get("/search", recipeHandler.Search)
	recipes.Get("/suggestions", rateLimiter.PipelineLimit(cfg.RateLimit.PipelinePerHour), recipeHandler.Suggestions)
	recipes.Post("/from-url", rateLimiter.PipelineLimit(cfg.RateLimit.PipelinePerHour), recipeHandler.FromURL)
	recipes.Delete("/:id", recipeHandler.Delete)
	recipes.Post("/:id/cook", recipeHandler.Cook)
	recipes.Get("/:id/shopping-list", recipeHandler.ShoppingList)

	api.Get("/ingredients/:ingredient/substitutes", recipeHandler.Substitutes)
	api.Get("/stats", pantryHandler.Stats)

	if d.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/runs/:requestId", websocket.New(func(c *websocket.Conn) {
			d.Hub.HandleConnection(c, c.Params("requestId"))
		}))
	}

	return app
}

// authMiddleware picks gateway header mode, JWKS, HMAC, or JWKS with HMAC fallback
func authMiddleware(d Deps) fiber.Handler {
	cfg := d.Config
	if cfg.Gateway.Enabled {
		slog.Info("gateway mode enabled, using header-based auth")
		return middleware.GatewayAuthMiddleware()
	}

	var m *middleware.AuthMiddleware
	switch {
	case d.Verifier != nil && cfg.JWT.Secret != "":
		m = middleware.NewAuthMiddlewareWithFallback(d.Verifier, cfg.JWT.Secret)
	case d.Verifier != nil:
		m = middleware.NewAuthMiddleware(d.Verifier)
	default:
		m = middleware.NewLegacyAuthMiddleware(cfg.JWT.Secret)
	}
	return m.Authenticate()
}

func healthHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := "ok"
		storeOK := d.Store.Ping(ctx) == nil
		if !storeOK {
			status = "degraded"
		}

		return c.JSON(fiber.Map{
			"status": status,
			"services": fiber.Map{
				"store":    storeOK,
				"pipeline": d.Pipeline != nil && d.Pipeline.IsConfigured(),
				"r2":       d.Archive != nil,
				"auth":     d.Verifier != nil || d.Config.JWT.Secret != "" || d.Config.Gateway.Enabled,
			},
		})
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := response.CodeServiceError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		message = fe.Message
		switch status {
		case fiber.StatusRequestEntityTooLarge:
			code = response.CodePayloadTooLarge
		case fiber.StatusNotFound:
			code = response.CodeNotFound
		case fiber.StatusBadRequest:
			code = response.CodeValidationError
		}
	} else {
		slog.Error("unhandled error", "path", c.Path(), "error", err)
	}

	return response.Error(c, status, code, message, nil)
}
