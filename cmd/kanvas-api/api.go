// Package main provides the Kanvas API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/kanvas-io/kanvas/pkg/catalog"
	"github.com/kanvas-io/kanvas/pkg/codec"
	"github.com/kanvas-io/kanvas/pkg/config"
	"github.com/kanvas-io/kanvas/pkg/eventbus"
	"github.com/kanvas-io/kanvas/pkg/execution"
	"github.com/kanvas-io/kanvas/pkg/persistence"
	"github.com/kanvas-io/kanvas/pkg/services"
	"github.com/kanvas-io/kanvas/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	catalog     *catalog.Catalog
	eventBus    eventbus.EventBus
	config      config.Config
	validate    *validator.Validate

	builder          *services.Builder
	executionService *services.Execution
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	cat *catalog.Catalog,
	eventBus eventbus.EventBus,
	cfg config.Config,
) *API {
	return &API{
		logger:      logger,
		persistence: p,
		catalog:     cat,
		eventBus:    eventBus,
		config:      cfg,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	cdc := codec.New(a.logger)
	flowService := services.NewFlow(a.persistence)

	a.builder = services.NewBuilder(a.logger, flowService, a.catalog, cdc, a.config.Autosave.Interval)
	a.executionService = services.NewExecution(a.logger, a.eventBus, cdc, execution.Options{
		Timeout:        a.config.Execution.Timeout,
		OutputNodeType: catalog.NodeTypeChatOutput,
	})

	handlers := web.NewAPIHandlers(
		flowService,
		a.builder,
		a.executionService,
		a.catalog,
		a.eventBus,
		a.validate,
		a.logger,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Kanvas API")
	})

	app.Get("/specs", handlers.GetSpecs)

	f := app.Group("/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Patch("/:id", handlers.UpdateFlow)
	f.Delete("/:id", handlers.DeleteFlow)

	// Builder session endpoints:
	f.Post("/:id/session", handlers.OpenSession)
	f.Delete("/:id/session", handlers.CloseSession)
	f.Get("/:id/session/graph", handlers.GetSessionGraph)
	f.Post("/:id/session/save", handlers.SaveSession)
	f.Post("/:id/session/nodes", handlers.AddNode)
	f.Patch("/:id/session/nodes/:nodeId/fields", handlers.UpdateNodeField)
	f.Patch("/:id/session/nodes/:nodeId/mode", handlers.UpdateNodeMode)
	f.Post("/:id/session/edges", handlers.Connect)
	f.Post("/:id/session/edges/validate", handlers.ValidateConnection)
	f.Delete("/:id/session/edges/:edgeId", handlers.DeleteEdge)
	f.Post("/:id/session/selection/remove", handlers.RemoveSelection)
	f.Post("/:id/session/execute", handlers.SubmitExecution)

	app.Get("/executions/:taskId/stream", handlers.StreamExecution)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}

// Shutdown saves every open builder session and closes live runs.
func (a *API) Shutdown(ctx context.Context) {
	if a.executionService != nil {
		a.executionService.CloseAll()
	}

	if a.builder != nil {
		a.builder.CloseAll(ctx)
	}
}
