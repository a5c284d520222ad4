package web

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/storeflow/storeflow/pkg/engine"
)

// API assembles the fiber application around the workflow repository and the
// dispatcher.
type API struct {
	repo       *engine.Repository
	dispatcher *engine.Dispatcher
	validate   *validator.Validate
}

func NewAPI(repo *engine.Repository, dispatcher *engine.Dispatcher) *API {
	return &API{
		repo:       repo,
		dispatcher: dispatcher,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := NewHandlers(a.repo, a.dispatcher, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Storeflow API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/run", handlers.RunWorkflow)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
