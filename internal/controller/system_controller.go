package controller

import (
	"locus/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

type systemController struct {
	metrics *metrics.Metrics
}

// NewSystemController serves the greeting and the metrics endpoint.
func NewSystemController(m *metrics.Metrics) Controller {
	return &systemController{metrics: m}
}

func (c *systemController) RegisterRoutes(r fiber.Router) {
	r.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.SendString("Hello, Locus!")
	})
	if c.metrics != nil {
		r.Get("/metrics", adaptor.HTTPHandler(c.metrics.Handler()))
	}
}
