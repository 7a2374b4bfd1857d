package controller

import (
	"locus/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

// Controller mounts its routes on the router.
type Controller interface {
	RegisterRoutes(r fiber.Router)
}

func parseBody(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		return serverutils.BadRequest("Invalid request body")
	}
	return serverutils.ValidateRequest(out)
}
