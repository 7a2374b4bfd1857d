package controller

import (
	"locus/internal/dto"
	"locus/internal/pkg/serverutils"
	"locus/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHighlightController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
}

type highlightController struct {
	highlightService service.IHighlightService
	requireAuth      fiber.Handler
}

func NewHighlightController(highlightService service.IHighlightService, requireAuth fiber.Handler) IHighlightController {
	return &highlightController{
		highlightService: highlightService,
		requireAuth:      requireAuth,
	}
}

func (c *highlightController) RegisterRoutes(r fiber.Router) {
	r.Get("/highlights", c.List)
	r.Post("/create_highlight", c.requireAuth, c.Create)
}

func (c *highlightController) List(ctx *fiber.Ctx) error {
	res, err := c.highlightService.List(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get highlights", res))
}

func (c *highlightController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateHighlightRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.highlightService.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success create highlight", res))
}
