package controller

import (
	"locus/internal/dto"
	"locus/internal/pkg/serverutils"
	"locus/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IContentController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	SaveQuill(ctx *fiber.Ctx) error
}

type contentController struct {
	contentService service.IContentService
	requireAuth    fiber.Handler
}

func NewContentController(contentService service.IContentService, requireAuth fiber.Handler) IContentController {
	return &contentController{
		contentService: contentService,
		requireAuth:    requireAuth,
	}
}

func (c *contentController) RegisterRoutes(r fiber.Router) {
	r.Get("/content", c.List)
	r.Get("/content/:id", c.Show)
	r.Post("/save_quill", c.requireAuth, c.SaveQuill)
}

func (c *contentController) List(ctx *fiber.Ctx) error {
	res, err := c.contentService.List(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get content", res))
}

func (c *contentController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.BadRequest("Invalid content ID")
	}

	res, err := c.contentService.Show(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show content", res))
}

// SaveQuill answers 200 even when the save is refused; the reason is in
// the error field of the result.
func (c *contentController) SaveQuill(ctx *fiber.Ctx) error {
	var req dto.SaveQuillRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.contentService.SaveQuill(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(res.Message, res))
}
