package controller

import (
	"locus/internal/dto"
	"locus/internal/pkg/serverutils"
	"locus/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IZoteroController interface {
	RegisterRoutes(r fiber.Router)
	Sync(ctx *fiber.Ctx) error
	Download(ctx *fiber.Ctx) error
	Attachment(ctx *fiber.Ctx) error
}

type zoteroController struct {
	zoteroService service.IZoteroService
	requireAuth   fiber.Handler
}

func NewZoteroController(zoteroService service.IZoteroService, requireAuth fiber.Handler) IZoteroController {
	return &zoteroController{
		zoteroService: zoteroService,
		requireAuth:   requireAuth,
	}
}

func (c *zoteroController) RegisterRoutes(r fiber.Router) {
	r.Post("/sync", c.requireAuth, c.Sync)
	r.Post("/dl_zotero", c.requireAuth, c.Download)
	r.Get("/attachment/:filename", c.Attachment)
}

func (c *zoteroController) Sync(ctx *fiber.Ctx) error {
	res, err := c.zoteroService.Sync(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Synced", res))
}

func (c *zoteroController) Download(ctx *fiber.Ctx) error {
	var req dto.DownloadRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.zoteroService.Download(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Downloaded", res))
}

func (c *zoteroController) Attachment(ctx *fiber.Ctx) error {
	path, err := c.zoteroService.AttachmentPath(ctx.Params("filename"))
	if err != nil {
		return err
	}
	return ctx.SendFile(path)
}
