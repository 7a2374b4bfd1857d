// FILE: internal/controller/auth_controller.go
package controller

import (
	"locus/internal/dto"
	"locus/internal/pkg/serverutils"
	"locus/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Register(ctx *fiber.Ctx) error
	Login(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type authController struct {
	service     service.IAuthService
	requireAuth fiber.Handler
}

func NewAuthController(service service.IAuthService, requireAuth fiber.Handler) IAuthController {
	return &authController{service: service, requireAuth: requireAuth}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	r.Post("/register", c.Register)
	r.Post("/login", c.Login)
	r.Post("/logout", c.requireAuth, c.Logout)
}

func (c *authController) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Register(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	out := serverutils.SuccessResponse(res.Message, res)
	out.Code = fiber.StatusCreated
	return ctx.Status(fiber.StatusCreated).JSON(out)
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Login(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(res.Message, res))
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	claims, _ := serverutils.TokenClaims(ctx)
	if err := c.service.Logout(ctx.UserContext(), claims); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Logged out successfully", nil))
}
