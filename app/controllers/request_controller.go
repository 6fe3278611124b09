package controllers

import (
	"github.com/gofiber/fiber/v2"

	"travorier/app/middlewares"
	"travorier/app/models"
	"travorier/app/services"
)

// RequestController handles HTTP endpoints for package requests
type RequestController struct {
	requests *services.RequestService
	matches  *services.MatchService
}

// NewRequestController creates a new request controller instance
func NewRequestController(requests *services.RequestService, matches *services.MatchService) *RequestController {
	return &RequestController{requests: requests, matches: matches}
}

// List returns the caller's requests, or every open request with ?status=open
func (c *RequestController) List(ctx *fiber.Ctx) error {
	var (
		requests []models.Request
		err      error
	)
	if ctx.Query("status") == models.RequestStatusOpen {
		requests, err = c.requests.ListOpen(ctx.UserContext())
	} else {
		requests, err = c.requests.ListByOwner(ctx.UserContext(), middlewares.Identity(ctx))
	}
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": nonNil(requests)})
}

// Create posts a package request
func (c *RequestController) Create(ctx *fiber.Ctx) error {
	var req models.CreateRequestRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badBody(ctx, err)
	}
	request, err := c.requests.CreateRequest(ctx.UserContext(), middlewares.Identity(ctx), req)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": request})
}

// Get returns one request
func (c *RequestController) Get(ctx *fiber.Ctx) error {
	request, err := c.requests.GetRequest(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": request})
}

// Matches lists the proposals made for the caller's request
func (c *RequestController) Matches(ctx *fiber.Ctx) error {
	matches, err := c.matches.ListForRequest(ctx.UserContext(), middlewares.Identity(ctx), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": nonNil(matches)})
}
