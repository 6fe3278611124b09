package controllers

import (
	"github.com/gofiber/fiber/v2"

	"travorier/app/middlewares"
	"travorier/app/models"
	"travorier/app/services"
)

// OfferController handles HTTP endpoints for trips
type OfferController struct {
	offers *services.OfferService
}

// NewOfferController creates a new offer controller instance
func NewOfferController(offers *services.OfferService) *OfferController {
	return &OfferController{offers: offers}
}

// Search lists active trips matching the query filters, boosted first
func (c *OfferController) Search(ctx *fiber.Ctx) error {
	filters, err := services.ParseOfferFilters(func(key string) string { return ctx.Query(key) })
	if err != nil {
		return respondError(ctx, err)
	}
	offers, err := c.offers.Search(ctx.UserContext(), filters)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{
		"status": "success",
		"data":   nonNil(offers),
		"count":  len(offers),
	})
}

// Mine lists the caller's own trips
func (c *OfferController) Mine(ctx *fiber.Ctx) error {
	offers, err := c.offers.ListByOwner(ctx.UserContext(), middlewares.Identity(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": nonNil(offers)})
}

// Create posts a trip
func (c *OfferController) Create(ctx *fiber.Ctx) error {
	var req models.CreateOfferRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badBody(ctx, err)
	}
	offer, err := c.offers.CreateOffer(ctx.UserContext(), middlewares.Identity(ctx), req)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": offer})
}

// Get returns one trip
func (c *OfferController) Get(ctx *fiber.Ctx) error {
	offer, err := c.offers.GetOffer(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": offer})
}

// Boost pins the caller's trip ahead of unboosted results
func (c *OfferController) Boost(ctx *fiber.Ctx) error {
	offer, err := c.offers.Boost(ctx.UserContext(), middlewares.Identity(ctx), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": offer})
}

// Cancel withdraws the caller's trip
func (c *OfferController) Cancel(ctx *fiber.Ctx) error {
	offer, err := c.offers.Cancel(ctx.UserContext(), middlewares.Identity(ctx), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": offer})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
