package controllers

import (
	"github.com/gofiber/fiber/v2"

	"travorier/app/middlewares"
	"travorier/app/models"
	"travorier/app/services"
)

// MatchController handles HTTP endpoints for matches and contact unlock
type MatchController struct {
	matches *services.MatchService
	unlocks *services.UnlockService
}

// NewMatchController creates a new match controller instance
func NewMatchController(matches *services.MatchService, unlocks *services.UnlockService) *MatchController {
	return &MatchController{matches: matches, unlocks: unlocks}
}

// List returns every match the caller takes part in
func (c *MatchController) List(ctx *fiber.Ctx) error {
	matches, err := c.matches.ListMatches(ctx.UserContext(), middlewares.Identity(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": nonNil(matches)})
}

// Create proposes the caller's request on a trip
func (c *MatchController) Create(ctx *fiber.Ctx) error {
	var req models.CreateMatchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badBody(ctx, err)
	}
	match, err := c.matches.CreateMatch(ctx.UserContext(), middlewares.Identity(ctx), req.RequestID, req.OfferID, req.WeightKg)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": match})
}

// Get returns one match to a participant
func (c *MatchController) Get(ctx *fiber.Ctx) error {
	match, err := c.matches.GetMatch(ctx.UserContext(), middlewares.Identity(ctx), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": match})
}

// Unlock spends credit to reveal contact details; repeating it is free
func (c *MatchController) Unlock(ctx *fiber.Ctx) error {
	match, err := c.unlocks.Unlock(ctx.UserContext(), middlewares.Identity(ctx), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": match})
}

// Accept is called by the traveler once contact is unlocked
func (c *MatchController) Accept(ctx *fiber.Ctx) error {
	match, err := c.matches.AcceptMatch(ctx.UserContext(), middlewares.Identity(ctx), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": match})
}

// Reject ends a pending match
func (c *MatchController) Reject(ctx *fiber.Ctx) error {
	match, err := c.matches.RejectMatch(ctx.UserContext(), middlewares.Identity(ctx), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": match})
}
