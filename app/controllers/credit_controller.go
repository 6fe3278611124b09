package controllers

import (
	"github.com/gofiber/fiber/v2"

	"travorier/app/middlewares"
	"travorier/app/services"
)

// CreditController reports the caller's unlock credits
type CreditController struct {
	unlocks *services.UnlockService
}

// NewCreditController creates a new credit controller instance
func NewCreditController(unlocks *services.UnlockService) *CreditController {
	return &CreditController{unlocks: unlocks}
}

// Balance returns the caller's balance and the price of one unlock
func (c *CreditController) Balance(ctx *fiber.Ctx) error {
	balance, err := c.unlocks.Balance(ctx.UserContext(), middlewares.Identity(ctx))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"balance":      balance,
			"unlock_price": c.unlocks.Price(),
		},
	})
}

// GrantCreditsRequest is sent by the payment provider integration
type GrantCreditsRequest struct {
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

// Grant credits a purchase; replays with the same reference are ignored
func (c *CreditController) Grant(ctx *fiber.Ctx) error {
	var req GrantCreditsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badBody(ctx, err)
	}
	balance, err := c.unlocks.GrantCredits(ctx.UserContext(), req.UserID, req.Amount, req.Reference)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"user_id": req.UserID, "balance": balance},
	})
}
