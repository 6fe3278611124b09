package controllers

import (
	"github.com/gofiber/fiber/v2"

	"travorier/app/middlewares"
	"travorier/app/models"
	"travorier/app/services"
)

// ChatController exposes match chat history and sending over HTTP
type ChatController struct {
	channels *services.ChannelService
}

// NewChatController creates a new chat controller instance
func NewChatController(channels *services.ChannelService) *ChatController {
	return &ChatController{channels: channels}
}

// History returns the full ordered message history
func (c *ChatController) History(ctx *fiber.Ctx) error {
	messages, err := c.channels.LoadHistory(ctx.UserContext(), middlewares.Identity(ctx), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": nonNil(messages)})
}

// Send posts a message
func (c *ChatController) Send(ctx *fiber.Ctx) error {
	var req models.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badBody(ctx, err)
	}
	msg, err := c.channels.Send(ctx.UserContext(), middlewares.Identity(ctx), ctx.Params("id"), req.Content)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "success", "data": msg})
}

// Status reports when the chat locks
func (c *ChatController) Status(ctx *fiber.Ctx) error {
	status, err := c.channels.Status(ctx.UserContext(), middlewares.Identity(ctx), ctx.Params("id"))
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success", "data": status})
}
