package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"travorier/app/models"
)

// StatusFor maps a service error to its HTTP status
func StatusFor(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Kind {
	case models.KindValidation:
		return fiber.StatusBadRequest
	case models.KindPrecondition:
		return fiber.StatusConflict
	case models.KindAuthorization:
		return fiber.StatusForbidden
	case models.KindNotFound:
		return fiber.StatusNotFound
	case models.KindResource:
		if errors.Is(err, models.ErrInsufficientCredit) {
			return fiber.StatusPaymentRequired
		}
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// respondError writes err in the standard error envelope. Untyped errors are
// reported without their internals.
func respondError(ctx *fiber.Ctx, err error) error {
	status := StatusFor(err)
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return ctx.Status(status).JSON(fiber.Map{
			"status":  "error",
			"message": "Internal server error",
		})
	}
	body := fiber.Map{
		"status":     "error",
		"message":    appErr.Message,
		"error_code": appErr.Code,
		"error_type": appErr.Kind,
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	return ctx.Status(status).JSON(body)
}

func badBody(ctx *fiber.Ctx, err error) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":  "error",
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}
