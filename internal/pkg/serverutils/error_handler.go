package serverutils

import (
	"errors"

	"audiocodes-connector/pkg/chatbotapi"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by later handlers into JSON error bodies.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code, message := StatusFromError(err)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func StatusFromError(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return fiber.StatusBadRequest, validationMessage(validationErrs)
	}

	var remote *chatbotapi.RemoteError
	if errors.As(err, &remote) {
		return fiber.StatusBadGateway, remote.Error()
	}

	return fiber.StatusInternalServerError, err.Error()
}
