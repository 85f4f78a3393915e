package serverutils

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// ChannelAuthMiddleware only lets through requests whose Authorization header is
// exactly "<authType> <token>". An empty token rejects everything.
func ChannelAuthMiddleware(authType, token string) fiber.Handler {
	expected := []byte(authType + " " + token)
	return func(ctx *fiber.Ctx) error {
		got := []byte(ctx.Get(fiber.HeaderAuthorization))
		if token == "" || subtle.ConstantTimeCompare(got, expected) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid request!")
		}
		return ctx.Next()
	}
}
