package controller

import (
	"encoding/json"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/internal/pkg/serverutils"
	"audiocodes-connector/internal/service"
	"audiocodes-connector/pkg/audiocodes"

	"github.com/gofiber/fiber/v2"
)

type IAudiocodesController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	CreateConversation(ctx *fiber.Ctx) error
	Activities(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
	Disconnect(ctx *fiber.Ctx) error
}

type audiocodesController struct {
	service service.IConnectorService
}

func NewAudiocodesController(service service.IConnectorService) IAudiocodesController {
	return &audiocodesController{service: service}
}

func (c *audiocodesController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Get("/CreateConversation", auth, c.CreateConversation)
	r.Post("/CreateConversation", auth, c.CreateConversation)

	h := r.Group("/conversation/:id", auth)
	h.Post("/activities", c.Activities)
	h.Post("/refresh", c.Refresh)
	h.Post("/disconnect", c.Disconnect)
}

func (c *audiocodesController) CreateConversation(ctx *fiber.Ctx) error {
	var req dto.CreateConversationRequest
	if len(ctx.Body()) > 0 {
		if err := json.Unmarshal(ctx.Body(), &req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request!")
		}
	}
	if req.Conversation == "" {
		if err := ctx.QueryParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request!")
		}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateConversation(ctx.UserContext(), req.Conversation)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *audiocodesController) Activities(ctx *fiber.Ctx) error {
	req := &dto.InboundRequest{
		ExternalID: externalID(ctx),
		Body:       append(json.RawMessage(nil), ctx.Body()...),
	}

	res, err := c.service.HandleActivities(ctx.UserContext(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *audiocodesController) Refresh(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.Refresh(ctx.UserContext()))
}

func (c *audiocodesController) Disconnect(ctx *fiber.Ctx) error {
	var req dto.DisconnectRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request!")
	}

	if err := c.service.Disconnect(ctx.UserContext(), externalID(ctx), &req); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{})
}

// externalID takes the conversation id from the body, then the query string, then the path.
func externalID(ctx *fiber.Ctx) string {
	var body struct {
		Conversation string `json:"conversation"`
	}
	if len(ctx.Body()) > 0 && json.Unmarshal(ctx.Body(), &body) == nil && body.Conversation != "" {
		return audiocodes.ExternalID(body.Conversation)
	}
	if q := ctx.Query("conversation"); q != "" {
		return audiocodes.ExternalID(q)
	}
	return audiocodes.ExternalID(ctx.Params("id"))
}
