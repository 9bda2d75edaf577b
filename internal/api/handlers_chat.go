package api

import (
	"errors"

	"github.com/dontwait/dontwait/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	chatPollInterval = "2s"
	chatWidgetPath   = "/?chat=1#chat-widget"
)

type chatViewData struct {
	Phase           string
	Searching       bool
	NoAgent         bool
	FallbackVariant string
	PollInterval    string
	CSRFToken       string
	Messages        map[string]string
}

func buildChatViewData(messages map[string]string, csrf string, status services.ChatStatus) chatViewData {
	return chatViewData{
		Phase:           string(status.Phase),
		Searching:       status.Phase == services.ChatSearching,
		NoAgent:         status.FallbackAvailable(),
		FallbackVariant: status.FallbackVariant,
		PollInterval:    chatPollInterval,
		CSRFToken:       csrf,
		Messages:        messages,
	}
}

// OpenChat starts the agent search for the visitor. Opening again restarts it.
func (handler *Handler) OpenChat(c *fiber.Ctx) error {
	id, err := handler.visitorSessionID(c, true)
	if err != nil {
		handler.logger.Error("chat session unavailable", zap.Error(err))
		return apiError(c, fiber.StatusInternalServerError, errorInternal)
	}
	status, err := handler.chat.Open(id)
	if err != nil {
		if errors.Is(err, services.ErrChatStopped) {
			return apiError(c, fiber.StatusServiceUnavailable, errorInternal)
		}
		return apiError(c, fiber.StatusInternalServerError, errorInternal)
	}
	return handler.respondChat(c, status)
}

func (handler *Handler) ChatStatus(c *fiber.Ctx) error {
	status := services.ChatStatus{Phase: services.ChatIdle}
	if id, err := handler.visitorSessionID(c, false); err == nil {
		status = handler.chat.Status(id)
	}
	return handler.respondChat(c, status)
}

func (handler *Handler) CloseChat(c *fiber.Ctx) error {
	if id, err := handler.visitorSessionID(c, false); err == nil {
		handler.chat.Close(id)
	}
	if isHTMX(c) {
		return handler.renderPartial(c, fiber.StatusOK, "chat_partial", buildChatViewData(currentMessages(c), csrfToken(c), services.ChatStatus{Phase: services.ChatIdle}))
	}
	return redirectOrJSON(c, "/")
}

func (handler *Handler) respondChat(c *fiber.Ctx, status services.ChatStatus) error {
	switch {
	case acceptsJSON(c):
		return c.JSON(status)
	case isHTMX(c):
		return handler.renderPartial(c, fiber.StatusOK, "chat_partial", buildChatViewData(currentMessages(c), csrfToken(c), status))
	default:
		return c.Redirect(chatWidgetPath, fiber.StatusSeeOther)
	}
}
