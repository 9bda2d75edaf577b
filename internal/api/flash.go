package api

import (
	"strings"
	"time"

	"github.com/dontwait/dontwait/internal/forms"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const flashCookiePurpose = "flash"

// setFlashCookie carries a form error across the redirect served to clients without JavaScript.
func (handler *Handler) setFlashCookie(c *fiber.Ctx, payload FlashPayload) {
	payload = normalizeFlashPayload(payload)
	if payload.FormError == "" {
		handler.clearFlashCookie(c)
		return
	}

	sealed, err := handler.cookieCodec.sealJSON(flashCookiePurpose, payload)
	if err != nil {
		handler.logger.Warn("seal flash cookie", zap.Error(err))
		return
	}

	c.Cookie(&fiber.Cookie{
		Name:     flashCookieName,
		Value:    sealed,
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  time.Now().Add(5 * time.Minute),
	})
}

func (handler *Handler) popFlashCookie(c *fiber.Ctx) FlashPayload {
	raw := strings.TrimSpace(c.Cookies(flashCookieName))
	if raw == "" {
		return FlashPayload{}
	}
	handler.clearFlashCookie(c)

	payload := FlashPayload{}
	if err := handler.cookieCodec.openJSON(flashCookiePurpose, raw, &payload); err != nil {
		return FlashPayload{}
	}
	return normalizeFlashPayload(payload)
}

func (handler *Handler) clearFlashCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}

func normalizeFlashPayload(payload FlashPayload) FlashPayload {
	payload.FormError = strings.TrimSpace(payload.FormError)
	payload.Variant = strings.TrimSpace(payload.Variant)
	if !forms.IsVariant(payload.Variant) {
		payload.Variant = ""
	}
	return payload
}
