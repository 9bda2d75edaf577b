package api

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/dontwait/dontwait/internal/services"
	"github.com/gofiber/fiber/v2"
)

const cookieConsentMaxAge = 365 * 24 * time.Hour

// RecordCookieConsent stores the banner decision and remembers it in two cookies,
// so the banner stays hidden on later visits.
func (handler *Handler) RecordCookieConsent(c *fiber.Ctx) error {
	input := cookieConsentInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, errorBadRequest)
	}
	decision, err := services.ParseConsentDecision(input.Decision)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, errorInvalidConsent)
	}

	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		sessionID = c.Cookies(consentSessionCookieName)
	}
	referrer := strings.TrimSpace(input.Referrer)
	if referrer == "" {
		referrer = c.Get(fiber.HeaderReferer)
	}
	path := strings.TrimSpace(input.Path)
	if path == "" {
		path = refererPath(referrer)
	}
	locale := strings.TrimSpace(input.Locale)
	if locale == "" {
		locale = currentLanguage(c)
	}

	sessionID, err = handler.consent.Record(c.UserContext(), services.ConsentChoice{
		Decision:  decision,
		SessionID: sessionID,
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Path:      path,
		Referrer:  referrer,
		Locale:    locale,
		ClientIP:  c.IP(),
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidConsentDecision) {
			return apiError(c, fiber.StatusBadRequest, errorInvalidConsent)
		}
		return apiError(c, fiber.StatusInternalServerError, errorInternal)
	}

	handler.setConsentCookie(c, cookieConsentCookieName, string(decision))
	handler.setConsentCookie(c, consentSessionCookieName, sessionID)

	switch {
	case acceptsJSON(c):
		return c.JSON(fiber.Map{"ok": true, "decision": decision, "session_id": sessionID})
	case isHTMX(c):
		return c.SendString("")
	default:
		return c.Redirect(sanitizeRedirectPath(path, "/"), fiber.StatusSeeOther)
	}
}

func (handler *Handler) setConsentCookie(c *fiber.Ctx, name string, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  time.Now().Add(cookieConsentMaxAge),
	})
}

func refererPath(referrer string) string {
	if referrer == "" {
		return ""
	}
	parsed, err := url.Parse(referrer)
	if err != nil {
		return ""
	}
	return parsed.Path
}
