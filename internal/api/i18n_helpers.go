package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	errorValidationFailed   = "validation_failed"
	errorStoreUnavailable   = "store_unavailable"
	errorSubmissionInFlight = "submission_in_flight"
	errorAlreadySubmitted   = "already_submitted"
	errorRateLimited        = "rate_limited"
	errorFormNotOpen        = "form_not_open"
	errorFormClosed         = "form_closed"
	errorNavigation         = "navigation_not_allowed"
	errorUnknownForm        = "unknown_form"
	errorBadRequest         = "bad_request"
	errorInvalidConsent     = "invalid_consent_decision"
	errorInternal           = "internal_error"
	errorNotFound           = "not_found"
)

var errorMessageKeys = map[string]string{
	errorValidationFailed:   "form.error.invalid",
	errorStoreUnavailable:   "form.error.generic",
	errorSubmissionInFlight: "form.error.in_flight",
	errorAlreadySubmitted:   "form.error.navigation",
	errorRateLimited:        "form.error.rate_limited",
	errorFormNotOpen:        "form.error.not_open",
	errorFormClosed:         "form.error.not_open",
	errorNavigation:         "form.error.navigation",
	errorUnknownForm:        "form.error.bad_request",
	errorBadRequest:         "form.error.bad_request",
	errorInvalidConsent:     "cookie.error.invalid",
	errorInternal:           "form.error.generic",
	errorNotFound:           "not_found.title",
}

func translateMessage(messages map[string]string, key string) string {
	if key == "" {
		return ""
	}
	if messages != nil {
		if value, ok := messages[key]; ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	return key
}

func errorTranslationKey(code string) string {
	key, ok := errorMessageKeys[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return "form.error.generic"
	}
	return key
}

// localizedErrorMessage never echoes internal detail: unknown codes get the generic message.
func localizedErrorMessage(messages map[string]string, code string) string {
	key := errorTranslationKey(code)
	message := translateMessage(messages, key)
	if message == key {
		return "Something went wrong. Please try again shortly."
	}
	return message
}

func currentLanguage(c *fiber.Ctx) string {
	language, ok := c.Locals(contextLanguageKey).(string)
	if !ok || strings.TrimSpace(language) == "" {
		return ""
	}
	return language
}

func currentMessages(c *fiber.Ctx) map[string]string {
	messages, ok := c.Locals(contextMessagesKey).(map[string]string)
	if !ok || messages == nil {
		return map[string]string{}
	}
	return messages
}

func (handler *Handler) withTemplateDefaults(c *fiber.Ctx, data fiber.Map) fiber.Map {
	if data == nil {
		data = fiber.Map{}
	}

	if _, ok := data["Messages"]; !ok {
		data["Messages"] = currentMessages(c)
	}

	language := currentLanguage(c)
	if language == "" {
		language = handler.i18n.DefaultLanguage()
	}
	if _, ok := data["Lang"]; !ok {
		data["Lang"] = language
	}
	if _, ok := data["Languages"]; !ok {
		data["Languages"] = handler.i18n.SupportedLanguages()
	}
	if _, ok := data["Site"]; !ok {
		data["Site"] = handler.content.Site(language)
	}

	if _, ok := data["CurrentPath"]; !ok {
		data["CurrentPath"] = currentPathWithQuery(c)
	}

	if _, ok := data["CSRFToken"]; !ok {
		data["CSRFToken"] = csrfToken(c)
	}

	if _, ok := data["ShowCookieBanner"]; !ok {
		data["ShowCookieBanner"] = c.Cookies(cookieConsentCookieName) == ""
	}

	return data
}

func currentPathWithQuery(c *fiber.Ctx) string {
	path := string(c.Request().URI().RequestURI())
	if path == "" {
		return c.Path()
	}
	return path
}
