package api

import (
	"github.com/dontwait/dontwait/internal/forms"
	"github.com/gofiber/fiber/v2"
)

func (handler *Handler) SetLanguage(c *fiber.Ctx) error {
	language := handler.i18n.NormalizeLanguage(c.Params("lang"))
	handler.setLanguageCookie(c, language)

	nextPath := sanitizeRedirectPath(c.Query("next"), "/")
	if isHTMX(c) {
		c.Set("HX-Redirect", nextPath)
		return c.SendStatus(fiber.StatusOK)
	}
	return c.Redirect(nextPath, fiber.StatusSeeOther)
}

// ShowLanding renders the marketing page. ?form=<variant> reopens the visitor's dialog and
// ?chat=1 the chat widget, which is how clients without JavaScript see the result of an action.
func (handler *Handler) ShowLanding(c *fiber.Ctx) error {
	messages := currentMessages(c)
	data := fiber.Map{
		"Title":    localizedPageTitle(messages, "meta.title.landing", "DontWait"),
		"Variants": forms.Variants(),
	}

	flash := handler.popFlashCookie(c)
	if flash.FormError != "" && flash.Variant == "" {
		data["FlashError"] = localizedErrorMessage(messages, flash.FormError)
	}

	if flow, ok := handler.formFlow(c.Query("form")); ok {
		if id, err := handler.visitorSessionID(c, false); err == nil {
			if view, err := flow.Get(c.UserContext(), id); err == nil {
				errorCode := ""
				if flash.Variant == view.Variant {
					errorCode = flash.FormError
				}
				data["OpenForm"] = buildFormViewData(messages, csrfToken(c), view, errorCode)
			}
		}
	}
	if _, ok := data["OpenForm"]; !ok && flash.Variant != "" {
		data["FlashError"] = localizedErrorMessage(messages, flash.FormError)
	}

	if c.Query("chat") != "" {
		if id, err := handler.visitorSessionID(c, false); err == nil {
			data["Chat"] = buildChatViewData(messages, csrfToken(c), handler.chat.Status(id))
		}
	}

	return handler.render(c, "landing", data)
}

func (handler *Handler) ShowPrivacyPage(c *fiber.Ctx) error {
	messages := currentMessages(c)
	return handler.render(c, "privacy", fiber.Map{
		"Title":    localizedPageTitle(messages, "meta.title.privacy", "DontWait | Privacy Policy"),
		"BackPath": sanitizeRedirectPath(c.Query("back"), "/"),
	})
}
