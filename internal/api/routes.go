package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	registerPageRoutes(app, handler)
	registerFormRoutes(app, handler)
	registerAPIRoutes(app, handler)
}

func registerPageRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/favicon.ico", sendNoContent)
	app.Get("/lang/:lang", handler.SetLanguage)

	app.Get("/", handler.ShowLanding)
	app.Get("/privacy-policy", handler.ShowPrivacyPage)
}

func registerFormRoutes(app *fiber.App, handler *Handler) {
	forms := app.Group("/forms/:variant")
	forms.Get("", handler.ShowForm)
	forms.Post("/open", handler.OpenForm)
	forms.Post("/fields", handler.UpdateFormFields)
	forms.Post("/next", handler.NextFormStep)
	forms.Post("/back", handler.PreviousFormStep)
	forms.Post("/submit", handler.SubmitForm)
	forms.Post("/close", handler.CloseForm)

	chat := app.Group("/chat")
	chat.Post("/open", handler.OpenChat)
	chat.Get("/status", handler.ChatStatus)
	chat.Post("/close", handler.CloseChat)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api")
	api.Post("/cookie-consent", handler.RecordCookieConsent)
}

func sendNoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
