package api

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (handler *Handler) render(c *fiber.Ctx, name string, data fiber.Map) error {
	tmpl, ok := handler.templates[name]
	if !ok {
		return c.Status(fiber.StatusInternalServerError).SendString("template not found")
	}
	payload := handler.withTemplateDefaults(c, data)
	var output bytes.Buffer
	if err := tmpl.ExecuteTemplate(&output, "base", payload); err != nil {
		handler.logger.Error("render page", zap.String("template", name), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("failed to render template")
	}
	c.Type("html", "utf-8")
	return c.Send(output.Bytes())
}

// renderPartial executes a fragment with data as its dot, so the same fragment renders inside a page.
func (handler *Handler) renderPartial(c *fiber.Ctx, status int, name string, data any) error {
	tmpl, ok := handler.partials[name]
	if !ok {
		return c.Status(fiber.StatusInternalServerError).SendString("partial not found")
	}
	var output bytes.Buffer
	if err := tmpl.ExecuteTemplate(&output, name, data); err != nil {
		handler.logger.Error("render partial", zap.String("template", name), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("failed to render partial")
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(output.Bytes())
}
