package api

import (
	"errors"
	"strings"

	"github.com/dontwait/dontwait/internal/services"
	"github.com/gofiber/fiber/v2"
)

var errBadFormInput = errors.New("malformed form input")

// Keys posted alongside the form fields that are not fields themselves.
var reservedFormKeys = map[string]bool{
	"csrf_token":      true,
	"consent":         true,
	"consent_present": true,
	"plan":            true,
}

// parseFormInput reads field edits from a JSON body ({"fields": {...}, "consent": true}) or an
// urlencoded form. An HTML checkbox is absent when unchecked, so the form carries consent_present
// to tell "unchecked" apart from "not on this step".
func parseFormInput(c *fiber.Ctx) (services.Input, string, error) {
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
		payload := formInputPayload{}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&payload); err != nil {
				return services.Input{}, "", errBadFormInput
			}
		}
		return services.Input{Fields: payload.Fields, Consent: payload.Consent}, strings.TrimSpace(payload.Plan), nil
	}

	args := c.Request().PostArgs()
	input := services.Input{Fields: map[string]string{}}
	args.VisitAll(func(key []byte, value []byte) {
		name := string(key)
		if reservedFormKeys[name] {
			return
		}
		input.Fields[name] = string(value)
	})
	if len(args.Peek("consent_present")) > 0 {
		accepted := isChecked(string(args.Peek("consent")))
		input.Consent = &accepted
	}

	plan := string(args.Peek("plan"))
	if plan == "" {
		plan = c.Query("plan")
	}
	return input, strings.TrimSpace(plan), nil
}

func isChecked(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}
