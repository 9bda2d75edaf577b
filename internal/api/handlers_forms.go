package api

import (
	"context"
	"errors"
	"time"

	"github.com/dontwait/dontwait/internal/services"
	"github.com/dontwait/dontwait/internal/wizard"
	"github.com/gofiber/fiber/v2"
)

// formPlaceholder replaces a closed dialog so later opens have a swap target.
const formPlaceholder = `<div id="lead-form"></div>`

type formAction func(flow FormFlow, ctx context.Context, id string, input services.Input) (services.FormView, error)

func (handler *Handler) OpenForm(c *fiber.Ctx) error {
	flow, ok := handler.formFlow(c.Params("variant"))
	if !ok {
		return apiError(c, fiber.StatusNotFound, errorUnknownForm)
	}
	_, plan, err := parseFormInput(c)
	if err != nil {
		return handler.respondFormError(c, flow.Variant(), services.FormView{}, err)
	}

	id, err := handler.visitorSessionID(c, true)
	if err != nil {
		return handler.respondFormError(c, flow.Variant(), services.FormView{}, err)
	}
	view, err := flow.Open(c.UserContext(), id, wizard.Seed{Package: plan})
	if err != nil {
		return handler.respondFormError(c, flow.Variant(), view, err)
	}
	return handler.respondForm(c, fiber.StatusOK, view, "")
}

func (handler *Handler) ShowForm(c *fiber.Ctx) error {
	flow, ok := handler.formFlow(c.Params("variant"))
	if !ok {
		return apiError(c, fiber.StatusNotFound, errorUnknownForm)
	}
	id, err := handler.visitorSessionID(c, false)
	if err != nil {
		return handler.respondFormError(c, flow.Variant(), services.FormView{}, err)
	}
	view, err := flow.Get(c.UserContext(), id)
	if err != nil {
		return handler.respondFormError(c, flow.Variant(), view, err)
	}
	return handler.respondForm(c, fiber.StatusOK, view, "")
}

func (handler *Handler) UpdateFormFields(c *fiber.Ctx) error {
	return handler.runFormAction(c, FormFlow.Apply)
}

func (handler *Handler) NextFormStep(c *fiber.Ctx) error {
	return handler.runFormAction(c, FormFlow.Next)
}

func (handler *Handler) PreviousFormStep(c *fiber.Ctx) error {
	return handler.runFormAction(c, FormFlow.Back)
}

// SubmitForm performs the single store write. A rate-limit slot is reserved before the write and
// handed back when the submission never reaches the store.
func (handler *Handler) SubmitForm(c *fiber.Ctx) error {
	release, ok := handler.submitLimiter.reserve(requestLimiterKey(c), time.Now())
	if !ok {
		return handler.respondWithoutForm(c, fiber.StatusTooManyRequests, errorRateLimited)
	}

	stored := false
	defer func() {
		if !stored {
			release()
		}
	}()

	return handler.runFormAction(c, func(flow FormFlow, ctx context.Context, id string, input services.Input) (services.FormView, error) {
		view, err := flow.Submit(ctx, id, input)
		stored = reachedStore(err)
		return view, err
	})
}

// reachedStore reports whether a submit result came from an actual store write.
func reachedStore(err error) bool {
	var transportErr *services.TransportError
	return err == nil || errors.As(err, &transportErr)
}

func (handler *Handler) CloseForm(c *fiber.Ctx) error {
	flow, ok := handler.formFlow(c.Params("variant"))
	if !ok {
		return apiError(c, fiber.StatusNotFound, errorUnknownForm)
	}
	if id, err := handler.visitorSessionID(c, false); err == nil {
		if err := flow.Close(c.UserContext(), id); err != nil {
			return handler.respondFormError(c, flow.Variant(), services.FormView{}, err)
		}
	}

	if isHTMX(c) {
		c.Type("html", "utf-8")
		return c.SendString(formPlaceholder)
	}
	return redirectOrJSON(c, "/")
}

func (handler *Handler) runFormAction(c *fiber.Ctx, action formAction) error {
	flow, ok := handler.formFlow(c.Params("variant"))
	if !ok {
		return apiError(c, fiber.StatusNotFound, errorUnknownForm)
	}
	input, _, err := parseFormInput(c)
	if err != nil {
		return handler.respondFormError(c, flow.Variant(), services.FormView{}, err)
	}
	id, err := handler.visitorSessionID(c, false)
	if err != nil {
		return handler.respondFormError(c, flow.Variant(), services.FormView{}, err)
	}

	view, err := action(flow, c.UserContext(), id, input)
	if err != nil {
		return handler.respondFormError(c, flow.Variant(), view, err)
	}
	return handler.respondForm(c, fiber.StatusOK, view, "")
}
