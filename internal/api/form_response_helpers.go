package api

import (
	"errors"

	"github.com/dontwait/dontwait/internal/services"
	"github.com/dontwait/dontwait/internal/wizard"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type formResponse struct {
	Form    *services.FormView  `json:"form,omitempty"`
	Error   string              `json:"error,omitempty"`
	Message string              `json:"message,omitempty"`
	Fields  []wizard.FieldError `json:"fields,omitempty"`
}

// respondForm answers a form action in the representation the client asked for.
func (handler *Handler) respondForm(c *fiber.Ctx, status int, view services.FormView, errorCode string) error {
	messages := currentMessages(c)
	switch {
	case acceptsJSON(c):
		response := formResponse{Form: &view, Error: errorCode}
		if errorCode != "" {
			response.Message = localizedErrorMessage(messages, errorCode)
			response.Fields = view.Errors
		}
		return c.Status(status).JSON(response)
	case isHTMX(c):
		return handler.renderPartial(c, status, "form_partial", buildFormViewData(messages, csrfToken(c), view, errorCode))
	default:
		if errorCode != "" && errorCode != errorValidationFailed {
			handler.setFlashCookie(c, FlashPayload{Variant: view.Variant, FormError: errorCode})
		}
		return c.Redirect(formDialogPath(view.Variant), fiber.StatusSeeOther)
	}
}

// respondWithoutForm is used when there is no form state to show, e.g. the dialog was never opened.
// An HTMX client keeps its dialog and gets the message in the page status region instead.
func (handler *Handler) respondWithoutForm(c *fiber.Ctx, status int, errorCode string) error {
	if isHTMX(c) && !acceptsJSON(c) {
		c.Set("HX-Retarget", "#page-status")
		c.Set("HX-Reswap", "innerHTML")
	}
	if acceptsJSON(c) || isHTMX(c) {
		return apiError(c, status, errorCode)
	}
	handler.setFlashCookie(c, FlashPayload{FormError: errorCode})
	return c.Redirect("/", fiber.StatusSeeOther)
}

// respondFormError maps service and wizard errors to status codes. Users only ever see fixed messages.
func (handler *Handler) respondFormError(c *fiber.Ctx, variant string, view services.FormView, err error) error {
	var validationErr *wizard.ValidationError
	var transportErr *services.TransportError

	status, code := fiber.StatusInternalServerError, errorInternal
	switch {
	case errors.As(err, &validationErr):
		status, code = fiber.StatusUnprocessableEntity, errorValidationFailed
	case errors.As(err, &transportErr):
		status, code = fiber.StatusBadGateway, errorStoreUnavailable
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		status, code = fiber.StatusConflict, errorSubmissionInFlight
	case errors.Is(err, wizard.ErrAlreadySubmitted):
		status, code = fiber.StatusConflict, errorAlreadySubmitted
	case errors.Is(err, wizard.ErrAtFirstStep), errors.Is(err, wizard.ErrAtLastStep), errors.Is(err, wizard.ErrNotFinalStep):
		status, code = fiber.StatusConflict, errorNavigation
	case errors.Is(err, wizard.ErrUnknownField), errors.Is(err, errBadFormInput):
		status, code = fiber.StatusBadRequest, errorBadRequest
	case errors.Is(err, services.ErrFormNotOpen), errors.Is(err, errNoVisitorSession):
		status, code = fiber.StatusNotFound, errorFormNotOpen
	case errors.Is(err, services.ErrFormClosed):
		status, code = fiber.StatusConflict, errorFormClosed
	default:
		handler.logger.Error("form action failed", zap.String("form", variant), zap.String("path", c.Path()), zap.Error(err))
	}

	if view.Variant == "" {
		return handler.respondWithoutForm(c, status, code)
	}
	return handler.respondForm(c, status, view, code)
}
