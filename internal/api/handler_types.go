package api

import (
	"context"
	"html/template"
	"time"

	"github.com/dontwait/dontwait/internal/content"
	"github.com/dontwait/dontwait/internal/i18n"
	"github.com/dontwait/dontwait/internal/services"
	"github.com/dontwait/dontwait/internal/wizard"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// FormFlow is one lead form variant as seen by the handlers. services.FormService implements it.
type FormFlow interface {
	Variant() string
	Open(ctx context.Context, id string, seed wizard.Seed) (services.FormView, error)
	Get(ctx context.Context, id string) (services.FormView, error)
	Apply(ctx context.Context, id string, input services.Input) (services.FormView, error)
	Next(ctx context.Context, id string, input services.Input) (services.FormView, error)
	Back(ctx context.Context, id string, input services.Input) (services.FormView, error)
	Submit(ctx context.Context, id string, input services.Input) (services.FormView, error)
	Close(ctx context.Context, id string) error
}

type Handler struct {
	secretKey     []byte
	cookieSecure  bool
	i18n          *i18n.Manager
	content       *content.Catalog
	forms         map[string]FormFlow
	chat          *services.ChatService
	consent       *services.ConsentService
	logger        *zap.Logger
	templates     map[string]*template.Template
	partials      map[string]*template.Template
	cookieCodec   *secureCookieCodec
	submitLimiter *submitLimiter
	sessionTTL    time.Duration
}

type FlashPayload struct {
	Variant   string `json:"variant,omitempty"`
	FormError string `json:"form_error,omitempty"`
}

const (
	defaultSubmitLimit  = 5
	defaultSubmitWindow = 10 * time.Minute
	defaultSessionTTL   = 24 * time.Hour
)

type visitorClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type cookieConsentInput struct {
	Decision  string `json:"decision" form:"decision"`
	SessionID string `json:"session_id" form:"session_id"`
	Path      string `json:"path" form:"path"`
	Referrer  string `json:"referrer" form:"referrer"`
	Locale    string `json:"locale" form:"locale"`
}

type formInputPayload struct {
	Fields  map[string]string `json:"fields"`
	Consent *bool             `json:"consent"`
	Plan    string            `json:"plan"`
}
