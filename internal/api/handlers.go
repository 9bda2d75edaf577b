package api

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/dontwait/dontwait/internal/content"
	"github.com/dontwait/dontwait/internal/i18n"
	"github.com/dontwait/dontwait/internal/services"
	"github.com/dontwait/dontwait/internal/templates"
	"go.uber.org/zap"
)

type Dependencies struct {
	SecretKey    string
	CookieSecure bool
	I18n         *i18n.Manager
	Content      *content.Catalog
	Forms        []FormFlow
	Chat         *services.ChatService
	Consent      *services.ConsentService
	Logger       *zap.Logger
	// Templates defaults to the embedded templates.
	Templates    fs.FS
	SubmitLimit  int
	SubmitWindow time.Duration
	SessionTTL   time.Duration
}

func NewHandler(deps Dependencies) (*Handler, error) {
	if deps.I18n == nil {
		return nil, errors.New("i18n manager is required")
	}
	if deps.Content == nil {
		return nil, errors.New("site content is required")
	}
	if deps.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if deps.Consent == nil {
		return nil, errors.New("consent service is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Templates == nil {
		deps.Templates = templates.FS
	}
	if deps.SubmitLimit <= 0 {
		deps.SubmitLimit = defaultSubmitLimit
	}
	if deps.SubmitWindow <= 0 {
		deps.SubmitWindow = defaultSubmitWindow
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = defaultSessionTTL
	}

	codec, err := newSecureCookieCodec([]byte(deps.SecretKey))
	if err != nil {
		return nil, err
	}

	funcMap := newTemplateFuncMap()
	pages, err := parsePageTemplates(deps.Templates, funcMap, pageTemplates, partialTemplateFiles)
	if err != nil {
		return nil, err
	}
	partials, err := parsePartialTemplates(deps.Templates, funcMap, partialTemplateFiles)
	if err != nil {
		return nil, err
	}

	handler := &Handler{
		secretKey:     []byte(deps.SecretKey),
		cookieSecure:  deps.CookieSecure,
		i18n:          deps.I18n,
		content:       deps.Content,
		chat:          deps.Chat,
		consent:       deps.Consent,
		logger:        deps.Logger,
		templates:     pages,
		partials:      partials,
		cookieCodec:   codec,
		submitLimiter: newSubmitLimiter(deps.SubmitLimit, deps.SubmitWindow),
		sessionTTL:    deps.SessionTTL,
	}
	if err := handler.registerForms(deps.Forms...); err != nil {
		return nil, fmt.Errorf("register forms: %w", err)
	}
	return handler, nil
}
