package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dontwait/dontwait/internal/api"
	"github.com/dontwait/dontwait/internal/config"
	"github.com/dontwait/dontwait/internal/content"
	"github.com/dontwait/dontwait/internal/db"
	"github.com/dontwait/dontwait/internal/forms"
	"github.com/dontwait/dontwait/internal/i18n"
	"github.com/dontwait/dontwait/internal/security"
	"github.com/dontwait/dontwait/internal/services"
	"github.com/dontwait/dontwait/internal/sessions"
	"github.com/dontwait/dontwait/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout     = 10 * time.Second
	sessionSweepPeriod  = time.Minute
	csrfHeaderName      = "X-CSRF-Token"
	csrfFormField       = "csrf_token"
	csrfCookieName      = "dontwait_csrf"
	clientHashKeyPrefix = "dontwait.client-hash:"
)

var errMissingCSRFToken = errors.New("missing csrf token")

// closer releases a backend opened during startup.
type closer func() error

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	leadStore, closeStore, err := openLeadStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("lead store init failed: %w", err)
	}
	defer runCloser(closeStore, "lead store")

	sessionStore, memoryStore, closeSessions, err := openSessionStore(ctx, cfg.Sessions)
	if err != nil {
		return fmt.Errorf("session store init failed: %w", err)
	}
	defer runCloser(closeSessions, "session store")

	hasher, err := security.NewClientHasher(clientHashKeyPrefix + cfg.SecretKey)
	if err != nil {
		return fmt.Errorf("client hasher init failed: %w", err)
	}

	var hooks []services.SuccessHook
	var notifier *services.LeadNotifier
	if cfg.Telegram.Enabled() {
		notifier, err = services.NewTelegramLeadNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			return fmt.Errorf("telegram notifier init failed: %w", err)
		}
		hooks = append(hooks, notifier.Hook)
	}

	flows, err := buildFormFlows(services.FormServiceConfig{
		Sessions:     sessionStore,
		Inserter:     leadStore,
		Logger:       logger,
		StoreTimeout: cfg.Store.Timeout,
		Hooks:        hooks,
	})
	if err != nil {
		return err
	}

	chat := services.NewChatService(cfg.ChatSearchTimeout, logger)
	defer chat.Stop()
	chat.OnNoAgent(func(string) {
		logger.Debug("chat search ended without agent")
	})

	i18nManager, err := i18n.NewManager(cfg.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("i18n init failed: %w", err)
	}
	catalog, err := content.Load(i18nManager.DefaultLanguage())
	if err != nil {
		return fmt.Errorf("content init failed: %w", err)
	}

	handler, err := api.NewHandler(api.Dependencies{
		SecretKey:    cfg.SecretKey,
		CookieSecure: cfg.CookieSecure,
		I18n:         i18nManager,
		Content:      catalog,
		Forms:        flows,
		Chat:         chat,
		Consent:      services.NewConsentService(leadStore, hasher, logger),
		Logger:       logger,
		SubmitLimit:  cfg.SubmitRateLimit,
		SubmitWindow: cfg.SubmitRateWindow,
		SessionTTL:   cfg.Sessions.TTL,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	app := newApp(handler, cfg.CookieSecure)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("dontwait listening",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.Store.Driver),
			zap.String("sessions", cfg.Sessions.Driver),
			zap.Bool("telegram", notifier != nil),
		)
		return app.Listen(":" + cfg.Port)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})
	if notifier != nil {
		group.Go(func() error {
			return notifier.Run(groupCtx)
		})
	}
	if memoryStore != nil {
		group.Go(func() error {
			return memoryStore.Run(groupCtx, sessionSweepPeriod)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server exited: %w", err)
	}
	logger.Info("dontwait stopped")
	return nil
}

func newApp(handler *api.Handler, cookieSecure bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "DontWait",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New())
	app.Use(handler.LanguageMiddleware)
	app.Use(csrf.New(csrfMiddlewareConfig(cookieSecure)))

	api.RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	return app
}

// csrfMiddlewareConfig accepts the token from the header HTMX sends or from the hidden form field.
func csrfMiddlewareConfig(cookieSecure bool) csrf.Config {
	return csrf.Config{
		KeyLookup:      "form:" + csrfFormField,
		CookieName:     csrfCookieName,
		CookieSameSite: "Lax",
		CookieHTTPOnly: true,
		CookieSecure:   cookieSecure,
		ContextKey:     "csrf",
		Extractor:      csrfTokenExtractor,
	}
}

func csrfTokenExtractor(c *fiber.Ctx) (string, error) {
	if token := strings.TrimSpace(c.Get(csrfHeaderName)); token != "" {
		return token, nil
	}
	if token := strings.TrimSpace(c.FormValue(csrfFormField)); token != "" {
		return token, nil
	}
	return "", errMissingCSRFToken
}

func buildFormFlows(formConfig services.FormServiceConfig) ([]api.FormFlow, error) {
	plan, err := services.NewFormService(forms.PlanSelectionDefinition(), formConfig)
	if err != nil {
		return nil, fmt.Errorf("plan form: %w", err)
	}
	trial, err := services.NewFormService(forms.TrialDefinition(), formConfig)
	if err != nil {
		return nil, fmt.Errorf("trial form: %w", err)
	}
	support, err := services.NewFormService(forms.SupportDefinition(), formConfig)
	if err != nil {
		return nil, fmt.Errorf("support form: %w", err)
	}
	chatEmail, err := services.NewFormService(forms.ChatEmailDefinition(), formConfig)
	if err != nil {
		return nil, fmt.Errorf("chat email form: %w", err)
	}
	return []api.FormFlow{plan, trial, support, chatEmail}, nil
}

func openLeadStore(ctx context.Context, cfg config.StoreConfig) (store.Inserter, closer, error) {
	switch cfg.Driver {
	case store.DriverPostgres:
		postgres, err := store.NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres, postgres.Close, nil
	case store.DriverSQLite:
		database, err := db.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		sqlite, err := store.NewSQLiteStore(database)
		if err != nil {
			return nil, nil, err
		}
		return sqlite, sqlite.Close, nil
	default:
		rest, err := store.NewRESTStore(cfg.URL, cfg.Key, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return rest, nil, nil
	}
}

// openSessionStore also returns the in-memory store, when used, so its sweeper can be started.
func openSessionStore(ctx context.Context, cfg config.SessionConfig) (sessions.Store, *sessions.MemoryStore, closer, error) {
	if cfg.Driver == sessions.DriverRedis {
		redisStore, err := sessions.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, nil, nil, err
		}
		return redisStore, nil, redisStore.Close, nil
	}
	memory := sessions.NewMemoryStore(cfg.TTL)
	return memory, memory, nil, nil
}

func runCloser(release closer, name string) {
	if release == nil {
		return
	}
	if err := release(); err != nil {
		logger.Warn("close failed", zap.String("component", name), zap.Error(err))
	}
}
