package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap/zapcore"
)

func TestCSRFMiddlewareConfigUsesCookieSecureFlag(t *testing.T) {
	secureConfig := csrfMiddlewareConfig(true)
	if !secureConfig.CookieSecure {
		t.Fatal("expected csrf cookie secure flag to be enabled")
	}
	if !secureConfig.CookieHTTPOnly {
		t.Fatal("expected csrf cookie to be httpOnly")
	}
	if secureConfig.CookieName != "dontwait_csrf" {
		t.Fatalf("expected csrf cookie name dontwait_csrf, got %q", secureConfig.CookieName)
	}
	if secureConfig.Extractor == nil {
		t.Fatal("expected csrf token extractor")
	}

	insecureConfig := csrfMiddlewareConfig(false)
	if insecureConfig.CookieSecure {
		t.Fatal("expected csrf cookie secure flag to be disabled")
	}
}

func TestCSRFTokenExtractorPrefersHeaderThenForm(t *testing.T) {
	app := fiber.New()
	app.Post("/token", func(c *fiber.Ctx) error {
		token, err := csrfTokenExtractor(c)
		if err != nil {
			return c.Status(fiber.StatusForbidden).SendString(err.Error())
		}
		return c.SendString(token)
	})

	tests := []struct {
		name       string
		header     string
		form       url.Values
		wantStatus int
		wantBody   string
	}{
		{name: "header", header: "from-header", form: url.Values{"csrf_token": {"from-form"}}, wantStatus: http.StatusOK, wantBody: "from-header"},
		{name: "form", form: url.Values{"csrf_token": {"from-form"}}, wantStatus: http.StatusOK, wantBody: "from-form"},
		{name: "missing", form: url.Values{}, wantStatus: http.StatusForbidden, wantBody: errMissingCSRFToken.Error()},
	}

	for _, test := range tests {
		request := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(test.form.Encode()))
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if test.header != "" {
			request.Header.Set(csrfHeaderName, test.header)
		}
		response, err := app.Test(request, -1)
		if err != nil {
			t.Fatalf("%s: request failed: %v", test.name, err)
		}
		body := make([]byte, 64)
		n, _ := response.Body.Read(body)
		if response.StatusCode != test.wantStatus || string(body[:n]) != test.wantBody {
			t.Fatalf("%s: got %d %q, want %d %q", test.name, response.StatusCode, body[:n], test.wantStatus, test.wantBody)
		}
	}
}

func TestNewLoggerLevels(t *testing.T) {
	logger, err := newLogger("warn", false)
	if err != nil {
		t.Fatalf("newLogger(warn) error = %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info to be disabled at warn level")
	}

	verboseLogger, err := newLogger("error", true)
	if err != nil {
		t.Fatalf("newLogger(verbose) error = %v", err)
	}
	if !verboseLogger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected verbose flag to enable debug logging")
	}

	if _, err := newLogger("loud", false); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}
