package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dontwait/dontwait/internal/content"
	"github.com/dontwait/dontwait/internal/forms"
	"github.com/dontwait/dontwait/internal/i18n"
	"github.com/dontwait/dontwait/internal/services"
	"github.com/dontwait/dontwait/internal/sessions"
	"github.com/dontwait/dontwait/internal/store/storetest"
	"github.com/gofiber/fiber/v2"
)

const testSecretKey = "test-secret-key-0123456789abcdef0123"

type testApp struct {
	app      *fiber.App
	handler  *Handler
	leads    *storetest.Recording
	consents *storetest.Recording
	chat     *services.ChatService
}

type testAppOptions struct {
	submitLimit       int
	chatSearchTimeout time.Duration
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithOptions(t, testAppOptions{})
}

func newTestAppWithOptions(t *testing.T, options testAppOptions) *testApp {
	t.Helper()

	i18nManager, err := i18n.NewManager(i18n.LangEL)
	if err != nil {
		t.Fatalf("init i18n: %v", err)
	}
	catalog, err := content.Load(i18n.LangEL)
	if err != nil {
		t.Fatalf("load content: %v", err)
	}

	leads := storetest.NewRecording()
	consents := storetest.NewRecording()
	sessionStore := sessions.NewMemoryStore(time.Hour)
	config := services.FormServiceConfig{Sessions: sessionStore, Inserter: leads}

	plan, err := services.NewFormService(forms.PlanSelectionDefinition(), config)
	if err != nil {
		t.Fatalf("init plan form: %v", err)
	}
	trial, err := services.NewFormService(forms.TrialDefinition(), config)
	if err != nil {
		t.Fatalf("init trial form: %v", err)
	}
	support, err := services.NewFormService(forms.SupportDefinition(), config)
	if err != nil {
		t.Fatalf("init support form: %v", err)
	}
	chatEmail, err := services.NewFormService(forms.ChatEmailDefinition(), config)
	if err != nil {
		t.Fatalf("init chat email form: %v", err)
	}

	searchTimeout := options.chatSearchTimeout
	if searchTimeout <= 0 {
		searchTimeout = time.Hour
	}
	chat := services.NewChatService(searchTimeout, nil)
	t.Cleanup(chat.Stop)

	handler, err := NewHandler(Dependencies{
		SecretKey:   testSecretKey,
		I18n:        i18nManager,
		Content:     catalog,
		Forms:       []FormFlow{plan, trial, support, chatEmail},
		Chat:        chat,
		Consent:     services.NewConsentService(consents, nil, nil),
		SubmitLimit: options.submitLimit,
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}

	app := fiber.New()
	app.Use(handler.LanguageMiddleware)
	RegisterRoutes(app, handler)
	app.Use(handler.NotFound)

	return &testApp{app: app, handler: handler, leads: leads, consents: consents, chat: chat}
}

// visitor is a browser tab: it keeps the cookies the server hands out.
type visitor struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func (a *testApp) visitor(t *testing.T) *visitor {
	return &visitor{t: t, app: a.app, cookies: map[string]string{}}
}

func (v *visitor) do(request *http.Request) *http.Response {
	v.t.Helper()
	response, err := v.app.Test(v.attachCookies(request), -1)
	if err != nil {
		v.t.Fatalf("app.Test(%s %s): %v", request.Method, request.URL.Path, err)
	}
	for _, cookie := range response.Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" || (!cookie.Expires.IsZero() && cookie.Expires.Before(time.Now())) {
			delete(v.cookies, cookie.Name)
			continue
		}
		v.cookies[cookie.Name] = cookie.Value
	}
	return response
}

func (v *visitor) get(path string, headers map[string]string) *http.Response {
	v.t.Helper()
	request := httptest.NewRequest(http.MethodGet, path, nil)
	for name, value := range headers {
		request.Header.Set(name, value)
	}
	return v.do(request)
}

func (v *visitor) postJSON(path string, payload any) *http.Response {
	v.t.Helper()
	return v.do(v.jsonRequest(path, payload))
}

// jsonRequest builds a JSON POST without sending it.
func (v *visitor) jsonRequest(path string, payload any) *http.Request {
	v.t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		v.t.Fatalf("marshal payload: %v", err)
	}
	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	return request
}

func (v *visitor) attachCookies(request *http.Request) *http.Request {
	for name, value := range v.cookies {
		request.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return request
}

func (v *visitor) postForm(path string, values url.Values, htmx bool) *http.Response {
	v.t.Helper()
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		request.Header.Set("HX-Request", "true")
	}
	return v.do(request)
}

func readFormResponse(t *testing.T, response *http.Response) formResponse {
	t.Helper()
	payload := formResponse{}
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		t.Fatalf("decode form response: %v", err)
	}
	return payload
}

func readBody(t *testing.T, response *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return string(body)
}

func readAPIError(t *testing.T, body io.Reader) string {
	t.Helper()

	payload := map[string]any{}
	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	code, _ := payload["error"].(string)
	return code
}

func responseCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func contactFields(name string, email string, phone string) map[string]any {
	return map[string]any{"fields": map[string]string{
		forms.FieldName:  name,
		forms.FieldEmail: email,
		forms.FieldPhone: phone,
	}}
}

func httptestFormRequest(path string, values url.Values) *http.Request {
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return request
}

var errTestStoreDown = errors.New("store down")
