package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/dontwait/dontwait/internal/services"
	"github.com/stretchr/testify/require"
)

func TestCookieConsentRecordsDecisionAndHidesBanner(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	tab := app.visitor(t)

	landing := tab.get("/", nil)
	require.Contains(t, readBody(t, landing), `id="cookie-banner"`)

	response := tab.postJSON("/api/cookie-consent", map[string]any{"decision": "accepted", "path": "/"})
	require.Equal(t, http.StatusOK, response.StatusCode)
	payload := map[string]any{}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&payload))
	require.Equal(t, "accepted", payload["decision"])
	sessionID, _ := payload["session_id"].(string)
	require.NotEmpty(t, sessionID)

	decisionCookie := responseCookie(response.Cookies(), cookieConsentCookieName)
	require.NotNil(t, decisionCookie)
	require.Equal(t, "accepted", decisionCookie.Value)
	require.True(t, decisionCookie.HttpOnly)

	inserts := app.consents.Inserts()
	require.Len(t, inserts, 1)
	require.Equal(t, services.ConsentTable, inserts[0].Table)
	require.Equal(t, sessionID, inserts[0].Row["session_id"])
	require.Equal(t, "el", inserts[0].Row["locale"])

	again := tab.get("/", nil)
	require.NotContains(t, readBody(t, again), `id="cookie-banner"`)

	second := tab.postForm("/api/cookie-consent", url.Values{"decision": {"necessary_only"}}, true)
	require.Equal(t, http.StatusOK, second.StatusCode)
	inserts = app.consents.Inserts()
	require.Len(t, inserts, 2)
	require.Equal(t, sessionID, inserts[1].Row["session_id"], "the consent session id is reused")
}

func TestCookieConsentRejectsUnknownDecision(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	response := app.visitor(t).postJSON("/api/cookie-consent", map[string]any{"decision": "rejected"})
	require.Equal(t, http.StatusBadRequest, response.StatusCode)
	require.Equal(t, errorInvalidConsent, readAPIError(t, response.Body))
	require.Equal(t, 0, app.consents.Count())
}

func TestCookieConsentStoreFailureIsInvisible(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	app.consents.Fail(errTestStoreDown)
	tab := app.visitor(t)

	response := tab.postForm("/api/cookie-consent", url.Values{"decision": {"accepted"}, "path": {"/privacy-policy"}}, false)
	require.Equal(t, http.StatusSeeOther, response.StatusCode)
	require.Equal(t, "/privacy-policy", response.Header.Get("Location"))
	require.Equal(t, "accepted", tab.cookies[cookieConsentCookieName])
}

func TestRefererPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                                       "",
		"https://dontwait.gr/privacy-policy?x=1": "/privacy-policy",
		"/relative":                              "/relative",
	}
	for raw, want := range tests {
		if got := refererPath(raw); got != want {
			t.Fatalf("refererPath(%q) = %q, want %q", raw, got, want)
		}
	}
}
