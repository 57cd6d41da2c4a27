package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"waitlist-referral-system/models"
	"waitlist-referral-system/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTP_NotConfigured(t *testing.T) {
	app, _ := newTestApp(t, nil)

	resp, body := doRequest(t, app, jsonRequest(http.MethodPost, "/api/auth/otp/send", map[string]string{"email": "ann@example.com"}))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, services.CodeAuthNotConfigured, decode(t, body)["code"])
}

func TestOTP_SendValidatesEmail(t *testing.T) {
	app, _ := newTestApp(t, &fakeProvider{})

	resp, body := doRequest(t, app, jsonRequest(http.MethodPost, "/api/auth/otp/send", map[string]string{"email": "nope"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, services.CodeValidation, decode(t, body)["code"])

	resp, body = doRequest(t, app, jsonRequest(http.MethodPost, "/api/auth/otp/send", map[string]string{"email": "ann@example.com"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ann@example.com", decode(t, body)["email"])
}

func TestOTP_VerifyMarksParticipantAndIssuesSession(t *testing.T) {
	app, deps := newTestApp(t, &fakeProvider{verifyOK: true})
	joinAs(t, app, "Ann", "ann@example.com", "")

	resp, body := doRequest(t, app, jsonRequest(http.MethodPost, "/api/auth/otp/verify", map[string]string{
		"email": "ann@example.com",
		"token": "123456",
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, true, decode(t, body)["verified"])

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == services.SessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)

	var p models.Participant
	require.NoError(t, deps.DB.Where("email_ci = ?", "ann@example.com").First(&p).Error)
	assert.NotNil(t, p.VerifiedAt)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(sessionCookie)
	resp, body = doRequest(t, app, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode(t, body)
	assert.Equal(t, p.ID, got["participantId"])
	assert.Equal(t, "ann@example.com", got["email"])

	_, body = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/me/summary?email=ann@example.com", nil))
	assert.Equal(t, float64(30), decode(t, body)["points"])
}

func TestOTP_VerifyRejected(t *testing.T) {
	app, _ := newTestApp(t, &fakeProvider{verifyOK: false})

	resp, body := doRequest(t, app, jsonRequest(http.MethodPost, "/api/auth/otp/verify", map[string]string{
		"email": "ann@example.com",
		"token": "000000",
	}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	got := decode(t, body)
	assert.Equal(t, false, got["verified"])
	assert.Equal(t, services.CodeOTPVerifyFailed, got["code"])
}

func TestSession_Missing(t *testing.T) {
	app, _ := newTestApp(t, nil)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, services.CodeInvalidSession, decode(t, body)["code"])
}
