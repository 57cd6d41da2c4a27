package handlers_test

import (
	"net/http"
	"testing"

	"waitlist-referral-system/models"
	"waitlist-referral-system/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin_ReplaysIdenticalBytes(t *testing.T) {
	app, deps := newTestApp(t, nil)
	const key = "3b241101-e2bb-4255-8caf-4136c566a962"

	send := func() (*http.Response, []byte) {
		req := jsonRequest(http.MethodPost, "/api/waitlist/join", map[string]string{
			"name":  "Ann Lee",
			"email": "ann@example.com",
		})
		req.Header.Set(services.IdempotencyHeader, key)
		return doRequest(t, app, req)
	}

	first, firstBody := send()
	require.Equal(t, http.StatusOK, first.StatusCode)
	assert.Contains(t, first.Header.Get("Content-Type"), "application/json")
	assert.NotEmpty(t, first.Cookies())

	second, secondBody := send()
	require.Equal(t, http.StatusOK, second.StatusCode)
	assert.Equal(t, firstBody, secondBody)
	assert.Equal(t, "true", second.Header.Get("Idempotent-Replayed"))

	var n int64
	require.NoError(t, deps.DB.Model(&models.Participant{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	res := decode(t, firstBody)
	assert.Equal(t, "/r/"+res["code"].(string), res["referralLink"])
}

func TestJoin_EmailKeyedReplay(t *testing.T) {
	app, _ := newTestApp(t, nil)

	payload := map[string]string{"name": "Bo", "email": "bo@example.com"}
	_, first := doRequest(t, app, jsonRequest(http.MethodPost, "/api/waitlist/join", payload))

	payload["email"] = " BO@example.com"
	resp, second := doRequest(t, app, jsonRequest(http.MethodPost, "/api/waitlist/join", payload))
	assert.Equal(t, first, second)
	assert.Equal(t, "true", resp.Header.Get("Idempotent-Replayed"))
}

func TestJoin_Errors(t *testing.T) {
	app, _ := newTestApp(t, nil)
	ann, _ := joinAs(t, app, "Ann", "ann@example.com", "")

	tests := []struct {
		name    string
		payload map[string]string
		key     string
		status  int
		code    string
	}{
		{"self referral", map[string]string{"name": "Ann", "email": "ann@example.com", "ref": ann.Code}, "5f1f6d3e-9a4b-4c43-9bde-2f0f8f1d7a10", 400, services.CodeSelfReferral},
		{"short name", map[string]string{"name": "A", "email": "a@example.com"}, "", 400, services.CodeValidation},
		{"disposable", map[string]string{"name": "Zed", "email": "z@guerrillamail.com"}, "", 400, services.CodeDisposableEmail},
		{"bad key", map[string]string{"name": "Cy", "email": "cy@example.com"}, "not-a-uuid", 400, services.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(http.MethodPost, "/api/waitlist/join", tt.payload)
			if tt.key != "" {
				req.Header.Set(services.IdempotencyHeader, tt.key)
			}
			resp, body := doRequest(t, app, req)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decode(t, body)["code"])
		})
	}
}

func TestJoin_MalformedBody(t *testing.T) {
	app, _ := newTestApp(t, nil)
	req := jsonRequest(http.MethodPost, "/api/waitlist/join", nil)
	req.Body = http.NoBody
	req.ContentLength = 0
	req.Header.Set("Content-Type", "text/plain")

	resp, body := doRequest(t, app, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, services.CodeValidation, decode(t, body)["code"])
}

func TestJoin_EmailKeyedReplayWinsOverRefWithinWindow(t *testing.T) {
	app, deps := newTestApp(t, nil)

	resp, first := doRequest(t, app, jsonRequest(http.MethodPost, "/api/waitlist/join", map[string]string{
		"name":  "Ann",
		"email": "ann@example.com",
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	own := decode(t, first)["code"].(string)

	// Same email, no key: the stored response is replayed and the ref is not evaluated.
	resp, replay := doRequest(t, app, jsonRequest(http.MethodPost, "/api/waitlist/join", map[string]string{
		"name":  "Ann",
		"email": "ann@example.com",
		"ref":   own,
	}))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("Idempotent-Replayed"))
	assert.Equal(t, first, replay)

	// A fresh explicit key runs the join and rejects the self-referral.
	req := jsonRequest(http.MethodPost, "/api/waitlist/join", map[string]string{
		"name":  "Ann",
		"email": "ann@example.com",
		"ref":   own,
	})
	req.Header.Set(services.IdempotencyHeader, "0d5c8b7e-2a41-4f0e-9f3a-6c1b2d3e4f50")
	resp, body := doRequest(t, app, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, services.CodeSelfReferral, decode(t, body)["code"])

	var credits int64
	require.NoError(t, deps.DB.Model(&models.ReferralEvent{}).Count(&credits).Error)
	assert.Equal(t, int64(0), credits)
}
