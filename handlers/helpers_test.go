package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"waitlist-referral-system/config"
	"waitlist-referral-system/handlers"
	"waitlist-referral-system/services"
	"waitlist-referral-system/storage/storagetest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	verifyOK bool
}

func (f *fakeProvider) SendOTP(context.Context, string) error { return nil }

func (f *fakeProvider) VerifyOTP(context.Context, string, string) (bool, error) {
	return f.verifyOK, nil
}

func newTestApp(t *testing.T, provider services.IdentityProvider) (*fiber.App, *handlers.Deps) {
	t.Helper()
	db := storagetest.NewDB(t)
	cfg := &config.Config{
		Env:        "test",
		GitSHA:     "abc123",
		PublicURL:  "https://goampy.example",
		OGImageURL: "https://cdn.example/og.png",
	}

	attribution := services.NewAttributionEngine(db)
	events := services.NewEventService(db)
	deps := &handlers.Deps{
		Config:           cfg,
		DB:               db,
		Waitlist:         services.NewWaitlistService(db, services.NewCodeGenerator(), attribution, events),
		Attribution:      attribution,
		Points:           services.NewPointsService(db),
		Leaderboard:      services.NewLeaderboardService(db),
		Guard:            services.NewIdempotencyGuard(services.NewMemoryIdempotencyStore(services.IdempotencyTTL)),
		Sessions:         services.NewSessionManager("test-secret"),
		Auth:             services.NewAuthService(db, provider),
		Events:           events,
		DisableRateLimit: true,
		DisableAccessLog: true,
	}
	return handlers.NewApp(deps), deps
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func jsonRequest(method, target string, payload interface{}) *http.Request {
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func joinAs(t *testing.T, app *fiber.App, name, email, ref string) (services.JoinResult, *http.Response) {
	t.Helper()
	payload := map[string]string{"name": name, "email": email}
	if ref != "" {
		payload["ref"] = ref
	}
	resp, body := doRequest(t, app, jsonRequest(http.MethodPost, "/api/waitlist/join", payload))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var res services.JoinResult
	require.NoError(t, json.Unmarshal(body, &res))
	return res, resp
}

func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}
