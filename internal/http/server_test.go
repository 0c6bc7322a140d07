package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agenthost/agenthost-mini/internal/config"
	"github.com/agenthost/agenthost-mini/internal/model"
	"github.com/agenthost/agenthost-mini/internal/quota"
	"github.com/agenthost/agenthost-mini/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgent struct {
	reply string
	err   error
}

func (a stubAgent) Send(context.Context, string) (string, error) { return a.reply, a.err }

const okReply = `{"overview":"Acme makes anvils","funding":"Seed","techStack":"Go","news":"None","painPoints":"Roadrunners"}`

func testConfig(mode string) config.Config {
	return config.Config{
		Service: "agenthost-mini-api",
		Mode:    mode,
		HTTP: config.HTTPConfig{
			AdminToken:  "s3cret",
			BodyLimit:   "64K",
			CORSOrigins: []string{"*"},
		},
	}
}

func newTestServer(t *testing.T, cfg config.Config, agent stubAgent) (*Server, *quota.Gate) {
	t.Helper()
	gate := quota.NewGate(repository.NewMemoryQuotaRepository())
	require.NoError(t, gate.Seed(context.Background(), "free-key", model.TierFree))
	require.NoError(t, gate.Seed(context.Background(), "pro-key", model.TierPro))
	return NewServer(cfg, gate, agent, nil), gate
}

func do(t *testing.T, s *Server, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, testConfig(config.ModeProduction), stubAgent{})

	for _, path := range []string{"/health", "/healthz"} {
		rec, body := do(t, s, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "agenthost-mini-api", body["service"])
	}
}

func TestResearch_DemoDevModeServesMock(t *testing.T) {
	s, _ := newTestServer(t, testConfig(config.ModeDevelopment), stubAgent{err: errors.New("connection refused")})

	rec, body := do(t, s, http.MethodPost, "/research", `{"company":"Stripe"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Stripe", body["company"])
	data := body["data"].(map[string]any)
	assert.Contains(t, data["overview"], "Stripe")
	assert.NotEmpty(t, body["requestId"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`, body["timestamp"])

	usage := body["usage"].(map[string]any)
	assert.Equal(t, "free", usage["tier"])
	assert.EqualValues(t, 3, usage["remainingToday"])
	assert.EqualValues(t, 3, usage["dailyLimit"])
}

func TestResearch_EchoesRequestID(t *testing.T) {
	s, _ := newTestServer(t, testConfig(config.ModeProduction), stubAgent{reply: okReply})

	rec, body := do(t, s, http.MethodPost, "/research", `{"company":"Acme","requestId":"req-42"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", body["requestId"])
	assert.Equal(t, "Acme makes anvils", body["data"].(map[string]any)["overview"])
}

func TestResearch_CompanyRequired(t *testing.T) {
	s, _ := newTestServer(t, testConfig(config.ModeProduction), stubAgent{reply: okReply})

	for _, payload := range []string{`{}`, `{"company":"   "}`, ""} {
		rec, body := do(t, s, http.MethodPost, "/research", payload, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.Equal(t, "Company name required", body["error"])
	}
}

func TestResearch_MalformedJSON(t *testing.T) {
	s, _ := newTestServer(t, testConfig(config.ModeProduction), stubAgent{reply: okReply})

	rec, _ := do(t, s, http.MethodPost, "/research", `{"company":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResearch_InvalidKey(t *testing.T) {
	s, _ := newTestServer(t, testConfig(config.ModeProduction), stubAgent{reply: okReply})

	rec, body := do(t, s, http.MethodPost, "/research", `{"company":"Acme","apiKey":"nope"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid API key", body["error"])
}

func TestResearch_FreeKeyExhausted(t *testing.T) {
	s, _ := newTestServer(t, testConfig(config.ModeProduction), stubAgent{reply: okReply})
	hdr := map[string]string{"X-API-Key": "free-key"}

	for i := 2; i >= 0; i-- {
		rec, body := do(t, s, http.MethodPost, "/research", `{"company":"Acme"}`, hdr)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, i, body["usage"].(map[string]any)["remainingToday"])
	}

	rec, body := do(t, s, http.MethodPost, "/research", `{"company":"Acme"}`, hdr)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, quota.ReasonLimitReached, body["error"])
	assert.Equal(t, "free", body["tier"])
	assert.Equal(t, quota.DefaultUpgradeURL, body["upgradeUrl"])
}

func TestResearch_HeaderKeyWinsOverBody(t *testing.T) {
	s, _ := newTestServer(t, testConfig(config.ModeProduction), stubAgent{reply: okReply})

	rec, body := do(t, s, http.MethodPost, "/research", `{"company":"Acme","apiKey":"nope"}`,
		map[string]string{"X-API-Key": "pro-key"})
	require.Equal(t, http.StatusOK, rec.Code)

	usage := body["usage"].(map[string]any)
	assert.Equal(t, "pro", usage["tier"])
	assert.Nil(t, usage["remainingToday"])
	assert.Nil(t, usage["dailyLimit"])
}

func TestResearch_BodyKeyTrimmed(t *testing.T) {
	s, _ := newTestServer(t, testConfig(config.ModeProduction), stubAgent{reply: okReply})

	rec, body := do(t, s, http.MethodPost, "/research", `{"company":"Acme","apiKey":"demo-key "}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["usage"].(map[string]any)["remainingToday"])

	rec, body = do(t, s, http.MethodPost, "/research", `{"company":"Acme","apiKey":"  pro-key\t"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pro", body["usage"].(map[string]any)["tier"])
}

func TestResearch_AgentFailure(t *testing.T) {
	s, gate := newTestServer(t, testConfig(config.ModeProduction), stubAgent{err: errors.New("upstream down")})

	rec, body := do(t, s, http.MethodPost, "/research", `{"company":"Acme"}`,
		map[string]string{"X-API-Key": "free-key"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Research failed", body["error"])
	assert.Contains(t, body["message"], "upstream down")

	snap, ok, err := gate.Snapshot(context.Background(), "free-key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, snap.UsedToday)
}

func TestUsage(t *testing.T) {
	s, _ := newTestServer(t, testConfig(config.ModeProduction), stubAgent{reply: okReply})

	_, _ = do(t, s, http.MethodPost, "/research", `{"company":"Acme"}`, map[string]string{"X-API-Key": "free-key"})

	rec, body := do(t, s, http.MethodGet, "/usage", "", map[string]string{"X-API-Key": "free-key"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "free", body["tier"])
	assert.EqualValues(t, 1, body["usedToday"])
	assert.EqualValues(t, 2, body["remainingToday"])
	assert.Equal(t, false, body["demo"])

	rec, body = do(t, s, http.MethodGet, "/usage?apiKey=free-key", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["usedToday"])

	rec, body = do(t, s, http.MethodGet, "/usage", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["demo"])

	rec, _ = do(t, s, http.MethodGet, "/usage", "", map[string]string{"X-API-Key": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateKey(t *testing.T) {
	s, gate := newTestServer(t, testConfig(config.ModeProduction), stubAgent{reply: okReply})

	rec, _ := do(t, s, http.MethodPost, "/v1/keys", `{"tier":"pro"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/v1/keys", `{"tier":"gold"}`, map[string]string{"X-Admin-Token": "s3cret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := do(t, s, http.MethodPost, "/v1/keys", `{"tier":"pro"}`, map[string]string{"X-Admin-Token": "s3cret"})
	require.Equal(t, http.StatusCreated, rec.Code)
	key := body["apiKey"].(string)
	assert.Regexp(t, `^ak_pro_[A-Za-z0-9]{32}$`, key)
	assert.Equal(t, "pro", body["tier"])
	assert.Nil(t, body["dailyLimit"])

	snap, ok, err := gate.Snapshot(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.TierPro, snap.Tier)
}

func TestCreateKey_DisabledWithoutAdminToken(t *testing.T) {
	cfg := testConfig(config.ModeProduction)
	cfg.HTTP.AdminToken = ""
	s, _ := newTestServer(t, cfg, stubAgent{reply: okReply})

	rec, _ := do(t, s, http.MethodPost, "/v1/keys", `{"tier":"free"}`, map[string]string{"X-Admin-Token": ""})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, testConfig(config.ModeProduction), stubAgent{reply: okReply})

	req := httptest.NewRequest(http.MethodOptions, "/research", nil)
	req.Header.Set("Origin", "chrome-extension://abc")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-API-Key")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
}
