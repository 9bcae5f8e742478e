package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking-engine/internal/config"
	"github.com/iliyamo/event-booking-engine/internal/utils"
)

const secret = "test-secret"

func bearer(t *testing.T, username, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, username, role, username+"@example.com", time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func newServer() *echo.Echo {
	e := echo.New()
	g := e.Group("/v1", JWTAuth(secret))
	g.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"username": Username(c), "email": Email(c), "admin": IsAdmin(c)})
	})
	g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole(utils.RoleAdmin))
	return e
}

func do(e *echo.Echo, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := newServer()

	rec := do(e, "/v1/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

	rec = do(e, "/v1/me", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, "/v1/me", bearer(t, "alice", utils.RoleAttendee))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"alice","email":"alice@example.com","admin":false}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := newServer()
	assert.Equal(t, http.StatusForbidden, do(e, "/v1/admin", bearer(t, "alice", utils.RoleAttendee)).Code)
	assert.Equal(t, http.StatusNoContent, do(e, "/v1/admin", bearer(t, "root", utils.RoleAdmin)).Code)
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/events/7/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/events/:id/bookings")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:POST /v1/events/:id/bookings", rateKey(cfg, c))

	c.Set(CtxUsername, "alice")
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:alice", rateKey(cfg, c))
	cfg.KeyStrategy = "IP"
	assert.Equal(t, "rl:ip:10.0.0.1", rateKey(cfg, c))
}

func TestCacheKeyIncludesPathParams(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route"}
	key := func(url string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, url, nil), httptest.NewRecorder())
		c.SetPath("/v1/events/:id")
		return cacheKey(cfg, c)
	}
	assert.NotEqual(t, key("/v1/events/1"), key("/v1/events/2"))
	assert.Equal(t, key("/v1/events/1"), key("/v1/events/1"))
	assert.Regexp(t, `^cache:[0-9a-f]{40}$`, key("/v1/events/1"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}

func TestMiddlewaresWithoutRedisPassThrough(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(config.RateLimitConfig{Enabled: true}, nil))
	e.Use(ResponseCache(config.CacheConfig{Enabled: true}, nil))
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "x") })

	rec := do(e, "/x", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
