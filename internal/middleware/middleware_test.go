package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/localmarket/internal/config"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func adminClaims(exp time.Time) Claims {
	return Claims{
		Role: "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops-7",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func newAdminEcho() *echo.Echo {
	e := echo.New()
	g := e.Group("/admin", JWTAuth(testSecret), RequireRole("ADMIN"))
	g.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c)+"/"+Role(c))
	})
	return e
}

func doGet(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := newAdminEcho()
	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), adminClaims(time.Now().Add(time.Hour)))
	customer := adminClaims(time.Now().Add(time.Hour))
	customer.Role = "CUSTOMER"

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", signToken(t, jwt.SigningMethodHS256, []byte("other"), adminClaims(time.Now().Add(time.Hour))), http.StatusUnauthorized},
		{"expired", signToken(t, jwt.SigningMethodHS256, []byte(testSecret), adminClaims(time.Now().Add(-time.Minute))), http.StatusUnauthorized},
		{"no expiry", signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{Role: "ADMIN"}), http.StatusUnauthorized},
		{"wrong algorithm", signToken(t, jwt.SigningMethodHS512, []byte(testSecret), adminClaims(time.Now().Add(time.Hour))), http.StatusUnauthorized},
		{"wrong role", signToken(t, jwt.SigningMethodHS256, []byte(testSecret), customer), http.StatusForbidden},
		{"admin", valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(e, "/admin/whoami", tt.token)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := doGet(e, "/admin/whoami", valid)
	assert.Equal(t, "ops-7/ADMIN", rec.Body.String())
}

func TestUserID_Anonymous(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Equal(t, "anon", UserID(c))
	assert.Equal(t, "", Role(c))
}

func newLimitedEcho(t *testing.T, cfg config.RateLimitConfig) (*echo.Echo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	e.Use(RateLimit(cfg, rdb))
	e.GET("/v1/products/home", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e, mr
}

func limiterConfig(capacity int) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       capacity,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            10 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func TestRateLimit_BlocksWhenBucketIsEmpty(t *testing.T) {
	e, mr := newLimitedEcho(t, limiterConfig(2))

	for i := 0; i < 2; i++ {
		rec := doGet(e, "/v1/products/home", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, strconv.Itoa(1-i), rec.Header().Get("X-RateLimit-Remaining"))
	}
	rec := doGet(e, "/v1/products/home", "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too_many_requests","message":"rate limit exceeded","retry_after":3600}`, rec.Body.String())
	assert.True(t, mr.Exists("rl:ip:192.0.2.1:route:GET /v1/products/home"))
}

func TestRateLimit_PassesThroughWhenRedisFails(t *testing.T) {
	e, mr := newLimitedEcho(t, limiterConfig(1))
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(e, "/v1/products/home", "").Code)
	}
}

func TestRateLimit_DisabledIsNoop(t *testing.T) {
	cfg := limiterConfig(1)
	cfg.Enabled = false
	e := echo.New()
	e.Use(RateLimit(cfg, nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(e, "/", "").Code)
	}
}

func TestRateKey_Strategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/discover", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/discover")
	c.Set(ctxUserID, "u1")

	tests := map[string]string{
		"ip":         "rl:ip:192.0.2.1",
		"user":       "rl:user:u1",
		"route":      "rl:route:GET /v1/discover",
		"user_route": "rl:user:u1:route:GET /v1/discover",
		"":           "rl:ip:192.0.2.1:user:u1:route:GET /v1/discover",
	}
	for strategy, want := range tests {
		cfg := limiterConfig(1)
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, rateKey(cfg, c), strategy)
	}
}
