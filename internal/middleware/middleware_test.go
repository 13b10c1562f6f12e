package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"yafs_miniapp/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

const testBotToken = "5768337691:AAH5YkoiEuPk8-FZa32hStHTqXiLPtAEhx8"

func init() {
	gin.SetMode(gin.TestMode)
}

func launchData(authDate time.Time) string {
	user := `{"id":5060715466,"first_name":"Bob"}`
	values := url.Values{}
	values.Set("user", user)
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("hash", initdata.Sign(map[string]string{"user": user}, testBotToken, authDate))
	return values.Encode()
}

func identifyRouter(a *Authorization) *gin.Engine {
	r := gin.New()
	r.GET("/whoami", func(c *gin.Context) {
		identity, _, ok := a.Identify(c, c.Query("id"), c.Query("init_data"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": identity.ID(), "tier": identity.Tier().String()})
	})
	return r
}

func TestAuthorization_Identify(t *testing.T) {
	configured := NewAuthorization(auth.NewAuthenticator(auth.NewVerifier(testBotToken), ""))
	unconfigured := NewAuthorization(auth.NewAuthenticator(nil, ""))
	valid := launchData(time.Now())

	tests := []struct {
		name       string
		authz      *Authorization
		query      url.Values
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "demo id",
			authz:      unconfigured,
			query:      url.Values{"id": {"demo_abc"}},
			wantStatus: http.StatusOK,
			wantBody:   `{"id":"demo_abc","tier":"demo"}`,
		},
		{
			name:       "unconfigured secret",
			authz:      unconfigured,
			query:      url.Values{"id": {"42"}, "init_data": {valid}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"error":"Server configuration error","message":"Authentication service unavailable. Please contact support."}`,
		},
		{
			name:       "no launch data",
			authz:      configured,
			query:      url.Values{"id": {"42"}},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Authentication required"}`,
		},
		{
			name:       "stale launch data",
			authz:      configured,
			query:      url.Values{"id": {"42"}, "init_data": {launchData(time.Now().Add(-time.Hour))}},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Invalid authentication"}`,
		},
		{
			name:       "query launch data",
			authz:      configured,
			query:      url.Values{"id": {"42"}, "init_data": {valid}},
			wantStatus: http.StatusOK,
			wantBody:   `{"id":"5060715466","tier":"verified"}`,
		},
		{
			name:       "header launch data",
			authz:      configured,
			query:      url.Values{"id": {"42"}},
			header:     "Telegram " + valid,
			wantStatus: http.StatusOK,
			wantBody:   `{"id":"5060715466","tier":"verified"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami?"+tt.query.Encode(), nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			identifyRouter(tt.authz).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	limiter.lastSweep = now

	r := gin.New()
	r.Use(limiter.Handler())
	r.POST("/claim", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/claim", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(method, ip string) int {
		req := httptest.NewRequest(method, "/claim", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, do(http.MethodOptions, "10.0.0.1"))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "10.0.0.2"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "10.0.0.1"))

	now = now.Add(visitorTTL + time.Second)
	do(http.MethodPost, "10.0.0.3")
	limiter.mu.Lock()
	assert.Len(t, limiter.visitors, 1)
	limiter.mu.Unlock()
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	require.Nil(t, limiter)

	r := gin.New()
	r.Use(limiter.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), AccessLog(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Server error"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}
