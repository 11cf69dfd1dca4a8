package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xplorer1/eskalate-news-api/models"
	"github.com/xplorer1/eskalate-news-api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) utils.JSONResponse {
	t.Helper()
	var body utils.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredAndRoles(t *testing.T) {
	tokens := utils.NewTokenManager("middleware-test-secret", time.Hour)
	r := gin.New()
	r.GET("/author", AuthRequired(tokens), RequireRole(models.RoleAuthor), func(c *gin.Context) {
		id, _ := UserID(c)
		utils.Success(c, "ok", id)
	})

	authorToken, err := tokens.Sign("author-1", "author")
	require.NoError(t, err)
	readerToken, err := tokens.Sign("reader-1", "reader")
	require.NoError(t, err)
	expired := utils.NewTokenManager("middleware-test-secret", -time.Minute)
	expiredToken, err := expired.Sign("author-1", "author")
	require.NoError(t, err)

	cases := []struct {
		name    string
		token   string
		status  int
		message string
	}{
		{name: "missing", status: http.StatusUnauthorized, message: "Authentication required"},
		{name: "garbage", token: "not-a-jwt", status: http.StatusUnauthorized, message: "Invalid or expired token"},
		{name: "expired", token: expiredToken, status: http.StatusUnauthorized, message: "Invalid or expired token"},
		{name: "wrong role", token: readerToken, status: http.StatusForbidden, message: "You do not have permission to access this resource"},
		{name: "author", token: authorToken, status: http.StatusOK, message: "ok"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/author", tc.token)
			assert.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tc.message, body.Message)
			if tc.status != http.StatusOK {
				assert.False(t, body.Success)
				assert.Nil(t, body.Object)
				assert.NotEmpty(t, body.Errors)
			}
		})
	}
}

func TestOptionalAuthFallsBackToGuest(t *testing.T) {
	tokens := utils.NewTokenManager("middleware-test-secret", time.Hour)
	r := gin.New()
	r.GET("/", OptionalAuth(tokens), func(c *gin.Context) {
		id, _ := UserID(c)
		c.String(http.StatusOK, id)
	})
	token, err := tokens.Sign("u1", "reader")
	require.NoError(t, err)

	assert.Equal(t, "u1", do(r, http.MethodGet, "/", token).Body.String())
	assert.Equal(t, "", do(r, http.MethodGet, "/", "broken").Body.String())
	assert.Equal(t, "", do(r, http.MethodGet, "/", "").Body.String())
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(4) // burst 2
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))

	now = now.Add(15 * time.Second)
	assert.True(t, l.Allow("1.1.1.1"))

	r := gin.New()
	r.Use(NewIPRateLimiter(1).Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", "").Code)
	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.False(t, decode(t, w).Success)
}

func TestIPRateLimiterSweepEvictsIdleVisitors(t *testing.T) {
	l := NewIPRateLimiter(60)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("1.1.1.1")
	now = now.Add(limiterIdleTTL / 2)
	l.Allow("2.2.2.2")

	// requests never evict; only the janitor does
	now = now.Add(limiterIdleTTL + time.Second)
	l.Allow("3.3.3.3")
	assert.Equal(t, 3, l.Len())

	assert.Equal(t, 2, l.Sweep(now))
	assert.Equal(t, 1, l.Len())

	l.Start()
	l.Start()
	l.Stop()
	l.Stop()
}

type gateFunc func(identifier, articleID string, now time.Time) bool

func (f gateFunc) ShouldLog(identifier, articleID string, now time.Time) bool {
	return f(identifier, articleID, now)
}

type recordingSink struct {
	mu    sync.Mutex
	reads []string
	users []*string
}

func (s *recordingSink) LogRead(articleID string, readerID *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, articleID)
	s.users = append(s.users, readerID)
}

func TestReadTracker(t *testing.T) {
	tokens := utils.NewTokenManager("middleware-test-secret", time.Hour)
	var identifiers []string
	allow := true
	gate := gateFunc(func(identifier, articleID string, now time.Time) bool {
		identifiers = append(identifiers, identifier)
		return allow
	})
	sink := &recordingSink{}

	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop(), true))
	r.GET("/articles/:id", OptionalAuth(tokens), ReadTracker(gate, sink, nil), func(c *gin.Context) {
		switch c.Param("id") {
		case "missing":
			utils.AbortWithError(c, utils.NotFound("Article not found"))
			return
		case "deleted":
			_ = c.Error(utils.NotFound("News article no longer available"))
			return
		}
		utils.Success(c, "Article retrieved successfully", nil)
	})

	token, err := tokens.Sign("user-7", "reader")
	require.NoError(t, err)

	do(r, http.MethodGet, "/articles/a1", "")
	do(r, http.MethodGet, "/articles/a1", token)
	do(r, http.MethodGet, "/articles/missing", "")
	w := do(r, http.MethodGet, "/articles/deleted", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	allow = false
	do(r, http.MethodGet, "/articles/a2", "")

	assert.Equal(t, []string{"192.0.2.1", "user-7", "192.0.2.1"}, identifiers)
	assert.Equal(t, []string{"a1", "a1"}, sink.reads)
	assert.Nil(t, sink.users[0])
	require.NotNil(t, sink.users[1])
	assert.Equal(t, "user-7", *sink.users[1])
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop(), true))
	r.GET("/bad", func(c *gin.Context) {
		_ = c.Error(utils.BadRequest("Validation failed", "Title is required", "Content is too short"))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	})

	w := do(r, http.MethodGet, "/bad", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Equal(t, []string{"Title is required", "Content is too short"}, body.Errors)

	w = do(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body = decode(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "Internal server error", body.Message)
	assert.Equal(t, []string{"An unexpected error occurred"}, body.Errors)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestIDKey)) })

	w := do(r, http.MethodGet, "/", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", w.Body.String())
}
