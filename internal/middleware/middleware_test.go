package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/password-admin/internal/config"
	"github.com/deppfellow/password-admin/internal/errs"
	"github.com/deppfellow/password-admin/internal/server"
	"github.com/deppfellow/password-admin/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	callers map[string]string
	err     error
	calls   int
}

func (f *fakeTokens) VerifyToken(_ context.Context, token string) (*service.Caller, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	uid, ok := f.callers[token]
	if !ok {
		return nil, errs.Unauthenticated(errs.ReasonInvalidCredentials, "invalid bearer token")
	}
	return &service.Caller{UID: uid}, nil
}

func newTestServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{
			Primary:       config.Primary{Env: "test"},
			Server:        config.ServerConfig{CORSAllowedOrigins: []string{"https://admin.example"}},
			Observability: config.DefaultObservabilityConfig(),
		},
		Logger: &logger,
	}
}

type seen struct {
	called bool
	caller *service.Caller
	data   json.RawMessage
	userID string
}

func callableEcho(tokens TokenVerifier, got *seen) *echo.Echo {
	e := echo.New()
	auth := NewAuthMiddleware(newTestServer(), tokens)
	e.Any("/fn", func(c echo.Context) error {
		got.called = true
		got.caller = GetCaller(c)
		got.data = GetCallableData(c)
		got.userID = GetUserID(c)
		return c.NoContent(http.StatusOK)
	}, auth.CallableContext)
	return e
}

func doCallable(e *echo.Echo, method, body, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/fn", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCallableContext_RejectsBadEnvelopes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
	}{
		{name: "GET", method: http.MethodGet, body: `{"data":{}}`},
		{name: "empty body", method: http.MethodPost, body: ""},
		{name: "array body", method: http.MethodPost, body: `[{"data":{}}]`},
		{name: "no data key", method: http.MethodPost, body: `{"userId":"u1"}`},
		{name: "invalid json", method: http.MethodPost, body: `{"data":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := &fakeTokens{}
			got := &seen{}

			rec := doCallable(callableEcho(tokens, got), tt.method, tt.body, "Bearer t")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":{"status":"INVALID_ARGUMENT","message":"Bad Request"}}`, rec.Body.String())
			assert.False(t, got.called)
			assert.Zero(t, tokens.calls)
		})
	}
}

func TestCallableContext_WithoutAuthorization(t *testing.T) {
	tokens := &fakeTokens{}
	got := &seen{}

	rec := doCallable(callableEcho(tokens, got), http.MethodPost, `{"data":{"userId":"u1"}}`, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.called)
	assert.Nil(t, got.caller)
	assert.JSONEq(t, `{"userId":"u1"}`, string(got.data))
	assert.Zero(t, tokens.calls)
}

func TestCallableContext_VerifiedCaller(t *testing.T) {
	tokens := &fakeTokens{callers: map[string]string{"good": "admin-1"}}
	got := &seen{}

	rec := doCallable(callableEcho(tokens, got), http.MethodPost, `{"data":null}`, "Bearer good")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.caller)
	assert.Equal(t, "admin-1", got.caller.UID)
	assert.Equal(t, "admin-1", got.userID)
	assert.Equal(t, "null", string(got.data))
}

func TestCallableContext_RejectsInvalidToken(t *testing.T) {
	for _, authorization := range []string{"Bearer bad", "Basic abc", "Bearer "} {
		t.Run(authorization, func(t *testing.T) {
			got := &seen{}

			rec := doCallable(callableEcho(&fakeTokens{}, got), http.MethodPost, `{"data":{}}`, authorization)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":{"status":"UNAUTHENTICATED","message":"Unauthenticated"}}`, rec.Body.String())
			assert.False(t, got.called)
		})
	}
}

func TestCallableContext_VerifierFailure(t *testing.T) {
	tokens := &fakeTokens{err: errs.Internal(errors.New("jwks unavailable"))}
	got := &seen{}

	rec := doCallable(callableEcho(tokens, got), http.MethodPost, `{"data":{}}`, "Bearer good")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"status":"INTERNAL","message":"Internal"}}`, rec.Body.String())
	assert.False(t, got.called)
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	var got string
	e.GET("/", func(c echo.Context) error {
		got = GetRequestID(c)
		return c.NoContent(http.StatusOK)
	}, RequestID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.NotEmpty(t, got)
	assert.Equal(t, got, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", got)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestContextEnhancer_StoresLoggerInRequestContext(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer()
	logger := zerolog.New(&buf)
	s.Logger = &logger

	e := echo.New()
	enhancer := NewContextEnhancer(s)

	e.GET("/", func(c echo.Context) error {
		SetCaller(c, &service.Caller{UID: "admin-1"})
		zerolog.Ctx(c.Request().Context()).Info().Msg("from request context")
		return c.NoContent(http.StatusOK)
	}, RequestID(), enhancer.EnhanceContext())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	e.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "admin-1", line["user_id"])
	assert.Equal(t, "/", line["path"])
}

func TestGetLogger_DefaultsToNop(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Equal(t, zerolog.Disabled, GetLogger(c).GetLevel())
	assert.Nil(t, GetCaller(c))
	assert.Empty(t, GetUserID(c))
}

func TestGlobalErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "unknown route", err: echo.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "echo error", err: echo.ErrMethodNotAllowed, status: http.StatusMethodNotAllowed, code: "METHOD_NOT_ALLOWED"},
		{name: "tagged error", err: errs.PermissionDenied("only admins"), status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "http error", err: errs.NewTooManyRequestsError(), status: http.StatusTooManyRequests, code: "TOO_MANY_REQUESTS"},
		{name: "tagged internal", err: errs.Internal(errors.New("boom")), status: http.StatusInternalServerError, code: "INTERNAL_SERVER_ERROR"},
		{name: "anything else", err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			global := NewGlobalMiddlewares(newTestServer())
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), rec)

			global.GlobalErrorHandler(tt.err, c)

			assert.Equal(t, tt.status, rec.Code)
			var body errs.HTTPError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.status, body.Status)
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

func TestCORS_SkipsListedPaths(t *testing.T) {
	global := NewGlobalMiddlewares(newTestServer())

	e := echo.New()
	e.Use(global.CORS("/own"))
	e.GET("/own", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/api", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for path, want := range map[string]string{"/own": "", "/api": "https://admin.example"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(echo.HeaderOrigin, "https://admin.example")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Header().Get(echo.HeaderAccessControlAllowOrigin), path)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer()
	s.Config.Server.RateLimit = 1

	global := NewGlobalMiddlewares(s)
	limiter := NewRateLimitMiddleware(s)

	e := echo.New()
	e.HTTPErrorHandler = global.GlobalErrorHandler
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, limiter.Limit())

	first := httptest.NewRecorder()
	e.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	e.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimit_DisabledByDefault(t *testing.T) {
	limiter := NewRateLimitMiddleware(newTestServer())

	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, limiter.Limit())

	for range 5 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
