package middlewarectx_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/time/rate"

	"github.com/osoriolabs/lawdesk/internal/http/middlewarectx"
	"github.com/osoriolabs/lawdesk/internal/models"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) ValidateToken(ctx context.Context, token string) (*models.Principal, error) {
	args := m.Called(ctx, token)
	principal, _ := args.Get(0).(*models.Principal)
	return principal, args.Error(1)
}

type SubscriptionServiceMock struct {
	mock.Mock
}

func (m *SubscriptionServiceMock) GetSubscriptionInfo(ctx context.Context, userUID string) (*models.SubscriptionInfo, error) {
	args := m.Called(ctx, userUID)
	info, _ := args.Get(0).(*models.SubscriptionInfo)
	return info, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestJWTMiddleware(t *testing.T) {
	authMock := new(AuthServiceMock)
	logger := newNoopLogger()

	handlerCalled := false
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		principal, err := middlewarectx.PrincipalFromContext(r.Context())
		assert.NoError(t, err)
		assert.Equal(t, "u-1", principal.UID)
		assert.Equal(t, "testuser", principal.Username)
		w.WriteHeader(http.StatusOK)
	})

	mw := middlewarectx.JWTMiddleware(authMock, logger)(nextHandler)

	tests := []struct {
		name           string
		authHeader     string
		mockPrincipal  *models.Principal
		mockErr        error
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing Authorization header",
			authHeader:     "",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "token validation error",
			authHeader:     "Bearer token",
			mockErr:        errors.New("token is expired"),
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "valid token",
			authHeader:     "Bearer validtoken",
			mockPrincipal:  &models.Principal{UID: "u-1", Username: "testuser", Role: "user"},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled = false
			authMock.ExpectedCalls = nil
			authMock.Calls = nil
			if tt.mockPrincipal != nil || tt.mockErr != nil {
				authMock.On("ValidateToken", mock.Anything, strings.TrimPrefix(tt.authHeader, "Bearer ")).
					Return(tt.mockPrincipal, tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
			authMock.AssertExpectations(t)
		})
	}
}

func TestSubscriptionStatusMiddleware(t *testing.T) {
	logger := newNoopLogger()
	expired := time.Now().Add(-time.Hour)
	future := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name           string
		principal      *models.Principal
		mockInfo       *models.SubscriptionInfo
		mockErr        error
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "no principal in context",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "service error",
			principal:      &models.Principal{UID: "u-1"},
			mockErr:        errors.New("db down"),
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name:           "active subscription passes",
			principal:      &models.Principal{UID: "u-1"},
			mockInfo:       &models.SubscriptionInfo{Status: models.SubscriptionStatusActive},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
		{
			name:           "running trial passes",
			principal:      &models.Principal{UID: "u-1"},
			mockInfo:       &models.SubscriptionInfo{Status: models.SubscriptionStatusTrial, TrialExpiresAt: &future},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
		{
			name:           "expired trial is forbidden",
			principal:      &models.Principal{UID: "u-1"},
			mockInfo:       &models.SubscriptionInfo{Status: models.SubscriptionStatusTrial, TrialExpiresAt: &expired},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "inactive subscription is forbidden",
			principal:      &models.Principal{UID: "u-1"},
			mockInfo:       &models.SubscriptionInfo{Status: models.SubscriptionStatusInactive},
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subMock := new(SubscriptionServiceMock)
			if tt.mockInfo != nil || tt.mockErr != nil {
				subMock.On("GetSubscriptionInfo", mock.Anything, tt.principal.UID).
					Return(tt.mockInfo, tt.mockErr).Once()
			}

			handlerCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			})

			mw := middlewarectx.SubscriptionStatusMiddleware(logger, subMock)(nextHandler)

			req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
			if tt.principal != nil {
				req = req.WithContext(middlewarectx.WithPrincipal(req.Context(), *tt.principal))
			}

			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
			subMock.AssertExpectations(t)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	logger := newNoopLogger()
	limiter := rate.NewLimiter(rate.Limit(0), 2)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := middlewarectx.RateLimitMiddleware(logger, limiter)(nextHandler)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
