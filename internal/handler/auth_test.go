package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/draftpool/backend/internal/auth"
	"github.com/draftpool/backend/internal/domain"
)

type mockUserReader struct {
	user *domain.User
	err  error
}

func (m *mockUserReader) GetByEmail(_ context.Context, _ string) (*domain.User, error) {
	return m.user, m.err
}

func testUser(t *testing.T, password string, status domain.UserStatus) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		ID:           uuid.New(),
		Email:        "ops@test.com",
		Name:         "Ops",
		PasswordHash: string(hash),
		Status:       status,
	}
}

func TestLogin(t *testing.T) {
	const secret = "login-test-secret"

	tests := []struct {
		name       string
		body       string
		user       *domain.User
		userErr    error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid credentials",
			body:       `{"email":"ops@test.com","password":"correct-horse"}`,
			user:       nil, // set below
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			body:       `{"email":"ops@test.com","password":"wrong"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:       "unknown email",
			body:       `{"email":"nobody@test.com","password":"whatever"}`,
			userErr:    domain.ErrNotFound,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:       "missing fields",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "malformed body",
			body:       `not-json`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user := tc.user
			if user == nil && tc.userErr == nil {
				user = testUser(t, "correct-horse", domain.UserStatusActive)
			}
			h := NewAuthHandler(&mockUserReader{user: user, err: tc.userErr}, secret, time.Hour)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			h.Login(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestLogin_SuspendedUserRejected(t *testing.T) {
	user := testUser(t, "correct-horse", domain.UserStatusSuspended)
	h := NewAuthHandler(&mockUserReader{user: user}, "login-test-secret", time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"ops@test.com","password":"correct-horse"}`))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogin_IssuedTokenValidates(t *testing.T) {
	const secret = "login-test-secret"
	user := testUser(t, "correct-horse", domain.UserStatusActive)
	h := NewAuthHandler(&mockUserReader{user: user}, secret, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"ops@test.com","password":"correct-horse"}`))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data loginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)

	claims, err := auth.ValidateToken(resp.Data.Token, secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.OperatorID)
	assert.Equal(t, user.Email, claims.Email)
}
