package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mseller-cloud/mseller-server/internal/config"
	"github.com/mseller-cloud/mseller-server/internal/models"
	"github.com/mseller-cloud/mseller-server/internal/storage"
	"github.com/mseller-cloud/mseller-server/pkg/crypto"
)

type loginFakeStore struct {
	storage.Store

	user      *models.User
	updateErr error
	updates   int
}

func (f *loginFakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.user == nil || f.user.Email != email {
		return nil, storage.ErrNotFound
	}
	return f.user, nil
}

func (f *loginFakeStore) UpdateUser(ctx context.Context, user *models.User) error {
	f.updates++
	return f.updateErr
}

func newLoginTestServer(store storage.Store) *RESTServer {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	return NewRESTServer(cfg, Deps{Store: store})
}

func loginBody(t *testing.T, email, password string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)
	return body
}

func seedLoginUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := crypto.HashPassword(password)
	require.NoError(t, err)

	u := &models.User{
		Email:        "seller@example.com",
		PasswordHash: hash,
		FirstName:    "Pedro",
		LastName:     "Gomez",
		Role:         models.RoleSeller,
	}
	u.ID = uuid.New()
	return u
}

func TestLoginStampsLastSeen(t *testing.T) {
	store := &loginFakeStore{user: seedLoginUser(t, "secret-pass")}
	s := newLoginTestServer(store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader(loginBody(t, "seller@example.com", "secret-pass")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.updates)
	assert.NotNil(t, store.user.LastSeenAt)
}

func TestLoginSurvivesLastSeenFailure(t *testing.T) {
	store := &loginFakeStore{
		user:      seedLoginUser(t, "secret-pass"),
		updateErr: assert.AnError,
	}
	s := newLoginTestServer(store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader(loginBody(t, "seller@example.com", "secret-pass")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	// The session is issued even when the last-seen stamp fails
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])
	assert.NotEmpty(t, resp["refresh_token"])
}

func TestLoginRejectsBadPassword(t *testing.T) {
	store := &loginFakeStore{user: seedLoginUser(t, "secret-pass")}
	s := newLoginTestServer(store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		bytes.NewReader(loginBody(t, "seller@example.com", "wrong")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, store.updates)
}
