package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mseller-cloud/mseller-server/internal/config"
	"github.com/mseller-cloud/mseller-server/internal/models"
)

func testManager() *JWTManager {
	return NewJWTManager(&config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})
}

func testUser() *models.User {
	return &models.User{
		BaseModel:  models.BaseModel{ID: uuid.New()},
		BusinessID: uuid.New(),
		Email:      "vendedor@example.com",
		Role:       models.RoleSeller,
		SellerCode: "V042",
		Warehouse:  "A1",
	}
}

func TestTokenPairRoundTrip(t *testing.T) {
	m := testManager()
	user := testUser()

	access, refresh, err := m.GenerateTokenPair(user)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.BusinessID, claims.BusinessID)
	assert.Equal(t, models.RoleSeller, claims.Role)
	assert.Equal(t, "V042", claims.SellerCode)
	assert.Equal(t, "A1", claims.Warehouse)
	assert.False(t, claims.IsAdministrator())
}

func TestRefreshTokenCarriesSubjectOnly(t *testing.T) {
	m := testManager()
	user := testUser()

	_, refresh, err := m.GenerateTokenPair(user)
	require.NoError(t, err)

	userID, err := m.ParseRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	m := testManager()
	access, _, err := m.GenerateTokenPair(testUser())
	require.NoError(t, err)

	other := NewJWTManager(&config.JWTConfig{
		Secret:          "another-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	_, err = other.ValidateToken(access)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager(&config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  -time.Minute,
		RefreshTokenTTL: time.Hour,
	})

	access, _, err := m.GenerateTokenPair(testUser())
	require.NoError(t, err)

	_, err = m.ValidateToken(access)
	assert.Error(t, err)
}

func TestAdministratorClaims(t *testing.T) {
	m := testManager()
	user := testUser()
	user.Role = models.RoleAdministrator
	user.SellerCode = ""

	access, _, err := m.GenerateTokenPair(user)
	require.NoError(t, err)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	assert.True(t, claims.IsAdministrator())
	assert.False(t, claims.IsSuperuser())
}
