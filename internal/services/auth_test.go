package services

import (
	"context"
	"testing"
	"time"

	"github.com/nemoguigrat/uralintern/internal/config"
	"github.com/nemoguigrat/uralintern/internal/models"
	"github.com/nemoguigrat/uralintern/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T) (*AuthService, *testutil.Fixtures) {
	db := testutil.NewDB(t)
	cfg := &config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour}
	return NewAuthService(db, cfg), testutil.NewFixtures(t, db)
}

func TestLogin(t *testing.T) {
	svc, fx := newAuth(t)
	ctx := context.Background()
	user := fx.User(models.RoleCurator)

	res, err := svc.Login(ctx, "  "+user.Email+" ", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.ID)
	assert.Equal(t, models.RoleCurator, res.SystemRole)
	assert.NotEmpty(t, res.Token)

	id, err := svc.ValidateToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: user.ID, Role: models.RoleCurator}, id)

	_, err = svc.Login(ctx, user.Email, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	svc, fx := newAuth(t)
	user := fx.User(models.RoleTrainee)
	require.NoError(t, svc.db.Model(user).Update("is_active", false).Error)

	_, err := svc.Login(context.Background(), user.Email, "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejects(t *testing.T) {
	svc, fx := newAuth(t)
	ctx := context.Background()
	user := fx.User(models.RoleExpert)

	_, err := svc.ValidateToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := foreign.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	signed, err = expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, err := svc.GenerateToken(9999)
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenReadsCurrentRole(t *testing.T) {
	svc, fx := newAuth(t)
	ctx := context.Background()
	user := fx.User(models.RoleTrainee)

	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)
	require.NoError(t, svc.db.Model(user).Update("system_role", models.RoleExpert).Error)

	id, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleExpert, id.Role)

	current, err := svc.CurrentUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, user.Email, current.Email)
}
