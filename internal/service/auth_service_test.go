package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/membership-api/internal/models"
	appErrors "github.com/noah-isme/membership-api/pkg/errors"
)

type mockAuthRepo struct {
	user             *models.User
	findErr          error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.user == nil || m.user.Username != username {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(context.Context, int64, time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) CreateIfAbsent(_ context.Context, user *models.User) (bool, error) {
	if m.user != nil && m.user.Username == user.Username {
		return false, nil
	}
	user.ID = 99
	m.user = user
	return true, nil
}

func newAuthFixture(t *testing.T, active bool) (*AuthService, *mockAuthRepo) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{user: &models.User{ID: 7, Username: "admin", PasswordHash: string(hash), Role: models.RoleAdmin, Active: active}}
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{AccessTokenSecret: "test-secret", AccessTokenExpiry: time.Hour, Issuer: "membership-api"})
	return svc, repo
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	svc, repo := newAuthFixture(t, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, MsgLoginSuccessful, resp.Message)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	svc, _ := newAuthFixture(t, true)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "ghost", Password: "secret"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "admin"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	inactive, _ := newAuthFixture(t, false)
	_, err = inactive.Login(ctx, models.LoginRequest{Username: "admin", Password: "secret"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)

	broken, repo := newAuthFixture(t, true)
	repo.findErr = errors.New("db down")
	_, err = broken.Login(ctx, models.LoginRequest{Username: "admin", Password: "secret"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestAuthServiceExpiredTokenIsSessionExpired(t *testing.T) {
	svc, _ := newAuthFixture(t, true)
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "secret"})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrSessionExpired)
}

func TestAuthServiceRejectsForeignSignature(t *testing.T) {
	svc, _ := newAuthFixture(t, true)
	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "other", Issuer: "membership-api"})
	other.repo = svc.repo

	resp, err := other.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.NotErrorIs(t, err, appErrors.ErrSessionExpired)
}

func TestEnsureAdminCreatesLoginableAccount(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{AccessTokenSecret: "test-secret", AccessTokenExpiry: time.Hour})

	require.NoError(t, svc.EnsureAdmin(context.Background(), " root ", "s3cret"))
	require.NotNil(t, repo.user)
	assert.Equal(t, "root", repo.user.Username)
	assert.Equal(t, models.RoleAdmin, repo.user.Role)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "root", Password: "s3cret"})
	require.NoError(t, err)
	assert.EqualValues(t, 99, res.User.ID)
}

func TestEnsureAdminKeepsExistingPassword(t *testing.T) {
	svc, repo := newAuthFixture(t, true)
	original := repo.user.PasswordHash

	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "other"))
	assert.Equal(t, original, repo.user.PasswordHash)
}

func TestEnsureAdminRequiresCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t, true)
	assert.Error(t, svc.EnsureAdmin(context.Background(), "", "x"))
}
