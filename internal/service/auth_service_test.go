package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutoria-app/tutoria-api/internal/models"
	"github.com/tutoria-app/tutoria-api/pkg/config"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
)

type mockAuthUserRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	seq           int
}

func newMockAuthUserRepo() *mockAuthUserRepo {
	return &mockAuthUserRepo{
		users:         map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
	}
}

func (m *mockAuthUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAuthUserRepo) Create(ctx context.Context, user *models.User) error {
	m.seq++
	user.ID = fmt.Sprintf("u-%d", m.seq)
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockAuthUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		u.UpdatedAt = updatedAt
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockAuthUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.seq++
	token.ID = fmt.Sprintf("rt-%d", m.seq)
	cp := *token
	m.refreshTokens[token.Token] = &cp
	return nil
}

func (m *mockAuthUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if rt, ok := m.refreshTokens[token]; ok {
		cp := *rt
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, rt := range m.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockAuthUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	now := time.Now()
	for _, rt := range m.refreshTokens {
		if rt.UserID == userID {
			rt.Revoked = true
			rt.RevokedAt = &now
		}
	}
	return nil
}

type mockProfileProvisioner struct {
	upserts []string
}

func (m *mockProfileProvisioner) Upsert(ctx context.Context, professor *models.Professor) error {
	m.upserts = append(m.upserts, professor.UserID)
	return nil
}

func newAuthFixture() (*AuthService, *mockAuthUserRepo, *mockProfileProvisioner) {
	users := newMockAuthUserRepo()
	directory := &mockProfileProvisioner{}
	cfg := config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        15 * time.Minute,
		RefreshExpiration: 24 * time.Hour,
		Issuer:            "tutoria-test",
	}
	return NewAuthService(users, directory, cfg, nil, nil), users, directory
}

func TestRegisterTeacherProvisionsProfile(t *testing.T) {
	svc, users, directory := newAuthFixture()

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "prof@example.com",
		Password: "supersecret",
		FullName: "Prof One",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, info.Role)
	assert.Equal(t, []string{info.ID}, directory.upserts)
	assert.Len(t, users.users, 1)
}

func TestRegisterStudentSkipsProfile(t *testing.T) {
	svc, _, directory := newAuthFixture()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "student@example.com",
		Password: "supersecret",
		FullName: "Student One",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Empty(t, directory.upserts)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()

	req := models.RegisterRequest{
		Email:    "dup@example.com",
		Password: "supersecret",
		FullName: "Dup",
		Role:     models.RoleStudent,
	}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestLoginAndParseToken(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "prof@example.com",
		Password: "supersecret",
		FullName: "Prof One",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	claims, err := svc.ParseToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "prof@example.com",
		Password: "supersecret",
		FullName: "Prof One",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "prof@example.com", Password: "wrong"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "prof@example.com",
		Password: "supersecret",
		FullName: "Prof One",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@example.com", Password: "supersecret"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the presented token was revoked during rotation
	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, users, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "prof@example.com",
		Password: "supersecret",
		FullName: "Prof One",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@example.com", Password: "supersecret"})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), login.User.ID, models.ChangePasswordRequest{
		OldPassword: "supersecret",
		NewPassword: "evenmoresecret",
	})
	require.NoError(t, err)

	assert.True(t, users.refreshTokens[login.RefreshToken].Revoked)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "prof@example.com", Password: "evenmoresecret"})
	require.NoError(t, err)
}
