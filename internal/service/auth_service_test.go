package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lab-booking-api/internal/models"
	appErrors "github.com/noah-isme/lab-booking-api/pkg/errors"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) FindByID(context.Context, string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func newAuthFixture(t *testing.T, active bool) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeUserRepo{byEmail: map[string]*models.User{
		"faculty@lab.edu": {
			ID:           "faculty-1",
			Email:        "faculty@lab.edu",
			PasswordHash: string(hash),
			FullName:     "Dana Faculty",
			Role:         models.RoleFaculty,
			Active:       active,
		},
	}}
	return NewAuthService(repo, nil, nil, AuthConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "lab-booking-api"})
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	svc := newAuthFixture(t, true)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "faculty@lab.edu", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, models.RoleFaculty, res.User.Role)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "faculty-1", claims.UserID)
	assert.Equal(t, models.RoleFaculty, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc := newAuthFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "faculty@lab.edu", Password: "wrong"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := newAuthFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@lab.edu", Password: "s3cret"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	svc := newAuthFixture(t, false)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "faculty@lab.edu", Password: "s3cret"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceValidateGarbageToken(t *testing.T) {
	svc := newAuthFixture(t, true)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
