package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/smartcanteen/backend-canteen/internal/auth"
	"github.com/smartcanteen/backend-canteen/internal/common"
	"github.com/smartcanteen/backend-canteen/internal/db"
)

type stubQuerier struct {
	users map[string]db.User
}

func newStubQuerier() *stubQuerier {
	return &stubQuerier{users: map[string]db.User{}}
}

func (s *stubQuerier) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	u := db.User{
		ID:           arg.ID,
		Name:         arg.Name,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Role:         arg.Role,
		CreatedAt:    time.Now(),
	}
	s.users[u.Email] = u
	return u, nil
}

func (s *stubQuerier) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	u, ok := s.users[email]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *stubQuerier) GetUserByID(_ context.Context, id string) (db.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func newService(t *testing.T, q auth.Querier) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(auth.Config{
		Queries:        q,
		Secret:         "test-secret-test-secret",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterAssignsUserRole(t *testing.T) {
	q := newStubQuerier()
	svc := newService(t, q)

	user, err := svc.Register(context.Background(), "Asha", "Asha@Example.com ", "hunter2secret")
	require.NoError(t, err)
	require.Equal(t, common.RoleUser, user.Role)
	require.Equal(t, "asha@example.com", user.Email)

	stored := q.users["asha@example.com"]
	ok, err := argon2id.ComparePasswordAndHash("hunter2secret", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t, newStubQuerier())

	_, err := svc.Register(context.Background(), "", "a@b.com", "hunter2secret")
	require.Error(t, err)

	_, err = svc.Register(context.Background(), "Asha", "a@b.com", "short")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestLoginIssuesTokenWithRole(t *testing.T) {
	q := newStubQuerier()
	svc := newService(t, q)

	_, err := svc.Register(context.Background(), "Asha", "asha@example.com", "hunter2secret")
	require.NoError(t, err)

	result, err := svc.Login(context.Background(), "asha@example.com", "hunter2secret")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	session, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.User.ID, session.UserID)
	require.Equal(t, common.RoleUser, session.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	q := newStubQuerier()
	svc := newService(t, q)

	_, err := svc.Register(context.Background(), "Asha", "asha@example.com", "hunter2secret")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "asha@example.com", "wrong-password")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	q := newStubQuerier()
	svc := newService(t, q)

	_, err := svc.Register(context.Background(), "Asha", "asha@example.com", "hunter2secret")
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	svc.WithNow(func() time.Time { return past })
	result, err := svc.Login(context.Background(), "asha@example.com", "hunter2secret")
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	svc := newService(t, newStubQuerier())
	_, err := svc.ParseAccessToken("not-a-token")
	require.Error(t, err)
	_, err = svc.ParseAccessToken("")
	require.Error(t, err)
}
