package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartcanteen/backend-canteen/internal/auth"
	"github.com/smartcanteen/backend-canteen/internal/common"
)

func loginToken(t *testing.T, svc *auth.Service, email string) string {
	t.Helper()
	result, err := svc.Login(context.Background(), email, "hunter2secret")
	require.NoError(t, err)
	return result.AccessToken
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuthAcceptsBearerToken(t *testing.T) {
	q := newStubQuerier()
	svc := newService(t, q)
	_, err := svc.Register(context.Background(), "Asha", "asha@example.com", "hunter2secret")
	require.NoError(t, err)

	mw := auth.Middleware{Service: svc}
	var seen common.Session
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.SessionFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/cart", nil)
	req.Header.Set("Authorization", "Bearer "+loginToken(t, svc, "asha@example.com"))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusNoContent, recorder.Code)
	require.Equal(t, common.RoleUser, seen.Role)
	require.NotEmpty(t, seen.UserID)
}

func TestRequireAuthAcceptsCookie(t *testing.T) {
	q := newStubQuerier()
	svc := newService(t, q)
	_, err := svc.Register(context.Background(), "Asha", "asha@example.com", "hunter2secret")
	require.NoError(t, err)

	mw := auth.Middleware{Service: svc, AccessCookie: "access_token"}
	handler := mw.RequireAuth(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/cart", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: loginToken(t, svc, "asha@example.com")})
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestRequireAuthRejectsMissingAndBadTokens(t *testing.T) {
	mw := auth.Middleware{Service: newService(t, newStubQuerier())}
	handler := mw.RequireAuth(okHandler())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/user/cart", nil))
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRequireRole(t *testing.T) {
	handler := auth.RequireRole(common.RoleAdmin)(okHandler())

	asRole := func(role common.Role) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
		req = req.WithContext(common.WithSession(req.Context(), common.Session{UserID: "u1", Role: role}))
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		return recorder
	}

	require.Equal(t, http.StatusNoContent, asRole(common.RoleAdmin).Code)
	require.Equal(t, http.StatusForbidden, asRole(common.RoleUser).Code)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil))
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}
