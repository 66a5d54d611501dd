package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func customerClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "user-123",
		"email": "ana@example.com",
		"role":  RoleCustomer,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestNewJWTValidator_ValidToken(t *testing.T) {
	validate := NewJWTValidator(testSecret)

	claims, err := validate(signToken(t, testSecret, customerClaims()))

	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, RoleCustomer, claims.Role)
}

func TestNewJWTValidator_WrongSecret(t *testing.T) {
	validate := NewJWTValidator(testSecret)

	_, err := validate(signToken(t, "other-secret", customerClaims()))

	assert.Error(t, err)
}

func TestNewJWTValidator_ExpiredToken(t *testing.T) {
	validate := NewJWTValidator(testSecret)
	claims := customerClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	_, err := validate(signToken(t, testSecret, claims))

	assert.Error(t, err)
}

func TestNewJWTValidator_MissingSubject(t *testing.T) {
	validate := NewJWTValidator(testSecret)
	claims := customerClaims()
	delete(claims, "sub")

	_, err := validate(signToken(t, testSecret, claims))

	assert.Error(t, err)
}

func TestNewJWTValidator_DefaultsRoleToCustomer(t *testing.T) {
	validate := NewJWTValidator(testSecret)
	claims := customerClaims()
	delete(claims, "role")

	got, err := validate(signToken(t, testSecret, claims))

	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, got.Role)
}

func authTestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Got-User", UserIDFromContext(r.Context()))
		w.Header().Set("X-Got-Role", RoleFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_InjectsClaims(t *testing.T) {
	handler := Auth(NewJWTValidator(testSecret))(authTestHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, customerClaims()))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-123", rec.Header().Get("X-Got-User"))
	assert.Equal(t, RoleCustomer, rec.Header().Get("X-Got-Role"))
}

func TestAuth_MissingHeader(t *testing.T) {
	handler := Auth(NewJWTValidator(testSecret))(authTestHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_MalformedHeader(t *testing.T) {
	handler := Auth(NewJWTValidator(testSecret))(authTestHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_Allows(t *testing.T) {
	handler := RequireRole(RoleStaff)(authTestHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), "staff-9", RoleStaff))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_Forbids(t *testing.T) {
	handler := RequireRole(RoleStaff)(authTestHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), "user-123", RoleCustomer))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
