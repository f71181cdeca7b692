package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sav-service/internal/domain"
	apperrors "github.com/spec-kit/sav-service/pkg/util/errorutil"
)

func newTestApp(tm *TokenManager, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/me", NewAuthMiddleware(tm).Handle, guard, func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(string(p.Role) + ":" + p.SubjectID)
	})
	return app
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	client := "acme"
	token, exp, err := tm.GenerateToken("u-1", domain.RoleClient, &client)
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, domain.RoleClient, claims.Role)
	require.NotNil(t, claims.ClientID)
	assert.Equal(t, "acme", *claims.ClientID)
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", 5).GenerateToken("u-1", domain.RoleAdmin, nil)
	require.NoError(t, err)
	_, err = NewTokenManager("two", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	admin, _, err := tm.GenerateToken("a-1", domain.RoleAdmin, nil)
	require.NoError(t, err)
	support, _, err := tm.GenerateToken("s-1", domain.RoleSupport, nil)
	require.NoError(t, err)
	orphanClient, _, err := tm.GenerateToken("c-1", domain.RoleClient, nil)
	require.NoError(t, err)

	app := newTestApp(tm, RequireRole(domain.RoleAdmin))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic abc", fiber.StatusUnauthorized},
		{"garbage token", "Bearer nope", fiber.StatusUnauthorized},
		{"client without client id", "Bearer " + orphanClient, fiber.StatusUnauthorized},
		{"insufficient role", "Bearer " + support, fiber.StatusForbidden},
		{"admin", "Bearer " + admin, fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRequireStaff(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	client := "acme"
	clientToken, _, err := tm.GenerateToken("c-1", domain.RoleClient, &client)
	require.NoError(t, err)
	supportToken, _, err := tm.GenerateToken("s-1", domain.RoleSupport, nil)
	require.NoError(t, err)

	app := newTestApp(tm, RequireStaff())

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+clientToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+supportToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
