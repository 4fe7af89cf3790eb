package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// tokenAudience is the audience claim stamped on end-user tokens by the
// auth provider.
const tokenAudience = "authenticated"

// devUser stands in for an authenticated caller when no token verification
// is configured, so local setups work without an auth provider.
var devUser = AppUser{UserID: "dev-user", Email: "dev@example.com"}

// AuthMiddleware verifies the bearer token and attaches the caller to the
// request context. Tokens are checked against the JWKS endpoint when one is
// configured, otherwise against the shared HS256 secret. With neither
// configured every request runs as the development user.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cc := c.(*AppContext)
		app := cc.App

		if app.JWTSecret == "" && app.Key == nil {
			user := devUser
			cc.User = &user
			return next(c)
		}

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing authentication credentials"})
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		var (
			parsed *jwt.Token
			err    error
		)
		if app.Key != nil {
			parsed, err = jwt.Parse(token, (*app.Key).Keyfunc,
				jwt.WithAudience(tokenAudience))
		} else {
			parsed, err = jwt.Parse(token,
				func(t *jwt.Token) (any, error) { return []byte(app.JWTSecret), nil },
				jwt.WithAudience(tokenAudience),
				jwt.WithValidMethods([]string{"HS256"}))
		}
		if err != nil || !parsed.Valid {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
		}
		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token: missing user ID"})
		}

		user := AppUser{UserID: sub}
		if email, ok := claims["email"].(string); ok {
			user.Email = email
		}
		cc.User = &user

		return next(c)
	}
}
