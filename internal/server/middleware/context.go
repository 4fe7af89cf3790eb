package middleware

import (
	"github.com/MicahParks/keyfunc/v3"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/chenraccah/semantic-network-analyzer/internal/cache"
	"github.com/chenraccah/semantic-network-analyzer/pkg/insights"
	"github.com/chenraccah/semantic-network-analyzer/pkg/similarity"
	"github.com/chenraccah/semantic-network-analyzer/pkg/store"
)

// AppUser is the authenticated caller extracted from the request token.
type AppUser struct {
	UserID string
	Email  string
}

// App bundles the shared clients and services handlers reach through the
// request context. Similarity and Insights are nil when no model backend is
// configured; Key is nil outside JWKS mode.
type App struct {
	DBConn     *pgxpool.Pool
	Queue      *amqp091.Channel
	S3         *s3.Client
	Store      store.Storage
	Cache      *cache.Cache
	Similarity *similarity.Provider
	Insights   *insights.Service

	JWTSecret string
	Key       *keyfunc.Keyfunc
}

// AppContext wraps the echo context with the shared app state, the
// authenticated user, and the lazily loaded profile.
type AppContext struct {
	echo.Context
	App     *App
	User    *AppUser
	profile *store.Profile
}

// AppContextMiddleware attaches the shared app state to every request.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{Context: c, App: app}
			return next(cc)
		}
	}
}
