package server

import (
	"github.com/chenraccah/semantic-network-analyzer/internal/server/middleware"
	"github.com/chenraccah/semantic-network-analyzer/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "healthy"})
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Upload inspection routes
	apiRoutes.GET("/stopwords", routes.GetStopwordsHandler)
	apiRoutes.POST("/preview", routes.PreviewFileHandler)

	// Synchronous analysis routes
	apiRoutes.POST("/analyze/single", routes.AnalyzeSingleHandler,
		middleware.RequireAnalysisQuota, middleware.RequireSemantic)
	apiRoutes.POST("/analyze/compare", routes.AnalyzeCompareHandler,
		middleware.RequireAnalysisQuota, middleware.RequireGroups(2), middleware.RequireSemantic)
	apiRoutes.POST("/analyze/word-pairs", routes.AnalyzeWordPairsHandler,
		middleware.RequireAnalysisQuota, middleware.RequireGroups(2))
	apiRoutes.POST("/analyze", routes.AnalyzeMultiHandler,
		middleware.RequireAnalysisQuota, middleware.RequireSemantic)

	// Background analysis routes
	apiRoutes.POST("/analyze/async", routes.AnalyzeAsyncHandler, middleware.RequireAnalysisQuota)
	apiRoutes.GET("/analyses", routes.ListAnalysesHandler)
	apiRoutes.GET("/analyses/:id", routes.GetAnalysisHandler)
	apiRoutes.DELETE("/analyses/:id", routes.DeleteAnalysisHandler)

	// Result consumption routes
	apiRoutes.POST("/export/:format", routes.ExportAnalysisHandler, middleware.RequireExport)
	apiRoutes.POST("/chat", routes.ChatAnalysisHandler, middleware.RequireChatQuota)

	// Plan routes
	apiRoutes.GET("/limits", routes.GetLimitsHandler)
}
