package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine with logging, recovery and CORS in place
func NewRouter(handler *Handler, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(handler.logger))

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(corsOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = corsOrigins
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, handler)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.Health)

	api := router.Group("/api")
	{
		api.GET("/properties", handler.ListProperties)
		api.GET("/properties/:id", handler.GetProperty)
		api.GET("/properties/:id/similar", handler.GetSimilarProperties)

		api.GET("/map/markers", handler.GetMarkers)
		api.GET("/map/geojson", handler.GetGeoJSON)
		api.GET("/map/clusters", handler.GetClusters)

		api.POST("/sessions", handler.CreateSession)
		api.GET("/sessions/:id", handler.GetSession)
		api.DELETE("/sessions/:id", handler.DeleteSession)
		api.POST("/sessions/:id/select", handler.SelectProperty)
		api.POST("/sessions/:id/clear", handler.ClearSelection)
		api.POST("/sessions/:id/next", handler.NextProperty)
		api.POST("/sessions/:id/previous", handler.PreviousProperty)
		api.PUT("/sessions/:id/page", handler.SetPage)
		api.GET("/sessions/:id/view", handler.GetView)
		api.GET("/sessions/:id/conversation", handler.StreamConversation)

		api.POST("/calls", handler.RequestCall)
	}
}
