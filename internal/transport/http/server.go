package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/bootstrap"
	rabbitmqClient "github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/platform/rabbitmq"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/transport/http/handler"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS(app.Config.App.AllowedOrigins))

	healthHandler := handler.NewHealthHandler(
		app.Config.App.Name,
		app.Config.App.Env,
		app.StartedAt,
		app.KnowledgeBase.Len,
		dependencyChecks(app)...,
	)
	router.GET("/healthz", healthHandler.Check)

	documentHandler := handler.NewDocumentHandler(app.Library, app.Jobs)
	tutorHandler := handler.NewTutorHandler(app.Tutor)
	settingsHandler := handler.NewSettingsHandler(app.Credentials)

	v1 := router.Group("/api/v1")
	v1.POST("/documents", documentHandler.CreateDocument)
	v1.POST("/documents/pdf", documentHandler.UploadPDF)
	v1.GET("/documents", documentHandler.ListDocuments)
	v1.GET("/documents/:id", documentHandler.GetDocument)
	v1.DELETE("/documents/:id", documentHandler.DeleteDocument)
	v1.GET("/jobs/:id", documentHandler.GetJob)
	v1.POST("/search", documentHandler.Search)

	tutorGroup := v1.Group("/tutor")
	tutorGroup.POST("/messages", tutorHandler.SendMessage)
	tutorGroup.POST("/stream", tutorHandler.StreamMessage)
	tutorGroup.GET("/history", tutorHandler.GetHistory)
	tutorGroup.DELETE("/history", tutorHandler.ClearHistory)

	settingsGroup := v1.Group("/settings")
	settingsGroup.GET("/api-key", settingsHandler.GetAPIKey)
	settingsGroup.PUT("/api-key", settingsHandler.SaveAPIKey)
	settingsGroup.DELETE("/api-key", settingsHandler.DeleteAPIKey)

	return router
}

func dependencyChecks(app *bootstrap.App) []handler.DependencyCheck {
	checks := []handler.DependencyCheck{
		{Name: "storage", Check: app.Store.Ping},
	}
	if app.Redis != nil {
		checks = append(checks, handler.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}})
	}
	if app.MQConn != nil {
		checks = append(checks, handler.DependencyCheck{Name: "rabbitmq", Check: func(context.Context) error {
			return rabbitmqClient.Ping(app.MQConn)
		}})
	}
	return checks
}
