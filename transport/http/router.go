package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xblckmrq/signatory-role/ports"
	"github.com/0xblckmrq/signatory-role/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(svc *service.VerificationService, links ports.LinkTokenizer, webDir string, logger *slog.Logger) *gin.Engine {
	router := gin.Default()

	handlers := NewVerificationHandlers(svc, links, logger)

	api := router.Group("/api")
	{
		api.POST("/signature", handlers.SubmitSignature)
	}

	router.GET("/healthz", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Static signer page obtaining the wallet signature in the browser
	if webDir != "" {
		router.Static("/signer", webDir)
		router.StaticFile("/signer.html", webDir+"/signer.html")
	}

	return router
}
