package web

import (
	"plantcare/auth"
	"plantcare/internal/db"
	"plantcare/internal/stream"
	"plantcare/internal/web/api"
	"plantcare/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

type WebServer struct {
	router *gin.Engine
}

func NewWebServer(dbConn *db.DB, telemetryStream *stream.Stream, authModule *auth.AuthModule) *WebServer {
	router := gin.Default()

	middlewareManager := middleware.NewMiddlewareManager(authModule)

	api.RegisterCommandRoutes(router, middlewareManager, dbConn)
	api.RegisterTelemetryRoutes(router, middlewareManager, dbConn, telemetryStream)
	api.RegisterAlertRoutes(router, middlewareManager, dbConn)

	return &WebServer{router: router}
}

func (ws *WebServer) Start(addr string) error {
	return ws.router.Run(addr)
}
