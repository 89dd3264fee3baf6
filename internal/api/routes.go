package api

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups the handlers mounted under /v1. Ws may be nil when no
// Redis is configured.
type Handlers struct {
	Sessions  *SessionHandler
	Templates *TemplateHandler
	Ws        *WsHandler
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, h Handlers) {
	v1 := router.Group("/v1")
	{
		if h.Ws != nil {
			v1.GET("/ws", h.Ws.HandleConnection)
		}

		v1.GET("/templates", h.Templates.ListTemplates)
		v1.GET("/templates/:id", h.Templates.GetTemplate)

		v1.POST("/sessions", h.Sessions.CreateSession)
		sessionGroup := v1.Group("/sessions/:id")
		{
			sessionGroup.GET("", h.Sessions.GetSession)
			sessionGroup.DELETE("", h.Sessions.DeleteSession)
			sessionGroup.PUT("/snapshot", h.Sessions.PutSnapshot)
			sessionGroup.PUT("/template", h.Sessions.PutTemplate)
			sessionGroup.PUT("/zoom", h.Sessions.PutZoom)
			sessionGroup.PUT("/autoscale", h.Sessions.PutAutoscale)
			sessionGroup.PUT("/viewport", h.Sessions.PutViewport)
			sessionGroup.POST("/retry", h.Sessions.Retry)
			sessionGroup.GET("/download", h.Sessions.Download)
			sessionGroup.GET("/preview", h.Sessions.Preview)
			sessionGroup.GET("/history", h.Sessions.History)
		}
	}
}
