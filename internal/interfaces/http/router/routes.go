// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"meeting-minutes-api/internal/interfaces/http/handler"
)

func withPipeline(pipeline []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(pipeline)+1)
	chain = append(chain, pipeline...)
	return append(chain, h)
}

// RegisterV1Routes 注册 v1 版本路由；pipeline 中间件只作用于调用模型的路由
func RegisterV1Routes(v1 *gin.RouterGroup, minutesHandler *handler.MinutesHandler, pipeline ...gin.HandlerFunc) {
	minutes := v1.Group("/minutes")
	{
		minutes.POST("/transcribe", withPipeline(pipeline, minutesHandler.Transcribe)...)
		minutes.POST("/text", withPipeline(pipeline, minutesHandler.ProcessText)...)
		minutes.POST("", withPipeline(pipeline, minutesHandler.Save)...)
		minutes.GET("", minutesHandler.List)
		minutes.GET("/export", minutesHandler.Export)
		minutes.DELETE("/:id", minutesHandler.Delete)
	}

	v1.POST("/chat", withPipeline(pipeline, minutesHandler.Chat)...)
}

// RegisterLegacyRoutes 兼容旧前端的路径
func RegisterLegacyRoutes(g *gin.RouterGroup, minutesHandler *handler.MinutesHandler, pipeline ...gin.HandlerFunc) {
	g.POST("/transcribe", withPipeline(pipeline, minutesHandler.Transcribe)...)
	g.POST("/save-minutes", withPipeline(pipeline, minutesHandler.Save)...)
	g.GET("/get-minutes", minutesHandler.List)
}
