// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *RouterHandlers) {
	v1.GET("/test_connection", h.Health.TestConnection)

	// 脚本生成
	scripts := v1.Group("/scripts")
	{
		scripts.POST("/generate", h.Script.GenerateScript)
		scripts.GET("/form", h.Script.GetFormData)
	}

	// 当前脚本
	script := v1.Group("/script")
	{
		script.GET("", h.Script.GetScript)
		script.PUT("", h.Script.EditScript)
		script.PUT("/selection", h.Script.SetSelection)
		script.DELETE("/selection", h.Script.ClearSelection)

		script.POST("/refine", h.Refine.Refine)
		script.GET("/validation", h.Refine.GetValidation)
		script.DELETE("/validation", h.Refine.DismissValidation)

		script.GET("/versions", h.Version.ListVersions)
		script.POST("/versions", h.Version.CreateSnapshot)
		script.GET("/versions/:vid/diff", h.Version.DiffVersion)
		script.POST("/versions/:vid/restore", h.Version.RestoreVersion)
	}

	// 音频
	audio := v1.Group("/audio")
	{
		audio.POST("", h.Audio.GenerateAudio)
		audio.GET("/versions", h.Audio.ListAudio)
		audio.GET("/versions/:aid", h.Audio.LoadAudio)
	}

	v1.DELETE("/session", h.Session.DeleteSession)
}
