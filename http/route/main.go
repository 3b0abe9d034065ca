package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-media-gateway/http/controller"
	middlewares "github.com/tnqbao/gau-media-gateway/http/middleware"
	"github.com/tnqbao/gau-media-gateway/utils"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), nil, "[HTTP] Recovered from panic: %v", recovered)
		utils.JSON500(c, "Internal server error")
	}))
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}
	r.Use(middles.CORSMiddleware)

	r.GET("/healthz", ctrl.Health)
	r.POST("/upload", middles.AuthMiddleware, middles.UploadLimitMiddleware, ctrl.UploadMedia)

	mediaRoutes := r.Group("/media")
	{
		mediaRoutes.GET("/all", ctrl.ListAllMedia)
		mediaRoutes.GET("/:id/download", middles.OptionalAuthMiddleware, ctrl.DownloadMedia)

		authed := mediaRoutes.Group("")
		authed.Use(middles.AuthMiddleware)
		{
			authed.POST("/signed-upload", ctrl.RequestSignedUpload)
			authed.POST("/commit", ctrl.CommitMedia)
			authed.GET("", ctrl.ListMyMedia)
			authed.GET("/:id/url", ctrl.GetMediaURL)
			authed.DELETE("/:id", ctrl.DeleteMedia)
		}
	}

	return r
}
