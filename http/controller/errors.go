package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-media-gateway/service"
	"github.com/tnqbao/gau-media-gateway/utils"
)

// respondServiceError maps a service error kind onto a status. Storage and
// signing failures during ingestion are reported as bad requests, elsewhere
// they are server errors.
func (ctrl *Controller) respondServiceError(c *gin.Context, err error, tag string, ingestion bool) {
	ctx := c.Request.Context()

	switch service.KindOf(err) {
	case service.KindValidation:
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[%s] Rejected request: %v", tag, err)
		utils.JSON400(c, messageOf(err))
	case service.KindAuth:
		utils.JSON401(c, messageOf(err))
	case service.KindNotFound:
		utils.JSON404(c, "Media not found")
	case service.KindStorage, service.KindSigning:
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[%s] Object store failure", tag)
		if ingestion {
			utils.JSON400(c, messageOf(err))
			return
		}
		utils.JSON500(c, "Internal server error")
	default:
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[%s] Unexpected failure", tag)
		utils.JSON500(c, "Internal server error")
	}
}

func messageOf(err error) string {
	if svcErr, ok := err.(*service.Error); ok {
		return svcErr.Message
	}
	return err.Error()
}
