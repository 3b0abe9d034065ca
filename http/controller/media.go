package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tnqbao/gau-media-gateway/http/controller/dto"
	"github.com/tnqbao/gau-media-gateway/repository"
	"github.com/tnqbao/gau-media-gateway/service"
	"github.com/tnqbao/gau-media-gateway/utils"
)

// ownerFromContext reads the identity injected by the auth middleware.
func (ctrl *Controller) ownerFromContext(c *gin.Context, tag string) (uuid.UUID, bool) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(c.Request.Context(), "[%s] user_id not found in context: %v", tag, err)
		utils.JSON401(c, "Unauthorized: user_id not found")
		return uuid.Nil, false
	}
	return userID, true
}

// mediaIDFromPath treats malformed ids as missing records.
func mediaIDFromPath(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON404(c, "Media not found")
		return uuid.Nil, false
	}
	return id, true
}

func (ctrl *Controller) UploadMedia(c *gin.Context) {
	ctx := c.Request.Context()
	ownerID, ok := ctrl.ownerFromContext(c, "Upload")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			ctrl.Infra.Logger.WarningWithContextf(ctx, "[Upload] Request body above %d bytes", maxBytesErr.Limit)
			utils.JSON400(c, fmt.Sprintf("file too large: request body exceeds the upload limit of %d bytes", maxBytesErr.Limit))
			return
		}
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Upload] Failed to get file from form data: %v", err)
		utils.JSON400(c, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Upload] Failed to open uploaded file")
		utils.JSON400(c, "Failed to read file")
		return
	}
	defer file.Close()

	result, err := ctrl.Orchestrator.Upload(ctx, service.UploadInput{
		OwnerID:  ownerID,
		Mime:     fileHeader.Header.Get("Content-Type"),
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Body:     file,
	})
	if err != nil {
		ctrl.respondServiceError(c, err, "Upload", true)
		return
	}

	utils.JSON201(c, dto.UploadResponse{
		Media:      result.Media,
		PreviewURL: result.PreviewURL,
	})
}

func (ctrl *Controller) RequestSignedUpload(c *gin.Context) {
	ownerID, ok := ctrl.ownerFromContext(c, "SignedUpload")
	if !ok {
		return
	}

	var req dto.SignedUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	grant, err := ctrl.Orchestrator.RequestSignedUpload(c.Request.Context(), ownerID, req.Mime)
	if err != nil {
		ctrl.respondServiceError(c, err, "SignedUpload", true)
		return
	}

	utils.JSON200(c, dto.SignedUploadResponse{
		Bucket:    grant.Bucket,
		Path:      grant.Path,
		UploadURL: grant.UploadURL,
		Token:     grant.Token,
		ExpiresAt: grant.ExpiresAt.Unix(),
	})
}

func (ctrl *Controller) CommitMedia(c *gin.Context) {
	ownerID, ok := ctrl.ownerFromContext(c, "Commit")
	if !ok {
		return
	}

	var req dto.CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	media, err := ctrl.Orchestrator.Commit(c.Request.Context(), service.CommitInput{
		OwnerID:     ownerID,
		Bucket:      req.Bucket,
		Path:        req.Path,
		Mime:        req.Mime,
		SizeBytes:   req.SizeBytes,
		Kind:        req.Kind,
		Width:       req.Width,
		Height:      req.Height,
		DurationSec: req.DurationSec,
		Token:       req.Token,
	})
	if err != nil {
		ctrl.respondServiceError(c, err, "Commit", true)
		return
	}

	utils.JSON201(c, dto.MediaResponse{Media: media})
}

func (ctrl *Controller) GetMediaURL(c *gin.Context) {
	ownerID, ok := ctrl.ownerFromContext(c, "Media")
	if !ok {
		return
	}
	id, ok := mediaIDFromPath(c)
	if !ok {
		return
	}

	url, err := ctrl.Library.ReadURL(c.Request.Context(), id, ownerID)
	if err != nil {
		ctrl.respondServiceError(c, err, "Media", false)
		return
	}

	utils.JSON200(c, dto.URLResponse{URL: url})
}

func (ctrl *Controller) ListMyMedia(c *gin.Context) {
	ownerID, ok := ctrl.ownerFromContext(c, "Media")
	if !ok {
		return
	}

	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.JSON400(c, "Invalid pagination parameters")
		return
	}

	page, err := ctrl.Library.ListMine(c.Request.Context(), ownerID, repository.ListOptions{
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		ctrl.respondServiceError(c, err, "Media", false)
		return
	}

	utils.JSON200(c, dto.ListResponse{Items: page.Items, Total: page.Total})
}

func (ctrl *Controller) ListAllMedia(c *gin.Context) {
	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.JSON400(c, "Invalid pagination parameters")
		return
	}

	page, err := ctrl.Library.ListAll(c.Request.Context(), repository.ListOptions{
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		ctrl.respondServiceError(c, err, "Media", false)
		return
	}

	utils.JSON200(c, dto.ListResponse{Items: page.Items, Total: page.Total})
}

func (ctrl *Controller) DeleteMedia(c *gin.Context) {
	ownerID, ok := ctrl.ownerFromContext(c, "Media")
	if !ok {
		return
	}
	id, ok := mediaIDFromPath(c)
	if !ok {
		return
	}

	if err := ctrl.Library.Delete(c.Request.Context(), id, ownerID); err != nil {
		ctrl.respondServiceError(c, err, "Media", false)
		return
	}

	c.Status(http.StatusNoContent)
}

// DownloadMedia redirects any caller holding an id to a one-hour URL.
func (ctrl *Controller) DownloadMedia(c *gin.Context) {
	id, ok := mediaIDFromPath(c)
	if !ok {
		return
	}

	url, media, err := ctrl.Library.DownloadURL(c.Request.Context(), id)
	if err != nil {
		ctrl.respondServiceError(c, err, "Download", false)
		return
	}

	if requester := c.GetString("user_id"); requester != "" && requester != media.UserID.String() {
		ctrl.Infra.Logger.InfoWithContextf(c.Request.Context(), "[Download] User %s downloaded media %s owned by %s", requester, id, media.UserID)
	}

	c.Redirect(http.StatusFound, url)
}

func (ctrl *Controller) Health(c *gin.Context) {
	if err := ctrl.Library.Health(c.Request.Context()); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(c.Request.Context(), err, "[Health] Object store unhealthy")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	utils.JSON200(c, gin.H{"status": "ok"})
}
