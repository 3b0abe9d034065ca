package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func jsonError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Message: message}})
}

func JSON200(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func JSON201(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func JSON400(c *gin.Context, message string) {
	jsonError(c, http.StatusBadRequest, message)
}

func JSON401(c *gin.Context, message string) {
	jsonError(c, http.StatusUnauthorized, message)
}

func JSON404(c *gin.Context, message string) {
	jsonError(c, http.StatusNotFound, message)
}

func JSON500(c *gin.Context, message string) {
	jsonError(c, http.StatusInternalServerError, message)
}
