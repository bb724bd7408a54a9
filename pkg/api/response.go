package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every JSON answer.
type Response struct {
	Status string      `json:"status"`
	Msg    string      `json:"msg"`
	Data   interface{} `json:"data,omitempty"`
}

func respond(c *gin.Context, httpStatus int, status, message string, data interface{}) {
	c.JSON(httpStatus, Response{Status: status, Msg: message, Data: data})
}

func respondSuccess(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, "success", "", data)
}

func respondSuccessMessage(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, "success", message, data)
}

func respondError(c *gin.Context, httpStatus int, message string) {
	respond(c, httpStatus, "error", message, nil)
}
