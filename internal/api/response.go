package api

import (
	"github.com/gin-gonic/gin"
)

// envelope is the success half of the response contract. Failures are
// written by middleware.ErrorHandler with the same status/message fields.
type envelope struct {
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func respond(c *gin.Context, status int, data any, message string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, envelope{
		Status:  status,
		Success: status < 400,
		Data:    data,
		Message: message,
	})
}

// fail hands err to the error middleware. Handlers call it and return.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}
