package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/paystream/accounts/internal/model"
)

// respondOK writes a success envelope. data may be nil.
func respondOK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, model.Envelope{Status: true, Message: message, Data: data})
}

// respondError writes a failure envelope. errs carries field-level detail
// when present and is omitted from the JSON otherwise.
func respondError(c *gin.Context, status int, message string, errs any) {
	c.JSON(status, model.Envelope{Status: false, Message: message, Errors: errs})
}
