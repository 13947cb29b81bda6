package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func respond(c *gin.Context, status int, body interface{}) {
	if body == nil {
		c.Status(status)
		return
	}
	c.JSON(status, body)
}

// respondError maps err to its HTTP status. Server side failures are masked.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ae *errors.AppError
	if !errors.As(err, &ae) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Code:    string(errors.ErrCodeInternal),
			Message: "internal server error",
		})
		return
	}
	status := errors.HTTPStatusForCode(ae.Code)
	body := ErrorResponse{Code: string(ae.Code), Message: ae.Message, Detail: ae.Detail}
	if ae.Code == errors.ErrCodeInternal {
		body.Message = "internal server error"
		body.Detail = ""
	}
	c.AbortWithStatusJSON(status, body)
}

// bind decodes the JSON body into dst.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return false
	}
	return true
}
