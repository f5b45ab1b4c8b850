package handler

import (
	"errors"
	"net/http"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/gin-gonic/gin"
)

func ok(c *gin.Context, message string, body any) {
	c.JSON(http.StatusOK, gin.H{
		"HttpStatusCode": http.StatusOK,
		"ResponseBody":   body,
		"IsSuccess":      true,
		"Message":        message,
	})
}

func fail(c *gin.Context, err error) {
	status := statusOf(err)
	c.JSON(status, gin.H{
		"HttpStatusCode": status,
		"ResponseBody":   gin.H{"code": apperr.Code(err)},
		"IsSuccess":      false,
		"Message":        err.Error(),
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidPayload), errors.Is(err, apperr.ErrInvalidRecipient):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// bind decodes the JSON body, reporting failures as invalid payloads.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, errors.Join(apperr.ErrInvalidPayload, err))
		return false
	}
	return true
}
