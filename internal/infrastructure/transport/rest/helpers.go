package rest

import (
	"github.com/gin-gonic/gin"
)

// SuccessResponse is the envelope every 2xx JSON response carries.
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

func respondJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{Data: data})
}

func respondAPIError(c *gin.Context, err error) {
	apiErr := TranslateError(err)
	c.JSON(apiErr.HTTPStatus, apiErr)
}

func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondAPIError(c, ErrInvalidJSON)
		return err
	}
	return nil
}
