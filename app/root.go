package app

import (
	"net/http"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"

	"github.com/gin-gonic/gin"
)

// Heartbeat lets frontends and load balancers check if the API is reachable.
func Heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Validate confirms that the caller's token is still valid and returns the
// account it belongs to. Runs behind the JWT middleware, so reaching this
// handler already means the token checked out.
func Validate(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var user model.User
	err := d.DB.
		Where("id = ?", c.MustGet("userID").(string)).
		First(&user).
		Error
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid session",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"user":  user,
	})
}
