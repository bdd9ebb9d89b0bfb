package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Error writes the uniform error body. Callers must pass a safe message;
// internal detail never goes on the wire.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
