package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type ValidationResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func JSON(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

func Message(c *gin.Context, status int, message string) {
	c.JSON(status, MessageResponse{Message: message})
}

func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, MessageResponse{Message: message})
}

func Unauthenticated(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthenticated.")
}

func ServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Server Error")
}

// Validation writes 422 with the first failure as the summary message.
func Validation(c *gin.Context, fields map[string][]string, order ...string) {
	message := "The given data was invalid."
	for _, field := range order {
		if msgs := fields[field]; len(msgs) > 0 {
			message = msgs[0]
			break
		}
	}
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ValidationResponse{
		Message: message,
		Errors:  fields,
	})
}
