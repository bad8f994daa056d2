package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/fanvue/moderation-api/pkg/errors"
)

// Envelope is the wire contract shared by every endpoint: a success flag, the
// payload, an optional human-readable message and the server timestamp.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// JSON sends a success response.
func JSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Envelope{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

// Error sends an error response. Internal detail never reaches the caller;
// only the typed error's message is exposed.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, Envelope{Success: false, Message: appErr.Message, Timestamp: time.Now().UTC()})
}
