package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/interview-backend/internal/response"
)

// ContextKeySessionID is the Gin context key for the parsed :id parameter.
const ContextKeySessionID = "session_id"

// ParseSessionID validates the :id path parameter as a session UUID.
func ParseSessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.AbortFail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		c.Set(ContextKeySessionID, id)
		c.Next()
	}
}

// GetSessionID returns the id stored by ParseSessionID.
func GetSessionID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(ContextKeySessionID)
	v, _ := id.(uuid.UUID)
	return v
}
