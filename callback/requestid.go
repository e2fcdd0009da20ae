package callback

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID is set on every response.
const HeaderRequestID = "X-Request-ID"

const contextKeyRequestID = "requestId"

// requestID tags each request with an ID. A valid UUID received in header
// is reused, anything else is replaced.
func requestID(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(header)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Request.Header.Set(header, id)
		c.Header(header, id)
		c.Set(contextKeyRequestID, id)

		c.Next()
	}
}
