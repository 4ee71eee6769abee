package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func noRoute(c *gin.Context) {
	AbortWithError(c, ErrNotFound)
}

// orderIDParam parses the :id path segment or aborts the request with a
// validation error.
func orderIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := parseOrderID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("order_id", "invalid_order_id", "invalid order id"))
		return 0, false
	}
	return id, true
}
