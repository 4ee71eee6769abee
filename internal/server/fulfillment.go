package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	fulfillmentdomain "github.com/smallbiznis/stockroute/internal/fulfillment/domain"
)

func (s *Server) CompleteOrder(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	var req fulfillmentdomain.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.OrderID = id

	resp, err := s.fulfillmentSvc.Complete(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrderHistory(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	resp, err := s.historySvc.ExpandOrder(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
