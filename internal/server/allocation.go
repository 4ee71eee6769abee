package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	allocationdomain "github.com/smallbiznis/stockroute/internal/allocation/domain"
)

type serialsRequest struct {
	SerialNumbers []string `json:"serial_numbers"`
}

type setConditionRequest struct {
	SerialNumbers []string `json:"serial_numbers"`
	Functional    *bool    `json:"functional"`
}

func (s *Server) GetOrderPlan(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	resp, err := s.allocationSvc.Plan(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReserveUnits(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	var req serialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	reserved, err := s.allocationSvc.Reserve(c.Request.Context(), id, req.SerialNumbers)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"reserved": reserved}})
}

func (s *Server) RebindUnits(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	var req serialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.allocationSvc.Rebind(c.Request.Context(), id, req.SerialNumbers)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReleaseOrderReservations(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	released, err := s.allocationSvc.ReleaseAll(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"released": released}})
}

func (s *Server) ReleaseUnits(c *gin.Context) {
	var req serialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	released, err := s.allocationSvc.Release(c.Request.Context(), req.SerialNumbers)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"released": released}})
}

func (s *Server) SetUnitCondition(c *gin.Context) {
	var req setConditionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Functional == nil {
		AbortWithError(c, newValidationError("functional", "invalid_functional", "functional is required"))
		return
	}

	affected, err := s.allocationSvc.SetCondition(c.Request.Context(), req.SerialNumbers, *req.Functional)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"affected": affected}})
}

func (s *Server) ChangeUnitState(c *gin.Context) {
	var req allocationdomain.ChangeStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.allocationSvc.ChangeState(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
