package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	businessdomain "github.com/smallbiznis/stockroute/internal/business/domain"
)

type createBusinessRequest struct {
	Name      string `json:"name"`
	IsService bool   `json:"is_service"`
}

type setServiceStatusRequest struct {
	IsService *bool `json:"is_service"`
}

func (s *Server) ListBusinesses(c *gin.Context) {
	resp, err := s.businessSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateBusiness(c *gin.Context) {
	var req createBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.businessSvc.Create(c.Request.Context(), businessdomain.CreateRequest{
		Name:      strings.TrimSpace(req.Name),
		IsService: req.IsService,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetBusiness(c *gin.Context) {
	resp, err := s.businessSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("name")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteBusiness(c *gin.Context) {
	affected, err := s.businessSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("name")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"affected": affected}})
}

func (s *Server) SetBusinessServiceStatus(c *gin.Context) {
	var req setServiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsService == nil {
		AbortWithError(c, newValidationError("is_service", "invalid_is_service", "is_service is required"))
		return
	}

	affected, err := s.businessSvc.SetServiceStatus(c.Request.Context(), strings.TrimSpace(c.Param("name")), *req.IsService)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"affected": affected}})
}
