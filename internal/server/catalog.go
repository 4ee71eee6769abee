package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
)

type intakeProductRequest struct {
	SerialNumber   string `json:"serial_number"`
	TypeName       string `json:"type_name"`
	Producent      string `json:"producent"`
	Model          string `json:"model"`
	Condition      *bool  `json:"condition"`
	AdditionalInfo string `json:"additional_info"`
}

func (s *Server) IntakeProduct(c *gin.Context) {
	var req intakeProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.catalogSvc.Intake(c.Request.Context(), catalogdomain.IntakeRequest{
		Owner:          strings.TrimSpace(c.Param("name")),
		SerialNumber:   req.SerialNumber,
		TypeName:       req.TypeName,
		Producent:      req.Producent,
		Model:          req.Model,
		Functional:     req.Condition,
		AdditionalInfo: req.AdditionalInfo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetProduct(c *gin.Context) {
	resp, err := s.catalogSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("serial")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveProduct(c *gin.Context) {
	affected, err := s.catalogSvc.Remove(c.Request.Context(), strings.TrimSpace(c.Param("serial")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"affected": affected}})
}

func (s *Server) ListBusinessTypes(c *gin.Context) {
	resp, err := s.catalogSvc.ListTypes(c.Request.Context(), strings.TrimSpace(c.Param("name")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp == nil {
		resp = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductLookups(c *gin.Context) {
	resp, err := s.catalogSvc.Lookups(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetCriticalLevel(c *gin.Context) {
	var req catalogdomain.SetCriticalLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	affected, err := s.catalogSvc.SetCriticalLevel(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"affected": affected}})
}

func (s *Server) GetBusinessStatistics(c *gin.Context) {
	resp, err := s.stockSvc.Statistics(c.Request.Context(), c.Param("name"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExpandBusinessTypes(c *gin.Context) {
	resp, err := s.stockSvc.ExpandTypes(c.Request.Context(), c.Param("name"), splitList(c.Param("types")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
