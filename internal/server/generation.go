package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkwavehq/inkwave/internal/credits/gate"
	generationdomain "github.com/inkwavehq/inkwave/internal/generation/domain"
)

func (s *Server) GenerateText(c *gin.Context) {
	var req generationdomain.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.generationSvc.GenerateText(c.Request.Context(), c.GetString(gate.UserIDKey), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) GenerateImage(c *gin.Context) {
	var req generationdomain.ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.generationSvc.GenerateImage(c.Request.Context(), c.GetString(gate.UserIDKey), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) Translate(c *gin.Context) {
	var req generationdomain.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.generationSvc.Translate(c.Request.Context(), c.GetString(gate.UserIDKey), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) CheckGrammar(c *gin.Context) {
	var req generationdomain.GrammarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.generationSvc.CheckGrammar(c.Request.Context(), c.GetString(gate.UserIDKey), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) Improve(c *gin.Context) {
	var req generationdomain.ImproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.generationSvc.Improve(c.Request.Context(), c.GetString(gate.UserIDKey), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
