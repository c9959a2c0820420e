package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anjaninandan001/algo-tinker/internal/persist"
	"github.com/anjaninandan001/algo-tinker/pkg/i18n"

	"github.com/gin-gonic/gin"
)

const anonymousUser = "Anonymous"

type strategyNameRequest struct {
	Name string `json:"name"`
}

func (s *Server) respondStrategyError(c *gin.Context, name string, err error) {
	if errors.Is(err, persist.ErrNotFound) {
		respondError(c, http.StatusNotFound, "STRATEGY_NOT_FOUND", fmt.Sprintf(i18n.M().StrategyNotFound, name))
		return
	}
	s.respondEngineError(c, err)
}

// saveStrategy stores the session canvas under the caller's account. The
// name is sanitized; the stored name is returned.
func (s *Server) saveStrategy(c *gin.Context) {
	var req strategyNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}
	username := CurrentUsername(c)
	if username == "" {
		username = anonymousUser
	}
	name, err := s.Engine.SaveStrategy(c.Request.Context(), c.Param("id"), CurrentUserID(c), username, req.Name)
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"name":    name,
		"message": fmt.Sprintf(i18n.M().StrategySaved, name),
	})
}

func (s *Server) loadStrategy(c *gin.Context) {
	var req strategyNameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "strategy name is required")
		return
	}
	v, err := s.Engine.LoadStrategy(c.Request.Context(), c.Param("id"), CurrentUserID(c), req.Name)
	if err != nil {
		s.respondStrategyError(c, req.Name, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) listStrategies(c *gin.Context) {
	list, err := s.Engine.ListStrategies(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	if list == nil {
		list = []persist.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"strategies": list})
}

func (s *Server) getStrategy(c *gin.Context) {
	name := c.Param("name")
	rec, err := s.Engine.GetStrategy(c.Request.Context(), CurrentUserID(c), name)
	if err != nil {
		s.respondStrategyError(c, name, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteStrategy(c *gin.Context) {
	name := c.Param("name")
	if err := s.Engine.DeleteStrategy(c.Request.Context(), CurrentUserID(c), name); err != nil {
		s.respondStrategyError(c, name, err)
		return
	}
	c.Status(http.StatusNoContent)
}
