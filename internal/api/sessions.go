package api

import (
	"bytes"
	"net/http"

	"github.com/anjaninandan001/algo-tinker/internal/blocks"
	"github.com/anjaninandan001/algo-tinker/internal/engine"

	"github.com/gin-gonic/gin"
)

type addBlockRequest struct {
	Type          string  `json:"type" binding:"required"`
	IndicatorType string  `json:"indicator_type"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
}

type selectRequest struct {
	BlockID string `json:"block_id" binding:"required"`
}

// commitRequest carries the edit form. Values may arrive as JSON numbers.
type commitRequest struct {
	Fields map[string]any `json:"fields"`
}

func (r commitRequest) strings() map[string]string {
	out := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		out[k] = blocks.StringFromAny(v)
	}
	return out
}

func (s *Server) createSession(c *gin.Context) {
	c.JSON(http.StatusCreated, s.Engine.CreateSession(c.Request.Context()))
}

func (s *Server) getSession(c *gin.Context) {
	v, err := s.Engine.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) closeSession(c *gin.Context) {
	if err := s.Engine.CloseSession(c.Request.Context(), c.Param("id")); err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) updateSettings(c *gin.Context) {
	var req engine.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}
	v, err := s.Engine.UpdateSettings(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) addBlock(c *gin.Context) {
	var req addBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}
	b, err := s.Engine.AddBlock(c.Request.Context(), c.Param("id"), blocks.Type(req.Type), req.IndicatorType, req.X, req.Y)
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (s *Server) removeBlock(c *gin.Context) {
	if err := s.Engine.RemoveBlock(c.Request.Context(), c.Param("id"), c.Param("blockId")); err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) selectBlock(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}
	es, err := s.Engine.SelectBlock(c.Request.Context(), c.Param("id"), req.BlockID)
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, es)
}

// commitBlock saves the edit form. Committing while nothing is selected is
// not an error; the response reports committed=false.
func (s *Server) commitBlock(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}
	res, err := s.Engine.CommitBlock(c.Request.Context(), c.Param("id"), req.strings())
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) cancelEdit(c *gin.Context) {
	es, err := s.Engine.CancelEdit(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, es)
}

func (s *Server) clearStrategy(c *gin.Context) {
	if err := s.Engine.ClearStrategy(c.Request.Context(), c.Param("id")); err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) getRequest(c *gin.Context) {
	req, err := s.Engine.BuildRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (s *Server) getReferences(c *gin.Context) {
	refs, err := s.Engine.References(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, refs)
}

// runBacktest returns 200 with the report even when the service reported
// an error; report.error carries it.
func (s *Server) runBacktest(c *gin.Context) {
	out, err := s.Engine.RunBacktest(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getReport(c *gin.Context) {
	r, err := s.Engine.LastReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) getEquityChart(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.Engine.RenderEquityChart(c.Request.Context(), c.Param("id"), &buf); err != nil {
		s.respondEngineError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
