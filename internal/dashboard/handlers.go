package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleStartLoad(c *gin.Context) {
	id, err := s.startLoad()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": id})
}

func (s *Server) handleLoadStatus(c *gin.Context) {
	status, ok := s.currentStatus()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no load started"})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) handleRecords(c *gin.Context) {
	ds, ok := s.snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data loaded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records":  ds.records,
		"count":    len(ds.records),
		"degraded": ds.degraded,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	ds, ok := s.snapshot()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data loaded"})
		return
	}

	c.JSON(http.StatusOK, ds.summary)
}

func (s *Server) handleMap(c *gin.Context) {
	ds, ok := s.snapshot()
	if !ok {
		c.String(http.StatusNotFound, "no data loaded")
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := renderMap(c.Writer, ds.records); err != nil {
		s.logger.Error().Err(err).Msg("Map render failed")
		c.Status(http.StatusInternalServerError)
	}
}

func (s *Server) handleTable(c *gin.Context) {
	ds, ok := s.snapshot()
	if !ok {
		c.String(http.StatusNotFound, "no data loaded")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(renderTable(ds.records)))
}
