package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/Skufu/dhanvantari/internal/patient"
)

type patientSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

func (s *Server) listPatients(c *gin.Context) {
	summaries := lo.Map(s.analyzer.Store().All(), func(r patient.Record, _ int) patientSummary {
		return patientSummary{ID: r.ID, Name: r.Name, Label: r.DisplayName()}
	})
	c.JSON(http.StatusOK, gin.H{"count": len(summaries), "patients": summaries})
}

func (s *Server) getPatient(c *gin.Context) {
	rec, err := s.analyzer.Store().Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) getMetrics(c *gin.Context) {
	m, err := s.analyzer.Metrics(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// analyzePatient always answers 200 for a known patient; a failed AI call is
// reported in adviceError.
func (s *Server) analyzePatient(c *gin.Context) {
	report, err := s.analyzer.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
