package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListSolutions returns the recent solve history of an organization
func (h *Handler) ListSolutions(c *gin.Context) {
	if h.Solutions == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no solution store configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

	recs, err := h.Solutions.List(c.Request.Context(), c.Param("org"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch solution history"})
		return
	}

	var hard int
	var health float64
	for _, r := range recs {
		hard += r.HardViolations
		health += r.HealthScore
	}
	avg := 0.0
	if len(recs) > 0 {
		avg = health / float64(len(recs))
	}

	c.JSON(http.StatusOK, gin.H{
		"org":       c.Param("org"),
		"solutions": recs,
		"totals": gin.H{
			"solves":          len(recs),
			"hard_violations": hard,
			"avg_health":      avg,
		},
	})
}
