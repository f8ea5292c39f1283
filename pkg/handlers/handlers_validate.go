package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/roster-engine/pkg/loader"
)

// ValidateInput runs the load-time checks of a solve without solving
func (h *Handler) ValidateInput(c *gin.Context) {
	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	p, err := problemFrom(&req.Dataset, req.Org, req.From, req.To)
	if err != nil {
		kind := "other"
		if errors.Is(err, loader.ErrFormat) {
			kind = "malformed_dataset"
		}
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error(), "kind": kind})
		return
	}

	if len(p.People) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "at least one person is required"})
		return
	}
	if len(p.Events) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "at least one event is required"})
		return
	}

	c.JSON(http.StatusOK, h.Engine.Validate(p))
}
