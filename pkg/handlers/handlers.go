package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/roster-engine/pkg/baseline"
	"github.com/arnavshah/roster-engine/pkg/codec"
	"github.com/arnavshah/roster-engine/pkg/database"
	"github.com/arnavshah/roster-engine/pkg/engine"
	"github.com/arnavshah/roster-engine/pkg/loader"
	"github.com/arnavshah/roster-engine/pkg/models"
	"github.com/arnavshah/roster-engine/pkg/report"
	"github.com/arnavshah/roster-engine/pkg/scheduler"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	Engine    *engine.Engine
	Solutions *database.SolutionStore
	Log       *slog.Logger
}

// SolveRequest is the body of POST /api/solve
type SolveRequest struct {
	Org     string          `json:"org"`
	Dataset loader.Document `json:"dataset"`
	// From and To override the dataset's range when set
	From    string         `json:"from,omitempty"`
	To      string         `json:"to,omitempty"`
	Options engine.Options `json:"options"`
}

// PublishRequest is the body of POST /api/solutions/:id/publish
type PublishRequest struct {
	Org string `json:"org"`
	Tag string `json:"tag" binding:"required"`
}

// problemFrom converts a dataset and applies request-level overrides
func problemFrom(doc *loader.Document, org, from, to string) (*scheduler.Problem, error) {
	p, err := doc.Problem()
	if err != nil {
		return nil, err
	}
	if org != "" {
		p.Org = org
	}
	if from != "" || to != "" {
		if from == "" || to == "" {
			return nil, fmt.Errorf("%w: from and to must be given together", loader.ErrFormat)
		}
		if p.Range, err = loader.ParseRange(from, to); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Solve handles the JSON-based solve request
func (h *Handler) Solve(c *gin.Context) {
	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := problemFrom(&req.Dataset, req.Org, req.From, req.To)
	if err != nil {
		h.fail(c, err)
		return
	}
	sol, err := h.Engine.Solve(c.Request.Context(), p, req.Options)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writeSolution(c, sol)
}

// SolveCSV handles multipart uploads of people and events CSV files. An
// optional dataset_file (JSON or YAML) supplies teams, constraints and the
// rest of the calendar; pinned_file lists existing commitments.
func (h *Handler) SolveCSV(c *gin.Context) {
	peopleFile, _ := c.FormFile("people_file")
	eventsFile, _ := c.FormFile("events_file")
	if peopleFile == nil || eventsFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "people_file and events_file are required"})
		return
	}

	doc := &loader.Document{}
	if f, _ := c.FormFile("dataset_file"); f != nil {
		format, err := loader.FormatOf(f.Filename)
		if err != nil {
			h.fail(c, err)
			return
		}
		data, err := readUpload(f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open dataset_file"})
			return
		}
		if doc, err = loader.Parse(data, format); err != nil {
			h.fail(c, err)
			return
		}
	}

	p, err := problemFrom(doc, c.PostForm("org"), c.PostForm("from"), c.PostForm("to"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if p.People, err = parseUpload(peopleFile, loader.ReadPeopleCSV); err != nil {
		h.fail(c, err)
		return
	}
	if p.Events, err = parseUpload(eventsFile, loader.ReadEventsCSV); err != nil {
		h.fail(c, err)
		return
	}
	if f, _ := c.FormFile("pinned_file"); f != nil {
		if p.Pinned, err = parseUpload(f, loader.ReadPinnedCSV); err != nil {
			h.fail(c, err)
			return
		}
	}

	opts := engine.Options{Mode: c.PostForm("mode"), BaselineTag: c.PostForm("baseline_tag")}
	opts.ChangeMin, _ = strconv.ParseBool(c.DefaultPostForm("change_min", "false"))

	sol, err := h.Engine.Solve(c.Request.Context(), p, opts)
	if err != nil {
		h.fail(c, err)
		return
	}

	var out strings.Builder
	if err := writeAssignmentsCSV(&out, p, sol); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	encoded, err := codec.Marshal(sol)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"solution": json.RawMessage(encoded), "csv": out.String()})
}

func readUpload(f *multipart.FileHeader) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func parseUpload[T any](f *multipart.FileHeader, parse func(io.Reader) ([]T, error)) ([]T, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return parse(r)
}

// writeAssignmentsCSV exports one row per assignment, in commit order
func writeAssignmentsCSV(w io.Writer, p *scheduler.Problem, sol *models.Solution) error {
	u := models.NewUniverse(p.People, p.Teams, p.Events)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"event_id", "person_id", "person_name", "role", "start", "end", "duration_hours", "pinned"})
	for _, a := range sol.Assignments {
		e, _ := u.Event(a.EventID)
		person, _ := u.Person(a.PersonID)
		row := []string{a.EventID, a.PersonID, "", a.Role, "", "", "", strconv.FormatBool(a.Pinned)}
		if person != nil {
			row[2] = person.Name
		}
		if e != nil {
			row[4] = e.Start.UTC().Format(time.RFC3339)
			row[5] = e.End.UTC().Format(time.RFC3339)
			row[6] = fmt.Sprintf("%.2f", e.Interval().Hours())
		}
		_ = cw.Write(row)
	}
	cw.Flush()
	return cw.Error()
}

// GetSolution returns a stored solution
func (h *Handler) GetSolution(c *gin.Context) {
	sol, ok := h.loadSolution(c)
	if !ok {
		return
	}
	h.writeSolution(c, sol)
}

// GetStats returns a solution's metrics and violations
func (h *Handler) GetStats(c *gin.Context) {
	sol, ok := h.loadSolution(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report.Summarize(sol))
}

// Explain answers why an event or person was scheduled the way it was
func (h *Handler) Explain(c *gin.Context) {
	sol, ok := h.loadSolution(c)
	if !ok {
		return
	}
	ex, err := report.Explain(sol, c.Query("event"), c.Query("person"))
	switch {
	case errors.Is(err, report.ErrExplainSubject):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, report.ErrNotInSolution):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		h.fail(c, err)
	default:
		c.JSON(http.StatusOK, ex)
	}
}

// Publish tags a stored solution as its organization's baseline
func (h *Handler) Publish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := h.Engine.Publish(c.Request.Context(), c.Param("id"), req.Org, req.Tag)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":           snap.ID,
		"org":          snap.Org,
		"tag":          snap.Tag,
		"solution_id":  snap.SolutionID,
		"published_at": snap.PublishedAt,
		"assignments":  len(snap.Assignments),
	})
}

func (h *Handler) loadSolution(c *gin.Context) (*models.Solution, bool) {
	sol, err := h.Engine.Solution(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return sol, true
}

// fail maps errors onto status codes: caller mistakes are 400, missing
// records 404 and everything else 500
// writeSolution sends the same versioned document the CLI and the store produce
func (h *Handler) writeSolution(c *gin.Context, sol *models.Solution) {
	doc, err := codec.Marshal(sol)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrSolutionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, baseline.ErrOrgMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, loader.ErrFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "malformed_dataset"})
	case engine.IsLoadError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": engine.ErrorKind(err)})
	default:
		if h.Log != nil {
			h.Log.Error("request failed", "path", c.FullPath(), "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
