package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/roster-engine/pkg/baseline"
	"github.com/arnavshah/roster-engine/pkg/codec"
	"github.com/arnavshah/roster-engine/pkg/database"
	"github.com/arnavshah/roster-engine/pkg/engine"
	"github.com/arnavshah/roster-engine/pkg/models"
	"github.com/arnavshah/roster-engine/pkg/scheduler"
	"github.com/arnavshah/roster-engine/pkg/telemetry"
)

const dataset = `{
	"people": [
		{"id": "p1", "name": "Ada", "roles": ["usher"]},
		{"id": "p2", "name": "Bo", "roles": ["usher"]}
	],
	"events": [
		{"id": "e1", "start": "2024-03-04T09:00:00Z", "end": "2024-03-04T10:00:00Z",
			"requirements": [{"role": "usher", "count": 1}]},
		{"id": "e2", "start": "2024-03-05T09:00:00Z", "end": "2024-03-05T10:00:00Z",
			"requirements": [{"role": "usher", "count": 3}]}
	]
}`

func setup(t *testing.T, opts RouterOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	if opts.Gatherer == nil {
		opts.Gatherer = reg
	}
	cfg := scheduler.DefaultConfig()
	cfg.Clock = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	store := database.NewSolutionStore(db)
	eng := engine.New(cfg,
		engine.WithSolutions(store),
		engine.WithBaselines(baseline.NewGormStore(db)),
		engine.WithMetrics(telemetry.NewPrometheus(reg, "roster")),
	)
	return NewRouter(&Handler{Engine: eng, Solutions: store}, opts)
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func solveBody(org, from, to string) string {
	return `{"org": "` + org + `", "from": "` + from + `", "to": "` + to + `", "dataset": ` + dataset + `}`
}

func solve(t *testing.T, r http.Handler) models.Solution {
	t.Helper()
	w := do(r, http.MethodPost, "/api/solve", solveBody("acme", "2024-03-04", "2024-03-10"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sol models.Solution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sol))
	return sol
}

func TestIndex(t *testing.T) {
	r := setup(t, RouterOptions{})
	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), Version)
}

func TestSolve_AndReadBack(t *testing.T) {
	r := setup(t, RouterOptions{})
	sol := solve(t, r)

	assert.Equal(t, "acme", sol.Generation.Org)
	assert.Len(t, sol.Assignments, 3)
	// e2 needs three ushers but only two exist
	assert.Equal(t, 1, sol.Metrics.HardViolations)
	require.Len(t, sol.Violations.Hard, 1)
	assert.Equal(t, scheduler.ShortfallKey, sol.Violations.Hard[0].ConstraintKey)

	w := do(r, http.MethodGet, "/api/solutions/"+sol.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	// same versioned document the CLI writes
	loaded, err := codec.Unmarshal(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, sol.Assignments, loaded.Assignments)
	assert.Contains(t, w.Body.String(), `"schema_version": 1`)

	w = do(r, http.MethodGet, "/api/solutions/"+sol.ID, "")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = do(r, http.MethodGet, "/api/solutions/"+sol.ID+"/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"health_score"`)

	w = do(r, http.MethodGet, "/api/solutions/"+sol.ID+"/explain?event=e2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"shortfall":1`)

	w = do(r, http.MethodGet, "/api/solutions/"+sol.ID+"/explain", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/solutions/"+sol.ID+"/explain?person=ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/solutions/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/orgs/acme/solutions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), sol.ID)
}

func TestSolve_LoadErrors(t *testing.T) {
	r := setup(t, RouterOptions{})

	w := do(r, http.MethodPost, "/api/solve", solveBody("acme", "2024-03-10", "2024-03-01"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_range")

	body := `{"from": "2024-03-04", "to": "2024-03-10", "dataset": {"people": [], "events": [],
		"constraints": [{"key": "x", "kind": "hard", "predicate": "moon_phase"}]}}`
	w = do(r, http.MethodPost, "/api/solve", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown_predicate")

	w = do(r, http.MethodPost, "/api/solve", `{"from": "2024-03-04", "dataset": {}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "malformed_dataset")

	w = do(r, http.MethodPost, "/api/solve", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublish(t *testing.T) {
	r := setup(t, RouterOptions{})
	sol := solve(t, r)

	w := do(r, http.MethodPost, "/api/solutions/"+sol.ID+"/publish", `{"tag": "week-10"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var snap map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "acme", snap["org"])
	assert.Equal(t, 3.0, snap["assignments"])

	w = do(r, http.MethodPost, "/api/solutions/"+sol.ID+"/publish", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/solutions/missing/publish", `{"tag": "x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/solutions/"+sol.ID+"/publish", `{"org": "other", "tag": "week-10"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	body := `{"org": "acme", "from": "2024-03-04", "to": "2024-03-10", "options": {"change_min": true}, "dataset": ` + dataset + `}`
	w = do(r, http.MethodPost, "/api/solve", body)
	require.Equal(t, http.StatusOK, w.Code)
	var again models.Solution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Equal(t, "week-10", again.Generation.BaselineTag)
	assert.Equal(t, 0, again.Generation.Churn)
	assert.Equal(t, sol.SortedPairs(), again.SortedPairs())
}

func TestValidateInput(t *testing.T) {
	r := setup(t, RouterOptions{})

	w := do(r, http.MethodPost, "/api/validate", solveBody("", "2024-03-04", "2024-03-10"))
	require.Equal(t, http.StatusOK, w.Code)
	var v engine.Validation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.True(t, v.Valid)
	assert.Equal(t, 4, v.Stats.Slots)

	w = do(r, http.MethodPost, "/api/validate", `{"from": "2024-03-04", "to": "2024-03-10", "dataset": {"people": [{"id": "p1"}], "events": []}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":false`)

	bad := `{"from": "2024-03-04", "to": "2024-03-10", "dataset": {"people": [{"id": "p1"}, {"id": "p1"}],
		"events": [{"id": "e1", "start": "2024-03-04T09:00:00Z", "end": "2024-03-04T10:00:00Z"}]}}`
	w = do(r, http.MethodPost, "/api/validate", bad)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.False(t, v.Valid)
	assert.Equal(t, "invalid_entity", v.Kind)
}

func TestSolveCSV(t *testing.T) {
	r := setup(t, RouterOptions{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	files := map[string]string{
		"people_file": "id,name,roles\np1,Ada,usher\np2,Bo,usher\n",
		"events_file": "id,start,end,required_roles\ne1,2024-03-04T09:00:00Z,2024-03-04T10:00:00Z,usher:1\n",
		"pinned_file": "event_id,person_id,role\ne1,p2,usher\n",
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, _ = fw.Write([]byte(content))
	}
	require.NoError(t, mw.WriteField("org", "acme"))
	require.NoError(t, mw.WriteField("from", "2024-03-04"))
	require.NoError(t, mw.WriteField("to", "2024-03-04"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/solve/csv", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Solution models.Solution `json:"solution"`
		CSV      string          `json:"csv"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Solution.Assignments, 1)
	assert.Equal(t, "p2", resp.Solution.Assignments[0].PersonID)
	assert.True(t, resp.Solution.Assignments[0].Pinned)
	assert.Contains(t, resp.CSV, "e1,p2,Bo,usher,2024-03-04T09:00:00Z,2024-03-04T10:00:00Z,1.00,true")

	w = do(r, http.MethodPost, "/api/solve/csv", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	r := setup(t, RouterOptions{RateLimitPerSec: 0.001, RateBurst: 1})

	w := do(r, http.MethodPost, "/api/solve", solveBody("acme", "2024-03-04", "2024-03-10"))
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodPost, "/api/solve", solveBody("acme", "2024-03-04", "2024-03-10"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// validation is not rate limited
	w = do(r, http.MethodPost, "/api/validate", solveBody("acme", "2024-03-04", "2024-03-10"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := setup(t, RouterOptions{})
	solve(t, r)

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "roster_solver_duration_seconds")
}
