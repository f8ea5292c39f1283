package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/arnavshah/roster-engine/pkg/models"
)

// LoadEntry is one person's assignment count
type LoadEntry struct {
	PersonID string `json:"person_id"`
	Count    int    `json:"count"`
}

// Stats is the summary rendered by the stats command and endpoint
type Stats struct {
	SolutionID  string            `json:"solution_id"`
	Generation  models.Generation `json:"generation"`
	Assignments int               `json:"assignments"`
	Metrics     models.Metrics    `json:"metrics"`
	// Load lists per-person counts, busiest first
	Load       []LoadEntry       `json:"load"`
	Violations models.Violations `json:"violations"`
	// ByKey counts hard and sampled soft violations per constraint key
	ByKey map[string]int `json:"by_key"`
}

// Summarize builds Stats from a solution
func Summarize(sol *models.Solution) Stats {
	st := Stats{
		SolutionID:  sol.ID,
		Generation:  sol.Generation,
		Assignments: len(sol.Assignments),
		Metrics:     sol.Metrics,
		Load:        make([]LoadEntry, 0, len(sol.Metrics.Fairness.PerPerson)),
		Violations:  sol.Violations,
		ByKey:       make(map[string]int),
	}
	for id, n := range sol.Metrics.Fairness.PerPerson {
		st.Load = append(st.Load, LoadEntry{PersonID: id, Count: n})
	}
	sort.Slice(st.Load, func(i, j int) bool {
		if st.Load[i].Count != st.Load[j].Count {
			return st.Load[i].Count > st.Load[j].Count
		}
		return st.Load[i].PersonID < st.Load[j].PersonID
	})
	for _, v := range sol.Violations.Hard {
		st.ByKey[v.ConstraintKey]++
	}
	for _, v := range sol.Violations.Soft {
		st.ByKey[v.ConstraintKey]++
	}
	return st
}

// Render writes the stats as aligned text
func (st Stats) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	g := st.Generation
	fmt.Fprintf(tw, "Solution\t%s\n", st.SolutionID)
	if g.Org != "" {
		fmt.Fprintf(tw, "Org\t%s\n", g.Org)
	}
	fmt.Fprintf(tw, "Generated\t%s\n", g.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Range\t%s .. %s\n", g.Range.Start.UTC().Format(time.RFC3339), g.Range.End.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "Mode\t%s\tchange-min=%t\n", g.Mode, g.ChangeMin)
	fmt.Fprintf(tw, "Solver\t%s/%s\n", g.Solver.Name, g.Solver.Strategy)
	if g.ChangeMin {
		fmt.Fprintf(tw, "Churn\t%d\n", g.Churn)
	}
	fmt.Fprintf(tw, "Assignments\t%d\n", st.Assignments)
	fmt.Fprintf(tw, "Solve time\t%dms\n", st.Metrics.SolveMS)
	fmt.Fprintf(tw, "Health\t%.1f\n", st.Metrics.HealthScore)
	fmt.Fprintf(tw, "Hard violations\t%d\n", st.Metrics.HardViolations)
	fmt.Fprintf(tw, "Soft score\t%.2f\n", st.Metrics.SoftScore)
	fmt.Fprintf(tw, "Fairness stdev\t%.3f\n", st.Metrics.Fairness.Stdev)

	if len(st.Load) > 0 {
		fmt.Fprintln(tw, "\nPERSON\tASSIGNMENTS")
		for _, l := range st.Load {
			fmt.Fprintf(tw, "%s\t%d\n", l.PersonID, l.Count)
		}
	}
	if len(st.Violations.Hard) > 0 {
		fmt.Fprintln(tw, "\nHARD\tEVENT\tROLE\tMESSAGE")
		for _, v := range st.Violations.Hard {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ConstraintKey, v.EventID, v.Role, v.Message)
		}
	}
	if len(st.Violations.Soft) > 0 {
		fmt.Fprintln(tw, "\nSOFT\tEVENT\tPERSON\tMESSAGE")
		for _, v := range st.Violations.Soft {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ConstraintKey, v.EventID, v.PersonID, v.Message)
		}
		if st.Violations.SoftDropped > 0 {
			fmt.Fprintf(tw, "(%d more soft violations not sampled)\n", st.Violations.SoftDropped)
		}
	}
	return tw.Flush()
}
