package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/arnavshah/roster-engine/pkg/codec"
	"github.com/arnavshah/roster-engine/pkg/loader"
	"github.com/arnavshah/roster-engine/pkg/models"
	"github.com/arnavshah/roster-engine/pkg/scheduler"
)

// inputFlags are shared by solve and validate
type inputFlags struct {
	data   string
	people string
	events string
	pinned string
	from   string
	to     string
	org    string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "", "dataset file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&f.people, "people", "", "people CSV; replaces the dataset's people")
	cmd.Flags().StringVar(&f.events, "events", "", "events CSV; replaces the dataset's events")
	cmd.Flags().StringVar(&f.pinned, "pinned", "", "pinned assignments CSV; replaces the dataset's pins")
	cmd.Flags().StringVar(&f.from, "from", "", "range start (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "range end; a bare date includes that whole day")
	cmd.Flags().StringVar(&f.org, "org", "", "organization; overrides the dataset's org")
}

// problem assembles the solver input from the flags
func (f *inputFlags) problem() (*scheduler.Problem, error) {
	if f.data == "" && (f.people == "" || f.events == "") {
		return nil, errors.New("--data, or both --people and --events, is required")
	}
	doc := &loader.Document{}
	if f.data != "" {
		var err error
		if doc, err = loader.ReadFile(f.data); err != nil {
			return nil, err
		}
	}
	p, err := doc.Problem()
	if err != nil {
		return nil, err
	}
	if f.org != "" {
		p.Org = f.org
	}
	if f.from != "" || f.to != "" {
		if f.from == "" || f.to == "" {
			return nil, errors.New("--from and --to must be given together")
		}
		if p.Range, err = loader.ParseRange(f.from, f.to); err != nil {
			return nil, err
		}
	}
	if f.people != "" {
		if p.People, err = readCSV(f.people, loader.ReadPeopleCSV); err != nil {
			return nil, err
		}
	}
	if f.events != "" {
		if p.Events, err = readCSV(f.events, loader.ReadEventsCSV); err != nil {
			return nil, err
		}
	}
	if f.pinned != "" {
		if p.Pinned, err = readCSV(f.pinned, loader.ReadPinnedCSV); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func readCSV[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	out, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// loadSolution reads a solution file, or a stored solution when ref is not a file
func loadSolution(ctx context.Context, e *env, ref string) (*models.Solution, error) {
	if ref == "" {
		return nil, errors.New("--solution is required")
	}
	if _, err := os.Stat(ref); err == nil {
		return codec.ReadFile(ref)
	}
	_, store, err := e.engine(true)
	if err != nil {
		return nil, err
	}
	return store.Load(ctx, ref)
}
