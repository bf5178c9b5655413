package main

import (
	"fmt"
	"io"

	"artifactsync/internal/compare"
	"artifactsync/internal/failures"
	"artifactsync/internal/format"
	"artifactsync/internal/history"
	"artifactsync/internal/reconcile"
	"artifactsync/internal/store"
)

// newRunner wires the working directories of cfg into a Runner. walker and
// fetcher may be nil for local-only runs.
func newRunner(walker history.Walker, fetcher reconcile.Fetcher) (*reconcile.Runner, error) {
	dirs := map[string]*store.Dir{}
	for name, p := range map[string]string{
		"staging":   cfg.Paths.Staging,
		"current":   cfg.Paths.CurrentLogs,
		"previous":  cfg.Paths.PreviousLogs,
		"summaries": cfg.Paths.Summaries,
	} {
		d, err := store.NewDir(p)
		if err != nil {
			return nil, err
		}
		dirs[name] = d
	}
	fl, err := failures.New(cfg.Paths.CurrentLogs)
	if err != nil {
		return nil, err
	}

	var cmp compare.Comparator = compare.Counts{}
	if len(cfg.Comparator.Command) > 0 {
		c, err := compare.NewCommand(cfg.Comparator.Command)
		if err != nil {
			return nil, err
		}
		cmp = c
	}

	return reconcile.New(reconcile.Deps{
		Matrix:     cfg.Matrix,
		Staging:    dirs["staging"],
		Current:    dirs["current"],
		Previous:   dirs["previous"],
		Summaries:  dirs["summaries"],
		Failures:   fl,
		Comparator: cmp,
		Walker:     walker,
		Fetcher:    fetcher,
		Parallel:   cfg.Parallel,
	})
}

func printReport(w io.Writer, rep *reconcile.Report) error {
	mode, err := format.ParseMode(rootFlags.report)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, rep.Render(mode))
	return err
}
