// Package reconcile drives a run over the target matrix: it classifies each
// target's local artifacts, finds or fetches a previous report log and hands
// the pair to a comparator.
package reconcile

import (
	"context"
	"fmt"

	"artifactsync/internal/failures"
	"artifactsync/internal/store"
	"artifactsync/internal/target"
)

// Classification is the verdict on one target's local artifacts.
type Classification struct {
	Target target.ID
	Usable bool
	// Failure is the record appended for an unusable target.
	Failure *failures.Record
}

// Classifier decides whether a target produced a build archive and a
// testsuite report log.
type Classifier struct {
	Staging  store.Store // holds {name}.zip build archives
	Current  store.Store // holds {name}-report.log
	Failures *failures.Log
}

// Classify checks id's archive and report log and records a failure when the
// target is unusable. Rerunning appends the record again.
func (c *Classifier) Classify(ctx context.Context, id target.ID) (Classification, error) {
	hasArchive, err := c.Staging.Has(ctx, id.Archive())
	if err != nil {
		return Classification{}, fmt.Errorf("classify %s: %w", id, err)
	}
	hasLog, err := c.Current.Has(ctx, id.ReportLog())
	if err != nil {
		return Classification{}, fmt.Errorf("classify %s: %w", id, err)
	}

	out := Classification{Target: id}
	switch {
	case !hasArchive && !hasLog:
		out.Failure = &failures.Record{Category: failures.Build, Name: id.String(), Reason: failures.ReasonBuild}
	case !hasLog:
		out.Failure = &failures.Record{Category: failures.Testsuite, Name: id.String(), Reason: failures.ReasonMissingTestLog}
	default:
		out.Usable = true
		return out, nil
	}
	if err := c.Failures.Append(*out.Failure); err != nil {
		return Classification{}, fmt.Errorf("classify %s: %w", id, err)
	}
	return out, nil
}
