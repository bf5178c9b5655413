// Package locate finds the report log of an earlier commit for the same target
// in a store of previously downloaded logs.
package locate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"artifactsync/internal/logging"
	"artifactsync/internal/store"
	"artifactsync/internal/target"
)

// Candidate is a previous report log matching a target on every field but
// the hash.
type Candidate struct {
	Name string
	ID   target.ID
}

// Resolution is the outcome of Resolve. Name is empty when no baseline is
// available.
type Resolution struct {
	Candidate
	Pruned []string // stale entries deleted from the store
}

// Found reports whether a previous log was resolved.
func (r Resolution) Found() bool { return r.Name != "" }

// Locator searches a store of previous logs. Store mutation during pruning is
// serialized against concurrent lookups.
type Locator struct {
	store  store.Store
	mu     sync.Mutex
	logger *slog.Logger
}

// New returns a Locator over previous.
func New(previous store.Store) *Locator {
	return &Locator{store: previous, logger: logging.New("locate")}
}

// Candidates returns every report log in the store for the same target as
// current, in store order. Names that do not parse are skipped.
func (l *Locator) Candidates(ctx context.Context, current target.ID) ([]Candidate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.candidates(ctx, current)
}

func (l *Locator) candidates(ctx context.Context, current target.ID) ([]Candidate, error) {
	names, err := l.store.List(ctx, "*"+target.ReportSuffix)
	if err != nil {
		return nil, fmt.Errorf("locate: %w", err)
	}
	var out []Candidate
	for _, n := range names {
		id, kind, err := target.ParseFile(n)
		if err != nil || kind != target.KindReport {
			continue
		}
		if id.SameTarget(current) {
			out = append(out, Candidate{Name: n, ID: id})
		}
	}
	return out, nil
}

// Find returns the first candidate for current, if any.
func (l *Locator) Find(ctx context.Context, current target.ID) (Candidate, bool, error) {
	c, err := l.Candidates(ctx, current)
	if err != nil || len(c) == 0 {
		return Candidate{}, false, err
	}
	return c[0], true, nil
}

// Resolve picks the previous log for current. With several candidates and a
// knownGood hash, candidates for any other hash are deleted as stale and the
// store is searched again; the survivor is used. Without knownGood the
// first candidate wins.
func (l *Locator) Resolve(ctx context.Context, current target.ID, knownGood string) (Resolution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cands, err := l.candidates(ctx, current)
	if err != nil {
		return Resolution{}, err
	}
	switch {
	case len(cands) == 0:
		return Resolution{}, nil
	case len(cands) == 1:
		l.logger.DebugContext(ctx, "single previous log", "target", current.String(), "log", cands[0].Name)
		return Resolution{Candidate: cands[0]}, nil
	case knownGood == "":
		return Resolution{Candidate: cands[0]}, nil
	}

	l.logger.InfoContext(ctx, "several previous logs, pruning", "target", current.String(), "candidates", len(cands), "keep_hash", knownGood)
	var res Resolution
	for _, c := range cands {
		if c.ID.Hash == knownGood {
			continue
		}
		if err := l.store.Delete(ctx, c.Name); err != nil {
			return Resolution{}, fmt.Errorf("locate: prune %s: %w", c.Name, err)
		}
		l.logger.InfoContext(ctx, "removed stale previous log", "log", c.Name)
		res.Pruned = append(res.Pruned, c.Name)
	}

	cands, err = l.candidates(ctx, current)
	if err != nil {
		return Resolution{}, err
	}
	if len(cands) > 0 {
		res.Candidate = cands[0]
	}
	return res, nil
}
