package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"artifactsync/internal/compare"
	"artifactsync/internal/failures"
	"artifactsync/internal/fetch"
	"artifactsync/internal/history"
	"artifactsync/internal/locate"
	"artifactsync/internal/logging"
	"artifactsync/internal/store"
	"artifactsync/internal/target"
)

// Fetcher places a previous artifact's report log in a store. *fetch.Fetcher
// implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Result, error)
}

// Deps are the collaborators of a Runner. Walker and Fetcher are only needed
// by Download.
type Deps struct {
	Matrix     target.Matrix
	Staging    store.Store
	Current    store.Store
	Previous   store.Store
	Summaries  store.Store
	Failures   *failures.Log
	Comparator compare.Comparator
	Walker     history.Walker
	Fetcher    Fetcher
	Parallel   int
}

// Runner executes download and compare runs.
type Runner struct {
	deps       Deps
	classifier *Classifier
	locator    *locate.Locator
}

// New checks d and returns a Runner.
func New(d Deps) (*Runner, error) {
	var missing []string
	for name, ok := range map[string]bool{
		"staging":    d.Staging != nil,
		"current":    d.Current != nil,
		"previous":   d.Previous != nil,
		"summaries":  d.Summaries != nil,
		"failures":   d.Failures != nil,
		"comparator": d.Comparator != nil,
	} {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("reconcile: missing %v", missing)
	}
	if d.Parallel < 1 {
		d.Parallel = 1
	}
	return &Runner{
		deps:       d,
		classifier: &Classifier{Staging: d.Staging, Current: d.Current, Failures: d.Failures},
		locator:    locate.New(d.Previous),
	}, nil
}

// DownloadOptions configure a download run.
type DownloadOptions struct {
	CurrentHash  string
	PreviousHash string // known-good baseline hash, optional
	Compare      bool
}

// CompareOptions configure a compare run.
type CompareOptions struct {
	CurrentHash  string // overrides the hash parsed from each log name
	PreviousHash string // disambiguates several previous logs, optional
}

type run struct {
	*Runner
	id     string
	logger *slog.Logger
}

func (r *Runner) newRun(kind string) *run {
	id := uuid.NewString()
	return &run{
		Runner: r,
		id:     id,
		logger: logging.New("reconcile").With("run", id, "kind", kind),
	}
}

// Download processes every matrix target bound to opts.CurrentHash:
// unusable targets are recorded as failures, usable ones get a previous log
// from the local store or the artifact host and, unless disabled, a summary.
// The returned error is non-nil only for run-level problems.
func (r *Runner) Download(ctx context.Context, opts DownloadOptions) (*Report, error) {
	if opts.CurrentHash == "" {
		return nil, errors.New("reconcile: current hash is required")
	}
	if r.deps.Walker == nil || r.deps.Fetcher == nil {
		return nil, errors.New("reconcile: download needs a history walker and a fetcher")
	}
	rn := r.newRun("download")

	var ids []target.ID
	for _, tmpl := range r.deps.Matrix.Generate() {
		ids = append(ids, tmpl.WithHash(opts.CurrentHash))
	}
	rn.logger.InfoContext(ctx, "download run started", "hash", opts.CurrentHash, "previous_hash", opts.PreviousHash, "targets", len(ids))

	commits := rn.commits(ctx, opts)
	return rn.each(ctx, ids, func(ctx context.Context, id target.ID) (Outcome, error) {
		return rn.download(ctx, id, opts, commits)
	})
}

// Compare compares every report log already in the current store against
// its previous log, if any. No network access is made.
func (r *Runner) Compare(ctx context.Context, opts CompareOptions) (*Report, error) {
	rn := r.newRun("compare")
	names, err := r.deps.Current.List(ctx, "*"+target.ReportSuffix)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list current logs: %w", err)
	}
	var ids []target.ID
	for _, n := range names {
		id, kind, err := target.ParseFile(n)
		if err != nil || kind != target.KindReport {
			rn.logger.DebugContext(ctx, "skipping unrecognised file", "name", n)
			continue
		}
		ids = append(ids, id)
	}
	rn.logger.InfoContext(ctx, "compare run started", "logs", len(ids), "previous_hash", opts.PreviousHash)

	return rn.each(ctx, ids, func(ctx context.Context, id target.ID) (Outcome, error) {
		res, err := rn.locator.Resolve(ctx, id, opts.PreviousHash)
		if err != nil {
			return Outcome{}, err
		}
		out := Outcome{Target: id}
		var prev *locate.Candidate
		if res.Found() {
			prev = &res.Candidate
		}
		hash := id.Hash
		if opts.CurrentHash != "" {
			hash = opts.CurrentHash
		}
		return rn.compare(ctx, out, hash, prev)
	})
}

// each runs fn over ids on a bounded pool and collects outcomes in id order.
func (rn *run) each(ctx context.Context, ids []target.ID, fn func(context.Context, target.ID) (Outcome, error)) (*Report, error) {
	rep := &Report{RunID: rn.id, Started: time.Now(), Outcomes: make([]Outcome, len(ids))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rn.deps.Parallel)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o, err := fn(gctx, id)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", id, err)
			}
			rep.Outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		rn.logger.ErrorContext(ctx, "run aborted", "error", err)
		return nil, err
	}
	rep.Elapsed = time.Since(rep.Started)
	rn.logger.InfoContext(ctx, "run finished", "targets", len(ids), "failed", len(rep.Failed()), "elapsed", rep.Elapsed)
	return rep, nil
}

// commits returns the commits to try when looking for a previous artifact:
// the known-good hash first, then the walker's proposals. A walker error is
// logged and leaves only the known-good hash.
func (rn *run) commits(ctx context.Context, opts DownloadOptions) []string {
	var out []string
	seen := map[string]bool{opts.CurrentHash: true}
	if opts.PreviousHash != "" {
		out = append(out, opts.PreviousHash)
		seen[opts.PreviousHash] = true
	}
	cands, err := rn.deps.Walker.Candidates(ctx, opts.CurrentHash)
	if err != nil {
		rn.logger.WarnContext(ctx, "commit history unavailable", "hash", opts.CurrentHash, "error", err)
		return out
	}
	for _, c := range cands {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func (rn *run) download(ctx context.Context, id target.ID, opts DownloadOptions, commits []string) (Outcome, error) {
	cl, err := rn.classifier.Classify(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Target: id}
	if !cl.Usable {
		out.Status = StatusTestsuiteFailed
		if cl.Failure.Category == failures.Build {
			out.Status = StatusBuildFailed
		}
		rn.logger.WarnContext(ctx, "target unusable", "target", id.String(), "status", out.Status.String())
		return out, nil
	}

	var prev *locate.Candidate
	if opts.PreviousHash != "" {
		res, err := rn.locator.Resolve(ctx, id, opts.PreviousHash)
		if err != nil {
			return Outcome{}, err
		}
		if res.Found() {
			prev = &res.Candidate
		}
	}

	var fetchErr error
	if prev == nil {
		prev, out.Digest, fetchErr = rn.fetchPrevious(ctx, id, commits)
		if fetchErr != nil {
			if ctx.Err() != nil {
				return Outcome{}, ctx.Err()
			}
			rn.logger.WarnContext(ctx, "previous artifact fetch failed", "target", id.String(), "error", fetchErr)
		}
	}

	if !opts.Compare {
		switch {
		case fetchErr != nil:
			out.Status, out.Err = StatusFetchFailed, fetchErr
		case prev == nil:
			out.Status = StatusNoBaseline
		default:
			out.Status = StatusFetched
			out.PreviousLog = rn.deps.Previous.Path(prev.Name)
		}
		return out, nil
	}

	out, err = rn.compare(ctx, out, opts.CurrentHash, prev)
	if err != nil {
		return Outcome{}, err
	}
	if fetchErr != nil && out.Status == StatusNoBaseline {
		out.Status, out.Err = StatusFetchFailed, fetchErr
	}
	return out, nil
}

// fetchPrevious finds the most recent commit in commits with an artifact for
// id and downloads its log into the previous store. It also returns the
// BLAKE3 digest of the downloaded archive. No match is not an error.
func (rn *run) fetchPrevious(ctx context.Context, id target.ID, commits []string) (*locate.Candidate, string, error) {
	tmpl := id.WithHash("")
	m, err := rn.deps.Walker.Resolve(ctx, commits, tmpl)
	if errors.Is(err, history.ErrNoValidHash) {
		rn.logger.InfoContext(ctx, "no previous artifact", "target", id.String(), "commits", len(commits))
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	prevID := tmpl.WithHash(m.Hash)
	res, err := rn.deps.Fetcher.Fetch(ctx, fetch.Request{Target: prevID, ArtifactID: m.ArtifactID, Dest: rn.deps.Previous})
	if err != nil {
		return nil, "", err
	}
	return &locate.Candidate{Name: res.Log, ID: prevID}, res.Digest, nil
}

// compare runs the comparator for out.Target against prev, or against itself
// when prev is nil. Comparator rejections are recorded; other errors are
// returned.
func (rn *run) compare(ctx context.Context, out Outcome, currentHash string, prev *locate.Candidate) (Outcome, error) {
	id := out.Target
	current := rn.deps.Current.Path(id.ReportLog())
	summary := rn.deps.Summaries.Path(id.Summary())

	req := compare.SelfBaseline(currentHash, current, summary)
	out.Status = StatusNoBaseline
	if prev != nil {
		req = compare.Request{
			PreviousHash: prev.ID.Hash,
			PreviousLog:  rn.deps.Previous.Path(prev.Name),
			CurrentHash:  currentHash,
			CurrentLog:   current,
			Output:       summary,
		}
		out.Status = StatusCompared
		out.PreviousLog = req.PreviousLog
	}

	err := rn.deps.Comparator.Compare(ctx, req)
	var cerr *compare.Error
	switch {
	case err == nil:
		out.Summary = summary
		rn.logger.DebugContext(ctx, "summary written", "target", id.String(), "summary", summary, "baseline", out.Status == StatusCompared)
		return out, nil
	case errors.As(err, &cerr):
		// Comparator rejections name the log file, unlike classifier records.
		rec := failures.Record{Category: failures.Testsuite, Name: id.ReportLog(), Reason: cerr.Error()}
		if aerr := rn.deps.Failures.Append(rec); aerr != nil {
			return Outcome{}, aerr
		}
		rn.logger.WarnContext(ctx, "comparison rejected", "target", id.String(), "error", err)
		out.Status, out.Err = StatusCompareFailed, err
		return out, nil
	default:
		return Outcome{}, err
	}
}
