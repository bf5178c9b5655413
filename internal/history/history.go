// Package history proposes earlier commits for a hash and finds the most
// recent one that still has a downloadable artifact for a target.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"artifactsync/internal/github"
	"artifactsync/internal/logging"
	"artifactsync/internal/target"
)

// ErrNoValidHash is returned by Resolve when no candidate has a usable artifact.
var ErrNoValidHash = errors.New("no valid hash")

// Match is a prior commit with a downloadable artifact.
type Match struct {
	Hash       string
	ArtifactID int64
}

// Walker is the commit-history collaborator.
type Walker interface {
	// Candidates returns commits before hash, most recent first.
	Candidates(ctx context.Context, hash string) ([]string, error)
	// Resolve returns the first candidate whose report-log artifact for tmpl
	// exists, or ErrNoValidHash.
	Resolve(ctx context.Context, candidates []string, tmpl target.ID) (Match, error)
}

// API is the subset of *github.Client the GitHub walker needs.
type API interface {
	ListCommits(ctx context.Context, repo, sha string, limit int) ([]github.Commit, error)
	ListArtifacts(ctx context.Context, repo, name string) ([]github.Artifact, error)
}

// GitHub walks the source repository's history and looks artifacts up in the
// CI repository.
type GitHub struct {
	api        API
	sourceRepo string
	ciRepo     string
	depth      int
	logger     *slog.Logger
}

// NewGitHub returns a Walker that proposes up to depth earlier commits of
// sourceRepo and resolves them against artifacts of ciRepo.
func NewGitHub(api API, sourceRepo, ciRepo string, depth int) *GitHub {
	if depth <= 0 {
		depth = 30
	}
	return &GitHub{api: api, sourceRepo: sourceRepo, ciRepo: ciRepo, depth: depth, logger: logging.New("history")}
}

func (g *GitHub) Candidates(ctx context.Context, hash string) ([]string, error) {
	commits, err := g.api.ListCommits(ctx, g.sourceRepo, hash, g.depth+1)
	if err != nil {
		return nil, fmt.Errorf("history: candidates for %s: %w", hash, err)
	}
	out := make([]string, 0, len(commits))
	for _, c := range commits {
		if c.SHA == hash {
			continue
		}
		out = append(out, c.SHA)
	}
	return out, nil
}

// Resolve checks candidates in order. Artifact lookups that fail are logged
// and the next candidate is tried.
func (g *GitHub) Resolve(ctx context.Context, candidates []string, tmpl target.ID) (Match, error) {
	for _, hash := range candidates {
		name := tmpl.WithHash(hash).ReportLog()
		arts, err := g.api.ListArtifacts(ctx, g.ciRepo, name)
		if err != nil {
			if ctx.Err() != nil {
				return Match{}, ctx.Err()
			}
			g.logger.WarnContext(ctx, "artifact lookup failed", "artifact", name, "error", err)
			continue
		}
		for _, a := range arts {
			if a.Name == name && !a.Expired {
				return Match{Hash: hash, ArtifactID: a.ID}, nil
			}
		}
	}
	return Match{}, fmt.Errorf("history: %s after %d candidates: %w", tmpl, len(candidates), ErrNoValidHash)
}

// Static is a Walker over fixed data, for tests and offline runs.
type Static struct {
	Commits   []string
	Artifacts map[string]int64 // report-log name -> artifact ID
}

func (s *Static) Candidates(_ context.Context, _ string) ([]string, error) {
	return s.Commits, nil
}

func (s *Static) Resolve(_ context.Context, candidates []string, tmpl target.ID) (Match, error) {
	for _, hash := range candidates {
		if id, ok := s.Artifacts[tmpl.WithHash(hash).ReportLog()]; ok {
			return Match{Hash: hash, ArtifactID: id}, nil
		}
	}
	return Match{}, ErrNoValidHash
}
