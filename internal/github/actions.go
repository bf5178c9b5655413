package github

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"
)

// Artifact is a workflow run artifact.
type Artifact struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	SizeInBytes int64     `json:"size_in_bytes"`
	Expired     bool      `json:"expired"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type artifactList struct {
	TotalCount int        `json:"total_count"`
	Artifacts  []Artifact `json:"artifacts"`
}

// Commit is one entry of a commit listing.
type Commit struct {
	SHA     string `json:"sha"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
}

// ListArtifacts returns the artifacts of repo ("owner/name") called name,
// newest first.
func (c *Client) ListArtifacts(ctx context.Context, repo, name string) ([]Artifact, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("per_page", "100")
	u := fmt.Sprintf("%s/repos/%s/actions/artifacts?%s", c.baseURL, repo, q.Encode())

	var out artifactList
	if err := c.getJSON(ctx, u, "list artifacts", &out); err != nil {
		return nil, err
	}
	return out.Artifacts, nil
}

// DownloadArtifact streams the zip archive of artifact id in repo to w and
// returns the number of bytes written.
func (c *Client) DownloadArtifact(ctx context.Context, repo string, id int64, w io.Writer) (int64, error) {
	u := fmt.Sprintf("%s/repos/%s/actions/artifacts/%d/zip", c.baseURL, repo, id)
	op := fmt.Sprintf("download artifact %d", id)

	resp, err := c.do(ctx, u, op)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%s: read body: %w", op, err)
	}
	c.logger.InfoContext(ctx, "artifact downloaded", "id", id, "bytes", n)
	return n, nil
}

// ListCommits returns up to limit commits of repo reachable from sha, newest
// first. The first entry is sha itself.
func (c *Client) ListCommits(ctx context.Context, repo, sha string, limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = 30
	}
	if limit > 100 {
		limit = 100
	}
	q := url.Values{}
	q.Set("sha", sha)
	q.Set("per_page", fmt.Sprint(limit))
	u := fmt.Sprintf("%s/repos/%s/commits?%s", c.baseURL, repo, q.Encode())

	var out []Commit
	if err := c.getJSON(ctx, u, "list commits", &out); err != nil {
		return nil, err
	}
	return out, nil
}
