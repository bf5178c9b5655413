package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"artifactsync/internal/fetch"
	"artifactsync/internal/github"
	"artifactsync/internal/history"
	"artifactsync/internal/logging"
	"artifactsync/internal/reconcile"
)

var downloadFlags struct {
	hash      string
	phash     string
	token     string
	noCompare bool
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Classify a commit's artifacts, fetch previous logs and compare",
	Long: `Download binds every matrix target to --hash, records build and testsuite
failures, fetches the most recent earlier report log for each usable target
from GitHub Actions and writes a comparison summary.

With --phash, previous logs already on disk for that hash are used first;
stale logs for other hashes are removed.`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func init() {
	f := downloadCmd.Flags()
	f.StringVar(&downloadFlags.hash, "hash", "", "Commit hash of the current run (required)")
	f.StringVar(&downloadFlags.phash, "phash", "", "Known-good previous commit hash")
	f.StringVar(&downloadFlags.token, "token", "", "GitHub token (default: $GITHUB_TOKEN)")
	f.BoolVar(&downloadFlags.noCompare, "no-compare", false, "Only fetch previous logs; skip comparison")

	_ = downloadCmd.MarkFlagRequired("hash")
}

func runDownload(cmd *cobra.Command, _ []string) error {
	token := downloadFlags.token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return errors.New("a GitHub token is required (--token or $GITHUB_TOKEN)")
	}

	client, err := github.New(cfg.GitHub.APIURL, token,
		github.WithTimeout(time.Duration(cfg.GitHub.Timeout)),
		github.WithAPIVersion(cfg.GitHub.APIVersion),
		github.WithLogger(logging.New("github")),
	)
	if err != nil {
		return err
	}
	fetcher, err := fetch.New(client, cfg.GitHub.CIRepo, cfg.Paths.Staging)
	if err != nil {
		return err
	}
	walker := history.NewGitHub(client, cfg.GitHub.SourceRepo, cfg.GitHub.CIRepo, cfg.GitHub.HistoryDepth)

	runner, err := newRunner(walker, fetcher)
	if err != nil {
		return err
	}
	rep, err := runner.Download(cmd.Context(), reconcile.DownloadOptions{
		CurrentHash:  downloadFlags.hash,
		PreviousHash: downloadFlags.phash,
		Compare:      !downloadFlags.noCompare,
	})
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), rep)
}
