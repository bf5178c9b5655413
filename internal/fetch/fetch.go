// Package fetch downloads a previous commit's report-log artifact, unpacks it
// in a staging directory and moves the log into a log store.
package fetch

import (
	"archive/zip"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"artifactsync/internal/logging"
	"artifactsync/internal/store"
	"artifactsync/internal/target"
)

var (
	// ErrEmptyArchive means the download produced no bytes or a zip without entries.
	ErrEmptyArchive = errors.New("empty archive")
	// ErrNoLogInArchive means the archive did not hold the expected report log;
	// its contents were unpacked flat into staging and no log was produced.
	ErrNoLogInArchive = errors.New("report log not in archive")
	// ErrUnsafePath means an archive entry would land outside the staging directory.
	ErrUnsafePath = errors.New("unsafe archive entry path")
)

// Downloader streams an artifact archive. *github.Client implements it.
type Downloader interface {
	DownloadArtifact(ctx context.Context, repo string, id int64, w io.Writer) (int64, error)
}

// Request names the artifact to fetch and where its log goes.
type Request struct {
	Target     target.ID // bound to the hash the artifact belongs to
	ArtifactID int64
	Dest       store.Store
}

// Result describes a fetched log.
type Result struct {
	Log     string // entry name in the destination store
	Archive string // staged zip path
	Size    int64
	Digest  string // BLAKE3 of the archive, hex
}

// Fetcher downloads artifacts from one repository into a staging directory.
type Fetcher struct {
	client  Downloader
	repo    string
	staging string
	logger  *slog.Logger
}

// New returns a Fetcher for repo ("owner/name") staging under dir.
func New(client Downloader, repo, dir string) (*Fetcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fetch: create staging %s: %w", dir, err)
	}
	return &Fetcher{client: client, repo: repo, staging: dir, logger: logging.New("fetch")}, nil
}

// Fetch downloads req's artifact and places its report log in req.Dest under
// the canonical report-log name. No retries are attempted.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	logName := req.Target.ReportLog()
	stem := strings.TrimSuffix(logName, ".log")
	res := &Result{Archive: filepath.Join(f.staging, stem+target.ArchiveSuffix)}

	n, digest, err := f.download(ctx, req.ArtifactID, res.Archive)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", logName, err)
	}
	res.Size, res.Digest = n, digest
	f.logger.InfoContext(ctx, "archive staged", "log", logName, "archive", res.Archive, "bytes", n, "blake3", digest)

	zr, err := zip.OpenReader(res.Archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		zr.Close()
		return nil, fmt.Errorf("fetch %s: %w", logName, ErrUnsafePath)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: open archive: %w", logName, err)
	}
	defer zr.Close()

	if len(zr.File) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", logName, ErrEmptyArchive)
	}
	for _, zf := range zr.File {
		if !filepath.IsLocal(zf.Name) {
			return nil, fmt.Errorf("fetch %s: %w: %q", logName, ErrUnsafePath, zf.Name)
		}
	}

	entry := findEntry(zr.File, logName)
	if entry == nil {
		if err := extractAll(zr.File, f.staging); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", logName, err)
		}
		f.logger.WarnContext(ctx, "archive holds no report log, extracted flat", "log", logName, "entries", len(zr.File))
		return nil, fmt.Errorf("fetch %s: %w", logName, ErrNoLogInArchive)
	}

	dir := filepath.Join(f.staging, stem)
	if err := extractAll(zr.File, dir); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", logName, err)
	}
	if err := moveInto(ctx, filepath.Join(dir, filepath.FromSlash(entry.Name)), req.Dest, logName); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", logName, err)
	}
	res.Log = logName
	return res, nil
}

func (f *Fetcher) download(ctx context.Context, id int64, dst string) (int64, string, error) {
	out, err := os.Create(dst)
	if err != nil {
		return 0, "", fmt.Errorf("create %s: %w", dst, err)
	}
	h := blake3.New()
	n, err := f.client.DownloadArtifact(ctx, f.repo, id, io.MultiWriter(out, h))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = ErrEmptyArchive
	}
	if err != nil {
		os.Remove(dst)
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

func findEntry(files []*zip.File, name string) *zip.File {
	for _, zf := range files {
		if !zf.FileInfo().IsDir() && path.Base(zf.Name) == name {
			return zf
		}
	}
	return nil
}

func extractAll(files []*zip.File, dir string) error {
	for _, zf := range files {
		dst := filepath.Join(dir, filepath.FromSlash(zf.Name))
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return fmt.Errorf("extract %s: %w", zf.Name, err)
			}
			continue
		}
		if err := extractFile(zf, dst); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(zf *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("extract %s: %w", zf.Name, err)
	}
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("extract %s: %w", zf.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("extract %s: %w", zf.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", zf.Name, err)
	}
	return out.Close()
}

func moveInto(ctx context.Context, src string, dest store.Store, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("move %s: %w", name, err)
	}
	defer in.Close()
	if err := dest.Put(ctx, name, in); err != nil {
		return fmt.Errorf("move %s: %w", name, err)
	}
	in.Close()
	return os.Remove(src)
}
