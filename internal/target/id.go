package target

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter joins the segments of an artifact name.
const Delimiter = "-"

// HashPlaceholder stands in for the hash of an unbound template.
const HashPlaceholder = "{}"

// File name suffixes derived from a target name.
const (
	ReportSuffix  = "-report.log"
	ArchiveSuffix = ".zip"
	SummarySuffix = "-report-summary.md"
)

// ErrInvalidName is returned when a name does not follow the artifact layout.
var ErrInvalidName = errors.New("invalid artifact name")

// Mode is the multilib mode of a toolchain build.
type Mode string

const (
	Multilib    Mode = "multilib"
	NonMultilib Mode = "non-multilib"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == Multilib || m == NonMultilib
}

// Kind classifies a file name by its suffix.
type Kind int

const (
	KindBare    Kind = iota // no suffix
	KindReport              // -report.log
	KindArchive             // .zip
	KindSummary             // -report-summary.md
)

func (k Kind) String() string {
	switch k {
	case KindReport:
		return "report"
	case KindArchive:
		return "archive"
	case KindSummary:
		return "summary"
	default:
		return "bare"
	}
}

// ID identifies one build/test target, optionally bound to a commit hash.
//
// CI names artifacts {libc}-{arch}{ext}-{abi}-{hash}-{mode}, which puts the
// hash at segment 4 when the name is split on Delimiter. Hand-named files
// sometimes carry the hash last ({libc}-{arch}{ext}-{abi}-{mode}-{hash});
// Parse accepts both and String reproduces whichever layout was parsed.
type ID struct {
	Libc string // e.g. gcc-linux
	Arch string // arch width, e.g. rv64
	Ext  string // extension profile, e.g. gc
	ABI  string // e.g. lp64d
	Mode Mode
	Hash string // empty for templates

	hashLast bool
}

// String returns the bare artifact name. Templates render the hash as
// HashPlaceholder.
func (id ID) String() string {
	hash := id.Hash
	if hash == "" {
		hash = HashPlaceholder
	}
	parts := []string{id.Libc, id.Arch + id.Ext, id.ABI}
	if id.hashLast {
		parts = append(parts, string(id.Mode), hash)
	} else {
		parts = append(parts, hash, string(id.Mode))
	}
	return strings.Join(parts, Delimiter)
}

// ReportLog returns the testsuite report log file name.
func (id ID) ReportLog() string { return id.String() + ReportSuffix }

// Archive returns the build archive file name.
func (id ID) Archive() string { return id.String() + ArchiveSuffix }

// Summary returns the comparison summary file name.
func (id ID) Summary() string { return id.String() + SummarySuffix }

// File returns the file name of id for kind k.
func (id ID) File(k Kind) string {
	switch k {
	case KindReport:
		return id.ReportLog()
	case KindArchive:
		return id.Archive()
	case KindSummary:
		return id.Summary()
	default:
		return id.String()
	}
}

// WithHash returns a copy of id bound to hash.
func (id ID) WithHash(hash string) ID {
	id.Hash = hash
	return id
}

// IsTemplate reports whether id is not bound to a hash.
func (id ID) IsTemplate() bool { return id.Hash == "" }

// SameTarget reports whether id and o name the same target, ignoring the hash
// and the name layout.
func (id ID) SameTarget(o ID) bool {
	return id.Libc == o.Libc &&
		id.Arch == o.Arch &&
		id.Ext == o.Ext &&
		id.ABI == o.ABI &&
		id.Mode == o.Mode
}

// Parse parses a bare artifact name.
func Parse(name string) (ID, error) {
	id, k, err := ParseFile(name)
	if err != nil {
		return ID{}, err
	}
	if k != KindBare {
		return ID{}, fmt.Errorf("target: parse %q: %w: unexpected %s suffix", name, ErrInvalidName, k)
	}
	return id, nil
}

// ParseFile parses a file name derived from an artifact name and reports
// which kind of file it is.
func ParseFile(name string) (ID, Kind, error) {
	stem, kind := splitSuffix(name)
	id, err := parseStem(stem)
	if err != nil {
		return ID{}, KindBare, fmt.Errorf("target: parse %q: %w", name, err)
	}
	return id, kind, nil
}

func splitSuffix(name string) (string, Kind) {
	switch {
	case strings.HasSuffix(name, SummarySuffix):
		return strings.TrimSuffix(name, SummarySuffix), KindSummary
	case strings.HasSuffix(name, ReportSuffix):
		return strings.TrimSuffix(name, ReportSuffix), KindReport
	case strings.HasSuffix(name, ArchiveSuffix):
		return strings.TrimSuffix(name, ArchiveSuffix), KindArchive
	}
	return name, KindBare
}

func parseStem(stem string) (ID, error) {
	seg := strings.Split(stem, Delimiter)
	if len(seg) < 6 {
		return ID{}, fmt.Errorf("%w: want at least 6 segments, got %d", ErrInvalidName, len(seg))
	}
	for i, s := range seg {
		if s == "" {
			return ID{}, fmt.Errorf("%w: empty segment %d", ErrInvalidName, i)
		}
	}

	arch, ext, ok := splitArch(seg[2])
	if !ok {
		return ID{}, fmt.Errorf("%w: bad arch segment %q", ErrInvalidName, seg[2])
	}
	id := ID{
		Libc: seg[0] + Delimiter + seg[1],
		Arch: arch,
		Ext:  ext,
		ABI:  seg[3],
	}

	rest := seg[4:]
	switch {
	case len(rest) == 2 && rest[0] == "non" && rest[1] == string(Multilib):
		return ID{}, fmt.Errorf("%w: %q has no hash", ErrInvalidName, stem)
	case len(rest) == 2 && rest[1] == string(Multilib):
		id.Hash, id.Mode = rest[0], Multilib
	case len(rest) == 3 && rest[1]+Delimiter+rest[2] == string(NonMultilib):
		id.Hash, id.Mode = rest[0], NonMultilib
	case len(rest) == 2 && rest[0] == string(Multilib):
		id.Hash, id.Mode, id.hashLast = rest[1], Multilib, true
	case len(rest) == 3 && rest[0]+Delimiter+rest[1] == string(NonMultilib):
		id.Hash, id.Mode, id.hashLast = rest[2], NonMultilib, true
	default:
		return ID{}, fmt.Errorf("%w: cannot locate hash and mode in %q", ErrInvalidName, strings.Join(rest, Delimiter))
	}
	return id, nil
}

// splitArch splits "rv64gc" into ("rv64", "gc").
func splitArch(s string) (arch, ext string, ok bool) {
	if !strings.HasPrefix(s, "rv") {
		return "", "", false
	}
	i := 2
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 2 || i == len(s) {
		return "", "", false
	}
	return s[:i], s[i:], true
}
