package target

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Arch is an architecture width paired with its ABI. Modes lists the
// multilib modes the arch may be built in; it has no default.
type Arch struct {
	Width string `yaml:"width" json:"width"`
	ABI   string `yaml:"abi" json:"abi"`
	Modes []Mode `yaml:"modes" json:"modes"`
}

// Profile is an ISA extension profile. Each profile declares the modes and
// arch widths it is eligible for; neither has a default.
type Profile struct {
	Ext    string   `yaml:"ext" json:"ext"`
	Modes  []Mode   `yaml:"modes" json:"modes"`
	Widths []string `yaml:"widths" json:"widths"`
}

// Combo is one candidate point of the matrix before exclusion.
type Combo struct {
	Libc    string
	Arch    Arch
	Mode    Mode
	Profile Profile
}

// ID returns the template identifier for c.
func (c Combo) ID() ID {
	return ID{Libc: c.Libc, Arch: c.Arch.Width, Ext: c.Profile.Ext, ABI: c.Arch.ABI, Mode: c.Mode}
}

// Rule is a named exclusion predicate. A combo is dropped when any rule
// excludes it.
type Rule struct {
	Name     string
	Excludes func(Combo) bool
}

// DefaultRules enforce the eligibility declared on arches and profiles.
var DefaultRules = []Rule{
	{Name: "arch-mode", Excludes: func(c Combo) bool { return !slices.Contains(c.Arch.Modes, c.Mode) }},
	{Name: "profile-mode", Excludes: func(c Combo) bool { return !slices.Contains(c.Profile.Modes, c.Mode) }},
	{Name: "profile-width", Excludes: func(c Combo) bool { return !slices.Contains(c.Profile.Widths, c.Arch.Width) }},
}

// Matrix is the static configuration the target set is generated from.
type Matrix struct {
	Libcs    []string  `yaml:"libcs" json:"libcs"`
	Arches   []Arch    `yaml:"arches" json:"arches"`
	Modes    []Mode    `yaml:"modes" json:"modes"`
	Profiles []Profile `yaml:"profiles" json:"profiles"`

	// Rules defaults to DefaultRules when nil.
	Rules []Rule `yaml:"-" json:"-"`
}

// Extension profiles built by CI.
const (
	ExtGC       = "gc"
	ExtGCV      = "gcv"
	ExtBitmanip = "gc_zba_zbb_zbc_zbs"
	ExtCrypto   = "gcv_zvbb_zvbc_zvkg_zvkn_zvknc_zvkned_zvkng_zvknha_zvknhb_zvks_zvksc_zvksed_zvksg_zvksh_zvkt"
	ExtFull     = "imafdcv_zicond_zawrs_zbc_zvkng_zvksg_zvbb_zvbc_zicsr_zba_zbb_zbs_zicbom_zicbop_zicboz_zfhmin_zkt"
)

// DefaultMatrix returns the matrix CI currently builds:
//
//   - rv32 is never built multilib
//   - vector, bitmanip, crypto and full profiles are non-multilib only
//   - the full profile is rv64 only
//   - plain gc is multilib only
func DefaultMatrix() Matrix {
	both := []string{"rv32", "rv64"}
	return Matrix{
		Libcs: []string{"gcc-linux", "gcc-newlib"},
		Arches: []Arch{
			{Width: "rv32", ABI: "ilp32d", Modes: []Mode{NonMultilib}},
			{Width: "rv64", ABI: "lp64d", Modes: []Mode{Multilib, NonMultilib}},
		},
		Modes: []Mode{Multilib, NonMultilib},
		Profiles: []Profile{
			{Ext: ExtGC, Modes: []Mode{Multilib}, Widths: both},
			{Ext: ExtGCV, Modes: []Mode{NonMultilib}, Widths: both},
			{Ext: ExtBitmanip, Modes: []Mode{NonMultilib}, Widths: both},
			{Ext: ExtCrypto, Modes: []Mode{NonMultilib}, Widths: both},
			{Ext: ExtFull, Modes: []Mode{NonMultilib}, Widths: []string{"rv64"}},
		},
	}
}

// Exclusion records why a combo was dropped.
type Exclusion struct {
	Template ID
	Rule     string
}

// Generate returns the template of every combo no rule excludes, in
// libc, arch, mode, profile order.
func (m Matrix) Generate() []ID {
	var out []ID
	m.walk(func(c Combo, rule string) {
		if rule == "" {
			out = append(out, c.ID())
		}
	})
	return out
}

// Excluded returns every dropped combo with the first rule that dropped it.
func (m Matrix) Excluded() []Exclusion {
	var out []Exclusion
	m.walk(func(c Combo, rule string) {
		if rule != "" {
			out = append(out, Exclusion{Template: c.ID(), Rule: rule})
		}
	})
	return out
}

func (m Matrix) walk(fn func(Combo, string)) {
	rules := m.Rules
	if rules == nil {
		rules = DefaultRules
	}
	for _, libc := range m.Libcs {
		for _, arch := range m.Arches {
			for _, mode := range m.Modes {
				for _, p := range m.Profiles {
					c := Combo{Libc: libc, Arch: arch, Mode: mode, Profile: p}
					fn(c, excludedBy(rules, c))
				}
			}
		}
	}
}

func excludedBy(rules []Rule, c Combo) string {
	for _, r := range rules {
		if r.Excludes(c) {
			return r.Name
		}
	}
	return ""
}

var (
	libcPattern  = regexp.MustCompile(`^[a-z0-9]+-[a-z0-9]+$`)
	widthPattern = regexp.MustCompile(`^rv[0-9]+$`)
)

// Validate reports every configuration problem in m. Arches and profiles
// must declare their eligibility explicitly.
func (m Matrix) Validate() error {
	var errs []error
	if len(m.Libcs) == 0 {
		errs = append(errs, errors.New("no libcs"))
	}
	for _, l := range m.Libcs {
		if !libcPattern.MatchString(l) {
			errs = append(errs, fmt.Errorf("libc %q: want <toolchain>-<libc>", l))
		}
	}
	for _, mode := range m.Modes {
		if !mode.Valid() {
			errs = append(errs, fmt.Errorf("unknown mode %q", mode))
		}
	}
	for _, a := range m.Arches {
		if !widthPattern.MatchString(a.Width) {
			errs = append(errs, fmt.Errorf("arch %q: want rv<width>", a.Width))
		}
		if a.ABI == "" || strings.Contains(a.ABI, Delimiter) {
			errs = append(errs, fmt.Errorf("arch %s: bad abi %q", a.Width, a.ABI))
		}
		if len(a.Modes) == 0 {
			errs = append(errs, fmt.Errorf("arch %s: no eligible modes declared", a.Width))
		}
		errs = append(errs, m.checkModes("arch "+a.Width, a.Modes)...)
	}
	for _, p := range m.Profiles {
		if p.Ext == "" || strings.Contains(p.Ext, Delimiter) {
			errs = append(errs, fmt.Errorf("profile %q: bad extension string", p.Ext))
		}
		if len(p.Modes) == 0 {
			errs = append(errs, fmt.Errorf("profile %s: no eligible modes declared", p.Ext))
		}
		if len(p.Widths) == 0 {
			errs = append(errs, fmt.Errorf("profile %s: no eligible widths declared", p.Ext))
		}
		errs = append(errs, m.checkModes("profile "+p.Ext, p.Modes)...)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("target: invalid matrix: %w", err)
	}
	return nil
}

func (m Matrix) checkModes(owner string, modes []Mode) []error {
	var errs []error
	for _, mode := range modes {
		if !slices.Contains(m.Modes, mode) {
			errs = append(errs, fmt.Errorf("%s: mode %q not in matrix modes", owner, mode))
		}
	}
	return errs
}
