package target

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultMatrix_Generate(t *testing.T) {
	var got []string
	for _, id := range DefaultMatrix().Generate() {
		got = append(got, id.String())
	}

	var want []string
	for _, libc := range []string{"gcc-linux", "gcc-newlib"} {
		want = append(want,
			libc+"-rv32"+ExtGCV+"-ilp32d-{}-non-multilib",
			libc+"-rv32"+ExtBitmanip+"-ilp32d-{}-non-multilib",
			libc+"-rv32"+ExtCrypto+"-ilp32d-{}-non-multilib",
			libc+"-rv64"+ExtGC+"-lp64d-{}-multilib",
			libc+"-rv64"+ExtGCV+"-lp64d-{}-non-multilib",
			libc+"-rv64"+ExtBitmanip+"-lp64d-{}-non-multilib",
			libc+"-rv64"+ExtCrypto+"-lp64d-{}-non-multilib",
			libc+"-rv64"+ExtFull+"-lp64d-{}-non-multilib",
		)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Generate mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultMatrix_Deterministic(t *testing.T) {
	m := DefaultMatrix()
	if diff := cmp.Diff(m.Generate(), m.Generate(), cmp.AllowUnexported(ID{})); diff != "" {
		t.Errorf("two runs differ:\n%s", diff)
	}
}

func TestDefaultMatrix_Exclusions(t *testing.T) {
	m := DefaultMatrix()
	generated := m.Generate()
	excluded := m.Excluded()

	total := len(m.Libcs) * len(m.Arches) * len(m.Modes) * len(m.Profiles)
	if len(generated)+len(excluded) != total {
		t.Fatalf("generated %d + excluded %d != %d combos", len(generated), len(excluded), total)
	}

	for _, id := range generated {
		switch {
		case id.Arch == "rv32" && id.Mode == Multilib:
			t.Errorf("rv32 multilib generated: %s", id)
		case id.Ext != ExtGC && id.Mode == Multilib:
			t.Errorf("extended profile in multilib: %s", id)
		case id.Ext == ExtFull && id.Arch == "rv32":
			t.Errorf("full profile on rv32: %s", id)
		case id.Ext == ExtGC && id.Mode == NonMultilib:
			t.Errorf("gc in non-multilib: %s", id)
		}
	}

	byRule := map[string]int{}
	for _, e := range excluded {
		byRule[e.Rule]++
	}
	// rv32 multilib: 2 libcs * 5 profiles.
	if byRule["arch-mode"] != 10 {
		t.Errorf("arch-mode exclusions = %d, want 10", byRule["arch-mode"])
	}
}

func TestMatrix_CustomRules(t *testing.T) {
	m := DefaultMatrix()
	m.Rules = append(append([]Rule{}, DefaultRules...), Rule{
		Name:     "no-newlib",
		Excludes: func(c Combo) bool { return c.Libc == "gcc-newlib" },
	})
	for _, id := range m.Generate() {
		if id.Libc == "gcc-newlib" {
			t.Fatalf("newlib target generated: %s", id)
		}
	}
	if n := len(m.Generate()); n != 8 {
		t.Errorf("len = %d, want 8", n)
	}
}

func TestMatrix_EmptyIsValidOutput(t *testing.T) {
	m := DefaultMatrix()
	m.Rules = []Rule{{Name: "all", Excludes: func(Combo) bool { return true }}}
	if got := m.Generate(); len(got) != 0 {
		t.Errorf("expected no templates, got %d", len(got))
	}
}

func TestMatrix_Validate(t *testing.T) {
	if err := DefaultMatrix().Validate(); err != nil {
		t.Fatalf("default matrix invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Matrix)
		want   string
	}{
		{"profile without modes", func(m *Matrix) {
			m.Profiles = append(m.Profiles, Profile{Ext: "gcb", Widths: []string{"rv64"}})
		}, "profile gcb: no eligible modes"},
		{"profile without widths", func(m *Matrix) {
			m.Profiles = append(m.Profiles, Profile{Ext: "gcb", Modes: []Mode{Multilib}})
		}, "profile gcb: no eligible widths"},
		{"arch without modes", func(m *Matrix) {
			m.Arches = append(m.Arches, Arch{Width: "rv128", ABI: "lp128"})
		}, "arch rv128: no eligible modes"},
		{"libc without toolchain", func(m *Matrix) {
			m.Libcs = append(m.Libcs, "musl")
		}, `libc "musl"`},
		{"unknown mode", func(m *Matrix) {
			m.Profiles[0].Modes = []Mode{"semi-multilib"}
		}, "not in matrix modes"},
		{"dash in extension", func(m *Matrix) {
			m.Profiles[0].Ext = "gc-v"
		}, "bad extension string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DefaultMatrix()
			tt.mutate(&m)
			err := m.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
