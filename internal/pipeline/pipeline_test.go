package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	base := Config{
		Sources:       []string{"a.mp4"},
		TargetSeconds: 300,
		OutputPath:    "out.mp4",
		Planner:       "default",
		Profile:       DefaultProfile(),
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero target", func(c *Config) { c.TargetSeconds = 0 }},
		{"empty output", func(c *Config) { c.OutputPath = "" }},
		{"no sources no catalog", func(c *Config) { c.Sources = nil }},
		{"bad planner", func(c *Config) { c.Planner = "chaotic" }},
		{"bad algorithm", func(c *Config) { c.Algorithm = "zigzag" }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestConfigValidate_CatalogInsteadOfSources(t *testing.T) {
	t.Parallel()

	cfg := Config{
		TargetSeconds: 60,
		OutputPath:    "out.mp4",
		CatalogPath:   "catalog.db",
		Profile:       DefaultProfile(),
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("catalog-backed config rejected: %v", err)
	}
}

func TestLoadProfile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := []byte("per_file_max: 90\nhead_guard: 30\nsnap_keyframes: false\ntemp_candidates:\n  - /scratch\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if p.PerFileMax != 90 || p.HeadGuard != 30 {
		t.Fatalf("overrides not applied: %+v", p)
	}
	if p.SnapKeyframesValue() {
		t.Fatal("snap_keyframes: false not honored")
	}
	// untouched fields keep their defaults
	if p.TailGuard != DefaultProfile().TailGuard {
		t.Fatalf("tail guard default lost: %d", p.TailGuard)
	}
	if len(p.TempCandidates) != 1 || p.TempCandidates[0] != "/scratch" {
		t.Fatalf("temp candidates = %v", p.TempCandidates)
	}
}

func TestLoadProfile_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing profile")
	}
}

func TestNumberedOutput(t *testing.T) {
	t.Parallel()

	if got := numberedOutput("pmv.mp4", 0, 1); got != "pmv.mp4" {
		t.Fatalf("single output renamed: %s", got)
	}
	if got := numberedOutput("pmv.mp4", 0, 3); got != "pmv_01.mp4" {
		t.Fatalf("batch output = %s, want pmv_01.mp4", got)
	}
	if got := numberedOutput("out/batch.mkv", 11, 12); got != filepath.Join("out", "batch_12.mkv") {
		t.Fatalf("batch output = %s", got)
	}
}
