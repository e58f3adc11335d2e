package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("h\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLocator_Locate(t *testing.T) {
	t.Parallel()

	day := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		files     []string
		dirs      []string
		wantName  string
		wantFuzzy bool
		wantErrIs error
	}{
		{
			name:     "canonical",
			files:    []string{"01-01-2021.csv", "backup_01-01-2021.csv"},
			wantName: "01-01-2021.csv",
		},
		{
			name:      "fuzzy_takes_lexicographic_first",
			files:     []string{"z_01-01-2021.csv", "a_01-01-2021.csv", "01-02-2021.csv"},
			wantName:  "a_01-01-2021.csv",
			wantFuzzy: true,
		},
		{
			name:      "fuzzy_ignores_directories",
			files:     []string{"m_01-01-2021.csv"},
			dirs:      []string{"a_01-01-2021.csv"},
			wantName:  "m_01-01-2021.csv",
			wantFuzzy: true,
		},
		{
			name:      "canonical_name_as_directory_is_not_a_match",
			dirs:      []string{"01-01-2021.csv"},
			wantErrIs: ErrFileNotFound,
		},
		{
			name:      "nothing",
			files:     []string{"01-02-2021.csv"},
			wantErrIs: ErrFileNotFound,
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for _, f := range c.files {
				touch(t, dir, f)
			}
			for _, d := range c.dirs {
				if err := os.Mkdir(filepath.Join(dir, d), 0o755); err != nil {
					t.Fatalf("mkdir: %v", err)
				}
			}

			m, err := Locator{Dir: dir}.Locate(context.Background(), day)
			if c.wantErrIs != nil {
				if !errors.Is(err, c.wantErrIs) {
					t.Fatalf("Locate() error = %v, want %v", err, c.wantErrIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("Locate() unexpected error: %v", err)
			}
			if got := filepath.Base(m.Path); got != c.wantName {
				t.Fatalf("Locate() = %s, want %s", got, c.wantName)
			}
			if m.Fuzzy != c.wantFuzzy {
				t.Fatalf("Fuzzy = %v, want %v", m.Fuzzy, c.wantFuzzy)
			}
		})
	}
}

func TestLocator_MissingDirectory(t *testing.T) {
	t.Parallel()

	l := Locator{Dir: filepath.Join(t.TempDir(), "nope")}
	_, err := l.Locate(context.Background(), time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrDirectoryAccess) {
		t.Fatalf("Locate() error = %v, want ErrDirectoryAccess", err)
	}
}

func TestCanonicalName(t *testing.T) {
	t.Parallel()

	if got := CanonicalName(time.Date(2020, 3, 9, 0, 0, 0, 0, time.UTC)); got != "03-09-2020.csv" {
		t.Fatalf("CanonicalName = %q", got)
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	c := filepath.Join(dir, "c.csv")
	for p, body := range map[string]string{a: "x,y\n1,2\n", b: "x,y\n1,2\n", c: "x,y\n1,3\n"} {
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	fa, err := Fingerprint(a)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	fb, _ := Fingerprint(b)
	fc, _ := Fingerprint(c)
	if fa != fb {
		t.Fatalf("identical content fingerprints differ: %s vs %s", fa, fb)
	}
	if fa == fc {
		t.Fatalf("different content produced same fingerprint %s", fa)
	}
	if len(fa) != 16 {
		t.Fatalf("fingerprint %q should be 16 hex digits", fa)
	}

	if _, err := Fingerprint(filepath.Join(dir, "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Fingerprint(missing) error = %v", err)
	}
}
