package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func dryRunEnv(t *testing.T, control string) (map[string]string, string) {
	t.Helper()
	dir := t.TempDir()
	reports := filepath.Join(dir, "csse_covid_19_daily_reports")
	if err := os.Mkdir(reports, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run_date.txt"), []byte(control), 0o644); err != nil {
		t.Fatalf("write control: %v", err)
	}
	return map[string]string{"DATA_DIR": dir, "DRY_RUN": "true"}, reports
}

func TestRun_DryRun(t *testing.T) {
	env, reports := dryRunEnv(t, "start_date:2021-01-01\nend_date:2021-01-02\n")
	body := "Province_State,Country_Region,Confirmed,Lat,Long_\nAlberta,Canada,100,53.9333,-116.5765\n"
	if err := os.WriteFile(filepath.Join(reports, "01-01-2021.csv"), []byte(body), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	var out bytes.Buffer
	code := run(context.Background(), nil, func(k string) string { return env[k] }, &out)
	if code != 0 {
		t.Fatalf("run() = %d, output:\n%s", code, out.String())
	}
	for _, want := range []string{"pipeline: no file for date", "pipeline: file loaded", "ingest: done"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRun_FatalConditions(t *testing.T) {
	cases := []struct {
		name    string
		control string
		args    []string
		extra   map[string]string
	}{
		{name: "malformed_control", control: "start_date:not-a-date\nend_date:2021-01-01\n"},
		{name: "invalid_config", control: "start_date:\nend_date:\n", args: []string{"-batch_size=0"}},
		{name: "positional_args", control: "start_date:\nend_date:\n", args: []string{"extra"}},
		{name: "unknown_flag", control: "start_date:\nend_date:\n", args: []string{"-nope"}},
		{name: "missing_reports_dir", control: "start_date:2021-01-01\nend_date:2021-01-01\n",
			extra: map[string]string{"REPORTS_DIR": "/definitely/not/here"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env, _ := dryRunEnv(t, c.control)
			for k, v := range c.extra {
				env[k] = v
			}
			var out bytes.Buffer
			if code := run(context.Background(), c.args, func(k string) string { return env[k] }, &out); code != 1 {
				t.Fatalf("run() = %d, want 1; output:\n%s", code, out.String())
			}
		})
	}
}

func TestRun_MissingControlExitsCleanly(t *testing.T) {
	env, _ := dryRunEnv(t, "")
	if err := os.Remove(filepath.Join(env["DATA_DIR"], "run_date.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	var out bytes.Buffer
	if code := run(context.Background(), nil, func(k string) string { return env[k] }, &out); code != 0 {
		t.Fatalf("run() = %d, want 0; output:\n%s", code, out.String())
	}
}

func TestFormatRFC3339Millis(t *testing.T) {
	t.Parallel()

	ts := time.Date(2021, 1, 2, 11, 4, 5, 678_900_000, time.FixedZone("PHT", 8*3600))
	if got := formatRFC3339Millis(ts); got != "2021-01-02T03:04:05.678Z" {
		t.Fatalf("formatRFC3339Millis = %q", got)
	}
}
