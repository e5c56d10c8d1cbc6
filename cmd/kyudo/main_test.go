package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/kyudo/internal/model"
)

// isolate points every config and data path at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("KYUDO_CONFIG", "")
	t.Setenv("KYUDO_DB", "")
	t.Setenv("KYUDO_DOC_ID", "")
	return dir
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("kyudo %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestParseShots(t *testing.T) {
	cases := []struct {
		args []string
		want []model.Shot
	}{
		{[]string{"o", "x"}, []model.Shot{model.Hit, model.Miss}},
		{[]string{"oox/"}, []model.Shot{model.Hit, model.Hit, model.Miss, model.Shitsu}},
		{[]string{"Hit", "shitsu"}, []model.Shot{model.Hit, model.Shitsu}},
	}
	for _, tc := range cases {
		got, err := parseShots(tc.args)
		if err != nil {
			t.Fatalf("parse %v: %v", tc.args, err)
		}
		if !model.RecordSet(got...).Equal(model.RecordSet(tc.want...)) {
			t.Fatalf("parse %v: got %v, want %v", tc.args, got, tc.want)
		}
	}

	for _, bad := range [][]string{{"q"}, {"oq"}, {"o", ""}} {
		if _, err := parseShots(bad); err == nil {
			t.Fatalf("expected error for %v", bad)
		}
	}
}

func TestRecordThenStats(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "kyudo.db")

	out := execute(t, "record", "--db", db, "oox/")
	if !strings.Contains(out, "Recorded O O X / (2/4)") {
		t.Fatalf("unexpected record output:\n%s", out)
	}

	out = execute(t, "stats", "--db", db)
	for _, want := range []string{"Shots: 4", "Shitsu: 1", "Hit rate: 50.0%", "O O X /", "History"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestCloseThenExport(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "kyudo.db")

	execute(t, "record", "--db", db, "o", "o", "x", "o")
	out := execute(t, "close", "--db", db)
	if !strings.Contains(out, "hit rate 75.0%") {
		t.Fatalf("unexpected close output: %q", out)
	}

	out = execute(t, "export", "--db", db)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected current and one past session, got %q", out)
	}
	if lines[0] != `{"sets":[]}` {
		t.Fatalf("expected empty current session first, got %s", lines[0])
	}
	if lines[1] != `{"sets":[{"hits":["Hit","Hit","Miss","Hit"]}]}` {
		t.Fatalf("unexpected past session %s", lines[1])
	}
}

func TestDocsMarksActiveDocument(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "kyudo.db")

	execute(t, "record", "--db", db, "--doc-id", "dojo", "o")
	execute(t, "record", "--db", db, "x")

	out := execute(t, "docs", "--db", db, "--doc-id", "dojo")
	if !strings.Contains(out, "* dojo") || !strings.Contains(out, "  mydoc") {
		t.Fatalf("unexpected docs output:\n%s", out)
	}
}

func TestResolveConfigPrecedence(t *testing.T) {
	dir := isolate(t)
	cfgPath := filepath.Join(dir, "config.toml")
	content := "[store]\ndoc-id = \"file\"\npath = \"/from/file.db\"\n\n[practice]\narrows = 2\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("KYUDO_CONFIG", cfgPath)

	cmd := newRootCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DocID != "file" || cfg.DBPath != "/from/file.db" || cfg.Arrows != 2 {
		t.Fatalf("expected file values, got %+v", cfg)
	}

	t.Setenv("KYUDO_DOC_ID", "env")
	cmd = newRootCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err = resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DocID != "env" {
		t.Fatalf("expected env to override file, got %q", cfg.DocID)
	}

	cmd = newRootCmd()
	if err := cmd.ParseFlags([]string{"--doc-id", "flag", "--arrows", "6"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err = resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DocID != "flag" || cfg.Arrows != 6 {
		t.Fatalf("expected flags to win, got %+v", cfg)
	}
}

func TestResolveConfigDefaults(t *testing.T) {
	dir := isolate(t)
	cmd := newRootCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DocID != "mydoc" || cfg.Arrows != 4 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if want := filepath.Join(dir, "data", "kyudo", "kyudo.db"); cfg.DBPath != want {
		t.Fatalf("expected db path %q, got %q", want, cfg.DBPath)
	}
}

func TestResolveConfigRejectsBadArrows(t *testing.T) {
	isolate(t)
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--arrows", "0"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := resolveConfig(cmd); err == nil {
		t.Fatalf("expected error for zero arrows")
	}
}
