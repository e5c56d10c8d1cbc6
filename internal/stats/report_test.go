package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/kyudo/internal/model"
)

func TestBuildReport(t *testing.T) {
	st := model.State{
		Past: []model.Session{
			{Sets: []model.Set{
				model.RecordSet(model.Hit, model.Hit, model.Miss, model.Hit),
				model.RecordSet(model.Miss, model.Miss, model.Shitsu, model.Hit),
			}},
			{},
		},
		Current: model.Session{Sets: []model.Set{model.RecordSet(model.Hit, model.Hit)}},
	}
	report := BuildReport(st)
	if len(report.Sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(report.Sessions))
	}
	first := report.Sessions[0]
	if first.Label != "1" || first.Sets != 2 {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.Stats != (model.Statistics{Total: 8, Hits: 4, Misses: 3, Shitsu: 1}) {
		t.Fatalf("unexpected first stats: %+v", first.Stats)
	}
	if report.Sessions[2].Label != "current" {
		t.Fatalf("expected current session last, got %+v", report.Sessions[2])
	}
	if report.Overall != (model.Statistics{Total: 10, Hits: 6, Misses: 3, Shitsu: 1}) {
		t.Fatalf("unexpected overall stats: %+v", report.Overall)
	}
}

func TestBuildReportSkipsEmptyCurrent(t *testing.T) {
	report := BuildReport(model.State{})
	if len(report.Sessions) != 0 {
		t.Fatalf("expected no sessions, got %+v", report.Sessions)
	}
	var buf bytes.Buffer
	if err := RenderHistory(&buf, report); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No sessions found.") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderHistory(t *testing.T) {
	st := model.State{
		Past:    []model.Session{{Sets: []model.Set{model.RecordSet(model.Hit, model.Miss)}}},
		Current: model.Session{Sets: []model.Set{model.RecordSet()}},
	}
	var buf bytes.Buffer
	if err := RenderHistory(&buf, BuildReport(st)); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"History", "Session", "50.0%", "current", "n/a", "all"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history missing %q:\n%s", want, out)
		}
	}
}
