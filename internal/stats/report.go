package stats

import (
	"fmt"
	"io"

	"github.com/verte-zerg/kyudo/internal/model"
)

// SessionRow summarises one session of the history.
type SessionRow struct {
	Label string
	Sets  int
	Stats model.Statistics
}

// Report is the whole practice history, oldest session first.
type Report struct {
	Sessions []SessionRow
	Overall  model.Statistics
}

// BuildReport summarises past sessions followed by the current one. An empty
// current session is left out.
func BuildReport(st model.State) Report {
	var report Report
	add := func(label string, sess model.Session) {
		row := SessionRow{Label: label, Sets: len(sess.Sets)}
		for _, set := range sess.Sets {
			row.Stats.Add(set)
			report.Overall.Add(set)
		}
		report.Sessions = append(report.Sessions, row)
	}
	for i, sess := range st.Past {
		add(fmt.Sprintf("%d", i+1), sess)
	}
	if len(st.Current.Sets) > 0 {
		add("current", st.Current)
	}
	return report
}

// RenderHistory prints one line per session plus an overall total.
func RenderHistory(w io.Writer, report Report) error {
	if len(report.Sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "History"); err != nil {
		return err
	}
	headers := []string{"Session", "Sets", "Shots", "Hits", "Misses", "Shitsu", "Rate"}
	rows := make([][]string, 0, len(report.Sessions)+1)
	for _, s := range report.Sessions {
		rows = append(rows, historyRow(s.Label, s.Sets, s.Stats))
	}
	sets := 0
	for _, s := range report.Sessions {
		sets += s.Sets
	}
	rows = append(rows, historyRow("all", sets, report.Overall))
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true}
	return writeTable(w, headers, rows, rightAlign)
}

func historyRow(label string, sets int, st model.Statistics) []string {
	return []string{
		label,
		fmt.Sprintf("%d", sets),
		fmt.Sprintf("%d", st.Total),
		fmt.Sprintf("%d", st.Hits),
		fmt.Sprintf("%d", st.Misses),
		fmt.Sprintf("%d", st.Shitsu),
		st.FormatHitRate(),
	}
}
