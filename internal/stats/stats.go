// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/kyudo/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SetHitRates returns the hit rate of each set in percent. Sets without
// shots are skipped.
func SetHitRates(sets []model.Set) []float64 {
	rates := make([]float64, 0, len(sets))
	for _, set := range sets {
		var st model.Statistics
		st.Add(set)
		if rate, ok := st.HitRate(); ok {
			rates = append(rates, rate*100)
		}
	}
	return rates
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(min(i+1, window))
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline of percentages (0-100).
// Values are clamped to the range.
func Sparkline(values []float64) string {
	var b strings.Builder
	top := float64(len(sparkChars) - 1)
	for _, v := range values {
		pos := math.Max(0, math.Min(100, v)) / 100
		b.WriteByte(sparkChars[int(math.Round(pos*top))])
	}
	return b.String()
}

// TailWindow keeps the last width values so a sparkline fits the terminal.
func TailWindow(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	return values[len(values)-width:]
}

// RenderSummary prints the statistics of a session.
func RenderSummary(w io.Writer, st model.Statistics) error {
	lines := []string{
		"Current session",
		fmt.Sprintf("Shots: %d", st.Total),
		fmt.Sprintf("Hits: %d", st.Hits),
		fmt.Sprintf("Misses: %d", st.Misses),
		fmt.Sprintf("Shitsu: %d", st.Shitsu),
		fmt.Sprintf("Hit rate: %s", st.FormatHitRate()),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatSet renders a set as its glyphs, e.g. "O O X /".
func FormatSet(set model.Set) string {
	glyphs := make([]string, len(set.Shots))
	for i, shot := range set.Shots {
		glyphs[i] = shot.Glyph()
	}
	return strings.Join(glyphs, " ")
}

// RenderSets lists sets in shooting order with their hit counts.
func RenderSets(w io.Writer, sets []model.Set) error {
	if len(sets) == 0 {
		_, err := fmt.Fprintln(w, "No sets recorded.")
		return err
	}
	rows := make([][]string, 0, len(sets))
	for i, set := range sets {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			FormatSet(set),
			fmt.Sprintf("%d/%d", set.Hits(), set.NumberOfShots()),
		})
	}
	return writeTable(w, []string{"#", "Shots", "Hits"}, rows, map[int]bool{0: true, 2: true})
}

// RenderTrend prints a sparkline of per-set hit rates smoothed over window
// sets and trimmed to width columns.
func RenderTrend(w io.Writer, sets []model.Set, window, width int) error {
	rates := SetHitRates(sets)
	if len(rates) == 0 {
		return nil
	}
	smoothed := TailWindow(MovingAverage(rates, window), width)
	last := smoothed[len(smoothed)-1]
	if _, err := fmt.Fprintf(w, "Trend (window %d): %s %.1f%%\n\n", window, Sparkline(smoothed), last); err != nil {
		return err
	}
	return nil
}
