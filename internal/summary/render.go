package summary

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"chessgames/pkg/parser"

	"github.com/dustin/go-humanize"
)

// Options selects the reports written by Write
type Options struct {
	ECOLengths          []int
	Cutoff              int
	MaxTimeLimitMinutes float64
	OutcomeECOChars     int
}

// Write profiles the raw CSV and writes every report to w. Duplicate game
// ids are dropped before the duration, opening and outcome reports.
func Write(w io.Writer, raw []byte, opts Options) error {
	fl, err := ProfileCSV(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	games, err := parser.ReadGames(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	games, dropped := parser.Deduplicate(games)

	if err := fl.Render(w); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nDuplicate game ids dropped: %s\n\n", humanize.Comma(int64(dropped)))

	if err := Durations(games, opts.MaxTimeLimitMinutes).Render(w); err != nil {
		return err
	}
	for i := len(opts.ECOLengths) - 1; i >= 0; i-- {
		fmt.Fprintln(w)
		if err := ECOCounts(games, opts.ECOLengths[i], opts.Cutoff).Render(w); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)
	return Outcomes(games, opts.OutcomeECOChars, opts.Cutoff).Render(w)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return humanize.FormatFloat("#,###.####", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// Render writes the dataset shape, missing values, distinct values of text
// columns and numeric column statistics
func (f *FirstLook) Render(w io.Writer) error {
	fmt.Fprintf(w, "Dataset shape: %s rows, %d columns\n\n", humanize.Comma(int64(f.Rows)), len(f.Columns))

	t := newTable(w)
	fmt.Fprintln(t, "column\tcount\tmean\tstd\tmin\tmax\t")
	for _, c := range f.Columns {
		if !c.Numeric {
			continue
		}
		s := c.Stats
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\t%s\t%s\t\n", c.Name, humanize.Comma(int64(s.Count)), num(s.Mean), num(s.Std), num(s.Min), num(s.Max))
	}
	if err := t.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nUnique values in categorical columns:")
	for _, c := range f.Columns {
		if c.Numeric {
			continue
		}
		fmt.Fprintf(w, "    %-20s: %5d   [%s]...\n", c.Name, c.Distinct, strings.Join(c.Examples, " "))
	}

	fmt.Fprintln(w, "\nMissing values:")
	t = newTable(w)
	for _, c := range f.Columns {
		fmt.Fprintf(t, "%s\t%d\t\n", c.Name, c.Missing)
	}
	return t.Flush()
}

// Render writes the duration and time limit summaries
func (r DurationReport) Render(w io.Writer) error {
	fmt.Fprintln(w, "Game durations (seconds):")
	t := newTable(w)
	writeStats(t, "game_duration", r.Duration)
	if err := t.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Percentage of games with nonzero duration: %s\n\n", pct(r.NonZeroShare))

	fmt.Fprintf(w, "Approximate time limits (minutes, capped at %s):\n", num(r.MaxTimeLimitMinutes))
	t = newTable(w)
	writeStats(t, "approx_time_limit_minutes", r.TimeLimit)
	return t.Flush()
}

func writeStats(t *tabwriter.Writer, name string, s Stats) {
	fmt.Fprintln(t, "\tcount\tmissing\tmean\tstd\tmin\tmax\t")
	fmt.Fprintf(t, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", name,
		humanize.Comma(int64(s.Count)), humanize.Comma(int64(s.Missing)),
		num(s.Mean), num(s.Std), num(s.Min), num(s.Max))
}

// Render writes code counts side by side, before and after the cutoff
func (r ECOReport) Render(w io.Writer) error {
	fmt.Fprintf(w, "Games by ECO code truncated to %d characters (cutoff %d):\n", r.Chars, r.Cutoff)
	t := newTable(w)
	fmt.Fprintln(t, "code\tgames\t\tcode\tgames\t")
	for i := 0; i < len(r.Before) || i < len(r.After); i++ {
		left, right := "\t\t", "\t\t"
		if i < len(r.Before) {
			left = fmt.Sprintf("%s\t%s\t", r.Before[i].Code, humanize.Comma(int64(r.Before[i].Games)))
		}
		if i < len(r.After) {
			right = fmt.Sprintf("%s\t%s\t", r.After[i].Code, humanize.Comma(int64(r.After[i].Games)))
		}
		fmt.Fprintf(t, "%s\t%s\n", left, right)
	}
	return t.Flush()
}

// Render writes one outcome table per grouping
func (r OutcomeReport) Render(w io.Writer) error {
	sections := []struct {
		title  string
		shares []OutcomeShare
	}{
		{"Outcomes by ratedness", r.ByRated},
		{"Outcomes by month of year", r.ByMonth},
		{"Outcomes by day of week (Monday = 0)", r.ByDay},
		{"Outcomes by hour of day (UTC)", r.ByHour},
		{fmt.Sprintf("Outcomes by ECO code (first %d characters)", r.ECOChars), r.ByECO},
	}
	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n", s.title)
		t := newTable(w)
		fmt.Fprintln(t, "group\tgames\twhite\tblack\tdraw\tmean rating\t")
		for _, o := range s.shares {
			fmt.Fprintf(t, "%s\t%s\t%s\t%s\t%s\t%s\t\n", o.Key, humanize.Comma(int64(o.Games)),
				pct(o.White), pct(o.Black), pct(o.Draw), num(o.MeanRating))
		}
		if err := t.Flush(); err != nil {
			return err
		}
	}
	return nil
}
