// Package report renders the model comparison table and the diagnostic
// figures from the three regression fits. No numerical work happens here
// beyond formatting; estimates come through unchanged from the fits.
package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/smoke-asthma-etl/internal/domain"
	"github.com/couchcryptid/smoke-asthma-etl/internal/regress"
)

// Report artifact file names within the configured output directory.
const (
	ComparisonMDName  = "model_comparison.md"
	ComparisonPNGName = "model_comparison.png"
	CoefficientsName  = "coefficient_plots.png"
	RateHistogramName = "rate_histogram.png"
)

// Comparison is the assembled side-by-side model table.
type Comparison struct {
	Columns []string // model names, in fit order
	Rows    []Row
}

// Row is one rendered table row: a coefficient estimate line, the standard
// error line beneath it, or a goodness-of-fit line.
type Row struct {
	Label string
	Cells []string // one per model; empty when the model lacks the term
}

// gofRows are the goodness-of-fit lines in render order. The configured
// omit list removes entries by name; num_obs is always kept.
var gofRows = []string{"num_obs", "deviance", "iterations"}

// BuildComparison assembles the comparison table from the successful fits.
// Terms appear in first-seen order across models; a model missing a term
// (seasonal fits have different year levels) gets blank cells.
func BuildComparison(fits []*regress.Fit, omitGOF []string) *Comparison {
	c := &Comparison{}
	omit := make(map[string]bool, len(omitGOF))
	for _, g := range omitGOF {
		omit[g] = true
	}

	var terms []string
	seen := make(map[string]bool)
	for _, f := range fits {
		c.Columns = append(c.Columns, f.Model)
		for _, t := range f.Terms {
			if !seen[t] {
				seen[t] = true
				terms = append(terms, t)
			}
		}
	}

	for _, term := range terms {
		est := Row{Label: term, Cells: make([]string, len(fits))}
		se := Row{Cells: make([]string, len(fits))}
		for i, f := range fits {
			j := termIndex(f.Terms, term)
			if j < 0 {
				continue
			}
			est.Cells[i] = fmt.Sprintf("%.4f%s", f.Coef[j], sigMarker(f.PValues()[j]))
			se.Cells[i] = fmt.Sprintf("(%.4f)", f.SE[j])
		}
		c.Rows = append(c.Rows, est, se)
	}

	for _, g := range gofRows {
		if omit[g] && g != "num_obs" {
			continue
		}
		row := Row{Label: g, Cells: make([]string, len(fits))}
		for i, f := range fits {
			switch g {
			case "num_obs":
				row.Cells[i] = fmt.Sprintf("%d", f.NObs)
			case "deviance":
				row.Cells[i] = fmt.Sprintf("%.2f", f.Deviance)
			case "iterations":
				row.Cells[i] = fmt.Sprintf("%d", f.Iterations)
			}
		}
		c.Rows = append(c.Rows, row)
	}

	return c
}

// sigMarker maps a p-value to the conventional significance stars.
func sigMarker(p float64) string {
	switch {
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	case p < 0.1:
		return "."
	default:
		return ""
	}
}

func termIndex(terms []string, term string) int {
	for i, t := range terms {
		if t == term {
			return i
		}
	}
	return -1
}

// Markdown renders the comparison as a pipe table with a legend and a
// generated-at footer.
func (c *Comparison) Markdown() string {
	var b strings.Builder

	b.WriteString("# Model comparison\n\n")
	b.WriteString("| |")
	for _, col := range c.Columns {
		fmt.Fprintf(&b, " %s |", col)
	}
	b.WriteString("\n|---|")
	for range c.Columns {
		b.WriteString("---|")
	}
	b.WriteString("\n")

	for _, row := range c.Rows {
		fmt.Fprintf(&b, "| %s |", row.Label)
		for _, cell := range row.Cells {
			fmt.Fprintf(&b, " %s |", cell)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nSignificance: *** p<0.001, ** p<0.01, * p<0.05, . p<0.1\n")
	fmt.Fprintf(&b, "\nGenerated %s\n", domain.Now().Format("2006-01-02 15:04 MST"))
	return b.String()
}

// Lines renders the comparison as fixed-width text for the PNG export.
func (c *Comparison) Lines() []string {
	labelWidth := len("Significance")
	for _, row := range c.Rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
	}
	colWidth := 12
	for _, col := range c.Columns {
		if len(col) > colWidth {
			colWidth = len(col)
		}
	}
	for _, row := range c.Rows {
		for _, cell := range row.Cells {
			if len(cell) > colWidth {
				colWidth = len(cell)
			}
		}
	}

	pad := func(s string, w int) string {
		if len(s) >= w {
			return s
		}
		return s + strings.Repeat(" ", w-len(s))
	}

	var lines []string
	head := pad("", labelWidth)
	for _, col := range c.Columns {
		head += "  " + pad(col, colWidth)
	}
	lines = append(lines, head, strings.Repeat("-", len(head)))

	for _, row := range c.Rows {
		line := pad(row.Label, labelWidth)
		for _, cell := range row.Cells {
			line += "  " + pad(cell, colWidth)
		}
		lines = append(lines, line)
	}

	lines = append(lines, "", "Significance: *** p<0.001  ** p<0.01  * p<0.05  . p<0.1")
	return lines
}

// WriteMarkdown writes the Markdown rendering to path.
func WriteMarkdown(path string, c *Comparison) error {
	if err := os.WriteFile(path, []byte(c.Markdown()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
