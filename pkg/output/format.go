// Package output provides utilities for formatting and displaying risk reports.
package output

import (
	"fmt"
	"strings"

	"github.com/iwvelando/options-risk/internal/report"
	"github.com/iwvelando/options-risk/pkg/format"
	"github.com/iwvelando/options-risk/pkg/mathutil"
	"github.com/iwvelando/options-risk/pkg/position"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat outputs a human-readable rather than machine-readable report.
func PrettyFormat(r report.Report) {
	fmt.Print(PrettyString(r))
}

// PrettyString renders the human-readable report.
func PrettyString(r report.Report) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	for i, pr := range r.Positions {
		fmt.Fprintf(&b, "--- Results for position %s ---\n", pr.Name)
		fmt.Fprintf(&b, "Measure | Aggregate     | Components\n")
		fmt.Fprintf(&b, "_______ | _____________ | __________\n")
		for _, m := range position.Measures {
			res, err := pr.Summary.Get(m)
			if err != nil {
				continue
			}
			b.WriteString(p.Sprintf("%-7s | %s | %s\n", m.String(), measureValue(p, m, res.Aggregate), components(p, m, res.Components)))
		}

		b.WriteString("Breakeven:")
		for j, root := range pr.Breakeven.Roots {
			b.WriteString(p.Sprintf(" %s (%s, %+.2f%%)", format.Currency(root),
				format.SignedCurrency(pr.Breakeven.DollarChange[j]), mathutil.ToPercentage(pr.Breakeven.PercentChange[j])))
		}
		b.WriteString(convergence(pr.Breakeven.Converged, pr.Breakeven.Iterations))

		if pr.Hedge != nil {
			b.WriteString(p.Sprintf("Delta-neutral hedge: %.4f units of the underlying", pr.Hedge.Quantity))
			b.WriteString(convergence(pr.Hedge.Converged, pr.Hedge.Iterations))
		}

		if pr.Sweep != nil {
			measure, _ := position.ParseMeasure(pr.Sweep.Measure)
			fmt.Fprintf(&b, "Underlying | %s\n", pr.Sweep.Measure)
			fmt.Fprintf(&b, "__________ | %s\n", strings.Repeat("_", len(pr.Sweep.Measure)))
			for _, point := range pr.Sweep.Points {
				b.WriteString(p.Sprintf("%s | %s\n", format.Currency(point.UnderlyingPrice), measureValue(p, measure, point.Result.Aggregate)))
			}
		}

		if i < len(r.Positions)-1 || len(r.Quotes) > 0 {
			b.WriteString("\n")
		}
	}

	if len(r.Quotes) > 0 {
		fmt.Fprintf(&b, "--- Implied volatility ---\n")
		fmt.Fprintf(&b, "Quote | Type | Strike | Expiry | Price | Implied Vol | Notes\n")
		fmt.Fprintf(&b, "_____ | ____ | ______ | ______ | _____ | ___________ | _____\n")
		for _, q := range r.Quotes {
			b.WriteString(p.Sprintf("%s | %s | %s | %.4f | %s | %.2f%% | %s\n",
				q.Name, q.Type, format.Currency(q.Strike), q.Expiry, format.Currency(q.Price),
				mathutil.ToPercentage(q.ImpliedVol.Vol), quoteNotes(q)))
		}
	}

	return b.String()
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(r report.Report) {
	fmt.Print(CsvString(r))
}

// CsvString renders the report as comma-separated values, one value per row.
func CsvString(r report.Report) string {
	var b strings.Builder
	writeRow(&b, "kind", "name", "metric", "value", "detail")

	for _, pr := range r.Positions {
		for _, m := range position.Measures {
			res, err := pr.Summary.Get(m)
			if err != nil {
				continue
			}
			parts := make([]string, len(res.Components))
			for i, c := range res.Components {
				parts[i] = number(c)
			}
			writeRow(&b, "position", pr.Name, m.String(), number(res.Aggregate), strings.Join(parts, ";"))
		}
		for _, root := range pr.Breakeven.Roots {
			writeRow(&b, "position", pr.Name, "breakeven", number(root), status(pr.Breakeven.Converged, false))
		}
		if pr.Hedge != nil {
			writeRow(&b, "position", pr.Name, "hedge", number(pr.Hedge.Quantity), status(pr.Hedge.Converged, false))
		}
		if pr.Sweep != nil {
			for _, point := range pr.Sweep.Points {
				writeRow(&b, "sweep", pr.Name, pr.Sweep.Measure, number(point.Result.Aggregate), number(point.UnderlyingPrice))
			}
		}
	}

	for _, q := range r.Quotes {
		writeRow(&b, "quote", q.Name, "impliedVol", number(q.ImpliedVol.Vol), status(q.ImpliedVol.Converged, q.ImpliedVol.Clamped))
	}

	return b.String()
}

func measureValue(p *message.Printer, m position.Measure, v float64) string {
	if m == position.MeasurePayoff {
		return format.Currency(v)
	}
	return p.Sprintf("%.6f", v)
}

func components(p *message.Printer, m position.Measure, values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = measureValue(p, m, v)
	}
	return strings.Join(parts, ", ")
}

func convergence(converged bool, iterations int) string {
	if converged {
		return fmt.Sprintf(" converged in %d iterations\n", iterations)
	}
	return fmt.Sprintf(" did not converge after %d iterations\n", iterations)
}

func quoteNotes(q report.QuoteReport) string {
	var notes []string
	if q.ImpliedVol.Clamped {
		notes = append(notes, "clamped to ceiling")
	}
	if !q.ImpliedVol.Converged {
		notes = append(notes, "did not converge")
	}
	return strings.Join(notes, ",")
}

func status(converged, clamped bool) string {
	switch {
	case !converged:
		return "not converged"
	case clamped:
		return "clamped"
	default:
		return "converged"
	}
}

func number(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

func writeRow(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`"` + strings.ReplaceAll(f, `"`, `""`) + `"`)
	}
	b.WriteByte('\n')
}
