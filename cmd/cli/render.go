package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/sevigo/bug-warden/internal/core"
)

const (
	formatText     = "text"
	formatMarkdown = "md"
	formatJSON     = "json"

	maxListed = 10
)

var headerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("51")).
	Bold(true).
	Border(lipgloss.DoubleBorder()).
	BorderForeground(lipgloss.Color("51")).
	Padding(0, 2)

func checkFormat(format string) error {
	switch format {
	case formatText, formatMarkdown, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, md or json)", format)
	}
}

// printResult renders res for a terminal.
func printResult(w io.Writer, res *core.AnalysisResult, format string) error {
	switch format {
	case formatMarkdown:
		md := renderMarkdown(res)
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			var out string
			if out, err = r.Render(md); err == nil {
				_, err = io.WriteString(w, out)
				return err
			}
		}
		_, err = io.WriteString(w, md)
		return err
	case formatJSON:
		return writeResult(w, res, formatJSON)
	default:
		printText(w, res)
		return nil
	}
}

// writeResult writes the plain markdown or JSON form of res, as stored in
// report files.
func writeResult(w io.Writer, res *core.AnalysisResult, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := io.WriteString(w, renderMarkdown(res))
	return err
}

func printText(w io.Writer, res *core.AnalysisResult) {
	separator := strings.Repeat("═", 60)
	thinSeparator := strings.Repeat("─", 60)

	title := res.Report.Title
	if title == "" {
		title = "(untitled report)"
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("🐞 "+title))

	sig := res.Signals
	fmt.Fprintln(w)
	titleColor.Fprintln(w, "BUG SIGNALS")
	if sig.Summary != "" {
		infoColor.Fprintln(w, sig.Summary)
	}
	dimColor.Fprintf(w, "   Keywords:   %s\n", orNone(sig.Keywords))
	dimColor.Fprintf(w, "   Categories: %s\n", orNone(sig.Categories))
	if len(sig.SuspectedSymbols) > 0 {
		dimColor.Fprintf(w, "   Suspects:   %s\n", strings.Join(sig.SuspectedSymbols, ", "))
	}
	if sig.Severity != "" {
		dimColor.Fprintf(w, "   Severity:   %s\n", sig.Severity)
	}
	dimColor.Fprintf(w, "   Confidence: %.2f\n", sig.Confidence)
	if sig.Degraded {
		warnColor.Fprintln(w, "   ⚠️  model unavailable, signals come from the report text only")
	}

	fmt.Fprintln(w)
	titleColor.Fprintln(w, separator)
	titleColor.Fprintf(w, "📍 LIKELY LOCATIONS (%d judged)\n", len(res.Ranked.Judgments))
	titleColor.Fprintln(w, separator)
	top := res.Ranked.Top(maxListed)
	if len(top) == 0 {
		dimColor.Fprintln(w, "   nothing was judged")
	}
	for i, j := range top {
		fmt.Fprintln(w)
		printScoreBadge(w, j)
		boldColor.Fprintf(w, " %d. %s", i+1, j.Chunk.FilePath)
		dimColor.Fprintf(w, ":%d-%d  (%s)\n", j.Chunk.StartLine, j.Chunk.EndLine, j.Confidence)
		if len(j.SuspectLines) > 0 {
			dimColor.Fprintf(w, "   Lines: %s\n", joinLines(j.SuspectLines))
		}
		if j.Rationale != "" {
			infoColor.Fprintf(w, "   %s\n", j.Rationale)
		}
		for _, ref := range j.References {
			dimColor.Fprintf(w, "   ├── %d: %s", ref.Line, strings.TrimSpace(ref.Code))
			if ref.Reason != "" {
				dimColor.Fprintf(w, "  // %s", ref.Reason)
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w)
	warnColor.Fprintln(w, thinSeparator)
	warnColor.Fprintf(w, "💡 FIX SUGGESTIONS (%d)\n", len(res.Suggestions))
	warnColor.Fprintln(w, thinSeparator)
	for i, s := range res.Suggestions {
		fmt.Fprintln(w)
		if s.Placeholder {
			warnColor.Fprint(w, "[review manually] ")
		}
		boldColor.Fprintf(w, "%s", anchorList(s.Anchors))
		dimColor.Fprintf(w, "  (%s)\n", s.Confidence)
		infoColor.Fprintf(w, "%s\n", s.Change)
		if s.Rationale != "" {
			dimColor.Fprintf(w, "%s\n", s.Rationale)
		}
		if i < len(res.Suggestions)-1 {
			dimColor.Fprintln(w, strings.Repeat("─", 40))
		}
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintln(w)
		errorColor.Fprintf(w, "⚠️  WARNINGS (%d)\n", len(res.Warnings))
		for _, msg := range res.Warnings {
			dimColor.Fprintf(w, "   - %s\n", msg)
		}
	}

	fmt.Fprintln(w)
	dimColor.Fprintf(w, "%d files, %d chunks, %d shortlisted, %d judged (%d failed) in %s\n",
		res.Stats.Files, res.Stats.Chunks, res.Stats.Shortlisted, res.Stats.Judged,
		res.Stats.FailedJudgments, res.Stats.Duration.Round(time.Millisecond))
}

func printScoreBadge(w io.Writer, j core.RelevanceJudgment) {
	label := fmt.Sprintf(" %4.1f ", j.Score)
	switch {
	case j.Failed:
		color.New(color.BgWhite, color.FgBlack).Fprint(w, " n/a  ")
	case j.Score >= 7:
		color.New(color.BgRed, color.FgWhite, color.Bold).Fprint(w, label)
	case j.Score >= 4:
		color.New(color.BgYellow, color.FgBlack).Fprint(w, label)
	default:
		color.New(color.BgGreen, color.FgWhite).Fprint(w, label)
	}
}

func renderMarkdown(res *core.AnalysisResult) string {
	var b strings.Builder

	title := res.Report.Title
	if title == "" {
		title = "Untitled report"
	}
	fmt.Fprintf(&b, "# Bug analysis: %s\n\n", title)
	if !res.Started.IsZero() {
		fmt.Fprintf(&b, "- **Started:** %s\n", res.Started.Format(time.RFC3339))
	}
	if res.Revision != "" {
		fmt.Fprintf(&b, "- **Revision:** `%s`\n", res.Revision)
	}
	fmt.Fprintf(&b, "- **Stats:** %d files, %d chunks, %d shortlisted, %d judged, %d failed\n\n",
		res.Stats.Files, res.Stats.Chunks, res.Stats.Shortlisted, res.Stats.Judged, res.Stats.FailedJudgments)

	sig := res.Signals
	b.WriteString("## Bug signals\n\n")
	if sig.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", sig.Summary)
	}
	fmt.Fprintf(&b, "- **Keywords:** %s\n", orNone(sig.Keywords))
	fmt.Fprintf(&b, "- **Categories:** %s\n", orNone(sig.Categories))
	if len(sig.SuspectedSymbols) > 0 {
		fmt.Fprintf(&b, "- **Suspected symbols:** %s\n", strings.Join(sig.SuspectedSymbols, ", "))
	}
	if sig.Severity != "" {
		fmt.Fprintf(&b, "- **Severity:** %s\n", sig.Severity)
	}
	fmt.Fprintf(&b, "- **Confidence:** %.2f\n", sig.Confidence)
	if sig.Degraded {
		b.WriteString("- _Signals were derived from the report text without the model._\n")
	}

	b.WriteString("\n## Likely locations\n\n")
	top := res.Ranked.Top(maxListed)
	if len(top) == 0 {
		b.WriteString("Nothing was judged.\n")
	} else {
		b.WriteString("| # | Location | Score | Confidence | Suspect lines |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for i, j := range top {
			score := strconv.FormatFloat(j.Score, 'f', 1, 64)
			if j.Failed {
				score = "n/a"
			}
			fmt.Fprintf(&b, "| %d | `%s` | %s | %s | %s |\n",
				i+1, j.Chunk.Location(), score, j.Confidence, mdCell(joinLines(j.SuspectLines)))
		}
		for i, j := range top {
			if j.Rationale == "" && len(j.References) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n### %d. %s\n\n", i+1, j.Chunk.Location())
			if j.Rationale != "" {
				fmt.Fprintf(&b, "%s\n", j.Rationale)
			}
			for _, ref := range j.References {
				fmt.Fprintf(&b, "- line %d: `%s`", ref.Line, strings.TrimSpace(ref.Code))
				if ref.Reason != "" {
					fmt.Fprintf(&b, " (%s)", ref.Reason)
				}
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n## Fix suggestions\n\n")
	if len(res.Suggestions) == 0 {
		b.WriteString("None.\n")
	}
	for i, s := range res.Suggestions {
		fmt.Fprintf(&b, "### Suggestion %d (%s confidence)\n\n", i+1, s.Confidence)
		if s.Placeholder {
			b.WriteString("_Manual review needed; no suggestion could be generated._\n\n")
		}
		fmt.Fprintf(&b, "**Where:** %s\n\n", anchorList(s.Anchors))
		fmt.Fprintf(&b, "%s\n\n", s.Change)
		if s.Rationale != "" {
			fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(s.Rationale, "\n", "\n> "))
		}
	}

	if len(res.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, msg := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", msg)
		}
	}
	return b.String()
}

func anchorList(anchors []core.Anchor) string {
	if len(anchors) == 0 {
		return "(no location)"
	}
	parts := make([]string, len(anchors))
	for i, a := range anchors {
		parts[i] = fmt.Sprintf("%s:%d-%d", a.FilePath, a.StartLine, a.EndLine)
	}
	return strings.Join(parts, ", ")
}

func joinLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = strconv.Itoa(l)
	}
	return strings.Join(parts, ", ")
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
