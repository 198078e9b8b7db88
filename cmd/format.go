package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rubiojr/ontosearch/pkg/cache"
	"github.com/rubiojr/ontosearch/pkg/core"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	termStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	hitStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 0, 2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

const maxDescription = 160

// formatNumber formats a number with K/M suffixes for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	} else {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// formatBytes formats a size in bytes using binary units
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats a duration in human-readable form
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
	return fmt.Sprintf("%.1f days", d.Hours()/24)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// formatResult renders a search result for terminal display
func formatResult(query string, result core.SearchResult) string {
	var out strings.Builder

	title := fmt.Sprintf("%s: %d hits (page %d)", query, len(result.Result), result.Page)
	out.WriteString(titleStyle.Render(title))
	out.WriteString("\n")

	if !result.Success {
		out.WriteString(errorStyle.Render("✗ " + result.Message))
		out.WriteString("\n")
		return out.String()
	}

	if len(result.Result) == 0 {
		out.WriteString(noDataStyle.Render("No matching terms."))
		out.WriteString("\n")
		return out.String()
	}

	for i, hit := range result.Result {
		out.WriteString(formatHit(hit, i+1))
		out.WriteString("\n")
	}
	return out.String()
}

// formatHit formats a single hit for display
func formatHit(hit core.OntologyTermHit, index int) string {
	var content strings.Builder

	header := fmt.Sprintf("#%d %s", index, hit.Term)
	content.WriteString(termStyle.Render(header))
	if hit.Curie != "" {
		content.WriteString("  " + metaStyle.Render(hit.Curie))
	}

	if hit.Description != "" {
		content.WriteString("\n" + truncate(hit.Description, maxDescription))
	}
	if len(hit.Synonyms) > 0 {
		content.WriteString("\n" + metaStyle.Render("synonyms: "+strings.Join(hit.Synonyms, ", ")))
	}

	content.WriteString("\n" + urlStyle.Render(hit.TermAccessionNumber))
	content.WriteString("\n" + metaStyle.Render(fmt.Sprintf("Ontology: %s | Origin: %s", hit.TermSourceRef, hit.Origin)))

	return hitStyle.Render(content.String())
}

// formatCacheStats formats cache statistics for display
func formatCacheStats(kind, path string, stats cache.Stats) string {
	var out strings.Builder

	out.WriteString(titleStyle.Render("Cache Statistics"))
	out.WriteString("\n")
	fmt.Fprintf(&out, "Type:    %s\n", kind)
	if path != "" {
		fmt.Fprintf(&out, "Path:    %s\n", path)
	}
	fmt.Fprintf(&out, "Entries: %s", formatNumber(stats.Entries))
	if stats.Expired > 0 {
		fmt.Fprintf(&out, " (%s expired)", formatNumber(stats.Expired))
	}
	out.WriteString("\n")
	fmt.Fprintf(&out, "Size:    %s\n", formatBytes(stats.Bytes))
	fmt.Fprintf(&out, "Hits:    %s\n", formatNumber(int(stats.Hits)))
	return out.String()
}

// formatRules lists validation rules grouped by field
func formatRules(rules core.Rules) string {
	var out strings.Builder

	out.WriteString(titleStyle.Render(fmt.Sprintf("Validation rules (%d)", len(rules))))
	out.WriteString("\n")

	if len(rules) == 0 {
		out.WriteString(noDataStyle.Render("No rules loaded."))
		out.WriteString("\n")
		return out.String()
	}

	for _, field := range rules.Fields() {
		out.WriteString(termStyle.Render(field))
		out.WriteString("\n")
		for _, r := range rules {
			if !strings.EqualFold(r.FieldName, field) {
				continue
			}
			name := r.RuleName
			if name == "" {
				name = "(default)"
			}
			line := fmt.Sprintf("  %s: %s", name, r.ValidationType)
			if len(r.Ontologies) > 0 {
				line += " [" + strings.Join(r.Ontologies, ", ") + "]"
			}
			out.WriteString(line + "\n")
			for _, p := range r.AllowedParentOntologyTerms.Parents {
				out.WriteString(metaStyle.Render(fmt.Sprintf("    child of %s (%s)", p.Term, p.TermAccessionNumber)))
				out.WriteString("\n")
			}
		}
	}
	return out.String()
}
