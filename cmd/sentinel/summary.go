package main

import (
	"fmt"
	"strings"

	"crypto-sentinel/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

var (
	positiveColor = lipgloss.Color("#10B981")
	negativeColor = lipgloss.Color("#EF4444")
	mutedColor    = lipgloss.Color("#9CA3AF")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#374151")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(12)

	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(positiveColor)
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(negativeColor)
)

// renderOutcome formats a run outcome as a bordered terminal panel.
func renderOutcome(o domain.PipelineOutcome) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CryptoSentinel " + o.RunID))
	b.WriteString("\n")

	if !o.Success {
		b.WriteString(row("Status", failStyle.Render("FAILED")))
		b.WriteString(row("Error", o.Error))
		return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
	}

	b.WriteString(row("Status", okStyle.Render("OK")))
	if o.BTCPrice != nil {
		b.WriteString(row("BTC", "$"+o.BTCPrice.StringFixed(2)))
	}
	if o.AvgSentiment != nil {
		b.WriteString(row("Sentiment", sentimentStyle(*o.AvgSentiment).Render(fmt.Sprintf("%+.4f", *o.AvgSentiment))))
	}
	b.WriteString(row("Posts", fmt.Sprintf("%d", o.PostsAnalyzed)))
	b.WriteString(row("Report", o.ReportPath))
	if o.ReportURL != "" {
		b.WriteString(row("Uploaded", o.ReportURL))
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

func sentimentStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return lipgloss.NewStyle().Foreground(positiveColor)
	case v < 0:
		return lipgloss.NewStyle().Foreground(negativeColor)
	default:
		return lipgloss.NewStyle().Foreground(mutedColor)
	}
}
