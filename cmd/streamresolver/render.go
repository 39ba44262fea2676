package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/flyx-media/streamresolver/client"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	channelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
)

// renderResults formats resolution results for the terminal. With verbose
// set, the full attempt trail follows each channel line.
func renderResults(results []client.Result, verbose bool) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-16s %-14s %-10s %-10s", "CHANNEL", "BACKEND", "ELAPSED", "ENCRYPTED")))
	b.WriteByte('\n')

	for _, res := range results {
		b.WriteString(renderRow(res))
		b.WriteByte('\n')
		if verbose {
			for i, a := range res.Attempts {
				line := fmt.Sprintf("  %d. %-14s %-10s %v", i+1, a.Backend, a.Outcome, roundElapsed(a.Elapsed))
				if a.Err != nil {
					line += "  " + a.Err.Error()
				}
				b.WriteString(subtleStyle.Render(line))
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

func renderRow(res client.Result) string {
	id := channelStyle.Render(fmt.Sprintf("%-16s", res.ChannelID))
	if !res.Resolved {
		reason := "all backends failed"
		if res.Err != nil {
			reason = res.Err.Error()
		}
		return fmt.Sprintf("%s %s", id, failStyle.Render(reason))
	}

	encrypted := "no"
	if res.Stream.Encrypted {
		encrypted = "yes"
		if res.Stream.KeyErr != nil {
			encrypted = "yes (key unavailable)"
		}
	}
	return fmt.Sprintf("%s %-14s %-10s %s",
		id,
		okStyle.Render(fmt.Sprintf("%-14s", res.Stream.Backend)),
		roundElapsed(totalElapsed(res)),
		encrypted,
	)
}

func totalElapsed(res client.Result) time.Duration {
	var total time.Duration
	for _, a := range res.Attempts {
		total += a.Elapsed
	}
	return total
}

func roundElapsed(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}
