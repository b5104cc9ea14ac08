// Package observability provides formatted output for the CLI run command.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/site-generator/internal/jobs"
	"github.com/jonathan/site-generator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or pads line to the inner box width, counting runes.
func pad(line string) string {
	width := boxWidth - 4
	if utf8.RuneCountInString(line) > width {
		runes := []rune(line)
		return string(runes[:width-3]) + "..."
	}
	return line + strings.Repeat(" ", width-utf8.RuneCountInString(line))
}

// PrintProgress prints a one-line progress update.
func (p *Printer) PrintProgress(view jobs.StatusView) {
	fmt.Fprintf(p.out, "[%3d%%] %-10s %s\n", view.Progress, view.Status, view.CurrentStep) //nolint:errcheck
}

// PrintSignals outputs which sources answered and which failed.
func (p *Printer) PrintSignals(signals *types.RawSignalSet) {
	if signals == nil {
		return
	}

	var sb strings.Builder
	if len(signals.Attempted) == 0 {
		sb.WriteString("No source locators supplied\n")
	}
	for _, name := range signals.Attempted {
		if rec, ok := signals.Get(name); ok {
			sb.WriteString(fmt.Sprintf("  ✓ %-12s %d fields\n", name, len(rec.Data)))
			continue
		}
		sb.WriteString(fmt.Sprintf("  ✗ %-12s %s\n", name, signals.Failures[name]))
	}

	p.printBox("GATHERED SIGNALS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBusinessRecord outputs a summary of the extracted business record.
func (p *Printer) PrintBusinessRecord(rec *types.BusinessRecord) {
	if rec == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Business: %s\n", rec.BusinessName))
	if rec.Category != "" {
		sb.WriteString(fmt.Sprintf("Category: %s\n", rec.Category))
	}
	if rec.Tagline != "" {
		sb.WriteString(fmt.Sprintf("Tagline:  %s\n", rec.Tagline))
	}
	if rec.Contact.Phone != "" {
		sb.WriteString(fmt.Sprintf("Phone:    %s\n", rec.Contact.Phone))
	}
	if rec.Contact.Address != "" {
		sb.WriteString(fmt.Sprintf("Address:  %s\n", rec.Contact.Address))
	}
	if rec.Rating != nil {
		sb.WriteString(fmt.Sprintf("Rating:   %.1f (%d reviews)\n", rec.Rating.Average, rec.Rating.Count))
	}

	if len(rec.Services) > 0 {
		sb.WriteString("\nServices:\n")
		count := min(len(rec.Services), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s", rec.Services[i].Name))
			if rec.Services[i].Price != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", rec.Services[i].Price))
			}
			sb.WriteString("\n")
		}
		if len(rec.Services) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(rec.Services)-maxItemsToShow))
		}
	}

	q := rec.DataQuality
	sb.WriteString(fmt.Sprintf("\nQuality:  %d/100", q.Score))
	if q.Confidence != "" {
		sb.WriteString(fmt.Sprintf(" (%s confidence)", q.Confidence))
	}
	if q.GapFilled {
		sb.WriteString(" gap-filled")
	}
	sb.WriteString("\n")
	if len(q.MissingCritical) > 0 {
		sb.WriteString(fmt.Sprintf("Missing:  %s\n", strings.Join(q.MissingCritical, ", ")))
	}

	p.printBox("BUSINESS RECORD", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDeployment outputs the deployment outcome and any DNS records the
// domain owner must create.
func (p *Printer) PrintDeployment(outcome *types.DeploymentOutcome) {
	if outcome == nil {
		return
	}

	var sb strings.Builder
	if outcome.Success {
		sb.WriteString(fmt.Sprintf("Site:     %s\n", outcome.URL))
		if outcome.PreviewURL != "" {
			sb.WriteString(fmt.Sprintf("Preview:  %s\n", outcome.PreviewURL))
		}
	} else {
		sb.WriteString(fmt.Sprintf("Failed:   %s\n", outcome.Error))
	}
	if outcome.State != "" {
		sb.WriteString(fmt.Sprintf("State:    %s after %d polls\n", outcome.State, outcome.Polls))
	}
	if outcome.CustomDomain != "" {
		sb.WriteString(fmt.Sprintf("\nDomain:   %s\n", outcome.CustomDomain))
		for _, r := range outcome.DNSRecords {
			sb.WriteString(fmt.Sprintf("  %-5s %-4s %s\n", r.Type, r.Name, r.Value))
		}
	}

	p.printBox("DEPLOYMENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJob prints the final summary of a finished job.
func (p *Printer) PrintJob(job *types.Job) {
	if job == nil {
		return
	}
	p.PrintSignals(job.Signals)
	p.PrintBusinessRecord(job.Record)
	p.PrintDeployment(job.Deployment)

	view := jobs.Project(job)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:      %s\n", view.ID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", view.Status))
	if view.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", view.Error))
	}
	if view.StartedAt != nil && view.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("Duration: %s\n", view.CompletedAt.Sub(*view.StartedAt).Round(time.Millisecond)))
	}
	if job.Artifact != nil && len(job.Artifact.Sections) > 0 {
		sb.WriteString(fmt.Sprintf("Sections: %s\n", strings.Join(job.Artifact.Sections, ", ")))
	}
	p.printBox("JOB SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}
