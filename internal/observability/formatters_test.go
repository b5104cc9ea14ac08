package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/site-generator/internal/jobs"
	"github.com/jonathan/site-generator/internal/types"
)

func TestPrintSignals(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	signals := types.NewRawSignalSet()
	signals.Attempted = []types.SourceName{types.SourceMapListing, types.SourceWebsite}
	signals.Sources[types.SourceMapListing] = &types.SourceRecord{
		Source: types.SourceMapListing,
		Data:   map[string]any{"name": "Acme Cafe", "phone": "555-0100"},
	}
	signals.Failures = map[types.SourceName]string{types.SourceWebsite: "connection refused"}

	p.PrintSignals(signals)
	output := buf.String()

	assert.Contains(t, output, "GATHERED SIGNALS")
	assert.Contains(t, output, "✓ map_listing")
	assert.Contains(t, output, "2 fields")
	assert.Contains(t, output, "✗ website")
	assert.Contains(t, output, "connection refused")
}

func TestPrintSignals_NoLocators(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSignals(types.NewRawSignalSet())

	assert.Contains(t, buf.String(), "No source locators supplied")
}

func TestPrintBusinessRecord(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	rec := &types.BusinessRecord{
		BusinessName: "Acme Cafe",
		Category:     "cafe",
		Contact:      types.Contact{Phone: "555-0100"},
		Rating:       &types.RatingSummary{Average: 4.6, Count: 212},
		Services: []types.Offering{
			{Name: "Espresso", Price: "$3"}, {Name: "Latte"}, {Name: "Mocha"},
			{Name: "Tea"}, {Name: "Scones"}, {Name: "Bagels"}, {Name: "Catering"},
		},
		DataQuality: types.DataQuality{
			Score:           55,
			Confidence:      types.ConfidenceMedium,
			MissingCritical: []string{"hours"},
			GapFilled:       true,
		},
	}

	p.PrintBusinessRecord(rec)
	output := buf.String()

	assert.Contains(t, output, "BUSINESS RECORD")
	assert.Contains(t, output, "Acme Cafe")
	assert.Contains(t, output, "Espresso ($3)")
	assert.Contains(t, output, "... and 2 more")
	assert.NotContains(t, output, "Catering")
	assert.Contains(t, output, "4.6 (212 reviews)")
	assert.Contains(t, output, "55/100 (medium confidence) gap-filled")
	assert.Contains(t, output, "Missing:  hours")
}

func TestPrintDeployment(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDeployment(&types.DeploymentOutcome{
		Success:      true,
		URL:          "https://acme-cafe.vercel.app",
		PreviewURL:   "https://acme-cafe-abc.vercel.app",
		State:        "READY",
		Polls:        3,
		CustomDomain: "acmecafe.com",
		DNSRecords:   []types.DNSRecord{{Type: "A", Name: "@", Value: "76.76.21.21"}},
	})
	output := buf.String()

	assert.Contains(t, output, "https://acme-cafe.vercel.app")
	assert.Contains(t, output, "READY after 3 polls")
	assert.Contains(t, output, "acmecafe.com")
	assert.Contains(t, output, "76.76.21.21")
}

func TestPrintDeployment_Failed(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintDeployment(&types.DeploymentOutcome{Error: "Build failed: missing index", State: "ERROR", Polls: 3})

	assert.Contains(t, buf.String(), "Failed:   Build failed: missing index")
}

func TestPrintJob_Failed(t *testing.T) {
	var buf bytes.Buffer
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(42 * time.Second)

	NewPrinter(&buf).PrintJob(&types.Job{
		ID:          "job-1",
		Status:      types.StatusFailed,
		Error:       "Could not extract business data",
		StartedAt:   &started,
		CompletedAt: &completed,
	})
	output := buf.String()

	assert.Contains(t, output, "JOB SUMMARY")
	assert.Contains(t, output, "Could not extract business data")
	assert.Contains(t, output, "42s")
	assert.NotContains(t, output, "DEPLOYMENT")
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintProgress(jobs.StatusView{Status: types.StatusScraping, Progress: 20, CurrentStep: "Gathered 1 of 2 sources"})

	assert.Equal(t, "[ 20%] scraping   Gathered 1 of 2 sources\n", buf.String())
}

func TestPrinter_NilInputsPrintNothing(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSignals(nil)
	p.PrintBusinessRecord(nil)
	p.PrintDeployment(nil)
	p.PrintJob(nil)

	assert.Empty(t, buf.String())
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TEST", strings.Repeat("é", 100))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)), line)
	}
	assert.Contains(t, buf.String(), "...")
}
