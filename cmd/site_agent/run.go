package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/site-generator/internal/jobs"
	"github.com/jonathan/site-generator/internal/observability"
	"github.com/jonathan/site-generator/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Generate and deploy one site end-to-end",
	Long: `Runs a single generation job in the foreground: scraping -> processing -> generating -> deploying.

Configuration can be loaded from a file using --config. Environment variables and flags override file values.`,
	RunE: runPipelineCmd,
}

var (
	runName      string
	runLocation  string
	runMapURL    string
	runWebsite   string
	runFacebook  string
	runInstagram string
	runInfo      string
	runDomain    string
	runEmail     string
	runVerbose   bool
)

func init() {
	runCommand.Flags().StringVarP(&runName, "name", "n", "", "Business name (required)")
	runCommand.Flags().StringVarP(&runLocation, "location", "l", "", "City or address used to disambiguate the business")
	runCommand.Flags().StringVar(&runMapURL, "map-url", "", "Map listing URL")
	runCommand.Flags().StringVar(&runWebsite, "website", "", "Existing website URL")
	runCommand.Flags().StringVar(&runFacebook, "facebook", "", "Facebook page URL")
	runCommand.Flags().StringVar(&runInstagram, "instagram", "", "Instagram username or profile URL")
	runCommand.Flags().StringVar(&runInfo, "info", "", "Additional information from the business owner")
	runCommand.Flags().StringVar(&runDomain, "domain", "", "Custom domain to attach to the deployment")
	runCommand.Flags().StringVar(&runEmail, "email", "", "Client email")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print gathered signals and the extracted record")

	rootCmd.AddCommand(runCommand)
}

// requestFromFlags builds a normalized request from the run flags.
func requestFromFlags() types.GenerateRequest {
	req := types.GenerateRequest{
		BusinessName:   runName,
		Location:       runLocation,
		MapListingURL:  runMapURL,
		WebsiteURL:     runWebsite,
		FacebookURL:    runFacebook,
		Instagram:      runInstagram,
		AdditionalInfo: runInfo,
		CustomDomain:   runDomain,
		ClientEmail:    runEmail,
	}
	req.Normalize()
	return req
}

// formatFieldErrors renders validation failures one per line, sorted by field.
func formatFieldErrors(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", name, fields[name]))
	}
	return sb.String()
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	req := requestFromFlags()
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request:\n%s", formatFieldErrors(types.FieldErrors(err)))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if runVerbose && !cmd.Flags().Changed("log-level") {
		cfg.LogLevel = "debug"
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	job := jobs.NewJob(req, time.Now().UTC())
	if err := a.store.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	updates, unsubscribe := a.hub.Subscribe(job.ID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		last := -1
		for snapshot := range updates {
			view := jobs.Project(snapshot)
			if view.Progress == last && !view.Status.IsTerminal() {
				continue
			}
			last = view.Progress
			printer.PrintProgress(view)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, cfg.JobTimeout())
	final, runErr := a.pipeline.Run(runCtx, job.ID)
	cancel()
	unsubscribe()
	<-done
	a.pipeline.Wait()

	if runErr != nil {
		return runErr
	}
	if runVerbose {
		printer.PrintJob(final)
	} else {
		printer.PrintDeployment(final.Deployment)
	}
	if final.Status == types.StatusFailed {
		return fmt.Errorf("job %s failed: %s", final.ID, final.Error)
	}
	return nil
}
