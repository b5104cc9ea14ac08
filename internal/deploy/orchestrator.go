package deploy

import (
	"context"
	"time"

	"github.com/jonathan/site-generator/internal/types"
	"github.com/ternarybob/arbor"
)

// Defaults for the status poll loop.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultTimeout      = 120 * time.Second
)

// DomainRecords are the DNS records a custom domain owner must create.
var DomainRecords = []types.DNSRecord{
	{Type: "A", Name: "@", Value: "76.76.21.21"},
	{Type: "CNAME", Name: "www", Value: "cname.vercel-dns.com"},
}

// Options are per-deployment settings.
type Options struct {
	CustomDomain string
}

// Orchestrator runs the deployment steps against a Hosting API.
type Orchestrator struct {
	hosting  Hosting
	interval time.Duration
	timeout  time.Duration
	logger   arbor.ILogger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator returns an orchestrator. Non-positive durations use the defaults.
func NewOrchestrator(hosting Hosting, interval, timeout time.Duration, logger arbor.ILogger) *Orchestrator {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Orchestrator{
		hosting:  hosting,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Deploy publishes artifact under projectName.
//
// A deployment that reaches an error state returns a failed outcome together
// with a *DeploymentError; the outcome's Error holds the platform's most
// specific detail. A poll budget overrun returns a *TimeoutError. Faults
// before the deployment exists return a nil outcome.
func (o *Orchestrator) Deploy(ctx context.Context, artifact *types.Artifact, projectName string, rec *types.BusinessRecord, opts Options) (*types.DeploymentOutcome, error) {
	slug := Slugify(projectName)
	if artifact == nil || artifact.HTML == "" {
		return nil, &DeploymentError{Step: "bundle", Message: "no artifact to deploy"}
	}

	project, err := o.ensureProject(ctx, slug)
	if err != nil {
		return nil, err
	}

	files, err := BuildBundle(artifact.HTML, slug, rec)
	if err != nil {
		return nil, &DeploymentError{Step: "bundle", Message: "assemble files", Cause: err}
	}

	created, err := o.hosting.CreateDeployment(ctx, DeploymentRequest{
		Name:    slug,
		Project: project.ID,
		Target:  "production",
		Files:   files,
	})
	if err != nil {
		return nil, &DeploymentError{Step: "create", Message: "create deployment", Cause: err}
	}
	o.logger.Info().
		Str("project", slug).
		Str("deployment_id", created.ID).
		Int("files", len(files)).
		Msg("Deployment created")

	outcome := &types.DeploymentOutcome{
		Slug:         slug,
		ProjectID:    project.ID,
		DeploymentID: created.ID,
	}

	final, polls, err := o.poll(ctx, created.ID)
	outcome.Polls = polls
	if final != nil {
		outcome.State = final.ReadyState
	}
	if err != nil {
		outcome.Error = err.Error()
		return outcome, err
	}

	if final.ReadyState != StateReady {
		detail := failureDetail(final)
		outcome.Error = detail
		o.logger.Warn().
			Str("deployment_id", created.ID).
			Str("state", final.ReadyState).
			Str("detail", detail).
			Msg("Deployment failed")
		return outcome, &DeploymentError{Step: "build", Message: detail}
	}

	outcome.Success = true
	outcome.URL = PublicURL(slug)
	if final.URL != "" {
		outcome.PreviewURL = "https://" + final.URL
	}
	o.logger.Info().
		Str("deployment_id", created.ID).
		Str("url", outcome.URL).
		Int("polls", polls).
		Msg("Deployment ready")

	if opts.CustomDomain != "" {
		o.attachDomain(ctx, project.ID, opts.CustomDomain, outcome)
	}
	return outcome, nil
}

// ensureProject creates the project or resolves the existing one on conflict.
func (o *Orchestrator) ensureProject(ctx context.Context, slug string) (*Project, error) {
	project, err := o.hosting.CreateProject(ctx, slug)
	if err == nil {
		o.logger.Debug().Str("project", slug).Msg("Hosting project created")
		return withID(project, slug), nil
	}
	if !IsConflict(err) {
		return nil, &DeploymentError{Step: "project", Message: "create project " + slug, Cause: err}
	}

	project, err = o.hosting.GetProject(ctx, slug)
	if err != nil {
		return nil, &DeploymentError{Step: "project", Message: "resolve existing project " + slug, Cause: err}
	}
	o.logger.Debug().Str("project", slug).Msg("Hosting project already exists")
	return withID(project, slug), nil
}

func withID(p *Project, slug string) *Project {
	if p == nil {
		p = &Project{}
	}
	if p.ID == "" {
		p.ID = slug
	}
	if p.Name == "" {
		p.Name = slug
	}
	return p
}

// poll fetches status until READY, ERROR or CANCELED, or until the budget is
// spent. It returns the last status seen and the number of status fetches.
func (o *Orchestrator) poll(ctx context.Context, id string) (*Deployment, int, error) {
	deadline := o.now().Add(o.timeout)
	var last *Deployment
	for polls := 1; ; polls++ {
		d, err := o.hosting.GetDeployment(ctx, id)
		if err != nil {
			return last, polls, &DeploymentError{Step: "poll", Message: "check deployment " + id, Cause: err}
		}
		last = d
		switch d.ReadyState {
		case StateReady, StateError, StateCanceled:
			return d, polls, nil
		}

		if !o.now().Before(deadline) {
			return last, polls, &TimeoutError{DeploymentID: id, Budget: o.timeout, Polls: polls, LastState: d.ReadyState}
		}
		if err := o.sleep(ctx, o.interval); err != nil {
			return last, polls, &DeploymentError{Step: "poll", Message: "wait for deployment " + id, Cause: err}
		}
	}
}

// failureDetail prefers the platform's message, then its code, then the failed step.
func failureDetail(d *Deployment) string {
	switch {
	case d.ErrorMessage != "":
		return d.ErrorMessage
	case d.ErrorCode != "":
		return d.ErrorCode
	case d.ErrorStep != "":
		return d.ErrorStep
	default:
		return "Deployment failed with state " + d.ReadyState
	}
}

func (o *Orchestrator) attachDomain(ctx context.Context, projectID, domain string, outcome *types.DeploymentOutcome) {
	if err := o.hosting.AddDomain(ctx, projectID, domain); err != nil {
		o.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to attach custom domain")
		return
	}
	outcome.CustomDomain = domain
	outcome.DNSRecords = append([]types.DNSRecord(nil), DomainRecords...)
	o.logger.Info().Str("domain", domain).Msg("Custom domain attached")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
