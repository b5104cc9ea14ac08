// Package pipeline runs generation jobs: gather signals, extract and fill the
// business record, generate the site and deploy it. Stages run strictly in
// order and every stage transition is written to the job store before the
// next stage reads it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/jonathan/site-generator/internal/aggregate"
	"github.com/jonathan/site-generator/internal/deploy"
	"github.com/jonathan/site-generator/internal/jobs"
	"github.com/jonathan/site-generator/internal/types"
)

// recordTimeout bounds the fire-and-forget persistence call.
const recordTimeout = 10 * time.Second

// Gatherer collects raw signals for a request.
type Gatherer interface {
	Gather(ctx context.Context, req types.GenerateRequest, onSettled aggregate.ProgressFunc) *types.RawSignalSet
}

// Extractor turns raw signals into a business record.
type Extractor interface {
	Extract(ctx context.Context, req types.GenerateRequest, signals *types.RawSignalSet) (*types.BusinessRecord, error)
}

// GapFiller enriches a sparse record. Fill never fails; it returns its input on error.
type GapFiller interface {
	NeedsFill(rec *types.BusinessRecord) bool
	Fill(ctx context.Context, rec *types.BusinessRecord) *types.BusinessRecord
}

// SiteBuilder generates the site document.
type SiteBuilder interface {
	Build(ctx context.Context, rec *types.BusinessRecord) (*types.Artifact, error)
}

// Deployer publishes an artifact.
type Deployer interface {
	Deploy(ctx context.Context, artifact *types.Artifact, projectName string, rec *types.BusinessRecord, opts deploy.Options) (*types.DeploymentOutcome, error)
}

// Recorder persists completed jobs.
type Recorder interface {
	RecordCompletedJob(ctx context.Context, job *types.Job) error
}

// Deps are the collaborators of a Pipeline. Recorder may be nil.
type Deps struct {
	Store     jobs.Store
	Gatherer  Gatherer
	Extractor Extractor
	GapFiller GapFiller
	Builder   SiteBuilder
	Deployer  Deployer
	Recorder  Recorder
}

// StageError is a mandatory stage fault. Message is what the job records.
type StageError struct {
	Stage   string
	Message string
	Cause   error

	outcome *types.DeploymentOutcome
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// Pipeline executes one job at a time per Run call. It is safe for concurrent
// use by many jobs.
type Pipeline struct {
	deps   Deps
	logger arbor.ILogger

	records sync.WaitGroup
}

// New creates a pipeline.
func New(deps Deps, logger arbor.ILogger) *Pipeline {
	return &Pipeline{deps: deps, logger: logger}
}

// Run executes every stage of job id and returns the final record. A stage
// fault moves the job to failed and is returned as a *StageError.
func (p *Pipeline) Run(ctx context.Context, id string) (job *types.Job, err error) {
	job, err = p.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}
	start := time.Now()
	p.logger.Info().Str("job_id", id).Str("business", job.Request.BusinessName).Msg("Pipeline started")

	defer func() {
		if r := recover(); r != nil {
			stageErr := &StageError{Stage: "pipeline", Message: fmt.Sprintf("internal error: %v", r)}
			job, err = p.fail(ctx, id, stageErr), stageErr
		}
	}()

	stages := []func(context.Context, *types.Job) (*types.Job, error){
		p.scrape,
		p.process,
		p.generate,
		p.deploy,
	}
	for i, run := range stages {
		name := StageRegistry[i].Name
		if err := ValidateDependencies(job, name); err != nil {
			stageErr := &StageError{Stage: name, Message: err.Error(), Cause: err}
			return p.fail(ctx, id, stageErr), stageErr
		}
		next, err := run(ctx, job)
		if err != nil {
			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				stageErr = &StageError{Stage: name, Message: err.Error(), Cause: err}
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				stageErr.Message = "job timed out during " + name
			}
			failed := p.fail(ctx, id, stageErr)
			p.logger.Error().
				Str("job_id", id).
				Str("stage", name).
				Str("error", stageErr.Message).
				Dur("elapsed", time.Since(start)).
				Msg("Pipeline failed")
			return failed, stageErr
		}
		job = next
	}

	p.logger.Info().
		Str("job_id", id).
		Str("url", urlOf(job)).
		Dur("elapsed", time.Since(start)).
		Msg("Pipeline complete")
	p.record(ctx, job)
	return job, nil
}

// Wait blocks until in-flight persistence calls return.
func (p *Pipeline) Wait() {
	p.records.Wait()
}

func (p *Pipeline) scrape(ctx context.Context, job *types.Job) (*types.Job, error) {
	def := StageRegistry[0]
	job, err := p.merge(ctx, job.ID, jobs.Advance(def.Status, def.Start, def.Label))
	if err != nil {
		return nil, err
	}

	req := job.Request
	var progressErr error
	signals := p.deps.Gatherer.Gather(ctx, req, func(settled, total int) {
		if progressErr != nil || total == 0 {
			return
		}
		step := fmt.Sprintf("Gathered %d of %d sources", settled, total)
		_, progressErr = p.merge(ctx, job.ID, jobs.Step(def.At(float64(settled)/float64(total)), step))
	})
	if progressErr != nil {
		return nil, progressErr
	}
	if signals == nil {
		signals = types.NewRawSignalSet()
	}

	patch := jobs.Step(def.End, fmt.Sprintf("Gathered %d sources", signals.Len()))
	patch.Signals = signals
	return p.merge(ctx, job.ID, patch)
}

func (p *Pipeline) process(ctx context.Context, job *types.Job) (*types.Job, error) {
	def := StageRegistry[1]
	job, err := p.merge(ctx, job.ID, jobs.Advance(def.Status, def.Start, "Extracting business details"))
	if err != nil {
		return nil, err
	}

	rec, err := p.deps.Extractor.Extract(ctx, job.Request, job.Signals)
	if err != nil {
		return nil, &StageError{Stage: def.Name, Message: err.Error(), Cause: err}
	}

	if p.deps.GapFiller != nil && p.deps.GapFiller.NeedsFill(rec) {
		if job, err = p.merge(ctx, job.ID, jobs.Step(def.At(0.5), "Filling information gaps")); err != nil {
			return nil, err
		}
		rec = p.deps.GapFiller.Fill(ctx, rec)
	}

	patch := jobs.Step(def.End, fmt.Sprintf("Business data ready (quality %d)", rec.DataQuality.Score))
	patch.Record = rec
	return p.merge(ctx, job.ID, patch)
}

func (p *Pipeline) generate(ctx context.Context, job *types.Job) (*types.Job, error) {
	def := StageRegistry[2]
	job, err := p.merge(ctx, job.ID, jobs.Advance(def.Status, def.Start, def.Label))
	if err != nil {
		return nil, err
	}

	artifact, err := p.deps.Builder.Build(ctx, job.Record)
	if err != nil {
		return nil, &StageError{Stage: def.Name, Message: err.Error(), Cause: err}
	}

	patch := jobs.Step(def.End, "Website generated")
	patch.Artifact = artifact
	return p.merge(ctx, job.ID, patch)
}

func (p *Pipeline) deploy(ctx context.Context, job *types.Job) (*types.Job, error) {
	def := StageRegistry[3]
	job, err := p.merge(ctx, job.ID, jobs.Advance(def.Status, def.Start, def.Label))
	if err != nil {
		return nil, err
	}

	outcome, err := p.deps.Deployer.Deploy(ctx, job.Artifact, job.Request.BusinessName, job.Record,
		deploy.Options{CustomDomain: job.Request.CustomDomain})
	if err != nil {
		msg := err.Error()
		if outcome != nil && outcome.Error != "" {
			msg = outcome.Error
		}
		return nil, &StageError{Stage: def.Name, Message: msg, Cause: err, outcome: outcome}
	}
	if outcome == nil || !outcome.Success {
		msg := "deployment did not succeed"
		if outcome != nil && outcome.Error != "" {
			msg = outcome.Error
		}
		return nil, &StageError{Stage: def.Name, Message: msg, outcome: outcome}
	}

	return p.merge(ctx, job.ID, jobs.Complete(outcome))
}

// merge applies patch. Terminal jobs reject further writes.
func (p *Pipeline) merge(ctx context.Context, id string, patch jobs.Patch) (*types.Job, error) {
	job, err := p.deps.Store.Merge(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	return job, nil
}

// fail records message as the job's terminal error. It uses a context that
// survives the job's own deadline so timeouts are still written.
func (p *Pipeline) fail(ctx context.Context, id string, stageErr *StageError) *types.Job {
	patch := jobs.Fail(stageErr.Message)
	patch.Deployment = stageErr.outcome

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	job, err := p.deps.Store.Merge(writeCtx, id, patch)
	if err != nil {
		p.logger.Error().Err(err).Str("job_id", id).Msg("Failed to record job failure")
		return nil
	}
	return job
}

// record hands a completed job to the persistence collaborator without
// blocking the caller. Failures are logged only.
func (p *Pipeline) record(ctx context.Context, job *types.Job) {
	if p.deps.Recorder == nil {
		return
	}
	snapshot := job.Clone()
	p.records.Add(1)
	go func() {
		defer p.records.Done()
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := p.deps.Recorder.RecordCompletedJob(recCtx, snapshot); err != nil {
			p.logger.Warn().Err(err).Str("job_id", snapshot.ID).Msg("Failed to record completed job")
		}
	}()
}

func urlOf(job *types.Job) string {
	if job == nil || job.Deployment == nil {
		return ""
	}
	return job.Deployment.URL
}
