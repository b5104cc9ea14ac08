package pipeline

import (
	"fmt"

	"github.com/jonathan/site-generator/internal/types"
)

// Stage names.
const (
	StageScraping   = "scraping"
	StageProcessing = "processing"
	StageGenerating = "generating"
	StageDeploying  = "deploying"
)

// StageDefinition describes one sequential pipeline stage: the job status it
// runs under, its slice of the 0-100 progress scale and the stage payloads it
// reads from the job record.
type StageDefinition struct {
	Name         string
	Status       types.JobStatus
	Label        string
	Start        int
	End          int
	Dependencies []string
}

// StageRegistry holds the stages in execution order.
var StageRegistry = []StageDefinition{
	{
		Name:   StageScraping,
		Status: types.StatusScraping,
		Label:  "Gathering business information",
		Start:  10,
		End:    30,
	},
	{
		Name:         StageProcessing,
		Status:       types.StatusProcessing,
		Label:        "Analyzing business data",
		Start:        40,
		End:          70,
		Dependencies: []string{StageScraping},
	},
	{
		Name:         StageGenerating,
		Status:       types.StatusGenerating,
		Label:        "Generating website",
		Start:        70,
		End:          85,
		Dependencies: []string{StageProcessing},
	},
	{
		Name:         StageDeploying,
		Status:       types.StatusDeploying,
		Label:        "Deploying website",
		Start:        85,
		End:          100,
		Dependencies: []string{StageProcessing, StageGenerating},
	},
}

// Stage returns the definition named name.
func Stage(name string) (StageDefinition, bool) {
	for _, def := range StageRegistry {
		if def.Name == name {
			return def, true
		}
	}
	return StageDefinition{}, false
}

// At maps fraction (0..1) of the stage onto its progress range.
func (d StageDefinition) At(fraction float64) int {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return d.Start + int(fraction*float64(d.End-d.Start))
}

// DependencyError reports a stage whose inputs are missing from the job record.
type DependencyError struct {
	Stage               string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s is missing output of: %v", e.Stage, e.MissingDependencies)
}

// ValidateDependencies checks that job carries the payload of every stage name depends on.
func ValidateDependencies(job *types.Job, name string) error {
	def, ok := Stage(name)
	if !ok {
		return fmt.Errorf("unknown stage: %s", name)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !hasOutput(job, dep) {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Stage: name, MissingDependencies: missing}
	}
	return nil
}

func hasOutput(job *types.Job, stage string) bool {
	switch stage {
	case StageScraping:
		return job.Signals != nil
	case StageProcessing:
		return job.Record != nil
	case StageGenerating:
		return job.Artifact != nil
	case StageDeploying:
		return job.Deployment != nil
	}
	return false
}
