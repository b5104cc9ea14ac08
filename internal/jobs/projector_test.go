package jobs

import (
	"testing"
	"time"

	"github.com/jonathan/site-generator/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_InFlight(t *testing.T) {
	job := NewJob(types.GenerateRequest{BusinessName: "Acme"}, time.Now())
	job.Status = types.StatusProcessing
	job.Progress = 55
	job.CurrentStep = "Extracting"

	v := Project(job)
	assert.Equal(t, job.ID, v.ID)
	assert.Equal(t, types.StatusProcessing, v.Status)
	assert.Equal(t, 55, v.Progress)
	assert.Equal(t, "Extracting", v.CurrentStep)
	assert.Nil(t, v.Result)
	assert.Empty(t, v.Error)
}

func TestProject_Complete(t *testing.T) {
	job := NewJob(types.GenerateRequest{BusinessName: "Acme"}, time.Now())
	require.NoError(t, Complete(&types.DeploymentOutcome{
		Success:    true,
		URL:        "https://acme.vercel.app",
		PreviewURL: "https://acme-abc.vercel.app",
	}).Apply(job, time.Now()))
	job.Record = &types.BusinessRecord{DataQuality: types.DataQuality{Score: 82}}

	v := Project(job)
	require.NotNil(t, v.Result)
	assert.Equal(t, "https://acme.vercel.app", v.Result.SiteURL)
	assert.Equal(t, "https://acme-abc.vercel.app", v.Result.PreviewURL)
	assert.Equal(t, 82, v.Result.QualityScore)
	assert.Equal(t, 100, v.Progress)
	assert.NotNil(t, v.CompletedAt)
}

func TestProject_Failed(t *testing.T) {
	job := NewJob(types.GenerateRequest{BusinessName: "Acme"}, time.Now())
	require.NoError(t, Fail("Build failed: missing index").Apply(job, time.Now()))

	v := Project(job)
	assert.Nil(t, v.Result)
	assert.Equal(t, "Build failed: missing index", v.Error)

	job.Error = ""
	assert.Equal(t, "job failed", Project(job).Error)
}
