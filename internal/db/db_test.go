package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/site-generator/internal/types"
)

func completedJob() *types.Job {
	done := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	return &types.Job{
		ID:          "0b7d8a52-5b1f-4f43-9a8e-0c0c8d1e2f3a",
		Status:      types.StatusComplete,
		Progress:    100,
		Request:     types.GenerateRequest{BusinessName: "acme cafe", ClientEmail: "owner@acme.test"},
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		CompletedAt: &done,
		Record: &types.BusinessRecord{
			BusinessName: "Acme Cafe",
			Category:     "cafe",
			DataQuality:  types.DataQuality{Score: 82},
		},
		Deployment: &types.DeploymentOutcome{
			Success:    true,
			Slug:       "acme-cafe",
			URL:        "https://acme-cafe.vercel.app",
			PreviewURL: "https://acme-cafe-abc.vercel.app",
			Polls:      2,
		},
	}
}

func TestSiteFromJob(t *testing.T) {
	site, err := SiteFromJob(completedJob())
	require.NoError(t, err)

	assert.Equal(t, "0b7d8a52-5b1f-4f43-9a8e-0c0c8d1e2f3a", site.JobID)
	assert.Equal(t, "Acme Cafe", site.BusinessName)
	assert.Equal(t, "cafe", site.Category)
	assert.Equal(t, "acme-cafe", site.Slug)
	assert.Equal(t, "https://acme-cafe.vercel.app", site.SiteURL)
	assert.Equal(t, "https://acme-cafe-abc.vercel.app", site.PreviewURL)
	assert.Equal(t, 82, site.QualityScore)
	assert.Equal(t, "owner@acme.test", site.ClientEmail)
	require.NotNil(t, site.CompletedAt)

	var record types.BusinessRecord
	require.NoError(t, json.Unmarshal(site.Record, &record))
	assert.Equal(t, "Acme Cafe", record.BusinessName)

	var outcome types.DeploymentOutcome
	require.NoError(t, json.Unmarshal(site.Deployment, &outcome))
	assert.Equal(t, 2, outcome.Polls)
}

func TestSiteFromJob_WithoutRecordUsesRequestName(t *testing.T) {
	job := completedJob()
	job.Record = nil

	site, err := SiteFromJob(job)
	require.NoError(t, err)
	assert.Equal(t, "acme cafe", site.BusinessName)
	assert.Zero(t, site.QualityScore)
	assert.Nil(t, site.Record)
}

func TestSiteFromJob_RejectsIncompleteJobs(t *testing.T) {
	failed := completedJob()
	failed.Status = types.StatusFailed

	undeployed := completedJob()
	undeployed.Deployment = nil

	for _, job := range []*types.Job{nil, failed, undeployed} {
		_, err := SiteFromJob(job)
		assert.ErrorIs(t, err, ErrNotCompleted)
	}
}
