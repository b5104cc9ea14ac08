package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/site-generator/internal/types"
)

// ErrNotCompleted is returned when asked to record a job that did not deploy.
var ErrNotCompleted = errors.New("job is not complete")

const siteColumns = `job_id, business_name, category, slug, site_url, preview_url, custom_domain,
	quality_score, client_email, record, deployment, created_at, completed_at, recorded_at`

// SiteFromJob flattens a completed job into a Site row.
func SiteFromJob(job *types.Job) (*Site, error) {
	if job == nil || job.Status != types.StatusComplete || job.Deployment == nil {
		return nil, ErrNotCompleted
	}

	site := &Site{
		JobID:        job.ID,
		BusinessName: job.Request.BusinessName,
		Slug:         job.Deployment.Slug,
		SiteURL:      job.Deployment.URL,
		PreviewURL:   job.Deployment.PreviewURL,
		CustomDomain: job.Deployment.CustomDomain,
		ClientEmail:  job.Request.ClientEmail,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
	}

	deployment, err := json.Marshal(job.Deployment)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deployment: %w", err)
	}
	site.Deployment = deployment

	if job.Record != nil {
		if job.Record.BusinessName != "" {
			site.BusinessName = job.Record.BusinessName
		}
		site.Category = job.Record.Category
		site.QualityScore = job.Record.DataQuality.Score
		record, err := json.Marshal(job.Record)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record: %w", err)
		}
		site.Record = record
	}
	return site, nil
}

// RecordCompletedJob upserts the site produced by job.
func (db *DB) RecordCompletedJob(ctx context.Context, job *types.Job) error {
	site, err := SiteFromJob(job)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO generated_sites (job_id, business_name, category, slug, site_url, preview_url,
			custom_domain, quality_score, client_email, record, deployment, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (job_id) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			category = EXCLUDED.category,
			slug = EXCLUDED.slug,
			site_url = EXCLUDED.site_url,
			preview_url = EXCLUDED.preview_url,
			custom_domain = EXCLUDED.custom_domain,
			quality_score = EXCLUDED.quality_score,
			client_email = EXCLUDED.client_email,
			record = EXCLUDED.record,
			deployment = EXCLUDED.deployment,
			completed_at = EXCLUDED.completed_at,
			recorded_at = NOW()`,
		site.JobID, site.BusinessName, site.Category, site.Slug, site.SiteURL, site.PreviewURL,
		site.CustomDomain, site.QualityScore, site.ClientEmail, []byte(site.Record), []byte(site.Deployment),
		site.CreatedAt, site.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record site %s: %w", site.JobID, err)
	}
	return nil
}

// GetSite retrieves a recorded site by job ID. It returns nil when absent.
func (db *DB) GetSite(ctx context.Context, jobID string) (*Site, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM generated_sites WHERE job_id = $1`, jobID)
	site, err := scanSite(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}

// ListSites retrieves recorded sites, newest first.
func (db *DB) ListSites(ctx context.Context, filters SiteFilters) ([]Site, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT ` + siteColumns + ` FROM generated_sites WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.BusinessName != "" {
		query += fmt.Sprintf(" AND business_name ILIKE $%d", argNum)
		args = append(args, "%"+filters.BusinessName+"%")
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, *site)
	}
	return sites, rows.Err()
}

// DeleteSite removes a recorded site.
func (db *DB) DeleteSite(ctx context.Context, jobID string) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM generated_sites WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("site not found: %s", jobID)
	}
	return nil
}

func scanSite(row pgx.Row) (*Site, error) {
	var site Site
	var record, deployment []byte
	err := row.Scan(&site.JobID, &site.BusinessName, &site.Category, &site.Slug, &site.SiteURL,
		&site.PreviewURL, &site.CustomDomain, &site.QualityScore, &site.ClientEmail,
		&record, &deployment, &site.CreatedAt, &site.CompletedAt, &site.RecordedAt)
	if err != nil {
		return nil, err
	}
	site.Record = record
	site.Deployment = deployment
	return &site, nil
}
