// Package deploy publishes a generated site to the hosting platform: it
// builds the file bundle, acquires the project, creates a production
// deployment and polls it to a terminal state.
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the hosting platform API root.
const DefaultBaseURL = "https://api.vercel.com"

const maxResponseBytes = 4 << 20

// Deployment ready states reported by the platform.
const (
	StateReady    = "READY"
	StateError    = "ERROR"
	StateCanceled = "CANCELED"
)

// Project is a hosting project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Deployment is the platform's view of one deployment.
type Deployment struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	ReadyState   string `json:"readyState"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorStep    string `json:"errorStep,omitempty"`
}

// DeploymentRequest creates a production deployment from inline files.
type DeploymentRequest struct {
	Name    string `json:"name"`
	Project string `json:"project"`
	Target  string `json:"target"`
	Files   []File `json:"files"`
}

// Hosting is the subset of the platform API the orchestrator needs.
type Hosting interface {
	CreateProject(ctx context.Context, name string) (*Project, error)
	GetProject(ctx context.Context, idOrName string) (*Project, error)
	CreateDeployment(ctx context.Context, req DeploymentRequest) (*Deployment, error)
	GetDeployment(ctx context.Context, id string) (*Deployment, error)
	AddDomain(ctx context.Context, projectID, domain string) error
}

// Client talks to the hosting REST API with a bearer token.
type Client struct {
	baseURL string
	token   string
	teamID  string
	http    *http.Client
}

// NewClient returns a client. An empty baseURL uses DefaultBaseURL and a nil
// httpClient gets a 30 second timeout.
func NewClient(token, teamID, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		teamID:  teamID,
		http:    httpClient,
	}
}

func (c *Client) CreateProject(ctx context.Context, name string) (*Project, error) {
	var p Project
	payload := map[string]any{"name": name, "framework": nil}
	if err := c.do(ctx, http.MethodPost, "/v9/projects", payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetProject(ctx context.Context, idOrName string) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodGet, "/v9/projects/"+url.PathEscape(idOrName), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateDeployment(ctx context.Context, req DeploymentRequest) (*Deployment, error) {
	payload := struct {
		DeploymentRequest
		ProjectSettings map[string]any `json:"projectSettings"`
	}{
		DeploymentRequest: req,
		ProjectSettings:   map[string]any{"framework": nil},
	}
	var d Deployment
	if err := c.do(ctx, http.MethodPost, "/v13/deployments", payload, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	var d Deployment
	if err := c.do(ctx, http.MethodGet, "/v13/deployments/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) AddDomain(ctx context.Context, projectID, domain string) error {
	path := "/v10/projects/" + url.PathEscape(projectID) + "/domains"
	return c.do(ctx, http.MethodPost, path, map[string]string{"name": domain}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	u := c.baseURL + path
	if c.teamID != "" {
		u += "?teamId=" + url.QueryEscape(c.teamID)
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseAPIError(status int, raw []byte) *APIError {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: status}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	apiErr.Message = msg
	return apiErr
}
