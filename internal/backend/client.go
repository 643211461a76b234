// Package backend is the HTTP client for the external project API,
// which owns all persisted state. The engine never writes locally; every
// mutation round-trips through this client and the scene is rebuilt
// from the response.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sitescope/sitescope/internal/logger"
	"github.com/sitescope/sitescope/internal/models"
)

const (
	defaultTimeout = 15 * time.Second

	// maxModelBytes caps a single model download. Oversized assets are
	// rejected rather than buffered without bound.
	maxModelBytes = 64 << 20
)

// APIError is a non-2xx response from the backing API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the external project API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger

	models *modelCache
}

// NewClient creates a client for the API at baseURL. An empty apiKey
// disables authentication headers.
func NewClient(baseURL, apiKey string, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log,
		models:  newModelCache(),
	}
}

// Ping checks that the project API is reachable. Used by the readiness
// endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// GetProject fetches one project with its buildings and phases.
func (c *Client) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var project models.Project
	if err := c.do(ctx, http.MethodGet, "/api/v1/projects/"+projectID, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListZones fetches all site zones for a project.
func (c *Client) ListZones(ctx context.Context, projectID string) ([]models.Zone, error) {
	var zones []models.Zone
	path := "/api/v1/projects/" + projectID + "/zones"
	if err := c.do(ctx, http.MethodGet, path, nil, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// CreateZone persists a drawn zone and returns it with its assigned ID.
// Implements the planner's submission interface.
func (c *Client) CreateZone(ctx context.Context, zone models.Zone) (models.Zone, error) {
	var created models.Zone
	path := "/api/v1/projects/" + zone.ProjectID + "/zones"
	if err := c.do(ctx, http.MethodPost, path, zone, &created); err != nil {
		return models.Zone{}, err
	}
	return created, nil
}

// UpdateZone replaces a zone's stored state.
func (c *Client) UpdateZone(ctx context.Context, zone models.Zone) (models.Zone, error) {
	var updated models.Zone
	path := "/api/v1/projects/" + zone.ProjectID + "/zones/" + zone.ID
	if err := c.do(ctx, http.MethodPut, path, zone, &updated); err != nil {
		return models.Zone{}, err
	}
	return updated, nil
}

// DeleteZone removes a zone.
func (c *Client) DeleteZone(ctx context.Context, projectID, zoneID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/projects/"+projectID+"/zones/"+zoneID, nil, nil)
}

// ListAnnotations fetches a project's scene annotations.
func (c *Client) ListAnnotations(ctx context.Context, projectID string) ([]models.Annotation, error) {
	var annotations []models.Annotation
	path := "/api/v1/projects/" + projectID + "/annotations"
	if err := c.do(ctx, http.MethodGet, path, nil, &annotations); err != nil {
		return nil, err
	}
	return annotations, nil
}

// CreateAnnotation persists a new scene annotation.
func (c *Client) CreateAnnotation(ctx context.Context, a models.Annotation) (models.Annotation, error) {
	var created models.Annotation
	path := "/api/v1/projects/" + a.ProjectID + "/annotations"
	if err := c.do(ctx, http.MethodPost, path, a, &created); err != nil {
		return models.Annotation{}, err
	}
	return created, nil
}

// DeleteAnnotation removes an annotation.
func (c *Client) DeleteAnnotation(ctx context.Context, projectID, annotationID string) error {
	path := "/api/v1/projects/" + projectID + "/annotations/" + annotationID
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// GetContext fetches the OSM surroundings for a point and radius.
func (c *Client) GetContext(ctx context.Context, lat, lng, radiusMeters float64) (*models.ContextData, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lng", fmt.Sprintf("%f", lng))
	q.Set("radius", fmt.Sprintf("%f", radiusMeters))

	var data models.ContextData
	if err := c.do(ctx, http.MethodGet, "/api/v1/context?"+q.Encode(), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// do runs one API request. A non-nil body is sent as JSON; a non-nil
// out receives the decoded response.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("backend request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		})
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
