package view

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fanvue/moderation-api/internal/models"
)

// Client talks to the moderation API over HTTP and satisfies both Fetcher and
// Actor for the Store.
type Client struct {
	base        string
	http        *http.Client
	moderatorID string
}

// NewClient constructs a Client against the API base URL (including the API
// prefix). moderatorID is stamped onto every action payload.
func NewClient(base string, moderatorID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		base:        strings.TrimRight(base, "/"),
		http:        httpClient,
		moderatorID: moderatorID,
	}
}

type pageEnvelope struct {
	Success bool         `json:"success"`
	Data    *models.Page `json:"data"`
	Message string       `json:"message"`
}

type submissionEnvelope struct {
	Success bool               `json:"success"`
	Data    *models.Submission `json:"data"`
	Message string             `json:"message"`
}

// FetchPage implements Fetcher.
func (c *Client) FetchPage(ctx context.Context, filter models.ListFilter, cursor string) (*models.Page, error) {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if filter.Search != "" {
		params.Set("search", filter.Search)
	}
	for _, status := range filter.Statuses {
		params.Add("status", string(status))
	}
	for _, category := range filter.Categories {
		params.Add("category", string(category))
	}
	if filter.SortBy != "" {
		params.Set("sortBy", filter.SortBy)
	}
	if filter.SortOrder != "" {
		params.Set("sortOrder", filter.SortOrder)
	}

	endpoint := c.base + "/apps"
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch apps: %w", err)
	}
	defer resp.Body.Close()

	var envelope pageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode apps response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !envelope.Success || envelope.Data == nil {
		return nil, fmt.Errorf("fetch apps: status %d: %s", resp.StatusCode, envelope.Message)
	}
	return envelope.Data, nil
}

// Apply implements Actor.
func (c *Client) Apply(ctx context.Context, appID string, action models.Action) (*models.Submission, error) {
	payload, err := json.Marshal(map[string]string{
		"type":        string(action),
		"appId":       appID,
		"moderatorId": c.moderatorID,
	})
	if err != nil {
		return nil, err
	}

	endpoint := c.base + "/apps/" + url.PathEscape(appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apply action: %w", err)
	}
	defer resp.Body.Close()

	var envelope submissionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode action response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !envelope.Success || envelope.Data == nil {
		return nil, fmt.Errorf("apply action: status %d: %s", resp.StatusCode, envelope.Message)
	}
	return envelope.Data, nil
}
