package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WorkflowClient is the main client for interacting with a workflow server
// REST API.
type WorkflowClient struct {
	BaseURL    string
	HTTPClient *http.Client
	APIKey     string

	// MaxAttempts bounds retries for transient failures (transport errors
	// and 502/503/504 responses). Definitive rejections are never retried.
	MaxAttempts int
	RetryDelay  time.Duration
}

// Workflow represents a workflow definition. Nodes are kept as decoded JSON
// documents so reference scanning and value substitution can walk arbitrary
// node shapes without knowing every node type.
type Workflow struct {
	ID          string                 `json:"id,omitempty"`
	Name        string                 `json:"name"`
	Nodes       []map[string]any       `json:"nodes"`
	Connections map[string]any         `json:"connections"`
	Settings    map[string]any         `json:"settings,omitempty"`
}

// Credential represents a named secret bundle of a given type.
type Credential struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Project represents a project (folder) on servers that support them.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsTransient reports whether err is worth retrying: a transport failure or
// a gateway-class server error.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return err != nil
}

// NewClient creates a new workflow server client.
func NewClient(baseURL, apiKey string) *WorkflowClient {
	return &WorkflowClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		APIKey:      apiKey,
		MaxAttempts: 3,
		RetryDelay:  500 * time.Millisecond,
	}
}

func (c *WorkflowClient) apiURL(path string) string {
	return c.BaseURL + "/api/v1" + path
}

// doRequest performs an HTTP request with authentication and bounded retries
// on transient failures.
func (c *WorkflowClient) doRequest(method, urlPath string, body interface{}) ([]byte, int, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(c.RetryDelay)
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequest(method, urlPath, reqBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-API-KEY", c.APIKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
			continue
		}

		return respBody, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func apiError(statusCode int, body []byte) error {
	return &APIError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
}

// Ping verifies connectivity and API key validity.
func (c *WorkflowClient) Ping() error {
	respBody, statusCode, err := c.doRequest("GET", c.apiURL("/workflows"), nil)
	if err != nil {
		return err
	}
	if statusCode != http.StatusOK {
		return apiError(statusCode, respBody)
	}
	return nil
}

// ListProjects returns all projects on the server. Servers without project
// support answer 403; that is surfaced as an APIError for the caller to
// interpret.
func (c *WorkflowClient) ListProjects() ([]Project, error) {
	respBody, statusCode, err := c.doRequest("GET", c.apiURL("/projects"), nil)
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK {
		return nil, apiError(statusCode, respBody)
	}

	var result struct {
		Data []Project `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse projects response: %w", err)
	}
	return result.Data, nil
}

// CreateProject creates a project and returns its id.
func (c *WorkflowClient) CreateProject(name string) (string, error) {
	respBody, statusCode, err := c.doRequest("POST", c.apiURL("/projects"), map[string]string{"name": name})
	if err != nil {
		return "", err
	}
	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return "", apiError(statusCode, respBody)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse project response: %w", err)
	}
	return result.ID, nil
}

// DeleteProject deletes a project by id.
func (c *WorkflowClient) DeleteProject(id string) error {
	respBody, statusCode, err := c.doRequest("DELETE", c.apiURL("/projects/"+url.PathEscape(id)), nil)
	if err != nil {
		return err
	}
	if statusCode != http.StatusOK && statusCode != http.StatusNoContent {
		return apiError(statusCode, respBody)
	}
	return nil
}

// ListWorkflows returns all workflows, optionally scoped to a project.
func (c *WorkflowClient) ListWorkflows(projectID string) ([]Workflow, error) {
	urlPath := c.apiURL("/workflows")
	if projectID != "" {
		urlPath += "?projectId=" + url.QueryEscape(projectID)
	}

	respBody, statusCode, err := c.doRequest("GET", urlPath, nil)
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK {
		return nil, apiError(statusCode, respBody)
	}

	var result struct {
		Data []Workflow `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse workflows response: %w", err)
	}
	return result.Data, nil
}

// GetWorkflow returns a single workflow by id.
func (c *WorkflowClient) GetWorkflow(id string) (*Workflow, error) {
	respBody, statusCode, err := c.doRequest("GET", c.apiURL("/workflows/"+url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK {
		return nil, apiError(statusCode, respBody)
	}

	var workflow Workflow
	if err := json.Unmarshal(respBody, &workflow); err != nil {
		return nil, fmt.Errorf("failed to parse workflow response: %w", err)
	}
	return &workflow, nil
}

// CreateWorkflow creates a workflow and returns its new id.
func (c *WorkflowClient) CreateWorkflow(w *Workflow) (string, error) {
	payload := map[string]any{
		"name":        w.Name,
		"nodes":       w.Nodes,
		"connections": w.Connections,
		"settings":    w.Settings,
	}

	respBody, statusCode, err := c.doRequest("POST", c.apiURL("/workflows"), payload)
	if err != nil {
		return "", err
	}
	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return "", apiError(statusCode, respBody)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse workflow response: %w", err)
	}
	return result.ID, nil
}

// DeleteWorkflow deletes a workflow by id.
func (c *WorkflowClient) DeleteWorkflow(id string) error {
	respBody, statusCode, err := c.doRequest("DELETE", c.apiURL("/workflows/"+url.PathEscape(id)), nil)
	if err != nil {
		return err
	}
	if statusCode != http.StatusOK && statusCode != http.StatusNoContent {
		return apiError(statusCode, respBody)
	}
	return nil
}

// TransferWorkflow moves a workflow into a project.
func (c *WorkflowClient) TransferWorkflow(id, projectID string) error {
	urlPath := c.apiURL("/workflows/" + url.PathEscape(id) + "/transfer")
	body := map[string]string{"destinationProjectId": projectID}

	respBody, statusCode, err := c.doRequest("PUT", urlPath, body)
	if err != nil {
		return err
	}
	if statusCode != http.StatusOK && statusCode != http.StatusNoContent {
		return apiError(statusCode, respBody)
	}
	return nil
}

// GetCredential returns a single credential by id. The server never returns
// secret data; only identity fields are populated.
func (c *WorkflowClient) GetCredential(id string) (*Credential, error) {
	respBody, statusCode, err := c.doRequest("GET", c.apiURL("/credentials/"+url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK {
		return nil, apiError(statusCode, respBody)
	}

	var cred Credential
	if err := json.Unmarshal(respBody, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse credential response: %w", err)
	}
	return &cred, nil
}

// CreateCredential creates a credential and returns it with the server
// assigned id and final name.
func (c *WorkflowClient) CreateCredential(cred *Credential) (*Credential, error) {
	payload := map[string]any{
		"name": cred.Name,
		"type": cred.Type,
		"data": cred.Data,
	}

	respBody, statusCode, err := c.doRequest("POST", c.apiURL("/credentials"), payload)
	if err != nil {
		return nil, err
	}
	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return nil, apiError(statusCode, respBody)
	}

	var created Credential
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("failed to parse credential response: %w", err)
	}
	return &created, nil
}

// DeleteCredential deletes a credential by id.
func (c *WorkflowClient) DeleteCredential(id string) error {
	respBody, statusCode, err := c.doRequest("DELETE", c.apiURL("/credentials/"+url.PathEscape(id)), nil)
	if err != nil {
		return err
	}
	if statusCode != http.StatusOK && statusCode != http.StatusNoContent {
		return apiError(statusCode, respBody)
	}
	return nil
}
