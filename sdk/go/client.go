package dealflowsdk

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
)

// Client is a minimal Dealflow HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Project represents the API project model.
type Project struct {
	ID               int64   `json:"id"`
	Reference        string  `json:"reference"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	ClientName       string  `json:"client_name"`
	ClientBudget     float64 `json:"client_budget"`
	Platform         string  `json:"platform"`
	Stage            string  `json:"stage"`
	EstimatedMargin  float64 `json:"estimated_margin"`
	EstimatedHours   float64 `json:"estimated_hours"`
	SuggestedPrice   float64 `json:"suggested_price"`
	FixedPrice       float64 `json:"fixed_price"`
	SpecApproved     bool    `json:"spec_approved"`
	PaymentConfirmed bool    `json:"payment_confirmed"`
	QAScore          int     `json:"qa_score"`
	Rejected         bool    `json:"rejected"`
	RejectionReason  string  `json:"rejection_reason,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// Event represents a log entry.
type Event struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Stage     string `json:"stage"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	TS        string `json:"ts"`
}

// Clarification represents one question sent to the client.
type Clarification struct {
	ID         int64  `json:"id"`
	ProjectID  int64  `json:"project_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer,omitempty"`
	CreatedAt  string `json:"created_at"`
	AnsweredAt string `json:"answered_at,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedProjects wraps list responses with a cursor.
type PaginatedProjects struct {
	Items      []Project `json:"items"`
	NextCursor int64     `json:"next_cursor"`
}

// Intake registers a new lead.
func (c *Client) Intake(ctx context.Context, title, description, clientName string, budget float64, platform string) (Project, error) {
	body := map[string]any{
		"title":       title,
		"description": description,
		"client_name": clientName,
		"budget":      budget,
		"platform":    platform,
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v0/projects", body, &resp)
	return resp, err
}

// Get fetches a project by ID or reference.
func (c *Client) Get(ctx context.Context, idOrRef string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, c.projectPath(idOrRef, ""), nil, &resp)
	return resp, err
}

// List returns projects, optionally filtered by stage.
func (c *Client) List(ctx context.Context, stage string, limit int) ([]Project, error) {
	page, err := c.ListPage(ctx, stage, limit, 0)
	return page.Items, err
}

// ListPage returns a paginated project listing.
func (c *Client) ListPage(ctx context.Context, stage string, limit int, cursor int64) (PaginatedProjects, error) {
	endpoint := "v0/projects"
	params := url.Values{}
	if stage != "" {
		params.Set("stage", stage)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor > 0 {
		params.Set("cursor", fmt.Sprintf("%d", cursor))
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp PaginatedProjects
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Process advances a project as far as the stage guards allow.
func (c *Client) Process(ctx context.Context, idOrRef string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, c.projectPath(idOrRef, "process"), struct{}{}, &resp)
	return resp, err
}

// Vet runs the profitability gate.
func (c *Client) Vet(ctx context.Context, idOrRef, complexity string) (Project, error) {
	var resp Project
	body := map[string]any{"complexity": complexity}
	err := c.do(ctx, http.MethodPost, c.projectPath(idOrRef, "vet"), body, &resp)
	return resp, err
}

// ConfirmPayment manually confirms payment for a project.
func (c *Client) ConfirmPayment(ctx context.Context, idOrRef, txRef, method string) (Project, error) {
	body := map[string]any{
		"tx_ref": txRef,
		"method": method,
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, c.projectPath(idOrRef, "confirm-payment"), body, &resp)
	return resp, err
}

// ProjectEvents returns the event log for one project.
func (c *Client) ProjectEvents(ctx context.Context, idOrRef string) ([]Event, error) {
	var resp []Event
	err := c.do(ctx, http.MethodGet, c.projectPath(idOrRef, "events"), nil, &resp)
	return resp, err
}

// Clarifications returns questions and answers for one project.
func (c *Client) Clarifications(ctx context.Context, idOrRef string) ([]Clarification, error) {
	var resp []Clarification
	err := c.do(ctx, http.MethodGet, c.projectPath(idOrRef, "clarifications"), nil, &resp)
	return resp, err
}

// Events returns the most recent events across all projects.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(idOrRef, action string) string {
	p := fmt.Sprintf("v0/projects/%s", url.PathEscape(idOrRef))
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
