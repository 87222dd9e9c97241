// Package client is the Go SDK for the orgchart daemon HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/rmax-ai/orgchart/pkg/employee"
)

// Client is the orgchart SDK client.
type Client struct {
	endpoint string
	http     *http.Client
	retries  int
	backoff  Backoff
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithRetries retries read requests up to n times on network errors and 5xx
// responses, waiting according to b between attempts.
func WithRetries(n int, b Backoff) Option {
	return func(c *Client) {
		c.retries = n
		c.backoff = b
	}
}

// NewClient creates a new orgchart client.
// endpoint defaults to "http://127.0.0.1:8090" if empty.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8090"
	}
	c := &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: DefaultBackoff(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks the health of the daemon.
func (c *Client) Ping(ctx context.Context) (Status, error) {
	var status Status
	err := c.do(ctx, http.MethodGet, "/v1/health", nil, &status)
	return status, err
}

// ListEmployees returns the whole roster.
func (c *Client) ListEmployees(ctx context.Context) ([]Employee, error) {
	var out []Employee
	err := c.do(ctx, http.MethodGet, "/v1/employees", nil, &out)
	return out, err
}

// AddEmployee registers an employee and returns the stored record.
func (c *Client) AddEmployee(ctx context.Context, e NewEmployee) (Employee, error) {
	var out Employee
	err := c.do(ctx, http.MethodPost, "/v1/employees", e, &out)
	return out, err
}

// GetEmployee fetches one employee.
func (c *Client) GetEmployee(ctx context.Context, id uuid.UUID) (Employee, error) {
	var out Employee
	err := c.do(ctx, http.MethodGet, "/v1/employees/"+id.String(), nil, &out)
	return out, err
}

// RemoveEmployee deletes an employee and all relations touching them.
func (c *Client) RemoveEmployee(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/v1/employees/"+id.String(), nil, nil)
}

// Chief returns the chain of command above id.
func (c *Client) Chief(ctx context.Context, id uuid.UUID) (Chief, error) {
	var out Chief
	err := c.do(ctx, http.MethodGet, "/v1/employees/"+id.String()+"/chief", nil, &out)
	return out, err
}

// Subordinates returns the direct subordinates of id, or every transitive
// subordinate when all is set.
func (c *Client) Subordinates(ctx context.Context, id uuid.UUID, all bool) ([]uuid.UUID, error) {
	scope := "direct"
	if all {
		scope = "all"
	}
	var out struct {
		Subordinates []uuid.UUID `json:"subordinates"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/employees/"+id.String()+"/subordinates?scope="+scope, nil, &out)
	return out.Subordinates, err
}

// Salary computes the salary of id for period.
func (c *Client) Salary(ctx context.Context, id uuid.UUID, period employee.Period) (Salary, error) {
	var out Salary
	path := fmt.Sprintf("/v1/employees/%s/salary?period=%s", id, url.QueryEscape(period.String()))
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// AddRelation makes chief the direct chief of sub.
func (c *Client) AddRelation(ctx context.Context, chief, sub uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/v1/relations", relation{ChiefID: chief, SubordinateID: sub}, nil)
}

// RemoveRelation deletes the relation chief -> sub.
func (c *Client) RemoveRelation(ctx context.Context, chief, sub uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/v1/relations", relation{ChiefID: chief, SubordinateID: sub}, nil)
}

// Payroll runs the payroll for period.
func (c *Client) Payroll(ctx context.Context, period employee.Period) (Payroll, error) {
	var out Payroll
	err := c.do(ctx, http.MethodGet, "/v1/payroll?format=json&period="+url.QueryEscape(period.String()), nil, &out)
	return out, err
}

// PayrollCSV returns the raw CSV payroll report for period.
func (c *Client) PayrollCSV(ctx context.Context, period employee.Period) ([]byte, error) {
	var buf bytes.Buffer
	err := c.do(ctx, http.MethodGet, "/v1/payroll?format=csv&period="+url.QueryEscape(period.String()), nil, &buf)
	return buf.Bytes(), err
}

// OrgChart returns the current forest of employees.
func (c *Client) OrgChart(ctx context.Context) ([]ChartNode, error) {
	var out []ChartNode
	err := c.do(ctx, http.MethodGet, "/v1/orgchart", nil, &out)
	return out, err
}

// Export archives a report of reportType ("payroll" or "orgchart") for period
// in format ("csv" or "json") on the daemon.
func (c *Client) Export(ctx context.Context, reportType string, period employee.Period, format string) (Export, error) {
	q := url.Values{}
	q.Set("type", reportType)
	q.Set("period", period.String())
	q.Set("format", format)
	var out Export
	err := c.do(ctx, http.MethodPost, "/v1/exports?"+q.Encode(), nil, &out)
	return out, err
}

// ListExports returns the archived report keys under prefix.
func (c *Client) ListExports(ctx context.Context, prefix string) ([]string, error) {
	var out struct {
		Keys []string `json:"keys"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/exports?prefix="+url.QueryEscape(prefix), nil, &out)
	return out.Keys, err
}

// GetExport returns the raw content of an archived report.
func (c *Client) GetExport(ctx context.Context, key string) ([]byte, error) {
	var buf bytes.Buffer
	err := c.do(ctx, http.MethodGet, "/v1/exports/"+key, nil, &buf)
	return buf.Bytes(), err
}

// DeleteExport removes an archived report.
func (c *Client) DeleteExport(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/v1/exports/"+key, nil, nil)
}

type relation struct {
	ChiefID       uuid.UUID `json:"chief_id"`
	SubordinateID uuid.UUID `json:"subordinate_id"`
}

// do sends one request and decodes the response into out. A *bytes.Buffer out
// receives the raw body. GET requests are retried per the configured policy.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		retry, err := c.roundTrip(ctx, method, path, body, out)
		if err == nil || !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode >= 500, apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if buf, ok := out.(*bytes.Buffer); ok {
		_, err := io.Copy(buf, resp.Body)
		return false, err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return false, nil
}

// IsNotFound reports whether err is a 404 from the daemon.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}
