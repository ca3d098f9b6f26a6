package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/zonewatch/zonereport/pkg/config"
	"github.com/zonewatch/zonereport/pkg/metrics"
)

// HTTPClient talks to the upstream analytics API over HTTP.
type HTTPClient struct {
	endpoint   string
	apiToken   string
	httpClient *http.Client
}

// NewHTTPClient creates a client from the upstream configuration
func NewHTTPClient(cfg config.UpstreamConfig) (*HTTPClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("upstream endpoint is not configured")
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream timeout %q: %w", cfg.Timeout, err)
	}

	return &HTTPClient{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		apiToken:   cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// queryRequest is the wire format of a query POST body
type queryRequest struct {
	Dataset  string   `json:"dataset"`
	Since    string   `json:"since"`
	Until    string   `json:"until"`
	Host     string   `json:"host,omitempty"`
	Fields   []string `json:"fields,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Bucketed bool     `json:"bucketed,omitempty"`
}

// queryResponse is the wire format of a query result. Exactly one of Groups
// or Buckets is populated depending on the requested shape.
type queryResponse struct {
	Groups  []Group       `json:"groups,omitempty"`
	Buckets []DailyBucket `json:"buckets,omitempty"`
	Errors  []apiError    `json:"errors,omitempty"`
}

// apiError is one error entry in an upstream response
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// QueryGroups issues a fine-grained grouped query
func (c *HTTPClient) QueryGroups(ctx context.Context, q Query) ([]Group, error) {
	body := queryRequest{
		Dataset: string(q.Dataset),
		Since:   q.Since.UTC().Format(time.RFC3339),
		Until:   q.Until.UTC().Format(time.RFC3339),
		Host:    q.Subdomain,
		Fields:  q.Fields,
		Limit:   q.Limit,
	}

	resp, err := c.post(ctx, q.ZoneID, body)
	if err != nil {
		metrics.UpstreamQueryCount.WithLabelValues(string(q.Dataset), string(ShapeGrouped), "error").Inc()
		return nil, err
	}

	metrics.UpstreamQueryCount.WithLabelValues(string(q.Dataset), string(ShapeGrouped), "success").Inc()
	return resp.Groups, nil
}

// QueryDaily issues a daily-bucketed summary query
func (c *HTTPClient) QueryDaily(ctx context.Context, q Query) ([]DailyBucket, error) {
	body := queryRequest{
		Dataset:  string(q.Dataset),
		Since:    q.Since.UTC().Format(time.RFC3339),
		Until:    q.Until.UTC().Format(time.RFC3339),
		Host:     q.Subdomain,
		Bucketed: true,
	}

	resp, err := c.post(ctx, q.ZoneID, body)
	if err != nil {
		metrics.UpstreamQueryCount.WithLabelValues(string(q.Dataset), string(ShapeBucketed), "error").Inc()
		return nil, err
	}

	metrics.UpstreamQueryCount.WithLabelValues(string(q.Dataset), string(ShapeBucketed), "success").Inc()
	return resp.Buckets, nil
}

// post sends a query for the given zone and decodes the response
func (c *HTTPClient) post(ctx context.Context, zoneID string, body queryRequest) (*queryResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	url := fmt.Sprintf("%s/zones/%s/analytics/query", c.endpoint, zoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if httpResp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, httpResp.StatusCode)
	}

	var resp queryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode upstream response: %w", err)
	}

	if len(resp.Errors) > 0 {
		apiErr := resp.Errors[0]

		// Field rejections are recoverable; the aggregator drops the field
		// and retries.
		if apiErr.Code == "unsupported_field" && apiErr.Field != "" {
			return nil, &FieldError{Field: apiErr.Field}
		}

		log.Printf("Upstream query failed for zone %s: %s (%s)", zoneID, apiErr.Message, apiErr.Code)
		return nil, fmt.Errorf("upstream query failed: %s", apiErr.Message)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream query failed with status %d", httpResp.StatusCode)
	}

	return &resp, nil
}
