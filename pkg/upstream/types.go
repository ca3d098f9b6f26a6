// Package upstream implements the client for the zone analytics query API.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Dataset identifies which upstream dataset a query targets
type Dataset string

const (
	// DatasetRequests is the per-request traffic dataset
	DatasetRequests Dataset = "requests"
	// DatasetFirewall is the firewall events dataset
	DatasetFirewall Dataset = "firewall"
)

// Shape identifies which of the two result shapes the upstream returned
type Shape string

const (
	// ShapeGrouped is the fine-grained per-event grouped shape
	ShapeGrouped Shape = "grouped"
	// ShapeBucketed is the daily-bucketed summary shape
	ShapeBucketed Shape = "bucketed"
)

// GroupLimit is the hard row cap the upstream enforces on fine-grained queries
const GroupLimit = 10000

// Group is one bucket of aggregated upstream records sharing identical
// dimension values, carrying a count.
type Group struct {
	Count      int64             `json:"count"`
	Dimensions map[string]string `json:"dimensions"`
}

// DailyBucket carries per-day summed totals for wide windows.
type DailyBucket struct {
	Date time.Time `json:"date"`
	Sum  int64     `json:"sum"`
}

// Query describes one upstream analytics query.
type Query struct {
	ZoneID    string
	Since     time.Time
	Until     time.Time
	Subdomain string // Optional host filter; empty means the whole zone
	Dataset   Dataset
	Fields    []string // Dimension fields to group by
	Limit     int
}

// ErrUnavailable indicates the upstream API could not be reached or returned
// a server error. Callers retry with backoff; the client does not retry.
var ErrUnavailable = errors.New("upstream analytics API unavailable")

// FieldError indicates the upstream rejected a requested field, typically
// because the zone's plan tier does not support it. The aggregation retries
// without the field rather than failing.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("upstream rejected field %q", e.Field)
}

// Client is the query interface to the upstream analytics API.
type Client interface {
	// QueryGroups issues a fine-grained grouped query. The returned slice
	// preserves upstream order; len == query limit means the cap was hit.
	QueryGroups(ctx context.Context, q Query) ([]Group, error)

	// QueryDaily issues a daily-bucketed summary query for wide windows.
	QueryDaily(ctx context.Context, q Query) ([]DailyBucket, error)
}
