package analytics

import (
	"fmt"
	"time"

	"github.com/zonewatch/zonereport/pkg/upstream"
)

// FineWindowMax is the widest window served by fine-grained grouped queries.
// Wider windows switch to the daily-bucketed shape because the upstream
// enforces a hard row cap on fine-grained results.
const FineWindowMax = 72 * time.Hour

// Window is the time range and optional subdomain filter of one report request.
type Window struct {
	Since     time.Time
	Until     time.Time
	Subdomain string
}

// NewWindow validates and constructs a window
func NewWindow(since, until time.Time, subdomain string) (Window, error) {
	if !since.Before(until) {
		return Window{}, fmt.Errorf("invalid window: since %s is not before until %s",
			since.Format(time.RFC3339), until.Format(time.RFC3339))
	}

	return Window{Since: since, Until: until, Subdomain: subdomain}, nil
}

// Width returns the window's duration
func (w Window) Width() time.Duration {
	return w.Until.Sub(w.Since)
}

// ClassifyWindow decides which upstream query shape a window requires.
// The decision lives here so shape handling never leaks into the
// aggregation loops.
func ClassifyWindow(w Window) upstream.Shape {
	if w.Width() > FineWindowMax {
		return upstream.ShapeBucketed
	}
	return upstream.ShapeGrouped
}
