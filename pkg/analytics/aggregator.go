// Package analytics reduces raw upstream query results into report metrics.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/zonewatch/zonereport/pkg/metrics"
	"github.com/zonewatch/zonereport/pkg/upstream"
)

// Dimension field names understood by the upstream API
const (
	fieldClientIP = "clientIP"
	fieldHTTPHost = "clientRequestHTTPHost"
	fieldRuleID   = "ruleId"
	fieldSource   = "source"

	// fieldBotScore is only available on higher plan tiers; the upstream
	// rejects it per zone and the aggregation degrades to omitting it.
	fieldBotScore = "botScore"
)

// unknownDimension substitutes for missing dimension values so rows are
// never dropped from the frequency maps.
const unknownDimension = "Unknown"

// RankedEntry is one row of a descending-by-count ranking.
type RankedEntry struct {
	Key   string
	Count int64
}

// MetricSet holds the aggregated metrics for one report request. It is
// computed fresh per request and never cached across windows.
type MetricSet struct {
	TotalRequests       int64
	TotalFirewallEvents int64
	TopIPs              []RankedEntry
	TopHosts            []RankedEntry
	TopFirewallRules    []RankedEntry
	FirewallRuleSources []RankedEntry

	// Capped is set when a fine-grained query hit the upstream row cap,
	// meaning the totals may be undercounts.
	Capped bool
}

// Aggregator turns upstream query results into a MetricSet.
type Aggregator struct {
	client upstream.Client
}

// NewAggregator creates an aggregator over the given upstream client
func NewAggregator(client upstream.Client) *Aggregator {
	return &Aggregator{client: client}
}

// Aggregate computes the metric set for a zone over a window
func (a *Aggregator) Aggregate(ctx context.Context, zoneID string, win Window) (MetricSet, error) {
	var set MetricSet

	switch ClassifyWindow(win) {
	case upstream.ShapeBucketed:
		if err := a.aggregateBucketed(ctx, zoneID, win, &set); err != nil {
			return MetricSet{}, err
		}
	default:
		if err := a.aggregateGrouped(ctx, zoneID, win, &set); err != nil {
			return MetricSet{}, err
		}
	}

	if set.Capped {
		metrics.CappedResultCount.WithLabelValues(zoneID).Inc()
	}

	return set, nil
}

// aggregateGrouped computes metrics from fine-grained grouped queries
func (a *Aggregator) aggregateGrouped(ctx context.Context, zoneID string, win Window, set *MetricSet) error {
	// Traffic dataset: group by client IP and HTTP host. Bot score is
	// attempted but dropped when the plan tier rejects it.
	reqGroups, err := a.queryGroupsDegrading(ctx, upstream.Query{
		ZoneID:    zoneID,
		Since:     win.Since,
		Until:     win.Until,
		Subdomain: win.Subdomain,
		Dataset:   upstream.DatasetRequests,
		Fields:    []string{fieldClientIP, fieldHTTPHost, fieldBotScore},
		Limit:     upstream.GroupLimit,
	})
	if err != nil {
		return fmt.Errorf("traffic query failed: %w", err)
	}

	ips := newFrequencyMap()
	hosts := newFrequencyMap()
	for _, g := range reqGroups {
		set.TotalRequests += g.Count
		ips.Add(dimension(g, fieldClientIP), g.Count)
		hosts.Add(dimension(g, fieldHTTPHost), g.Count)
	}
	set.TopIPs = ips.Ranked()
	set.TopHosts = hosts.Ranked()

	// Firewall dataset: group by rule and rule source.
	fwGroups, err := a.queryGroupsDegrading(ctx, upstream.Query{
		ZoneID:    zoneID,
		Since:     win.Since,
		Until:     win.Until,
		Subdomain: win.Subdomain,
		Dataset:   upstream.DatasetFirewall,
		Fields:    []string{fieldRuleID, fieldSource},
		Limit:     upstream.GroupLimit,
	})
	if err != nil {
		return fmt.Errorf("firewall query failed: %w", err)
	}

	rules := newFrequencyMap()
	sources := newFrequencyMap()
	for _, g := range fwGroups {
		set.TotalFirewallEvents += g.Count
		rules.Add(dimension(g, fieldRuleID), g.Count)
		sources.Add(dimension(g, fieldSource), g.Count)
	}
	set.TopFirewallRules = rules.Ranked()
	set.FirewallRuleSources = sources.Ranked()

	// A full result set means the cap truncated the data; totals may
	// undercount and the report has to say so.
	if len(reqGroups) >= upstream.GroupLimit || len(fwGroups) >= upstream.GroupLimit {
		set.Capped = true
	}

	return nil
}

// aggregateBucketed computes scalar totals from daily summary buckets.
// Rankings are unavailable in this shape; the rendered tables stay empty.
func (a *Aggregator) aggregateBucketed(ctx context.Context, zoneID string, win Window, set *MetricSet) error {
	reqBuckets, err := a.client.QueryDaily(ctx, upstream.Query{
		ZoneID:    zoneID,
		Since:     win.Since,
		Until:     win.Until,
		Subdomain: win.Subdomain,
		Dataset:   upstream.DatasetRequests,
	})
	if err != nil {
		return fmt.Errorf("traffic query failed: %w", err)
	}
	for _, b := range reqBuckets {
		set.TotalRequests += b.Sum
	}

	fwBuckets, err := a.client.QueryDaily(ctx, upstream.Query{
		ZoneID:    zoneID,
		Since:     win.Since,
		Until:     win.Until,
		Subdomain: win.Subdomain,
		Dataset:   upstream.DatasetFirewall,
	})
	if err != nil {
		return fmt.Errorf("firewall query failed: %w", err)
	}
	for _, b := range fwBuckets {
		set.TotalFirewallEvents += b.Sum
	}

	return nil
}

// queryGroupsDegrading issues a grouped query, dropping any field the
// upstream rejects and retrying until the query succeeds or no optional
// field remains to drop.
func (a *Aggregator) queryGroupsDegrading(ctx context.Context, q upstream.Query) ([]upstream.Group, error) {
	for {
		groups, err := a.client.QueryGroups(ctx, q)
		if err == nil {
			return groups, nil
		}

		var fieldErr *upstream.FieldError
		if !errors.As(err, &fieldErr) {
			return nil, err
		}

		remaining := removeField(q.Fields, fieldErr.Field)
		if len(remaining) == len(q.Fields) {
			// The rejected field was not one we asked for; nothing to drop.
			return nil, err
		}

		log.Printf("Upstream rejected field %q for zone %s, retrying without it", fieldErr.Field, q.ZoneID)
		q.Fields = remaining
	}
}

// removeField returns fields without the named entry
func removeField(fields []string, name string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != name {
			out = append(out, f)
		}
	}
	return out
}

// dimension reads a dimension value from a group, substituting Unknown for
// missing values
func dimension(g upstream.Group, field string) string {
	if v, ok := g.Dimensions[field]; ok && v != "" {
		return v
	}
	return unknownDimension
}

// frequencyMap accumulates counts per dimension value while remembering
// first-seen order, which breaks ties in the ranking.
type frequencyMap struct {
	counts map[string]int64
	order  []string
}

func newFrequencyMap() *frequencyMap {
	return &frequencyMap{counts: make(map[string]int64)}
}

// Add accumulates a count for a key
func (f *frequencyMap) Add(key string, count int64) {
	if _, seen := f.counts[key]; !seen {
		f.order = append(f.order, key)
	}
	f.counts[key] += count
}

// Ranked returns all entries sorted descending by count; equal counts keep
// first-seen order
func (f *frequencyMap) Ranked() []RankedEntry {
	entries := make([]RankedEntry, 0, len(f.order))
	for _, key := range f.order {
		entries = append(entries, RankedEntry{Key: key, Count: f.counts[key]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	return entries
}
