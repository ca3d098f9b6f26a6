// Package render substitutes computed metrics into report template bodies.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/zonewatch/zonereport/pkg/analytics"
)

// ReportData carries everything a template body can reference.
type ReportData struct {
	ZoneName    string
	Subdomain   string
	Window      analytics.Window
	Metrics     analytics.MetricSet
	GeneratedAt time.Time

	// TopN caps how many rows ranked tables render. Zero means the
	// default of 10.
	TopN int
}

const defaultTopN = 10

// dateFormat used for period boundaries in rendered reports
const dateFormat = "2006-01-02"

// Render substitutes every known @NAME@ token in the template content with
// its metric value. Unmatched tokens are left verbatim so partially
// populated templates stay inspectable. Substitution is a single pass over
// the template: replaced text is never rescanned, so metric values that
// happen to contain token markers stay data, and output is byte-identical
// for identical inputs.
func Render(content string, data ReportData) string {
	topN := data.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	m := data.Metrics

	r := strings.NewReplacer(
		"@ZONE_NAME@", data.ZoneName,
		"@SUBDOMAIN@", data.Subdomain,
		"@PERIOD_START@", data.Window.Since.Format(dateFormat),
		"@PERIOD_END@", data.Window.Until.Format(dateFormat),
		"@TOTAL_REQUESTS@", humanize.Comma(m.TotalRequests),
		"@TOTAL_FIREWALL_EVENTS@", humanize.Comma(m.TotalFirewallEvents),
		"@TOP_IP@", topEntry(m.TopIPs),
		"@TOP_HOST@", topEntry(m.TopHosts),
		"@TOP_IPS_TABLE@", rankingRows(m.TopIPs, topN),
		"@TOP_HOSTS_TABLE@", rankingRows(m.TopHosts, topN),
		"@FIREWALL_RULES_TABLE@", rankingRows(m.TopFirewallRules, topN),
		"@FIREWALL_SOURCES_TABLE@", rankingRows(m.FirewallRuleSources, topN),
		"@CAPPED_NOTICE@", cappedNotice(m.Capped),
		"@GENERATED_AT@", data.GeneratedAt.Format("2006-01-02 15:04:05"),
	)

	return r.Replace(content)
}

// topEntry returns the highest-ranked key, or a dash when the ranking is empty
func topEntry(entries []analytics.RankedEntry) string {
	if len(entries) == 0 {
		return "&mdash;"
	}
	return escape(entries[0].Key)
}

// rankingRows renders a ranking as table-row markup, capped at topN rows
func rankingRows(entries []analytics.RankedEntry, topN int) string {
	if len(entries) == 0 {
		return `  <tr><td colspan="3">No data for this period</td></tr>`
	}

	if len(entries) > topN {
		entries = entries[:topN]
	}

	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "  <tr><td>%d</td><td>%s</td><td>%s</td></tr>",
			i+1, escape(e.Key), humanize.Comma(e.Count))
		if i < len(entries)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// cappedNotice renders the undercount warning when the upstream cap was hit
func cappedNotice(capped bool) string {
	if !capped {
		return ""
	}
	return `<p><em>Note: the analytics query hit the upstream result limit; totals below may undercount actual traffic.</em></p>`
}

// escape neutralizes markup in dimension values, which come from request data
func escape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
