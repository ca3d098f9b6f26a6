// Package export produces spreadsheet exports of aggregated zone metrics.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/zonewatch/zonereport/pkg/analytics"
)

const summarySheet = "Summary"

// ContentType is the MIME type of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MetricsWorkbook builds an xlsx workbook from one aggregated metric set:
// a summary sheet plus one sheet per ranking that has data.
func MetricsWorkbook(zoneName string, win analytics.Window, set analytics.MetricSet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// excelize creates "Sheet1" by default; rename it into the summary
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to set up summary sheet: %w", err)
	}

	writeSummary(f, zoneName, win, set)

	rankings := []struct {
		sheet   string
		header  string
		entries []analytics.RankedEntry
	}{
		{"Top IPs", "Client IP", set.TopIPs},
		{"Top Hosts", "Host", set.TopHosts},
		{"Firewall Rules", "Rule", set.TopFirewallRules},
		{"Firewall Sources", "Source", set.FirewallRuleSources},
	}

	for _, r := range rankings {
		if len(r.entries) == 0 {
			continue
		}
		if err := writeRanking(f, r.sheet, r.header, r.entries); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, zoneName string, win analytics.Window, set analytics.MetricSet) {
	rows := [][]interface{}{
		{"Zone", zoneName},
		{"Period start", win.Since.Format(time.RFC3339)},
		{"Period end", win.Until.Format(time.RFC3339)},
		{"Total requests", set.TotalRequests},
		{"Total firewall events", set.TotalFirewallEvents},
	}

	if win.Subdomain != "" {
		rows = append(rows, []interface{}{"Subdomain", win.Subdomain})
	}
	if set.Capped {
		rows = append(rows, []interface{}{"Note", "Result set was truncated upstream; totals may undercount"})
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		f.SetSheetRow(summarySheet, cell, &row)
	}
}

func writeRanking(f *excelize.File, sheet, header string, entries []analytics.RankedEntry) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	head := []interface{}{"#", header, "Count"}
	f.SetSheetRow(sheet, "A1", &head)

	for i, e := range entries {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{i + 1, e.Key, e.Count}
		f.SetSheetRow(sheet, cell, &row)
	}

	return nil
}
