// Package reports orchestrates recurring report generation and file lifecycle.
package reports

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/zonewatch/zonereport/pkg/analytics"
	"github.com/zonewatch/zonereport/pkg/convert"
	"github.com/zonewatch/zonereport/pkg/database/reportmeta"
	"github.com/zonewatch/zonereport/pkg/export"
	"github.com/zonewatch/zonereport/pkg/metrics"
	"github.com/zonewatch/zonereport/pkg/render"
	"github.com/zonewatch/zonereport/pkg/templates"
)

// Trigger labels for report metrics
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// ConfigStore is the subset of config repository operations the manager needs.
type ConfigStore interface {
	GetAll() ([]reportmeta.ReportConfig, error)
	GetByID(id string) (*reportmeta.ReportConfig, error)
	Delete(id string) error
}

// FileStore is the subset of file repository operations the manager needs.
type FileStore interface {
	ListByConfig(configID string) ([]reportmeta.ReportFile, error)
	ExistsForDate(configID string, reportDate time.Time) (bool, error)
	Create(file *reportmeta.ReportFile) error
}

// DocumentStore persists generated documents on the local filesystem.
type DocumentStore interface {
	SaveReport(fileName string, data []byte) (string, error)
	ReadReport(fileName string) ([]byte, error)
	Remove(fileName string) error
}

// MetricsSource computes the aggregated metrics for a zone and window.
type MetricsSource interface {
	Aggregate(ctx context.Context, zoneID string, win analytics.Window) (analytics.MetricSet, error)
}

// Archiver uploads generated documents to long-term storage.
type Archiver interface {
	ObjectKey(zoneName, fileName string) string
	ArchiveReport(ctx context.Context, objectKey string, data []byte) error
}

// Manager drives the report pipeline: due detection, aggregation, rendering,
// conversion, and file lifecycle.
type Manager struct {
	configs   ConfigStore
	files     FileStore
	templates *templates.Store
	source    MetricsSource
	converter convert.Converter
	store     DocumentStore
	archiver  Archiver // nil when archiving is disabled
	topN      int

	now func() time.Time
}

// NewManager wires up a report manager
func NewManager(configs ConfigStore, files FileStore, tpl *templates.Store,
	source MetricsSource, converter convert.Converter, store DocumentStore,
	archiver Archiver, topN int) *Manager {
	return &Manager{
		configs:   configs,
		files:     files,
		templates: tpl,
		source:    source,
		converter: converter,
		store:     store,
		archiver:  archiver,
		topN:      topN,
		now:       time.Now,
	}
}

// DueReportDates returns the report dates of a config that have completed
// their interval and have no recorded file yet, oldest first. A report for
// date D covers [D, D+interval) and is due once that window has fully passed.
func (m *Manager) DueReportDates(cfg *reportmeta.ReportConfig) ([]time.Time, error) {
	interval := time.Duration(cfg.IntervalDays) * 24 * time.Hour
	now := m.now()

	var due []time.Time
	for d := cfg.TargetDate; !now.Before(d.Add(interval)); d = d.Add(interval) {
		exists, err := m.files.ExistsForDate(cfg.ID, d)
		if err != nil {
			return nil, fmt.Errorf("failed to check for existing report: %w", err)
		}
		if !exists {
			due = append(due, d)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].Before(due[j]) })
	return due, nil
}

// RunDueReports walks every config and generates all of its outstanding
// reports. One failing config never blocks the others.
func (m *Manager) RunDueReports(ctx context.Context) {
	configs, err := m.configs.GetAll()
	if err != nil {
		log.Printf("Error: Failed to list report configs: %v", err)
		return
	}

	log.Printf("Checking %d report configs for due reports", len(configs))

	for i := range configs {
		cfg := &configs[i]

		due, err := m.DueReportDates(cfg)
		if err != nil {
			log.Printf("Error: Failed to compute due reports for config %s (%s): %v",
				cfg.ID, cfg.ZoneName, err)
			continue
		}

		for _, reportDate := range due {
			if ctx.Err() != nil {
				log.Println("Report run canceled, stopping")
				return
			}

			if _, err := m.Generate(ctx, cfg, reportDate, TriggerScheduled); err != nil {
				log.Printf("Error: Failed to generate report for %s (%s): %v",
					cfg.ZoneName, reportDate.Format("2006-01-02"), err)
				// Later dates for this config are skipped so reports stay in
				// chronological order; they will be retried on the next run.
				break
			}
		}
	}
}

// Generate produces one report document for a config and report date:
// aggregate, render, convert, store, record. Returns the stored file row.
func (m *Manager) Generate(ctx context.Context, cfg *reportmeta.ReportConfig,
	reportDate time.Time, trigger string) (*reportmeta.ReportFile, error) {
	start := m.now()
	zone := cfg.ZoneName

	file, err := m.generate(ctx, cfg, reportDate)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ReportCount.WithLabelValues(zone, trigger, status).Inc()
	metrics.ReportDuration.WithLabelValues(zone).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.LastReportTimestamp.WithLabelValues(zone).Set(float64(m.now().Unix()))
	}

	return file, err
}

func (m *Manager) generate(ctx context.Context, cfg *reportmeta.ReportConfig,
	reportDate time.Time) (*reportmeta.ReportFile, error) {
	interval := time.Duration(cfg.IntervalDays) * 24 * time.Hour

	win, err := analytics.NewWindow(reportDate, reportDate.Add(interval), cfg.Subdomain)
	if err != nil {
		return nil, err
	}

	set, err := m.source.Aggregate(ctx, cfg.ZoneID, win)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}

	content := m.templates.Get(cfg.TemplateID)
	body := content.DomainBody
	if cfg.Subdomain != "" {
		body = content.SubdomainBody
	}

	html := render.Render(body, render.ReportData{
		ZoneName:    cfg.ZoneName,
		Subdomain:   cfg.Subdomain,
		Window:      win,
		Metrics:     set,
		GeneratedAt: m.now(),
		TopN:        m.topN,
	})

	fileName := m.fileName(cfg, reportDate)

	docx, err := m.converter.Convert(ctx, []byte(html), fileName)
	if err != nil {
		return nil, fmt.Errorf("conversion failed: %w", err)
	}

	path, err := m.store.SaveReport(fileName, docx)
	if err != nil {
		return nil, err
	}

	file := &reportmeta.ReportFile{
		ConfigID:   cfg.ID,
		ReportDate: reportDate,
		FileName:   fileName,
	}
	if err := m.files.Create(file); err != nil {
		return nil, err
	}

	// Archiving is best effort: the report exists locally and is recorded,
	// so an archive failure must not fail the run.
	if m.archiver != nil {
		key := m.archiver.ObjectKey(cfg.ZoneName, fileName)
		if err := m.archiver.ArchiveReport(ctx, key, docx); err != nil {
			log.Printf("Warning: Failed to archive report %s: %v", fileName, err)
		}
	}

	log.Printf("Generated report %s for zone %s (%s)", path, cfg.ZoneName,
		reportDate.Format("2006-01-02"))

	return file, nil
}

// GenerateOnDemand generates a report outside the schedule, for the API. The
// report date still has to be one of the config's interval boundaries.
func (m *Manager) GenerateOnDemand(ctx context.Context, configID string,
	reportDate time.Time) (*reportmeta.ReportFile, error) {
	cfg, err := m.configs.GetByID(configID)
	if err != nil {
		return nil, err
	}

	if !onBoundary(cfg, reportDate) {
		return nil, fmt.Errorf("report date %s is not an interval boundary of config %s",
			reportDate.Format("2006-01-02"), configID)
	}

	exists, err := m.files.ExistsForDate(cfg.ID, reportDate)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("report for %s already exists for config %s",
			reportDate.Format("2006-01-02"), configID)
	}

	return m.Generate(ctx, cfg, reportDate, TriggerManual)
}

// ExportMetrics aggregates one report window and returns it as an xlsx
// workbook, without touching the document pipeline.
func (m *Manager) ExportMetrics(ctx context.Context, configID string,
	reportDate time.Time) ([]byte, error) {
	cfg, err := m.configs.GetByID(configID)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.IntervalDays) * 24 * time.Hour
	win, err := analytics.NewWindow(reportDate, reportDate.Add(interval), cfg.Subdomain)
	if err != nil {
		return nil, err
	}

	set, err := m.source.Aggregate(ctx, cfg.ZoneID, win)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}

	return export.MetricsWorkbook(cfg.ZoneName, win, set)
}

// ReadDocument reads a stored report document for download
func (m *Manager) ReadDocument(fileName string) ([]byte, error) {
	return m.store.ReadReport(fileName)
}

// ListFiles returns the recorded files of a config, oldest first
func (m *Manager) ListFiles(configID string) ([]reportmeta.ReportFile, error) {
	if _, err := m.configs.GetByID(configID); err != nil {
		return nil, err
	}
	return m.files.ListByConfig(configID)
}

// DeleteConfig removes a config along with every generated document it owns.
// Physical deletes are attempted first, while the file names are still
// recorded; a file that cannot be removed is logged and the cascade proceeds.
func (m *Manager) DeleteConfig(configID string) error {
	cfg, err := m.configs.GetByID(configID)
	if err != nil {
		return err
	}

	files, err := m.files.ListByConfig(configID)
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := m.store.Remove(f.FileName); err != nil {
			log.Printf("Warning: Failed to remove report file %s: %v", f.FileName, err)
			metrics.ReportFileDeletes.WithLabelValues("error").Inc()
			continue
		}
		metrics.ReportFileDeletes.WithLabelValues("success").Inc()
	}

	if err := m.configs.Delete(configID); err != nil {
		return err
	}

	log.Printf("Deleted report config %s (%s) and %d report files",
		configID, cfg.ZoneName, len(files))
	return nil
}

// fileName builds the timestamp-qualified document name for one report
func (m *Manager) fileName(cfg *reportmeta.ReportConfig, reportDate time.Time) string {
	host := cfg.ZoneName
	if cfg.Subdomain != "" {
		host = cfg.Subdomain
	}

	return fmt.Sprintf("%s-%s-%s.docx",
		sanitizeName(host),
		reportDate.Format("2006-01-02"),
		m.now().Format("20060102T150405"))
}

// onBoundary reports whether a date lands on one of the config's interval
// boundaries at or after the target date
func onBoundary(cfg *reportmeta.ReportConfig, date time.Time) bool {
	if date.Before(cfg.TargetDate) {
		return false
	}

	interval := time.Duration(cfg.IntervalDays) * 24 * time.Hour
	offset := date.Sub(cfg.TargetDate)
	return offset%interval == 0
}

// sanitizeName makes a host name safe for use in a file name
func sanitizeName(s string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", " ", "_", "..", "_")
	return r.Replace(s)
}
