package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonewatch/zonereport/pkg/analytics"
	"github.com/zonewatch/zonereport/pkg/database/reportmeta"
	"github.com/zonewatch/zonereport/pkg/templates"
)

// In-memory fakes for the manager's store interfaces

type fakeConfigStore struct {
	configs map[string]*reportmeta.ReportConfig
	deleted []string
}

func newFakeConfigStore(cfgs ...*reportmeta.ReportConfig) *fakeConfigStore {
	s := &fakeConfigStore{configs: make(map[string]*reportmeta.ReportConfig)}
	for _, c := range cfgs {
		s.configs[c.ID] = c
	}
	return s
}

func (s *fakeConfigStore) GetAll() ([]reportmeta.ReportConfig, error) {
	var out []reportmeta.ReportConfig
	for _, c := range s.configs {
		out = append(out, *c)
	}
	return out, nil
}

func (s *fakeConfigStore) GetByID(id string) (*reportmeta.ReportConfig, error) {
	c, ok := s.configs[id]
	if !ok {
		return nil, reportmeta.ErrConfigNotFound
	}
	return c, nil
}

func (s *fakeConfigStore) Delete(id string) error {
	delete(s.configs, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type fakeFileStore struct {
	files []reportmeta.ReportFile
}

func (s *fakeFileStore) ListByConfig(configID string) ([]reportmeta.ReportFile, error) {
	var out []reportmeta.ReportFile
	for _, f := range s.files {
		if f.ConfigID == configID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeFileStore) ExistsForDate(configID string, reportDate time.Time) (bool, error) {
	for _, f := range s.files {
		if f.ConfigID == configID && f.ReportDate.Equal(reportDate) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeFileStore) Create(file *reportmeta.ReportFile) error {
	file.ID = "file-" + file.ReportDate.Format("2006-01-02")
	s.files = append(s.files, *file)
	return nil
}

type fakeDocStore struct {
	saved   map[string][]byte
	failOn  string
	removed []string
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{saved: make(map[string][]byte)}
}

func (s *fakeDocStore) SaveReport(fileName string, data []byte) (string, error) {
	s.saved[fileName] = data
	return "/reports/" + fileName, nil
}

func (s *fakeDocStore) ReadReport(fileName string) ([]byte, error) {
	data, ok := s.saved[fileName]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

func (s *fakeDocStore) Remove(fileName string) error {
	if fileName == s.failOn {
		return errors.New("permission denied")
	}
	s.removed = append(s.removed, fileName)
	return nil
}

type fakeSource struct {
	set     analytics.MetricSet
	err     error
	windows []analytics.Window
}

func (s *fakeSource) Aggregate(ctx context.Context, zoneID string, win analytics.Window) (analytics.MetricSet, error) {
	s.windows = append(s.windows, win)
	if s.err != nil {
		return analytics.MetricSet{}, s.err
	}
	return s.set, nil
}

type fakeConverter struct {
	inputs [][]byte
}

func (c *fakeConverter) Convert(ctx context.Context, html []byte, outputName string) ([]byte, error) {
	c.inputs = append(c.inputs, html)
	return append([]byte("DOCX:"), html[:min(16, len(html))]...), nil
}

type fakeArchiver struct {
	keys []string
	err  error
}

func (a *fakeArchiver) ObjectKey(zoneName, fileName string) string {
	return "archive/" + zoneName + "/" + fileName
}

func (a *fakeArchiver) ArchiveReport(ctx context.Context, key string, data []byte) error {
	if a.err != nil {
		return a.err
	}
	a.keys = append(a.keys, key)
	return nil
}

func testManager(t *testing.T, configs *fakeConfigStore, files *fakeFileStore,
	docs *fakeDocStore, source *fakeSource, archiver Archiver, now time.Time) *Manager {
	t.Helper()

	tpl, err := templates.NewStore(t.TempDir())
	require.NoError(t, err)

	m := NewManager(configs, files, tpl, source, &fakeConverter{}, docs, archiver, 10)
	m.now = func() time.Time { return now }
	return m
}

func weeklyConfig() *reportmeta.ReportConfig {
	return &reportmeta.ReportConfig{
		ID:           "cfg-1",
		AccountID:    "acct-1",
		AccountName:  "Example Corp",
		ZoneID:       "zone-1",
		ZoneName:     "example.com",
		TargetDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IntervalDays: 7,
		TemplateID:   templates.DefaultID,
	}
}

// TestDueReportDates tests that a report becomes due only once its coverage
// window has fully passed
func TestDueReportDates(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()

	m := testManager(t, newFakeConfigStore(cfg), &fakeFileStore{}, newFakeDocStore(),
		&fakeSource{}, nil, now)

	due, err := m.DueReportDates(cfg)
	require.NoError(t, err)

	require.Len(t, due, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), due[0])
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), due[1])
}

// TestDueReportDatesSkipsRecorded tests that dates with a recorded file are
// never regenerated
func TestDueReportDatesSkipsRecorded(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()

	files := &fakeFileStore{files: []reportmeta.ReportFile{
		{ConfigID: "cfg-1", ReportDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}

	m := testManager(t, newFakeConfigStore(cfg), files, newFakeDocStore(),
		&fakeSource{}, nil, now)

	due, err := m.DueReportDates(cfg)
	require.NoError(t, err)

	require.Len(t, due, 1)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), due[0])
}

// TestDueReportDatesNoneBeforeInterval tests that nothing is due while the
// first window is still open
func TestDueReportDatesNoneBeforeInterval(t *testing.T) {
	now := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()

	m := testManager(t, newFakeConfigStore(cfg), &fakeFileStore{}, newFakeDocStore(),
		&fakeSource{}, nil, now)

	due, err := m.DueReportDates(cfg)
	require.NoError(t, err)
	assert.Empty(t, due)
}

// TestGeneratePipeline tests the full path: aggregate over the report window,
// render, convert, store, and record
func TestGeneratePipeline(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()
	reportDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	files := &fakeFileStore{}
	docs := newFakeDocStore()
	source := &fakeSource{set: analytics.MetricSet{TotalRequests: 1000}}
	archiver := &fakeArchiver{}

	m := testManager(t, newFakeConfigStore(cfg), files, docs, source, archiver, now)

	file, err := m.Generate(context.Background(), cfg, reportDate, TriggerScheduled)
	require.NoError(t, err)

	// Window covers exactly one interval starting at the report date
	require.Len(t, source.windows, 1)
	assert.Equal(t, reportDate, source.windows[0].Since)
	assert.Equal(t, reportDate.Add(7*24*time.Hour), source.windows[0].Until)

	// Document stored and row recorded
	require.Len(t, docs.saved, 1)
	require.Len(t, files.files, 1)
	assert.Equal(t, "cfg-1", file.ConfigID)
	assert.Equal(t, reportDate, file.ReportDate)
	assert.Contains(t, file.FileName, "example.com-2024-01-01")
	assert.Contains(t, file.FileName, ".docx")

	// Archived under the zone prefix
	require.Len(t, archiver.keys, 1)
	assert.Contains(t, archiver.keys[0], "archive/example.com/")
}

// TestGenerateArchiveFailureIsNonFatal tests that an archive error does not
// fail the run once the document is stored and recorded
func TestGenerateArchiveFailureIsNonFatal(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()

	files := &fakeFileStore{}
	archiver := &fakeArchiver{err: errors.New("bucket unreachable")}

	m := testManager(t, newFakeConfigStore(cfg), files, newFakeDocStore(),
		&fakeSource{}, archiver, now)

	_, err := m.Generate(context.Background(), cfg,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), TriggerScheduled)
	require.NoError(t, err)
	assert.Len(t, files.files, 1)
}

// TestGenerateSubdomainUsesSubdomainBody tests template slot selection and
// file naming for subdomain-scoped configs
func TestGenerateSubdomainUsesSubdomainBody(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()
	cfg.Subdomain = "shop.example.com"

	files := &fakeFileStore{}
	m := testManager(t, newFakeConfigStore(cfg), files, newFakeDocStore(),
		&fakeSource{}, nil, now)

	file, err := m.Generate(context.Background(), cfg,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), TriggerScheduled)
	require.NoError(t, err)
	assert.Contains(t, file.FileName, "shop.example.com-2024-01-01")
}

// TestRunDueReportsGeneratesOldestFirst tests that a scheduled run fills in
// every outstanding report in chronological order
func TestRunDueReportsGeneratesOldestFirst(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()

	files := &fakeFileStore{}
	m := testManager(t, newFakeConfigStore(cfg), files, newFakeDocStore(),
		&fakeSource{}, nil, now)

	m.RunDueReports(context.Background())

	require.Len(t, files.files, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), files.files[0].ReportDate)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), files.files[1].ReportDate)
}

// TestDeleteConfigCascade tests that deleting a config attempts every
// physical delete and removes the config even when one file delete fails
func TestDeleteConfigCascade(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()
	configs := newFakeConfigStore(cfg)

	files := &fakeFileStore{files: []reportmeta.ReportFile{
		{ID: "f1", ConfigID: "cfg-1", FileName: "a.docx"},
		{ID: "f2", ConfigID: "cfg-1", FileName: "b.docx"},
		{ID: "f3", ConfigID: "cfg-1", FileName: "c.docx"},
	}}
	docs := newFakeDocStore()
	docs.failOn = "b.docx"

	m := testManager(t, configs, files, docs, &fakeSource{}, nil, now)

	err := m.DeleteConfig("cfg-1")
	require.NoError(t, err)

	// Two removals succeeded, one failed, config deleted regardless
	assert.ElementsMatch(t, []string{"a.docx", "c.docx"}, docs.removed)
	assert.Equal(t, []string{"cfg-1"}, configs.deleted)
}

// TestGenerateOnDemandRejectsOffBoundaryDate tests boundary validation
func TestGenerateOnDemandRejectsOffBoundaryDate(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()

	m := testManager(t, newFakeConfigStore(cfg), &fakeFileStore{}, newFakeDocStore(),
		&fakeSource{}, nil, now)

	_, err := m.GenerateOnDemand(context.Background(), "cfg-1",
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval boundary")
}

// TestGenerateOnDemandRejectsDuplicate tests the at-most-once rule for
// manually triggered reports
func TestGenerateOnDemandRejectsDuplicate(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()
	reportDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	files := &fakeFileStore{files: []reportmeta.ReportFile{
		{ConfigID: "cfg-1", ReportDate: reportDate},
	}}

	m := testManager(t, newFakeConfigStore(cfg), files, newFakeDocStore(),
		&fakeSource{}, nil, now)

	_, err := m.GenerateOnDemand(context.Background(), "cfg-1", reportDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

// TestGenerateAggregationFailure tests that an upstream failure aborts the
// run without recording anything
func TestGenerateAggregationFailure(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cfg := weeklyConfig()

	files := &fakeFileStore{}
	docs := newFakeDocStore()
	source := &fakeSource{err: errors.New("upstream unavailable")}

	m := testManager(t, newFakeConfigStore(cfg), files, docs, source, nil, now)

	_, err := m.Generate(context.Background(), cfg,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), TriggerScheduled)
	require.Error(t, err)
	assert.Empty(t, files.files)
	assert.Empty(t, docs.saved)
}
