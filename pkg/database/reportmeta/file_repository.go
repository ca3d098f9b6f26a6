package reportmeta

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileRepository handles database operations for generated report files
type FileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new FileRepository instance
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// ListByConfig retrieves all file rows belonging to a config, oldest first
func (r *FileRepository) ListByConfig(configID string) ([]ReportFile, error) {
	var files []ReportFile

	err := r.db.Where("config_id = ?", configID).Order("report_date").Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list report files: %w", err)
	}

	return files, nil
}

// ExistsForDate reports whether a file is already recorded for the given
// config and report date. This check is what enforces at-most-once
// generation per report date.
func (r *FileRepository) ExistsForDate(configID string, reportDate time.Time) (bool, error) {
	var count int64

	err := r.db.Model(&ReportFile{}).
		Where("config_id = ? AND report_date = ?", configID, reportDate).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check for existing report file: %w", err)
	}

	return count > 0, nil
}

// Create records a generated report file
func (r *FileRepository) Create(file *ReportFile) error {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	file.CreatedAt = time.Now()

	if err := r.db.Create(file).Error; err != nil {
		return fmt.Errorf("failed to create report file row: %w", err)
	}

	return nil
}

// Delete removes a single file row
func (r *FileRepository) Delete(id string) error {
	if err := r.db.Delete(&ReportFile{ID: id}).Error; err != nil {
		return fmt.Errorf("failed to delete report file row: %w", err)
	}

	return nil
}
