package reportmeta

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrConfigNotFound indicates the requested report config does not exist
var ErrConfigNotFound = errors.New("report config not found")

// ConfigRepository handles database operations for report configurations
type ConfigRepository struct {
	db *gorm.DB
}

// NewConfigRepository creates a new ConfigRepository instance
func NewConfigRepository(db *gorm.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// GetAll retrieves all report configurations
func (r *ConfigRepository) GetAll() ([]ReportConfig, error) {
	var configs []ReportConfig

	err := r.db.Find(&configs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get report configs: %w", err)
	}

	return configs, nil
}

// GetByID retrieves a report configuration by ID
func (r *ConfigRepository) GetByID(id string) (*ReportConfig, error) {
	var cfg ReportConfig

	err := r.db.Where("id = ?", id).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
		}
		return nil, fmt.Errorf("failed to get report config: %w", err)
	}

	return &cfg, nil
}

// Create creates a new report configuration
func (r *ConfigRepository) Create(cfg *ReportConfig) error {
	if cfg.IntervalDays <= 0 {
		return fmt.Errorf("interval days must be a positive integer, got %d", cfg.IntervalDays)
	}

	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}

	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	if err := r.db.Create(cfg).Error; err != nil {
		return fmt.Errorf("failed to create report config: %w", err)
	}

	return nil
}

// Update updates an existing report configuration
func (r *ConfigRepository) Update(cfg *ReportConfig) error {
	exists, err := r.Exists(cfg.ID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, cfg.ID)
	}

	if cfg.IntervalDays <= 0 {
		return fmt.Errorf("interval days must be a positive integer, got %d", cfg.IntervalDays)
	}

	cfg.UpdatedAt = time.Now()

	if err := r.db.Save(cfg).Error; err != nil {
		return fmt.Errorf("failed to update report config: %w", err)
	}

	return nil
}

// Delete deletes a report configuration and its file rows. Physical file
// removal is the caller's concern and must happen before this, while the
// file names are still readable.
func (r *ConfigRepository) Delete(id string) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	// The relational constraint cascades, but older MySQL deployments ran
	// without FK enforcement; delete the file rows explicitly so the
	// outcome does not depend on it.
	if err := tx.Where("config_id = ?", id).Delete(&ReportFile{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete report file rows: %w", err)
	}

	if err := tx.Delete(&ReportConfig{ID: id}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete report config: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Exists checks if a config with the given ID exists
func (r *ConfigRepository) Exists(id string) (bool, error) {
	var count int64
	err := r.db.Model(&ReportConfig{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check if report config exists: %w", err)
	}
	return count > 0, nil
}
