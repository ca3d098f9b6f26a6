// Package reportmeta provides database models and operations for report metadata
package reportmeta

import (
	"time"
)

// ReportConfig represents a recurring auto-report configuration
type ReportConfig struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	AccountID    string    `gorm:"type:varchar(64);not null;index"`
	AccountName  string    `gorm:"type:varchar(255);not null"`
	ZoneID       string    `gorm:"type:varchar(64);not null;index"`
	ZoneName     string    `gorm:"type:varchar(255);not null"`
	Subdomain    string    `gorm:"type:varchar(255)"`
	TargetDate   time.Time `gorm:"not null"` // Anchor for computing due report dates
	IntervalDays int       `gorm:"not null"`
	TemplateID   string    `gorm:"type:varchar(64);not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`

	// Relationships
	Files []ReportFile `gorm:"foreignKey:ConfigID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the ReportConfig model
func (ReportConfig) TableName() string {
	return "report_configs"
}

// ReportFile represents one generated document belonging to a config
type ReportFile struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	ConfigID   string    `gorm:"type:varchar(64);not null;index"`
	ReportDate time.Time `gorm:"not null;index"`
	FileName   string    `gorm:"type:varchar(512);not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName specifies the table name for the ReportFile model
func (ReportFile) TableName() string {
	return "report_files"
}
