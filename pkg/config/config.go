// Package config provides configuration loading and management for ZoneReport
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// UpstreamConfig defines connection settings for the zone analytics API
type UpstreamConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIToken string `yaml:"apiToken"`
	Timeout  string `yaml:"timeout"`
}

// TemplatesConfig defines where report templates are stored
type TemplatesConfig struct {
	Directory string `yaml:"directory"`
}

// ReportsConfig defines report generation settings
type ReportsConfig struct {
	Directory string `yaml:"directory"` // Where generated documents are written
	Schedule  string `yaml:"schedule"`  // Cron expression for the due-check poll
	TopN      int    `yaml:"topN"`      // Row cap for ranked tables in rendered reports
}

// ConversionConfig defines document conversion settings
type ConversionConfig struct {
	Engine           string `yaml:"engine"` // libreoffice or msword
	BinaryPath       string `yaml:"binaryPath"`
	ScratchDirectory string `yaml:"scratchDirectory"`
	Timeout          string `yaml:"timeout"`
}

// MetadataDBConfig defines MySQL connection settings for the report metadata database
type MetadataDBConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime string `yaml:"connMaxLifetime"`
	AutoMigrate     bool   `yaml:"autoMigrate"`
}

// S3Config defines settings for archiving generated documents to S3
type S3Config struct {
	Enabled            bool   `yaml:"enabled"`
	Bucket             string `yaml:"bucket"`
	Region             string `yaml:"region"`
	Endpoint           string `yaml:"endpoint"`
	AccessKey          string `yaml:"accessKey"`
	SecretKey          string `yaml:"secretKey"`
	Prefix             string `yaml:"prefix"`
	PathStyle          bool   `yaml:"pathStyle"`
	SkipCertValidation bool   `yaml:"skipCertValidation"`
}

// MetricsConfig defines metrics/admin server settings
type MetricsConfig struct {
	Port string `yaml:"port"`
}

// AppConfig contains the complete application configuration
type AppConfig struct {
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Templates  TemplatesConfig  `yaml:"templates"`
	Reports    ReportsConfig    `yaml:"reports"`
	Conversion ConversionConfig `yaml:"conversion"`
	MetadataDB MetadataDBConfig `yaml:"metadata_database"`
	S3         S3Config         `yaml:"s3"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Debug      bool             `yaml:"debug"`
	ConfigFile string           `yaml:"-"`
}

// CFG is the global configuration object
var CFG AppConfig

// LoadConfiguration loads configuration from an optional YAML file and
// environment variables. Environment variables win over file values.
func LoadConfiguration() {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := loadFromFile(configFile); err != nil {
			log.Printf("Warning: Failed to load config file %s: %v", configFile, err)
		} else {
			CFG.ConfigFile = configFile
			log.Printf("Loaded configuration from %s", configFile)
		}
	}

	loadFromEnvironment()
	setDefaults()

	if CFG.Debug {
		log.Println("Configuration loaded")
	}
}

// loadFromFile reads a YAML configuration file into CFG
func loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &CFG); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment() {
	CFG.Debug = parseEnvBool("DEBUG", CFG.Debug)

	// Upstream analytics API settings
	CFG.Upstream.Endpoint = getEnvOrDefault("UPSTREAM_ENDPOINT", CFG.Upstream.Endpoint)
	CFG.Upstream.APIToken = getEnvOrDefault("UPSTREAM_API_TOKEN", CFG.Upstream.APIToken)
	CFG.Upstream.Timeout = getEnvOrDefault("UPSTREAM_TIMEOUT", CFG.Upstream.Timeout)

	// Template store settings
	CFG.Templates.Directory = getEnvOrDefault("TEMPLATE_DIRECTORY", CFG.Templates.Directory)

	// Report generation settings
	CFG.Reports.Directory = getEnvOrDefault("REPORT_DIRECTORY", CFG.Reports.Directory)
	CFG.Reports.Schedule = getEnvOrDefault("REPORT_SCHEDULE", CFG.Reports.Schedule)
	CFG.Reports.TopN = parseEnvInt("REPORT_TOP_N", CFG.Reports.TopN)

	// Conversion settings
	CFG.Conversion.Engine = getEnvOrDefault("CONVERSION_ENGINE", CFG.Conversion.Engine)
	CFG.Conversion.BinaryPath = getEnvOrDefault("CONVERSION_BINARY", CFG.Conversion.BinaryPath)
	CFG.Conversion.ScratchDirectory = getEnvOrDefault("CONVERSION_SCRATCH_DIRECTORY", CFG.Conversion.ScratchDirectory)
	CFG.Conversion.Timeout = getEnvOrDefault("CONVERSION_TIMEOUT", CFG.Conversion.Timeout)

	// Metadata DB settings
	CFG.MetadataDB.Host = getEnvOrDefault("METADATA_DB_HOST", CFG.MetadataDB.Host)
	CFG.MetadataDB.Port = parseEnvInt("METADATA_DB_PORT", CFG.MetadataDB.Port)
	CFG.MetadataDB.Username = getEnvOrDefault("METADATA_DB_USERNAME", CFG.MetadataDB.Username)
	CFG.MetadataDB.Password = getEnvOrDefault("METADATA_DB_PASSWORD", CFG.MetadataDB.Password)
	CFG.MetadataDB.Database = getEnvOrDefault("METADATA_DB_DATABASE", CFG.MetadataDB.Database)
	CFG.MetadataDB.MaxOpenConns = parseEnvInt("METADATA_DB_MAX_OPEN_CONNS", CFG.MetadataDB.MaxOpenConns)
	CFG.MetadataDB.MaxIdleConns = parseEnvInt("METADATA_DB_MAX_IDLE_CONNS", CFG.MetadataDB.MaxIdleConns)
	CFG.MetadataDB.ConnMaxLifetime = getEnvOrDefault("METADATA_DB_CONN_MAX_LIFETIME", CFG.MetadataDB.ConnMaxLifetime)
	CFG.MetadataDB.AutoMigrate = parseEnvBool("METADATA_DB_AUTO_MIGRATE", CFG.MetadataDB.AutoMigrate)

	// S3 archive settings
	CFG.S3.Enabled = parseEnvBool("S3_ARCHIVE_ENABLED", CFG.S3.Enabled)
	CFG.S3.Bucket = getEnvOrDefault("S3_BUCKET", CFG.S3.Bucket)
	CFG.S3.Region = getEnvOrDefault("S3_REGION", CFG.S3.Region)
	CFG.S3.Endpoint = getEnvOrDefault("S3_ENDPOINT", CFG.S3.Endpoint)
	CFG.S3.AccessKey = getEnvOrDefault("S3_ACCESS_KEY", CFG.S3.AccessKey)
	CFG.S3.SecretKey = getEnvOrDefault("S3_SECRET_KEY", CFG.S3.SecretKey)
	CFG.S3.Prefix = getEnvOrDefault("S3_PREFIX", CFG.S3.Prefix)
	CFG.S3.PathStyle = parseEnvBool("S3_PATH_STYLE", CFG.S3.PathStyle)
	CFG.S3.SkipCertValidation = parseEnvBool("S3_SKIP_CERT_VALIDATION", CFG.S3.SkipCertValidation)

	// Metrics settings
	CFG.Metrics.Port = getEnvOrDefault("METRICS_PORT", CFG.Metrics.Port)
}

// setDefaults ensures all config fields have reasonable default values
func setDefaults() {
	if CFG.Upstream.Timeout == "" {
		CFG.Upstream.Timeout = "30s"
	}

	if CFG.Templates.Directory == "" {
		CFG.Templates.Directory = "/var/lib/zonereport/templates"
	}

	if CFG.Reports.Directory == "" {
		CFG.Reports.Directory = "/var/lib/zonereport/reports"
	}
	if CFG.Reports.Schedule == "" {
		CFG.Reports.Schedule = "@every 15m"
	}
	if CFG.Reports.TopN <= 0 {
		CFG.Reports.TopN = 10
	}

	if CFG.Conversion.Engine == "" {
		CFG.Conversion.Engine = "libreoffice"
	}
	if CFG.Conversion.Timeout == "" {
		CFG.Conversion.Timeout = "3m"
	}

	if CFG.MetadataDB.Host == "" {
		CFG.MetadataDB.Host = "localhost"
	}
	if CFG.MetadataDB.Port == 0 {
		CFG.MetadataDB.Port = 3306
	}
	if CFG.MetadataDB.Username == "" {
		CFG.MetadataDB.Username = "zonereport"
	}
	if CFG.MetadataDB.Database == "" {
		CFG.MetadataDB.Database = "zonereport_metadata"
	}
	if CFG.MetadataDB.MaxOpenConns == 0 {
		CFG.MetadataDB.MaxOpenConns = 10
	}
	if CFG.MetadataDB.MaxIdleConns == 0 {
		CFG.MetadataDB.MaxIdleConns = 5
	}
	if CFG.MetadataDB.ConnMaxLifetime == "" {
		CFG.MetadataDB.ConnMaxLifetime = "5m"
	}

	if CFG.S3.Region == "" {
		CFG.S3.Region = "us-east-1"
	}
	if CFG.S3.Prefix == "" {
		CFG.S3.Prefix = "zone-reports"
	}

	if CFG.Metrics.Port == "" {
		CFG.Metrics.Port = "8080"
	}
}

// ValidateConfig verifies that the loaded configuration is usable
func ValidateConfig() error {
	if CFG.Upstream.Endpoint == "" {
		return fmt.Errorf("upstream endpoint is required (UPSTREAM_ENDPOINT)")
	}

	if _, err := time.ParseDuration(CFG.Upstream.Timeout); err != nil {
		return fmt.Errorf("invalid upstream timeout %q: %w", CFG.Upstream.Timeout, err)
	}

	switch CFG.Conversion.Engine {
	case "libreoffice", "msword":
	default:
		return fmt.Errorf("unsupported conversion engine: %s", CFG.Conversion.Engine)
	}

	if _, err := time.ParseDuration(CFG.Conversion.Timeout); err != nil {
		return fmt.Errorf("invalid conversion timeout %q: %w", CFG.Conversion.Timeout, err)
	}

	if CFG.S3.Enabled && CFG.S3.Bucket == "" {
		return fmt.Errorf("S3 archive is enabled but no bucket is configured")
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or the fallback
func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseEnvBool parses a boolean environment variable
func parseEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s: %s, using default", key, value)
		return fallback
	}
	return parsed
}

// parseEnvInt parses an integer environment variable
func parseEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s: %s, using default", key, value)
		return fallback
	}
	return parsed
}
