package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetCFG() {
	CFG = AppConfig{}
}

// TestLoadConfigurationDefaults tests that a bare environment yields the
// documented defaults
func TestLoadConfigurationDefaults(t *testing.T) {
	resetCFG()
	LoadConfiguration()

	assert.Equal(t, "@every 15m", CFG.Reports.Schedule)
	assert.Equal(t, 10, CFG.Reports.TopN)
	assert.Equal(t, "libreoffice", CFG.Conversion.Engine)
	assert.Equal(t, "3m", CFG.Conversion.Timeout)
	assert.Equal(t, "30s", CFG.Upstream.Timeout)
	assert.Equal(t, 3306, CFG.MetadataDB.Port)
	assert.Equal(t, "8080", CFG.Metrics.Port)
}

// TestEnvironmentOverrides tests that environment variables win
func TestEnvironmentOverrides(t *testing.T) {
	resetCFG()
	t.Setenv("UPSTREAM_ENDPOINT", "https://analytics.example.net")
	t.Setenv("REPORT_TOP_N", "25")
	t.Setenv("CONVERSION_ENGINE", "msword")
	t.Setenv("S3_ARCHIVE_ENABLED", "true")

	LoadConfiguration()

	assert.Equal(t, "https://analytics.example.net", CFG.Upstream.Endpoint)
	assert.Equal(t, 25, CFG.Reports.TopN)
	assert.Equal(t, "msword", CFG.Conversion.Engine)
	assert.True(t, CFG.S3.Enabled)
}

// TestConfigFileThenEnvPrecedence tests that env values override file values
func TestConfigFileThenEnvPrecedence(t *testing.T) {
	resetCFG()

	file := t.TempDir() + "/config.yaml"
	require.NoError(t, os.WriteFile(file, []byte(`
upstream:
  endpoint: https://from-file.example.net
  apiToken: file-token
reports:
  topN: 5
`), 0644))

	t.Setenv("CONFIG_FILE", file)
	t.Setenv("UPSTREAM_ENDPOINT", "https://from-env.example.net")

	LoadConfiguration()

	assert.Equal(t, "https://from-env.example.net", CFG.Upstream.Endpoint)
	assert.Equal(t, "file-token", CFG.Upstream.APIToken)
	assert.Equal(t, 5, CFG.Reports.TopN)
}

// TestValidateConfig tests the validation rules
func TestValidateConfig(t *testing.T) {
	resetCFG()
	LoadConfiguration()

	// Missing upstream endpoint
	assert.Error(t, ValidateConfig())

	CFG.Upstream.Endpoint = "https://analytics.example.net"
	assert.NoError(t, ValidateConfig())

	CFG.Conversion.Engine = "pandoc"
	assert.Error(t, ValidateConfig())
	CFG.Conversion.Engine = "msword"
	assert.NoError(t, ValidateConfig())

	CFG.Conversion.Timeout = "soon"
	assert.Error(t, ValidateConfig())
	CFG.Conversion.Timeout = "90s"

	CFG.S3.Enabled = true
	CFG.S3.Bucket = ""
	assert.Error(t, ValidateConfig())
	CFG.S3.Bucket = "reports"
	assert.NoError(t, ValidateConfig())
}

// TestParseEnvHelpers tests tolerant parsing of malformed values
func TestParseEnvHelpers(t *testing.T) {
	t.Setenv("TEST_BOOL", "not-a-bool")
	assert.True(t, parseEnvBool("TEST_BOOL", true))

	t.Setenv("TEST_INT", "not-an-int")
	assert.Equal(t, 7, parseEnvInt("TEST_INT", 7))

	t.Setenv("TEST_STR", "")
	assert.Equal(t, "fallback", getEnvOrDefault("TEST_STR", "fallback"))
}
