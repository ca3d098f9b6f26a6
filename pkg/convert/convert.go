// Package convert turns rendered HTML reports into office documents.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/zonewatch/zonereport/pkg/config"
)

// ContentType is the MIME type of converted documents
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ErrConversionTimeout indicates the external tool did not finish within the
// configured ceiling. Temp resources are still cleaned up.
var ErrConversionTimeout = errors.New("document conversion timed out")

// ConversionError wraps a failed conversion with the external tool's
// diagnostic output.
type ConversionError struct {
	Engine string
	Output string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("conversion via %s failed: %v (tool output: %s)", e.Engine, e.Err, e.Output)
	}
	return fmt.Sprintf("conversion via %s failed: %v", e.Engine, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Converter converts a rendered HTML document into DOCX bytes.
type Converter interface {
	Convert(ctx context.Context, html []byte, outputName string) ([]byte, error)
}

// New returns the converter selected by the configuration flag. Engine
// choice is a deployment decision, never runtime OS sniffing.
func New(cfg config.ConversionConfig) (Converter, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid conversion timeout %q: %w", cfg.Timeout, err)
	}

	scratch := cfg.ScratchDirectory
	if scratch == "" {
		scratch = filepath.Join(os.TempDir(), "zonereport-convert")
	}

	switch cfg.Engine {
	case "libreoffice":
		return &LibreOfficeConverter{
			binary:  binaryOrDefault(cfg.BinaryPath, "soffice"),
			scratch: scratch,
			timeout: timeout,
		}, nil
	case "msword":
		return &WordConverter{
			binary:  binaryOrDefault(cfg.BinaryPath, "powershell"),
			scratch: scratch,
			timeout: timeout,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported conversion engine: %s", cfg.Engine)
	}
}

func binaryOrDefault(path, fallback string) string {
	if path != "" {
		return path
	}
	return fallback
}

// invocationSeq disambiguates conversions started within the same second
var invocationSeq atomic.Uint64

// scratchBase returns a unique timestamp-qualified base name so concurrent
// conversions never collide on temp files.
func scratchBase() string {
	return fmt.Sprintf("report-%s-%d", time.Now().Format("20060102-150405"), invocationSeq.Add(1))
}

// ensureScratchDir creates the scratch directory. The directory itself
// persists across conversions; only per-invocation files are removed.
func ensureScratchDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return nil
}
