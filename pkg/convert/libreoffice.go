package convert

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/zonewatch/zonereport/pkg/metrics"
)

// LibreOfficeConverter converts HTML via a headless document-suite CLI.
type LibreOfficeConverter struct {
	binary  string
	scratch string
	timeout time.Duration
}

// Convert writes the HTML to a scratch file, runs the headless converter
// and collects the produced DOCX. Temp input and output files are removed
// on every exit path.
func (c *LibreOfficeConverter) Convert(ctx context.Context, html []byte, outputName string) ([]byte, error) {
	start := time.Now()

	data, err := c.convert(ctx, html)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ConversionDuration.WithLabelValues("libreoffice", status).Observe(time.Since(start).Seconds())

	return data, err
}

func (c *LibreOfficeConverter) convert(ctx context.Context, html []byte) ([]byte, error) {
	if err := ensureScratchDir(c.scratch); err != nil {
		return nil, &ConversionError{Engine: "libreoffice", Err: err}
	}

	base := scratchBase()
	inputPath := filepath.Join(c.scratch, base+".html")
	outputPath := filepath.Join(c.scratch, base+".docx")

	if err := os.WriteFile(inputPath, html, 0644); err != nil {
		return nil, &ConversionError{Engine: "libreoffice", Err: fmt.Errorf("failed to write temp input: %w", err)}
	}

	// Cleanup always runs; the scratch directory itself persists for reuse.
	defer func() {
		if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: Failed to remove temp input %s: %v", inputPath, err)
		}
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: Failed to remove temp output %s: %v", outputPath, err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// The explicit input filter avoids format auto-detection ambiguity on
	// HTML fragments.
	cmd := exec.Command(c.binary,
		"--headless",
		"--norestore",
		"--infilter=HTML (StarWriter)",
		"--convert-to", "docx:MS Word 2007 XML",
		"--outdir", c.scratch,
		inputPath,
	)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return nil, &ConversionError{Engine: "libreoffice", Err: fmt.Errorf("failed to start converter: %w", err)}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		<-done
		return nil, &ConversionError{Engine: "libreoffice", Output: output.String(), Err: ErrConversionTimeout}
	case err := <-done:
		if err != nil {
			return nil, &ConversionError{Engine: "libreoffice", Output: output.String(), Err: err}
		}
	}

	// The tool exits zero even when nothing was produced, so a missing
	// output file is its own failure mode.
	if _, err := os.Stat(outputPath); err != nil {
		return nil, &ConversionError{
			Engine: "libreoffice",
			Output: output.String(),
			Err:    fmt.Errorf("converter ran but produced no output file"),
		}
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, &ConversionError{Engine: "libreoffice", Err: fmt.Errorf("failed to read output file: %w", err)}
	}

	return data, nil
}
