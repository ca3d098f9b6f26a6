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

// WordConverter converts HTML through Word automation on hosts where the
// word processor is installed. It offers higher rendering fidelity than the
// headless suite at the cost of being single-platform.
type WordConverter struct {
	binary  string
	scratch string
	timeout time.Duration
}

// wdFormatXMLDocument is Word's SaveAs constant for DOCX
const wdFormatXMLDocument = 12

// Convert drives the word processor through a generated automation script,
// honoring the same scratch/timeout/verify contract as the headless path.
func (c *WordConverter) Convert(ctx context.Context, html []byte, outputName string) ([]byte, error) {
	start := time.Now()

	data, err := c.convert(ctx, html)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ConversionDuration.WithLabelValues("msword", status).Observe(time.Since(start).Seconds())

	return data, err
}

func (c *WordConverter) convert(ctx context.Context, html []byte) ([]byte, error) {
	if err := ensureScratchDir(c.scratch); err != nil {
		return nil, &ConversionError{Engine: "msword", Err: err}
	}

	base := scratchBase()
	inputPath := filepath.Join(c.scratch, base+".html")
	outputPath := filepath.Join(c.scratch, base+".docx")
	scriptPath := filepath.Join(c.scratch, base+".ps1")

	if err := os.WriteFile(inputPath, html, 0644); err != nil {
		return nil, &ConversionError{Engine: "msword", Err: fmt.Errorf("failed to write temp input: %w", err)}
	}
	if err := os.WriteFile(scriptPath, []byte(c.automationScript(inputPath, outputPath)), 0644); err != nil {
		return nil, &ConversionError{Engine: "msword", Err: fmt.Errorf("failed to write automation script: %w", err)}
	}

	defer func() {
		for _, path := range []string{inputPath, outputPath, scriptPath} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Printf("Warning: Failed to remove temp file %s: %v", path, err)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.Command(c.binary, "-NoProfile", "-NonInteractive", "-File", scriptPath)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		return nil, &ConversionError{Engine: "msword", Err: fmt.Errorf("failed to start automation host: %w", err)}
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
		return nil, &ConversionError{Engine: "msword", Output: output.String(), Err: ErrConversionTimeout}
	case err := <-done:
		if err != nil {
			return nil, &ConversionError{Engine: "msword", Output: output.String(), Err: err}
		}
	}

	if _, err := os.Stat(outputPath); err != nil {
		return nil, &ConversionError{
			Engine: "msword",
			Output: output.String(),
			Err:    fmt.Errorf("converter ran but produced no output file"),
		}
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, &ConversionError{Engine: "msword", Err: fmt.Errorf("failed to read output file: %w", err)}
	}

	return data, nil
}

// automationScript generates the Word automation script for one conversion.
// Word is closed even when the save fails so no orphan process lingers.
func (c *WordConverter) automationScript(inputPath, outputPath string) string {
	return fmt.Sprintf(`$word = New-Object -ComObject Word.Application
$word.Visible = $false
try {
    $doc = $word.Documents.Open(%q)
    $doc.SaveAs([ref]%q, [ref]%d)
    $doc.Close()
} finally {
    $word.Quit()
}
`, inputPath, outputPath, wdFormatXMLDocument)
}
