// Package local handles local filesystem storage for generated report documents.
package local

import (
	"fmt"
	"os"
	"path/filepath"
)

// Client represents a local filesystem store for report documents
type Client struct {
	directory string
}

// NewClient creates a local storage client rooted at the given directory,
// creating it if needed
func NewClient(directory string) (*Client, error) {
	if directory == "" {
		return nil, fmt.Errorf("report directory is not configured")
	}

	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory %s: %w", directory, err)
	}

	return &Client{directory: directory}, nil
}

// ReportPath returns the full path for a report file name
func (c *Client) ReportPath(fileName string) string {
	return filepath.Join(c.directory, fileName)
}

// validateName rejects names that would resolve outside the report
// directory. File names arrive from API query parameters, not just from
// rows this process wrote.
func validateName(fileName string) error {
	if fileName == "" || fileName == "." || fileName == ".." ||
		fileName != filepath.Base(fileName) {
		return fmt.Errorf("invalid report file name %q", fileName)
	}
	return nil
}

// SaveReport writes a generated document to the report directory
func (c *Client) SaveReport(fileName string, data []byte) (string, error) {
	if err := validateName(fileName); err != nil {
		return "", err
	}

	path := c.ReportPath(fileName)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file %s: %w", path, err)
	}

	return path, nil
}

// ReadReport reads a stored document back, for download endpoints
func (c *Client) ReadReport(fileName string) ([]byte, error) {
	if err := validateName(fileName); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.ReportPath(fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read report file %s: %w", fileName, err)
	}

	return data, nil
}

// Remove deletes a report file. A file that is already gone is not an error;
// the row it backed is being removed either way.
func (c *Client) Remove(fileName string) error {
	if err := validateName(fileName); err != nil {
		return err
	}

	err := os.Remove(c.ReportPath(fileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove report file %s: %w", fileName, err)
	}

	return nil
}
