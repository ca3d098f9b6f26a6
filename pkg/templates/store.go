// Package templates manages persistence of named report templates.
package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultID is the reserved id of the built-in template. It cannot be
// deleted and serves as the fallback duplication source.
const DefaultID = "default"

// Content blob file names inside a template directory
const (
	subdomainFile = "subdomain.html"
	domainFile    = "domain.html"
	registryFile  = "registry.json"
)

// ErrNotFound indicates the requested template id is not in the registry
var ErrNotFound = errors.New("template not found")

// ErrForbidden indicates an operation not allowed on the default template
var ErrForbidden = errors.New("operation not allowed on the default template")

// Entry is one registry record mapping a template id to its display name.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Content holds a template's two content slots.
type Content struct {
	SubdomainBody string
	DomainBody    string
}

// registry is the on-disk registry document
type registry struct {
	Templates []Entry `json:"templates"`
}

// Store persists templates under a directory: registry.json plus one
// subdirectory per template holding the two content blobs.
type Store struct {
	dir   string
	mutex sync.Mutex
}

// NewStore creates a template store rooted at dir
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create template directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

// Get returns a template's content. Missing blobs come back as the default
// bodies for the default template and as empty strings otherwise; absence
// is never an error.
func (s *Store) Get(id string) Content {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	content := Content{
		SubdomainBody: s.readBlob(id, subdomainFile),
		DomainBody:    s.readBlob(id, domainFile),
	}

	// A fresh install has no blobs for the default template yet; fall back
	// to the built-in bodies so reports render meaningfully.
	if id == DefaultID {
		if content.SubdomainBody == "" {
			content.SubdomainBody = defaultSubdomainBody
		}
		if content.DomainBody == "" {
			content.DomainBody = defaultDomainBody
		}
	}

	return content
}

// Put persists both content slots, creating the template directory as needed
func (s *Store) Put(id string, content Content) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.writeBlobs(id, content)
}

// ListRegistry returns the ordered registry entries. A missing registry file
// synthesizes the default entry.
func (s *Store) ListRegistry() ([]Entry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	reg, err := s.loadRegistry()
	if err != nil {
		return nil, err
	}

	return reg.Templates, nil
}

// Create adds a new template, copying content from sourceID. An empty
// sourceID produces an empty template. The new id is time-based so registry
// order matches creation order even after a reload.
func (s *Store) Create(name, sourceID string) (Entry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	reg, err := s.loadRegistry()
	if err != nil {
		return Entry{}, err
	}

	var content Content
	if sourceID != "" {
		content = Content{
			SubdomainBody: s.readBlob(sourceID, subdomainFile),
			DomainBody:    s.readBlob(sourceID, domainFile),
		}
		if sourceID == DefaultID {
			if content.SubdomainBody == "" {
				content.SubdomainBody = defaultSubdomainBody
			}
			if content.DomainBody == "" {
				content.DomainBody = defaultDomainBody
			}
		}
	}

	entry := Entry{
		ID:   fmt.Sprintf("tpl-%d", time.Now().UnixNano()),
		Name: name,
	}

	if err := s.writeBlobs(entry.ID, content); err != nil {
		return Entry{}, err
	}

	reg.Templates = append(reg.Templates, entry)
	if err := s.saveRegistry(reg); err != nil {
		return Entry{}, err
	}

	return entry, nil
}

// Rename updates a template's display name
func (s *Store) Rename(id, newName string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	reg, err := s.loadRegistry()
	if err != nil {
		return err
	}

	for i := range reg.Templates {
		if reg.Templates[i].ID == id {
			reg.Templates[i].Name = newName
			return s.saveRegistry(reg)
		}
	}

	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes a template's registry entry and both content blobs. The
// default template cannot be deleted. Missing blobs are not errors.
func (s *Store) Delete(id string) error {
	if id == DefaultID {
		return ErrForbidden
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	reg, err := s.loadRegistry()
	if err != nil {
		return err
	}

	found := false
	remaining := make([]Entry, 0, len(reg.Templates))
	for _, e := range reg.Templates {
		if e.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, e)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	reg.Templates = remaining
	if err := s.saveRegistry(reg); err != nil {
		return err
	}

	// Blob removal is best effort once the registry no longer references
	// the template.
	if err := os.RemoveAll(filepath.Join(s.dir, id)); err != nil {
		log.Printf("Warning: Failed to remove content blobs for template %s: %v", id, err)
	}

	return nil
}

// Exists reports whether a template id is present in the registry
func (s *Store) Exists(id string) (bool, error) {
	entries, err := s.ListRegistry()
	if err != nil {
		return false, err
	}

	for _, e := range entries {
		if e.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// readBlob reads one content blob, returning an empty string when absent
func (s *Store) readBlob(id, name string) string {
	data, err := os.ReadFile(filepath.Join(s.dir, id, name))
	if err != nil {
		return ""
	}
	return string(data)
}

// writeBlobs persists both content slots for a template
func (s *Store) writeBlobs(id string, content Content) error {
	dir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for template %s: %w", id, err)
	}

	if err := os.WriteFile(filepath.Join(dir, subdomainFile), []byte(content.SubdomainBody), 0644); err != nil {
		return fmt.Errorf("failed to write subdomain body for template %s: %w", id, err)
	}
	if err := os.WriteFile(filepath.Join(dir, domainFile), []byte(content.DomainBody), 0644); err != nil {
		return fmt.Errorf("failed to write domain body for template %s: %w", id, err)
	}

	return nil
}

// loadRegistry reads the registry file, synthesizing the default entry when
// no registry exists yet
func (s *Store) loadRegistry() (*registry, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, registryFile))
	if os.IsNotExist(err) {
		return &registry{Templates: []Entry{{ID: DefaultID, Name: "Default"}}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template registry: %w", err)
	}

	var reg registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse template registry: %w", err)
	}

	// The default entry survives any registry content.
	hasDefault := false
	for _, e := range reg.Templates {
		if e.ID == DefaultID {
			hasDefault = true
			break
		}
	}
	if !hasDefault {
		reg.Templates = append([]Entry{{ID: DefaultID, Name: "Default"}}, reg.Templates...)
	}

	return &reg, nil
}

// saveRegistry writes the registry file
func (s *Store) saveRegistry(reg *registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal template registry: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, registryFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write template registry: %w", err)
	}

	return nil
}
