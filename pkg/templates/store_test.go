package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

// TestFreshStoreListsDefault tests that a fresh store synthesizes the default
// registry entry
func TestFreshStoreListsDefault(t *testing.T) {
	s := newStore(t)

	entries, err := s.ListRegistry()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, DefaultID, entries[0].ID)
	assert.Equal(t, "Default", entries[0].Name)
}

// TestDefaultContentFallsBackToBuiltin tests that the default template
// renders meaningfully before anyone has saved content
func TestDefaultContentFallsBackToBuiltin(t *testing.T) {
	s := newStore(t)

	content := s.Get(DefaultID)
	assert.Contains(t, content.DomainBody, "@ZONE_NAME@")
	assert.Contains(t, content.SubdomainBody, "@SUBDOMAIN@")
}

// TestCreateDuplicatesSource tests that a new template starts as a copy of
// its source
func TestCreateDuplicatesSource(t *testing.T) {
	s := newStore(t)

	entry, err := s.Create("Monthly", DefaultID)
	require.NoError(t, err)
	assert.Equal(t, "Monthly", entry.Name)
	assert.NotEqual(t, DefaultID, entry.ID)

	content := s.Get(entry.ID)
	assert.Equal(t, s.Get(DefaultID).DomainBody, content.DomainBody)

	// The copy is independent: editing it leaves the default untouched
	content.DomainBody = "<p>custom</p>"
	require.NoError(t, s.Put(entry.ID, content))
	assert.NotEqual(t, "<p>custom</p>", s.Get(DefaultID).DomainBody)
}

// TestRename tests display-name updates
func TestRename(t *testing.T) {
	s := newStore(t)

	entry, err := s.Create("Monthly", DefaultID)
	require.NoError(t, err)

	require.NoError(t, s.Rename(entry.ID, "Quarterly"))

	entries, err := s.ListRegistry()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Quarterly", entries[1].Name)

	assert.ErrorIs(t, s.Rename("tpl-missing", "x"), ErrNotFound)
}

// TestDeleteDefaultForbidden tests that the default template is protected
func TestDeleteDefaultForbidden(t *testing.T) {
	s := newStore(t)
	assert.ErrorIs(t, s.Delete(DefaultID), ErrForbidden)
}

// TestDeleteRemovesEntryAndBlobs tests the full delete path
func TestDeleteRemovesEntryAndBlobs(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	entry, err := s.Create("Monthly", DefaultID)
	require.NoError(t, err)

	blobDir := filepath.Join(dir, entry.ID)
	_, err = os.Stat(blobDir)
	require.NoError(t, err)

	require.NoError(t, s.Delete(entry.ID))

	entries, err := s.ListRegistry()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = os.Stat(blobDir)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, s.Delete(entry.ID), ErrNotFound)
}

// TestGetUnknownTemplateIsEmpty tests that missing content is never an error
func TestGetUnknownTemplateIsEmpty(t *testing.T) {
	s := newStore(t)

	content := s.Get("tpl-missing")
	assert.Empty(t, content.DomainBody)
	assert.Empty(t, content.SubdomainBody)
}

// TestRegistrySurvivesReload tests persistence across store instances
func TestRegistrySurvivesReload(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(dir)
	require.NoError(t, err)

	entry, err := s.Create("Monthly", DefaultID)
	require.NoError(t, err)

	reopened, err := NewStore(dir)
	require.NoError(t, err)

	entries, err := reopened.ListRegistry()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entry.ID, entries[1].ID)

	exists, err := reopened.Exists(entry.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}
