package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidPageID(t *testing.T) {
	require.True(t, ValidPageID("home"))
	require.True(t, ValidPageID("customer-success"))
	require.True(t, ValidPageID("page2"))

	require.False(t, ValidPageID(""))
	require.False(t, ValidPageID("-leading"))
	require.False(t, ValidPageID("UPPER"))
	require.False(t, ValidPageID("../escape"))
	require.False(t, ValidPageID("with space"))
}

func TestPageDocumentFlattensSections(t *testing.T) {
	doc := &PageDocument{
		PageID:       "home",
		Title:        "Home",
		Description:  "Landing",
		Published:    true,
		LastModified: time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC),
		Sections: Blob{
			"hero": map[string]any{"heading": "Welcome"},
			// Reserved names in sections never clobber metadata.
			"title": "evil",
		},
	}

	data, err := doc.MarshalJSON()
	require.NoError(t, err)

	var roundTrip PageDocument
	require.NoError(t, roundTrip.UnmarshalJSON(data))

	require.Equal(t, "home", roundTrip.PageID)
	require.Equal(t, "Home", roundTrip.Title)
	require.Equal(t, "Landing", roundTrip.Description)
	require.True(t, roundTrip.Published)
	require.Equal(t, doc.LastModified, roundTrip.LastModified)
	require.Contains(t, roundTrip.Sections, "hero")
	require.NotContains(t, roundTrip.Sections, "title")
}

func TestPageFilesReadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	files, err := NewPageFiles(dir)
	require.NoError(t, err)

	_, ok := files.Read("missing")
	require.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o644))
	_, ok = files.Read("broken")
	require.False(t, ok)
}

func TestPageFilesList(t *testing.T) {
	dir := t.TempDir()
	files, err := NewPageFiles(dir)
	require.NoError(t, err)

	// Missing directory lists as empty.
	missing, err := NewPageFiles(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	ids, err := missing.List()
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, files.Write(&PageDocument{PageID: "home", Sections: Blob{}}))
	require.NoError(t, files.Write(&PageDocument{PageID: "about", Sections: Blob{}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	ids, err = files.List()
	require.NoError(t, err)
	require.Equal(t, []string{"about", "home"}, ids)
}
