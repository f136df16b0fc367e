package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// pageIDPattern restricts page identifiers to filesystem-safe slugs.
var pageIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidPageID reports whether id is safe to use as a page filename.
func ValidPageID(id string) bool {
	return pageIDPattern.MatchString(id)
}

// Page document fields that live alongside the free-form sections.
var pageMetaFields = map[string]struct{}{
	"pageId":       {},
	"title":        {},
	"description":  {},
	"lastModified": {},
	"published":    {},
}

// PageDocument is the on-disk shape of a single page: fixed metadata plus
// arbitrary named sections flattened into the same JSON object.
type PageDocument struct {
	PageID       string
	Title        string
	Description  string
	LastModified time.Time
	Published    bool
	Sections     Blob
}

// MarshalJSON flattens metadata and sections into one object.
func (d *PageDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Sections)+5)
	for key, value := range d.Sections {
		if _, reserved := pageMetaFields[key]; reserved {
			continue
		}
		out[key] = value
	}

	out["pageId"] = d.PageID
	out["title"] = d.Title
	out["description"] = d.Description
	out["published"] = d.Published
	if !d.LastModified.IsZero() {
		out["lastModified"] = d.LastModified.UTC().Format(time.RFC3339)
	}

	return json.Marshal(out)
}

// UnmarshalJSON splits metadata fields from the remaining sections.
func (d *PageDocument) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.PageID, _ = raw["pageId"].(string)
	d.Title, _ = raw["title"].(string)
	d.Description, _ = raw["description"].(string)
	d.Published, _ = raw["published"].(bool)

	if ts, ok := raw["lastModified"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			d.LastModified = parsed
		}
	}

	d.Sections = make(Blob)
	for key, value := range raw {
		if _, reserved := pageMetaFields[key]; reserved {
			continue
		}
		d.Sections[key] = value
	}
	return nil
}

// PageFiles reads and writes the per-page JSON mirror, one <pageID>.json file
// per page under a single directory.
type PageFiles struct {
	dir string
}

// NewPageFiles constructs a PageFiles over the given directory.
func NewPageFiles(dir string) (*PageFiles, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("content: pages directory is required")
	}
	return &PageFiles{dir: dir}, nil
}

// Dir returns the mirror directory.
func (f *PageFiles) Dir() string {
	return f.dir
}

// Read loads the document for pageID. A missing or unparseable file is
// reported as absent, never as an error.
func (f *PageFiles) Read(pageID string) (*PageDocument, bool) {
	if !ValidPageID(pageID) {
		return nil, false
	}

	data, err := os.ReadFile(f.path(pageID))
	if err != nil {
		return nil, false
	}

	var doc PageDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}

	if doc.PageID == "" {
		doc.PageID = pageID
	}
	return &doc, true
}

// Write persists the document as <pageID>.json, creating the directory if needed.
func (f *PageFiles) Write(doc *PageDocument) error {
	if doc == nil {
		return errors.New("content: nil page document")
	}
	if !ValidPageID(doc.PageID) {
		return fmt.Errorf("content: invalid page id %q", doc.PageID)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("content: create pages dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("content: marshal page %s: %w", doc.PageID, err)
	}

	if err := os.WriteFile(f.path(doc.PageID), data, 0o644); err != nil {
		return fmt.Errorf("content: write page %s: %w", doc.PageID, err)
	}
	return nil
}

// List returns the sorted page ids present in the mirror directory.
func (f *PageFiles) List() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("content: read pages dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if ValidPageID(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *PageFiles) path(pageID string) string {
	return filepath.Join(f.dir, pageID+".json")
}
