package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/models"
	"github.com/canopyhq/canopy/pkg/logger"
)

// StorageMode selects which store is authoritative for the shared content blob.
// It is resolved once from configuration at startup rather than inferred from
// deployment environment signals on every read.
type StorageMode string

// Supported storage modes.
const (
	// StorageModeFile treats the JSON data file as the source of truth. Used on
	// hosts with a writable local filesystem where content is git-trackable.
	StorageModeFile StorageMode = "file"
	// StorageModeDatabase treats the sentinel database row as the source of
	// truth. Used on hosts whose filesystem is read-only at runtime.
	StorageModeDatabase StorageMode = "database"
)

// ParseStorageMode validates a configured storage mode string.
func ParseStorageMode(value string) (StorageMode, error) {
	switch StorageMode(strings.ToLower(strings.TrimSpace(value))) {
	case StorageModeFile, "":
		return StorageModeFile, nil
	case StorageModeDatabase:
		return StorageModeDatabase, nil
	default:
		return "", fmt.Errorf("content: unsupported storage mode %q", value)
	}
}

// StoreConfig describes where the shared content blob lives.
type StoreConfig struct {
	Mode     StorageMode
	DataFile string
}

// Store reads and writes the shared content blob, abstracting over its
// physical location. Reads never fail: any missing file, parse error, or
// malformed database row degrades to an empty blob.
type Store struct {
	db       *gorm.DB
	mode     StorageMode
	dataFile string
	log      *zap.Logger
}

// NewStore constructs a content store.
func NewStore(db *gorm.DB, cfg StoreConfig) (*Store, error) {
	if db == nil {
		return nil, errors.New("content store: db is required")
	}
	if strings.TrimSpace(cfg.DataFile) == "" {
		return nil, errors.New("content store: data file path is required")
	}

	mode := cfg.Mode
	if mode == "" {
		mode = StorageModeFile
	}

	return &Store{
		db:       db,
		mode:     mode,
		dataFile: cfg.DataFile,
		log:      logger.WithModule("content"),
	}, nil
}

// Mode reports the configured storage mode.
func (s *Store) Mode() StorageMode {
	return s.mode
}

// ContentData returns the current shared content blob. Precedence depends on
// storage mode: in file mode a non-empty file wins outright and the database is
// only consulted as a fallback; in database mode the database row is overlaid
// on top of the file baseline so database keys win on overlap.
func (s *Store) ContentData(ctx context.Context) Blob {
	fileBlob := s.readFile()

	switch s.mode {
	case StorageModeDatabase:
		dbBlob := s.readDatabase(ctx)
		if len(dbBlob) == 0 {
			return fileBlob
		}
		return Merge(fileBlob, dbBlob)
	default:
		if len(fileBlob) > 0 {
			return fileBlob
		}
		return s.readDatabase(ctx)
	}
}

// WriteFile persists the blob to the JSON data file.
func (s *Store) WriteFile(blob Blob) error {
	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("content store: marshal blob: %w", err)
	}
	if err := os.WriteFile(s.dataFile, data, 0o644); err != nil {
		return fmt.Errorf("content store: write %s: %w", s.dataFile, err)
	}
	return nil
}

// WriteDatabase upserts the blob into the sentinel page row.
func (s *Store) WriteDatabase(ctx context.Context, blob Blob) error {
	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("content store: marshal blob: %w", err)
	}

	var existing models.Page
	err = s.db.WithContext(ctx).Take(&existing, "page_id = ?", models.ContentDataPageID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := models.Page{
			PageID:      models.ContentDataPageID,
			Title:       "Shared Content Data",
			Content:     data,
			IsPublished: false,
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("content store: create sentinel row: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("content store: find sentinel row: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&existing).Update("content", data).Error; err != nil {
		return fmt.Errorf("content store: update sentinel row: %w", err)
	}
	return nil
}

// Departments returns the department list. With includeAll a synthetic
// "All Departments" entry is prepended for filter UIs.
func (s *Store) Departments(ctx context.Context, includeAll bool) []ListEntry {
	entries := listEntries(s.ContentData(ctx), "departments")
	if includeAll {
		entries = append([]ListEntry{{Key: "all", Label: "All Departments"}}, entries...)
	}
	return entries
}

// JobTypes returns the job type list.
func (s *Store) JobTypes(ctx context.Context) []ListEntry {
	return listEntries(s.ContentData(ctx), "jobTypes")
}

// Locations returns the office location list.
func (s *Store) Locations(ctx context.Context) []ListEntry {
	return listEntries(s.ContentData(ctx), "locations")
}

// ExperienceLevels returns the experience level list.
func (s *Store) ExperienceLevels(ctx context.Context) []ListEntry {
	return listEntries(s.ContentData(ctx), "experienceLevels")
}

// Services returns the service list.
func (s *Store) Services(ctx context.Context) []ListEntry {
	return listEntries(s.ContentData(ctx), "services")
}

// Benefits returns the benefits list.
func (s *Store) Benefits(ctx context.Context) []ListEntry {
	return listEntries(s.ContentData(ctx), "benefits")
}

func (s *Store) readFile() Blob {
	data, err := os.ReadFile(s.dataFile)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Debug("content file unreadable", zap.String("path", s.dataFile), zap.Error(err))
		}
		return Blob{}
	}

	var blob Blob
	if err := json.Unmarshal(data, &blob); err != nil {
		s.log.Warn("content file is not valid JSON", zap.String("path", s.dataFile), zap.Error(err))
		return Blob{}
	}
	if blob == nil {
		return Blob{}
	}
	return blob
}

func (s *Store) readDatabase(ctx context.Context) Blob {
	if ctx == nil {
		ctx = context.Background()
	}

	var row models.Page
	err := s.db.WithContext(ctx).Take(&row, "page_id = ?", models.ContentDataPageID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("content row unavailable", zap.Error(err))
		}
		return Blob{}
	}

	if len(row.Content) == 0 {
		return Blob{}
	}

	var blob Blob
	if err := json.Unmarshal(row.Content, &blob); err != nil {
		// Non-object content counts as absent, not as an error.
		s.log.Warn("content row is not a JSON object", zap.Error(err))
		return Blob{}
	}
	if blob == nil {
		return Blob{}
	}
	return blob
}
