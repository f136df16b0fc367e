package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/canopyhq/canopy/internal/models"
	"github.com/canopyhq/canopy/pkg/logger"
	"github.com/canopyhq/canopy/pkg/metrics"
)

// Direction selects which store is treated as the source of truth for a sync pass.
type Direction string

// Supported sync directions.
const (
	DirectionJSONToDB Direction = "json-to-db"
	DirectionDBToJSON Direction = "db-to-json"
	DirectionBoth     Direction = "both"
)

// ParseDirection validates a direction string from the API.
func ParseDirection(value string) (Direction, error) {
	switch Direction(value) {
	case DirectionJSONToDB, DirectionDBToJSON, DirectionBoth:
		return Direction(value), nil
	case "":
		return DirectionBoth, nil
	default:
		return "", fmt.Errorf("content sync: unsupported direction %q", value)
	}
}

// SyncResult summarises a completed sync pass.
type SyncResult struct {
	Direction       Direction          `json:"direction"`
	PagesToDatabase int                `json:"pages_to_database"`
	PagesToFiles    int                `json:"pages_to_files"`
	Validation      *ConsistencyReport `json:"validation,omitempty"`
	CompletedAt     time.Time          `json:"completed_at"`
}

// ConsistencyReport lists detected drift between the file mirror and database.
type ConsistencyReport struct {
	Consistent bool     `json:"consistent"`
	Issues     []string `json:"issues"`
}

// SyncService reconciles the JSON file mirror and the database copy of page
// content. The two stores may diverge between runs; this service is the only
// component that reads and writes both.
type SyncService struct {
	db    *gorm.DB
	store *Store
	files *PageFiles
	log   *zap.Logger
}

// NewSyncService constructs a SyncService.
func NewSyncService(db *gorm.DB, store *Store, files *PageFiles) (*SyncService, error) {
	if db == nil {
		return nil, errors.New("content sync: db is required")
	}
	if store == nil {
		return nil, errors.New("content sync: content store is required")
	}
	if files == nil {
		return nil, errors.New("content sync: page files are required")
	}

	return &SyncService{
		db:    db,
		store: store,
		files: files,
		log:   logger.WithModule("content-sync"),
	}, nil
}

// UpdateContentData merges a partial update into the shared content blob and
// persists it. The mode's primary store must succeed; the mirror write is best
// effort and a failure there is logged, not rolled back.
func (s *SyncService) UpdateContentData(ctx context.Context, partial Blob) (Blob, error) {
	if len(partial) == 0 {
		return s.store.ContentData(ctx), nil
	}

	merged := Merge(s.store.ContentData(ctx), partial)

	var primary, mirror error
	switch s.store.Mode() {
	case StorageModeDatabase:
		primary = s.store.WriteDatabase(ctx, merged)
	default:
		primary = s.store.WriteFile(merged)
		mirror = s.store.WriteDatabase(ctx, merged)
	}

	if primary != nil {
		return nil, fmt.Errorf("content sync: persist content data: %w", primary)
	}
	if mirror != nil {
		// Accepted divergence until the next successful sync.
		s.log.Warn("content mirror write failed", zap.Error(mirror))
	}

	if err := s.applyJobsFanout(ctx, merged); err != nil {
		s.log.Warn("job postings fan-out failed", zap.Error(err))
	}

	return merged, nil
}

// UpdatePageContent mirrors a single page's sections to its JSON file. Best
// effort: the database row is the authoritative copy in the calling path, so
// file failures are logged and swallowed.
func (s *SyncService) UpdatePageContent(ctx context.Context, pageID string, sections Blob) error {
	if !ValidPageID(pageID) {
		return fmt.Errorf("content sync: invalid page id %q", pageID)
	}

	doc := &PageDocument{
		PageID:       pageID,
		LastModified: time.Now(),
		Published:    true,
		Sections:     sections,
	}

	var row models.Page
	if err := s.db.WithContext(ctx).Take(&row, "page_id = ?", pageID).Error; err == nil {
		doc.Title = row.Title
		doc.Description = row.Description
		doc.Published = row.IsPublished
	}

	if err := s.files.Write(doc); err != nil {
		s.log.Warn("page file mirror write failed",
			zap.String("page_id", pageID),
			zap.Error(err),
		)
	}
	return nil
}

// SyncJSONToDatabase upserts every page file into the database keyed by page
// id. Running it twice with unchanged files leaves the database identical.
func (s *SyncService) SyncJSONToDatabase(ctx context.Context) (int, error) {
	ids, err := s.files.List()
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, id := range ids {
		doc, ok := s.files.Read(id)
		if !ok {
			s.log.Warn("skipping unreadable page file", zap.String("page_id", id))
			continue
		}

		sections, err := json.Marshal(doc.Sections)
		if err != nil {
			return synced, fmt.Errorf("content sync: marshal page %s: %w", id, err)
		}

		lastModified := doc.LastModified
		if lastModified.IsZero() {
			lastModified = time.Now()
		}

		page := models.Page{
			PageID:       id,
			Title:        doc.Title,
			Description:  doc.Description,
			Content:      sections,
			IsPublished:  doc.Published,
			LastModified: lastModified,
		}

		err = s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "page_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "description", "content", "is_published", "last_modified", "updated_at"}),
			}).Create(&page).Error
		if err != nil {
			return synced, fmt.Errorf("content sync: upsert page %s: %w", id, err)
		}
		synced++
	}

	return synced, nil
}

// SyncDatabaseToJSON overwrites the JSON mirror with the database page records.
func (s *SyncService) SyncDatabaseToJSON(ctx context.Context) (int, error) {
	var pages []models.Page
	err := s.db.WithContext(ctx).
		Where("page_id <> ?", models.ContentDataPageID).
		Order("page_id").
		Find(&pages).Error
	if err != nil {
		return 0, fmt.Errorf("content sync: load pages: %w", err)
	}

	synced := 0
	var failures error
	for _, page := range pages {
		sections := Blob{}
		if len(page.Content) > 0 {
			if err := json.Unmarshal(page.Content, &sections); err != nil {
				// Non-object content is treated as an empty section set.
				sections = Blob{}
			}
		}

		doc := &PageDocument{
			PageID:       page.PageID,
			Title:        page.Title,
			Description:  page.Description,
			LastModified: page.LastModified,
			Published:    page.IsPublished,
			Sections:     sections,
		}

		if err := s.files.Write(doc); err != nil {
			failures = multierr.Append(failures, err)
			continue
		}
		synced++
	}

	if failures != nil {
		return synced, fmt.Errorf("content sync: write page files: %w", failures)
	}
	return synced, nil
}

// Run executes a sync pass in the requested direction, optionally appending a
// consistency report. Partial failures in "both" mode are not rolled back.
func (s *SyncService) Run(ctx context.Context, direction Direction, validate bool) (*SyncResult, error) {
	result := &SyncResult{Direction: direction}

	var err error
	switch direction {
	case DirectionJSONToDB:
		result.PagesToDatabase, err = s.SyncJSONToDatabase(ctx)
	case DirectionDBToJSON:
		result.PagesToFiles, err = s.SyncDatabaseToJSON(ctx)
	case DirectionBoth:
		result.PagesToDatabase, err = s.SyncJSONToDatabase(ctx)
		if err == nil {
			result.PagesToFiles, err = s.SyncDatabaseToJSON(ctx)
		}
	default:
		return nil, fmt.Errorf("content sync: unsupported direction %q", direction)
	}

	if err != nil {
		metrics.SyncRuns.WithLabelValues(string(direction), "error").Inc()
		return nil, err
	}
	metrics.SyncRuns.WithLabelValues(string(direction), "success").Inc()

	if validate {
		report, verr := s.ValidateConsistency(ctx)
		if verr != nil {
			return nil, verr
		}
		result.Validation = report
	}

	result.CompletedAt = time.Now()
	s.recordLastRun(ctx, direction)

	s.log.Info("content sync completed",
		zap.String("direction", string(direction)),
		zap.Int("pages_to_database", result.PagesToDatabase),
		zap.Int("pages_to_files", result.PagesToFiles),
	)
	return result, nil
}

// ValidateConsistency compares the file mirror and database without mutating
// either side, naming every page that exists on only one side or drifts in
// title or publication state.
func (s *SyncService) ValidateConsistency(ctx context.Context) (*ConsistencyReport, error) {
	fileIDs, err := s.files.List()
	if err != nil {
		return nil, err
	}

	fileDocs := make(map[string]*PageDocument, len(fileIDs))
	for _, id := range fileIDs {
		if doc, ok := s.files.Read(id); ok {
			fileDocs[id] = doc
		}
	}

	var pages []models.Page
	err = s.db.WithContext(ctx).
		Where("page_id <> ?", models.ContentDataPageID).
		Find(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("content sync: load pages: %w", err)
	}

	report := &ConsistencyReport{Consistent: true, Issues: []string{}}

	dbPages := make(map[string]models.Page, len(pages))
	for _, page := range pages {
		dbPages[page.PageID] = page
		doc, inFiles := fileDocs[page.PageID]
		if !inFiles {
			report.Issues = append(report.Issues,
				fmt.Sprintf("page %q exists in database but not in file mirror", page.PageID))
			continue
		}
		if doc.Title != page.Title {
			report.Issues = append(report.Issues,
				fmt.Sprintf("page %q title differs between stores", page.PageID))
		}
		if doc.Published != page.IsPublished {
			report.Issues = append(report.Issues,
				fmt.Sprintf("page %q publication state differs between stores", page.PageID))
		}
	}

	for _, id := range fileIDs {
		if _, inDB := dbPages[id]; !inDB {
			report.Issues = append(report.Issues,
				fmt.Sprintf("page %q exists in file mirror but not in database", id))
		}
	}

	report.Consistent = len(report.Issues) == 0
	return report, nil
}

// applyJobsFanout mirrors the blob's "jobs" section into the normalized job
// postings table so the careers API stays queryable.
func (s *SyncService) applyJobsFanout(ctx context.Context, blob Blob) error {
	raw, ok := blob["jobs"].([]any)
	if !ok {
		return nil
	}

	var failures error
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		slug, _ := obj["slug"].(string)
		if slug == "" {
			continue
		}

		title, _ := obj["title"].(string)
		department, _ := obj["department"].(string)
		location, _ := obj["location"].(string)
		jobType, _ := obj["type"].(string)
		experience, _ := obj["experience"].(string)
		description, _ := obj["description"].(string)

		posting := models.JobPosting{
			Slug:        slug,
			Title:       title,
			Department:  department,
			Location:    location,
			Type:        jobType,
			Experience:  experience,
			Description: description,
			IsActive:    true,
			PostedAt:    time.Now(),
		}

		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"title", "department", "location", "type", "experience", "description", "updated_at"}),
			}).Create(&posting).Error
		if err != nil {
			failures = multierr.Append(failures, fmt.Errorf("upsert job %s: %w", slug, err))
		}
	}
	return failures
}

func (s *SyncService) recordLastRun(ctx context.Context, direction Direction) {
	updates := []models.SystemSetting{
		{Key: "sync.last_direction", Value: string(direction)},
		{Key: "sync.last_run_at", Value: time.Now().UTC().Format(time.RFC3339)},
	}
	for _, setting := range updates {
		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&setting).Error
		if err != nil {
			s.log.Warn("failed to record sync run", zap.Error(err))
		}
	}
}
